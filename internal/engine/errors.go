package engine

import (
	"errors"
	"fmt"
)

// ValidationError rejects an illegal move: wrong turn, occupied cell,
// insufficient stack. State is never mutated on rejection.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func Invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// PhaseError rejects an action that exists but is not legal in the current
// phase, e.g. guessing while a clue is still pending.
type PhaseError struct {
	Phase  string
	Reason string
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s (phase %s)", e.Reason, e.Phase)
}

func WrongPhase(phase, format string, args ...any) error {
	return &PhaseError{Phase: phase, Reason: fmt.Sprintf(format, args...)}
}

// FatalError marks an invariant violation. The current hand/game is aborted
// and uncommitted bets returned; other rooms are unaffected.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return "fatal: " + e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsRejection reports whether err is a synchronous rejection that leaves the
// session intact (as opposed to a fatal invariant violation).
func IsRejection(err error) bool {
	var ve *ValidationError
	var pe *PhaseError
	return errors.As(err, &ve) || errors.As(err, &pe)
}

func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
