package room

import "time"

// CancelFunc stops a pending task. It reports true if the task had not
// fired yet.
type CancelFunc func() bool

// Scheduler is the cancellable one-shot timer used for turn deadlines.
// The production implementation wraps time.AfterFunc; tests substitute a
// manual fake to drive expiry deterministically.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) CancelFunc
}

type clockScheduler struct{}

func NewScheduler() Scheduler { return clockScheduler{} }

func (clockScheduler) Schedule(d time.Duration, fn func()) CancelFunc {
	t := time.AfterFunc(d, fn)
	return t.Stop
}
