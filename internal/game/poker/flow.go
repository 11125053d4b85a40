package poker

// Street is a betting phase of one hand.
type Street string

const (
	StreetPreflop  Street = "preflop"
	StreetFlop     Street = "flop"
	StreetTurn     Street = "turn"
	StreetRiver    Street = "river"
	StreetShowdown Street = "showdown"
)

// Flow tracks street progression, the dealer button, blind positions, the
// seat whose turn it is and minimum-raise bookkeeping. It is pure position
// arithmetic; seat eligibility comes in as a predicate so the engine owns
// player state.
type Flow struct {
	NumSeats      int
	Dealer        int
	Street        Street
	Current       int
	LastAggressor int   // seat of the last bet/raise this street, -1 if none
	LastRaiseSize int64 // size of the last raise increment this street
}

func NewFlow(numSeats int) *Flow {
	return &Flow{NumSeats: numSeats, Dealer: -1, LastAggressor: -1}
}

// nextFrom walks clockwise from seat+1 to the first eligible seat, -1 if
// none exists.
func (f *Flow) nextFrom(seat int, eligible func(int) bool) int {
	for step := 1; step <= f.NumSeats; step++ {
		idx := (seat + step) % f.NumSeats
		if eligible(idx) {
			return idx
		}
	}
	return -1
}

// AdvanceDealer moves the button to the next eligible seat for a new hand.
func (f *Flow) AdvanceDealer(eligible func(int) bool) {
	f.Dealer = f.nextFrom(f.Dealer, eligible)
}

// Blinds returns the small and big blind seats. Heads-up the dealer posts
// the small blind.
func (f *Flow) Blinds(eligible func(int) bool, numEligible int) (sb, bb int) {
	if numEligible == 2 {
		sb = f.Dealer
		bb = f.nextFrom(f.Dealer, eligible)
		return sb, bb
	}
	sb = f.nextFrom(f.Dealer, eligible)
	bb = f.nextFrom(sb, eligible)
	return sb, bb
}

// FirstToAct returns the opening seat for the current street. Pre-flop it
// is the seat after the big blind (heads-up: the dealer); post-flop the
// first eligible seat after the button.
func (f *Flow) FirstToAct(bb int, eligible func(int) bool, numEligible int) int {
	if f.Street == StreetPreflop {
		if numEligible == 2 {
			return f.Dealer
		}
		return f.nextFrom(bb, eligible)
	}
	return f.nextFrom(f.Dealer, eligible)
}

// AdvanceTurn moves to the next seat still owed a decision.
func (f *Flow) AdvanceTurn(eligible func(int) bool) {
	f.Current = f.nextFrom(f.Current, eligible)
}

// NextStreet advances preflop -> flop -> turn -> river -> showdown and
// resets the per-street raise bookkeeping.
func (f *Flow) NextStreet() {
	switch f.Street {
	case StreetPreflop:
		f.Street = StreetFlop
	case StreetFlop:
		f.Street = StreetTurn
	case StreetTurn:
		f.Street = StreetRiver
	case StreetRiver:
		f.Street = StreetShowdown
	}
	f.LastAggressor = -1
	f.LastRaiseSize = 0
}

// StartHand resets street state for a fresh deal.
func (f *Flow) StartHand() {
	f.Street = StreetPreflop
	f.LastAggressor = -1
	f.LastRaiseSize = 0
}
