package poker

import (
	"fmt"
	"time"

	"github.com/MmmDelicious/lovememory-sub002/internal/engine"
	"github.com/MmmDelicious/lovememory-sub002/internal/game/dealer"
)

const GameType = "poker"

// action kinds
const (
	kindFold    = "fold"
	kindCheck   = "check"
	kindCall    = "call"
	kindBet     = "bet"
	kindRaise   = "raise"
	kindAllIn   = "all_in"
	kindShow    = "show"
	kindMuck    = "muck"
	kindBuyIn   = "buy_in"
	kindRebuy   = "rebuy"
	kindCashOut = "cash_out"
)

// seat statuses
const (
	statusWaiting  = "waiting"
	statusPlaying  = "playing"
	statusFolded   = "folded"
	statusAllIn    = "all-in"
	statusBusted   = "busted"
	statusObserver = "observer"
)

// engine phases between the betting streets
const (
	phaseIdle      = "idle"      // not enough funded players
	phaseBetting   = "betting"   // a street is live
	phaseShowdown  = "showdown"  // show/muck sequencing
	phaseInterHand = "interhand" // payout done, next hand scheduled
)

type amountPayload struct {
	Amount int64 `json:"amount"`
}

type seat struct {
	ID         string
	Name       string
	Status     string
	Stack      int64
	CurrentBet int64 // this street
	HasActed   bool
	Hole       []dealer.Card
	Shown      bool
	Mucked     bool

	// rebuys requested mid-hand apply at the next deal
	PendingRebuy int64

	// left mid-hand; the seat is stripped when the hand settles so the
	// flow indices stay stable
	Left bool
}

var defaults = engine.Settings{
	MinPlayers:      2,
	MaxPlayers:      9,
	TurnTimeout:     30 * time.Second,
	ShowdownTimeout: 10 * time.Second,
	InterHandDelay:  5 * time.Second,
	SmallBlind:      5,
	BigBlind:        10,
	BuyIn:           1000,
}

// Game is the no-limit hold'em cash game session: betting rounds with
// side-pot accounting, showdown show/muck sequencing and buy-in/rebuy/
// cash-out at the economy boundary. Chip conservation holds across every
// mutation except those explicit boundary calls.
type Game struct {
	roomID string
	status engine.Status
	cfg    engine.Settings

	seats     []*seat
	deck      *dealer.Dealer
	flow      *Flow
	pm        *PotManager
	community []dealer.Card

	phase     string
	bbSeat    int
	handCount int

	revealQueue []int // seat indices pending a show/muck decision
	revealPos   int
}

func New(roomID string, players []engine.Player, s engine.Settings) (engine.GameEngine, error) {
	cfg := s.WithDefaults(defaults)
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g := &Game{
		roomID: roomID,
		status: engine.StatusWaiting,
		cfg:    cfg,
		deck:   dealer.NewDealer(seed),
		phase:  phaseIdle,
	}
	for _, p := range players {
		if _, err := g.AddPlayer(p); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func Register(r *engine.Registry) { _ = r.Register(GameType, New) }

func (g *Game) Type() string          { return GameType }
func (g *Game) Status() engine.Status { return g.status }

func (g *Game) PlayerIDs() []string {
	out := make([]string, len(g.seats))
	for i, s := range g.seats {
		out[i] = s.ID
	}
	return out
}

// AddPlayer seats a player. Before the first deal the default buy-in is
// already authorized by the wallet; joins during a live game come in as
// observers and take a seat after an explicit buy_in.
func (g *Game) AddPlayer(p engine.Player) ([]engine.Event, error) {
	if g.seatOf(p.ID) >= 0 {
		return nil, engine.Invalid("player %s already seated", p.ID)
	}
	if len(g.seats) >= g.cfg.MaxPlayers {
		return nil, engine.Invalid("table is full")
	}
	st := &seat{ID: p.ID, Name: p.Name}
	var events []engine.Event
	if g.status == engine.StatusWaiting {
		st.Status = statusWaiting
		st.Stack = g.cfg.BuyIn
		g.seats = append(g.seats, st)
		if g.fundedCount() >= g.cfg.MinPlayers {
			g.status = engine.StatusInProgress
			evs, err := g.startHand()
			return append(events, evs...), err
		}
		return events, nil
	}
	st.Status = statusObserver
	g.seats = append(g.seats, st)
	events = append(events, engine.Broadcast("player_joined", map[string]any{
		"player": p.ID,
		"status": statusObserver,
	}))
	return events, nil
}

// RemovePlayer folds the leaver's live hand (their committed chips stay in
// the pots) and credits their remaining stack back across the economy
// boundary. A seat involved in a running hand is only marked as left and
// stripped once the hand settles, keeping position indices stable.
func (g *Game) RemovePlayer(id string) ([]engine.Event, error) {
	idx := g.seatOf(id)
	if idx < 0 {
		return nil, engine.Invalid("player %s is not at this table", id)
	}
	st := g.seats[idx]
	var events []engine.Event

	if st.Stack > 0 {
		events = append(events, engine.Broadcast("wallet_credit", map[string]any{
			"player": id,
			"amount": st.Stack,
			"reason": "leave",
		}))
		st.Stack = 0
	}
	st.PendingRebuy = 0
	events = append(events, engine.Broadcast("player_left", map[string]any{"player": id}))

	inHand := g.handRunning() && (st.Status == statusPlaying || st.Status == statusAllIn)
	if !inHand {
		g.removeSeat(idx)
		if g.status == engine.StatusInProgress && g.playerCount() < 2 {
			g.status = engine.StatusFinished
			events = append(events, engine.Broadcast("game_finished", map[string]any{
				"room":   g.roomID,
				"stacks": g.stacks(),
			}))
		}
		return events, nil
	}

	wasCurrent := g.phase == phaseBetting && g.flow.Current == idx
	st.Status = statusFolded
	st.Left = true
	g.pm.Fold(id)

	if done, evs, err := g.maybeEndEarly(); done || err != nil {
		return append(events, evs...), err
	}
	if g.phase == phaseShowdown {
		g.rebuildRevealQueue()
		g.revealPos = 0
		evs, err := g.maybeFinishReveal()
		return append(events, evs...), err
	}
	if wasCurrent {
		evs, err := g.afterAction()
		return append(events, evs...), err
	}
	return events, nil
}

// removeSeat drops a seat outside a running hand and keeps the button
// pointing at the same physical seat.
func (g *Game) removeSeat(idx int) {
	g.seats = append(g.seats[:idx], g.seats[idx+1:]...)
	if g.flow == nil {
		return
	}
	g.flow.NumSeats = len(g.seats)
	if g.flow.Dealer > idx {
		g.flow.Dealer--
	}
	if g.flow.Dealer >= len(g.seats) {
		g.flow.Dealer = len(g.seats) - 1
	}
}

func (g *Game) Apply(playerID string, act engine.Action) ([]engine.Event, error) {
	switch act.Kind {
	case engine.KindTimeout:
		return g.applyTimeout(playerID)
	case kindBuyIn, kindRebuy, kindCashOut:
		var mv amountPayload
		if err := act.Decode(&mv); err != nil {
			return nil, engine.Invalid("malformed payload")
		}
		return g.applyEconomy(playerID, act.Kind, mv.Amount)
	case kindShow, kindMuck:
		return g.applyReveal(playerID, act.Kind == kindShow)
	case kindFold, kindCheck, kindCall, kindBet, kindRaise, kindAllIn:
		var mv amountPayload
		if err := act.Decode(&mv); err != nil {
			return nil, engine.Invalid("malformed payload")
		}
		return g.applyBetting(playerID, act.Kind, mv.Amount)
	default:
		return nil, engine.Invalid("unknown action %q", act.Kind)
	}
}

// ---------------------
//       TIMEOUTS
// ---------------------

// applyTimeout is the synthetic default injected by the room timer: check
// or fold during betting, muck at showdown, next deal between hands.
func (g *Game) applyTimeout(playerID string) ([]engine.Event, error) {
	switch g.phase {
	case phaseInterHand:
		return g.startHand()
	case phaseBetting:
		idx := g.seatOf(playerID)
		if idx < 0 || idx != g.flow.Current || g.seats[idx].Status != statusPlaying {
			return nil, nil
		}
		kind := kindFold
		if g.maxBet() == g.seats[idx].CurrentBet {
			kind = kindCheck
		}
		events := []engine.Event{
			engine.Broadcast("timeout_move", map[string]any{"player": playerID, "action": kind}),
		}
		evs, err := g.applyBetting(playerID, kind, 0)
		return append(events, evs...), err
	case phaseShowdown:
		if idx := g.currentRevealer(); idx >= 0 && g.seats[idx].ID == playerID {
			events := []engine.Event{
				engine.Broadcast("timeout_move", map[string]any{"player": playerID, "action": kindMuck}),
			}
			evs, err := g.applyReveal(playerID, false)
			return append(events, evs...), err
		}
	}
	return nil, nil
}

// ---------------------
//    ECONOMY BOUNDARY
// ---------------------

func (g *Game) applyEconomy(playerID, kind string, amount int64) ([]engine.Event, error) {
	idx := g.seatOf(playerID)
	if idx < 0 {
		return nil, engine.Invalid("player %s is not at this table", playerID)
	}
	st := g.seats[idx]

	switch kind {
	case kindBuyIn:
		if amount <= 0 {
			return nil, engine.Invalid("buy-in must be positive")
		}
		if st.Status != statusObserver && st.Status != statusBusted {
			return nil, engine.WrongPhase(g.phase, "already funded")
		}
		st.Stack += amount
		st.Status = statusWaiting
		events := []engine.Event{engine.Broadcast("player_bought_in", map[string]any{
			"player": playerID,
			"amount": amount,
		})}
		if g.phase == phaseIdle && g.fundedCount() >= g.cfg.MinPlayers {
			g.status = engine.StatusInProgress
			evs, err := g.startHand()
			return append(events, evs...), err
		}
		return events, nil

	case kindRebuy:
		if amount <= 0 {
			return nil, engine.Invalid("rebuy must be positive")
		}
		if st.Status == statusObserver {
			return nil, engine.Invalid("observers buy in, not rebuy")
		}
		if g.handRunning() && (st.Status == statusPlaying || st.Status == statusAllIn || st.Status == statusFolded) {
			// rebuys during a hand apply at the next deal
			st.PendingRebuy += amount
			return []engine.Event{engine.Direct(playerID, "rebuy_queued", map[string]any{
				"amount": amount,
			})}, nil
		}
		st.Stack += amount
		if st.Status == statusBusted {
			st.Status = statusWaiting
		}
		events := []engine.Event{engine.Broadcast("player_rebought", map[string]any{
			"player": playerID,
			"amount": amount,
		})}
		if g.phase == phaseIdle && g.fundedCount() >= g.cfg.MinPlayers {
			g.status = engine.StatusInProgress
			evs, err := g.startHand()
			return append(events, evs...), err
		}
		return events, nil

	default: // cash_out
		if g.handRunning() && (st.Status == statusPlaying || st.Status == statusAllIn) {
			return nil, engine.WrongPhase(g.phase, "cannot cash out during a hand")
		}
		if st.Stack <= 0 {
			return nil, engine.Invalid("nothing to cash out")
		}
		amount := st.Stack
		st.Stack = 0
		st.Status = statusObserver
		return []engine.Event{engine.Broadcast("wallet_credit", map[string]any{
			"player": playerID,
			"amount": amount,
			"reason": "cash_out",
		})}, nil
	}
}

// ---------------------
//       BETTING
// ---------------------

func (g *Game) applyBetting(playerID, kind string, amount int64) ([]engine.Event, error) {
	if g.phase != phaseBetting {
		return nil, engine.WrongPhase(g.phase, "no betting round is live")
	}
	idx := g.seatOf(playerID)
	if idx < 0 {
		return nil, engine.Invalid("player %s is not at this table", playerID)
	}
	if idx != g.flow.Current {
		return nil, engine.Invalid("not your turn")
	}
	st := g.seats[idx]
	if st.Status != statusPlaying {
		return nil, engine.Invalid("you are not in this hand")
	}

	maxBet := g.maxBet()
	toCall := maxBet - st.CurrentBet

	switch kind {
	case kindFold:
		st.Status = statusFolded
		g.pm.Fold(playerID)

	case kindCheck:
		if toCall != 0 {
			return nil, engine.Invalid("cannot check facing a bet of %d", toCall)
		}
		st.HasActed = true

	case kindCall:
		if toCall <= 0 {
			return nil, engine.Invalid("nothing to call")
		}
		g.commit(st, min64(toCall, st.Stack))
		st.HasActed = true

	case kindBet:
		if maxBet != 0 {
			return nil, engine.Invalid("there is already a bet, raise instead")
		}
		if amount < g.cfg.BigBlind && amount < st.Stack {
			return nil, engine.Invalid("minimum bet is %d", g.cfg.BigBlind)
		}
		if amount > st.Stack {
			return nil, engine.Invalid("insufficient stack")
		}
		g.commit(st, amount)
		g.aggress(idx, amount)

	case kindRaise:
		if maxBet == 0 {
			return nil, engine.Invalid("nothing to raise, bet instead")
		}
		if amount <= maxBet {
			return nil, engine.Invalid("raise must exceed the current bet of %d", maxBet)
		}
		need := amount - st.CurrentBet
		if need > st.Stack {
			return nil, engine.Invalid("insufficient stack")
		}
		minRaise := maxBet + max64(g.cfg.BigBlind, g.flow.LastRaiseSize)
		if amount < minRaise && need < st.Stack {
			return nil, engine.Invalid("minimum raise is to %d", minRaise)
		}
		g.commit(st, need)
		g.aggress(idx, amount-maxBet)

	case kindAllIn:
		all := st.Stack
		g.commit(st, all)
		// an all-in above the current max re-opens the action
		if st.CurrentBet > maxBet {
			g.aggress(idx, st.CurrentBet-maxBet)
		} else {
			st.HasActed = true
		}
	}

	events := []engine.Event{
		engine.Broadcast("player_action", map[string]any{
			"player": playerID,
			"action": kind,
			"amount": st.CurrentBet,
			"street": string(g.flow.Street),
			"pot":    g.pm.Total(),
		}),
	}

	if done, evs, err := g.maybeEndEarly(); done || err != nil {
		return append(events, evs...), err
	}
	evs, err := g.afterAction()
	return append(events, evs...), err
}

// commit moves chips from the stack into the hand and flags all-in.
func (g *Game) commit(st *seat, amount int64) {
	if amount > st.Stack {
		amount = st.Stack
	}
	st.Stack -= amount
	st.CurrentBet += amount
	g.pm.Contribute(st.ID, amount)
	if st.Stack == 0 && st.Status == statusPlaying {
		st.Status = statusAllIn
		st.HasActed = true
	}
}

// aggress registers a bet/raise: the aggressor is marked acted and every
// other live player is owed a response.
func (g *Game) aggress(idx int, increment int64) {
	g.flow.LastAggressor = idx
	g.flow.LastRaiseSize = increment
	g.seats[idx].HasActed = true
	for i, s := range g.seats {
		if i != idx && s.Status == statusPlaying {
			s.HasActed = false
		}
	}
}

// afterAction advances the turn, the street, or the hand.
func (g *Game) afterAction() ([]engine.Event, error) {
	if !g.bettingComplete() {
		g.flow.AdvanceTurn(func(i int) bool { return g.seats[i].Status == statusPlaying })
		return nil, nil
	}
	return g.advanceStreet()
}

// bettingComplete: every live (non-all-in) player has acted and matched the
// highest bet.
func (g *Game) bettingComplete() bool {
	maxBet := g.maxBet()
	for _, s := range g.seats {
		if s.Status != statusPlaying {
			continue
		}
		if !s.HasActed || s.CurrentBet != maxBet {
			return false
		}
	}
	return true
}

// maybeEndEarly awards the pot without showdown when only one contender is
// left.
func (g *Game) maybeEndEarly() (bool, []engine.Event, error) {
	if g.contenders() > 1 {
		return false, nil, nil
	}
	refunds := g.pm.ReturnUncalled()
	var winner *seat
	for _, s := range g.seats {
		if s.Status == statusPlaying || s.Status == statusAllIn {
			winner = s
			break
		}
	}
	if winner == nil {
		return true, nil, engine.Fatal(fmt.Errorf("hand ended with no contender"))
	}
	amount := g.pm.Total()
	winner.Stack += amount
	for id, r := range refunds {
		if s := g.seatByID(id); s != nil {
			s.Stack += r
		}
	}
	events := []engine.Event{engine.Broadcast("hand_end", map[string]any{
		"room":     g.roomID,
		"hand":     g.handCount,
		"payouts":  map[string]int64{winner.ID: amount},
		"refunds":  refunds,
		"showdown": false,
	})}
	return true, append(events, g.finishHand()...), nil
}

func (g *Game) advanceStreet() ([]engine.Event, error) {
	if g.flow.Street == StreetRiver {
		return g.beginShowdown()
	}

	g.flow.NextStreet()
	g.dealStreet()
	events := []engine.Event{engine.Broadcast("community_dealt", map[string]any{
		"street":    string(g.flow.Street),
		"community": g.communityView(),
		"pot":       g.pm.Total(),
	})}

	for _, s := range g.seats {
		s.CurrentBet = 0
		if s.Status == statusPlaying {
			s.HasActed = false
		}
	}

	if g.livePlayers() < 2 {
		// betting is closed, run the remaining streets out
		evs, err := g.advanceStreet()
		return append(events, evs...), err
	}

	eligible := func(i int) bool { return g.seats[i].Status == statusPlaying }
	g.flow.Current = g.flow.FirstToAct(g.bbSeat, eligible, g.countEligible(eligible))
	return events, nil
}

func (g *Game) dealStreet() {
	switch g.flow.Street {
	case StreetFlop:
		g.deck.Burn()
		g.community = append(g.community, g.deck.DealCommunity(3)...)
	case StreetTurn, StreetRiver:
		g.deck.Burn()
		g.community = append(g.community, g.deck.DealCommunity(1)...)
	}
}

// ---------------------
//       SHOWDOWN
// ---------------------

// beginShowdown refunds uncalled chips and builds the reveal order: the
// last aggressor first, otherwise the first live seat after the dealer,
// then clockwise. The opener's hand is tabled automatically; everyone else
// chooses show or muck on a short timer.
func (g *Game) beginShowdown() ([]engine.Event, error) {
	g.flow.NextStreet() // -> showdown
	g.phase = phaseShowdown

	refunds := g.pm.ReturnUncalled()
	for id, r := range refunds {
		if s := g.seatByID(id); s != nil {
			s.Stack += r
		}
	}

	g.rebuildRevealQueue()
	g.revealPos = 0

	events := []engine.Event{engine.Broadcast("showdown_start", map[string]any{
		"room":  g.roomID,
		"order": g.revealOrderIDs(),
	})}

	if len(g.revealQueue) > 0 {
		opener := g.seats[g.revealQueue[0]]
		opener.Shown = true
		g.revealPos = 1
		events = append(events, engine.Broadcast("player_showed", map[string]any{
			"player": opener.ID,
			"cards":  cardViews(opener.Hole),
		}))
	}

	evs, err := g.maybeFinishReveal()
	return append(events, evs...), err
}

func (g *Game) rebuildRevealQueue() {
	inHand := func(i int) bool {
		s := g.seats[i]
		return s.Status == statusPlaying || s.Status == statusAllIn
	}
	start := g.flow.LastAggressor
	if start < 0 || start >= len(g.seats) || !inHand(start) {
		start = g.flow.nextFrom(g.flow.Dealer, inHand)
	}
	g.revealQueue = g.revealQueue[:0]
	for step := 0; step < len(g.seats); step++ {
		idx := (start + step) % len(g.seats)
		if inHand(idx) && !g.seats[idx].Shown && !g.seats[idx].Mucked {
			g.revealQueue = append(g.revealQueue, idx)
		}
	}
}

func (g *Game) currentRevealer() int {
	if g.phase != phaseShowdown || g.revealPos >= len(g.revealQueue) {
		return -1
	}
	return g.revealQueue[g.revealPos]
}

func (g *Game) applyReveal(playerID string, show bool) ([]engine.Event, error) {
	if g.phase != phaseShowdown {
		return nil, engine.WrongPhase(g.phase, "no showdown in progress")
	}
	idx := g.currentRevealer()
	if idx < 0 || g.seats[idx].ID != playerID {
		return nil, engine.Invalid("not your turn to show or muck")
	}
	st := g.seats[idx]
	g.revealPos++

	var events []engine.Event
	if show {
		st.Shown = true
		events = append(events, engine.Broadcast("player_showed", map[string]any{
			"player": playerID,
			"cards":  cardViews(st.Hole),
		}))
	} else {
		st.Mucked = true
		events = append(events, engine.Broadcast("player_mucked", map[string]any{
			"player": playerID,
		}))
	}

	evs, err := g.maybeFinishReveal()
	return append(events, evs...), err
}

// maybeFinishReveal settles the hand once every contender has shown or
// mucked: pots are built, shown hands ranked, winnings paid. A failing
// evaluator aborts the hand defensively, returning all contributions.
func (g *Game) maybeFinishReveal() ([]engine.Event, error) {
	if g.revealPos < len(g.revealQueue) {
		return nil, nil
	}

	pots := g.pm.Pots()
	descriptions := map[string]string{}
	ranks := map[string]HandRank{}
	var evalErr error
	for _, s := range g.seats {
		if !s.Shown || s.Mucked {
			continue
		}
		r, desc, err := EvaluateHand(s.Hole, g.community)
		if err != nil {
			evalErr = err
			break
		}
		ranks[s.ID] = r
		descriptions[s.ID] = desc
	}
	if evalErr != nil {
		return g.abortHand(evalErr)
	}

	payouts := Distribute(pots, func(id string) (HandRank, bool) {
		r, ok := ranks[id]
		return r, ok
	})

	var total int64
	for _, p := range pots {
		total += p.Amount
	}
	var paid int64
	for id, amount := range payouts {
		if s := g.seatByID(id); s != nil {
			s.Stack += amount
		}
		paid += amount
	}
	if paid != total {
		return g.abortHand(fmt.Errorf("pot accounting mismatch: %d in pots, %d paid", total, paid))
	}

	events := []engine.Event{engine.Broadcast("hand_end", map[string]any{
		"room":     g.roomID,
		"hand":     g.handCount,
		"payouts":  payouts,
		"hands":    descriptions,
		"pots":     pots,
		"showdown": true,
	})}
	return append(events, g.finishHand()...), nil
}

// abortHand returns every contribution to its owner rather than leaving
// the money ambiguous, then surfaces the error to the room.
func (g *Game) abortHand(cause error) ([]engine.Event, error) {
	for _, s := range g.seats {
		if c := g.pm.Contribution(s.ID); c > 0 {
			s.Stack += c
			g.pm.contribs[s.ID] = 0
		}
	}
	events := []engine.Event{engine.Broadcast("hand_end", map[string]any{
		"room":    g.roomID,
		"hand":    g.handCount,
		"aborted": true,
		"reason":  cause.Error(),
	})}
	events = append(events, g.finishHand()...)
	return events, engine.Fatal(cause)
}

// ---------------------
//      HAND CYCLE
// ---------------------

// finishHand clears per-hand state, strips seats that left mid-hand and
// schedules the next deal.
func (g *Game) finishHand() []engine.Event {
	for i := len(g.seats) - 1; i >= 0; i-- {
		if g.seats[i].Left {
			g.removeSeat(i)
		}
	}
	for _, s := range g.seats {
		s.CurrentBet = 0
		s.HasActed = false
		s.Hole = nil
		s.Shown = false
		s.Mucked = false
		switch s.Status {
		case statusPlaying, statusAllIn, statusFolded:
			if s.Stack == 0 {
				s.Status = statusBusted
			} else {
				s.Status = statusWaiting
			}
		}
	}
	g.pm = nil
	g.community = nil
	g.phase = phaseInterHand
	return nil
}

// startHand deals the next hand: pending rebuys land, the button moves,
// blinds are posted, hole cards go out.
func (g *Game) startHand() ([]engine.Event, error) {
	for _, s := range g.seats {
		if s.PendingRebuy > 0 {
			s.Stack += s.PendingRebuy
			s.PendingRebuy = 0
			if s.Status == statusBusted {
				s.Status = statusWaiting
			}
		}
	}

	if g.playerCount() < 2 {
		g.status = engine.StatusFinished
		g.phase = phaseIdle
		return []engine.Event{engine.Broadcast("game_finished", map[string]any{
			"room":   g.roomID,
			"stacks": g.stacks(),
		})}, nil
	}
	if g.fundedCount() < g.cfg.MinPlayers {
		g.phase = phaseIdle
		return []engine.Event{engine.Broadcast("waiting_for_players", map[string]any{
			"room": g.roomID,
		})}, nil
	}

	g.handCount++
	g.deck.NewDeck()
	g.community = nil

	var order []string
	for _, s := range g.seats {
		if s.Status == statusWaiting && s.Stack > 0 {
			s.Status = statusPlaying
		}
		if s.Status == statusPlaying {
			order = append(order, s.ID)
		}
	}
	g.pm = NewPotManager(order)

	if g.flow == nil {
		g.flow = NewFlow(len(g.seats))
	}
	g.flow.NumSeats = len(g.seats)
	g.flow.StartHand()

	playing := func(i int) bool { return g.seats[i].Status == statusPlaying }
	n := g.countEligible(playing)
	g.flow.AdvanceDealer(playing)

	sbIdx, bbIdx := g.flow.Blinds(playing, n)
	g.bbSeat = bbIdx
	g.commit(g.seats[sbIdx], min64(g.cfg.SmallBlind, g.seats[sbIdx].Stack))
	g.commit(g.seats[bbIdx], min64(g.cfg.BigBlind, g.seats[bbIdx].Stack))
	g.flow.LastRaiseSize = g.cfg.BigBlind
	g.phase = phaseBetting

	events := []engine.Event{engine.Broadcast("hand_start", map[string]any{
		"room":       g.roomID,
		"hand":       g.handCount,
		"dealer":     g.seats[g.flow.Dealer].ID,
		"smallBlind": g.seats[sbIdx].ID,
		"bigBlind":   g.seats[bbIdx].ID,
		"players":    order,
	})}

	hole := g.deck.DealHoleCards(order)
	for _, s := range g.seats {
		if s.Status != statusPlaying && s.Status != statusAllIn {
			continue
		}
		s.Hole = hole[s.ID]
		events = append(events, engine.Direct(s.ID, "deal_hole", map[string]any{
			"cards": cardViews(s.Hole),
		}))
	}

	// a blind post can leave a seat all-in; open the action only when a
	// live seat still has a decision to make
	first := g.flow.FirstToAct(bbIdx, playing, g.countEligible(playing))
	if first >= 0 && !playing(first) {
		first = g.flow.nextFrom(first, playing)
	}
	if first < 0 || (g.livePlayers() < 2 && g.seats[first].CurrentBet == g.maxBet()) {
		evs, err := g.advanceStreet()
		return append(events, evs...), err
	}
	g.flow.Current = first
	return events, nil
}

// ---------------------
//       HELPERS
// ---------------------

func (g *Game) seatOf(id string) int {
	for i, s := range g.seats {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (g *Game) seatByID(id string) *seat {
	if i := g.seatOf(id); i >= 0 {
		return g.seats[i]
	}
	return nil
}

func (g *Game) maxBet() int64 {
	var m int64
	for _, s := range g.seats {
		if s.CurrentBet > m {
			m = s.CurrentBet
		}
	}
	return m
}

// contenders counts seats still able to win the hand.
func (g *Game) contenders() int {
	n := 0
	for _, s := range g.seats {
		if s.Status == statusPlaying || s.Status == statusAllIn {
			n++
		}
	}
	return n
}

// livePlayers counts seats that can still bet (not all-in).
func (g *Game) livePlayers() int {
	n := 0
	for _, s := range g.seats {
		if s.Status == statusPlaying {
			n++
		}
	}
	return n
}

func (g *Game) fundedCount() int {
	n := 0
	for _, s := range g.seats {
		if s.Stack > 0 && s.Status != statusObserver {
			n++
		}
	}
	return n
}

func (g *Game) playerCount() int {
	n := 0
	for _, s := range g.seats {
		if s.Status != statusObserver && !s.Left {
			n++
		}
	}
	return n
}

func (g *Game) countEligible(eligible func(int) bool) int {
	n := 0
	for i := range g.seats {
		if eligible(i) {
			n++
		}
	}
	return n
}

func (g *Game) handRunning() bool {
	return g.phase == phaseBetting || g.phase == phaseShowdown
}

func (g *Game) revealOrderIDs() []string {
	out := make([]string, len(g.revealQueue))
	for i, idx := range g.revealQueue {
		out[i] = g.seats[idx].ID
	}
	return out
}

func (g *Game) stacks() map[string]int64 {
	out := map[string]int64{}
	for _, s := range g.seats {
		out[s.ID] = s.Stack
	}
	return out
}

func (g *Game) communityView() []map[string]any {
	return cardViews(g.community)
}

func cardViews(cards []dealer.Card) []map[string]any {
	out := make([]map[string]any, len(cards))
	for i, c := range cards {
		out[i] = map[string]any{"suit": c.Suit, "rank": c.Rank, "label": c.String()}
	}
	return out
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// ---------------------
//      SNAPSHOTS
// ---------------------

func (g *Game) State() map[string]any {
	return g.snapshot("")
}

// StateFor hides everyone else's hole cards until they are tabled.
func (g *Game) StateFor(playerID string) map[string]any {
	return g.snapshot(playerID)
}

func (g *Game) snapshot(viewer string) map[string]any {
	seats := make([]map[string]any, len(g.seats))
	for i, s := range g.seats {
		view := map[string]any{
			"id":         s.ID,
			"seat":       i,
			"status":     s.Status,
			"stack":      s.Stack,
			"currentBet": s.CurrentBet,
			"hasActed":   s.HasActed,
		}
		if len(s.Hole) > 0 {
			if viewer == "" || s.ID == viewer || s.Shown {
				view["cards"] = cardViews(s.Hole)
			} else {
				view["cards"] = []map[string]any{{"hidden": true}, {"hidden": true}}
			}
		}
		seats[i] = view
	}

	var pot int64
	if g.pm != nil {
		pot = g.pm.Total()
	}
	st := map[string]any{
		"gameType":  GameType,
		"room":      g.roomID,
		"status":    g.status,
		"phase":     g.phase,
		"hand":      g.handCount,
		"seats":     seats,
		"community": g.communityView(),
		"pot":       pot,
	}
	if g.flow != nil {
		st["street"] = string(g.flow.Street)
		if g.flow.Dealer >= 0 && g.flow.Dealer < len(g.seats) {
			st["dealer"] = g.seats[g.flow.Dealer].ID
		}
		if g.phase == phaseBetting && g.flow.Current >= 0 && g.flow.Current < len(g.seats) {
			st["currentPlayer"] = g.seats[g.flow.Current].ID
			if viewer != "" && g.seats[g.flow.Current].ID == viewer {
				st["allowedActions"] = g.allowedActions(g.flow.Current)
			}
		}
	}
	if g.phase == phaseShowdown {
		if idx := g.currentRevealer(); idx >= 0 {
			st["currentPlayer"] = g.seats[idx].ID
		}
	}
	return st
}

// allowedActions mirrors the validation rules so clients can render exact
// choices.
func (g *Game) allowedActions(idx int) []map[string]any {
	st := g.seats[idx]
	maxBet := g.maxBet()
	toCall := maxBet - st.CurrentBet

	var out []map[string]any
	out = append(out, map[string]any{"action": kindFold})
	if toCall == 0 {
		out = append(out, map[string]any{"action": kindCheck})
	} else if toCall > 0 {
		out = append(out, map[string]any{"action": kindCall, "amount": min64(toCall, st.Stack)})
	}
	if maxBet == 0 {
		out = append(out, map[string]any{"action": kindBet, "min": min64(g.cfg.BigBlind, st.Stack), "max": st.Stack})
	} else if st.Stack > toCall {
		minRaise := maxBet + max64(g.cfg.BigBlind, g.flow.LastRaiseSize)
		maxTo := st.CurrentBet + st.Stack
		if minRaise > maxTo {
			minRaise = maxTo
		}
		out = append(out, map[string]any{"action": kindRaise, "min": minRaise, "max": maxTo})
	}
	out = append(out, map[string]any{"action": kindAllIn, "amount": st.Stack})
	return out
}

// Turn arms the phase-appropriate timer: the actor's decision clock during
// betting and showdown, the inter-hand delay between deals.
func (g *Game) Turn() (string, time.Duration, bool) {
	if g.status != engine.StatusInProgress {
		return "", 0, false
	}
	switch g.phase {
	case phaseBetting:
		if g.flow.Current >= 0 && g.flow.Current < len(g.seats) {
			return g.seats[g.flow.Current].ID, g.cfg.TurnTimeout, true
		}
	case phaseShowdown:
		if idx := g.currentRevealer(); idx >= 0 {
			return g.seats[idx].ID, g.cfg.ShowdownTimeout, true
		}
	case phaseInterHand:
		return "", g.cfg.InterHandDelay, true
	}
	return "", 0, false
}
