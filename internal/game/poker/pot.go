package poker

import "sort"

// Pot is one slice of the money in play: the main pot first, then one side
// pot per all-in level, each restricted to the players who contributed at
// least that level.
type Pot struct {
	Amount   int64    `json:"amount"`
	Eligible []string `json:"eligible"`
}

// PotManager accumulates per-hand contributions and computes pots and
// payouts. One instance lives for exactly one hand.
type PotManager struct {
	contribs map[string]int64
	order    []string // seat order, for deterministic eligibility and refunds
	folded   map[string]bool
}

func NewPotManager(seatOrder []string) *PotManager {
	return &PotManager{
		contribs: make(map[string]int64),
		order:    append([]string(nil), seatOrder...),
		folded:   make(map[string]bool),
	}
}

// Contribute moves chips from a player's stack into the hand.
func (pm *PotManager) Contribute(playerID string, amount int64) {
	if amount <= 0 {
		return
	}
	pm.contribs[playerID] += amount
}

func (pm *PotManager) Fold(playerID string) { pm.folded[playerID] = true }

func (pm *PotManager) Contribution(playerID string) int64 { return pm.contribs[playerID] }

// Total is the money currently in the hand (after any refunds).
func (pm *PotManager) Total() int64 {
	var sum int64
	for _, v := range pm.contribs {
		sum += v
	}
	return sum
}

// ReturnUncalled refunds the part of the highest contribution that no other
// player matched. Exactly one player can be over the call level; with two or
// more players at the top level nothing is refunded.
func (pm *PotManager) ReturnUncalled() map[string]int64 {
	var top, second int64
	topCount := 0
	var topPlayer string
	for _, id := range pm.order {
		v := pm.contribs[id]
		if v > top {
			second = top
			top, topPlayer, topCount = v, id, 1
		} else if v == top && v > 0 {
			topCount++
		} else if v > second {
			second = v
		}
	}
	if topCount != 1 || top == second {
		return nil
	}
	refund := top - second
	pm.contribs[topPlayer] -= refund
	return map[string]int64{topPlayer: refund}
}

// Pots slices the contributions by bet level. Levels are the distinct
// contribution totals in ascending order; each slice collects
// (level - previousLevel) from every player who reached that level. Folded
// players' chips stay in the pots but they are never eligible.
func (pm *PotManager) Pots() []Pot {
	levelSet := map[int64]struct{}{}
	for _, v := range pm.contribs {
		if v > 0 {
			levelSet[v] = struct{}{}
		}
	}
	levels := make([]int64, 0, len(levelSet))
	for l := range levelSet {
		levels = append(levels, l)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	var pots []Pot
	var prev int64
	for _, level := range levels {
		var amount int64
		var eligible []string
		for _, id := range pm.order {
			if pm.contribs[id] >= level {
				amount += level - prev
				if !pm.folded[id] {
					eligible = append(eligible, id)
				}
			}
		}
		if amount > 0 {
			pots = append(pots, Pot{Amount: amount, Eligible: eligible})
		}
		prev = level
	}
	return pots
}

// RankFn scores a contender. ok == false excludes the player (folded or
// mucked hands cannot win).
type RankFn func(playerID string) (HandRank, bool)

// Distribute pays each pot to its best eligible hand. Ties split evenly;
// remainder chips go one at a time starting from the first winner in seat
// order. A pot nobody can claim falls back to the eligible set, then to all
// contributors, so chips are never destroyed.
func Distribute(pots []Pot, rank RankFn) map[string]int64 {
	payouts := make(map[string]int64)
	for _, pot := range pots {
		var winners []string
		best := HandRank(-1)
		for _, id := range pot.Eligible {
			r, ok := rank(id)
			if !ok {
				continue
			}
			if r > best {
				best = r
				winners = []string{id}
			} else if r == best {
				winners = append(winners, id)
			}
		}
		if len(winners) == 0 {
			winners = pot.Eligible
		}
		if len(winners) == 0 {
			continue
		}
		share := pot.Amount / int64(len(winners))
		rem := pot.Amount % int64(len(winners))
		for i, id := range winners {
			payouts[id] += share
			if int64(i) < rem {
				payouts[id]++
			}
		}
	}
	return payouts
}
