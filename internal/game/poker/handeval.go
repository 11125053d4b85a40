package poker

import (
	"fmt"

	ph "github.com/paulhankin/poker"

	"github.com/MmmDelicious/lovememory-sub002/internal/game/dealer"
)

// HandRank is an opaque comparable score; higher beats lower.
type HandRank int16

// EvaluateHand ranks the best 5-card hand from 2 hole cards plus 5 board
// cards, returning the score and a human description. Pure function; the
// pot logic consumes it without retaining results.
func EvaluateHand(hole, community []dealer.Card) (HandRank, string, error) {
	if len(hole) != 2 || len(community) != 5 {
		return 0, "", fmt.Errorf("hand evaluation needs 2 hole and 5 board cards, got %d and %d",
			len(hole), len(community))
	}
	var cards [7]ph.Card
	for i, c := range append(append([]dealer.Card{}, hole...), community...) {
		pc, err := convertCard(c)
		if err != nil {
			return 0, "", err
		}
		cards[i] = pc
	}
	score := ph.Eval7(&cards)
	desc, err := ph.Describe(cards[:])
	if err != nil {
		desc = ""
	}
	return HandRank(score), desc, nil
}

// convertCard maps the table encoding (rank 2-14, ace high) onto the
// evaluator's ace-low encoding.
func convertCard(c dealer.Card) (ph.Card, error) {
	rank := c.Rank
	if rank == 14 {
		rank = 1
	}
	pc, err := ph.MakeCard(ph.Suit(c.Suit), ph.Rank(rank))
	if err != nil {
		return 0, fmt.Errorf("invalid card %v: %w", c, err)
	}
	return pc, nil
}
