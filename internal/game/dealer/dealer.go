package dealer

import (
	"fmt"
	"math/rand"
)

// Card uses suit 0-3 and rank 2-14 (ace high).
type Card struct {
	Suit int `json:"suit"`
	Rank int `json:"rank"`
}

func (c Card) String() string {
	suits := []string{"♣", "♦", "♥", "♠"}
	ranks := map[int]string{11: "J", 12: "Q", 13: "K", 14: "A"}
	rankStr, ok := ranks[c.Rank]
	if !ok {
		rankStr = fmt.Sprintf("%d", c.Rank)
	}
	suitStr := "?"
	if c.Suit >= 0 && c.Suit < len(suits) {
		suitStr = suits[c.Suit]
	}
	return rankStr + suitStr
}

// Dealer shuffles and deals; it holds no game rules.
type Dealer struct {
	deck []Card
	rnd  *rand.Rand
}

func NewDealer(seed int64) *Dealer {
	return &Dealer{
		deck: make([]Card, 0, 52),
		rnd:  rand.New(rand.NewSource(seed)),
	}
}

// NewDeck builds a fresh 52-card deck and shuffles it.
func (d *Dealer) NewDeck() {
	d.deck = makeDeck()
	d.shuffle()
}

func makeDeck() []Card {
	deck := make([]Card, 0, 52)
	for s := 0; s < 4; s++ {
		for r := 2; r <= 14; r++ {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	return deck
}

func (d *Dealer) shuffle() {
	d.rnd.Shuffle(len(d.deck), func(i, j int) {
		d.deck[i], d.deck[j] = d.deck[j], d.deck[i]
	})
}

func (d *Dealer) Remaining() int { return len(d.deck) }

// DealHoleCards deals 2 cards to each player, one at a time around the
// table, and returns playerID -> cards.
func (d *Dealer) DealHoleCards(players []string) map[string][]Card {
	out := make(map[string][]Card, len(players))
	for i := 0; i < 2; i++ {
		for _, id := range players {
			out[id] = append(out[id], d.Draw())
		}
	}
	return out
}

// Burn discards the top card before a street is dealt.
func (d *Dealer) Burn() {
	d.Draw()
}

// DealCommunity deals n board cards.
func (d *Dealer) DealCommunity(n int) []Card {
	out := make([]Card, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, d.Draw())
	}
	return out
}

func (d *Dealer) Draw() Card {
	if len(d.deck) == 0 {
		// should not happen if properly invoked
		d.NewDeck()
	}
	c := d.deck[0]
	d.deck = d.deck[1:]
	return c
}
