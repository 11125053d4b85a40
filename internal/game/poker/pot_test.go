package poker

import (
	"reflect"
	"testing"
)

func TestPotsSidePotLevels(t *testing.T) {
	pm := NewPotManager([]string{"a", "b", "c", "d"})
	pm.Contribute("a", 10) // short all-in
	pm.Contribute("b", 30)
	pm.Contribute("c", 50)
	pm.Contribute("d", 50)

	pots := pm.Pots()
	if len(pots) != 3 {
		t.Fatalf("expected 3 pots, got %d: %+v", len(pots), pots)
	}
	// main pot: 10 from each of the four players
	if pots[0].Amount != 40 || !reflect.DeepEqual(pots[0].Eligible, []string{"a", "b", "c", "d"}) {
		t.Fatalf("main pot wrong: %+v", pots[0])
	}
	// first side pot: 20 from b, c, d
	if pots[1].Amount != 60 || !reflect.DeepEqual(pots[1].Eligible, []string{"b", "c", "d"}) {
		t.Fatalf("side pot 1 wrong: %+v", pots[1])
	}
	// second side pot: 20 from c, d
	if pots[2].Amount != 40 || !reflect.DeepEqual(pots[2].Eligible, []string{"c", "d"}) {
		t.Fatalf("side pot 2 wrong: %+v", pots[2])
	}
}

func TestPotsFoldedChipsStayButIneligible(t *testing.T) {
	pm := NewPotManager([]string{"a", "b", "c"})
	pm.Contribute("a", 50)
	pm.Contribute("b", 50)
	pm.Contribute("c", 20)
	pm.Fold("c")

	pots := pm.Pots()
	var total int64
	for _, p := range pots {
		total += p.Amount
		for _, id := range p.Eligible {
			if id == "c" {
				t.Fatalf("folded player eligible in pot %+v", p)
			}
		}
	}
	if total != 120 {
		t.Fatalf("folded chips must stay in play, total = %d", total)
	}
}

func TestReturnUncalledRefundsSingleTop(t *testing.T) {
	pm := NewPotManager([]string{"a", "b"})
	pm.Contribute("a", 50)
	pm.Contribute("b", 30)
	pm.Fold("b")

	refunds := pm.ReturnUncalled()
	if refunds["a"] != 20 {
		t.Fatalf("expected refund of 20 to a, got %v", refunds)
	}
	if pm.Total() != 60 {
		t.Fatalf("total after refund = %d, want 60", pm.Total())
	}
}

func TestReturnUncalledNothingWhenMatched(t *testing.T) {
	pm := NewPotManager([]string{"a", "b", "c"})
	pm.Contribute("a", 50)
	pm.Contribute("b", 50)
	pm.Contribute("c", 30)

	if refunds := pm.ReturnUncalled(); refunds != nil {
		t.Fatalf("two players at the top level, expected no refund, got %v", refunds)
	}
	if pm.Total() != 130 {
		t.Fatalf("total changed: %d", pm.Total())
	}
}

func TestDistributeSplitWithRemainder(t *testing.T) {
	pots := []Pot{{Amount: 101, Eligible: []string{"a", "b"}}}
	payouts := Distribute(pots, func(id string) (HandRank, bool) { return 500, true })

	// odd chip goes to the first winner in seat order
	if payouts["a"] != 51 || payouts["b"] != 50 {
		t.Fatalf("split wrong: %v", payouts)
	}
}

func TestDistributeMuckedCannotWin(t *testing.T) {
	pots := []Pot{{Amount: 100, Eligible: []string{"a", "b"}}}
	payouts := Distribute(pots, func(id string) (HandRank, bool) {
		if id == "a" {
			return 900, true // best hand but mucked players report ok=false
		}
		return 0, false
	})
	if payouts["a"] != 100 || payouts["b"] != 0 {
		t.Fatalf("payouts = %v", payouts)
	}

	// everyone mucked: the pot falls back to the eligible set
	payouts = Distribute(pots, func(id string) (HandRank, bool) { return 0, false })
	if payouts["a"]+payouts["b"] != 100 {
		t.Fatalf("unclaimed pot destroyed chips: %v", payouts)
	}
}

func TestDistributeSidePotsSeparateWinners(t *testing.T) {
	pots := []Pot{
		{Amount: 90, Eligible: []string{"a", "b", "c"}},
		{Amount: 40, Eligible: []string{"b", "c"}},
	}
	ranks := map[string]HandRank{"a": 800, "b": 300, "c": 500}
	payouts := Distribute(pots, func(id string) (HandRank, bool) {
		r, ok := ranks[id]
		return r, ok
	})
	if payouts["a"] != 90 {
		t.Fatalf("short stack should win only the main pot: %v", payouts)
	}
	if payouts["c"] != 40 {
		t.Fatalf("side pot should go to the best remaining hand: %v", payouts)
	}
}
