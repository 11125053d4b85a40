package poker

import "testing"

func all(int) bool { return true }

func TestBlindsHeadsUpDealerPostsSmall(t *testing.T) {
	f := NewFlow(2)
	f.StartHand()
	f.AdvanceDealer(all)

	sb, bb := f.Blinds(all, 2)
	if sb != f.Dealer {
		t.Fatalf("heads-up small blind must be the dealer, got sb=%d dealer=%d", sb, f.Dealer)
	}
	if bb == sb {
		t.Fatalf("blinds on the same seat")
	}
	if first := f.FirstToAct(bb, all, 2); first != f.Dealer {
		t.Fatalf("heads-up preflop the dealer acts first, got %d", first)
	}
}

func TestBlindsThreeHanded(t *testing.T) {
	f := NewFlow(3)
	f.StartHand()
	f.AdvanceDealer(all) // button on 0

	sb, bb := f.Blinds(all, 3)
	if sb != 1 || bb != 2 {
		t.Fatalf("blinds = %d,%d want 1,2", sb, bb)
	}
	if first := f.FirstToAct(bb, all, 3); first != 0 {
		t.Fatalf("preflop first to act should be after the big blind, got %d", first)
	}

	f.NextStreet()
	if first := f.FirstToAct(bb, all, 3); first != 1 {
		t.Fatalf("postflop first to act should be after the button, got %d", first)
	}
}

func TestNextStreetResetsRaiseBookkeeping(t *testing.T) {
	f := NewFlow(4)
	f.StartHand()
	f.LastAggressor = 2
	f.LastRaiseSize = 40

	f.NextStreet()
	if f.Street != StreetFlop {
		t.Fatalf("street = %s", f.Street)
	}
	if f.LastAggressor != -1 || f.LastRaiseSize != 0 {
		t.Fatalf("raise bookkeeping not reset: %d %d", f.LastAggressor, f.LastRaiseSize)
	}
}

func TestAdvanceTurnSkipsIneligible(t *testing.T) {
	f := NewFlow(4)
	f.Current = 0
	folded := map[int]bool{1: true, 2: true}
	f.AdvanceTurn(func(i int) bool { return !folded[i] })
	if f.Current != 3 {
		t.Fatalf("turn should skip folded seats, got %d", f.Current)
	}
}
