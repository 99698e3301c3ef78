package core

import (
	"errors"
	"math"
	"testing"
)

// owingTwoWeekends leaves player a owing 50 from last weekend and 30 from the
// current one; b paid everything.
func owingTwoWeekends(t *testing.T) AppData {
	t.Helper()
	data := threePlayers(t)
	data, m1 := mustSave(t, data, Match{Kind: Saturday, Participants: []string{"a", "b"}, GroundCost: 100})
	data = mustPay(t, data, m1.ID, "b", 50)
	data, err := Advance(data)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	data, m2 := mustSave(t, data, Match{Kind: Saturday, Participants: []string{"a", "b"}, GroundCost: 60})
	return mustPay(t, data, m2.ID, "b", 30)
}

func TestMarkFullyPaid(t *testing.T) {
	stableIDs(t)
	data := owingTwoWeekends(t)

	before := Summarize(data, "a")
	if before.PreviousBalance != 50 || before.CurrentBalance != 80 || before.Status != StatusPending {
		t.Fatalf("before settle: %+v", before)
	}

	out, err := MarkFullyPaid(data, "a")
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	s := Summarize(out, "a")
	if s.Status != StatusPaid || s.TotalPaid != s.TotalDue || math.Abs(s.CurrentBalance) > eps {
		t.Fatalf("after settle: %+v", s)
	}
	if p, _ := out.Player("a"); p.Balance != 0 {
		t.Fatalf("base balance = %v, want 0", p.Balance)
	}
	// Other players are left alone.
	if got := Summarize(out, "b"); got.CurrentBalance != 0 || got.Status != StatusPaid {
		t.Fatalf("b changed: %+v", got)
	}
}

func TestPaidThenUnpaidRestoresDues(t *testing.T) {
	stableIDs(t)
	data := owingTwoWeekends(t)
	due := Summarize(data, "a").TotalDue

	paid, err := MarkFullyPaid(data, "a")
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	unpaid, err := MarkUnpaid(paid, "a")
	if err != nil {
		t.Fatalf("mark unpaid: %v", err)
	}

	s := Summarize(unpaid, "a")
	if s.TotalDue != due || s.TotalPaid != 0 || s.Status != StatusPending {
		t.Fatalf("after unpaid: %+v, want due %v", s, due)
	}
	for _, p := range s.Payments {
		if p.Status != StatusPending {
			t.Fatalf("payment not reset: %+v", p)
		}
	}
}

func TestMarkUnpaidFoldsWithoutDoubleCounting(t *testing.T) {
	stableIDs(t)
	data := owingTwoWeekends(t)
	before := Summarize(data, "a")

	out, err := MarkUnpaid(data, "a")
	if err != nil {
		t.Fatalf("mark unpaid: %v", err)
	}
	p, _ := out.Player("a")
	if p.Balance != 50 || p.FoldedBefore.String() != "2025-09-06" {
		t.Fatalf("fold: balance=%v foldedBefore=%s", p.Balance, p.FoldedBefore)
	}
	after := Summarize(out, "a")
	if after.PreviousBalance != before.PreviousBalance || after.CurrentBalance != before.CurrentBalance {
		t.Fatalf("fold changed balances: before %+v after %+v", before, after)
	}

	// Folding twice is a no-op on the balance.
	again, _ := MarkUnpaid(out, "a")
	if got := Summarize(again, "a").PreviousBalance; got != before.PreviousBalance {
		t.Fatalf("second fold previous = %v, want %v", got, before.PreviousBalance)
	}

	// The folded weekend's successor still replays on the next advance.
	next, _ := Advance(out)
	cur, _ := next.CurrentWeekend()
	if got := PreviousBalance(next, "a", cur.ID); got != 80 {
		t.Fatalf("previous after advance = %v, want 80", got)
	}
}

func TestSettleErrors(t *testing.T) {
	data := threePlayers(t)
	if _, err := MarkFullyPaid(data, "zz"); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("unknown player err = %v", err)
	}
	if _, err := MarkUnpaid(AppData{}, "a"); !errors.Is(err, ErrNoCurrentWeekend) {
		t.Fatalf("empty ledger err = %v", err)
	}
}

func TestFoldedWeekendRejectsChanges(t *testing.T) {
	stableIDs(t)
	data := owingTwoWeekends(t)
	past := data.Weekends[0]
	old := past.Saturday.ID
	cur, _ := data.CurrentWeekend()

	data, err := MarkUnpaid(data, "a")
	if err != nil {
		t.Fatalf("mark unpaid: %v", err)
	}
	cost := 200.0

	if _, _, err := RecordPayment(data, old, "a", 50); !errors.Is(err, ErrWeekendFolded) {
		t.Errorf("pay folded weekend err = %v", err)
	}
	if _, _, err := EditMatch(data, old, MatchEdit{GroundCost: &cost}); !errors.Is(err, ErrWeekendFolded) {
		t.Errorf("edit folded weekend err = %v", err)
	}
	// Dropping a from the match would still rewrite history a already owes.
	if _, _, err := EditMatch(data, old, MatchEdit{Participants: []string{"b"}}); !errors.Is(err, ErrWeekendFolded) {
		t.Errorf("edit out folded player err = %v", err)
	}
	if _, err := DeleteMatch(data, old); !errors.Is(err, ErrWeekendFolded) {
		t.Errorf("delete folded match err = %v", err)
	}
	if _, _, err := SaveMatch(data, past.ID, Match{Kind: Sunday, Participants: []string{"a", "c"}}); !errors.Is(err, ErrWeekendFolded) {
		t.Errorf("add match to folded weekend err = %v", err)
	}

	// Players who never settled can still correct that weekend.
	if _, _, err := RecordPayment(data, old, "b", 50); err != nil {
		t.Errorf("pay by unfolded player: %v", err)
	}
	if _, _, err := SaveMatch(data, past.ID, Match{Kind: Sunday, Participants: []string{"b", "c"}}); err != nil {
		t.Errorf("add match without folded players: %v", err)
	}
	// The current weekend stays open to a.
	if _, _, err := RecordPayment(data, cur.Saturday.ID, "a", 30); err != nil {
		t.Errorf("pay current weekend: %v", err)
	}
}
