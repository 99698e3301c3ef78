// Package core holds the cricket ledger domain: players, weekends, matches and
// payments, and the arithmetic that turns them into balances.
//
// Every function in this file is total and pure. Amounts are rupees as float64;
// no rounding is applied, so fractional shares are carried as computed.
package core

// PerHeadCost splits the combined ground and cafeteria cost evenly across the
// match participants. A match with no participants costs nobody anything.
func PerHeadCost(m Match) float64 {
	n := len(m.Participants)
	if n == 0 {
		return 0
	}
	return m.TotalCost() / float64(n)
}

// DeriveStatus classifies a payment from what was paid against what is due.
func DeriveStatus(amountPaid, amountDue float64) PaymentStatus {
	switch {
	case amountPaid == 0:
		return StatusPending
	case amountPaid >= amountDue:
		return StatusPaid
	default:
		return StatusPartial
	}
}

// Derive returns the payment with its status recomputed from its amounts.
func (p Payment) Derive() Payment {
	p.Status = DeriveStatus(p.AmountPaid, p.AmountDue)
	return p
}

// Outstanding is what the player still owes on this payment; negative when
// the player overpaid.
func (p Payment) Outstanding() float64 {
	return p.AmountDue - p.AmountPaid
}

// matchDelta is what a single match adds to a player's running balance.
// Matches recorded before payments existed fall back to the per-head cost.
func matchDelta(m Match, playerID string) float64 {
	if p, ok := m.Payment(playerID); ok {
		return p.Outstanding()
	}
	if m.HasParticipant(playerID) {
		return PerHeadCost(m)
	}
	return 0
}

func weekendDelta(w Weekend, playerID string) float64 {
	var sum float64
	for _, m := range w.Matches() {
		sum += matchDelta(m, playerID)
	}
	return sum
}

// PreviousBalance replays every weekend other than weekendID on top of the
// player's base balance. Weekends folded into the base by a bulk settle are
// skipped.
func PreviousBalance(data AppData, playerID, weekendID string) float64 {
	p, ok := data.Player(playerID)
	if !ok {
		return 0
	}
	bal := p.Balance
	for _, w := range data.Weekends {
		if w.ID == weekendID || folded(p, w) {
			continue
		}
		bal += weekendDelta(w, playerID)
	}
	return bal
}

func folded(p Player, w Weekend) bool {
	return !p.FoldedBefore.IsZero() && w.AnchorDate.Before(p.FoldedBefore.Time)
}

// CurrentPayments returns the player's payments in the given weekend.
func CurrentPayments(w Weekend, playerID string) []Payment {
	var out []Payment
	for _, m := range w.Matches() {
		if p, ok := m.Payment(playerID); ok {
			out = append(out, p)
		}
	}
	return out
}

// AggregateStatus folds a player's current payments into one status. A player
// with no current payments is paid when nothing is owed overall.
func AggregateStatus(payments []Payment, currentBalance float64) PaymentStatus {
	if len(payments) == 0 {
		if currentBalance <= 0 {
			return StatusPaid
		}
		return StatusPending
	}
	allPaid, anyMoney := true, false
	for _, p := range payments {
		switch p.Derive().Status {
		case StatusPaid:
			anyMoney = true
		case StatusPartial:
			anyMoney = true
			allPaid = false
		default:
			allPaid = false
		}
	}
	switch {
	case allPaid:
		return StatusPaid
	case anyMoney:
		return StatusPartial
	default:
		return StatusPending
	}
}

// Summarize computes a player's position in the current weekend.
func Summarize(data AppData, playerID string) PlayerSummary {
	p, _ := data.Player(playerID)
	cur, _ := data.CurrentWeekend()

	s := PlayerSummary{
		Player:          p,
		PreviousBalance: PreviousBalance(data, playerID, cur.ID),
		Payments:        CurrentPayments(cur, playerID),
	}
	for _, pay := range s.Payments {
		s.TotalDue += pay.AmountDue
		s.TotalPaid += pay.AmountPaid
	}
	s.CurrentBalance = s.PreviousBalance + (s.TotalDue - s.TotalPaid)
	s.Status = AggregateStatus(s.Payments, s.CurrentBalance)
	return s
}

// Summaries returns one summary per player, in roster order.
func Summaries(data AppData) []PlayerSummary {
	out := make([]PlayerSummary, 0, len(data.Players))
	for _, p := range data.Players {
		out = append(out, Summarize(data, p.ID))
	}
	return out
}

// Totals aggregates the current weekend across every match.
func Totals(data AppData) WeekendTotals {
	cur, _ := data.CurrentWeekend()
	t := WeekendTotals{WeekendID: cur.ID, AnchorDate: cur.AnchorDate}
	for _, m := range cur.Matches() {
		t.Matches++
		t.TotalCost += m.TotalCost()
		for _, p := range m.Payments {
			t.TotalDue += p.AmountDue
			t.TotalPaid += p.AmountPaid
		}
	}
	t.Outstanding = t.TotalDue - t.TotalPaid
	return t
}
