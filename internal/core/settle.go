package core

// MarkFullyPaid settles a player in one step: every current payment is paid
// in full and the base balance is cleared.
func MarkFullyPaid(data AppData, playerID string) (AppData, error) {
	return settle(data, playerID, true)
}

// MarkUnpaid reverses every current payment of the player to zero. The
// player's history stays owed through the folded base balance.
func MarkUnpaid(data AppData, playerID string) (AppData, error) {
	return settle(data, playerID, false)
}

// settle first folds every weekend before the current one into the player's
// base balance and records the cut-off, so the per-weekend breakdown of that
// history is replaced by a single number and is not replayed again.
func settle(data AppData, playerID string, paid bool) (AppData, error) {
	out := data.Clone()
	wi := out.weekendIndex(out.CurrentWeekendID)
	if wi < 0 {
		return data, ErrNoCurrentWeekend
	}
	pi := out.playerIndex(playerID)
	if pi < 0 {
		return data, ErrPlayerNotFound
	}
	cur := &out.Weekends[wi]
	p := &out.Players[pi]

	p.Balance = foldedBalance(out, *p, *cur)
	p.FoldedBefore = cur.AnchorDate

	cur.eachMatch(func(m *Match) {
		for i := range m.Payments {
			if m.Payments[i].PlayerID != playerID {
				continue
			}
			if paid {
				m.Payments[i].AmountPaid = m.Payments[i].AmountDue
			} else {
				m.Payments[i].AmountPaid = 0
			}
			m.Payments[i] = m.Payments[i].Derive()
		}
	})
	if paid {
		p.Balance = 0
	}
	return out, nil
}

// foldedBalance is the base balance after absorbing the weekends that
// precede cur and are not yet folded.
func foldedBalance(data AppData, p Player, cur Weekend) float64 {
	bal := p.Balance
	for _, w := range data.Weekends {
		if w.ID == cur.ID || folded(p, w) || !w.AnchorDate.Before(cur.AnchorDate.Time) {
			continue
		}
		bal += weekendDelta(w, p.ID)
	}
	return bal
}
