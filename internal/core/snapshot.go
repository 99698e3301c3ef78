package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// newID is swapped in tests that need stable identifiers.
var newID = uuid.NewString

// PlayerUpdate carries the fields to change on a player; nil means keep.
type PlayerUpdate struct {
	FirstName *string  `json:"firstName,omitempty"`
	LastName  *string  `json:"lastName,omitempty"`
	Nickname  *string  `json:"nickname,omitempty"`
	Balance   *float64 `json:"balance,omitempty"`
	Regular   *bool    `json:"isRegular,omitempty"`
	Arrears   *bool    `json:"hasArrears,omitempty"`
	Advance   *bool    `json:"hasAdvance,omitempty"`
}

// MatchEdit carries the fields to change on a saved match; nil means keep.
// The kind is fixed once a match occupies a slot.
type MatchEdit struct {
	Participants  []string `json:"participants,omitempty"`
	GroundCost    *float64 `json:"groundCost,omitempty"`
	CafeteriaCost *float64 `json:"cafeteriaCost,omitempty"`
	Opponent      *string  `json:"opponent,omitempty"`
	Venue         *string  `json:"venue,omitempty"`
	Date          *Date    `json:"date,omitempty"`
}

// NewAppData starts a ledger with a single empty weekend anchored at anchor.
func NewAppData(anchor Date) (AppData, error) {
	if err := anchor.Validate(); err != nil {
		return AppData{}, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	w := Weekend{ID: newID(), AnchorDate: anchor}
	return AppData{
		Players:          []Player{},
		Weekends:         []Weekend{w},
		CurrentWeekendID: w.ID,
	}, nil
}

// Clone deep-copies the snapshot so edits never leak into the caller's copy.
func (d AppData) Clone() AppData {
	out := AppData{
		Players:          append([]Player(nil), d.Players...),
		Weekends:         make([]Weekend, len(d.Weekends)),
		CurrentWeekendID: d.CurrentWeekendID,
	}
	for i, w := range d.Weekends {
		out.Weekends[i] = w.clone()
	}
	return out
}

func (w Weekend) clone() Weekend {
	out := w
	if w.Saturday != nil {
		m := w.Saturday.clone()
		out.Saturday = &m
	}
	if w.Sunday != nil {
		m := w.Sunday.clone()
		out.Sunday = &m
	}
	if w.Weekday != nil {
		out.Weekday = make([]Match, len(w.Weekday))
		for i, m := range w.Weekday {
			out.Weekday[i] = m.clone()
		}
	}
	return out
}

func (m Match) clone() Match {
	out := m
	out.Participants = append([]string(nil), m.Participants...)
	out.Payments = append([]Payment(nil), m.Payments...)
	return out
}

// AddPlayer appends p to the roster, assigning an ID when p has none.
func AddPlayer(data AppData, p Player) (AppData, Player, error) {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Nickname = strings.TrimSpace(p.Nickname)
	if err := p.Validate(); err != nil {
		return data, Player{}, err
	}
	if p.ID == "" {
		p.ID = newID()
	} else if data.playerIndex(p.ID) >= 0 {
		return data, Player{}, fmt.Errorf("%w: %s", ErrDuplicatePlayer, p.ID)
	}
	out := data.Clone()
	out.Players = append(out.Players, p)
	return out, p, nil
}

// UpdatePlayer applies a partial update. Setting Balance is a manual
// adjustment of the base balance.
func UpdatePlayer(data AppData, id string, u PlayerUpdate) (AppData, Player, error) {
	out := data.Clone()
	i := out.playerIndex(id)
	if i < 0 {
		return data, Player{}, ErrPlayerNotFound
	}
	p := out.Players[i]
	if u.FirstName != nil {
		p.FirstName = strings.TrimSpace(*u.FirstName)
	}
	if u.LastName != nil {
		p.LastName = strings.TrimSpace(*u.LastName)
	}
	if u.Nickname != nil {
		p.Nickname = strings.TrimSpace(*u.Nickname)
	}
	if u.Balance != nil {
		p.Balance = *u.Balance
	}
	if u.Regular != nil {
		p.Regular = *u.Regular
	}
	if u.Arrears != nil {
		p.Arrears = *u.Arrears
	}
	if u.Advance != nil {
		p.Advance = *u.Advance
	}
	if err := p.Validate(); err != nil {
		return data, Player{}, err
	}
	out.Players[i] = p
	return out, p, nil
}

// RemovePlayer drops a player who never took part in a match. Players with
// history stay so that past weekends keep replaying correctly.
func RemovePlayer(data AppData, id string) (AppData, error) {
	i := data.playerIndex(id)
	if i < 0 {
		return data, ErrPlayerNotFound
	}
	for _, w := range data.Weekends {
		for _, m := range w.Matches() {
			if _, ok := m.Payment(id); ok || m.HasParticipant(id) {
				return data, ErrPlayerInUse
			}
		}
	}
	out := data.Clone()
	out.Players = append(out.Players[:i], out.Players[i+1:]...)
	return out, nil
}

// SaveMatch records a new match in the weekend (the current one when
// weekendID is empty) and opens one pending payment per participant.
func SaveMatch(data AppData, weekendID string, m Match) (AppData, Match, error) {
	if weekendID == "" {
		weekendID = data.CurrentWeekendID
	}
	out := data.Clone()
	wi := out.weekendIndex(weekendID)
	if wi < 0 {
		return data, Match{}, ErrWeekendNotFound
	}
	w := &out.Weekends[wi]

	if !m.Kind.Valid() {
		return data, Match{}, fmt.Errorf("%w: %q", ErrInvalidKind, m.Kind)
	}
	if err := validateMatch(out, m); err != nil {
		return data, Match{}, err
	}
	if err := checkUnfolded(out, *w, m.Participants); err != nil {
		return data, Match{}, err
	}
	if m.ID == "" {
		m.ID = newID()
	}
	if m.Date.IsZero() {
		switch m.Kind {
		case Saturday:
			m.Date = w.AnchorDate
		case Sunday:
			m.Date = w.AnchorDate.AddDays(1)
		}
	}
	m.Participants = append([]string(nil), m.Participants...)
	m.Payments = openPayments(m, nil)

	switch m.Kind {
	case Saturday:
		if w.Saturday != nil {
			return data, Match{}, fmt.Errorf("%w: saturday", ErrSlotTaken)
		}
		w.Saturday = &m
	case Sunday:
		if w.Sunday != nil {
			return data, Match{}, fmt.Errorf("%w: sunday", ErrSlotTaken)
		}
		w.Sunday = &m
	default:
		w.Weekday = append(w.Weekday, m)
	}
	return out, m.clone(), nil
}

// EditMatch rewrites a saved match. Every amount due is recomputed from the
// new per-head cost; amounts already paid survive for players who still take
// part, and statuses are re-derived.
func EditMatch(data AppData, matchID string, e MatchEdit) (AppData, Match, error) {
	out := data.Clone()
	w, ref := out.matchRef(matchID)
	if ref == nil {
		return data, Match{}, ErrMatchNotFound
	}
	if err := checkUnfolded(out, *w, ref.Participants); err != nil {
		return data, Match{}, err
	}
	m := ref.clone()
	if e.Participants != nil {
		m.Participants = append([]string(nil), e.Participants...)
	}
	if e.GroundCost != nil {
		m.GroundCost = *e.GroundCost
	}
	if e.CafeteriaCost != nil {
		m.CafeteriaCost = *e.CafeteriaCost
	}
	if e.Opponent != nil {
		m.Opponent = strings.TrimSpace(*e.Opponent)
	}
	if e.Venue != nil {
		m.Venue = strings.TrimSpace(*e.Venue)
	}
	if e.Date != nil {
		m.Date = *e.Date
	}
	if err := validateMatch(out, m); err != nil {
		return data, Match{}, err
	}
	if err := checkUnfolded(out, *w, m.Participants); err != nil {
		return data, Match{}, err
	}
	m.Payments = openPayments(m, ref.Payments)
	*ref = m
	return out, m.clone(), nil
}

// DeleteMatch removes a match and its payments.
func DeleteMatch(data AppData, matchID string) (AppData, error) {
	out := data.Clone()
	w, ref := out.matchRef(matchID)
	if ref == nil {
		return data, ErrMatchNotFound
	}
	if err := checkUnfolded(out, *w, ref.Participants); err != nil {
		return data, err
	}
	for i := range out.Weekends {
		w := &out.Weekends[i]
		switch {
		case w.Saturday != nil && w.Saturday.ID == matchID:
			w.Saturday = nil
			return out, nil
		case w.Sunday != nil && w.Sunday.ID == matchID:
			w.Sunday = nil
			return out, nil
		}
		for j := range w.Weekday {
			if w.Weekday[j].ID == matchID {
				w.Weekday = append(w.Weekday[:j], w.Weekday[j+1:]...)
				return out, nil
			}
		}
	}
	return data, ErrMatchNotFound
}

// RecordPayment sets what a player has paid towards a match. A participant
// without a payment record (data entered before payments existed) gets one.
func RecordPayment(data AppData, matchID, playerID string, amountPaid float64) (AppData, Payment, error) {
	if !validCost(amountPaid) {
		return data, Payment{}, ErrInvalidAmount
	}
	out := data.Clone()
	w, m := out.matchRef(matchID)
	if m == nil {
		return data, Payment{}, ErrMatchNotFound
	}
	if err := checkUnfolded(out, *w, []string{playerID}); err != nil {
		return data, Payment{}, err
	}
	for i := range m.Payments {
		if m.Payments[i].PlayerID == playerID {
			m.Payments[i].AmountPaid = amountPaid
			m.Payments[i] = m.Payments[i].Derive()
			return out, m.Payments[i], nil
		}
	}
	if !m.HasParticipant(playerID) {
		return data, Payment{}, ErrPaymentNotFound
	}
	p := Payment{
		PlayerID:   playerID,
		MatchID:    m.ID,
		AmountDue:  PerHeadCost(*m),
		AmountPaid: amountPaid,
	}.Derive()
	m.Payments = append(m.Payments, p)
	return out, p, nil
}

// checkUnfolded rejects a change to w on behalf of a player whose base
// balance has already absorbed w.
func checkUnfolded(data AppData, w Weekend, playerIDs []string) error {
	for _, id := range playerIDs {
		if p, ok := data.Player(id); ok && folded(p, w) {
			return fmt.Errorf("%w: %s on %s", ErrWeekendFolded, id, w.AnchorDate)
		}
	}
	return nil
}

func validateMatch(data AppData, m Match) error {
	if !validCost(m.GroundCost) || !validCost(m.CafeteriaCost) {
		return fmt.Errorf("%w: costs must be non-negative", ErrInvalidAmount)
	}
	if len(m.Participants) == 0 {
		return ErrNoParticipants
	}
	seen := make(map[string]struct{}, len(m.Participants))
	for _, id := range m.Participants {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateParticipant, id)
		}
		seen[id] = struct{}{}
		if data.playerIndex(id) < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownParticipant, id)
		}
	}
	return nil
}

// openPayments builds one payment per participant at the current per-head
// cost, carrying over amounts paid from prev.
func openPayments(m Match, prev []Payment) []Payment {
	due := PerHeadCost(m)
	paid := make(map[string]float64, len(prev))
	for _, p := range prev {
		paid[p.PlayerID] = p.AmountPaid
	}
	out := make([]Payment, 0, len(m.Participants))
	for _, id := range m.Participants {
		out = append(out, Payment{
			PlayerID:   id,
			MatchID:    m.ID,
			AmountDue:  due,
			AmountPaid: paid[id],
		}.Derive())
	}
	return out
}
