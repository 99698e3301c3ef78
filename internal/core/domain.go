package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	StatusPending PaymentStatus = "pending"
	StatusPartial PaymentStatus = "partial"
	StatusPaid    PaymentStatus = "paid"
)

const (
	Saturday MatchKind = "saturday"
	Sunday   MatchKind = "sunday"
	Weekday  MatchKind = "weekday"
)

// DateLayout is the wire format for every calendar date in a snapshot.
const DateLayout = "2006-01-02"

type (
	PaymentStatus string

	MatchKind string

	Date struct {
		time.Time
	}

	Player struct {
		ID        string  `json:"id"`
		FirstName string  `json:"firstName"`
		LastName  string  `json:"lastName,omitempty"`
		Nickname  string  `json:"nickname,omitempty"`
		Balance   float64 `json:"balance"` // Base balance, positive = owes
		Regular   bool    `json:"isRegular,omitempty"`
		Arrears   bool    `json:"hasArrears,omitempty"`
		Advance   bool    `json:"hasAdvance,omitempty"`
		// FoldedBefore marks weekends already collapsed into Balance.
		FoldedBefore Date `json:"foldedBefore,omitzero"`
	}

	Payment struct {
		PlayerID   string        `json:"playerId"`
		MatchID    string        `json:"matchId"`
		AmountDue  float64       `json:"amountDue"`
		AmountPaid float64       `json:"amountPaid"`
		Status     PaymentStatus `json:"status"`
	}

	Match struct {
		ID            string    `json:"id"`
		Kind          MatchKind `json:"kind"`
		Date          Date      `json:"date,omitzero"`
		Opponent      string    `json:"opponent,omitempty"`
		Venue         string    `json:"venue,omitempty"`
		Participants  []string  `json:"participants"`
		GroundCost    float64   `json:"groundCost"`
		CafeteriaCost float64   `json:"cafeteriaCost"`
		Payments      []Payment `json:"payments"`
	}

	Weekend struct {
		ID         string  `json:"id"`
		AnchorDate Date    `json:"anchorDate"`
		Saturday   *Match  `json:"saturday,omitempty"`
		Sunday     *Match  `json:"sunday,omitempty"`
		Weekday    []Match `json:"weekday,omitempty"`
	}

	AppData struct {
		Players          []Player  `json:"players"`
		Weekends         []Weekend `json:"weekends"`
		CurrentWeekendID string    `json:"currentWeekendId"`
	}
)

var (
	ErrPlayerNotFound       = errors.New("player not found")
	ErrMatchNotFound        = errors.New("match not found")
	ErrWeekendNotFound      = errors.New("weekend not found")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrNoCurrentWeekend     = errors.New("no current weekend")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrNoParticipants       = errors.New("match needs at least one participant")
	ErrUnknownParticipant   = errors.New("unknown participant")
	ErrDuplicateParticipant = errors.New("duplicate participant")
	ErrDuplicatePlayer      = errors.New("duplicate player id")
	ErrSlotTaken            = errors.New("weekend slot already has a match")
	ErrInvalidKind          = errors.New("invalid match kind")
	ErrEmptyName            = errors.New("empty player name")
	ErrPlayerInUse          = errors.New("player has match history")
	ErrInvalidDate          = errors.New("invalid date")
	ErrWeekendFolded        = errors.New("weekend already folded into player balance")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	// Older snapshots stored full timestamps.
	if len(s) > len(DateLayout) {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
		*d = DateOf(t)
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (k MatchKind) Valid() bool {
	switch k {
	case Saturday, Sunday, Weekday:
		return true
	default:
		return false
	}
}

// DisplayName returns "First Last", falling back to the nickname.
func (p Player) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
	if name == "" {
		return strings.TrimSpace(p.Nickname)
	}
	return name
}

func (p Player) Validate() error {
	if p.DisplayName() == "" {
		return ErrEmptyName
	}
	if !validAmount(p.Balance) {
		return ErrInvalidAmount
	}
	return nil
}

// HasParticipant reports whether playerID is listed on the match.
func (m Match) HasParticipant(playerID string) bool {
	for _, id := range m.Participants {
		if id == playerID {
			return true
		}
	}
	return false
}

// Payment returns the player's payment record for this match, if any.
func (m Match) Payment(playerID string) (Payment, bool) {
	for _, p := range m.Payments {
		if p.PlayerID == playerID {
			return p, true
		}
	}
	return Payment{}, false
}

// TotalCost is ground plus cafeteria cost.
func (m Match) TotalCost() float64 {
	return m.GroundCost + m.CafeteriaCost
}

// Matches lists the weekend's fixtures: Saturday, Sunday, then weekdays.
func (w Weekend) Matches() []Match {
	out := make([]Match, 0, 2+len(w.Weekday))
	if w.Saturday != nil {
		out = append(out, *w.Saturday)
	}
	if w.Sunday != nil {
		out = append(out, *w.Sunday)
	}
	return append(out, w.Weekday...)
}

// eachMatch visits every match of the weekend in place.
func (w *Weekend) eachMatch(fn func(m *Match)) {
	if w.Saturday != nil {
		fn(w.Saturday)
	}
	if w.Sunday != nil {
		fn(w.Sunday)
	}
	for i := range w.Weekday {
		fn(&w.Weekday[i])
	}
}

// Player looks a player up by ID.
func (d AppData) Player(id string) (Player, bool) {
	if i := d.playerIndex(id); i >= 0 {
		return d.Players[i], true
	}
	return Player{}, false
}

// Weekend looks a weekend up by ID.
func (d AppData) Weekend(id string) (Weekend, bool) {
	if i := d.weekendIndex(id); i >= 0 {
		return d.Weekends[i], true
	}
	return Weekend{}, false
}

// CurrentWeekend returns the weekend the pointer designates.
func (d AppData) CurrentWeekend() (Weekend, bool) {
	return d.Weekend(d.CurrentWeekendID)
}

// Match finds a match anywhere in the snapshot.
func (d AppData) Match(id string) (Match, bool) {
	for _, w := range d.Weekends {
		for _, m := range w.Matches() {
			if m.ID == id {
				return m, true
			}
		}
	}
	return Match{}, false
}

func (d AppData) playerIndex(id string) int {
	for i := range d.Players {
		if d.Players[i].ID == id {
			return i
		}
	}
	return -1
}

func (d AppData) weekendIndex(id string) int {
	for i := range d.Weekends {
		if d.Weekends[i].ID == id {
			return i
		}
	}
	return -1
}

// matchRef returns a pointer into d for in-place edits on a cloned snapshot.
func (d *AppData) matchRef(id string) (*Weekend, *Match) {
	for i := range d.Weekends {
		w := &d.Weekends[i]
		var found *Match
		w.eachMatch(func(m *Match) {
			if found == nil && m.ID == id {
				found = m
			}
		})
		if found != nil {
			return w, found
		}
	}
	return nil, nil
}

func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validCost(v float64) bool {
	return validAmount(v) && v >= 0
}
