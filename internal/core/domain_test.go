package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDateJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"date", `"2025-08-30"`, "2025-08-30"},
		{"legacy timestamp", `"2025-08-30T21:15:00Z"`, "2025-08-30"},
		{"empty", `""`, ""},
		{"null", `null`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var d Date
			if err := json.Unmarshal([]byte(tc.in), &d); err != nil {
				t.Fatalf("unmarshal %s: %v", tc.in, err)
			}
			if d.String() != tc.want {
				t.Errorf("got %q, want %q", d.String(), tc.want)
			}
		})
	}

	var d Date
	if err := json.Unmarshal([]byte(`"30/08/2025"`), &d); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("bad date err = %v", err)
	}

	b, err := json.Marshal(NewDate(2025, 9, 6))
	if err != nil || string(b) != `"2025-09-06"` {
		t.Errorf("marshal = %s, %v", b, err)
	}
}

func TestDateOfUsesLocalCalendarDay(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	late := time.Date(2025, 8, 31, 1, 0, 0, 0, ist) // still the 30th in UTC
	if got := DateOf(late).String(); got != "2025-08-31" {
		t.Fatalf("DateOf = %s, want 2025-08-31", got)
	}
}

func TestZeroDatesAreOmitted(t *testing.T) {
	b, err := json.Marshal(AppData{
		Players: []Player{{ID: "a", FirstName: "Arjun"}},
		Weekends: []Weekend{{
			ID:         "w1",
			AnchorDate: NewDate(2025, 8, 30),
			Weekday:    []Match{{ID: "m1", Kind: Weekday, Participants: []string{"a"}}},
		}},
		CurrentWeekendID: "w1",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	if strings.Contains(s, "foldedBefore") || strings.Contains(s, `"date"`) {
		t.Fatalf("zero dates leaked into %s", s)
	}
	if !strings.Contains(s, `"anchorDate":"2025-08-30"`) || !strings.Contains(s, `"currentWeekendId":"w1"`) {
		t.Fatalf("unexpected encoding %s", s)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	stableIDs(t)
	data := threePlayers(t)
	data, m := mustSave(t, data, Match{Kind: Saturday, Participants: []string{"a", "b"}, GroundCost: 90, Opponent: "Strikers"})
	data = mustPay(t, data, m.ID, "a", 45)
	data, _ = MarkUnpaid(data, "c")

	b, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back AppData
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, p := range data.Players {
		if Summarize(back, p.ID).CurrentBalance != Summarize(data, p.ID).CurrentBalance {
			t.Fatalf("balance of %s changed across encoding", p.ID)
		}
	}
	if got, _ := back.Match(m.ID); got.Opponent != "Strikers" || got.Date.String() != "2025-08-30" {
		t.Fatalf("match = %+v", got)
	}
}

func TestDisplayName(t *testing.T) {
	cases := []struct {
		p    Player
		want string
	}{
		{Player{FirstName: "Arjun", LastName: "Sharma"}, "Arjun Sharma"},
		{Player{FirstName: " Arjun "}, "Arjun"},
		{Player{LastName: "Sharma"}, "Sharma"},
		{Player{Nickname: "AJ"}, "AJ"},
		{Player{}, ""},
	}
	for _, tc := range cases {
		if got := tc.p.DisplayName(); got != tc.want {
			t.Errorf("DisplayName(%+v) = %q, want %q", tc.p, got, tc.want)
		}
	}
}

func TestMatchKindValid(t *testing.T) {
	for _, k := range []MatchKind{Saturday, Sunday, Weekday} {
		if !k.Valid() {
			t.Errorf("%s should be valid", k)
		}
	}
	if MatchKind("friday").Valid() || MatchKind("").Valid() {
		t.Errorf("unexpected valid kind")
	}
}
