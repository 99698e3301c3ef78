package core

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAddPlayer(t *testing.T) {
	stableIDs(t)
	data := threePlayers(t)

	out, p, err := AddPlayer(data, Player{FirstName: "  Dev ", LastName: "Rao", Regular: true})
	if err != nil {
		t.Fatalf("add player: %v", err)
	}
	if p.ID == "" || p.FirstName != "Dev" || p.DisplayName() != "Dev Rao" {
		t.Fatalf("unexpected player %+v", p)
	}
	if len(out.Players) != 4 || len(data.Players) != 3 {
		t.Fatalf("roster sizes: out=%d in=%d", len(out.Players), len(data.Players))
	}

	if _, _, err := AddPlayer(data, Player{ID: "a", FirstName: "Again"}); !errors.Is(err, ErrDuplicatePlayer) {
		t.Fatalf("duplicate id err = %v", err)
	}
	if _, _, err := AddPlayer(data, Player{FirstName: "  "}); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("empty name err = %v", err)
	}
	if _, _, err := AddPlayer(data, Player{Nickname: "Bunny"}); err != nil {
		t.Fatalf("nickname-only player should be accepted: %v", err)
	}
}

func TestUpdatePlayer(t *testing.T) {
	data := threePlayers(t)
	name, bal, arrears := "Bilal K", 120.5, true

	out, p, err := UpdatePlayer(data, "b", PlayerUpdate{FirstName: &name, Balance: &bal, Arrears: &arrears})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if p.FirstName != "Bilal K" || p.Balance != 120.5 || !p.Arrears {
		t.Fatalf("unexpected player %+v", p)
	}
	if orig, _ := data.Player("b"); orig.Balance != 0 {
		t.Fatalf("update mutated input")
	}
	if got, _ := out.Player("b"); got != p {
		t.Fatalf("stored player %+v, returned %+v", got, p)
	}

	if _, _, err := UpdatePlayer(data, "zz", PlayerUpdate{}); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("missing player err = %v", err)
	}
	empty := ""
	if _, _, err := UpdatePlayer(data, "b", PlayerUpdate{FirstName: &empty}); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("blank name err = %v", err)
	}
}

func TestRemovePlayer(t *testing.T) {
	stableIDs(t)
	data := threePlayers(t)
	data, _ = mustSave(t, data, Match{Kind: Saturday, Participants: []string{"a", "b"}, GroundCost: 100})

	if _, err := RemovePlayer(data, "a"); !errors.Is(err, ErrPlayerInUse) {
		t.Fatalf("remove with history err = %v", err)
	}
	out, err := RemovePlayer(data, "c")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := out.Player("c"); ok || len(out.Players) != 2 {
		t.Fatalf("player c still present: %+v", out.Players)
	}
	if _, err := RemovePlayer(data, "zz"); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("missing player err = %v", err)
	}
}

func TestSaveMatchSlotsAndDates(t *testing.T) {
	stableIDs(t)
	data := threePlayers(t)

	data, sat := mustSave(t, data, Match{Kind: Saturday, Participants: []string{"a"}, GroundCost: 10})
	data, sun := mustSave(t, data, Match{Kind: Sunday, Participants: []string{"b"}, GroundCost: 10})
	data, wd := mustSave(t, data, Match{Kind: Weekday, Date: NewDate(2025, 9, 3), Participants: []string{"c"}, GroundCost: 10})

	if sat.Date.String() != "2025-08-30" || sun.Date.String() != "2025-08-31" || wd.Date.String() != "2025-09-03" {
		t.Fatalf("dates: sat=%s sun=%s wd=%s", sat.Date, sun.Date, wd.Date)
	}
	cur, _ := data.CurrentWeekend()
	if cur.Saturday == nil || cur.Sunday == nil || len(cur.Weekday) != 1 {
		t.Fatalf("weekend not filled: %+v", cur)
	}

	if _, _, err := SaveMatch(data, "", Match{Kind: Saturday, Participants: []string{"a"}}); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("second saturday err = %v", err)
	}
	// Any number of weekday matches.
	if _, _, err := SaveMatch(data, "", Match{Kind: Weekday, Participants: []string{"a"}}); err != nil {
		t.Fatalf("second weekday: %v", err)
	}
}

func TestSaveMatchValidation(t *testing.T) {
	data := threePlayers(t)
	cases := []struct {
		name string
		m    Match
		want error
	}{
		{"bad kind", Match{Kind: "friday", Participants: []string{"a"}}, ErrInvalidKind},
		{"negative ground", Match{Kind: Weekday, Participants: []string{"a"}, GroundCost: -1}, ErrInvalidAmount},
		{"negative cafeteria", Match{Kind: Weekday, Participants: []string{"a"}, CafeteriaCost: -0.5}, ErrInvalidAmount},
		{"nobody", Match{Kind: Weekday}, ErrNoParticipants},
		{"stranger", Match{Kind: Weekday, Participants: []string{"a", "x"}}, ErrUnknownParticipant},
		{"twice", Match{Kind: Weekday, Participants: []string{"a", "a"}}, ErrDuplicateParticipant},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := SaveMatch(data, "", tc.m); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
	if _, _, err := SaveMatch(data, "nope", Match{Kind: Weekday, Participants: []string{"a"}}); !errors.Is(err, ErrWeekendNotFound) {
		t.Errorf("unknown weekend err = %v", err)
	}
}

func TestSaveMatchDoesNotMutateInput(t *testing.T) {
	stableIDs(t)
	data := threePlayers(t)
	before := data.Clone()
	participants := []string{"a", "b"}

	_, m := mustSave(t, data, Match{Kind: Saturday, Participants: participants, GroundCost: 50})
	participants[0] = "c"

	if diff := cmp.Diff(before, data); diff != "" {
		t.Fatalf("input snapshot changed (-before +after):\n%s", diff)
	}
	if m.Participants[0] != "a" {
		t.Fatalf("saved match aliases caller slice")
	}
}

func TestEditMatchRecomputesDues(t *testing.T) {
	stableIDs(t)
	data := threePlayers(t)
	data, _, _ = AddPlayer(data, Player{ID: "d", FirstName: "Dinesh"})
	data, m := mustSave(t, data, Match{Kind: Saturday, Participants: []string{"a", "b", "c"}, GroundCost: 300, CafeteriaCost: 150})
	data = mustPay(t, data, m.ID, "a", 150)
	data = mustPay(t, data, m.ID, "b", 100)
	data = mustPay(t, data, m.ID, "c", 50)

	ground := 200.0
	out, edited, err := EditMatch(data, m.ID, MatchEdit{Participants: []string{"a", "b", "d"}, GroundCost: &ground})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}

	want := []Payment{
		{PlayerID: "a", MatchID: m.ID, AmountDue: 350.0 / 3, AmountPaid: 150, Status: StatusPaid},
		{PlayerID: "b", MatchID: m.ID, AmountDue: 350.0 / 3, AmountPaid: 100, Status: StatusPartial},
		{PlayerID: "d", MatchID: m.ID, AmountDue: 350.0 / 3, AmountPaid: 0, Status: StatusPending},
	}
	if diff := cmp.Diff(want, edited.Payments); diff != "" {
		t.Fatalf("payments mismatch (-want +got):\n%s", diff)
	}
	stored, _ := out.Match(m.ID)
	if diff := cmp.Diff(edited, stored); diff != "" {
		t.Fatalf("stored match differs (-returned +stored):\n%s", diff)
	}
	if orig, _ := data.Match(m.ID); len(orig.Payments) != 3 || orig.Payments[2].PlayerID != "c" {
		t.Fatalf("edit mutated input: %+v", orig.Payments)
	}

	if _, _, err := EditMatch(data, "nope", MatchEdit{}); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("missing match err = %v", err)
	}
	neg := -5.0
	if _, _, err := EditMatch(data, m.ID, MatchEdit{CafeteriaCost: &neg}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative cost err = %v", err)
	}
}

func TestDueIsFixedUntilExplicitEdit(t *testing.T) {
	stableIDs(t)
	data := threePlayers(t)
	data, m := mustSave(t, data, Match{Kind: Weekday, Participants: []string{"a", "b"}, GroundCost: 100})

	// Renaming a player or recording payments never touches amounts due.
	name := "Arjun S"
	data, _, _ = UpdatePlayer(data, "a", PlayerUpdate{FirstName: &name})
	data = mustPay(t, data, m.ID, "b", 10)
	got, _ := data.Match(m.ID)
	for _, p := range got.Payments {
		if p.AmountDue != 50 {
			t.Fatalf("amount due drifted: %+v", p)
		}
	}
}

func TestDeleteMatch(t *testing.T) {
	stableIDs(t)
	data := threePlayers(t)
	data, sat := mustSave(t, data, Match{Kind: Saturday, Participants: []string{"a"}})
	data, wd := mustSave(t, data, Match{Kind: Weekday, Participants: []string{"b"}})

	out, err := DeleteMatch(data, sat.ID)
	if err != nil {
		t.Fatalf("delete saturday: %v", err)
	}
	if cur, _ := out.CurrentWeekend(); cur.Saturday != nil {
		t.Fatalf("saturday slot not cleared")
	}
	out, err = DeleteMatch(out, wd.ID)
	if err != nil {
		t.Fatalf("delete weekday: %v", err)
	}
	if cur, _ := out.CurrentWeekend(); len(cur.Weekday) != 0 {
		t.Fatalf("weekday match not removed")
	}
	if _, err := DeleteMatch(out, wd.ID); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("double delete err = %v", err)
	}
	if cur, _ := data.CurrentWeekend(); cur.Saturday == nil {
		t.Fatalf("delete mutated input")
	}
}

func TestRecordPayment(t *testing.T) {
	stableIDs(t)
	data := threePlayers(t)
	data, m := mustSave(t, data, Match{Kind: Saturday, Participants: []string{"a", "b"}, GroundCost: 100})

	if _, _, err := RecordPayment(data, m.ID, "a", -1); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative amount err = %v", err)
	}
	if _, _, err := RecordPayment(data, "nope", "a", 1); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("missing match err = %v", err)
	}
	if _, _, err := RecordPayment(data, m.ID, "c", 1); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("non participant err = %v", err)
	}

	_, p, err := RecordPayment(data, m.ID, "a", 60)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if p.AmountPaid != 60 || p.Status != StatusPaid {
		t.Fatalf("payment = %+v", p)
	}

	// Participants saved before payment records existed get one on demand.
	legacy := data.Clone()
	cur := &legacy.Weekends[0]
	cur.Saturday.Payments = nil
	_, p, err = RecordPayment(legacy, m.ID, "b", 20)
	if err != nil {
		t.Fatalf("record legacy: %v", err)
	}
	if p.AmountDue != 50 || p.Status != StatusPartial {
		t.Fatalf("legacy payment = %+v", p)
	}
}

func TestCloneIsDeep(t *testing.T) {
	stableIDs(t)
	data := threePlayers(t)
	data, _ = mustSave(t, data, Match{Kind: Saturday, Participants: []string{"a", "b"}, GroundCost: 100})
	data, _ = mustSave(t, data, Match{Kind: Weekday, Participants: []string{"c"}, GroundCost: 10})

	c := data.Clone()
	c.Players[0].Balance = 999
	c.Weekends[0].Saturday.Payments[0].AmountPaid = 999
	c.Weekends[0].Saturday.Participants[0] = "zz"
	c.Weekends[0].Weekday[0].GroundCost = 999

	if data.Players[0].Balance != 0 ||
		data.Weekends[0].Saturday.Payments[0].AmountPaid != 0 ||
		data.Weekends[0].Saturday.Participants[0] != "a" ||
		data.Weekends[0].Weekday[0].GroundCost != 10 {
		t.Fatalf("clone shares memory with original")
	}
}
