package services

import (
	"context"
	"testing"
	"time"

	"cricketpay/internal/core"
)

type fixedKeys []string

func (k fixedKeys) Keys(context.Context) ([]string, error) { return k, nil }

func TestWeekendOverPolicy(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	anchor := core.NewDate(2025, 8, 30)

	cases := []struct {
		name   string
		policy RollPolicy
		now    time.Time
		want   bool
	}{
		{"sunday", WeekendOverPolicy{}, time.Date(2025, 8, 31, 12, 0, 0, 0, time.UTC), false},
		{"monday", WeekendOverPolicy{}, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), true},
		// 20:00 UTC Sunday is already Monday in Kolkata.
		{"monday in kolkata", WeekendOverPolicy{Location: kolkata}, time.Date(2025, 8, 31, 20, 0, 0, 0, time.UTC), true},
		{"zero anchor", WeekendOverPolicy{}, time.Now(), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := anchor
			if tc.name == "zero anchor" {
				a = core.Date{}
			}
			if got := tc.policy.Due(a, tc.now); got != tc.want {
				t.Errorf("Due() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestProcessDueRollsOnce(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)
	if _, err := svc.Init(ctx, "fresh", core.NewDate(2025, 9, 6), nil); err != nil {
		t.Fatalf("init fresh: %v", err)
	}

	p := NewRollProcessor(svc, WeekendOverPolicy{}, fixedKeys{ledgerKey, "fresh", "missing"})
	// Only club is past its weekend.
	now := time.Date(2025, 9, 2, 6, 0, 0, 0, time.UTC)

	n, err := p.ProcessDue(ctx, now, "schedule")
	if err != nil || n != 1 {
		t.Fatalf("ProcessDue = %d, %v; want 1, nil", n, err)
	}
	snap, _ := svc.Snapshot(ctx, ledgerKey)
	cur, _ := snap.Data.CurrentWeekend()
	if cur.AnchorDate.String() != "2025-09-06" {
		t.Fatalf("club anchor = %s", cur.AnchorDate)
	}

	// Same instant again: club is no longer due.
	if n, _ := p.ProcessDue(ctx, now, "schedule"); n != 0 {
		t.Fatalf("second run rolled %d ledgers", n)
	}
}

func TestProcessDueUninitialised(t *testing.T) {
	if _, err := (&RollProcessor{}).ProcessDue(context.Background(), time.Now(), "manual"); err == nil {
		t.Fatalf("expected error from zero processor")
	}
}
