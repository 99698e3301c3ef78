package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cricketpay/internal/log"
)

// KeyLister enumerates the ledgers a processor should visit.
type KeyLister interface {
	Keys(ctx context.Context) ([]string, error)
}

// RollProcessor advances every ledger whose current weekend is over.
type RollProcessor struct {
	ledger *LedgerService
	policy RollPolicy
	keys   KeyLister
}

func NewRollProcessor(ledger *LedgerService, policy RollPolicy, keys KeyLister) *RollProcessor {
	if policy == nil {
		policy = WeekendOverPolicy{}
	}
	return &RollProcessor{ledger: ledger, policy: policy, keys: keys}
}

// ProcessDue advances each due ledger at most once and returns how many
// rolled. A failing ledger is logged and skipped.
func (p *RollProcessor) ProcessDue(ctx context.Context, now time.Time, trigger string) (int, error) {
	if p.ledger == nil || p.keys == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	keys, err := p.keys.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("list ledgers: %w", err)
	}

	slog.InfoContext(ctx, "Checking ledgers for weekend rollover",
		"ledgers", len(keys),
		log.FieldTrigger, trigger,
		"now", now.Format(time.RFC3339))

	rolled := 0
	for _, key := range keys {
		ok, err := p.ledger.AdvanceIfDue(ctx, key, p.policy, now, trigger)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to roll ledger",
				log.FieldLedgerKey, key,
				log.FieldError, err)
			continue
		}
		if ok {
			rolled++
		}
	}

	slog.InfoContext(ctx, "Weekend rollover complete",
		"rolled", rolled,
		"total_checked", len(keys))
	return rolled, nil
}
