package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cricketpay/internal/cache"
	"cricketpay/internal/core"
	"cricketpay/internal/log"
	"cricketpay/internal/metrics"
	"cricketpay/internal/store"
)

// ErrLedgerExists is returned by Init when the key is already taken.
var ErrLedgerExists = errors.New("ledger already exists")

// Publisher announces that a ledger reached a new version.
type Publisher interface {
	PublishSnapshotSync(ctx context.Context, key string, version int64) error
}

// LedgerSummary is the current-weekend view of a ledger.
type LedgerSummary struct {
	Key     string               `json:"key"`
	Version int64                `json:"version"`
	Weekend core.WeekendTotals   `json:"weekend"`
	Players []core.PlayerSummary `json:"players"`
}

// LedgerService orchestrates ledger edits across the repository, the
// snapshot cache and the sync publisher. Every mutation is a
// load-apply-save cycle against an expected version; a conflicting write
// from another process is retried once on fresh data.
type LedgerService struct {
	mu        sync.Mutex
	repo      store.Repository
	publisher Publisher
	snapshots cache.Cache[store.Snapshot]
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewLedgerService wires a service. publisher, snapshots and m may be nil.
func NewLedgerService(repo store.Repository, publisher Publisher, snapshots cache.Cache[store.Snapshot], m *metrics.Metrics) *LedgerService {
	return &LedgerService{
		repo:      repo,
		publisher: publisher,
		snapshots: snapshots,
		metrics:   m,
		now:       time.Now,
	}
}

// Snapshot returns the latest known version of a ledger.
func (s *LedgerService) Snapshot(ctx context.Context, key string) (store.Snapshot, error) {
	snap, err := s.load(ctx, key)
	s.record(log.OpRead, err)
	return snap, err
}

// Summary returns per-player summaries and totals for the current weekend.
func (s *LedgerService) Summary(ctx context.Context, key string) (LedgerSummary, error) {
	snap, err := s.Snapshot(ctx, key)
	if err != nil {
		return LedgerSummary{}, err
	}
	return LedgerSummary{
		Key:     key,
		Version: snap.Version,
		Weekend: core.Totals(snap.Data),
		Players: core.Summaries(snap.Data),
	}, nil
}

// PlayerSummary returns the summary of one player.
func (s *LedgerService) PlayerSummary(ctx context.Context, key, playerID string) (core.PlayerSummary, error) {
	snap, err := s.Snapshot(ctx, key)
	if err != nil {
		return core.PlayerSummary{}, err
	}
	if _, ok := snap.Data.Player(playerID); !ok {
		return core.PlayerSummary{}, core.ErrPlayerNotFound
	}
	return core.Summarize(snap.Data, playerID), nil
}

// Players lists the roster, fuzzily filtered when query is set.
func (s *LedgerService) Players(ctx context.Context, key, query string) ([]core.Player, error) {
	snap, err := s.Snapshot(ctx, key)
	if err != nil {
		return nil, err
	}
	return core.FindPlayers(snap.Data, query), nil
}

// Init creates a ledger whose first weekend is anchored at anchor, optionally
// seeded with a roster.
func (s *LedgerService) Init(ctx context.Context, key string, anchor core.Date, roster []core.Player) (store.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := core.NewAppData(anchor)
	if err == nil && len(roster) > 0 {
		data, err = store.Seed(data, roster)
	}
	if err != nil {
		s.record(log.OpInit, err)
		return store.Snapshot{}, err
	}

	version, err := s.repo.Save(ctx, key, data, 0)
	if errors.Is(err, store.ErrConflict) {
		err = fmt.Errorf("%w: %s", ErrLedgerExists, key)
	}
	if err != nil {
		s.record(log.OpInit, err)
		return store.Snapshot{}, err
	}

	snap := s.commit(ctx, key, data, version)
	s.record(log.OpInit, nil)
	slog.InfoContext(ctx, "Ledger initialised",
		log.FieldLedgerKey, key,
		log.FieldAnchorDate, anchor.String(),
		"players", len(data.Players))
	return snap, nil
}

// AddPlayer adds a player to the roster.
func (s *LedgerService) AddPlayer(ctx context.Context, key string, p core.Player) (core.Player, error) {
	var added core.Player
	_, err := s.mutate(ctx, key, log.OpAddPlayer, func(d core.AppData) (core.AppData, error) {
		var err error
		d, added, err = core.AddPlayer(d, p)
		return d, err
	})
	return added, err
}

// UpdatePlayer applies a partial update to a player.
func (s *LedgerService) UpdatePlayer(ctx context.Context, key, id string, u core.PlayerUpdate) (core.Player, error) {
	var updated core.Player
	_, err := s.mutate(ctx, key, log.OpUpdatePlayer, func(d core.AppData) (core.AppData, error) {
		var err error
		d, updated, err = core.UpdatePlayer(d, id, u)
		return d, err
	})
	return updated, err
}

// RemovePlayer drops a player that has no match history.
func (s *LedgerService) RemovePlayer(ctx context.Context, key, id string) error {
	_, err := s.mutate(ctx, key, log.OpRemovePlayer, func(d core.AppData) (core.AppData, error) {
		return core.RemovePlayer(d, id)
	})
	return err
}

// SaveMatch records a match in the current weekend.
func (s *LedgerService) SaveMatch(ctx context.Context, key string, m core.Match) (core.Match, error) {
	var saved core.Match
	_, err := s.mutate(ctx, key, log.OpSaveMatch, func(d core.AppData) (core.AppData, error) {
		if d.CurrentWeekendID == "" {
			return d, core.ErrNoCurrentWeekend
		}
		var err error
		d, saved, err = core.SaveMatch(d, d.CurrentWeekendID, m)
		return d, err
	})
	if err == nil {
		slog.InfoContext(ctx, "Match saved",
			log.FieldLedgerKey, key,
			log.FieldMatchID, saved.ID,
			"kind", saved.Kind,
			"participants", len(saved.Participants))
	}
	return saved, err
}

// EditMatch changes the participants, costs or details of a match.
func (s *LedgerService) EditMatch(ctx context.Context, key, matchID string, e core.MatchEdit) (core.Match, error) {
	var edited core.Match
	_, err := s.mutate(ctx, key, log.OpEditMatch, func(d core.AppData) (core.AppData, error) {
		var err error
		d, edited, err = core.EditMatch(d, matchID, e)
		return d, err
	})
	return edited, err
}

// DeleteMatch removes a match and its payments.
func (s *LedgerService) DeleteMatch(ctx context.Context, key, matchID string) error {
	_, err := s.mutate(ctx, key, log.OpDeleteMatch, func(d core.AppData) (core.AppData, error) {
		return core.DeleteMatch(d, matchID)
	})
	return err
}

// RecordPayment sets what a player has paid towards a match.
func (s *LedgerService) RecordPayment(ctx context.Context, key, matchID, playerID string, amount float64) (core.Payment, error) {
	var pay core.Payment
	_, err := s.mutate(ctx, key, log.OpRecordPayment, func(d core.AppData) (core.AppData, error) {
		var err error
		d, pay, err = core.RecordPayment(d, matchID, playerID, amount)
		return d, err
	})
	if err == nil {
		slog.InfoContext(ctx, "Payment recorded",
			log.FieldLedgerKey, key,
			log.FieldMatchID, matchID,
			log.FieldPlayerID, playerID,
			log.FieldAmount, amount,
			"status", pay.Status)
	}
	return pay, err
}

// Settle marks every current payment of a player fully paid, or unpaid, and
// returns the player's resulting summary.
func (s *LedgerService) Settle(ctx context.Context, key, playerID string, paid bool) (core.PlayerSummary, error) {
	op, apply := log.OpMarkUnpaid, core.MarkUnpaid
	if paid {
		op, apply = log.OpMarkPaid, core.MarkFullyPaid
	}
	snap, err := s.mutate(ctx, key, op, func(d core.AppData) (core.AppData, error) {
		return apply(d, playerID)
	})
	if err != nil {
		return core.PlayerSummary{}, err
	}
	return core.Summarize(snap.Data, playerID), nil
}

// Advance closes the current weekend and opens the next one.
func (s *LedgerService) Advance(ctx context.Context, key, trigger string) (core.Weekend, error) {
	snap, err := s.mutate(ctx, key, log.OpAdvance, core.Advance)
	if err != nil {
		return core.Weekend{}, err
	}
	s.metrics.Advance(trigger)

	cur, _ := snap.Data.CurrentWeekend()
	slog.InfoContext(ctx, "Weekend advanced",
		log.FieldLedgerKey, key,
		log.FieldWeekendID, cur.ID,
		log.FieldAnchorDate, cur.AnchorDate.String(),
		log.FieldTrigger, trigger)
	return cur, nil
}

// AdvanceIfDue advances the ledger once when policy says its weekend is over.
func (s *LedgerService) AdvanceIfDue(ctx context.Context, key string, policy RollPolicy, now time.Time, trigger string) (bool, error) {
	var rolled bool
	snap, err := s.mutate(ctx, key, log.OpAdvance, func(d core.AppData) (core.AppData, error) {
		rolled = false
		cur, ok := d.CurrentWeekend()
		if !ok || !policy.Due(cur.AnchorDate, now) {
			return d, errNothingToDo
		}
		rolled = true
		return core.Advance(d)
	})
	if errors.Is(err, errNothingToDo) {
		return false, nil
	}
	if err != nil || !rolled {
		return false, err
	}
	s.metrics.Advance(trigger)

	cur, _ := snap.Data.CurrentWeekend()
	slog.InfoContext(ctx, "Weekend advanced",
		log.FieldLedgerKey, key,
		log.FieldWeekendID, cur.ID,
		log.FieldAnchorDate, cur.AnchorDate.String(),
		log.FieldTrigger, trigger)
	return true, nil
}

// Restore replaces the local ledger with data pulled from the remote at
// remoteVersion. The local version ends up at least remoteVersion and above
// the previous local one, so later edits outrank the remote copy and sync
// back out.
func (s *LedgerService) Restore(ctx context.Context, key string, data core.AppData, remoteVersion int64) (store.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data = data.Clone()
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var expected int64
		cur, loadErr := s.repo.Load(ctx, key)
		switch {
		case loadErr == nil:
			expected = cur.Version
		case !errors.Is(loadErr, store.ErrNotFound):
			err = loadErr
		}
		if err != nil {
			break
		}

		var version int64
		version, err = s.repo.SaveAtLeast(ctx, key, data, expected, remoteVersion)
		if errors.Is(err, store.ErrConflict) {
			s.forget(key)
			continue
		}
		if err != nil {
			err = fmt.Errorf("save ledger: %w", err)
			break
		}

		s.record(log.OpSync, nil)
		slog.InfoContext(ctx, "Ledger restored",
			log.FieldLedgerKey, key,
			log.FieldVersion, version,
			"remote_version", remoteVersion)
		return s.commit(ctx, key, data, version), nil
	}

	s.record(log.OpSync, err)
	return store.Snapshot{}, err
}

// Close releases the repository.
func (s *LedgerService) Close() error {
	var errs []error
	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("repository: %w", err))
		}
	}
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}

// errNothingToDo aborts a mutation without saving.
var errNothingToDo = errors.New("nothing to do")

func (s *LedgerService) mutate(ctx context.Context, key, op string, apply func(core.AppData) (core.AppData, error)) (store.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var snap store.Snapshot
		snap, err = s.load(ctx, key)
		if err != nil {
			break
		}

		var next core.AppData
		next, err = apply(snap.Data)
		if err != nil {
			if errors.Is(err, errNothingToDo) {
				return snap, err
			}
			break
		}

		var version int64
		version, err = s.repo.Save(ctx, key, next, snap.Version)
		if errors.Is(err, store.ErrConflict) {
			slog.WarnContext(ctx, "Ledger changed underneath, retrying",
				log.FieldLedgerKey, key,
				log.FieldVersion, snap.Version,
				log.FieldOperation, op)
			s.forget(key)
			continue
		}
		if err != nil {
			err = fmt.Errorf("save ledger: %w", err)
			break
		}

		saved := s.commit(ctx, key, next, version)
		s.record(op, nil)
		return saved, nil
	}

	s.record(op, err)
	return store.Snapshot{}, err
}

// commit caches a freshly saved snapshot and announces it for sync.
func (s *LedgerService) commit(ctx context.Context, key string, data core.AppData, version int64) store.Snapshot {
	snap := store.Snapshot{Key: key, Data: data, Version: version, UpdatedAt: s.now().UTC()}
	if s.snapshots != nil {
		s.snapshots.Set(key, version, snap)
	}

	if s.publisher == nil {
		slog.DebugContext(ctx, "No publisher configured, skipping sync message",
			log.FieldLedgerKey, key)
		return snap
	}
	// Saved locally already; a lost message is recovered by the sync sweep.
	if err := s.publisher.PublishSnapshotSync(ctx, key, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			log.FieldLedgerKey, key,
			log.FieldVersion, version,
			log.FieldError, err)
	}
	return snap
}

func (s *LedgerService) load(ctx context.Context, key string) (store.Snapshot, error) {
	if s.snapshots != nil {
		snap, _, ok := s.snapshots.Get(key)
		s.metrics.CacheLookup(ok)
		if ok {
			return snap, nil
		}
	}

	snap, err := s.repo.Load(ctx, key)
	if err != nil {
		return store.Snapshot{}, err
	}
	if s.snapshots != nil {
		s.snapshots.Set(key, snap.Version, snap)
	}
	return snap, nil
}

func (s *LedgerService) forget(key string) {
	if s.snapshots != nil {
		s.snapshots.Delete(key)
	}
}

func (s *LedgerService) record(op string, err error) {
	switch {
	case err == nil:
		s.metrics.LedgerOp(op, metrics.ResultOK)
	case errors.Is(err, store.ErrConflict), errors.Is(err, ErrLedgerExists):
		s.metrics.LedgerOp(op, metrics.ResultConflict)
	default:
		s.metrics.LedgerOp(op, metrics.ResultError)
	}
}
