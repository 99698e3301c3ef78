package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cricketpay/internal/amqp"
	"cricketpay/internal/log"
	"cricketpay/internal/metrics"
	"cricketpay/internal/store"
)

// SyncErrorRecorder is implemented by repositories that keep the last sync
// failure next to the snapshot.
type SyncErrorRecorder interface {
	MarkSyncError(ctx context.Context, key string, cause error) error
}

// SyncWorker pushes local ledger snapshots to the remote store.
type SyncWorker struct {
	repo      store.Repository
	tracker   store.SyncTracker
	remote    store.Remote
	metrics   *metrics.Metrics
	batchSize int
}

func NewSyncWorker(repo store.Repository, tracker store.SyncTracker, remote store.Remote, m *metrics.Metrics, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &SyncWorker{
		repo:      repo,
		tracker:   tracker,
		remote:    remote,
		metrics:   m,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes one snapshot sync message from AMQP. A
// returned error requeues the message.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.SnapshotSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		log.FieldLedgerKey, msg.Key,
		log.FieldVersion, msg.Version)

	snap, err := w.repo.Load(ctx, msg.Key)
	if errors.Is(err, store.ErrNotFound) {
		// Nothing to push; requeueing would loop forever.
		slog.WarnContext(ctx, "Ledger for sync message not found",
			log.FieldLedgerKey, msg.Key)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	if snap.Version < msg.Version {
		return fmt.Errorf("ledger %s at version %d, message announced %d", msg.Key, snap.Version, msg.Version)
	}

	// The latest local version supersedes whatever the message announced.
	return w.push(ctx, snap)
}

// ProcessPending pushes one batch of snapshots the remote has not seen yet.
// It is the backup path for lost AMQP messages.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.processPending(ctx, w.batchSize)
}

// StartupSyncCheck runs a larger pending sweep when the worker boots.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	n, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if n == 0 {
		slog.InfoContext(ctx, "No pending ledgers found on startup")
	}
	return nil
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (int, error) {
	pending, err := w.tracker.PendingSync(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending ledgers: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending ledgers", "count", len(pending))

	synced := 0
	for _, snap := range pending {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		if err := w.push(ctx, snap); err != nil {
			slog.ErrorContext(ctx, "Failed to sync ledger",
				log.FieldLedgerKey, snap.Key,
				log.FieldVersion, snap.Version,
				log.FieldError, err)
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Pending sync completed",
		"total", len(pending),
		"synced", synced,
		"errors", len(pending)-synced)
	return synced, nil
}

func (w *SyncWorker) push(ctx context.Context, snap store.Snapshot) error {
	err := w.remote.Push(ctx, snap)
	switch {
	case errors.Is(err, store.ErrStaleSnapshot):
		// The remote is ahead of us; nothing left to send for this version.
		w.metrics.SyncPush(metrics.ResultStale)
		slog.WarnContext(ctx, "Remote already holds a newer snapshot",
			log.FieldLedgerKey, snap.Key,
			log.FieldVersion, snap.Version)
	case err != nil:
		w.metrics.SyncPush(metrics.ResultError)
		if rec, ok := w.repo.(SyncErrorRecorder); ok {
			if markErr := rec.MarkSyncError(ctx, snap.Key, err); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error",
					log.FieldLedgerKey, snap.Key,
					log.FieldError, markErr)
			}
		}
		return fmt.Errorf("push ledger %s: %w", snap.Key, err)
	default:
		w.metrics.SyncPush(metrics.ResultOK)
	}

	if err := w.tracker.MarkSynced(ctx, snap.Key, snap.Version); err != nil {
		// The push worked; the next sweep re-pushes the same version harmlessly.
		slog.ErrorContext(ctx, "Failed to mark ledger as synced",
			log.FieldLedgerKey, snap.Key,
			log.FieldError, err)
		return nil
	}

	slog.InfoContext(ctx, "Successfully synced ledger",
		log.FieldLedgerKey, snap.Key,
		log.FieldVersion, snap.Version,
		"players", len(snap.Data.Players),
		"weekends", len(snap.Data.Weekends))
	return nil
}
