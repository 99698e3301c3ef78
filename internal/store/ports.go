package store

import (
	"context"
	"errors"
	"time"

	"cricketpay/internal/core"
)

var (
	// ErrNotFound is returned when no snapshot exists under a key.
	ErrNotFound = errors.New("ledger not found")
	// ErrConflict is returned when a save was based on an outdated version.
	ErrConflict = errors.New("ledger was modified concurrently")
	// ErrStaleSnapshot is returned by a remote that already holds a newer version.
	ErrStaleSnapshot = errors.New("remote holds a newer snapshot")
)

// Snapshot is a persisted ledger together with its monotonically increasing
// version.
type Snapshot struct {
	Key       string       `json:"key"`
	Data      core.AppData `json:"data"`
	Version   int64        `json:"version"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Ports for the ledger's storage and its remote copy.
type (
	// Repository is the local source of truth.
	Repository interface {
		Load(ctx context.Context, key string) (Snapshot, error)
		// Save stores data if the ledger is still at expected (0 for a new
		// ledger) and returns the new version.
		Save(ctx context.Context, key string, data core.AppData, expected int64) (int64, error)
		// SaveAtLeast is Save with the new version raised to at least
		// minVersion, so a ledger restored from the remote never falls
		// behind the copy it came from.
		SaveAtLeast(ctx context.Context, key string, data core.AppData, expected, minVersion int64) (int64, error)
		Close() error
	}

	// SyncTracker lists snapshots the remote has not seen yet.
	SyncTracker interface {
		PendingSync(ctx context.Context, limit int) ([]Snapshot, error)
		MarkSynced(ctx context.Context, key string, version int64) error
	}

	// Remote is an off-site copy of ledger snapshots.
	Remote interface {
		// Push stores snap unless the remote already holds a newer version.
		Push(ctx context.Context, snap Snapshot) error
		Pull(ctx context.Context, key string) (Snapshot, error)
	}
)
