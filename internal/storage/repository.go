package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cricketpay/internal/core"
	"cricketpay/internal/store"

	_ "modernc.org/sqlite"
)

// SQLiteRepository stores each ledger as one JSON document per key.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("Ledger schema ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{db: db, queries: New(db), now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Load implements store.Repository
func (r *SQLiteRepository) Load(ctx context.Context, key string) (store.Snapshot, error) {
	row, err := r.queries.GetSnapshot(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Snapshot{}, store.ErrNotFound
	}
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("get snapshot %s: %w", key, err)
	}
	return decode(row)
}

// Save implements store.Repository
func (r *SQLiteRepository) Save(ctx context.Context, key string, data core.AppData, expected int64) (int64, error) {
	return r.SaveAtLeast(ctx, key, data, expected, 0)
}

// SaveAtLeast implements store.Repository
func (r *SQLiteRepository) SaveAtLeast(ctx context.Context, key string, data core.AppData, expected, minVersion int64) (int64, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return 0, fmt.Errorf("encode snapshot: %w", err)
	}

	var ok bool
	if expected == 0 {
		ok, err = r.queries.InsertSnapshot(ctx, key, string(payload), minVersion, r.now())
	} else {
		ok, err = r.queries.UpdateSnapshot(ctx, key, string(payload), expected, minVersion, r.now())
	}
	if err != nil {
		return 0, fmt.Errorf("save snapshot %s: %w", key, err)
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s not at version %d", store.ErrConflict, key, expected)
	}

	version := max(expected+1, minVersion)
	slog.DebugContext(ctx, "Ledger snapshot saved to SQLite",
		"ledger_key", key,
		"version", version,
		"bytes", len(payload))
	return version, nil
}

// PendingSync implements store.SyncTracker
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]store.Snapshot, error) {
	rows, err := r.queries.GetPendingSync(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync: %w", err)
	}
	out := make([]store.Snapshot, 0, len(rows))
	for _, row := range rows {
		snap, err := decode(row)
		if err != nil {
			// One corrupt row must not block the others.
			slog.ErrorContext(ctx, "Skipping undecodable snapshot", "ledger_key", row.StorageKey, "error", err)
			continue
		}
		out = append(out, snap)
	}
	return out, nil
}

// MarkSynced implements store.SyncTracker
func (r *SQLiteRepository) MarkSynced(ctx context.Context, key string, version int64) error {
	n, err := r.queries.MarkSynced(ctx, key, version)
	if err != nil {
		return fmt.Errorf("mark snapshot synced: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	slog.InfoContext(ctx, "Ledger snapshot marked as synced", "ledger_key", key, "version", version)
	return nil
}

// MarkSyncError records the last push failure for a ledger
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, key string, cause error) error {
	if err := r.queries.MarkSyncError(ctx, key, cause.Error()); err != nil {
		return fmt.Errorf("mark snapshot sync error: %w", err)
	}
	slog.WarnContext(ctx, "Ledger snapshot marked with sync error", "ledger_key", key, "error", cause)
	return nil
}

// Keys lists every stored ledger.
func (r *SQLiteRepository) Keys(ctx context.Context) ([]string, error) {
	keys, err := r.queries.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ledger keys: %w", err)
	}
	return keys, nil
}

func decode(row AppSnapshot) (store.Snapshot, error) {
	var data core.AppData
	if err := json.Unmarshal([]byte(row.Payload), &data); err != nil {
		return store.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", row.StorageKey, err)
	}
	return store.Snapshot{
		Key:       row.StorageKey,
		Data:      data,
		Version:   row.Version,
		UpdatedAt: row.UpdatedAt,
	}, nil
}
