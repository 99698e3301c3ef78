package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx runs the queries inside tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type AppSnapshot struct {
	StorageKey    string
	Payload       string
	Version       int64
	SyncedVersion int64
	SyncError     sql.NullString
	UpdatedAt     time.Time
}

// Fixed-width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const getSnapshot = `SELECT storage_key, payload, version, synced_version, sync_error, updated_at
FROM app_snapshots WHERE storage_key = ?`

func (q *Queries) GetSnapshot(ctx context.Context, key string) (AppSnapshot, error) {
	return scanSnapshot(q.db.QueryRowContext(ctx, getSnapshot, key))
}

const insertSnapshot = `INSERT INTO app_snapshots (storage_key, payload, version, updated_at)
VALUES (?, ?, MAX(1, ?), ?)
ON CONFLICT (storage_key) DO NOTHING`

// InsertSnapshot creates a ledger at version max(1, minVersion). It reports
// false when the key already exists.
func (q *Queries) InsertSnapshot(ctx context.Context, key, payload string, minVersion int64, at time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx, insertSnapshot, key, payload, minVersion, at.UTC().Format(timeLayout))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

const updateSnapshot = `UPDATE app_snapshots
SET payload = ?, version = MAX(version + 1, ?), updated_at = ?
WHERE storage_key = ? AND version = ?`

// UpdateSnapshot bumps the version, to no less than minVersion, if the row
// is still at expected. It reports false when another writer got there
// first.
func (q *Queries) UpdateSnapshot(ctx context.Context, key, payload string, expected, minVersion int64, at time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx, updateSnapshot, payload, minVersion, at.UTC().Format(timeLayout), key, expected)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

const getPendingSync = `SELECT storage_key, payload, version, synced_version, sync_error, updated_at
FROM app_snapshots
WHERE synced_version < version
ORDER BY updated_at
LIMIT ?`

func (q *Queries) GetPendingSync(ctx context.Context, limit int64) ([]AppSnapshot, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSync, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AppSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const markSynced = `UPDATE app_snapshots
SET synced_version = MAX(synced_version, ?), sync_error = NULL
WHERE storage_key = ?`

func (q *Queries) MarkSynced(ctx context.Context, key string, version int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, markSynced, version, key)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const markSyncError = `UPDATE app_snapshots SET sync_error = ? WHERE storage_key = ?`

func (q *Queries) MarkSyncError(ctx context.Context, key, msg string) error {
	_, err := q.db.ExecContext(ctx, markSyncError, msg, key)
	return err
}

const listKeys = `SELECT storage_key FROM app_snapshots ORDER BY storage_key`

func (q *Queries) ListKeys(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listKeys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (AppSnapshot, error) {
	var (
		s  AppSnapshot
		at string
	)
	if err := row.Scan(&s.StorageKey, &s.Payload, &s.Version, &s.SyncedVersion, &s.SyncError, &at); err != nil {
		return AppSnapshot{}, err
	}
	t, err := time.Parse(timeLayout, at)
	if err != nil {
		return AppSnapshot{}, err
	}
	s.UpdatedAt = t
	return s, nil
}
