package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cricketpay/internal/core"
	"cricketpay/internal/store"
)

type entry struct {
	snap   store.Snapshot
	synced int64
}

// Store keeps ledgers in process memory. Nothing survives a restart.
type Store struct {
	mu      sync.Mutex
	ledgers map[string]*entry
	now     func() time.Time
}

func New() *Store {
	return &Store{ledgers: map[string]*entry{}, now: time.Now}
}

// NewFromRoster returns a store holding one ledger under key, anchored at
// anchor and seeded with the players of the YAML roster at path.
func NewFromRoster(key, path string, anchor core.Date) (*Store, error) {
	players, err := store.ReadRoster(path)
	if err != nil {
		return nil, err
	}
	data, err := core.NewAppData(anchor)
	if err != nil {
		return nil, err
	}
	if data, err = store.Seed(data, players); err != nil {
		return nil, err
	}
	s := New()
	if _, err := s.Save(context.Background(), key, data, 0); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Load(_ context.Context, key string) (store.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.ledgers[key]
	if !ok {
		return store.Snapshot{}, store.ErrNotFound
	}
	snap := e.snap
	snap.Data = snap.Data.Clone()
	return snap, nil
}

func (s *Store) Save(ctx context.Context, key string, data core.AppData, expected int64) (int64, error) {
	return s.SaveAtLeast(ctx, key, data, expected, 0)
}

func (s *Store) SaveAtLeast(_ context.Context, key string, data core.AppData, expected, minVersion int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var current int64
	e, ok := s.ledgers[key]
	if ok {
		current = e.snap.Version
	}
	if current != expected {
		return 0, fmt.Errorf("%w: at version %d, expected %d", store.ErrConflict, current, expected)
	}
	if !ok {
		e = &entry{}
		s.ledgers[key] = e
	}
	e.snap = store.Snapshot{Key: key, Data: data.Clone(), Version: max(current+1, minVersion), UpdatedAt: s.now().UTC()}
	return e.snap.Version, nil
}

// PendingSync returns ledgers whose latest version was never marked synced,
// oldest first.
func (s *Store) PendingSync(_ context.Context, limit int) ([]store.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Snapshot
	for _, e := range s.ledgers {
		if e.synced < e.snap.Version {
			snap := e.snap
			snap.Data = snap.Data.Clone()
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkSynced(_ context.Context, key string, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.ledgers[key]
	if !ok {
		return store.ErrNotFound
	}
	if version > e.synced {
		e.synced = version
	}
	return nil
}

// Keys lists stored ledger keys in order.
func (s *Store) Keys(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.ledgers))
	for k := range s.ledgers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Close() error { return nil }

// Remote is an in-memory stand-in for a remote copy.
type Remote struct {
	mu    sync.Mutex
	snaps map[string]store.Snapshot
	// Pushes counts accepted pushes.
	Pushes int
}

func NewRemote() *Remote {
	return &Remote{snaps: map[string]store.Snapshot{}}
}

func (r *Remote) Push(_ context.Context, snap store.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.snaps[snap.Key]; ok && cur.Version > snap.Version {
		return fmt.Errorf("%w: remote %d, pushed %d", store.ErrStaleSnapshot, cur.Version, snap.Version)
	}
	snap.Data = snap.Data.Clone()
	r.snaps[snap.Key] = snap
	r.Pushes++
	return nil
}

func (r *Remote) Pull(_ context.Context, key string) (store.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, ok := r.snaps[key]
	if !ok {
		return store.Snapshot{}, store.ErrNotFound
	}
	snap.Data = snap.Data.Clone()
	return snap, nil
}
