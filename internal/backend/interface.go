package backend

import (
	"context"

	"cricketpay/internal/store"
)

// Repository is what every local backend provides: the ledger store, the
// sync bookkeeping the worker sweeps, and a listing of ledger keys.
type Repository interface {
	store.Repository
	store.SyncTracker
	Keys(ctx context.Context) ([]string, error)
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// RepositoryResult contains the repository and its cleanup function.
type RepositoryResult struct {
	Repository Repository
	Cleanup    CleanupFunc
}

// RemoteResult contains the remote store, nil when disabled.
type RemoteResult struct {
	Remote  store.Remote
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateRepository(ctx context.Context, config Config) (*RepositoryResult, error)
	CreateRemote(ctx context.Context, config Config) (*RemoteResult, error)
}
