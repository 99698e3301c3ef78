package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cricketpay/internal/core"
	"cricketpay/internal/remote/firestore"
	"cricketpay/internal/remote/sheets"
	"cricketpay/internal/storage"
	"cricketpay/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger, now: time.Now}
}

// CreateRepository opens the local ledger store.
func (f *DefaultFactory) CreateRepository(ctx context.Context, config Config) (*RepositoryResult, error) {
	switch config.Type {
	case SQLiteBackend:
		return f.createSQLite(config)
	case MemoryBackend:
		return f.createMemory(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLite(config Config) (*RepositoryResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &RepositoryResult{Repository: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createMemory(config Config) (*RepositoryResult, error) {
	if config.RosterFile == "" {
		f.logger.Info("Initialized memory backend")
		s := memory.New()
		return &RepositoryResult{Repository: s, Cleanup: s.Close}, nil
	}

	anchor := core.UpcomingSaturday(f.now())
	s, err := memory.NewFromRoster(config.LedgerKey, config.RosterFile, anchor)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend",
		"roster_file", config.RosterFile,
		"ledger_key", config.LedgerKey,
		"anchor_date", anchor.String())
	return &RepositoryResult{Repository: s, Cleanup: s.Close}, nil
}

// CreateRemote connects to the configured off-site store. With NoRemote the
// result holds a nil Remote.
func (f *DefaultFactory) CreateRemote(ctx context.Context, config Config) (*RemoteResult, error) {
	switch config.Remote {
	case NoRemote, "":
		return &RemoteResult{}, nil

	case SheetsRemote:
		cli, err := sheets.New(ctx, sheets.Options{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			SyncSheet:       config.GoogleSyncSheetName,
			SummarySheet:    config.GoogleSummarySheetName,
			CredentialsJSON: config.GoogleServiceAccountJSON,
			CredentialsFile: config.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets remote: %w", err)
		}
		f.logger.Info("Initialized Google Sheets remote",
			"spreadsheet_id", config.GoogleSpreadsheetID,
			"sync_sheet", config.GoogleSyncSheetName)
		return &RemoteResult{Remote: cli}, nil

	case FirestoreRemote:
		r, err := firestore.New(ctx, firestore.Options{
			ProjectID:       config.FirestoreProjectID,
			Collection:      config.FirestoreCollection,
			CredentialsFile: config.FirebaseCredentialsFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Firestore remote: %w", err)
		}
		f.logger.Info("Initialized Firestore remote",
			"project_id", config.FirestoreProjectID,
			"collection", config.FirestoreCollection)
		return &RemoteResult{Remote: r, Cleanup: r.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported remote type: %s", config.Remote)
	}
}
