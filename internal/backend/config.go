package backend

import (
	"fmt"

	"cricketpay/internal/config"
)

// Config holds configuration for backend creation
type Config struct {
	Type   BackendType
	Remote RemoteType

	// SQLite specific
	SQLiteDBPath string

	// Memory backend specific
	LedgerKey  string
	RosterFile string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSyncSheetName      string
	GoogleSummarySheetName   string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Firestore specific
	FirestoreProjectID      string
	FirestoreCollection     string
	FirebaseCredentialsFile string
}

// BackendType selects the local repository.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string { return string(bt) }

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// RemoteType selects the off-site copy.
type RemoteType string

const (
	NoRemote        RemoteType = "none"
	SheetsRemote    RemoteType = "sheets"
	FirestoreRemote RemoteType = "firestore"
)

func (rt RemoteType) String() string { return string(rt) }

func (rt RemoteType) IsValid() bool {
	switch rt {
	case NoRemote, SheetsRemote, FirestoreRemote:
		return true
	default:
		return false
	}
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	c := Config{
		Type:                     BackendType(appConfig.DataBackend),
		Remote:                   RemoteType(appConfig.RemoteBackend),
		SQLiteDBPath:             appConfig.SQLiteDBPath,
		LedgerKey:                appConfig.LedgerKey,
		RosterFile:               appConfig.RosterFile,
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSyncSheetName:      appConfig.GoogleSyncSheetName,
		GoogleSummarySheetName:   appConfig.GoogleSummarySheetName,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		FirestoreProjectID:       appConfig.FirestoreProjectID,
		FirestoreCollection:      appConfig.FirestoreCollection,
		FirebaseCredentialsFile:  appConfig.FirebaseCredentialsFile,
	}
	if c.Remote == "" {
		c.Remote = NoRemote
	}
	return c, c.Validate()
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if !c.Remote.IsValid() {
		return fmt.Errorf("invalid remote type: %s", c.Remote)
	}

	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}

	switch c.Remote {
	case SheetsRemote:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets remote")
		}
		if c.GoogleSyncSheetName == "" {
			return fmt.Errorf("Google sync sheet name is required for sheets remote")
		}
		if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
			return fmt.Errorf("either GoogleServiceAccountFile or GoogleServiceAccountJSON must be provided for sheets remote")
		}
	case FirestoreRemote:
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("Firestore project ID is required for firestore remote")
		}
	}
	return nil
}
