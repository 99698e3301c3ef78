// Package sheets keeps an off-site copy of ledger snapshots in a Google
// spreadsheet: one row per ledger in a sync tab, plus an optional balances tab
// for people who read the sheet directly.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cricketpay/internal/store"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	syncSheet     string
	summarySheet  string
}

var _ store.Remote = (*Client)(nil)

type Options struct {
	SpreadsheetID string
	SyncSheet     string
	// SummarySheet, when set, receives a readable balance table on each push.
	SummarySheet    string
	CredentialsJSON string
	CredentialsFile string
	// ClientOptions are appended after the credentials; tests point the
	// client at a local endpoint with them.
	ClientOptions []goption.ClientOption
}

// New creates a Sheets remote authenticated with a service account.
func New(ctx context.Context, o Options) (*Client, error) {
	if strings.TrimSpace(o.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(o.SyncSheet) == "" {
		return nil, errors.New("missing sync sheet name")
	}

	opts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}
	switch {
	case o.CredentialsJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		opts = append(opts, goption.WithCredentialsJSON([]byte(o.CredentialsJSON)))
	case o.CredentialsFile != "":
		b, err := os.ReadFile(o.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Read service account credentials", "path", o.CredentialsFile, "size", len(b))
		opts = append(opts, goption.WithCredentialsJSON(b))
	}
	opts = append(opts, o.ClientOptions...)

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: o.SpreadsheetID,
		syncSheet:     o.SyncSheet,
		summarySheet:  o.SummarySheet,
	}, nil
}

// Push writes snap into the ledger's sync row. A row already holding a newer
// version is left alone.
func (c *Client) Push(ctx context.Context, snap store.Snapshot) error {
	values, err := c.readSync(ctx, "A:D")
	if err != nil {
		return err
	}

	rowNum := len(values) + 1
	if idx := findRow(values, snap.Key); idx >= 0 {
		cols := toStrings(values[idx])
		if len(cols) > colVersion {
			if remote, err := parseVersion(cols[colVersion]); err == nil && remote > snap.Version {
				return fmt.Errorf("%w: remote %d, pushed %d", store.ErrStaleSnapshot, remote, snap.Version)
			}
		}
		rowNum = idx + 1
	}

	row, err := encodeRow(snap)
	if err != nil {
		return err
	}
	rng := fmt.Sprintf("%s!A%d", c.syncSheet, rowNum)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{row}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", rng, err)
	}
	slog.InfoContext(ctx, "Ledger snapshot pushed to sheet",
		"ledger_key", snap.Key,
		"version", snap.Version,
		"range", rng,
		"cells", len(row))

	if c.summarySheet != "" {
		if err := c.writeSummary(ctx, snap); err != nil {
			// The sync row is authoritative; the table is a convenience.
			slog.WarnContext(ctx, "Failed to refresh balance sheet", "ledger_key", snap.Key, "error", err)
		}
	}
	return nil
}

// Pull reads the ledger's sync row back into a snapshot.
func (c *Client) Pull(ctx context.Context, key string) (store.Snapshot, error) {
	values, err := c.readSync(ctx, "A:ZZ")
	if err != nil {
		return store.Snapshot{}, err
	}
	idx := findRow(values, key)
	if idx < 0 {
		return store.Snapshot{}, store.ErrNotFound
	}
	snap, err := decodeRow(values[idx])
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("row %d of %s: %w", idx+1, c.syncSheet, err)
	}
	return snap, nil
}

func (c *Client) readSync(ctx context.Context, cols string) ([][]any, error) {
	rng := fmt.Sprintf("%s!%s", c.syncSheet, cols)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) writeSummary(ctx context.Context, snap store.Snapshot) error {
	clearRng := fmt.Sprintf("%s!A:F", c.summarySheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", clearRng, err)
	}
	rng := fmt.Sprintf("%s!A1", c.summarySheet)
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: summaryRows(snap.Data)}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", rng, err)
	}
	return nil
}
