package sheets

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"cricketpay/internal/core"
	"cricketpay/internal/store"
)

// A cell holds at most 50000 characters; stay well below.
const chunkSize = 40000

// Sync rows are laid out as: key | version | updated at | chunk count | chunk...
const (
	colKey = iota
	colVersion
	colUpdatedAt
	colChunks
	colFirstChunk
)

var errMalformedRow = errors.New("malformed sync row")

func encodeRow(snap store.Snapshot) ([]any, error) {
	b, err := json.Marshal(snap.Data)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	chunks := chunk(string(b), chunkSize)
	row := make([]any, 0, colFirstChunk+len(chunks))
	row = append(row,
		snap.Key,
		strconv.FormatInt(snap.Version, 10),
		snap.UpdatedAt.UTC().Format(time.RFC3339),
		strconv.Itoa(len(chunks)),
	)
	for _, c := range chunks {
		row = append(row, c)
	}
	return row, nil
}

func decodeRow(row []any) (store.Snapshot, error) {
	cols := toStrings(row)
	if len(cols) < colFirstChunk {
		return store.Snapshot{}, fmt.Errorf("%w: %d columns", errMalformedRow, len(cols))
	}
	version, err := parseVersion(cols[colVersion])
	if err != nil {
		return store.Snapshot{}, err
	}
	n, err := strconv.Atoi(cols[colChunks])
	if err != nil || n < 1 || len(cols) < colFirstChunk+n {
		return store.Snapshot{}, fmt.Errorf("%w: chunk count %q", errMalformedRow, cols[colChunks])
	}
	// Chunks are raw JSON slices; surrounding spaces are significant.
	var payload strings.Builder
	for _, c := range row[colFirstChunk : colFirstChunk+n] {
		payload.WriteString(fmt.Sprint(c))
	}
	var data core.AppData
	if err := json.Unmarshal([]byte(payload.String()), &data); err != nil {
		return store.Snapshot{}, fmt.Errorf("%w: %v", errMalformedRow, err)
	}
	updated, _ := time.Parse(time.RFC3339, cols[colUpdatedAt])
	return store.Snapshot{Key: cols[colKey], Data: data, Version: version, UpdatedAt: updated}, nil
}

// findRow returns the 0-based index of key's row, or -1.
func findRow(values [][]any, key string) int {
	for i, row := range values {
		if len(row) > colKey && strings.TrimSpace(fmt.Sprint(row[colKey])) == key {
			return i
		}
	}
	return -1
}

// parseVersion tolerates the thousands separators a formatted read may add.
func parseVersion(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: version %q", errMalformedRow, s)
	}
	return v, nil
}

// summaryRows renders the current weekend as a readable table for humans
// browsing the spreadsheet.
func summaryRows(data core.AppData) [][]any {
	totals := core.Totals(data)
	rows := [][]any{
		{"Weekend", totals.AnchorDate.String(), "Matches", totals.Matches, "Outstanding", round2(totals.Outstanding)},
		{"Player", "Previous", "Due", "Paid", "Current", "Status"},
	}
	for _, s := range core.Summaries(data) {
		rows = append(rows, []any{
			s.Player.DisplayName(),
			round2(s.PreviousBalance),
			round2(s.TotalDue),
			round2(s.TotalPaid),
			round2(s.CurrentBalance),
			string(s.Status),
		})
	}
	return rows
}

func round2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func chunk(s string, size int) []string {
	if s == "" {
		return []string{""}
	}
	var out []string
	for len(s) > size {
		cut := size
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		out = append(out, s[:cut])
		s = s[cut:]
	}
	return append(out, s)
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
