// Package store is the dedup adapter over the inbox sheet: it keeps the
// header schema canonical, answers existence checks by message SID and
// appends new records. All mutable state lives in the external sheet; the
// adapter itself is stateless and safe for concurrent use.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/sluicehq/sluice/internal/logging"
	"github.com/sluicehq/sluice/internal/models"
)

const (
	// Grid size for a freshly created tab.
	newTabRows    = 1000
	newTabMinCols = 12
)

// Sheet is the narrow tabular backend contract.
// *sheets.Client satisfies it; tests use an in-memory fake.
type Sheet interface {
	EnsureTab(ctx context.Context, rows, cols int64) (created bool, err error)
	HeaderRow(ctx context.Context) ([]string, error)
	Column(ctx context.Context, index int) ([]string, error)
	Rows(ctx context.Context) ([][]string, error)
	Append(ctx context.Context, row []string) error
	UpdateHeader(ctx context.Context, header []string) error
}

type Store struct {
	sheet  Sheet
	logger *logging.Logger
}

func New(sheet Sheet, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{sheet: sheet, logger: logger}
}

// EnsureSchema opens the tab, creating it with the canonical header when
// absent. When the live header differs from the canonical list (compared
// case- and whitespace-insensitively) it is rewritten in place; data rows
// are never reordered, so drift is logged for operator attention.
func (s *Store) EnsureSchema(ctx context.Context) error {
	cols := int64(newTabMinCols)
	if c := int64(len(models.Header) + 2); c > cols {
		cols = c
	}

	created, err := s.sheet.EnsureTab(ctx, newTabRows, cols)
	if err != nil {
		return fmt.Errorf("ensure tab: %w", err)
	}
	if created {
		if err := s.sheet.Append(ctx, models.Header); err != nil {
			return fmt.Errorf("seed header: %w", err)
		}
		s.logger.InfoContext(ctx, "created inbox tab with canonical header")
		return nil
	}

	header, err := s.sheet.HeaderRow(ctx)
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if headerMatches(header, models.Header) {
		return nil
	}

	s.logger.WarnContext(ctx, "header drift detected, rewriting header row",
		"found", strings.Join(header, ","),
	)
	if err := s.sheet.UpdateHeader(ctx, models.Header); err != nil {
		return fmt.Errorf("rewrite header: %w", err)
	}
	return nil
}

// Exists reports whether a record with the given message SID is already
// persisted. Empty SIDs never exist. The lookup resolves the SID column from
// the live header and scans the full column; there is no index structure at
// the dataset sizes this service targets.
func (s *Store) Exists(ctx context.Context, sid string) (bool, error) {
	if sid == "" {
		return false, nil
	}

	header, err := s.sheet.HeaderRow(ctx)
	if err != nil {
		return false, fmt.Errorf("read header: %w", err)
	}

	col := columnIndex(header, models.SIDColumn)
	if col < 0 {
		return false, nil
	}

	values, err := s.sheet.Column(ctx, col)
	if err != nil {
		return false, fmt.Errorf("read sid column: %w", err)
	}

	if len(values) <= 1 {
		return false, nil
	}
	for _, v := range values[1:] { // skip header
		if v == sid {
			return true, nil
		}
	}
	return false, nil
}

// Append persists one record. Not transactional with Exists; concurrent
// deliveries of the same SID are serialized by the pipeline's lock.
func (s *Store) Append(ctx context.Context, record models.Record) error {
	if err := s.sheet.Append(ctx, record.Row()); err != nil {
		return fmt.Errorf("append record %s: %w", record.MessageSID, err)
	}
	return nil
}

// Recent returns the trailing limit data rows in insertion order, each
// projected onto the live header. Short rows pad missing trailing columns
// with empty strings.
func (s *Store) Recent(ctx context.Context, limit int) ([]map[string]string, error) {
	rows, err := s.sheet.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	out := []map[string]string{}
	if len(rows) <= 1 {
		return out, nil
	}

	header, data := rows[0], rows[1:]
	if limit > 0 && len(data) > limit {
		data = data[len(data)-limit:]
	}

	for _, row := range data {
		rec := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(row) {
				rec[name] = row[i]
			} else {
				rec[name] = ""
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// headerMatches compares two header rows ignoring case and surrounding
// whitespace, requiring the same length and order.
func headerMatches(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if !strings.EqualFold(strings.TrimSpace(got[i]), strings.TrimSpace(want[i])) {
			return false
		}
	}
	return true
}

// columnIndex resolves a column name against the live header, case- and
// whitespace-insensitively. Returns -1 when absent.
func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}
