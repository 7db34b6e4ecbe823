package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/appraiser/internal/database"
	"github.com/aristath/appraiser/internal/domain"
)

// ReportStore persists finished reports so the HTTP layer can serve the
// latest valuation without re-running the engine.
type ReportStore struct {
	db *database.DB
}

// NewReportStore constructs a store over the reports database.
func NewReportStore(db *database.DB) *ReportStore {
	return &ReportStore{db: db}
}

// Save persists one report.
func (s *ReportStore) Save(ctx context.Context, report domain.Report) error {
	blob, err := msgpack.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report %s: %w", report.ID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (id, symbol, generated_at, payload) VALUES (?, ?, ?, ?)`,
		report.ID, report.Symbol, report.GeneratedAt.Unix(), blob)
	if err != nil {
		return fmt.Errorf("failed to store report %s: %w", report.ID, err)
	}
	return nil
}

// Latest returns the most recent report for a symbol.
func (s *ReportStore) Latest(ctx context.Context, symbol string) (domain.Report, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM reports WHERE symbol = ? ORDER BY generated_at DESC LIMIT 1`,
		symbol).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Report{}, domain.DataUnavailablef("no stored report for %s", symbol)
	}
	if err != nil {
		return domain.Report{}, fmt.Errorf("failed to load latest report for %s: %w", symbol, err)
	}

	var report domain.Report
	if err := msgpack.Unmarshal(blob, &report); err != nil {
		return domain.Report{}, fmt.Errorf("failed to decode report for %s: %w", symbol, err)
	}
	return report, nil
}
