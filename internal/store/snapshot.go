package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Bruno-te/Code-Crafters/internal/domain"
)

// ExportVersion tags snapshot documents with the export format revision.
const ExportVersion = "1.0"

// ExportSnapshot builds the point-in-time reporting document: headline
// summary, the most recent limit transactions, and the three
// distributions. activeUsers counts distinct phone numbers within the
// sampled transactions only.
func (s *Store) ExportSnapshot(ctx context.Context, limit int) (*domain.Snapshot, error) {
	agg, err := aggregate(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("computing snapshot aggregates: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, amount, category, status, phone
		FROM transactions ORDER BY date DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying snapshot sample: %w", err)
	}
	defer rows.Close()

	var sample []domain.SnapshotRow
	phones := map[string]struct{}{}
	for rows.Next() {
		var row domain.SnapshotRow
		var date, phone sql.NullString
		if err := rows.Scan(&row.ID, &date, &row.Amount, &row.Category, &row.Status, &phone); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		row.Date = date.String
		if phone.Valid {
			row.Phone = &phone.String
			phones[phone.String] = struct{}{}
		}
		sample = append(sample, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshot sample: %w", err)
	}

	return &domain.Snapshot{
		Summary: domain.SnapshotSummary{
			TotalTransactions: agg.TotalTransactions,
			TotalAmount:       agg.TotalAmount,
			SuccessRate:       agg.SuccessRate,
			ActiveUsers:       len(phones),
		},
		Transactions: sample,
		Analytics: domain.SnapshotAnalytics{
			CategoryDistribution: agg.CategoryDistribution,
			AmountDistribution:   agg.AmountDistribution,
			GeographicData:       agg.RegionDistribution,
		},
		ExportedAt:    time.Now().UTC(),
		ExportVersion: ExportVersion,
	}, nil
}
