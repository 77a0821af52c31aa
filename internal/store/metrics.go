package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/Bruno-te/Code-Crafters/internal/domain"
)

// queryer abstracts *sql.DB and *sql.Tx for the aggregate readers.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RecomputeMetrics rebuilds every aggregate metric from the full set of
// stored transactions and writes them into the analytics table keyed by
// metric name and day. A rerun on the same day overwrites that day's rows.
// The recompute is all or nothing.
func (s *Store) RecomputeMetrics(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning metrics transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	agg, err := aggregate(ctx, tx)
	if err != nil {
		return fmt.Errorf("computing metrics: %w", err)
	}

	day := time.Now().UTC().Format("2006-01-02")
	put := func(name string, value float64) error {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO analytics (metric_name, metric_value, date)
			VALUES (?, ?, ?)
		`, name, value, day)
		if err != nil {
			return fmt.Errorf("writing metric %s: %w", name, err)
		}
		return nil
	}

	if err := put("total_transactions", float64(agg.TotalTransactions)); err != nil {
		return err
	}
	if err := put("total_amount", agg.TotalAmount); err != nil {
		return err
	}
	if err := put("success_rate", agg.SuccessRate); err != nil {
		return err
	}
	for _, c := range agg.CategoryDistribution {
		if err := put("category_"+c.Category+"_count", float64(c.Count)); err != nil {
			return err
		}
		if err := put("category_"+c.Category+"_amount", c.Amount); err != nil {
			return err
		}
	}
	for _, r := range agg.AmountDistribution {
		if err := put("amount_range_"+r.Range+"_count", float64(r.Count)); err != nil {
			return err
		}
	}
	for _, r := range agg.RegionDistribution {
		if err := put("region_"+r.Region+"_count", float64(r.Count)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing metrics: %w", err)
	}
	s.log.Debug().
		Int("transactions", agg.TotalTransactions).
		Float64("success_rate", agg.SuccessRate).
		Msg("metrics recomputed")
	return nil
}

// Metrics returns the aggregates computed directly from the stored rows.
func (s *Store) Metrics(ctx context.Context) (*domain.AggregateMetrics, error) {
	return aggregate(ctx, s.db)
}

// aggregate reads the aggregates off the transactions table.
func aggregate(ctx context.Context, q queryer) (*domain.AggregateMetrics, error) {
	var agg domain.AggregateMetrics

	var totalAmount sql.NullFloat64
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM transactions",
	).Scan(&agg.TotalTransactions, &totalAmount)
	if err != nil {
		return nil, fmt.Errorf("scanning totals: %w", err)
	}
	agg.TotalAmount = totalAmount.Float64

	if agg.TotalTransactions > 0 {
		var successes int
		err := q.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM transactions WHERE status = 'success'",
		).Scan(&successes)
		if err != nil {
			return nil, fmt.Errorf("scanning success count: %w", err)
		}
		agg.SuccessRate = round1(float64(successes) / float64(agg.TotalTransactions) * 100)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT category, COUNT(*), COALESCE(SUM(amount), 0)
		FROM transactions GROUP BY category ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying category distribution: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c domain.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count, &c.Amount); err != nil {
			return nil, fmt.Errorf("scanning category distribution: %w", err)
		}
		agg.CategoryDistribution = append(agg.CategoryDistribution, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating category distribution: %w", err)
	}

	rangeRows, err := q.QueryContext(ctx, `
		SELECT amount_range, COUNT(*)
		FROM transactions GROUP BY amount_range ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying amount distribution: %w", err)
	}
	defer rangeRows.Close()
	for rangeRows.Next() {
		var r domain.RangeCount
		if err := rangeRows.Scan(&r.Range, &r.Count); err != nil {
			return nil, fmt.Errorf("scanning amount distribution: %w", err)
		}
		agg.AmountDistribution = append(agg.AmountDistribution, r)
	}
	if err := rangeRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating amount distribution: %w", err)
	}

	regionRows, err := q.QueryContext(ctx, `
		SELECT geographic_region, COUNT(*)
		FROM transactions GROUP BY geographic_region ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying region distribution: %w", err)
	}
	defer regionRows.Close()
	for regionRows.Next() {
		var r domain.RegionCount
		if err := regionRows.Scan(&r.Region, &r.Count); err != nil {
			return nil, fmt.Errorf("scanning region distribution: %w", err)
		}
		agg.RegionDistribution = append(agg.RegionDistribution, r)
	}
	if err := regionRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating region distribution: %w", err)
	}

	return &agg, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
