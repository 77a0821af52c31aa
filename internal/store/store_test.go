package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bruno-te/Code-Crafters/internal/domain"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, st.Close()) })
	return st
}

func testRecord(id string, amount float64) domain.ClassifiedRecord {
	date := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	phone := "+233241234567"
	return domain.ClassifiedRecord{
		NormalizedRecord: domain.NormalizedRecord{
			ID:               id,
			Date:             &date,
			Amount:           &amount,
			Phone:            &phone,
			Status:           domain.StatusSuccess,
			Type:             string(domain.CategoryPayment),
			NormalizedAt:     date,
			NormalizeVersion: "1.0",
		},
		Category:        domain.CategoryPayment,
		AmountRange:     domain.AmountMedium,
		TimeCategory:    domain.TimeAfternoon,
		RiskLevel:       domain.RiskLow,
		Region:          "Greater Accra",
		ClassifiedAt:    date,
		ClassifyVersion: "1.0",
	}
}

func TestOpen_RunsMigrations(t *testing.T) {
	st := setupTestStore(t)

	count, err := st.CountTransactions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestUpsertTransactions_Insert(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	inserted, updated, failures, err := st.UpsertTransactions(ctx, []domain.ClassifiedRecord{
		testRecord("TX1", 100),
		testRecord("TX2", 200),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.Equal(t, 0, updated)
	assert.Empty(t, failures)

	count, err := st.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	events, err := st.AuditEvents(ctx, "TX1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "INSERT", events[0].Action)
	assert.Equal(t, "transactions", events[0].TableName)
	assert.Contains(t, events[0].Details, "+233241234567")
}

func TestUpsertTransactions_RejectsMissingDate(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	undated := testRecord("TX1", 100)
	undated.Date = nil
	undated.RawData = "<sms><amount>100</amount></sms>"

	inserted, updated, failures, err := st.UpsertTransactions(ctx, []domain.ClassifiedRecord{
		undated,
		testRecord("TX2", 200),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 0, updated)
	require.Len(t, failures, 1)
	assert.Equal(t, "TX1", failures[0].ID)
	assert.Contains(t, failures[0].Err, "no date")
	assert.Equal(t, undated.RawData, failures[0].Raw)

	count, err := st.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	events, err := st.AuditEvents(ctx, "TX1")
	require.NoError(t, err)
	assert.Empty(t, events, "rejected rows must not leave audit entries")
}

func TestUpsertTransactions_ReplaceKeepsRowCount(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	_, _, _, err := st.UpsertTransactions(ctx, []domain.ClassifiedRecord{testRecord("TX1", 100)})
	require.NoError(t, err)

	inserted, updated, failures, err := st.UpsertTransactions(ctx, []domain.ClassifiedRecord{testRecord("TX1", 999)})
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.Equal(t, 1, updated)
	assert.Empty(t, failures)

	count, err := st.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "replace must not grow the table")

	var amount float64
	err = st.db.QueryRowContext(ctx, "SELECT amount FROM transactions WHERE id = 'TX1'").Scan(&amount)
	require.NoError(t, err)
	assert.Equal(t, 999.0, amount)

	events, err := st.AuditEvents(ctx, "TX1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "INSERT", events[0].Action)
	assert.Equal(t, "UPDATE", events[1].Action)
}

func TestUpsertTransactions_GeneratesMissingID(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	rec := testRecord("", 50)
	inserted, _, failures, err := st.UpsertTransactions(ctx, []domain.ClassifiedRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.Empty(t, failures)

	var id string
	err = st.db.QueryRowContext(ctx, "SELECT id FROM transactions").Scan(&id)
	require.NoError(t, err)
	assert.Len(t, id, 32)
}

func TestRecomputeMetrics(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	failed := testRecord("TX2", 300)
	failed.Status = domain.StatusFailed
	_, _, _, err := st.UpsertTransactions(ctx, []domain.ClassifiedRecord{
		testRecord("TX1", 100),
		failed,
	})
	require.NoError(t, err)

	require.NoError(t, st.RecomputeMetrics(ctx))

	readMetric := func(name string) float64 {
		var v float64
		err := st.db.QueryRowContext(ctx,
			"SELECT metric_value FROM analytics WHERE metric_name = ?", name).Scan(&v)
		require.NoError(t, err, "metric %s", name)
		return v
	}

	assert.Equal(t, 2.0, readMetric("total_transactions"))
	assert.Equal(t, 400.0, readMetric("total_amount"))
	assert.Equal(t, 50.0, readMetric("success_rate"))
	assert.Equal(t, 2.0, readMetric("category_payment_count"))
}

func TestRecomputeMetrics_SameDayOverwrites(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	_, _, _, err := st.UpsertTransactions(ctx, []domain.ClassifiedRecord{testRecord("TX1", 100)})
	require.NoError(t, err)
	require.NoError(t, st.RecomputeMetrics(ctx))

	_, _, _, err = st.UpsertTransactions(ctx, []domain.ClassifiedRecord{testRecord("TX2", 100)})
	require.NoError(t, err)
	require.NoError(t, st.RecomputeMetrics(ctx))

	var rows int
	err = st.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM analytics WHERE metric_name = 'total_transactions'").Scan(&rows)
	require.NoError(t, err)
	assert.Equal(t, 1, rows, "same-day recompute overwrites the row")

	var v float64
	err = st.db.QueryRowContext(ctx,
		"SELECT metric_value FROM analytics WHERE metric_name = 'total_transactions'").Scan(&v)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
}

func TestExportSnapshot(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	otherPhone := "+233501234567"
	third := testRecord("TX3", 50)
	third.Phone = &otherPhone
	_, _, _, err := st.UpsertTransactions(ctx, []domain.ClassifiedRecord{
		testRecord("TX1", 100),
		testRecord("TX2", 200),
		third,
	})
	require.NoError(t, err)

	snap, err := st.ExportSnapshot(ctx, 2)
	require.NoError(t, err)

	assert.Equal(t, 3, snap.Summary.TotalTransactions)
	assert.Equal(t, 350.0, snap.Summary.TotalAmount)
	assert.Equal(t, 100.0, snap.Summary.SuccessRate)
	assert.Len(t, snap.Transactions, 2, "sample bounded by limit")
	assert.Equal(t, ExportVersion, snap.ExportVersion)
	assert.False(t, snap.ExportedAt.IsZero())

	require.NotEmpty(t, snap.Analytics.CategoryDistribution)
	assert.Equal(t, "payment", snap.Analytics.CategoryDistribution[0].Category)
	assert.Equal(t, 3, snap.Analytics.CategoryDistribution[0].Count)
}

func TestExportSnapshot_ActiveUsersWithinSample(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	// Two distinct phones across three rows.
	otherPhone := "+233501234567"
	second := testRecord("TX2", 20)
	second.Phone = &otherPhone
	_, _, _, err := st.UpsertTransactions(ctx, []domain.ClassifiedRecord{
		testRecord("TX1", 10),
		second,
		testRecord("TX3", 30),
	})
	require.NoError(t, err)

	snap, err := st.ExportSnapshot(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Summary.ActiveUsers)
}
