package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bruno-te/Code-Crafters/internal/config"
	"github.com/Bruno-te/Code-Crafters/internal/domain"
	"github.com/Bruno-te/Code-Crafters/internal/store"
)

// memPersister collects upserted records in memory.
type memPersister struct {
	records    []domain.ClassifiedRecord
	recomputed int
}

func (m *memPersister) UpsertTransactions(_ context.Context, recs []domain.ClassifiedRecord) (int, int, []domain.RecordError, error) {
	m.records = append(m.records, recs...)
	return len(recs), 0, nil, nil
}

func (m *memPersister) RecomputeMetrics(context.Context) error {
	m.recomputed++
	return nil
}

const scenarioXML = `<export>
	<transaction>
		<id>TX100</id>
		<date>2024-01-15 14:30:00</date>
		<amount>1500.00</amount>
		<phone>0241234567</phone>
		<message>Payment received for utility bill</message>
		<status>success</status>
	</transaction>
	<transaction>
		<message>Your one-time password is 998877</message>
	</transaction>
</export>`

func TestRun_EndToEnd(t *testing.T) {
	cfg := config.Default()
	sink := &memPersister{}
	runner := NewRunner(cfg, sink, zerolog.Nop())

	summary, err := runner.Run(context.Background(), []byte(scenarioXML))
	require.NoError(t, err)

	require.Len(t, sink.records, 1)
	rec := sink.records[0]
	assert.Equal(t, "TX100", rec.ID)
	assert.Equal(t, domain.CategoryPayment, rec.Category)
	require.NotNil(t, rec.Phone)
	assert.Equal(t, "+233241234567", *rec.Phone)
	assert.Equal(t, domain.TimeAfternoon, rec.TimeCategory)
	assert.Equal(t, domain.RiskLow, rec.RiskLevel)
	assert.Equal(t, "Greater Accra", rec.Region)

	assert.Equal(t, 1, sink.recomputed)
	require.Len(t, summary.Stages, 4)
	assert.Equal(t, "extract", summary.Stages[0].Stage)
	assert.Equal(t, 1, summary.Stages[0].Successes)
	assert.Equal(t, 0, summary.Stages[0].Failures, "OTP skip is not a failure")
	assert.Equal(t, float64(100), summary.Stages[3].SuccessRate)
	assert.Equal(t, 1, summary.Inserted)
}

func TestRun_PersistsThroughStore(t *testing.T) {
	cfg := config.Default()
	st, err := store.Open(filepath.Join(t.TempDir(), "etl.db"), zerolog.Nop())
	require.NoError(t, err)
	defer st.Close()

	runner := NewRunner(cfg, st, zerolog.Nop())
	_, err = runner.Run(context.Background(), []byte(scenarioXML))
	require.NoError(t, err)

	count, err := st.CountTransactions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRun_StageStats(t *testing.T) {
	// One good record, one failing normalization (amount present, date
	// absent).
	doc := []byte(`<export>
		<sms><date>2024-01-01</date><amount>100</amount></sms>
		<sms><amount>50</amount></sms>
	</export>`)

	cfg := config.Default()
	sink := &memPersister{}
	runner := NewRunner(cfg, sink, zerolog.Nop())

	summary, err := runner.Run(context.Background(), doc)
	require.NoError(t, err)

	require.Len(t, summary.Stages, 4)
	normStats := summary.Stages[1]
	assert.Equal(t, "normalize", normStats.Stage)
	assert.Equal(t, 1, normStats.Successes)
	assert.Equal(t, 1, normStats.Failures)
	assert.Equal(t, float64(50), normStats.SuccessRate)

	require.Len(t, sink.records, 1, "record without a date never reaches the store")
}

func TestRun_EmptyExtractionFails(t *testing.T) {
	cfg := config.Default()
	runner := NewRunner(cfg, &memPersister{}, zerolog.Nop())

	_, err := runner.Run(context.Background(), []byte(`<export><other>x</other></export>`))
	assert.Error(t, err)
}

func TestRun_EmptyNormalizationFails(t *testing.T) {
	// Every fragment extracts (amount present) but none normalizes
	// (date absent everywhere).
	doc := []byte(`<export>
		<sms><amount>50</amount></sms>
		<sms><amount>75</amount></sms>
	</export>`)

	cfg := config.Default()
	sink := &memPersister{}
	runner := NewRunner(cfg, sink, zerolog.Nop())

	summary, err := runner.Run(context.Background(), doc)
	assert.Error(t, err, "run must fail when a stage yields zero records")

	require.NotNil(t, summary)
	require.Len(t, summary.Stages, 2)
	assert.Equal(t, 2, summary.Stages[0].Successes)
	assert.Equal(t, 0, summary.Stages[1].Successes)
	assert.Equal(t, 2, summary.Stages[1].Failures)

	assert.Empty(t, sink.records)
	assert.Equal(t, 0, sink.recomputed, "metrics are not recomputed on a failed run")
}

// failPersister rejects every record without failing the batch itself.
type failPersister struct{}

func (failPersister) UpsertTransactions(_ context.Context, recs []domain.ClassifiedRecord) (int, int, []domain.RecordError, error) {
	failures := make([]domain.RecordError, 0, len(recs))
	for i, rec := range recs {
		failures = append(failures, domain.RecordError{Index: i, ID: rec.ID, Err: "disk full"})
	}
	return 0, 0, failures, nil
}

func (failPersister) RecomputeMetrics(context.Context) error { return nil }

func TestRun_EmptyLoadFails(t *testing.T) {
	cfg := config.Default()
	runner := NewRunner(cfg, failPersister{}, zerolog.Nop())

	summary, err := runner.Run(context.Background(), []byte(scenarioXML))
	assert.Error(t, err, "run must fail when nothing is stored")
	require.NotNil(t, summary)
	require.Len(t, summary.Stages, 4)
	assert.Equal(t, 0, summary.Stages[3].Successes)
}

func TestRun_DeadLetterCapture(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.DeadLetterDir = t.TempDir()

	doc := []byte(`<export>
		<sms><date>2024-01-01</date><amount>100</amount></sms>
		<sms><amount>50</amount></sms>
	</export>`)

	runner := NewRunner(cfg, &memPersister{}, zerolog.Nop())
	_, err := runner.Run(context.Background(), doc)
	require.NoError(t, err)

	entries, err := os.ReadDir(cfg.Pipeline.DeadLetterDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	wantName := "normalize-" + time.Now().Format("2006-01-02") + ".jsonl"
	assert.Equal(t, wantName, entries[0].Name(), "one file per stage and run date")

	data, err := os.ReadFile(filepath.Join(cfg.Pipeline.DeadLetterDir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "date and amount are required")
	// The dropped record's source fragment rides along for replay.
	assert.Contains(t, string(data), "raw_data")
	assert.Contains(t, string(data), `<amount>50</amount>`)
}
