// Package pipeline implements the four sequential transaction stages:
// extraction of raw records from XML, normalization into canonical values,
// rule-based classification, and persistence through a store. Record
// failures are isolated per stage; only malformed input or storage outages
// abort a run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Bruno-te/Code-Crafters/internal/config"
	"github.com/Bruno-te/Code-Crafters/internal/domain"
	"github.com/Bruno-te/Code-Crafters/internal/logger"
)

// Persister is the storage surface the load stage runs against.
type Persister interface {
	// UpsertTransactions writes the batch, replacing rows that share an id, and
	// reports how many rows were inserted versus updated. Per-record
	// failures do not abort the batch.
	UpsertTransactions(ctx context.Context, recs []domain.ClassifiedRecord) (inserted, updated int, failures []domain.RecordError, err error)
	// RecomputeMetrics rebuilds the aggregate metrics for the stored data.
	RecomputeMetrics(ctx context.Context) error
}

// StageStats is the per-stage outcome of a run.
type StageStats struct {
	Stage       string  `json:"stage"`
	Successes   int     `json:"successes"`
	Failures    int     `json:"failures"`
	SuccessRate float64 `json:"success_rate"`
}

func newStageStats(stage string, successes, failures int) StageStats {
	rate := 0.0
	if total := successes + failures; total > 0 {
		rate = float64(successes) / float64(total) * 100
	}
	return StageStats{Stage: stage, Successes: successes, Failures: failures, SuccessRate: rate}
}

// RunSummary reports one full pipeline run.
type RunSummary struct {
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Stages     []StageStats `json:"stages"`
	Inserted   int          `json:"inserted"`
	Updated    int          `json:"updated"`
}

// Runner wires the stages together over a shared rule configuration.
type Runner struct {
	cfg        *config.Config
	store      Persister
	extractor  *Extractor
	normalizer *Normalizer
	classifier *Classifier
	dead       *deadLetter
	log        zerolog.Logger
}

// NewRunner builds a runner over the given store.
func NewRunner(cfg *config.Config, store Persister, log zerolog.Logger) *Runner {
	return &Runner{
		cfg:        cfg,
		store:      store,
		extractor:  NewExtractor(cfg, log),
		normalizer: NewNormalizer(cfg, log),
		classifier: NewClassifier(cfg),
		dead:       newDeadLetter(cfg.Pipeline.DeadLetterDir),
		log:        log,
	}
}

// Run pushes one XML document through all four stages. It fails on
// unparseable XML, on storage errors, and on any stage that yields zero
// records; individual bad records are counted, logged and dead-lettered
// instead.
func (r *Runner) Run(ctx context.Context, data []byte) (*RunSummary, error) {
	summary := &RunSummary{StartedAt: time.Now()}

	raw, extractFailures, err := r.extractor.Extract(data)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	extractLog := logger.Stage(r.log, "extract")
	r.dead.write(extractLog, "extract", extractFailures)
	summary.Stages = append(summary.Stages, newStageStats("extract", len(raw), len(extractFailures)))
	extractLog.Info().Int("records", len(raw)).Int("failures", len(extractFailures)).Msg("stage complete")
	if len(raw) == 0 {
		return summary, fmt.Errorf("extract: no transaction records in input")
	}

	normLog := logger.Stage(r.log, "normalize")
	normalized := make([]domain.NormalizedRecord, 0, len(raw))
	var normFailures []domain.RecordError
	for _, rec := range raw {
		out, err := r.normalizer.Normalize(rec)
		if err != nil {
			normLog.Warn().Int("index", rec.Index).Str("id", rec.ID).Err(err).Msg("record dropped")
			normFailures = append(normFailures, domain.RecordError{Index: rec.Index, ID: rec.ID, Err: err.Error(), Raw: rec.RawData})
			continue
		}
		normalized = append(normalized, *out)
	}
	r.dead.write(normLog, "normalize", normFailures)
	summary.Stages = append(summary.Stages, newStageStats("normalize", len(normalized), len(normFailures)))
	normLog.Info().Int("records", len(normalized)).Int("failures", len(normFailures)).Msg("stage complete")
	if len(normalized) == 0 {
		return summary, fmt.Errorf("normalize: no records survived normalization")
	}

	classified := make([]domain.ClassifiedRecord, 0, len(normalized))
	for _, rec := range normalized {
		classified = append(classified, r.classifier.Classify(rec))
	}
	classifyLog := logger.Stage(r.log, "classify")
	summary.Stages = append(summary.Stages, newStageStats("classify", len(classified), 0))
	classifyLog.Info().Int("records", len(classified)).Msg("stage complete")
	if len(classified) == 0 {
		return summary, fmt.Errorf("classify: no records to classify")
	}

	loadLog := logger.Stage(r.log, "load")
	inserted, updated, loadFailures, err := r.store.UpsertTransactions(ctx, classified)
	if err != nil {
		return summary, fmt.Errorf("load: %w", err)
	}
	r.dead.write(loadLog, "load", loadFailures)
	summary.Inserted = inserted
	summary.Updated = updated
	summary.Stages = append(summary.Stages, newStageStats("load", inserted+updated, len(loadFailures)))
	loadLog.Info().
		Int("inserted", inserted).
		Int("updated", updated).
		Int("failures", len(loadFailures)).
		Msg("stage complete")
	if inserted+updated == 0 {
		return summary, fmt.Errorf("load: no records stored")
	}

	if err := r.store.RecomputeMetrics(ctx); err != nil {
		return summary, fmt.Errorf("recompute metrics: %w", err)
	}

	summary.FinishedAt = time.Now()
	return summary, nil
}
