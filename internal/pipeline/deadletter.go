package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/Bruno-te/Code-Crafters/internal/domain"
)

// deadLetter appends the records a stage dropped to per-stage JSONL files,
// one file per stage and run date, so failed inputs can be inspected and
// replayed from their raw_data. A zero value (empty dir) discards
// everything.
type deadLetter struct {
	dir string
	now func() time.Time
}

func newDeadLetter(dir string) *deadLetter {
	return &deadLetter{dir: dir, now: time.Now}
}

// write records the failures for one stage. Capture errors are logged and
// swallowed: a broken dead-letter disk must not fail the run itself.
func (d *deadLetter) write(log zerolog.Logger, stage string, failures []domain.RecordError) {
	if d.dir == "" || len(failures) == 0 {
		return
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		log.Warn().Err(err).Str("dir", d.dir).Msg("dead-letter dir unavailable")
		return
	}

	name := fmt.Sprintf("%s-%s.jsonl", stage, d.now().Format("2006-01-02"))
	path := filepath.Join(d.dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("dead-letter file unavailable")
		return
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	// Keep raw XML fragments readable instead of <-escaped.
	enc.SetEscapeHTML(false)
	for _, failure := range failures {
		if err := enc.Encode(failure); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("dead-letter write failed")
			return
		}
	}
	log.Debug().Int("count", len(failures)).Str("path", path).Msg("dead-lettered records")
}
