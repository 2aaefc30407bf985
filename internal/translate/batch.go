package translate

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"namelens/internal/alias"
)

// DefaultBatchWorkers bounds concurrent translations in a batch.
const DefaultBatchWorkers = 4

// Batch is the outcome of TranslateBatch. Results are in input order.
type Batch struct {
	ID          string        `json:"id"`
	Results     []Result      `json:"results"`
	OracleCalls int           `json:"oracleCalls"`
	Fallbacks   int           `json:"fallbacks"`
	Duration    time.Duration `json:"-"`
}

// TranslateBatch translates names with at most workers in flight. Each
// item is independent: a failing item yields its own fallback result and
// the rest carry on. Oracle concurrency is bounded separately by the
// oracle itself.
func (t *Translator) TranslateBatch(ctx context.Context, names []string, workers int) Batch {
	if workers < 1 {
		workers = DefaultBatchWorkers
	}
	start := time.Now()
	b := Batch{
		ID:      uuid.NewString(),
		Results: make([]Result, len(names)),
	}

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, name := range names {
		g.Go(func() error {
			b.Results[i] = t.Translate(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range b.Results {
		b.OracleCalls += r.OracleCalls
		if r.Source == alias.SourceFallback {
			b.Fallbacks++
		}
	}
	b.Duration = time.Since(start)

	t.logger.Info("Translated batch",
		"batch", b.ID,
		"names", len(names),
		"oracleCalls", b.OracleCalls,
		"fallbacks", b.Fallbacks,
		"duration", b.Duration,
	)
	return b
}
