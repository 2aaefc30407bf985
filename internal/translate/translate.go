// Package translate is the single entry point of the pipeline: segment,
// resolve, guard, ask the oracle, learn, build and check coverage.
package translate

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime/debug"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"namelens/internal/alias"
	"namelens/internal/coverage"
	"namelens/internal/dictionary"
	nlerrors "namelens/internal/errors"
	"namelens/internal/guard"
	"namelens/internal/learning"
	"namelens/internal/oracle"
	"namelens/internal/segment"
	"namelens/internal/slogutil"
	"namelens/internal/storage"
)

// Ledger receives one record per translation and per learned batch.
// *storage.DB satisfies it.
type Ledger interface {
	RecordTranslation(rec storage.TranslationRecord) error
	RecordLearned(records []storage.LearnedRecord) error
}

// Options wires the collaborators of a Translator. Only Dictionary is
// required in practice; every nil collaborator disables its stage.
type Options struct {
	Strategy   alias.Strategy
	Dictionary *dictionary.Dictionary
	Segmenter  *segment.Segmenter
	Guard      *guard.Guard
	Builder    *alias.Builder
	Coverage   *coverage.Checker
	Oracle     oracle.Oracle
	Ask        oracle.AskOptions
	Learner    *learning.Writer
	Ledger     Ledger
	Metrics    *Metrics

	// CacheSize bounds the result cache; 0 disables it.
	CacheSize int
	// MaxNameLength rejects longer names (in runes) with the fallback
	// result; 0 means unlimited.
	MaxNameLength int
	// AllowedMisses is passed to the coverage check of natural output.
	AllowedMisses int
	// ForceReask sends learned words to the oracle again and lets the
	// answers overwrite the learned entries.
	ForceReask bool
	// RunID tags ledger rows; a random id is used when empty.
	RunID  string
	Logger *slog.Logger
}

// Result is an alias plus what it took to produce it.
type Result struct {
	Name string `json:"name"`
	alias.Result
	Strategy    alias.Strategy `json:"strategy"`
	Guard       guard.Stats    `json:"guard"`
	OracleCalls int            `json:"oracleCalls"`
	OracleError string         `json:"oracleError,omitempty"`
	Learned     int            `json:"learned,omitempty"`
	Cached      bool           `json:"cached,omitempty"`
	Duration    time.Duration  `json:"-"`
}

// Translator is safe for concurrent use.
type Translator struct {
	opts   Options
	cache  *resultCache
	logger *slog.Logger
}

// New creates a Translator, filling unset collaborators with defaults.
func New(opts Options) *Translator {
	if opts.Segmenter == nil {
		opts.Segmenter = segment.New(segment.Options{})
	}
	if opts.Builder == nil {
		opts.Builder = alias.NewBuilder(alias.Options{})
	}
	if opts.Coverage == nil {
		opts.Coverage = coverage.New(coverage.Options{Segmenter: opts.Segmenter})
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	t := &Translator{
		opts:   opts,
		logger: slogutil.OrDiscard(opts.Logger),
	}
	if opts.CacheSize > 0 {
		t.cache = newResultCache(opts.CacheSize)
	}
	return t
}

// RunID returns the id written to ledger rows.
func (t *Translator) RunID() string {
	return t.opts.RunID
}

// Strategy returns the configured strategy.
func (t *Translator) Strategy() alias.Strategy {
	return t.opts.Strategy
}

// Translate produces the alias for name with the configured strategy. It
// never fails: the worst case is name itself with confidence 0 and source
// fallback.
func (t *Translator) Translate(ctx context.Context, name string) Result {
	return t.TranslateStrategy(ctx, t.opts.Strategy, name)
}

// TranslateStrategy is Translate with an explicit strategy.
func (t *Translator) TranslateStrategy(ctx context.Context, strategy alias.Strategy, name string) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := nlerrors.Newf(nlerrors.InternalError, "translate %q: %v", name, r)
			t.logger.Error("Translation panicked",
				"name", name,
				"error", err,
				"stack", string(debug.Stack()),
			)
			res = fallback(name, strategy, fmt.Sprintf("internal error: %v", r))
		}
		res.Duration = time.Since(start)
		t.finish(res)
	}()

	if t.opts.MaxNameLength > 0 && utf8.RuneCountInString(name) > t.opts.MaxNameLength {
		return fallback(name, strategy, fmt.Sprintf("name exceeds %d characters", t.opts.MaxNameLength))
	}

	snap := t.snapshot()
	if t.cache != nil && !t.opts.ForceReask {
		if hit, ok := t.cache.get(strategy, snap.Version(), name); ok {
			hit.Cached = true
			hit.Guard = guard.Stats{}
			hit.OracleCalls = 0
			hit.OracleError = ""
			hit.Learned = 0
			return hit
		}
	}

	res, used := t.run(ctx, strategy, name, snap)

	if t.cache != nil && res.OracleError == "" {
		t.cache.add(strategy, used.Version(), name, res)
	}
	return res
}

// run translates name against snap and returns the result with the snapshot
// it was built from. A reload during the run does not move that snapshot.
func (t *Translator) run(ctx context.Context, strategy alias.Strategy, name string, snap *dictionary.Snapshot) (Result, *dictionary.Snapshot) {
	res := Result{Name: name, Strategy: strategy}
	seg := t.opts.Segmenter.Segment(name)
	b := t.opts.Builder

	plan := b.Resolve(name, seg, snap, nil)

	var fresh map[string]string
	if t.opts.Guard != nil {
		candidates := plan.Unknown()
		if t.opts.ForceReask {
			candidates = append(candidates, learnedKeys(plan, snap)...)
		}
		send, stats := t.opts.Guard.FilterUnknown(candidates, guard.Context{FileName: name, Tokens: seg.Keys()})
		res.Guard = stats

		if len(send) > 0 && t.opts.Oracle != nil {
			resp, out := oracle.Ask(ctx, t.opts.Oracle, oracle.Request{FileName: name, UnknownTokens: send}, t.askOptions())
			res.OracleCalls = out.Calls
			if out.Err != nil {
				res.OracleError = string(oracle.Classify(out.Err))
			}
			t.opts.Metrics.observeOracle(out)
			if len(resp) > 0 {
				fresh = resp.Aliases()
				if learned, next := t.learn(name, resp); next != nil {
					res.Learned = learned
					snap = next
				}
			}
		}
	}
	if len(fresh) > 0 {
		plan = b.Resolve(name, seg, snap, fresh)
	}

	res.Result = b.Build(strategy, plan)
	if strategy == alias.Natural {
		detail := t.opts.Coverage.Detail(snap, fresh, name, res.Alias, t.opts.AllowedMisses)
		if !detail.Sufficient {
			lit := b.Literal(plan)
			lit.Source = alias.SourceFallback
			lit.Confidence = math.Max(0, lit.Confidence-0.1)
			lit.DebugTrace = fmt.Sprintf("coverage: natural alias %q missed %s; used literal",
				res.Alias, strings.Join(detail.Missing(), ","))
			t.logger.Warn("Natural alias failed coverage",
				"name", name,
				"alias", res.Alias,
				"missing", strings.Join(detail.Missing(), ","),
				"code", string(nlerrors.CoverageInsufficient),
			)
			t.opts.Metrics.observeCoverageFallback()
			res.Result = lit
		}
	}
	return res, snap
}

// learn writes oracle answers to the learned layer and returns the number
// of new keys and the snapshot that contains them.
func (t *Translator) learn(name string, resp oracle.Response) (int, *dictionary.Snapshot) {
	if t.opts.Learner == nil {
		return 0, nil
	}
	answers := make(map[string]dictionary.Entry, len(resp))
	for k, a := range resp {
		answers[k] = dictionary.Entry{Alias: a.Alias, Confidence: a.Confidence}
	}

	lr, err := t.opts.Learner.Learn(answers, t.opts.ForceReask)
	if err != nil {
		t.logger.Warn("Failed to persist learned entries", "name", name, "error", err)
		return 0, nil
	}
	if lr.Learned() == 0 {
		return 0, lr.Snapshot
	}
	t.opts.Metrics.observeLearned(lr.Learned())

	if t.opts.Ledger != nil {
		now := time.Now()
		records := make([]storage.LearnedRecord, 0, len(lr.Entries))
		for k, e := range lr.Entries {
			records = append(records, storage.LearnedRecord{
				RunID:      t.opts.RunID,
				Key:        k,
				Alias:      e.Alias,
				Confidence: e.Confidence,
				Phrase:     strings.Contains(k, " "),
				Path:       t.opts.Learner.Path(),
				LearnedAt:  now,
			})
		}
		if err := t.opts.Ledger.RecordLearned(records); err != nil {
			t.logger.Warn("Failed to record learned entries", "error", err)
		}
	}
	return lr.Learned(), lr.Snapshot
}

// finish reports a completed translation to metrics, the ledger and the log.
func (t *Translator) finish(res Result) {
	t.opts.Metrics.observe(res)

	t.logger.Debug("Translated name",
		"name", res.Name,
		"alias", res.Alias,
		"source", string(res.Source),
		"coverage", res.Coverage,
		"oracleCalls", res.OracleCalls,
		"cached", res.Cached,
		"duration", res.Duration,
	)

	if t.opts.Ledger == nil {
		return
	}
	rec := storage.TranslationRecord{
		RunID:        t.opts.RunID,
		Name:         res.Name,
		Strategy:     res.Strategy.String(),
		Alias:        res.Alias,
		Source:       string(res.Source),
		Coverage:     res.Coverage,
		Confidence:   res.Confidence,
		UnknownCount: len(res.UnknownTokens),
		GuardTotal:   res.Guard.Total,
		GuardKept:    res.Guard.Kept,
		GuardDropped: res.Guard.Dropped,
		Reasons:      res.Guard.Reasons,
		OracleCalls:  res.OracleCalls,
		OracleError:  res.OracleError,
		Cached:       res.Cached,
		DurationMs:   res.Duration.Milliseconds(),
		RecordedAt:   time.Now(),
	}
	if err := t.opts.Ledger.RecordTranslation(rec); err != nil {
		t.logger.Warn("Failed to record translation", "name", res.Name, "error", err)
	}
}

func (t *Translator) snapshot() *dictionary.Snapshot {
	if t.opts.Dictionary == nil {
		return dictionary.NewSnapshot(0, nil)
	}
	return t.opts.Dictionary.Snapshot()
}

func (t *Translator) askOptions() oracle.AskOptions {
	opts := t.opts.Ask
	if opts.Logger == nil {
		opts.Logger = t.logger
	}
	return opts
}

// learnedKeys returns word keys the plan resolved from a learned layer.
func learnedKeys(plan alias.Plan, snap *dictionary.Snapshot) []string {
	var out []string
	for _, pc := range plan.Pieces {
		if pc.Source != alias.SourceDictionary || pc.Length != 1 {
			continue
		}
		m, ok := snap.ResolveWord(pc.Key)
		if ok && (m.Kind == dictionary.ProjectLearned || m.Kind == dictionary.GlobalLearned) {
			out = append(out, pc.Key)
		}
	}
	return out
}

func fallback(name string, strategy alias.Strategy, trace string) Result {
	return Result{
		Name:     name,
		Strategy: strategy,
		Result: alias.Result{
			Alias:         name,
			Confidence:    0,
			UnknownTokens: []string{},
			Source:        alias.SourceFallback,
			DebugTrace:    trace,
		},
	}
}
