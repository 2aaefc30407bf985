package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"namelens/internal/alias"
	"namelens/internal/config"
	"namelens/internal/coverage"
	"namelens/internal/dictionary"
	nlerrors "namelens/internal/errors"
	"namelens/internal/guard"
	"namelens/internal/learning"
	"namelens/internal/numeral"
	"namelens/internal/oracle"
	"namelens/internal/paths"
	"namelens/internal/segment"
	"namelens/internal/slogutil"
	"namelens/internal/storage"
	"namelens/internal/translate"
)

// pipelineOptions are per-command overrides of the configuration.
type pipelineOptions struct {
	strategy   string
	noOracle   bool
	forceReask bool
	noLedger   bool
}

// pipeline holds every component built from one Config.
type pipeline struct {
	root       string
	cfg        *config.Config
	logger     *slog.Logger
	factory    *slogutil.LoggerFactory
	dict       *dictionary.Dictionary
	report     dictionary.LoadReport
	segmenter  *segment.Segmenter
	guard      *guard.Guard
	builder    *alias.Builder
	learner    *learning.Writer
	db         *storage.DB
	registry   *prometheus.Registry
	translator *translate.Translator
}

// buildPipeline converts cfg into component options and wires them. Only
// configuration errors fail; an unusable oracle or ledger is logged and
// left out.
func buildPipeline(root string, cfg *config.Config, opts pipelineOptions) (*pipeline, error) {
	p := &pipeline{
		root:     root,
		cfg:      cfg,
		logger:   newLogger(),
		factory:  slogutil.NewLoggerFactory(root, cfg, cliLevel()),
		registry: prometheus.NewRegistry(),
	}
	translateLog := p.teeLogger(slogutil.SubsystemTranslate)
	oracleLog := p.teeLogger(slogutil.SubsystemOracle)

	strategy, err := alias.ParseStrategy(firstNonEmpty(opts.strategy, cfg.Translate.Strategy))
	if err != nil {
		return nil, err
	}
	numerals, err := numeral.ParseMode(cfg.Translate.NumeralMode)
	if err != nil {
		return nil, err
	}
	extMode, err := alias.ParseExtensionMode(cfg.Translate.ExtensionMode)
	if err != nil {
		return nil, err
	}

	var categories *alias.Categories
	if cfg.Dictionary.Categories != "" {
		categories, err = alias.LoadCategories(paths.Resolve(root, cfg.Dictionary.Categories))
		if err != nil {
			return nil, fmt.Errorf("loading categories: %w", err)
		}
	}

	sources, err := dictionarySources(root, cfg)
	if err != nil {
		return nil, err
	}
	p.dict = dictionary.New(dictionary.Options{Builtin: cfg.Dictionary.Builtin, Logger: translateLog})
	p.report = p.dict.Load(sources)

	p.segmenter = newSegmenter(cfg)
	p.guard = guard.New(guard.Options{
		Stopwords:          cfg.Guard.Stopwords,
		KeepEnglish:        cfg.Guard.KeepEnglish,
		AcronymWhitelist:   cfg.Guard.AcronymWhitelist,
		UserWhitelist:      cfg.Guard.UserWhitelist,
		CustomRules:        guardRules(cfg.Guard.CustomRules),
		IntelligentNumeral: cfg.Guard.IntelligentNumeral,
		Logger:             translateLog,
	})
	renderer := numeral.NewRenderer(numerals)
	p.builder = alias.NewBuilder(alias.Options{
		Joiner:            cfg.Translate.Joiner,
		ExtensionMode:     extMode,
		LiteralExtensions: cfg.Dictionary.LiteralExtensions,
		NaturalExtensions: cfg.Dictionary.NaturalExtensions,
		MaxAliasLength:    cfg.Translate.MaxAliasLength,
		Numerals:          renderer,
		Categories:        categories,
	})
	checker := coverage.New(coverage.Options{
		Stopwords: cfg.Guard.Stopwords,
		Segmenter: p.segmenter,
		Numerals:  renderer,
	})

	var o oracle.Oracle
	if cfg.Oracle.Enabled && !opts.noOracle {
		o = newOracle(cfg.Oracle, p.logger)
	}

	if cfg.Learning.Enabled {
		policy, err := learning.ParseKeyPolicy(cfg.Learning.KeyPolicy)
		if err != nil {
			return nil, err
		}
		path := paths.LearnedPath(root)
		if cfg.Learning.Path != "" {
			path = resolveLayerPath(root, cfg.Learning.Path)
		}
		p.learner = learning.NewWriter(p.dict, learning.Options{
			Path:   path,
			Kind:   dictionary.ProjectLearned,
			Policy: policy,
			Logger: translateLog,
		})
	}

	var ledger translate.Ledger
	if cfg.Ledger.Enabled && !opts.noLedger {
		db, err := storage.Open(root, translateLog)
		if err != nil {
			p.logger.Warn("Usage ledger unavailable", "error", err)
		} else {
			p.db = db
			ledger = db
			if cfg.Ledger.RetentionDays > 0 {
				cutoff := time.Now().AddDate(0, 0, -cfg.Ledger.RetentionDays)
				if _, err := db.Prune(cutoff); err != nil {
					p.logger.Warn("Failed to prune ledger", "error", err)
				}
			}
		}
	}

	p.translator = translate.New(translate.Options{
		Strategy:   strategy,
		Dictionary: p.dict,
		Segmenter:  p.segmenter,
		Guard:      p.guard,
		Builder:    p.builder,
		Coverage:   checker,
		Oracle:     o,
		Ask: oracle.AskOptions{
			Timeout:       time.Duration(cfg.Oracle.TimeoutMs) * time.Millisecond,
			MinConfidence: cfg.Oracle.MinConfidence,
			RetryMissing:  cfg.Oracle.RetryMissing,
			Logger:        oracleLog,
		},
		Learner:       p.learner,
		Ledger:        ledger,
		Metrics:       translate.NewMetrics(p.registry),
		CacheSize:     cfg.Translate.CacheSize,
		MaxNameLength: cfg.Translate.MaxNameLength,
		AllowedMisses: cfg.Translate.AllowedMisses,
		ForceReask:    cfg.Learning.ForceReask || opts.forceReask,
		Logger:        translateLog,
	})

	for _, s := range p.report.Skipped {
		p.logger.Warn("Skipped dictionary layer",
			"path", s.Path,
			"kind", s.Kind.String(),
			"error", s.Err,
			"code", string(nlerrors.DictionaryParse),
		)
	}
	if len(p.report.Skipped) > 0 {
		p.logger.Warn("Fix: " + fixHint(nlerrors.DictionaryParse))
	}
	return p, nil
}

// mustBuildPipeline loads the configuration of the current root and builds
// the pipeline, exiting on error.
func mustBuildPipeline(opts pipelineOptions) *pipeline {
	root := mustGetRoot()
	cfg := mustLoadConfig(root)
	p, err := buildPipeline(root, cfg, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return p
}

// Close releases the ledger and log files.
func (p *pipeline) Close() {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			p.logger.Warn("Failed to close ledger", "error", err)
		}
	}
	_ = p.factory.Close()
}

// teeLogger writes to stderr and to the subsystem log file.
func (p *pipeline) teeLogger(subsystem string) *slog.Logger {
	file := p.factory.Logger(subsystem)
	return slogutil.NewTeeLogger(p.logger.Handler(), file.Handler())
}

// dictionarySources lists configured layers followed by manifest layers.
func dictionarySources(root string, cfg *config.Config) ([]dictionary.Source, error) {
	var sources []dictionary.Source
	for _, l := range cfg.Dictionary.Layers {
		kind, err := dictionary.ParseLayerKind(l.Kind)
		if err != nil {
			return nil, err
		}
		for _, path := range l.Paths {
			sources = append(sources, dictionary.Source{Kind: kind, Name: l.Name, Path: resolveLayerPath(root, path)})
		}
	}

	if cfg.Dictionary.Manifest != "" {
		path := paths.Resolve(root, cfg.Dictionary.Manifest)
		m, err := dictionary.LoadManifest(path)
		if err != nil {
			return nil, err
		}
		sources = append(sources, m.Sources(filepath.Dir(path))...)
	}
	return sources, nil
}

// resolveLayerPath maps "~/.namelens/..." to the global home (which honors
// NAMELENS_HOME) and other paths through paths.Resolve.
func resolveLayerPath(root, path string) string {
	prefix := "~/" + paths.DirName + "/"
	if strings.HasPrefix(path, prefix) {
		if home, err := paths.GetHome(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, prefix))
		}
	}
	return paths.Resolve(root, path)
}

func newSegmenter(cfg *config.Config) *segment.Segmenter {
	if !cfg.Dictionary.AcronymSegmentation {
		return segment.New(segment.Options{})
	}
	known := append(guard.DefaultAcronyms(), cfg.Guard.AcronymWhitelist...)
	return segment.New(segment.Options{KnownAcronyms: known})
}

func guardRules(in []config.RuleConfig) []guard.Rule {
	out := make([]guard.Rule, 0, len(in))
	for _, r := range in {
		out = append(out, guard.Rule{Pattern: r.Pattern, Reason: r.Reason})
	}
	return out
}

// newOracle builds the configured provider behind a concurrency limit.
// A provider that cannot be built disables the oracle.
func newOracle(cfg config.OracleConfig, logger *slog.Logger) oracle.Oracle {
	var o oracle.Oracle
	switch cfg.Provider {
	case "static":
		o = oracle.NewStatic(cfg.Static)
	case "openai":
		client, err := oracle.NewOpenAI(oracle.OpenAIOptions{
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			APIKeyEnv:      cfg.APIKeyEnv,
			TargetLanguage: cfg.TargetLanguage,
		})
		if err != nil {
			logger.Warn("Oracle disabled", "provider", cfg.Provider, "error", err)
			return nil
		}
		o = client
	default:
		return nil
	}
	return oracle.NewLimited(o, cfg.MaxConcurrent)
}

// getRoot returns --root, or the nearest directory above the working
// directory holding .namelens or .git.
func getRoot() (string, error) {
	if rootFlag != "" {
		return filepath.Abs(rootFlag)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return paths.FindRoot(wd), nil
}

// mustGetRoot returns the project root or exits on error.
func mustGetRoot() string {
	root, err := getRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return root
}

// mustLoadConfig loads and validates the project configuration or exits.
func mustLoadConfig(root string) *config.Config {
	cfg, err := config.LoadConfig(root)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		if hint := fixHint(nlerrors.ConfigInvalid); hint != "" {
			fmt.Fprintf(os.Stderr, "Try: %s\n", hint)
		}
		os.Exit(1)
	}
	return cfg
}

// fixHint renders the first suggested fix for code, or "" when there is none.
func fixHint(code nlerrors.ErrorCode) string {
	fixes := nlerrors.GetSuggestedFixes(code)
	if len(fixes) == 0 {
		return ""
	}
	f := fixes[0]
	switch f.Type {
	case nlerrors.RunCommand:
		return fmt.Sprintf("%s (%s)", f.Command, f.Description)
	case nlerrors.EditFile:
		return fmt.Sprintf("edit %s: %s", f.Path, f.Description)
	}
	return f.Description
}

// newLogger creates the stderr logger for the -v/-q flags.
func newLogger() *slog.Logger {
	return slogutil.NewLogger(os.Stderr, slogutil.LevelFromVerbosity(verbosity, quiet))
}

// cliLevel returns the level forced by -v/-q, or nil when neither was given.
func cliLevel() *slog.Level {
	if verbosity == 0 && !quiet {
		return nil
	}
	level := slogutil.LevelFromVerbosity(verbosity, quiet)
	return &level
}

// newContext returns a context cancelled on SIGINT or SIGTERM.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
