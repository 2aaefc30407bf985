package slogutil

import (
	"io"
	"log/slog"
	"path/filepath"

	"namelens/internal/config"
	"namelens/internal/paths"
)

// Subsystems with their own log file under .namelens/logs/.
const (
	SubsystemTranslate = "translate"
	SubsystemOracle    = "oracle"
)

// LoggerFactory hands out per-subsystem file loggers. Level precedence is
// CLI flag > subsystem level > global level > info.
type LoggerFactory struct {
	root     string
	config   *config.Config
	cliLevel *slog.Level
	closers  []io.Closer
}

// NewLoggerFactory creates a factory. cliLevel is nil when no flag was given.
func NewLoggerFactory(root string, cfg *config.Config, cliLevel *slog.Level) *LoggerFactory {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &LoggerFactory{
		root:     root,
		config:   cfg,
		cliLevel: cliLevel,
	}
}

// Logger returns the file logger for subsystem, or a discarding logger when
// the log file cannot be opened. Logging never blocks translation.
func (f *LoggerFactory) Logger(subsystem string) *slog.Logger {
	if f.root == "" {
		return NewDiscardLogger()
	}
	path := filepath.Join(paths.LogsDir(f.root), subsystem+".log")
	logger, closer, err := OpenLogFile(path, f.EffectiveLevel(subsystem), f.config.Logging.Format,
		f.config.Logging.MaxSize, f.config.Logging.MaxBackups)
	if err != nil {
		return NewDiscardLogger()
	}
	f.closers = append(f.closers, closer)
	return logger.With("subsystem", subsystem)
}

// EffectiveLevel resolves the level for subsystem.
func (f *LoggerFactory) EffectiveLevel(subsystem string) slog.Level {
	if f.cliLevel != nil {
		return *f.cliLevel
	}

	var level string
	switch subsystem {
	case SubsystemTranslate:
		level = f.config.Logging.Translate
	case SubsystemOracle:
		level = f.config.Logging.Oracle
	}
	if level == "" {
		level = f.config.Logging.Level
	}
	if level == "" {
		return slog.LevelInfo
	}
	return LevelFromString(level)
}

// Close closes all open log files.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
