package main

import (
	"log/slog"
	"os"

	"namelens/internal/slogutil"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger := slogutil.NewLogger(os.Stderr, slog.LevelInfo)
		logger.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
