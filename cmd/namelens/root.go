package main

import (
	"github.com/spf13/cobra"

	"namelens/internal/version"
)

var (
	// rootFlag overrides project root discovery
	rootFlag  string
	verbosity int
	quiet     bool
)

var rootCmd = &cobra.Command{
	Use:   "namelens",
	Short: "namelens - localized aliases for file and folder names",
	Long: `namelens turns programmer-style file and folder names into readable aliases
in another language. Names are split into tokens, resolved against layered
dictionaries, and only tokens worth the cost are sent to a translation oracle.
Oracle answers are learned so the same token is never asked twice.`,
	Version:      version.Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.SetVersionTemplate("namelens version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "",
		"Project root (default: nearest directory with .namelens or .git)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Silence all logging")
}
