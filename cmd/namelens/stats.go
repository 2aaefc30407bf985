package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"namelens/internal/storage"
)

var (
	statsFormat string
	statsDays   int
	statsRecent int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize oracle usage from the ledger",
	Long: `Summarize translations recorded in the usage ledger: how many tokens the
cost guard dropped and why, how many oracle calls were made, and what was
learned.

Examples:
  namelens stats
  namelens stats --days 30 --recent 10 --format json`,
	Run: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsFormat, "format", "human", "Output format (human, json)")
	statsCmd.Flags().IntVar(&statsDays, "days", 7, "Summarize the last N days")
	statsCmd.Flags().IntVar(&statsRecent, "recent", 0, "Also list the N most recent translations")
	rootCmd.AddCommand(statsCmd)
}

// StatsResponseCLI is the output of stats
type StatsResponseCLI struct {
	Days       int                 `json:"days"`
	Summary    *storage.Summary    `json:"summary"`
	DropRate   float64             `json:"dropRate"`
	TopReasons []string            `json:"topReasons"`
	Recent     []RecentTranslation `json:"recent,omitempty"`
}

// RecentTranslation is one ledger row
type RecentTranslation struct {
	Name        string  `json:"name"`
	Alias       string  `json:"alias"`
	Source      string  `json:"source"`
	Coverage    float64 `json:"coverage"`
	OracleCalls int     `json:"oracleCalls"`
	OracleError string  `json:"oracleError,omitempty"`
	Cached      bool    `json:"cached,omitempty"`
	RecordedAt  string  `json:"recordedAt"`
}

func runStats(cmd *cobra.Command, args []string) {
	p := mustBuildPipeline(pipelineOptions{noOracle: true})
	defer p.Close()

	if p.db == nil {
		fmt.Fprintln(os.Stderr, "Usage ledger is disabled or unavailable")
		os.Exit(1)
	}

	since := time.Now().AddDate(0, 0, -statsDays)
	summary, err := p.db.GetSummary(since)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading ledger: %v\n", err)
		os.Exit(1)
	}

	resp := &StatsResponseCLI{
		Days:       statsDays,
		Summary:    summary,
		DropRate:   summary.DropRate(),
		TopReasons: summary.TopReasons(),
	}
	if statsRecent > 0 {
		records, err := p.db.GetRecentTranslations(statsRecent)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading ledger: %v\n", err)
			os.Exit(1)
		}
		resp.Recent = recentTranslations(records)
	}
	printResponse(resp, statsFormat)
}

func recentTranslations(records []storage.TranslationRecord) []RecentTranslation {
	out := make([]RecentTranslation, 0, len(records))
	for _, r := range records {
		out = append(out, RecentTranslation{
			Name:        r.Name,
			Alias:       r.Alias,
			Source:      r.Source,
			Coverage:    r.Coverage,
			OracleCalls: r.OracleCalls,
			OracleError: r.OracleError,
			Cached:      r.Cached,
			RecordedAt:  r.RecordedAt.Local().Format("2006-01-02 15:04:05"),
		})
	}
	return out
}
