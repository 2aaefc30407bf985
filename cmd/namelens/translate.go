package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"namelens/internal/translate"
)

var (
	translateFormat     string
	translateStrategy   string
	translateNoOracle   bool
	translateForceReask bool
	translateMetrics    bool
)

var translateCmd = &cobra.Command{
	Use:   "translate <name>...",
	Short: "Translate file or folder names into aliases",
	Long: `Translate one or more names with the configured dictionaries and oracle.

Examples:
  namelens translate analyze_element_hierarchy.cjs
  namelens translate --strategy natural analyze_hierarchy_simple.cjs
  namelens translate --no-oracle --format json get.user.info.py
  namelens translate --force-reask clean-xml-files.js`,
	Args: cobra.MinimumNArgs(1),
	Run:  runTranslate,
}

func init() {
	translateCmd.Flags().StringVar(&translateFormat, "format", "human", "Output format (human, json)")
	translateCmd.Flags().StringVar(&translateStrategy, "strategy", "", "Alias strategy (literal, natural); default from config")
	translateCmd.Flags().BoolVar(&translateNoOracle, "no-oracle", false, "Never call the oracle")
	translateCmd.Flags().BoolVar(&translateForceReask, "force-reask", false, "Ask the oracle again for learned words and overwrite them")
	translateCmd.Flags().BoolVar(&translateMetrics, "metrics", false, "Print in-process metrics after translating")
	rootCmd.AddCommand(translateCmd)
}

// TranslateResponseCLI is the output of translate and batch
type TranslateResponseCLI struct {
	Results []translate.Result `json:"results"`
	Metrics []MetricCLI        `json:"metrics,omitempty"`
}

func runTranslate(cmd *cobra.Command, args []string) {
	p := mustBuildPipeline(pipelineOptions{
		strategy:   translateStrategy,
		noOracle:   translateNoOracle,
		forceReask: translateForceReask,
	})
	defer p.Close()

	ctx, cancel := newContext()
	defer cancel()

	resp := &TranslateResponseCLI{Results: make([]translate.Result, 0, len(args))}
	for _, name := range args {
		resp.Results = append(resp.Results, p.translator.Translate(ctx, name))
	}
	if translateMetrics {
		resp.Metrics = gatherMetrics(p.registry)
	}

	output, err := FormatResponse(resp, OutputFormat(translateFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}
