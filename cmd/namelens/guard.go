package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"namelens/internal/guard"
)

var guardFormat string

var guardCmd = &cobra.Command{
	Use:   "guard <name>...",
	Short: "Explain which unknown tokens would reach the oracle",
	Long: `Resolve each name against the dictionaries and show, for every token the
dictionaries cannot translate, whether the cost guard forwards it to the
oracle or drops it and why. No oracle call is made.

Examples:
  namelens guard file-19-test.txt
  namelens guard release-v2-2024-12-31.md --format json`,
	Args: cobra.MinimumNArgs(1),
	Run:  runGuard,
}

func init() {
	guardCmd.Flags().StringVar(&guardFormat, "format", "human", "Output format (human, json)")
	rootCmd.AddCommand(guardCmd)
}

// GuardResponseCLI is the output of guard
type GuardResponseCLI struct {
	Names []GuardedNameCLI `json:"names"`
}

// GuardedNameCLI is the guard verdict for one name
type GuardedNameCLI struct {
	Name      string           `json:"name"`
	Unknown   []string         `json:"unknown"`
	Send      []string         `json:"send"`
	Decisions []guard.Decision `json:"decisions"`
	Stats     guard.Stats      `json:"stats"`
}

func runGuard(cmd *cobra.Command, args []string) {
	p := mustBuildPipeline(pipelineOptions{noOracle: true, noLedger: true})
	defer p.Close()

	snap := p.dict.Snapshot()
	resp := &GuardResponseCLI{Names: make([]GuardedNameCLI, 0, len(args))}
	for _, name := range args {
		seg := p.segmenter.Segment(name)
		plan := p.builder.Resolve(name, seg, snap, nil)
		unknown := plan.Unknown()
		send, stats, decisions := p.guard.Explain(unknown, guard.Context{FileName: name, Tokens: seg.Keys()})
		resp.Names = append(resp.Names, GuardedNameCLI{
			Name:      name,
			Unknown:   unknown,
			Send:      send,
			Decisions: decisions,
			Stats:     stats,
		})
	}

	output, err := FormatResponse(resp, OutputFormat(guardFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}
