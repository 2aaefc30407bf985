package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"namelens/internal/segment"
)

var segmentFormat string

var segmentCmd = &cobra.Command{
	Use:   "segment <name>...",
	Short: "Show how names split into tokens",
	Long: `Split names into tokens, delimiters and extension, and check that the
pieces rebuild the original name byte for byte.

Examples:
  namelens segment XMLHttpRequest_v2.ts
  namelens segment --format json __init__.py`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSegment,
}

func init() {
	segmentCmd.Flags().StringVar(&segmentFormat, "format", "human", "Output format (human, json)")
	rootCmd.AddCommand(segmentCmd)
}

// SegmentResponseCLI is the output of segment
type SegmentResponseCLI struct {
	Names []SegmentedNameCLI `json:"names"`
}

// SegmentedNameCLI is one segmented name
type SegmentedNameCLI struct {
	Name      string          `json:"name"`
	Leading   string          `json:"leading,omitempty"`
	Tokens    []segment.Token `json:"tokens"`
	Delims    []string        `json:"delimiters"`
	Extension string          `json:"extension,omitempty"`
	RoundTrip bool            `json:"roundTrip"`
}

func runSegment(cmd *cobra.Command, args []string) {
	root := mustGetRoot()
	cfg := mustLoadConfig(root)
	seg := newSegmenter(cfg)

	resp := &SegmentResponseCLI{Names: make([]SegmentedNameCLI, 0, len(args))}
	for _, name := range args {
		r := seg.Segment(name)
		resp.Names = append(resp.Names, SegmentedNameCLI{
			Name:      name,
			Leading:   r.Leading,
			Tokens:    r.Tokens,
			Delims:    r.Delimiters,
			Extension: r.RawExtension,
			RoundTrip: r.Rebuild() == name,
		})
	}

	output, err := FormatResponse(resp, OutputFormat(segmentFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}
