package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"namelens/internal/dictionary"
	"namelens/internal/translate"
	"namelens/internal/watcher"
)

var (
	batchFormat   string
	batchFile     string
	batchWorkers  int
	batchWatch    bool
	batchNoOracle bool
	batchStrategy string
)

var batchCmd = &cobra.Command{
	Use:   "batch [name]...",
	Short: "Translate many names with bounded concurrency",
	Long: `Translate names given as arguments, read from --file, or read from stdin
(one per line). Each name is translated independently; a failure yields the
original name for that item only.

With --watch, names are streamed from stdin and translated as they arrive
while dictionary files are reloaded whenever they change on disk.

Examples:
  namelens batch a.go b.go c.go
  find src -type f -printf '%f\n' | namelens batch --format json
  namelens batch --file names.txt --workers 4
  tail -f names.log | namelens batch --watch`,
	Run: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchFormat, "format", "human", "Output format (human, json)")
	batchCmd.Flags().StringVar(&batchFile, "file", "", "Read names from this file")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "Concurrent translations (default from config)")
	batchCmd.Flags().BoolVar(&batchWatch, "watch", false, "Stream names from stdin and hot-reload dictionaries")
	batchCmd.Flags().BoolVar(&batchNoOracle, "no-oracle", false, "Never call the oracle")
	batchCmd.Flags().StringVar(&batchStrategy, "strategy", "", "Alias strategy (literal, natural); default from config")
	rootCmd.AddCommand(batchCmd)
}

// BatchResponseCLI is the output of a non-streaming batch
type BatchResponseCLI struct {
	ID          string             `json:"id"`
	Count       int                `json:"count"`
	OracleCalls int                `json:"oracleCalls"`
	Fallbacks   int                `json:"fallbacks"`
	DurationMs  int64              `json:"durationMs"`
	Results     []translate.Result `json:"results"`
}

func runBatch(cmd *cobra.Command, args []string) {
	p := mustBuildPipeline(pipelineOptions{strategy: batchStrategy, noOracle: batchNoOracle})
	defer p.Close()

	ctx, cancel := newContext()
	defer cancel()

	if batchWatch {
		if err := streamBatch(ctx, p, os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	names, err := batchNames(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading names: %v\n", err)
		os.Exit(1)
	}

	workers := batchWorkers
	if workers <= 0 {
		workers = p.cfg.Translate.BatchWorkers
	}
	b := p.translator.TranslateBatch(ctx, names, workers)

	resp := &BatchResponseCLI{
		ID:          b.ID,
		Count:       len(b.Results),
		OracleCalls: b.OracleCalls,
		Fallbacks:   b.Fallbacks,
		DurationMs:  b.Duration.Milliseconds(),
		Results:     b.Results,
	}
	output, err := FormatResponse(resp, OutputFormat(batchFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}

// batchNames collects names from args, --file, or stdin in that order.
func batchNames(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if batchFile != "" {
		f, err := os.Open(batchFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return readNames(f)
	}
	return readNames(os.Stdin)
}

func readNames(r io.Reader) ([]string, error) {
	var names []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			names = append(names, name)
		}
	}
	return names, scanner.Err()
}

// streamBatch translates lines from r as they arrive, writing one result per
// line to w, while a watcher reloads the dictionary.
func streamBatch(ctx context.Context, p *pipeline, r io.Reader, w io.Writer) error {
	wt, err := watcher.New(p.dict, watcher.Options{
		Debounce: time.Duration(p.cfg.Watch.DebounceMs) * time.Millisecond,
		Logger:   p.logger,
		OnReload: func(report dictionary.LoadReport, events []watcher.Event) {
			p.logger.Info("Dictionary reloaded", "version", report.Version, "changes", len(events))
		},
	})
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	if err := wt.Start(ctx); err != nil {
		return err
	}
	defer wt.Stop()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	enc := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			name := strings.TrimSpace(line)
			if name == "" {
				continue
			}
			res := p.translator.Translate(ctx, name)
			if batchFormat == string(FormatJSON) {
				if err := enc.Encode(res); err != nil {
					return err
				}
				continue
			}
			fmt.Fprintln(w, formatResultLine(res))
		}
	}
}
