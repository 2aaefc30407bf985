package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"namelens/internal/config"
	"namelens/internal/dictionary"
	"namelens/internal/paths"
	"namelens/internal/storage"
)

var (
	dictFormat    string
	exportFormat  string
	exportZstd    bool
	exportOut     string
	learnedLimit  int
	learnedLedger bool
	layerName     string
)

var dictCmd = &cobra.Command{
	Use:   "dict",
	Short: "Inspect and export the loaded dictionaries",
}

var dictLookupCmd = &cobra.Command{
	Use:   "lookup <word or phrase>...",
	Short: "Show which layer translates a word or phrase",
	Long: `Look each argument up the way translation does: a multi-word argument is
tried as a phrase, a single word falls back to its morphological stem.

Examples:
  namelens dict lookup hierarchy
  namelens dict lookup "user info"`,
	Args: cobra.MinimumNArgs(1),
	Run:  runDictLookup,
}

var dictCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load every configured layer and report problems",
	Run:   runDictCheck,
}

var dictExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the merged dictionary as one file",
	Long: `Flatten all layers, highest priority winning, into a single dictionary.

Examples:
  namelens dict export --as toml --out words.toml
  namelens dict export --as json --zstd --out words.json.zst`,
	Run: runDictExport,
}

var dictAddLayerCmd = &cobra.Command{
	Use:   "add-layer <kind> <path>...",
	Short: "Register dictionary files in the layer manifest",
	Long: `Append files or doublestar globs to a layer in the manifest
(.namelens/layers.toml by default). Relative paths are resolved against
the manifest's directory when loading.

Examples:
  namelens dict add-layer project-fixed "dictionaries/**/*.json"
  namelens dict add-layer global-learned shared/words.yaml --name shared`,
	Args: cobra.MinimumNArgs(2),
	Run:  runDictAddLayer,
}

var dictLearnedCmd = &cobra.Command{
	Use:   "learned",
	Short: "List entries learned from the oracle",
	Run:   runDictLearned,
}

func init() {
	dictCmd.PersistentFlags().StringVar(&dictFormat, "format", "human", "Output format (human, json)")
	dictExportCmd.Flags().StringVar(&exportFormat, "as", "json", "Dictionary format (json, toml, yaml)")
	dictExportCmd.Flags().BoolVar(&exportZstd, "zstd", false, "Compress the output with zstd")
	dictExportCmd.Flags().StringVar(&exportOut, "out", "", "Output file (default stdout)")
	dictLearnedCmd.Flags().IntVar(&learnedLimit, "limit", 50, "Maximum ledger rows to show")
	dictLearnedCmd.Flags().BoolVar(&learnedLedger, "ledger", false, "Show when each entry was learned, from the usage ledger")
	dictAddLayerCmd.Flags().StringVar(&layerName, "name", "", "Layer name shown in reports")

	dictCmd.AddCommand(dictLookupCmd)
	dictCmd.AddCommand(dictCheckCmd)
	dictCmd.AddCommand(dictExportCmd)
	dictCmd.AddCommand(dictLearnedCmd)
	dictCmd.AddCommand(dictAddLayerCmd)
	rootCmd.AddCommand(dictCmd)
}

// LookupResponseCLI is the output of dict lookup
type LookupResponseCLI struct {
	Version uint64           `json:"version"`
	Entries []LookupEntryCLI `json:"entries"`
}

// LookupEntryCLI is one lookup hit or miss
type LookupEntryCLI struct {
	Query      string  `json:"query"`
	Found      bool    `json:"found"`
	Alias      string  `json:"alias,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Layer      string  `json:"layer,omitempty"`
	Kind       string  `json:"kind,omitempty"`
	Length     int     `json:"length,omitempty"`
	Morph      bool    `json:"morph,omitempty"`
}

// CheckResponseCLI is the output of dict check
type CheckResponseCLI struct {
	Version uint64                 `json:"version"`
	Words   int                    `json:"words"`
	Phrases int                    `json:"phrases"`
	Layers  []dictionary.LayerInfo `json:"layers"`
	Skipped []SkippedLayerCLI      `json:"skipped,omitempty"`
}

// SkippedLayerCLI is a layer that failed to load
type SkippedLayerCLI struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// ManifestResponseCLI is the output of dict add-layer
type ManifestResponseCLI struct {
	Path   string                     `json:"path"`
	Added  int                        `json:"added"`
	Layers []dictionary.ManifestLayer `json:"layers"`
}

// LearnedResponseCLI is the output of dict learned
type LearnedResponseCLI struct {
	Path    string                      `json:"path"`
	Words   map[string]dictionary.Entry `json:"words"`
	Phrases map[string]dictionary.Entry `json:"phrases"`
	History []LearnedHistoryCLI         `json:"history,omitempty"`
}

// LearnedHistoryCLI is one ledger row for a learned entry
type LearnedHistoryCLI struct {
	Key        string  `json:"key"`
	Alias      string  `json:"alias"`
	Confidence float64 `json:"confidence"`
	RunID      string  `json:"runId"`
	LearnedAt  string  `json:"learnedAt"`
}

func runDictLookup(cmd *cobra.Command, args []string) {
	p := mustBuildPipeline(pipelineOptions{noOracle: true, noLedger: true})
	defer p.Close()

	snap := p.dict.Snapshot()
	resp := &LookupResponseCLI{Version: snap.Version(), Entries: make([]LookupEntryCLI, 0, len(args))}
	for _, query := range args {
		resp.Entries = append(resp.Entries, lookup(snap, query))
	}
	printResponse(resp, dictFormat)
}

// lookup resolves query as a phrase when it has several words and as a
// word otherwise.
func lookup(snap *dictionary.Snapshot, query string) LookupEntryCLI {
	keys := strings.Fields(strings.ToLower(query))
	entry := LookupEntryCLI{Query: query}

	var (
		m  dictionary.Match
		ok bool
	)
	switch {
	case len(keys) == 0:
		return entry
	case len(keys) > 1:
		m, ok = snap.ResolvePhrase(keys, 0)
		if ok && m.Length != len(keys) {
			ok = false
		}
	default:
		m, ok = snap.ResolveWord(keys[0])
	}
	if !ok {
		return entry
	}

	entry.Found = true
	entry.Alias = m.Alias
	entry.Confidence = m.Confidence
	entry.Layer = m.Layer
	entry.Kind = m.Kind.String()
	entry.Length = m.Length
	entry.Morph = m.Morph
	return entry
}

func runDictCheck(cmd *cobra.Command, args []string) {
	p := mustBuildPipeline(pipelineOptions{noOracle: true, noLedger: true})
	defer p.Close()

	words, phrases := p.dict.Snapshot().Size()
	resp := &CheckResponseCLI{
		Version: p.report.Version,
		Words:   words,
		Phrases: phrases,
		Layers:  p.report.Layers,
	}
	for _, s := range p.report.Skipped {
		resp.Skipped = append(resp.Skipped, SkippedLayerCLI{Path: s.Path, Kind: s.Kind.String(), Error: s.Err.Error()})
	}
	printResponse(resp, dictFormat)

	if len(resp.Skipped) > 0 {
		os.Exit(1)
	}
}

func runDictExport(cmd *cobra.Command, args []string) {
	format, err := dictionary.ParseFormat(exportFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p := mustBuildPipeline(pipelineOptions{noOracle: true, noLedger: true})
	defer p.Close()

	var w io.Writer = os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}

	if err := dictionary.Export(w, p.dict.Snapshot(), format, exportZstd); err != nil {
		fmt.Fprintf(os.Stderr, "Error exporting dictionary: %v\n", err)
		os.Exit(1)
	}
	if exportOut != "" {
		words, phrases := p.dict.Snapshot().Size()
		p.logger.Info("Exported dictionary", "path", exportOut, "words", words, "phrases", phrases)
	}
}

func runDictLearned(cmd *cobra.Command, args []string) {
	p := mustBuildPipeline(pipelineOptions{noOracle: true, noLedger: !learnedLedger})
	defer p.Close()

	if p.learner == nil {
		fmt.Fprintln(os.Stderr, "Learning is disabled in the configuration")
		os.Exit(1)
	}

	resp := &LearnedResponseCLI{Path: p.learner.Path()}
	f, err := dictionary.ReadFile(resp.Path)
	switch {
	case err == nil:
		resp.Words, resp.Phrases = f.Words, f.Phrases
	case errors.Is(err, fs.ErrNotExist):
		resp.Words, resp.Phrases = map[string]dictionary.Entry{}, map[string]dictionary.Entry{}
	default:
		fmt.Fprintf(os.Stderr, "Error reading learned entries: %v\n", err)
		os.Exit(1)
	}

	if learnedLedger && p.db != nil {
		records, err := p.db.GetLearnedEntries(learnedLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading ledger: %v\n", err)
			os.Exit(1)
		}
		resp.History = learnedHistory(records)
	}
	printResponse(resp, dictFormat)
}

func learnedHistory(records []storage.LearnedRecord) []LearnedHistoryCLI {
	out := make([]LearnedHistoryCLI, 0, len(records))
	for _, r := range records {
		out = append(out, LearnedHistoryCLI{
			Key:        r.Key,
			Alias:      r.Alias,
			Confidence: r.Confidence,
			RunID:      r.RunID,
			LearnedAt:  r.LearnedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return out
}

func sortedEntryKeys(m map[string]dictionary.Entry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runDictAddLayer(cmd *cobra.Command, args []string) {
	root := mustGetRoot()
	cfg := mustLoadConfig(root)

	resp, err := addManifestLayer(root, cfg, args[0], layerName, args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	printResponse(resp, dictFormat)
}

// addManifestLayer records paths under kind in the configured manifest.
func addManifestLayer(root string, cfg *config.Config, kind, name string, layerPaths []string) (*ManifestResponseCLI, error) {
	if cfg.Dictionary.Manifest == "" {
		return nil, fmt.Errorf("no layer manifest configured (dictionary.manifest)")
	}
	path := paths.Resolve(root, cfg.Dictionary.Manifest)
	m, err := dictionary.LoadManifest(path)
	if err != nil {
		return nil, err
	}
	added, err := m.Add(kind, name, layerPaths...)
	if err != nil {
		return nil, err
	}
	if added > 0 {
		if err := m.Save(path); err != nil {
			return nil, err
		}
	}
	return &ManifestResponseCLI{Path: path, Added: added, Layers: m.Layers}, nil
}
