package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	nlerrors "namelens/internal/errors"
	"namelens/internal/translate"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// printResponse formats resp and prints it, exiting on error.
func printResponse(resp interface{}, format string) {
	output, err := FormatResponse(resp, OutputFormat(format))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *TranslateResponseCLI:
		return formatTranslateHuman(v)
	case *BatchResponseCLI:
		return formatBatchHuman(v)
	case *SegmentResponseCLI:
		return formatSegmentHuman(v)
	case *GuardResponseCLI:
		return formatGuardHuman(v)
	case *LookupResponseCLI:
		return formatLookupHuman(v)
	case *CheckResponseCLI:
		return formatCheckHuman(v)
	case *LearnedResponseCLI:
		return formatLearnedHuman(v)
	case *ManifestResponseCLI:
		return formatManifestHuman(v)
	case *StatsResponseCLI:
		return formatStatsHuman(v)
	case *EnvResponseCLI:
		return formatEnvHuman(v)
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

// formatResultLine renders one result as "name -> alias  [source, coverage]".
func formatResultLine(res translate.Result) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s -> %s  [%s, coverage %.2f, confidence %.2f",
		res.Name, res.Alias, res.Source, res.Coverage, res.Confidence))
	if res.Cached {
		b.WriteString(", cached")
	}
	if res.OracleCalls > 0 {
		b.WriteString(fmt.Sprintf(", %d oracle call(s)", res.OracleCalls))
	}
	if res.OracleError != "" {
		b.WriteString(", " + res.OracleError)
	}
	b.WriteString("]")
	return b.String()
}

func formatTranslateHuman(resp *TranslateResponseCLI) (string, error) {
	var b strings.Builder
	for _, res := range resp.Results {
		b.WriteString(formatResultLine(res) + "\n")
		if len(res.UnknownTokens) > 0 {
			b.WriteString(fmt.Sprintf("    unknown: %s\n", strings.Join(res.UnknownTokens, ", ")))
		}
		if res.DebugTrace != "" {
			b.WriteString(fmt.Sprintf("    trace: %s\n", res.DebugTrace))
		}
		if res.OracleError != "" {
			if hint := fixHint(nlerrors.ErrorCode(res.OracleError)); hint != "" {
				b.WriteString(fmt.Sprintf("    hint: %s\n", hint))
			}
		}
	}

	if len(resp.Metrics) > 0 {
		b.WriteString("\nMetrics:\n")
		for _, m := range resp.Metrics {
			b.WriteString(fmt.Sprintf("  %s%s %g\n", m.Name, formatLabels(m.Labels), m.Value))
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatBatchHuman(resp *BatchResponseCLI) (string, error) {
	var b strings.Builder
	for _, res := range resp.Results {
		b.WriteString(formatResultLine(res) + "\n")
	}
	b.WriteString(strings.Repeat("-", 60) + "\n")
	b.WriteString(fmt.Sprintf("Batch %s: %d names, %d oracle call(s), %d fallback(s), %dms",
		resp.ID, resp.Count, resp.OracleCalls, resp.Fallbacks, resp.DurationMs))
	return b.String(), nil
}

func formatSegmentHuman(resp *SegmentResponseCLI) (string, error) {
	var b strings.Builder
	for i, n := range resp.Names {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(n.Name + "\n")
		if n.Leading != "" {
			b.WriteString(fmt.Sprintf("  leading:   %q\n", n.Leading))
		}
		parts := make([]string, 0, len(n.Tokens))
		for _, t := range n.Tokens {
			parts = append(parts, fmt.Sprintf("%s(%s)", t.Raw, t.Kind))
		}
		b.WriteString(fmt.Sprintf("  tokens:    %s\n", strings.Join(parts, " ")))
		quoted := make([]string, 0, len(n.Delims))
		for _, d := range n.Delims {
			quoted = append(quoted, fmt.Sprintf("%q", d))
		}
		b.WriteString(fmt.Sprintf("  delims:    %s\n", strings.Join(quoted, " ")))
		if n.Extension != "" {
			b.WriteString(fmt.Sprintf("  extension: %s\n", n.Extension))
		}
		if !n.RoundTrip {
			b.WriteString("  WARNING: tokens do not rebuild the name\n")
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatGuardHuman(resp *GuardResponseCLI) (string, error) {
	var b strings.Builder
	for i, n := range resp.Names {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("%s  (%d unknown, %d sent, %d dropped)\n",
			n.Name, n.Stats.Total, n.Stats.Kept, n.Stats.Dropped))
		for _, d := range n.Decisions {
			if d.Dropped {
				b.WriteString(fmt.Sprintf("  - %-20s dropped: %s\n", d.Token, d.Reason))
			} else {
				b.WriteString(fmt.Sprintf("  + %-20s sent to oracle\n", d.Token))
			}
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatLookupHuman(resp *LookupResponseCLI) (string, error) {
	var b strings.Builder
	for _, e := range resp.Entries {
		if !e.Found {
			b.WriteString(fmt.Sprintf("%s: not found\n", e.Query))
			continue
		}
		via := ""
		if e.Morph {
			via = ", via stem"
		}
		b.WriteString(fmt.Sprintf("%s -> %s  [%s layer %q, confidence %.2f%s]\n",
			e.Query, e.Alias, e.Kind, e.Layer, e.Confidence, via))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatCheckHuman(resp *CheckResponseCLI) (string, error) {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Dictionary version %d: %d words, %d phrases\n\n", resp.Version, resp.Words, resp.Phrases))
	b.WriteString("Layers (lowest priority first):\n")
	for _, l := range resp.Layers {
		status := ""
		switch {
		case l.Missing:
			status = " (missing)"
		case l.Reused:
			status = " (unchanged)"
		}
		b.WriteString(fmt.Sprintf("  %-16s %-24s %5d words %4d phrases%s\n",
			l.Kind, l.Name, l.Words, l.Phrases, status))
	}
	if len(resp.Skipped) > 0 {
		b.WriteString("\nSkipped:\n")
		for _, s := range resp.Skipped {
			b.WriteString(fmt.Sprintf("  ✗ %s (%s): %s\n", s.Path, s.Kind, s.Error))
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatManifestHuman(resp *ManifestResponseCLI) (string, error) {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Added %d path(s) to %s\n", resp.Added, resp.Path))
	for _, l := range resp.Layers {
		label := l.Kind
		if l.Name != "" {
			label += " (" + l.Name + ")"
		}
		b.WriteString(fmt.Sprintf("  %s\n", label))
		for _, p := range l.Paths {
			b.WriteString(fmt.Sprintf("    %s\n", p))
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatLearnedHuman(resp *LearnedResponseCLI) (string, error) {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Learned entries in %s\n", resp.Path))
	if len(resp.Words)+len(resp.Phrases) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, k := range sortedEntryKeys(resp.Words) {
		b.WriteString(fmt.Sprintf("  %-24s %s (%.2f)\n", k, resp.Words[k].Alias, resp.Words[k].Confidence))
	}
	for _, k := range sortedEntryKeys(resp.Phrases) {
		b.WriteString(fmt.Sprintf("  %-24s %s (%.2f)\n", k, resp.Phrases[k].Alias, resp.Phrases[k].Confidence))
	}

	if len(resp.History) > 0 {
		b.WriteString("\nHistory:\n")
		for _, h := range resp.History {
			b.WriteString(fmt.Sprintf("  %s  %-20s %s  run %s\n", h.LearnedAt, h.Key, h.Alias, shortID(h.RunID)))
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatStatsHuman(resp *StatsResponseCLI) (string, error) {
	s := resp.Summary
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Last %d days\n", resp.Days))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	b.WriteString(fmt.Sprintf("Translations:   %d (%d cached)\n", s.Translations, s.Cached))
	sources := make([]string, 0, len(s.BySource))
	for src := range s.BySource {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	for _, src := range sources {
		b.WriteString(fmt.Sprintf("  %-12s %d\n", src, s.BySource[src]))
	}
	b.WriteString(fmt.Sprintf("Avg coverage:   %.2f\n", s.AvgCoverage))
	b.WriteString(fmt.Sprintf("Avg duration:   %.1fms\n\n", s.AvgDurationMs))

	b.WriteString(fmt.Sprintf("Unknown tokens: %d (%d sent, %d dropped, %.0f%% drop rate)\n",
		s.GuardTotal, s.GuardKept, s.GuardDropped, resp.DropRate*100))
	for _, r := range resp.TopReasons {
		b.WriteString(fmt.Sprintf("  %-12s %d\n", r, s.Reasons[r]))
	}
	b.WriteString(fmt.Sprintf("Oracle calls:   %d (%d failed)\n", s.OracleCalls, s.OracleErrors))
	b.WriteString(fmt.Sprintf("Learned:        %d\n", s.Learned))

	if len(resp.Recent) > 0 {
		b.WriteString("\nRecent:\n")
		for _, r := range resp.Recent {
			b.WriteString(fmt.Sprintf("  %s  %s -> %s [%s]\n", r.RecordedAt, r.Name, r.Alias, r.Source))
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatEnvHuman(resp *EnvResponseCLI) (string, error) {
	var b strings.Builder
	for _, v := range resp.Variables {
		if v.Set {
			b.WriteString(fmt.Sprintf("%s=%s\n", v.Name, v.Value))
		} else {
			b.WriteString(v.Name + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// MetricCLI is one gathered sample. Histograms report their sample count.
type MetricCLI struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
}

// gatherMetrics flattens the registry into name/labels/value rows.
func gatherMetrics(reg *prometheus.Registry) []MetricCLI {
	if reg == nil {
		return nil
	}
	families, err := reg.Gather()
	if err != nil {
		return nil
	}

	var out []MetricCLI
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			row := MetricCLI{Name: mf.GetName()}
			if pairs := m.GetLabel(); len(pairs) > 0 {
				row.Labels = make(map[string]string, len(pairs))
				for _, lp := range pairs {
					row.Labels[lp.GetName()] = lp.GetValue()
				}
			}
			switch {
			case m.GetCounter() != nil:
				row.Value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				row.Value = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				row.Name += "_count"
				row.Value = float64(m.GetHistogram().GetSampleCount())
			}
			out = append(out, row)
		}
	}
	return out
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, labels[k]))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
