package testutil

import (
	"strings"
	"testing"
)

// NormalizeText makes text stable for comparison: CRLF becomes LF,
// trailing blanks are cut from every line and the result ends with exactly
// one newline.
func NormalizeText(data []byte) []byte {
	s := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	s = strings.TrimRight(strings.Join(lines, "\n"), "\n")
	if s == "" {
		return nil
	}
	return []byte(s + "\n")
}

// Row is one line of a tab-separated golden table.
type Row []string

// ParseTable splits a golden table into rows. Blank lines and lines
// starting with '#' are skipped; every row must have width columns.
func ParseTable(t *testing.T, data []byte, width int) []Row {
	t.Helper()

	var rows []Row
	for i, line := range strings.Split(string(NormalizeText(data)), "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) != width {
			t.Fatalf("line %d: want %d tab-separated columns, got %d: %q", i+1, width, len(cols), line)
		}
		rows = append(rows, Row(cols))
	}
	return rows
}

// FormatTable renders rows the way ParseTable reads them, keeping the
// comment lines of header.
func FormatTable(header []byte, rows []Row) []byte {
	var b strings.Builder
	for _, line := range strings.Split(string(NormalizeText(header)), "\n") {
		if strings.HasPrefix(line, "#") {
			b.WriteString(line + "\n")
		}
	}
	for _, r := range rows {
		b.WriteString(strings.Join(r, "\t") + "\n")
	}
	return []byte(b.String())
}
