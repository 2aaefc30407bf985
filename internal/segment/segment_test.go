package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raws(r Result) []string {
	out := make([]string, len(r.Tokens))
	for i, t := range r.Tokens {
		out[i] = t.Raw
	}
	return out
}

func TestSegment_Tokens(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantTokens []string
		wantDelims []string
		wantExt    string
	}{
		{"snake with extension", "analyze_hierarchy_simple.cjs", []string{"analyze", "hierarchy", "simple"}, []string{"_", "_", ""}, "cjs"},
		{"dot case", "get.user.info.py", []string{"get", "user", "info"}, []string{".", ".", ""}, "py"},
		{"camel", "getUserInfo", []string{"get", "User", "Info"}, []string{"", "", ""}, ""},
		{"pascal with acronym", "APIController.ts", []string{"API", "Controller"}, []string{"", ""}, "ts"},
		{"kebab with numerals", "file-19-test.txt", []string{"file", "19", "test"}, []string{"-", "-", ""}, "txt"},
		{"digit then upper", "html5Parser", []string{"html5", "Parser"}, []string{"", ""}, ""},
		{"mixed separators", "my__cool--Thing", []string{"my", "cool", "Thing"}, []string{"__", "--", ""}, ""},
		{"extension is lowercased", "Report.PDF", []string{"Report"}, []string{""}, "pdf"},
		{"version tail is not an extension", "v1.2.3", []string{"v1", "2", "3"}, []string{".", ".", ""}, ""},
		{"trailing separator", "foo_.md", []string{"foo"}, []string{"_"}, "md"},
		{"numeric suffix is not an extension", "release-1.0", []string{"release", "1", "0"}, []string{"-", ".", ""}, ""},
		{"suffix with separator is not an extension", "config.backup-old", []string{"config", "backup", "old"}, []string{".", "-", ""}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Segment(tt.input)
			assert.Equal(t, tt.wantTokens, raws(got))
			assert.Equal(t, tt.wantDelims, got.Delimiters)
			assert.Equal(t, tt.wantExt, got.Extension)
			assert.Len(t, got.Delimiters, len(got.Tokens))
		})
	}
}

func TestSegment_Kinds(t *testing.T) {
	got := Segment("parseXMLFile2024_v2")
	require.Equal(t, []string{"parse", "XML", "File2024", "v2"}, raws(got))
	assert.Equal(t, Word, got.Tokens[0].Kind)
	assert.Equal(t, Acronym, got.Tokens[1].Kind)
	assert.Equal(t, Word, got.Tokens[2].Kind)
	assert.Equal(t, "xml", got.Tokens[1].Normalized)

	got = Segment("level_12")
	assert.Equal(t, Numeral, got.Tokens[1].Kind)

	got = Segment("A_b")
	assert.Equal(t, Word, got.Tokens[0].Kind, "single capital is not an acronym")
}

func TestSegment_LongCapsRun(t *testing.T) {
	got := Segment("HTMLDOM")
	assert.Equal(t, []string{"HT", "ML", "DO", "M"}, raws(got))
	assert.Equal(t, Acronym, got.Tokens[0].Kind)
	assert.Equal(t, Word, got.Tokens[3].Kind)

	s := New(Options{KnownAcronyms: []string{"html", "dom", "xml", "http"}})
	assert.Equal(t, []string{"HTML", "DOM"}, raws(s.Segment("HTMLDOM")))
	assert.Equal(t, []string{"XML", "HTTP", "Request"}, raws(s.Segment("XMLHTTPRequest")))
	// Unknown remainder falls back to 2-letter groups.
	assert.Equal(t, []string{"HTML", "ZZ", "ZZ"}, raws(s.Segment("HTMLZZZZ")))
}

func TestSegment_EdgeCases(t *testing.T) {
	empty := Segment("")
	assert.Empty(t, empty.Tokens)
	assert.Empty(t, empty.Delimiters)

	punct := Segment("---")
	assert.Empty(t, punct.Tokens)
	assert.Equal(t, "---", punct.Leading)

	onlyExt := Segment("_.md")
	assert.Empty(t, onlyExt.Tokens)
	assert.Equal(t, "md", onlyExt.Extension)

	hidden := Segment(".gitignore")
	assert.Equal(t, []string{"gitignore"}, raws(hidden))
	assert.Equal(t, ".", hidden.Leading)
	assert.False(t, hidden.HasExtension())
}

func TestSegment_RoundTrip(t *testing.T) {
	names := []string{
		"analyze_hierarchy_simple.cjs",
		"analyze_element_hierarchy.cjs",
		"get.user.info.py",
		"file-19-test.txt",
		"release-v2-2024-12-31.md",
		"clean-xml-files.js",
		"APIController.TS",
		"__init__.py",
		".env.local",
		"HTMLDOMParser",
		"my  spaced  name.final.Docx",
		"用户Info_列表.vue",
		"---",
		"_.md",
		"trailing.",
		"",
	}
	for _, name := range names {
		assert.Equal(t, name, Segment(name).Rebuild(), "round trip %q", name)
	}

	s := New(Options{KnownAcronyms: []string{"html", "dom"}})
	for _, name := range names {
		assert.Equal(t, name, s.Segment(name).Rebuild(), "round trip with acronyms %q", name)
	}
}

func TestSegment_UnicodeRuns(t *testing.T) {
	got := Segment("用户Info_列表.vue")
	assert.Equal(t, []string{"用户Info", "列表"}, raws(got))
	assert.Equal(t, "vue", got.Extension)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, []string{"get", "user", "info"}, Segment("getUserInfo").Keys())
}
