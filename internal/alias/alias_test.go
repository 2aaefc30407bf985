package alias

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"namelens/internal/dictionary"
	"namelens/internal/numeral"
	"namelens/internal/segment"
)

func snapshot(words map[string]string, phrases map[string]string) *dictionary.Snapshot {
	f := dictionary.NewFile()
	for k, v := range words {
		f.Words[k] = dictionary.Entry{Alias: v}
	}
	for k, v := range phrases {
		f.Phrases[k] = dictionary.Entry{Alias: v}
	}
	return dictionary.NewSnapshot(1, []dictionary.Layer{
		dictionary.NewTableLayer("test", dictionary.ProjectFixed, f),
	})
}

func build(b *Builder, strategy Strategy, name string, snap *dictionary.Snapshot, fresh map[string]string) Result {
	plan := b.Resolve(name, segment.Segment(name), snap, fresh)
	return b.Build(strategy, plan)
}

func TestNatural_HeadNounReordering(t *testing.T) {
	snap := snapshot(map[string]string{
		"analyze":   "分析",
		"hierarchy": "层级",
		"simple":    "简版",
	}, nil)
	b := NewBuilder(Options{NaturalExtensions: map[string]string{"cjs": "脚本"}})

	res := build(b, Natural, "analyze_hierarchy_simple.cjs", snap, nil)
	assert.Equal(t, "层级分析（简版）脚本", res.Alias)
	assert.Equal(t, 1.0, res.Coverage)
	assert.Equal(t, 0.95, res.Confidence)
	assert.Equal(t, SourceDictionary, res.Source)
	assert.Empty(t, res.UnknownTokens)
	assert.Contains(t, res.DebugTrace, `head="analyze"`)
}

func TestLiteral_PhraseBeatsWords(t *testing.T) {
	snap := snapshot(
		map[string]string{"analyze": "分析", "element": "元素X", "hierarchy": "层级X"},
		map[string]string{"element hierarchy": "元素_层级"},
	)
	b := NewBuilder(Options{})

	res := build(b, Literal, "analyze_element_hierarchy.cjs", snap, nil)
	assert.Equal(t, "分析_元素_层级.cjs", res.Alias)
	assert.Equal(t, 1.0, res.Coverage)
}

func TestLiteral_PartialCoverage(t *testing.T) {
	snap := snapshot(map[string]string{"user": "用户"}, nil)
	b := NewBuilder(Options{})

	res := build(b, Literal, "get.user.info.py", snap, nil)
	assert.Equal(t, "get.用户.info.py", res.Alias)
	assert.Equal(t, []string{"get", "info"}, res.UnknownTokens)
	assert.InDelta(t, 0.33, res.Coverage, 0.01)
	assert.Equal(t, 0.4, res.Confidence)
}

func TestLiteral_AcronymsAndNumerals(t *testing.T) {
	snap := snapshot(map[string]string{"parser": "解析器"}, nil)
	b := NewBuilder(Options{Numerals: numeral.NewRenderer(numeral.Localized)})

	res := build(b, Literal, "XMLParser_2.go", snap, nil)
	require.Equal(t, "XML解析器_二.go", res.Alias)
	assert.Equal(t, 1.0, res.Coverage)
	assert.Equal(t, SourceDictionary, res.Source)

	res = build(b, Literal, "API_19", nil, nil)
	assert.Equal(t, "API_十九", res.Alias)
	assert.Equal(t, SourceRule, res.Source)
}

func TestLiteral_Joiner(t *testing.T) {
	snap := snapshot(map[string]string{"user": "用户", "profile": "资料"}, nil)
	b := NewBuilder(Options{Joiner: "_"})

	assert.Equal(t, "用户_资料_Card", build(b, Literal, "userProfileCard", snap, nil).Alias)
	// Explicit delimiters are never replaced.
	assert.Equal(t, "用户-资料", build(b, Literal, "user-profile", snap, nil).Alias)
	// Untranslated neighbours stay glued.
	assert.Equal(t, "getInfo", build(b, Literal, "getInfo", snap, nil).Alias)
}

func TestLiteral_ExtensionModes(t *testing.T) {
	snap := snapshot(map[string]string{"user": "用户"}, nil)
	ext := map[string]string{"ts": "类型脚本"}

	tests := []struct {
		mode ExtensionMode
		name string
		want string
	}{
		{ExtKeep, "user.TS", "用户.TS"},
		{ExtMap, "user.ts", "用户.类型脚本"},
		{ExtMap, "user.py", "用户.py"},
		{ExtDrop, "user.ts", "用户"},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode)+"/"+tt.name, func(t *testing.T) {
			b := NewBuilder(Options{ExtensionMode: tt.mode, LiteralExtensions: ext})
			assert.Equal(t, tt.want, build(b, Literal, tt.name, snap, nil).Alias)
		})
	}
}

func TestLiteral_FreshAnswersAndSanitize(t *testing.T) {
	b := NewBuilder(Options{})
	res := build(b, Literal, "fetch_data", nil, map[string]string{"fetch": "获取/拉取"})
	assert.Equal(t, "获取_拉取_data", res.Alias)
	assert.Equal(t, SourceOracle, res.Source)
	assert.Equal(t, []string{"data"}, res.UnknownTokens)
}

func TestLiteral_PreservesUntranslatedBytes(t *testing.T) {
	b := NewBuilder(Options{})
	for _, name := range []string{"__init__.py", "my-Weird..name", ".eslintrc", "a<b"} {
		res := build(b, Literal, name, nil, nil)
		assert.Equal(t, name, res.Alias, name)
	}
}

func TestNatural_HeadPriority(t *testing.T) {
	snap := snapshot(map[string]string{
		"user":     "用户",
		"settings": "设置",
		"panel":    "面板",
		"manager":  "管理器",
		"mock":     "模拟",
		"new":      "新",
	}, nil)
	b := NewBuilder(Options{NaturalExtensions: map[string]string{"vue": "组件", "tsx": "面板"}})

	tests := []struct {
		name string
		want string
	}{
		// UI noun beats the trailing action noun.
		{"panel_manager", "管理器面板"},
		{"userSettingsManager", "用户设置管理器"},
		{"new_user.vue", "新用户组件"},
		{"mockUserPanel.vue", "用户面板（模拟）组件"},
		// Suffix is dropped when the head already says it.
		{"settings_panel.tsx", "设置面板"},
		// A plain noun outranks a trailing acronym.
		{"user_API", "API用户"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, build(b, Natural, tt.name, snap, nil).Alias)
		})
	}
}

func TestNatural_UnknownHeadOnlyWithoutSuffix(t *testing.T) {
	snap := snapshot(map[string]string{"new": "新"}, nil)
	b := NewBuilder(Options{NaturalExtensions: map[string]string{"vue": "组件"}})

	res := build(b, Natural, "new_widgetron.vue", snap, nil)
	assert.Equal(t, "新widgetron组件", res.Alias)
	assert.Empty(t, res.DebugTrace)

	res = build(b, Natural, "new_widgetron", snap, nil)
	assert.Equal(t, "新widgetron", res.Alias)
	assert.Contains(t, res.DebugTrace, `head="widgetron"`)
}

func TestNatural_VersionRunKeepsSourceOrder(t *testing.T) {
	b := NewBuilder(Options{})

	res := build(b, Natural, "v1.2.3", nil, nil)
	assert.Equal(t, "v1 2 3", res.Alias)
	assert.Empty(t, res.DebugTrace)

	snap := snapshot(map[string]string{"new": "新"}, nil)
	res = build(b, Natural, "new_widgetron_2", snap, nil)
	assert.Equal(t, "新widgetron 2", res.Alias)
}

func TestPlanSource(t *testing.T) {
	b := NewBuilder(Options{})

	assert.Equal(t, SourceFallback, build(b, Literal, "fetch_data", nil, nil).Source)
	assert.Equal(t, SourceFallback, build(b, Literal, ".gitignore", nil, nil).Source)
	assert.Equal(t, SourceRule, build(b, Literal, "fetch_2", nil, nil).Source)

	snap := snapshot(map[string]string{"fetch": "获取"}, nil)
	assert.Equal(t, SourceDictionary, build(b, Literal, "fetch_2", snap, nil).Source)
	assert.Equal(t, SourceOracle, build(b, Literal, "fetch_data", snap, map[string]string{"data": "数据"}).Source)
}

func TestNatural_SpacesBetweenLatinPieces(t *testing.T) {
	b := NewBuilder(Options{})
	res := build(b, Natural, "foo_bar.py", nil, nil)
	assert.Equal(t, "foo bar.py", res.Alias)
}

func TestNatural_TruncatesAndSanitizes(t *testing.T) {
	b := NewBuilder(Options{MaxAliasLength: 10})
	long := strings.Repeat("abc_", 20) + "end"
	res := build(b, Natural, long, nil, nil)
	assert.LessOrEqual(t, utf8.RuneCountInString(res.Alias), 10)

	res = build(b, Natural, "data", nil, map[string]string{"data": "数据:库"})
	assert.Equal(t, "数据_库", res.Alias)
}

func TestNatural_EmptyNameFallsBackToSource(t *testing.T) {
	b := NewBuilder(Options{})
	res := build(b, Natural, "___", nil, nil)
	assert.Equal(t, "___", res.Alias)
	assert.Equal(t, 1.0, res.Coverage)
}

func TestLiteral_IdempotentOnOwnOutput(t *testing.T) {
	snap := snapshot(map[string]string{"user": "用户", "profile": "资料"}, nil)
	b := NewBuilder(Options{})

	first := build(b, Literal, "user_profile-v2.json", snap, nil)
	second := build(b, Literal, first.Alias, snap, nil)
	assert.Equal(t, first.Alias, second.Alias)
}

func TestCategories(t *testing.T) {
	c := DefaultCategories()
	assert.Equal(t, UINoun, c.Of("panel"))
	assert.Equal(t, UINoun, c.Of("panels"))
	assert.Equal(t, ActionNoun, c.Of("manager"))
	assert.Equal(t, Variant, c.Of("mock"))
	assert.Equal(t, Adjective, c.Of("new"))
	assert.Equal(t, Noun, c.Of("hierarchy"))
	assert.Equal(t, UINoun, c.Of("settings panel"))

	ext := c.Extend(CategoryLists{Variant: []string{"panel"}})
	assert.Equal(t, Variant, ext.Of("panel"))
	assert.Equal(t, UINoun, c.Of("panel"))
}

func TestConfidenceFor(t *testing.T) {
	assert.Equal(t, 0.95, ConfidenceFor(1))
	assert.Equal(t, 0.85, ConfidenceFor(0.8))
	assert.Equal(t, 0.65, ConfidenceFor(0.5))
	assert.Equal(t, 0.4, ConfidenceFor(0.49))
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("Natural")
	require.NoError(t, err)
	assert.Equal(t, Natural, s)
	s, err = ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, Literal, s)
	_, err = ParseStrategy("poetic")
	assert.Error(t, err)
}
