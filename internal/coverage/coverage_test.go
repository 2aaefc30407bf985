package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"namelens/internal/alias"
	"namelens/internal/dictionary"
	"namelens/internal/segment"
)

func snapshot(words, phrases map[string]string) *dictionary.Snapshot {
	f := dictionary.NewFile()
	for k, v := range words {
		f.Words[k] = dictionary.Entry{Alias: v}
	}
	for k, v := range phrases {
		f.Phrases[k] = dictionary.Entry{Alias: v}
	}
	return dictionary.NewSnapshot(1, []dictionary.Layer{
		dictionary.NewTableLayer("test", dictionary.ProjectLearned, f),
	})
}

func TestDetail_TranslatedAndVerbatim(t *testing.T) {
	c := New(Options{})
	snap := snapshot(map[string]string{"user": "用户"}, nil)

	d := c.Detail(snap, nil, "get.user.info.py", "get.用户.info.py", 0)
	assert.True(t, d.Sufficient)
	assert.Equal(t, 0, d.Misses)
	require.Len(t, d.Tokens, 3)
	assert.Equal(t, "用户", d.Tokens[1].Expected)

	d = c.Detail(snap, nil, "get.user.info.py", "用户信息", 0)
	assert.False(t, d.Sufficient)
	assert.Equal(t, []string{"get", "info"}, d.Missing())
	assert.True(t, c.IsSufficient(snap, nil, "get.user.info.py", "用户信息", 2))
}

func TestDetail_StopwordsIgnored(t *testing.T) {
	c := New(Options{})
	snap := snapshot(map[string]string{"list": "列表"}, nil)

	d := c.Detail(snap, nil, "list_of_the_things", "列表things", 0)
	assert.True(t, d.Sufficient)
	assert.True(t, d.Tokens[1].Stopword)
}

func TestDetail_PhraseAndAcronym(t *testing.T) {
	c := New(Options{})
	snap := snapshot(nil, map[string]string{"element hierarchy": "元素/层级"})

	// The builder sanitizes the phrase translation; the check must too.
	assert.True(t, c.IsSufficient(snap, nil, "elementHierarchyAPI", "元素_层级API", 0))
	assert.False(t, c.IsSufficient(snap, nil, "elementHierarchyAPI", "元素API", 0))
	assert.True(t, c.IsSufficient(snap, nil, "xml_parser", "XML parser", 0))
}

func TestDetail_FreshAnswers(t *testing.T) {
	c := New(Options{})
	assert.True(t, c.IsSufficient(nil, map[string]string{"fetch": "获取"}, "fetch", "获取", 0))
	assert.False(t, c.IsSufficient(nil, nil, "fetch", "获取", 0))
}

// Adding a token to any layer makes a name of that token plus stopwords
// sufficient under both strategies.
func TestMonotonicity(t *testing.T) {
	names := []string{"widget", "the_widget", "widget-of-mine", "aWidget", "widgets"}
	builder := alias.NewBuilder(alias.Options{})
	c := New(Options{})

	for _, kind := range []dictionary.LayerKind{dictionary.Builtin, dictionary.GlobalLearned, dictionary.ProjectLearned, dictionary.ProjectFixed} {
		f := dictionary.NewFile()
		f.Words["widget"] = dictionary.Entry{Alias: "部件"}
		f.Words["mine"] = dictionary.Entry{Alias: "我的"}
		snap := dictionary.NewSnapshot(1, []dictionary.Layer{dictionary.NewTableLayer("layer", kind, f)})

		for _, name := range names {
			for _, strategy := range []alias.Strategy{alias.Literal, alias.Natural} {
				plan := builder.Resolve(name, segment.Segment(name), snap, nil)
				res := builder.Build(strategy, plan)
				assert.True(t, c.IsSufficient(snap, nil, name, res.Alias, 0),
					"%s %s %s -> %q", kind, strategy, name, res.Alias)
			}
		}
	}
}
