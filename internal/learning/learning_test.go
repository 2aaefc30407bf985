package learning

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"namelens/internal/dictionary"
	nlerrors "namelens/internal/errors"
)

func newWriter(t *testing.T, policy KeyPolicy) (*Writer, *dictionary.Dictionary, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".namelens", "learned.json")
	d := dictionary.New(dictionary.Options{})
	d.Load([]dictionary.Source{{Kind: dictionary.ProjectLearned, Path: path}})
	return NewWriter(d, Options{Path: path, Policy: policy}), d, path
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		policy  KeyPolicy
		want    string
		wantErr bool
	}{
		{"XML", Strict, "xml", false},
		{"  element   Hierarchy ", Strict, "element hierarchy", false},
		{"v2", Strict, "v2", false},
		{"42", Strict, "", true},
		{"12 34", Strict, "", true},
		{"foo-bar", Strict, "", true},
		{"foo-bar", Lenient, "foo-bar", false},
		{"café", Strict, "", true},
		{"café", Lenient, "café", false},
		{"a/b", Lenient, "", true},
		{"", Strict, "", true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.policy, tt.key), func(t *testing.T) {
			got, err := ValidateKey(tt.key, tt.policy)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, nlerrors.HasCode(err, nlerrors.LearnRejected))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLearn_PersistsAndMerges(t *testing.T) {
	w, d, path := newWriter(t, Strict)

	res, err := w.Learn(map[string]dictionary.Entry{
		"XML":         {Alias: "可扩展标记语言", Confidence: 0.8},
		"clean files": {Alias: "清理文件"},
		"2024":        {Alias: "二〇二四"},
		"bad/key":     {Alias: "坏"},
		"empty":       {Alias: " "},
	}, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"xml"}, res.Words)
	assert.Equal(t, []string{"clean files"}, res.Phrases)
	assert.Len(t, res.Rejected, 3)
	assert.Equal(t, 2, res.Learned())

	m, ok := res.Snapshot.ResolveWord("xml")
	require.True(t, ok)
	assert.Equal(t, "可扩展标记语言", m.Alias)
	assert.Same(t, res.Snapshot, d.Snapshot())

	p, ok := d.Snapshot().ResolvePhrase([]string{"clean", "files"}, 0)
	require.True(t, ok)
	assert.Equal(t, "清理文件", p.Alias)

	f, err := dictionary.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "可扩展标记语言", f.Words["xml"].Alias)
	assert.Equal(t, "清理文件", f.Phrases["clean files"].Alias)

	// A fresh load sees the persisted entries.
	d2 := dictionary.New(dictionary.Options{})
	d2.Load([]dictionary.Source{{Kind: dictionary.ProjectLearned, Path: path}})
	_, ok = d2.Snapshot().ResolveWord("xml")
	assert.True(t, ok)
}

func TestLearn_NeverOverwritesUnlessForced(t *testing.T) {
	w, d, path := newWriter(t, Strict)

	_, err := w.Learn(map[string]dictionary.Entry{"xml": {Alias: "旧"}}, false)
	require.NoError(t, err)

	res, err := w.Learn(map[string]dictionary.Entry{"xml": {Alias: "新"}}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"xml"}, res.Existing)
	assert.Equal(t, 0, res.Learned())
	m, _ := d.Snapshot().ResolveWord("xml")
	assert.Equal(t, "旧", m.Alias)

	res, err = w.Learn(map[string]dictionary.Entry{"xml": {Alias: "新"}}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Learned())
	m, _ = d.Snapshot().ResolveWord("xml")
	assert.Equal(t, "新", m.Alias)

	f, err := dictionary.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "新", f.Words["xml"].Alias)
}

func TestLearn_RefusesToRewriteCorruptFile(t *testing.T) {
	w, _, path := newWriter(t, Strict)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0644))

	_, err := w.Learn(map[string]dictionary.Entry{"xml": {Alias: "可扩展标记语言"}}, false)
	require.Error(t, err)
	assert.True(t, nlerrors.HasCode(err, nlerrors.DictionaryParse))

	data, _ := os.ReadFile(path)
	assert.Equal(t, "{broken", string(data))
}

func TestLearn_ConcurrentWriters(t *testing.T) {
	w, d, path := newWriter(t, Strict)
	// A second writer on the same file, as a second batch would have.
	w2 := NewWriter(d, Options{Path: path})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			writer := w
			if i%2 == 1 {
				writer = w2
			}
			_, err := writer.Learn(map[string]dictionary.Entry{
				fmt.Sprintf("word%c", 'a'+i): {Alias: fmt.Sprintf("词%d", i)},
			}, false)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	f, err := dictionary.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, f.Words, 20)
}

func TestLearn_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "learned.yaml")
	d := dictionary.New(dictionary.Options{})
	w := NewWriter(d, Options{Path: path})

	_, err := w.Learn(map[string]dictionary.Entry{"xml": {Alias: "可扩展标记语言"}}, false)
	require.NoError(t, err)

	f, err := dictionary.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "可扩展标记语言", f.Words["xml"].Alias)
}
