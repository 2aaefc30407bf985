package translate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"namelens/internal/alias"
	"namelens/internal/dictionary"
	nlerrors "namelens/internal/errors"
	"namelens/internal/guard"
	"namelens/internal/learning"
	"namelens/internal/oracle"
	"namelens/internal/storage"
)

type fixture struct {
	root    string
	learned string
	dict    *dictionary.Dictionary
}

// newFixture writes a project-fixed layer with words and returns a
// dictionary loaded with it plus an empty project-learned layer.
func newFixture(t *testing.T, words map[string]string) fixture {
	t.Helper()
	root := t.TempDir()
	f := fixture{root: root, learned: filepath.Join(root, ".namelens", "learned.json")}

	var sb strings.Builder
	sb.WriteString(`{"words": {`)
	i := 0
	for k, v := range words {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, "%q: {\"alias\": %q}", k, v)
		i++
	}
	sb.WriteString(`}, "phrases": {}}`)
	fixed := filepath.Join(root, "fixed.json")
	require.NoError(t, os.WriteFile(fixed, []byte(sb.String()), 0644))

	f.dict = f.load()
	return f
}

func (f fixture) load() *dictionary.Dictionary {
	d := dictionary.New(dictionary.Options{})
	d.Load([]dictionary.Source{
		{Kind: dictionary.ProjectLearned, Path: f.learned},
		{Kind: dictionary.ProjectFixed, Path: filepath.Join(f.root, "fixed.json")},
	})
	return d
}

func (f fixture) learner(d *dictionary.Dictionary) *learning.Writer {
	return learning.NewWriter(d, learning.Options{Path: f.learned, Kind: dictionary.ProjectLearned})
}

type memLedger struct {
	mu           sync.Mutex
	translations []storage.TranslationRecord
	learned      []storage.LearnedRecord
}

func (l *memLedger) RecordTranslation(rec storage.TranslationRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.translations = append(l.translations, rec)
	return nil
}

func (l *memLedger) RecordLearned(records []storage.LearnedRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.learned = append(l.learned, records...)
	return nil
}

func TestTranslate_LearnedAnswerNeedsNoSecondCall(t *testing.T) {
	f := newFixture(t, map[string]string{"clean": "清理", "files": "文件"})
	static := oracle.NewStatic(map[string]string{"xml": "可扩展标记语言"})

	first := New(Options{
		Dictionary: f.dict,
		Guard:      guard.New(guard.Options{}),
		Oracle:     static,
		Learner:    f.learner(f.dict),
	})
	res := first.Translate(context.Background(), "clean-xml-files.js")
	assert.Equal(t, "清理-可扩展标记语言-文件.js", res.Alias)
	assert.Equal(t, alias.SourceOracle, res.Source)
	assert.Equal(t, 1, res.OracleCalls)
	assert.Equal(t, 1, res.Learned)
	assert.Empty(t, res.UnknownTokens)
	assert.Equal(t, 1, static.Calls())

	// A later run loads the learned file from disk.
	d := f.load()
	second := New(Options{
		Dictionary: d,
		Guard:      guard.New(guard.Options{}),
		Oracle:     static,
		Learner:    f.learner(d),
	})
	again := second.Translate(context.Background(), "clean-xml-files.js")
	assert.Equal(t, res.Alias, again.Alias)
	assert.Equal(t, alias.SourceDictionary, again.Source)
	assert.Equal(t, 0, again.OracleCalls)
	assert.Equal(t, 1, static.Calls())
}

func TestTranslate_LiteralAliasIsFixedPoint(t *testing.T) {
	f := newFixture(t, map[string]string{"clean": "清理", "files": "文件", "xml": "可扩展标记语言"})
	static := oracle.NewStatic(nil)
	tr := New(Options{
		Dictionary: f.dict,
		Guard:      guard.New(guard.Options{}),
		Oracle:     static,
	})

	first := tr.Translate(context.Background(), "clean-xml-files.js")
	second := tr.Translate(context.Background(), first.Alias)
	assert.Equal(t, first.Alias, second.Alias)
	assert.Equal(t, 0, static.Calls())
	assert.Equal(t, 3, second.Guard.Dropped)
	assert.Equal(t, 3, second.Guard.Reasons[guard.ReasonLocalized])
}

func TestTranslate_NaturalScenario(t *testing.T) {
	f := newFixture(t, map[string]string{"analyze": "分析", "hierarchy": "层级", "simple": "简版"})
	tr := New(Options{
		Strategy:   alias.Natural,
		Dictionary: f.dict,
		Builder:    alias.NewBuilder(alias.Options{NaturalExtensions: map[string]string{"cjs": "脚本"}}),
	})

	res := tr.Translate(context.Background(), "analyze_hierarchy_simple.cjs")
	assert.Equal(t, "层级分析（简版）脚本", res.Alias)
	assert.Equal(t, alias.SourceDictionary, res.Source)
	assert.Equal(t, alias.Natural, res.Strategy)
}

func TestTranslate_NaturalFallsBackToLiteralOnCoverageMiss(t *testing.T) {
	f := newFixture(t, map[string]string{"analyze": "分析", "hierarchy": "层级", "simple": "简版"})
	tr := New(Options{
		Strategy:   alias.Natural,
		Dictionary: f.dict,
		Builder:    alias.NewBuilder(alias.Options{MaxAliasLength: 3}),
	})

	res := tr.Translate(context.Background(), "analyze_hierarchy_simple.cjs")
	assert.Equal(t, "分析_层级_简版.cjs", res.Alias)
	assert.Equal(t, alias.SourceFallback, res.Source)
	assert.InDelta(t, 0.85, res.Confidence, 1e-9)
	assert.Contains(t, res.DebugTrace, "coverage")
	assert.Contains(t, res.DebugTrace, "analyze")
}

func TestTranslate_UnknownTokensWithoutOracle(t *testing.T) {
	f := newFixture(t, map[string]string{"user": "用户"})
	tr := New(Options{Dictionary: f.dict, Guard: guard.New(guard.Options{})})

	res := tr.Translate(context.Background(), "get.user.info.py")
	assert.Equal(t, "get.用户.info.py", res.Alias)
	assert.Equal(t, []string{"get", "info"}, res.UnknownTokens)
	assert.InDelta(t, 1.0/3.0, res.Coverage, 0.01)
	assert.Equal(t, 0, res.OracleCalls)
	assert.Equal(t, 2, res.Guard.Kept)
}

func TestTranslate_OracleTimeoutUsesLiteral(t *testing.T) {
	f := newFixture(t, map[string]string{"user": "用户"})
	static := oracle.NewStatic(map[string]string{"get": "获取"})
	static.Delay = time.Second
	tr := New(Options{
		Dictionary: f.dict,
		Guard:      guard.New(guard.Options{}),
		Oracle:     static,
		Ask:        oracle.AskOptions{Timeout: 20 * time.Millisecond},
		CacheSize:  8,
	})

	res := tr.Translate(context.Background(), "get_user")
	assert.Equal(t, "get_用户", res.Alias)
	assert.Equal(t, string(nlerrors.OracleTimeout), res.OracleError)
	assert.Equal(t, alias.SourceDictionary, res.Source)
	assert.Equal(t, 0, tr.cache.len(), "failed oracle rounds are not cached")
}

func TestTranslate_OverLengthName(t *testing.T) {
	tr := New(Options{MaxNameLength: 5})

	res := tr.Translate(context.Background(), "abcdefgh.txt")
	assert.Equal(t, "abcdefgh.txt", res.Alias)
	assert.Equal(t, alias.SourceFallback, res.Source)
	assert.Zero(t, res.Confidence)
	assert.Contains(t, res.DebugTrace, "exceeds 5")
}

func TestTranslate_RecoversPanics(t *testing.T) {
	ledger := &memLedger{}
	tr := New(Options{
		Guard: guard.New(guard.Options{}),
		Oracle: oracle.Func(func(ctx context.Context, req oracle.Request) (oracle.Response, error) {
			panic("boom")
		}),
		Ledger: ledger,
	})

	var res Result
	require.NotPanics(t, func() {
		res = tr.Translate(context.Background(), "weird_thing.go")
	})
	assert.Equal(t, "weird_thing.go", res.Alias)
	assert.Equal(t, alias.SourceFallback, res.Source)
	assert.Zero(t, res.Confidence)
	assert.Contains(t, res.DebugTrace, "boom")
	require.Len(t, ledger.translations, 1)
	assert.Equal(t, "fallback", ledger.translations[0].Source)
}

func TestTranslate_CacheFollowsSnapshotVersion(t *testing.T) {
	f := newFixture(t, map[string]string{"clean": "清理"})
	static := oracle.NewStatic(map[string]string{"xml": "可扩展标记语言"})
	tr := New(Options{
		Dictionary: f.dict,
		Guard:      guard.New(guard.Options{}),
		Oracle:     static,
		CacheSize:  8,
	})

	first := tr.Translate(context.Background(), "clean_xml")
	second := tr.Translate(context.Background(), "clean_xml")
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Alias, second.Alias)
	assert.Equal(t, 0, second.OracleCalls)
	assert.Equal(t, 1, static.Calls())

	f.dict.Reload()
	third := tr.Translate(context.Background(), "clean_xml")
	assert.False(t, third.Cached)
	assert.Equal(t, 2, static.Calls())

	natural := tr.TranslateStrategy(context.Background(), alias.Natural, "clean_xml")
	assert.False(t, natural.Cached, "strategies are cached separately")
}

func TestTranslate_ReloadDuringOracleCallMissesCache(t *testing.T) {
	f := newFixture(t, map[string]string{"clean": "清理"})
	fixed := filepath.Join(f.root, "fixed.json")
	calls := 0
	o := oracle.Func(func(ctx context.Context, req oracle.Request) (oracle.Response, error) {
		calls++
		if calls == 1 {
			require.NoError(t, os.WriteFile(fixed, []byte(`{"words": {"clean": {"alias": "洁净"}}, "phrases": {}}`), 0644))
			f.dict.Reload()
		}
		return oracle.Response{"xml": {Alias: "可扩展标记语言"}}, nil
	})
	tr := New(Options{
		Dictionary: f.dict,
		Guard:      guard.New(guard.Options{}),
		Oracle:     o,
		CacheSize:  8,
	})

	first := tr.Translate(context.Background(), "clean_xml")
	assert.Equal(t, "清理_可扩展标记语言", first.Alias)

	second := tr.Translate(context.Background(), "clean_xml")
	assert.False(t, second.Cached, "a result built before a reload must not serve the reloaded dictionary")
	assert.Equal(t, "洁净_可扩展标记语言", second.Alias)
	assert.Equal(t, 2, calls)

	third := tr.Translate(context.Background(), "clean_xml")
	assert.True(t, third.Cached)
	assert.Equal(t, second.Alias, third.Alias)
}

func TestTranslateBatch_LedgerKeepsEveryRow(t *testing.T) {
	f := newFixture(t, map[string]string{"user": "用户"})
	db, err := storage.OpenPath(filepath.Join(f.root, "ledger.db"), nil)
	require.NoError(t, err)
	defer db.Close()

	tr := New(Options{
		Dictionary: f.dict,
		Guard:      guard.New(guard.Options{}),
		Oracle:     oracle.NewStatic(map[string]string{"profile": "资料"}),
		Ledger:     db,
	})

	names := make([]string, 200)
	for i := range names {
		names[i] = fmt.Sprintf("user_profile_%d", i)
	}
	batch := tr.TranslateBatch(context.Background(), names, 8)
	require.Len(t, batch.Results, len(names))

	sum, err := db.GetSummary(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, len(names), sum.Translations)
}

func TestTranslate_ForceReaskOverwritesLearned(t *testing.T) {
	f := newFixture(t, map[string]string{"clean": "清理"})
	require.NoError(t, os.MkdirAll(filepath.Dir(f.learned), 0755))
	require.NoError(t, os.WriteFile(f.learned, []byte(`{"words": {"xml": {"alias": "旧"}}, "phrases": {}}`), 0644))
	d := f.load()

	plain := New(Options{Dictionary: d, Guard: guard.New(guard.Options{})})
	assert.Equal(t, "清理_旧", plain.Translate(context.Background(), "clean_xml").Alias)

	static := oracle.NewStatic(map[string]string{"xml": "新"})
	tr := New(Options{
		Dictionary: d,
		Guard:      guard.New(guard.Options{}),
		Oracle:     static,
		Learner:    f.learner(d),
		ForceReask: true,
	})
	res := tr.Translate(context.Background(), "clean_xml")
	assert.Equal(t, "清理_新", res.Alias)
	assert.Equal(t, 1, static.Calls())
	assert.Equal(t, []string{"xml"}, static.Requests()[0].UnknownTokens)

	file, err := dictionary.ReadFile(f.learned)
	require.NoError(t, err)
	assert.Equal(t, "新", file.Words["xml"].Alias)
}

func TestTranslate_RecordsLedger(t *testing.T) {
	f := newFixture(t, map[string]string{"clean": "清理"})
	db, err := storage.OpenPath(filepath.Join(f.root, "ledger.db"), nil)
	require.NoError(t, err)
	defer db.Close()

	tr := New(Options{
		Dictionary: f.dict,
		Guard:      guard.New(guard.Options{}),
		Oracle:     oracle.NewStatic(map[string]string{"xml": "可扩展标记语言"}),
		Learner:    f.learner(f.dict),
		Ledger:     db,
	})
	tr.Translate(context.Background(), "clean-xml-v2.log")

	sum, err := db.GetSummary(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, sum.Translations)
	assert.EqualValues(t, 1, sum.OracleCalls)
	assert.EqualValues(t, 1, sum.Learned)
	assert.EqualValues(t, 1, sum.Reasons[guard.ReasonVersion])

	learned, err := db.GetLearnedEntries(10)
	require.NoError(t, err)
	require.Len(t, learned, 1)
	assert.Equal(t, "xml", learned[0].Key)
	assert.Equal(t, tr.RunID(), learned[0].RunID)
}

func TestTranslateBatch_IsolatesFailures(t *testing.T) {
	f := newFixture(t, map[string]string{"user": "用户"})
	o := oracle.Func(func(ctx context.Context, req oracle.Request) (oracle.Response, error) {
		if strings.HasPrefix(req.FileName, "bad") {
			panic("bad item")
		}
		return oracle.Response{"profile": {Alias: "资料"}}, nil
	})
	tr := New(Options{
		Dictionary: f.dict,
		Guard:      guard.New(guard.Options{}),
		Oracle:     oracle.NewLimited(o, 2),
	})

	var names []string
	for i := 0; i < 12; i++ {
		if i == 5 {
			names = append(names, "bad_profile")
			continue
		}
		names = append(names, fmt.Sprintf("user_profile_%d", i))
	}

	batch := tr.TranslateBatch(context.Background(), names, 3)
	require.Len(t, batch.Results, len(names))
	assert.NotEmpty(t, batch.ID)
	assert.Equal(t, 1, batch.Fallbacks)
	for i, r := range batch.Results {
		assert.Equal(t, names[i], r.Name, "results keep input order")
		if i == 5 {
			assert.Equal(t, "bad_profile", r.Alias)
			assert.Equal(t, alias.SourceFallback, r.Source)
			continue
		}
		assert.True(t, strings.HasPrefix(r.Alias, "用户_资料_"), r.Alias)
	}
}

func TestMetrics(t *testing.T) {
	f := newFixture(t, map[string]string{"user": "用户"})
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	tr := New(Options{
		Dictionary: f.dict,
		Guard:      guard.New(guard.Options{}),
		Oracle:     oracle.NewStatic(map[string]string{"profile": "资料"}),
		Metrics:    m,
		CacheSize:  4,
	})

	tr.Translate(context.Background(), "user_profile_v2")
	tr.Translate(context.Background(), "user_profile_v2")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.translations.WithLabelValues("literal", "oracle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.oracleCalls.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.guardDropped.WithLabelValues(guard.ReasonVersion)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.observe(Result{}) })
}
