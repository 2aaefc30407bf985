// Package learning persists oracle answers into the project-learned
// dictionary layer so later lookups need no oracle call.
package learning

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"unicode"

	"namelens/internal/dictionary"
	nlerrors "namelens/internal/errors"
	"namelens/internal/segment"
)

// KeyPolicy decides which characters a learned key may contain.
type KeyPolicy string

const (
	// Strict allows only [a-z0-9 ].
	Strict KeyPolicy = "strict"
	// Lenient also allows non-ASCII letters, '-' and '.'.
	Lenient KeyPolicy = "lenient"
)

// ParseKeyPolicy converts a policy name; empty means Strict.
func ParseKeyPolicy(s string) (KeyPolicy, error) {
	switch KeyPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", Strict:
		return Strict, nil
	case Lenient:
		return Lenient, nil
	}
	return "", fmt.Errorf("unknown key policy %q", s)
}

// Options configures a Writer.
type Options struct {
	// Path is the learned dictionary file. Its extension picks the format.
	Path   string
	Kind   dictionary.LayerKind
	Policy KeyPolicy
	Logger *slog.Logger
}

// Rejection is a key that failed validation.
type Rejection struct {
	Key string `json:"key"`
	Err error  `json:"-"`
}

// Result reports one Learn call.
type Result struct {
	Words    []string                    `json:"words,omitempty"`
	Phrases  []string                    `json:"phrases,omitempty"`
	Existing []string                    `json:"existing,omitempty"`
	Rejected []Rejection                 `json:"rejected,omitempty"`
	Snapshot *dictionary.Snapshot        `json:"-"`
	Entries  map[string]dictionary.Entry `json:"-"`
}

// Learned returns the number of keys written.
func (r Result) Learned() int {
	return len(r.Words) + len(r.Phrases)
}

// Writer appends validated answers to the learned file and merges them into
// the live dictionary. Writers sharing a file serialize on a mutex and an
// advisory file lock held only around read-modify-write.
type Writer struct {
	opts   Options
	dict   *dictionary.Dictionary
	logger *slog.Logger
	mu     sync.Mutex
}

// NewWriter creates a writer for dict.
func NewWriter(dict *dictionary.Dictionary, opts Options) *Writer {
	if opts.Policy == "" {
		opts.Policy = Strict
	}
	if opts.Kind == dictionary.Builtin {
		opts.Kind = dictionary.ProjectLearned
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Writer{opts: opts, dict: dict, logger: logger}
}

// Path returns the learned file path.
func (w *Writer) Path() string {
	return w.opts.Path
}

// ValidateKey normalizes key and checks it against policy.
func ValidateKey(key string, policy KeyPolicy) (string, error) {
	k := strings.Join(strings.Fields(strings.ToLower(key)), " ")
	if k == "" {
		return "", nlerrors.Newf(nlerrors.LearnRejected, "empty key")
	}
	if segment.IsNumeral(strings.ReplaceAll(k, " ", "")) {
		return "", nlerrors.Newf(nlerrors.LearnRejected, "key %q is a pure numeral", k)
	}
	for _, r := range k {
		if allowed(r, policy) {
			continue
		}
		return "", nlerrors.Newf(nlerrors.LearnRejected, "key %q contains %q, not allowed under %s policy", k, r, policy)
	}
	return k, nil
}

func allowed(r rune, policy KeyPolicy) bool {
	if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
		return true
	}
	if policy == Lenient {
		return r == '-' || r == '.' || (r > unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)))
	}
	return false
}

// Learn validates answers (token -> entry) and appends the new ones. Keys
// containing a space become phrases. Existing keys are kept unless
// overwrite is set. Answers without a confidence get DefaultConfidence.
func (w *Writer) Learn(answers map[string]dictionary.Entry, overwrite bool) (Result, error) {
	var res Result
	add := dictionary.NewFile()

	keys := make([]string, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, raw := range keys {
		e := answers[raw]
		k, err := ValidateKey(raw, w.opts.Policy)
		if err == nil && strings.TrimSpace(e.Alias) == "" {
			err = nlerrors.Newf(nlerrors.LearnRejected, "key %q has an empty alias", k)
		}
		if err != nil {
			res.Rejected = append(res.Rejected, Rejection{Key: raw, Err: err})
			w.logger.Warn("Rejected learned entry", "key", raw, "error", err)
			continue
		}
		e.Alias = strings.TrimSpace(e.Alias)
		if e.Confidence <= 0 {
			e.Confidence = dictionary.DefaultConfidence
		}
		if strings.Contains(k, " ") {
			add.Phrases[k] = e
		} else {
			add.Words[k] = e
		}
	}
	if add.Len() == 0 {
		res.Snapshot = w.dict.Snapshot()
		return res, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	added, err := w.persist(add, overwrite, &res)
	if err != nil {
		return res, err
	}
	if added.Len() == 0 {
		res.Snapshot = w.dict.Snapshot()
		return res, nil
	}

	res.Snapshot = w.dict.Merge(w.opts.Kind, w.opts.Path, added, overwrite)
	res.Entries = make(map[string]dictionary.Entry, added.Len())
	for k, e := range added.Words {
		res.Entries[k] = e
	}
	for k, e := range added.Phrases {
		res.Entries[k] = e
	}
	w.logger.Info("Learned dictionary entries",
		"path", w.opts.Path,
		"words", len(res.Words),
		"phrases", len(res.Phrases),
	)
	return res, nil
}

// persist merges add into the file on disk and returns what was new.
func (w *Writer) persist(add dictionary.File, overwrite bool, res *Result) (dictionary.File, error) {
	lock, err := acquireFileLock(w.opts.Path)
	if err != nil {
		return dictionary.File{}, fmt.Errorf("learning: %w", err)
	}
	defer lock.release()

	current, err := dictionary.ReadFile(w.opts.Path)
	if errors.Is(err, fs.ErrNotExist) {
		current = dictionary.NewFile()
	} else if err != nil {
		return dictionary.File{}, nlerrors.New(nlerrors.DictionaryParse, "learned dictionary is unreadable; refusing to rewrite it", err)
	}

	added := dictionary.NewFile()
	for _, k := range sortedKeys(add.Words) {
		if _, ok := current.Words[k]; ok && !overwrite {
			res.Existing = append(res.Existing, k)
			continue
		}
		current.Words[k] = add.Words[k]
		added.Words[k] = add.Words[k]
		res.Words = append(res.Words, k)
	}
	for _, k := range sortedKeys(add.Phrases) {
		if _, ok := current.Phrases[k]; ok && !overwrite {
			res.Existing = append(res.Existing, k)
			continue
		}
		current.Phrases[k] = add.Phrases[k]
		added.Phrases[k] = add.Phrases[k]
		res.Phrases = append(res.Phrases, k)
	}
	if added.Len() == 0 {
		return added, nil
	}

	if err := dictionary.WriteFile(w.opts.Path, current); err != nil {
		return dictionary.File{}, fmt.Errorf("learning: write %s: %w", w.opts.Path, err)
	}
	return added, nil
}

func sortedKeys(m map[string]dictionary.Entry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
