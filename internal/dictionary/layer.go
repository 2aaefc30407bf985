package dictionary

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultConfidence is used for file entries stored without a confidence.
const DefaultConfidence = 0.9

// Entry is a single dictionary value. Confidence is always written so a
// stored 0 reads back as 0.
type Entry struct {
	Alias      string  `json:"alias" yaml:"alias" toml:"alias"`
	Confidence float64 `json:"confidence" yaml:"confidence" toml:"confidence"`
}

// normalize clamps confidence into [0,1].
func (e Entry) normalize() Entry {
	switch {
	case e.Confidence < 0:
		e.Confidence = 0
	case e.Confidence > 1:
		e.Confidence = 1
	}
	return e
}

// LayerKind orders layers by priority; higher kinds win.
type LayerKind int

const (
	Builtin LayerKind = iota
	GlobalLearned
	ProjectLearned
	ProjectFixed
)

var layerKindNames = map[LayerKind]string{
	Builtin:        "builtin",
	GlobalLearned:  "global-learned",
	ProjectLearned: "project-learned",
	ProjectFixed:   "project-fixed",
}

func (k LayerKind) String() string {
	if s, ok := layerKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("layer(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k LayerKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseLayerKind converts a layer kind name.
func ParseLayerKind(s string) (LayerKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range layerKindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown layer kind %q", s)
}

// Layer is one prioritized source of entries. Implementations are immutable.
type Layer interface {
	Name() string
	Kind() LayerKind
	// Word looks up a normalized key directly.
	Word(key string) (Entry, bool)
	// Morph looks up a morphological key against the layer's morph index.
	Morph(key string) (Entry, bool)
	// Phrase returns the longest phrase rooted at keys[0] and how many keys it consumed.
	Phrase(keys []string) (Entry, int)
	// Size returns the number of stored words and phrases.
	Size() (words, phrases int)
}

// TableLayer is the map-and-trie Layer built from a dictionary File.
type TableLayer struct {
	name      string
	kind      LayerKind
	path      string
	words     map[string]Entry
	morph     map[string]Entry
	phrases   *Trie
	morphTrie *Trie
	file      File
}

// NewTableLayer indexes f. Keys are lowercased; phrase keys are split on whitespace.
func NewTableLayer(name string, kind LayerKind, f File) *TableLayer {
	l := &TableLayer{
		name:      name,
		kind:      kind,
		words:     make(map[string]Entry, len(f.Words)),
		morph:     make(map[string]Entry, len(f.Words)),
		phrases:   NewTrie(),
		morphTrie: NewTrie(),
		file:      File{Words: map[string]Entry{}, Phrases: map[string]Entry{}},
	}

	keys := make([]string, 0, len(f.Words))
	for k := range f.Words {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e := f.Words[k]
		if e.Alias == "" {
			continue
		}
		e = e.normalize()
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		if strings.ContainsAny(key, " \t") {
			// A spaced word key is really a phrase.
			l.addPhrase(key, e)
			continue
		}
		l.words[key] = e
		l.file.Words[key] = e
		mk := MorphKey(key)
		// Base forms own their morph slot; otherwise first key in sorted order wins.
		if _, taken := l.morph[mk]; !taken || mk == key {
			l.morph[mk] = e
		}
	}

	pkeys := make([]string, 0, len(f.Phrases))
	for k := range f.Phrases {
		pkeys = append(pkeys, k)
	}
	sort.Strings(pkeys)
	for _, k := range pkeys {
		e := f.Phrases[k]
		if e.Alias == "" {
			continue
		}
		l.addPhrase(strings.ToLower(k), e.normalize())
	}
	return l
}

func (l *TableLayer) addPhrase(key string, e Entry) {
	parts := strings.Fields(key)
	if len(parts) == 0 {
		return
	}
	l.file.Phrases[strings.Join(parts, " ")] = e
	l.phrases.Insert(parts, e)
	mparts := make([]string, len(parts))
	for i, p := range parts {
		mparts[i] = MorphKey(p)
	}
	l.morphTrie.Insert(mparts, e)
}

func (l *TableLayer) Name() string    { return l.name }
func (l *TableLayer) Kind() LayerKind { return l.kind }

// Path is the file the layer was loaded from, empty for the builtin layer.
func (l *TableLayer) Path() string { return l.path }

func (l *TableLayer) Word(key string) (Entry, bool) {
	e, ok := l.words[key]
	return e, ok
}

func (l *TableLayer) Morph(key string) (Entry, bool) {
	e, ok := l.morph[key]
	return e, ok
}

// Phrase prefers the exact trie and only uses the morph trie for a strictly longer match.
func (l *TableLayer) Phrase(keys []string) (Entry, int) {
	e, n := l.phrases.LongestMatch(keys)
	if l.morphTrie.Len() == 0 || len(keys) == 0 {
		return e, n
	}
	mkeys := make([]string, len(keys))
	for i, k := range keys {
		mkeys[i] = MorphKey(k)
	}
	if me, mn := l.morphTrie.LongestMatch(mkeys); mn > n {
		return me, mn
	}
	return e, n
}

func (l *TableLayer) Size() (int, int) {
	return len(l.words), l.phrases.Len()
}

// File returns a copy of the layer's normalized contents.
func (l *TableLayer) File() File {
	return l.file.clone()
}

// withEntries returns a new layer holding l's entries plus additions.
// Existing keys are kept unless overwrite is set.
func (l *TableLayer) withEntries(words, phrases map[string]Entry, overwrite bool) *TableLayer {
	f := l.file.clone()
	for k, e := range words {
		if _, exists := f.Words[k]; exists && !overwrite {
			continue
		}
		f.Words[k] = e
	}
	for k, e := range phrases {
		if _, exists := f.Phrases[k]; exists && !overwrite {
			continue
		}
		f.Phrases[k] = e
	}
	nl := NewTableLayer(l.name, l.kind, f)
	nl.path = l.path
	return nl
}
