package dictionary

import "strings"

// Match is a resolved dictionary hit.
type Match struct {
	Entry
	// Length is the number of tokens consumed (1 for words).
	Length int
	Layer  string
	Kind   LayerKind
	// Morph is set when the hit came through a morphological key.
	Morph bool
}

// Snapshot is an immutable, priority-ordered view of the loaded layers.
// In-flight calls keep the snapshot they started with across a reload.
type Snapshot struct {
	version uint64
	layers  []Layer
}

// NewSnapshot orders layers highest priority first. Within a kind, later
// layers outrank earlier ones.
func NewSnapshot(version uint64, layers []Layer) *Snapshot {
	ordered := make([]Layer, 0, len(layers))
	for k := ProjectFixed; k >= Builtin; k-- {
		for i := len(layers) - 1; i >= 0; i-- {
			if layers[i].Kind() == k {
				ordered = append(ordered, layers[i])
			}
		}
	}
	return &Snapshot{version: version, layers: ordered}
}

// Version increases every time the dictionary content changes.
func (s *Snapshot) Version() uint64 { return s.version }

// Layers returns the layers, highest priority first.
func (s *Snapshot) Layers() []Layer {
	out := make([]Layer, len(s.layers))
	copy(out, s.layers)
	return out
}

// ResolvePhrase returns the longest phrase starting at keys[start] from the
// first layer with any phrase match. Layers are not compared by confidence.
func (s *Snapshot) ResolvePhrase(keys []string, start int) (Match, bool) {
	if start < 0 || start >= len(keys) {
		return Match{}, false
	}
	rest := keys[start:]
	for _, l := range s.layers {
		if e, n := l.Phrase(rest); n > 0 {
			return Match{Entry: e, Length: n, Layer: l.Name(), Kind: l.Kind()}, true
		}
	}
	return Match{}, false
}

// ResolveWord looks up key directly in every layer, then retries each
// layer with the key's morphological candidates.
func (s *Snapshot) ResolveWord(key string) (Match, bool) {
	key = strings.ToLower(key)
	if key == "" {
		return Match{}, false
	}
	for _, l := range s.layers {
		if e, ok := l.Word(key); ok {
			return Match{Entry: e, Length: 1, Layer: l.Name(), Kind: l.Kind()}, true
		}
	}

	candidates := morphCandidates(key)
	for _, l := range s.layers {
		for _, c := range candidates {
			if e, ok := l.Morph(MorphKey(c)); ok {
				return Match{Entry: e, Length: 1, Layer: l.Name(), Kind: l.Kind(), Morph: true}, true
			}
		}
	}
	return Match{}, false
}

// Flatten merges all layers into one file, higher priority entries winning.
func (s *Snapshot) Flatten() File {
	out := NewFile()
	for i := len(s.layers) - 1; i >= 0; i-- {
		tl, ok := s.layers[i].(*TableLayer)
		if !ok {
			continue
		}
		for k, e := range tl.file.Words {
			out.Words[k] = e
		}
		for k, e := range tl.file.Phrases {
			out.Phrases[k] = e
		}
	}
	return out
}

// Size sums words and phrases over all layers.
func (s *Snapshot) Size() (words, phrases int) {
	for _, l := range s.layers {
		w, p := l.Size()
		words += w
		phrases += p
	}
	return words, phrases
}
