// Package coverage checks that an assembled alias still represents every
// meaningful token of its source name.
package coverage

import (
	"strings"

	"namelens/internal/alias"
	"namelens/internal/dictionary"
	"namelens/internal/guard"
	"namelens/internal/numeral"
	"namelens/internal/segment"
)

// Options configures a Checker.
type Options struct {
	// Stopwords are ignored; nil means the guard's default list.
	Stopwords []string
	Segmenter *segment.Segmenter
	Numerals  numeral.Renderer
}

// Checker re-segments source names and looks for each token in an alias.
type Checker struct {
	seg       *segment.Segmenter
	stopwords map[string]bool
	numerals  numeral.Renderer
}

// New creates a Checker.
func New(opts Options) *Checker {
	words := opts.Stopwords
	if words == nil {
		words = guard.DefaultStopwords()
	}
	stop := make(map[string]bool, len(words))
	for _, w := range words {
		stop[strings.ToLower(w)] = true
	}
	seg := opts.Segmenter
	if seg == nil {
		seg = segment.New(segment.Options{})
	}
	return &Checker{seg: seg, stopwords: stop, numerals: opts.Numerals}
}

// Token is the verdict for one source token or phrase.
type Token struct {
	Key string `json:"key"`
	// Expected is the translation looked for; empty when untranslated.
	Expected string `json:"expected,omitempty"`
	Covered  bool   `json:"covered"`
	Stopword bool   `json:"stopword,omitempty"`
}

// Detail is a per-token coverage report.
type Detail struct {
	Tokens     []Token `json:"tokens"`
	Misses     int     `json:"misses"`
	Sufficient bool    `json:"sufficient"`
}

// Missing returns the keys that were not found in the alias.
func (d Detail) Missing() []string {
	var out []string
	for _, t := range d.Tokens {
		if !t.Covered && !t.Stopword {
			out = append(out, t.Key)
		}
	}
	return out
}

// IsSufficient reports whether alias misses at most allowedMisses tokens of source.
func (c *Checker) IsSufficient(snap *dictionary.Snapshot, fresh map[string]string, source, aliasText string, allowedMisses int) bool {
	return c.Detail(snap, fresh, source, aliasText, allowedMisses).Sufficient
}

// Detail checks every non-stopword token of source. A token counts as
// covered when its translation (phrase, numeral, fresh oracle answer or
// dictionary word, in builder order) appears in the alias, or when its
// original or upper-case form does.
func (c *Checker) Detail(snap *dictionary.Snapshot, fresh map[string]string, source, aliasText string, allowedMisses int) Detail {
	res := c.seg.Segment(source)
	keys := res.Keys()
	var d Detail

	for i := 0; i < len(res.Tokens); {
		tok := res.Tokens[i]

		if snap != nil {
			if m, ok := snap.ResolvePhrase(keys, i); ok {
				key := strings.Join(keys[i:i+m.Length], " ")
				d.add(Token{Key: key, Expected: m.Alias, Covered: contains(aliasText, m.Alias)})
				i += m.Length
				continue
			}
		}

		t := Token{Key: tok.Normalized}
		switch {
		case c.stopwords[tok.Normalized]:
			t.Stopword = true
			t.Covered = true
		default:
			t.Expected = c.translation(snap, fresh, tok)
			t.Covered = (t.Expected != "" && contains(aliasText, t.Expected)) ||
				strings.Contains(aliasText, tok.Raw) ||
				strings.Contains(aliasText, strings.ToUpper(tok.Raw))
		}
		d.add(t)
		i++
	}

	d.Sufficient = d.Misses <= allowedMisses
	return d
}

func (c *Checker) translation(snap *dictionary.Snapshot, fresh map[string]string, tok segment.Token) string {
	if tok.Kind == segment.Numeral {
		return c.numerals.Render(tok.Raw)
	}
	if a := fresh[tok.Normalized]; a != "" {
		return a
	}
	if snap != nil {
		if m, ok := snap.ResolveWord(tok.Normalized); ok {
			return m.Alias
		}
	}
	return ""
}

func (d *Detail) add(t Token) {
	if !t.Covered {
		d.Misses++
	}
	d.Tokens = append(d.Tokens, t)
}

// contains compares against the sanitized translation, since builders
// substitute illegal characters.
func contains(aliasText, translation string) bool {
	return translation != "" && strings.Contains(aliasText, alias.Sanitize(translation))
}
