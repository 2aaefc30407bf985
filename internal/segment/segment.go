// Package segment splits machine-style identifiers (camelCase, PascalCase,
// snake_case, kebab-case, dot.case) into classified tokens.
//
// Segmentation is lossless: every separator run is kept verbatim, so
// Result.Rebuild always reproduces the input byte-for-byte.
package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind classifies a token.
type Kind int

const (
	// Word is any token that is neither an acronym nor a numeral.
	Word Kind = iota
	// Acronym is two or more consecutive upper-case letters.
	Acronym
	// Numeral is a run of ASCII digits.
	Numeral
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case Acronym:
		return "acronym"
	case Numeral:
		return "numeral"
	default:
		return "word"
	}
}

// MarshalText implements encoding.TextMarshaler so kinds serialize by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Token is one letter/digit run produced by segmentation.
type Token struct {
	Raw        string `json:"raw"`
	Normalized string `json:"normalized"`
	Kind       Kind   `json:"kind"`
}

// Result is the outcome of segmenting one name.
//
// Delimiters[i] is the separator text that immediately follows Tokens[i]; it is
// empty when the boundary was a soft camelCase break.
type Result struct {
	Leading      string   `json:"leading,omitempty"`
	Tokens       []Token  `json:"tokens"`
	Delimiters   []string `json:"delimiters"`
	Extension    string   `json:"extension,omitempty"`
	RawExtension string   `json:"-"`
}

// HasExtension reports whether a trailing ".ext" was split off.
func (r Result) HasExtension() bool {
	return r.RawExtension != ""
}

// Keys returns the normalized form of every token, in order.
func (r Result) Keys() []string {
	keys := make([]string, len(r.Tokens))
	for i, t := range r.Tokens {
		keys[i] = t.Normalized
	}
	return keys
}

// Rebuild reassembles the original name.
func (r Result) Rebuild() string {
	var b strings.Builder
	b.WriteString(r.Leading)
	for i, t := range r.Tokens {
		b.WriteString(t.Raw)
		if i < len(r.Delimiters) {
			b.WriteString(r.Delimiters[i])
		}
	}
	if r.HasExtension() {
		b.WriteByte('.')
		b.WriteString(r.RawExtension)
	}
	return b.String()
}

// Options configures a Segmenter.
type Options struct {
	// KnownAcronyms enables longest-known-prefix splitting of long capital
	// runs ("HTMLDOM" -> "HTML", "DOM"). Without it, runs of four or more
	// capitals are cut into 2-letter groups.
	KnownAcronyms []string
}

// Segmenter splits names into tokens. It is immutable and safe for
// concurrent use.
type Segmenter struct {
	acronyms   map[string]struct{}
	maxAcronym int
}

// New creates a Segmenter.
func New(opts Options) *Segmenter {
	s := &Segmenter{}
	if len(opts.KnownAcronyms) > 0 {
		s.acronyms = make(map[string]struct{}, len(opts.KnownAcronyms))
		for _, a := range opts.KnownAcronyms {
			a = strings.ToUpper(strings.TrimSpace(a))
			if utf8.RuneCountInString(a) < 2 {
				continue
			}
			s.acronyms[a] = struct{}{}
			if n := utf8.RuneCountInString(a); n > s.maxAcronym {
				s.maxAcronym = n
			}
		}
	}
	return s
}

var defaultSegmenter = New(Options{})

// Segment splits name with the default (table-free) segmenter.
func Segment(name string) Result {
	return defaultSegmenter.Segment(name)
}

// Segment splits name into tokens, delimiters and extension.
func (s *Segmenter) Segment(name string) Result {
	res := Result{
		Tokens:     []Token{},
		Delimiters: []string{},
	}
	if name == "" {
		return res
	}

	base := name
	if idx := strings.LastIndexByte(name, '.'); idx > 0 && isExtension(name[idx+1:]) {
		base = name[:idx]
		res.RawExtension = name[idx+1:]
		res.Extension = strings.ToLower(res.RawExtension)
	}

	i := 0
	// Separator text before the first run has no token to attach to.
	for i < len(base) {
		r, size := utf8.DecodeRuneInString(base[i:])
		if isAlnum(r) {
			break
		}
		i += size
	}
	res.Leading = base[:i]

	for i < len(base) {
		start := i
		for i < len(base) {
			r, size := utf8.DecodeRuneInString(base[i:])
			if !isAlnum(r) {
				break
			}
			i += size
		}
		run := base[start:i]

		sepStart := i
		for i < len(base) {
			r, size := utf8.DecodeRuneInString(base[i:])
			if isAlnum(r) {
				break
			}
			i += size
		}
		sep := base[sepStart:i]

		parts := s.splitRun(run)
		for j, p := range parts {
			res.Tokens = append(res.Tokens, newToken(p))
			if j == len(parts)-1 {
				res.Delimiters = append(res.Delimiters, sep)
			} else {
				res.Delimiters = append(res.Delimiters, "")
			}
		}
	}

	return res
}

// splitRun inserts soft breaks inside one letter/digit run.
func (s *Segmenter) splitRun(run string) []string {
	runes := []rune(run)
	var parts []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		lowerToUpper := (unicode.IsLower(prev) || unicode.IsDigit(prev)) && unicode.IsUpper(cur)
		capsToWord := unicode.IsUpper(prev) && unicode.IsUpper(cur) &&
			i+1 < len(runes) && unicode.IsLower(runes[i+1])
		if lowerToUpper || capsToWord {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	parts = append(parts, string(runes[start:]))

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if isCapsRun(p) && utf8.RuneCountInString(p) >= 4 {
			out = append(out, s.splitCaps(p)...)
			continue
		}
		out = append(out, p)
	}
	return out
}

// splitCaps breaks a run of four or more capitals. Known acronyms are taken
// greedily by longest prefix; whatever remains falls back to 2-letter groups.
func (s *Segmenter) splitCaps(p string) []string {
	runes := []rune(p)
	var out []string
	pos := 0
	if len(s.acronyms) > 0 {
		for pos < len(runes) {
			n := s.longestKnownPrefix(runes[pos:])
			if n == 0 {
				break
			}
			out = append(out, string(runes[pos:pos+n]))
			pos += n
		}
	}
	for ; pos < len(runes); pos += 2 {
		end := pos + 2
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[pos:end]))
	}
	return out
}

func (s *Segmenter) longestKnownPrefix(runes []rune) int {
	limit := s.maxAcronym
	if limit > len(runes) {
		limit = len(runes)
	}
	for n := limit; n >= 2; n-- {
		if _, ok := s.acronyms[string(runes[:n])]; ok {
			return n
		}
	}
	return 0
}

func newToken(raw string) Token {
	t := Token{Raw: raw, Normalized: strings.ToLower(raw), Kind: Word}
	switch {
	case IsNumeral(raw):
		t.Kind = Numeral
	case isCapsRun(raw) && utf8.RuneCountInString(raw) >= 2:
		t.Kind = Acronym
	}
	return t
}

// IsNumeral reports whether s is a non-empty run of ASCII digits.
func IsNumeral(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isCapsRun(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

// isExtension accepts a non-empty alphanumeric suffix holding at least one
// letter, so version tails like "1.2.3" are not mistaken for extensions.
func isExtension(s string) bool {
	if s == "" {
		return false
	}
	hasLetter := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
		default:
			return false
		}
	}
	return hasLetter
}
