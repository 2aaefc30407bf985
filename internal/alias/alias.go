// Package alias assembles a localized alias from resolved token pieces.
package alias

import (
	"fmt"
	"strings"

	"namelens/internal/numeral"
)

// Strategy selects how pieces are assembled.
type Strategy int

const (
	// Literal keeps token order, delimiters and the extension.
	Literal Strategy = iota
	// Natural picks a head noun and reorders modifiers before it.
	Natural
)

func (s Strategy) String() string {
	if s == Natural {
		return "natural"
	}
	return "literal"
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseStrategy converts a strategy name; empty means Literal.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "literal":
		return Literal, nil
	case "natural":
		return Natural, nil
	}
	return Literal, fmt.Errorf("unknown strategy %q", s)
}

// Source tells where the alias content came from.
type Source string

const (
	SourceDictionary Source = "dictionary"
	SourceRule       Source = "rule"
	SourceOracle     Source = "oracle"
	SourceFallback   Source = "fallback"
)

// Result is a finished alias with its diagnostics.
type Result struct {
	Alias         string   `json:"alias"`
	Confidence    float64  `json:"confidence"`
	Coverage      float64  `json:"coverage"`
	UnknownTokens []string `json:"unknownTokens"`
	Source        Source   `json:"source"`
	DebugTrace    string   `json:"debugTrace,omitempty"`
}

// ExtensionMode controls the extension in literal output.
type ExtensionMode string

const (
	ExtKeep ExtensionMode = "keep"
	ExtMap  ExtensionMode = "map"
	ExtDrop ExtensionMode = "drop"
)

// ParseExtensionMode converts a mode name; empty means ExtKeep.
func ParseExtensionMode(s string) (ExtensionMode, error) {
	switch ExtensionMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ExtKeep:
		return ExtKeep, nil
	case ExtMap:
		return ExtMap, nil
	case ExtDrop:
		return ExtDrop, nil
	}
	return ExtKeep, fmt.Errorf("unknown extension mode %q", s)
}

// DefaultMaxAliasLength bounds natural output, in runes.
const DefaultMaxAliasLength = 80

// Options configures a Builder.
type Options struct {
	// Joiner replaces empty camelCase boundaries next to a translated piece
	// in literal output. Empty keeps pieces adjacent.
	Joiner        string
	ExtensionMode ExtensionMode
	// LiteralExtensions maps a lowercase extension to its literal-mode replacement.
	LiteralExtensions map[string]string
	// NaturalExtensions maps a lowercase extension to a semantic suffix.
	NaturalExtensions map[string]string
	MaxAliasLength    int
	Numerals          numeral.Renderer
	Categories        *Categories
}

// Builder assembles aliases. It holds no mutable state.
type Builder struct {
	opts Options
}

// NewBuilder creates a builder, filling unset options with defaults.
func NewBuilder(opts Options) *Builder {
	if opts.ExtensionMode == "" {
		opts.ExtensionMode = ExtKeep
	}
	if opts.MaxAliasLength <= 0 {
		opts.MaxAliasLength = DefaultMaxAliasLength
	}
	if opts.Categories == nil {
		opts.Categories = DefaultCategories()
	}
	return &Builder{opts: opts}
}

// Build dispatches on strategy.
func (b *Builder) Build(strategy Strategy, plan Plan) Result {
	if strategy == Natural {
		return b.Natural(plan)
	}
	return b.Literal(plan)
}

// ConfidenceFor maps coverage to confidence: >=1 0.95, >=0.8 0.85, >=0.5 0.65, else 0.4.
func ConfidenceFor(coverage float64) float64 {
	switch {
	case coverage >= 1:
		return 0.95
	case coverage >= 0.8:
		return 0.85
	case coverage >= 0.5:
		return 0.65
	}
	return 0.4
}
