// Package guard decides which unresolved tokens are worth an oracle call.
package guard

import (
	"io"
	"log/slog"
	"regexp"
	"strings"

	nlerrors "namelens/internal/errors"
	"namelens/internal/segment"
)

// Drop reason codes.
const (
	ReasonCustom      = "custom"
	ReasonNumeric     = "numeric"
	ReasonVersion     = "version"
	ReasonDate        = "date"
	ReasonHash        = "hash"
	ReasonSingle      = "single-letter"
	ReasonStopword    = "stopword"
	ReasonKeepEnglish = "keep-english"
	ReasonLocale      = "locale"
	ReasonColor       = "color"
	ReasonBuildTag    = "build-tag"
	ReasonPunctuation = "punctuation"
	ReasonAcronym     = "acronym"
	ReasonHook        = "hook"
	ReasonPlaceholder = "placeholder"
	ReasonNoise       = "noise"
	ReasonBase64      = "base64"
	ReasonLocalized   = "localized"
)

// Rule is a user-supplied drop rule.
type Rule struct {
	Pattern string `json:"pattern" mapstructure:"pattern"`
	Reason  string `json:"reason" mapstructure:"reason"`
}

// Options configures a Guard. Nil vocabularies use the defaults.
type Options struct {
	Stopwords          []string
	KeepEnglish        []string
	AcronymWhitelist   []string
	UserWhitelist      []string
	CustomRules        []Rule
	IntelligentNumeral bool
	Logger             *slog.Logger
}

// Context describes the name the unknown tokens came from.
type Context struct {
	FileName string
	// Tokens are the normalized tokens of FileName in order. Derived from
	// FileName when empty.
	Tokens []string
}

// Stats counts one filter call.
type Stats struct {
	Total   int            `json:"total"`
	Kept    int            `json:"kept"`
	Dropped int            `json:"dropped"`
	Reasons map[string]int `json:"reasons"`
}

// Add folds other into s.
func (s *Stats) Add(other Stats) {
	s.Total += other.Total
	s.Kept += other.Kept
	s.Dropped += other.Dropped
	if len(other.Reasons) > 0 && s.Reasons == nil {
		s.Reasons = make(map[string]int)
	}
	for r, n := range other.Reasons {
		s.Reasons[r] += n
	}
}

// Decision is the verdict for one token.
type Decision struct {
	Token   string `json:"token"`
	Dropped bool   `json:"dropped"`
	Reason  string `json:"reason,omitempty"`
}

type compiledRule struct {
	re     *regexp.Regexp
	reason string
}

// Guard evaluates drop predicates in a fixed order. It is safe for
// concurrent use.
type Guard struct {
	stopwords   map[string]bool
	keepEnglish map[string]bool
	acronyms    map[string]bool
	whitelist   map[string]bool
	rules       []compiledRule
	intelligent bool
	logger      *slog.Logger
}

// New builds a guard. Custom rules that fail to compile are skipped and logged.
func New(opts Options) *Guard {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	g := &Guard{
		stopwords:   toSet(orDefault(opts.Stopwords, defaultStopwords)),
		keepEnglish: toSet(orDefault(opts.KeepEnglish, defaultKeepEnglish)),
		acronyms:    toSet(orDefault(opts.AcronymWhitelist, defaultAcronyms)),
		whitelist:   toSet(opts.UserWhitelist),
		intelligent: opts.IntelligentNumeral,
		logger:      logger,
	}
	for _, r := range opts.CustomRules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			logger.Warn("Skipping invalid guard rule",
				"pattern", r.Pattern,
				"error", nlerrors.New(nlerrors.InvalidCustomRule, "rule does not compile", err),
			)
			continue
		}
		reason := r.Reason
		if reason == "" {
			reason = ReasonCustom
		}
		g.rules = append(g.rules, compiledRule{re: re, reason: reason})
	}
	return g
}

// Rules returns the number of usable custom rules.
func (g *Guard) Rules() int {
	return len(g.rules)
}

// FilterUnknown case-folds and de-duplicates unknown, drops tokens not worth
// an oracle call, and returns the rest in first-seen order.
func (g *Guard) FilterUnknown(unknown []string, ctx Context) ([]string, Stats) {
	send, stats, _ := g.Explain(unknown, ctx)
	return send, stats
}

// Explain is FilterUnknown with a per-token decision list.
func (g *Guard) Explain(unknown []string, ctx Context) ([]string, Stats, []Decision) {
	stats := Stats{Reasons: make(map[string]int)}
	if len(ctx.Tokens) == 0 && ctx.FileName != "" {
		ctx.Tokens = segment.Segment(ctx.FileName).Keys()
	}
	dates := dateSpans(ctx.Tokens)

	var (
		send      []string
		decisions []Decision
		seen      = make(map[string]bool, len(unknown))
	)
	for _, raw := range unknown {
		key := strings.ToLower(strings.TrimSpace(raw))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		stats.Total++

		reason := g.reason(raw, key, ctx, dates)
		d := Decision{Token: key, Dropped: reason != "", Reason: reason}
		decisions = append(decisions, d)
		if d.Dropped {
			stats.Dropped++
			stats.Reasons[reason]++
			continue
		}
		stats.Kept++
		send = append(send, key)
	}
	return send, stats, decisions
}

// reason returns the first matching drop reason, or "" to keep the token.
func (g *Guard) reason(raw, key string, ctx Context, dates map[string]bool) string {
	if g.whitelist[key] {
		return ""
	}
	for _, r := range g.rules {
		if r.re.MatchString(raw) || r.re.MatchString(key) {
			return r.reason
		}
	}
	if segment.IsNumeral(key) {
		return g.numeralReason(key, ctx, dates)
	}

	switch {
	case isVersion(key):
		return ReasonVersion
	case isDate(key):
		return ReasonDate
	case isHash(key):
		return ReasonHash
	case isSingleLetter(key):
		return ReasonSingle
	case g.stopwords[key]:
		return ReasonStopword
	case g.keepEnglish[key]:
		return ReasonKeepEnglish
	case isLocale(key):
		return ReasonLocale
	case isColor(key):
		return ReasonColor
	case buildTagSet[key]:
		return ReasonBuildTag
	case isPunctuation(key):
		return ReasonPunctuation
	case g.acronyms[key]:
		return ReasonAcronym
	case isHook(raw):
		return ReasonHook
	case placeholderSet[key]:
		return ReasonPlaceholder
	case isNoise(key):
		return ReasonNoise
	case isBase64(raw):
		return ReasonBase64
	case isLocalized(key):
		return ReasonLocalized
	}
	return ""
}

func (g *Guard) numeralReason(key string, ctx Context, dates map[string]bool) string {
	if dates[key] || isCompactDate(key) {
		return ReasonDate
	}
	if g.intelligent && semanticNumeral(key, ctx) {
		return ""
	}
	return ReasonNumeric
}

func orDefault(v, def []string) []string {
	if v == nil {
		return def
	}
	return v
}

func toSet(words []string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			m[w] = true
		}
	}
	return m
}
