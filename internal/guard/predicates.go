package guard

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	buildTagSet    = toSet(buildTags)
	placeholderSet = toSet(placeholders)
	localeSet      = toSet(localeCodes)
	colorSet       = toSet(colorWords)
	markerSet      = toSet(numeralMarkers)
)

var (
	versionRe  = regexp.MustCompile(`^v\d+([._-]?\d+)*([-.+]?[a-z][a-z0-9.]*)?$`)
	semverRe   = regexp.MustCompile(`^\d+\.\d+(\.\d+)?([-+][0-9a-z.-]+)?$`)
	dateRe     = regexp.MustCompile(`^\d{4}[-_.]\d{1,2}[-_.]\d{1,2}([t_ ]\d{2}[:-]?\d{2}([:-]?\d{2})?z?)?$`)
	stampRe    = regexp.MustCompile(`^\d{8}t\d{4,6}z?$`)
	hexRe      = regexp.MustCompile(`^[0-9a-f]{7,64}$`)
	colorHexRe = regexp.MustCompile(`^#?([0-9a-f]{3}|[0-9a-f]{6}|[0-9a-f]{8})$`)
	localeRe   = regexp.MustCompile(`^[a-z]{2}[-_]([a-z]{2}|hans|hant)$`)
	hookRe     = regexp.MustCompile(`^use[A-Z]`)
	base64Re   = regexp.MustCompile(`^[A-Za-z0-9+/_-]{16,}={0,2}$`)
)

const (
	noiseMaxRunes   = 40
	noiseMinLen     = 16
	noiseMinEntropy = 4.0
)

func isVersion(s string) bool {
	return versionRe.MatchString(s) || semverRe.MatchString(s)
}

func isDate(s string) bool {
	return dateRe.MatchString(s) || stampRe.MatchString(s)
}

func isHash(s string) bool {
	return hexRe.MatchString(s) && strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func isSingleLetter(s string) bool {
	return len(s) == 1 && s[0] >= 'a' && s[0] <= 'z'
}

func isLocale(s string) bool {
	return localeSet[s] || localeRe.MatchString(s)
}

func isColor(s string) bool {
	if colorSet[s] {
		return true
	}
	if !colorHexRe.MatchString(s) {
		return false
	}
	return strings.HasPrefix(s, "#") || strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func isPunctuation(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func isHook(raw string) bool {
	return hookRe.MatchString(raw)
}

func isNoise(s string) bool {
	n := len([]rune(s))
	if n > noiseMaxRunes {
		return true
	}
	return n >= noiseMinLen && ShannonEntropy(s) >= noiseMinEntropy
}

func isBase64(raw string) bool {
	if !base64Re.MatchString(raw) {
		return false
	}
	if strings.HasSuffix(raw, "=") {
		return true
	}
	var upper, lower, digit bool
	for _, r := range raw {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return upper && lower && digit
}

// isLocalized reports a token with no ASCII letters or digits, such as an
// already translated alias fragment.
func isLocalized(s string) bool {
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return false
		}
	}
	return s != ""
}

// dateSpans marks numerals that sit inside year-month[-day] or
// day-month-year runs of tokens.
func dateSpans(tokens []string) map[string]bool {
	marked := make(map[string]bool)
	n := len(tokens)
	for i := 0; i+1 < n; i++ {
		if isYear(tokens[i]) && inRange(tokens[i+1], 2, 1, 12) {
			marked[tokens[i]] = true
			marked[tokens[i+1]] = true
			if i+2 < n && inRange(tokens[i+2], 2, 1, 31) {
				marked[tokens[i+2]] = true
			}
			continue
		}
		if i+2 < n && inRange(tokens[i], 2, 1, 31) && inRange(tokens[i+1], 2, 1, 12) && isYear(tokens[i+2]) {
			marked[tokens[i]] = true
			marked[tokens[i+1]] = true
			marked[tokens[i+2]] = true
		}
	}
	return marked
}

// isCompactDate matches yyyymmdd, yyyymmddhhmmss and unix timestamps.
func isCompactDate(s string) bool {
	switch len(s) {
	case 8, 14:
		return isYear(s[:4]) && inRange(s[4:6], 2, 1, 12) && inRange(s[6:8], 2, 1, 31)
	case 10, 13:
		return s[0] == '1'
	}
	return false
}

// semanticNumeral keeps small ordinals, plausible years and numerals near
// words like "chapter" or "level".
func semanticNumeral(s string, ctx Context) bool {
	if v, ok := atoi(s, 9); ok && ((v >= 1 && v <= 10) || (v >= 1900 && v <= 2100)) {
		return true
	}
	for i, t := range ctx.Tokens {
		if t != s {
			continue
		}
		if i > 0 && markerSet[ctx.Tokens[i-1]] {
			return true
		}
		if i+1 < len(ctx.Tokens) && markerSet[ctx.Tokens[i+1]] {
			return true
		}
	}
	for _, t := range ctx.Tokens {
		if markerSet[t] {
			return true
		}
	}
	return false
}

func isYear(s string) bool {
	return len(s) == 4 && inRange(s, 4, 1900, 2100)
}

func inRange(s string, maxDigits, lo, hi int) bool {
	v, ok := atoi(s, maxDigits)
	return ok && v >= lo && v <= hi
}

func atoi(s string, maxDigits int) (int, bool) {
	if s == "" || len(s) > maxDigits {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
