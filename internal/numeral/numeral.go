// Package numeral renders pure-digit tokens according to a display policy.
package numeral

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode selects how numerals are displayed.
type Mode string

const (
	// Keep leaves digits unchanged.
	Keep Mode = "keep"
	// Localized spells numbers with Chinese numeral characters.
	Localized Mode = "localized"
	// Roman converts 1..3999 to Roman numerals.
	Roman Mode = "roman"
)

// ParseMode converts a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", Keep:
		return Keep, nil
	case Localized:
		return Localized, nil
	case Roman:
		return Roman, nil
	default:
		return "", fmt.Errorf("unknown numeral mode %q (want keep, localized or roman)", s)
	}
}

// Renderer rewrites numerals. The zero value keeps digits as-is.
type Renderer struct {
	mode Mode
}

// NewRenderer creates a Renderer for mode.
func NewRenderer(mode Mode) Renderer {
	return Renderer{mode: mode}
}

// Mode returns the configured mode.
func (r Renderer) Mode() Mode {
	if r.mode == "" {
		return Keep
	}
	return r.mode
}

// Render returns the display form of digits. Inputs that the mode cannot
// express (out of range, leading zeros for roman) are returned unchanged.
func (r Renderer) Render(digits string) string {
	switch r.mode {
	case Localized:
		return localized(digits)
	case Roman:
		n, err := strconv.Atoi(digits)
		if err != nil || n < 1 || n > 3999 || digits[0] == '0' {
			return digits
		}
		return roman(n)
	default:
		return digits
	}
}

var digitChars = []string{"〇", "一", "二", "三", "四", "五", "六", "七", "八", "九"}

const interiorZero = "零"

var units = []struct {
	value int
	word  string
}{
	{1000, "千"},
	{100, "百"},
	{10, "十"},
}

// localized spells values below ten thousand as cardinals (十九, 一百零五) and
// reads anything longer, or anything with a leading zero, digit by digit.
func localized(digits string) string {
	n, err := strconv.Atoi(digits)
	if err != nil || n >= 10000 || (len(digits) > 1 && digits[0] == '0') {
		var b strings.Builder
		for i := 0; i < len(digits); i++ {
			c := digits[i]
			if c < '0' || c > '9' {
				return digits
			}
			b.WriteString(digitChars[c-'0'])
		}
		return b.String()
	}
	if n == 0 {
		return digitChars[0]
	}

	var b strings.Builder
	pendingZero := false
	for _, u := range units {
		count := n / u.value
		n %= u.value
		if count == 0 {
			if b.Len() > 0 {
				pendingZero = true
			}
			continue
		}
		if pendingZero {
			b.WriteString(interiorZero)
			pendingZero = false
		}
		// 十 rather than 一十 at the start.
		if !(u.value == 10 && count == 1 && b.Len() == 0) {
			b.WriteString(digitChars[count])
		}
		b.WriteString(u.word)
	}
	if n > 0 {
		if pendingZero {
			b.WriteString(interiorZero)
		}
		b.WriteString(digitChars[n])
	}
	return b.String()
}

var romanTable = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

func roman(n int) string {
	var b strings.Builder
	for _, e := range romanTable {
		for n >= e.value {
			b.WriteString(e.symbol)
			n -= e.value
		}
	}
	return b.String()
}
