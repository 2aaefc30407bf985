package dictionary

import "strings"

// MorphKey reduces an English inflection to a shared lookup key:
// plural -s/-es/-ies, gerund -ing and past -ed, with doubled-consonant and
// -e restoring special cases. Only one rule is applied. Non-ASCII words and
// words of three letters or fewer are returned lowercased and unchanged.
//
//	MorphKey("elements")  == "element"
//	MorphKey("analyzing") == "analyze"
//	MorphKey("walked")    == "walk"
func MorphKey(word string) string {
	return morphCandidates(word)[0]
}

// morphCandidates returns MorphKey first, followed by a variant for endings
// that are ambiguous ("parsing" -> "pars", "parse"; "movies" -> "movy", "movie").
func morphCandidates(word string) []string {
	w := strings.ToLower(word)
	if len(w) <= 3 || !isASCIILetters(w) {
		return []string{w}
	}

	switch {
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		return []string{w[:len(w)-3] + "y", w[:len(w)-1]}
	case strings.HasSuffix(w, "sses"):
		return []string{w[:len(w)-2]}
	case strings.HasSuffix(w, "xes"), strings.HasSuffix(w, "shes"),
		strings.HasSuffix(w, "oaches"), strings.HasSuffix(w, "eaches"):
		return []string{w[:len(w)-2]}
	case strings.HasSuffix(w, "ches") && len(w) > 4 && !isVowel(w, len(w)-5):
		return []string{w[:len(w)-2]}
	case strings.HasSuffix(w, "ss"), strings.HasSuffix(w, "us"), strings.HasSuffix(w, "is"):
		return []string{w}
	case strings.HasSuffix(w, "s"):
		return []string{w[:len(w)-1]}
	case strings.HasSuffix(w, "ing"):
		return verbStem(w, w[:len(w)-3])
	case strings.HasSuffix(w, "eed"):
		return []string{w}
	case strings.HasSuffix(w, "ed"):
		return verbStem(w, w[:len(w)-2])
	}
	return []string{w}
}

// verbStem repairs a stem left by stripping -ing or -ed.
func verbStem(word, stem string) []string {
	if len(stem) < 2 || !hasVowel(stem) {
		return []string{word}
	}

	for _, suf := range []string{"at", "bl", "iz", "yz"} {
		if strings.HasSuffix(stem, suf) {
			return []string{stem + "e"}
		}
	}

	n := len(stem)
	if stem[n-1] == stem[n-2] && !isVowel(stem, n-1) && !strings.ContainsRune("lsz", rune(stem[n-1])) {
		return []string{stem[:n-1]}
	}

	if measure(stem) == 1 && endsCVC(stem) {
		return []string{stem + "e"}
	}
	if strings.HasSuffix(stem, "e") {
		return []string{stem}
	}
	return []string{stem, stem + "e"}
}

func isASCIILetters(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}

// isVowel treats y as a vowel when it follows a consonant.
func isVowel(s string, i int) bool {
	switch s[i] {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	case 'y':
		return i > 0 && !isVowel(s, i-1)
	}
	return false
}

func hasVowel(s string) bool {
	for i := range s {
		if isVowel(s, i) {
			return true
		}
	}
	return false
}

// measure counts vowel-consonant sequences ([C](VC)^m[V]).
func measure(s string) int {
	m := 0
	prevVowel := false
	for i := range s {
		v := isVowel(s, i)
		if prevVowel && !v {
			m++
		}
		prevVowel = v
	}
	return m
}

// endsCVC reports a consonant-vowel-consonant ending whose last letter is not w, x or y.
func endsCVC(s string) bool {
	n := len(s)
	if n < 3 {
		return false
	}
	if isVowel(s, n-3) || !isVowel(s, n-2) || isVowel(s, n-1) {
		return false
	}
	return !strings.ContainsRune("wxy", rune(s[n-1]))
}
