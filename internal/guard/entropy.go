package guard

import "math"

// ShannonEntropy calculates the Shannon entropy of a string in bits per rune.
// Typical values for identifier tokens:
//   - < 3.0: dictionary words and short abbreviations
//   - 3.0-4.0: long compound words
//   - > 4.0: random ids, keys and hashes
func ShannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}

	freq := make(map[rune]int)
	n := 0
	for _, r := range s {
		freq[r]++
		n++
	}

	length := float64(n)
	var entropy float64
	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}
	return entropy
}
