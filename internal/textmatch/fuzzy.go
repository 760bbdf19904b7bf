// fuzzy.go - Fuzzy text matching for noisy OCR output

package textmatch

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases, strips accents and drops punctuation so "Operación:"
// and "operacion" compare equal.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = stripAccents(text)

	result := strings.Builder{}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			result.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(result.String()), " ")
}

// stripAccents removes combining marks after NFD decomposition
func stripAccents(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}

// Similarity calculates Levenshtein-based similarity between two strings.
// Return: similarity score 0.0-1.0
func Similarity(text1, text2 string) float64 {
	r1 := []rune(text1)
	r2 := []rune(text2)
	if len(r1) > 200 {
		r1 = r1[:200]
	}
	if len(r2) > 200 {
		r2 = r2[:200]
	}

	distance := levenshteinDistance(r1, r2)
	maxLen := float64(maxInt(len(r1), len(r2)))
	if maxLen == 0 {
		return 0
	}

	return math.Max(0, 1.0-float64(distance)/maxLen)
}

// ContainsFuzzy reports whether any word in text matches keyword at or
// above the threshold. Both sides should be normalized first.
func ContainsFuzzy(text, keyword string, threshold float64) (bool, float64) {
	if keyword == "" {
		return false, 0
	}
	if strings.Contains(text, keyword) {
		return true, 1.0
	}

	best := 0.0
	for _, word := range strings.Fields(text) {
		if len(word) < 2 {
			continue
		}
		sim := Similarity(keyword, word)
		if sim > best {
			best = sim
		}
		if best > 0.95 {
			break
		}
	}
	return best >= threshold, best
}

// levenshteinDistance computes edit distance between 2 rune slices.
// Algorithm: Dynamic Programming
func levenshteinDistance(s1, s2 []rune) int {
	len1 := len(s1)
	len2 := len(s2)

	matrix := make([][]int, len1+1)
	for i := range matrix {
		matrix[i] = make([]int, len2+1)
	}

	for i := 0; i <= len1; i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len2; j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len1; i++ {
		for j := 1; j <= len2; j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}

			matrix[i][j] = minOf3(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len1][len2]
}

func minOf3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
