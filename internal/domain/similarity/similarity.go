// Package similarity scores how close two participant names are.
//
// Scores are derived from the Levenshtein edit distance between the
// normalized names and always fall in [0, 1].
package similarity

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Score constants.
const (
	ExactScore = 1.0
	NoScore    = 0.0
)

// Normalize case-folds s, trims it and collapses internal whitespace runs
// to a single space. Full Unicode folding maps "ß" to "ss", so "STRASSE"
// and "straße" normalize to the same text.
func Normalize(s string) string {
	// A Caser keeps state between calls; take a fresh one each time.
	return strings.Join(strings.FieldsFunc(cases.Fold().String(s), unicode.IsSpace), " ")
}

// Equal reports whether a and b are the same name after normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Score returns a normalized similarity of a and b in [0, 1].
//
// Equal names score 1, a name that is empty after normalization scores 0,
// otherwise the score is (maxLen - distance) / maxLen measured in runes.
func Score(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return NoScore
	}
	if na == nb {
		return ExactScore
	}

	ra, rb := []rune(na), []rune(nb)
	longest := max(len(ra), len(rb))
	dist := distance(ra, rb)
	return float64(longest-dist) / float64(longest)
}

// Distance returns the Levenshtein distance between the normalized forms
// of a and b.
func Distance(a, b string) int {
	return distance([]rune(Normalize(a)), []rune(Normalize(b)))
}

// distance is the classic dynamic-programming edit distance where
// substitution, insertion and deletion each cost 1. Only two rows of the
// (len(a)+1) x (len(b)+1) matrix are kept.
func distance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
