// Package similarity implements the lexical title similarity used by the
// dedup and clustering passes. It is intentionally cheap (plain token
// overlap, no stemming or locale handling) because it runs O(n^2) times per
// scan.
package similarity

import (
	"regexp"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s]`)

// minTokenLength drops short stopword-like tokens ("a", "an", "to"). Note
// "AI" normalizes to "ai" and is dropped too, being below the cutoff.
const minTokenLength = 3

// Tokens normalizes a string into its comparison token set: lowercased,
// stripped of non-alphanumerics, split on whitespace, short tokens dropped,
// duplicates collapsed.
func Tokens(s string) map[string]struct{} {
	cleaned := nonAlphanumeric.ReplaceAllString(strings.ToLower(s), "")
	tokens := make(map[string]struct{})
	for _, word := range strings.Fields(cleaned) {
		if len(word) >= minTokenLength {
			tokens[word] = struct{}{}
		}
	}
	return tokens
}

// TitleSimilarity returns the Jaccard index of the two titles' token sets,
// in [0,1]. If either title normalizes to an empty set the result is 0: that
// avoids division by zero and keeps titles made only of short tokens from
// matching everything.
func TitleSimilarity(a, b string) float64 {
	tokensA := Tokens(a)
	tokensB := Tokens(b)

	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	intersection := 0
	for token := range tokensA {
		if _, ok := tokensB[token]; ok {
			intersection++
		}
	}
	union := len(tokensA) + len(tokensB) - intersection

	return float64(intersection) / float64(union)
}
