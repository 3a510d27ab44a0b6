// Package similarity provides text similarity primitives for
// bibliographic deduplication.
package similarity

import "strings"

// editDistanceCutoff is the maximum edit distance for which the
// normalized-distance formula applies; beyond it the comparison falls
// back to a Jaccard over token bigrams.
const editDistanceCutoff = 3

// NormalizeTitle lowercases a title, strips non-alphanumeric runes,
// and collapses whitespace so that formatting noise does not defeat
// comparison.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	lastSpace := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// TitleSimilarity returns a similarity in [0,1] between two titles.
// Near-identical titles are measured by normalized edit distance;
// titles further apart fall back to bigram Jaccard, which tolerates
// reordered or inserted words.
func TitleSimilarity(a, b string) float64 {
	na, nb := NormalizeTitle(a), NormalizeTitle(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	maxLen := len(na)
	if len(nb) > maxLen {
		maxLen = len(nb)
	}

	dist := editDistance(na, nb)
	if dist <= editDistanceCutoff {
		return 1.0 - float64(dist)/float64(maxLen)
	}
	return JaccardSimilarity(tokenBigrams(na), tokenBigrams(nb))
}

// editDistance computes the Levenshtein distance with a two-row DP.
func editDistance(a, b string) int {
	if a == b {
		return 0
	}
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
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// tokenBigrams returns the set of adjacent token pairs of a normalized
// title. Single-token titles degrade to the token itself.
func tokenBigrams(normalized string) map[string]bool {
	tokens := strings.Fields(normalized)
	set := make(map[string]bool, len(tokens))
	if len(tokens) == 1 {
		set[tokens[0]] = true
		return set
	}
	for i := 0; i+1 < len(tokens); i++ {
		set[tokens[i]+" "+tokens[i+1]] = true
	}
	return set
}

// JaccardSimilarity calculates the Jaccard similarity between two sets.
// Returns a value between 0 (no overlap) and 1 (identical).
func JaccardSimilarity(set1, set2 map[string]bool) float64 {
	if len(set1) == 0 && len(set2) == 0 {
		return 1.0
	}
	if len(set1) == 0 || len(set2) == 0 {
		return 0.0
	}

	intersection := 0
	for term := range set1 {
		if set2[term] {
			intersection++
		}
	}

	union := len(set1) + len(set2) - intersection
	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}
