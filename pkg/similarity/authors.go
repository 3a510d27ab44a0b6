package similarity

import "strings"

// NormalizeSurname extracts a comparable surname from an author string.
// Handles both "A. Lee" and "Lee, A." forms; initials and punctuation
// are discarded.
func NormalizeSurname(author string) string {
	author = strings.TrimSpace(author)
	if author == "" {
		return ""
	}

	// "Lee, A." puts the surname first.
	if idx := strings.IndexByte(author, ','); idx >= 0 {
		author = author[:idx]
	} else {
		fields := strings.Fields(author)
		if len(fields) == 0 {
			return ""
		}
		author = fields[len(fields)-1]
	}

	var b strings.Builder
	for _, r := range strings.ToLower(author) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SurnameSet returns the set of normalized surnames for an author list.
func SurnameSet(authors []string) map[string]bool {
	set := make(map[string]bool, len(authors))
	for _, a := range authors {
		if s := NormalizeSurname(a); s != "" {
			set[s] = true
		}
	}
	return set
}

// AuthorOverlap returns |intersection of normalized surnames| divided
// by the larger list size. Empty lists yield 0.
func AuthorOverlap(a, b []string) float64 {
	setA, setB := SurnameSet(a), SurnameSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for s := range setA {
		if setB[s] {
			intersection++
		}
	}

	maxLen := len(setA)
	if len(setB) > maxLen {
		maxLen = len(setB)
	}
	return float64(intersection) / float64(maxLen)
}
