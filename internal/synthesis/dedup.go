// Package synthesis implements the result processor: cross-source
// deduplication, unified relevance scoring, threshold filtering, and
// the total result ordering.
package synthesis

import (
	"github.com/paperscope/paperscope/pkg/models"
	"github.com/paperscope/paperscope/pkg/similarity"
)

// Dedup thresholds. Two candidates are equivalent when their DOIs match
// case-insensitively, or their titles are near-identical and either the
// author lists overlap strongly or the titles are practically equal
// with publication years at most one apart.
const (
	titleSimilarityThreshold = 0.85
	titleNearExactThreshold  = 0.95
	authorOverlapThreshold   = 0.7
	maxYearGap               = 1
)

// Equivalent reports whether two candidates describe the same paper.
func Equivalent(a, b *models.DiscoveredPaper) bool {
	if doiA, doiB := a.NormalizedDOI(), b.NormalizedDOI(); doiA != "" && doiB != "" && doiA == doiB {
		return true
	}

	titleSim := similarity.TitleSimilarity(a.Title, b.Title)
	if titleSim < titleSimilarityThreshold {
		return false
	}

	if similarity.AuthorOverlap(a.Authors, b.Authors) >= authorOverlapThreshold {
		return true
	}

	if titleSim >= titleNearExactThreshold {
		yearA, okA := a.PublicationYear()
		yearB, okB := b.PublicationYear()
		if okA && okB {
			gap := yearA - yearB
			if gap < 0 {
				gap = -gap
			}
			return gap <= maxYearGap
		}
	}
	return false
}

// Deduplicate groups candidates into equivalence classes and keeps the
// best representative of each. Classes are grown greedily in input
// order, so the grouping is deterministic for a fixed input.
func Deduplicate(candidates []models.DiscoveredPaper) []models.DiscoveredPaper {
	if len(candidates) <= 1 {
		return candidates
	}

	groups := make([][]int, 0, len(candidates))
candidates:
	for i := range candidates {
		for gi, group := range groups {
			for _, j := range group {
				if Equivalent(&candidates[i], &candidates[j]) {
					groups[gi] = append(group, i)
					continue candidates
				}
			}
		}
		groups = append(groups, []int{i})
	}

	result := make([]models.DiscoveredPaper, 0, len(groups))
	for _, group := range groups {
		best := group[0]
		for _, j := range group[1:] {
			if betterRepresentative(&candidates[j], &candidates[best]) {
				best = j
			}
		}
		result = append(result, candidates[best])
	}
	return result
}

// betterRepresentative reports whether a should replace b as the
// representative of an equivalence class. Priority chain: has-DOI,
// citation count, data completeness, then source priority.
func betterRepresentative(a, b *models.DiscoveredPaper) bool {
	aDOI, bDOI := a.DOI != "", b.DOI != ""
	if aDOI != bDOI {
		return aDOI
	}
	if a.Citations() != b.Citations() {
		return a.Citations() > b.Citations()
	}
	ac, bc := a.ComputeDataCompleteness(), b.ComputeDataCompleteness()
	if ac != bc {
		return ac > bc
	}
	return models.SourcePriority(a.DiscoverySource) < models.SourcePriority(b.DiscoverySource)
}
