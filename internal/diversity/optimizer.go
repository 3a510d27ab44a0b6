// Package diversity reorders scored candidates to balance relevance
// against topical, venue, and first-author variety.
package diversity

import (
	"strings"

	"github.com/paperscope/paperscope/pkg/models"
	"github.com/paperscope/paperscope/pkg/similarity"
)

// Penalty weights per diversity level. LOW degenerates to pure
// relevance order.
const (
	lambdaLow    = 0.00
	lambdaMedium = 0.05
	lambdaHigh   = 0.12
)

// Lambda returns the penalty weight for a diversity level.
func Lambda(level models.DiversityLevel) float64 {
	switch level {
	case models.DiversityMedium:
		return lambdaMedium
	case models.DiversityHigh:
		return lambdaHigh
	default:
		return lambdaLow
	}
}

// features are the axis values a candidate is compared on: primary
// topical field, venue, first author. Empty axes never collide.
type features struct {
	topic       string
	venue       string
	firstAuthor string
}

func extractFeatures(p *models.DiscoveredPaper) features {
	var f features
	if topic, ok := p.Metadata["field"].(string); ok {
		f.topic = strings.ToLower(strings.TrimSpace(topic))
	} else if len(p.Title) > 0 {
		// Fall back to the leading normalized title token as a coarse
		// topical proxy.
		tokens := strings.Fields(similarity.NormalizeTitle(p.Title))
		if len(tokens) > 0 {
			f.topic = tokens[0]
		}
	}
	f.venue = strings.ToLower(strings.TrimSpace(p.Journal))
	if len(p.Authors) > 0 {
		f.firstAuthor = similarity.NormalizeSurname(p.Authors[0])
	}
	return f
}

// penalty counts already-selected items sharing any axis value.
func penalty(f features, selected []features) int {
	n := 0
	for _, s := range selected {
		if (f.topic != "" && f.topic == s.topic) ||
			(f.venue != "" && f.venue == s.venue) ||
			(f.firstAuthor != "" && f.firstAuthor == s.firstAuthor) {
			n++
		}
	}
	return n
}

// Select greedily picks up to maxResults candidates maximizing
// score - lambda*penalty. Candidates must already be in relevance
// order; ties on the adjusted score resolve to the earlier candidate,
// which keeps the selection stable.
func Select(ranked []models.DiscoveredPaper, level models.DiversityLevel, maxResults int) []models.DiscoveredPaper {
	if maxResults <= 0 {
		return []models.DiscoveredPaper{}
	}
	if len(ranked) <= maxResults && Lambda(level) == 0 {
		out := make([]models.DiscoveredPaper, len(ranked))
		copy(out, ranked)
		return out
	}

	lambda := Lambda(level)
	if lambda == 0 {
		// Pure relevance order: truncate.
		n := min(maxResults, len(ranked))
		out := make([]models.DiscoveredPaper, n)
		copy(out, ranked[:n])
		return out
	}

	feats := make([]features, len(ranked))
	for i := range ranked {
		feats[i] = extractFeatures(&ranked[i])
	}

	selected := make([]models.DiscoveredPaper, 0, maxResults)
	selectedFeats := make([]features, 0, maxResults)
	taken := make([]bool, len(ranked))

	for len(selected) < maxResults {
		bestIdx := -1
		bestScore := 0.0
		for i := range ranked {
			if taken[i] {
				continue
			}
			adjusted := ranked[i].RelevanceScore - lambda*float64(penalty(feats[i], selectedFeats))
			if bestIdx == -1 || adjusted > bestScore {
				bestIdx = i
				bestScore = adjusted
			}
		}
		if bestIdx == -1 {
			break
		}
		taken[bestIdx] = true
		selected = append(selected, ranked[bestIdx])
		selectedFeats = append(selectedFeats, feats[bestIdx])
	}
	return selected
}
