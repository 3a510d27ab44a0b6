package synthesis

import (
	"time"

	"github.com/paperscope/paperscope/pkg/models"
	"github.com/paperscope/paperscope/pkg/similarity"
)

// Unified score factor caps. Each factor contributes a clamped amount;
// the sum is clamped to 1.0.
const (
	providerRelevanceCap = 0.4
	citationInfluenceCap = 0.25
	citationDivisor      = 1000.0
	recencyCap           = 0.15
	recencyWindowYears   = 10.0
	authorOverlapCap     = 0.1
	openAccessBonus      = 0.05
	feedbackBiasCap      = 0.05

	hoursPerYear = 24 * 365.25
)

// BiasFunc returns the feedback-derived scoring bias for a discovered
// paper, already bounded to [-feedbackBiasCap, +feedbackBiasCap].
// A nil BiasFunc means no feedback signal.
type BiasFunc func(sourcePaperID, discoveredKey string) float64

// ScoreComponents is the breakdown of a unified relevance score.
// Useful for debugging and explaining rankings.
type ScoreComponents struct {
	ProviderRelevance float64 `json:"provider_relevance"`
	CitationInfluence float64 `json:"citation_influence"`
	Recency           float64 `json:"recency"`
	AuthorOverlap     float64 `json:"author_overlap"`
	OpenAccessBonus   float64 `json:"open_access_bonus"`
	FeedbackBias      float64 `json:"feedback_bias"`
	FinalScore        float64 `json:"final_score"`
}

// ScoreCandidate computes the unified relevance score for one
// candidate. Missing fields degrade their factor to zero; the function
// never fails.
func ScoreCandidate(source *models.SourcePaper, paper *models.DiscoveredPaper, now time.Time, bias BiasFunc) ScoreComponents {
	var c ScoreComponents

	providerRelevance := paper.RelevanceScore
	if providerRelevance < 0 {
		providerRelevance = 0
	}
	c.ProviderRelevance = providerRelevanceCap * providerRelevance
	if c.ProviderRelevance > providerRelevanceCap {
		c.ProviderRelevance = providerRelevanceCap
	}

	c.CitationInfluence = float64(paper.Citations()) / citationDivisor
	if c.CitationInfluence > citationInfluenceCap {
		c.CitationInfluence = citationInfluenceCap
	}

	if paper.PublicationDate != nil {
		yearsOld := now.Sub(*paper.PublicationDate).Hours() / hoursPerYear
		if yearsOld < 0 {
			yearsOld = 0
		}
		fresh := (recencyWindowYears - yearsOld) / recencyWindowYears
		if fresh > 0 {
			c.Recency = fresh * recencyCap
		}
	}

	if len(source.Authors) > 0 {
		sourceSet := similarity.SurnameSet(source.Authors)
		if len(sourceSet) > 0 {
			shared := 0
			for s := range similarity.SurnameSet(paper.Authors) {
				if sourceSet[s] {
					shared++
				}
			}
			c.AuthorOverlap = float64(shared) / float64(len(sourceSet)) * authorOverlapCap
		}
	}

	if paper.OpenAccess {
		c.OpenAccessBonus = openAccessBonus
	}

	if bias != nil {
		c.FeedbackBias = clamp(bias(source.ID, paper.Key()), -feedbackBiasCap, feedbackBiasCap)
	}

	sum := c.ProviderRelevance + c.CitationInfluence + c.Recency + c.AuthorOverlap + c.OpenAccessBonus + c.FeedbackBias
	c.FinalScore = clamp(sum, 0, 1)
	return c
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
