package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestComputeDataCompleteness(t *testing.T) {
	date := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		paper DiscoveredPaper
		want  float64
	}{
		{"empty paper", DiscoveredPaper{Title: "t"}, 0.0},
		{"doi only", DiscoveredPaper{Title: "t", DOI: "10.1/x"}, 0.2},
		{
			"all fields",
			DiscoveredPaper{
				Title:           "t",
				DOI:             "10.1/x",
				Authors:         []string{"A. Lee"},
				Journal:         "Nature",
				PublicationDate: &date,
				CitationCount:   intPtr(12),
			},
			1.0,
		},
		{
			"three of five",
			DiscoveredPaper{
				Title:         "t",
				Authors:       []string{"A. Lee"},
				Journal:       "Nature",
				CitationCount: intPtr(0),
			},
			0.6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.paper.ComputeDataCompleteness(), 1e-9)
		})
	}
}

func TestPublicationYear_PrefersExplicitYear(t *testing.T) {
	date := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	p := DiscoveredPaper{Year: intPtr(2021), PublicationDate: &date}

	year, ok := p.PublicationYear()
	assert.True(t, ok)
	assert.Equal(t, 2021, year)

	p.Year = nil
	year, ok = p.PublicationYear()
	assert.True(t, ok)
	assert.Equal(t, 2020, year)

	p.PublicationDate = nil
	_, ok = p.PublicationYear()
	assert.False(t, ok)
}

func TestKey_DOITakesPrecedence(t *testing.T) {
	p := DiscoveredPaper{DOI: "10.1000/ABC", Title: "Some Paper"}
	assert.Equal(t, "doi:10.1000/abc", p.Key())

	p.DOI = ""
	assert.Equal(t, "title:some paper", p.Key())
}

func TestCitations_NilIsZero(t *testing.T) {
	p := DiscoveredPaper{}
	assert.Equal(t, 0, p.Citations())
	p.CitationCount = intPtr(7)
	assert.Equal(t, 7, p.Citations())
}

func TestCacheable(t *testing.T) {
	ok := UnifiedDiscoveryResult{
		Papers: []DiscoveredPaper{{Title: "t"}},
		Metadata: SynthesisMetadata{
			SucceededSources: []DiscoverySource{SourceCitationRegistry},
			FailedSources:    []DiscoverySource{SourceTrendAnalyzer},
		},
	}
	assert.True(t, ok.Cacheable(), "partial failure with papers is cacheable")

	emptyWithFailure := UnifiedDiscoveryResult{
		Papers: []DiscoveredPaper{},
		Metadata: SynthesisMetadata{
			SucceededSources: []DiscoverySource{SourceCitationRegistry},
			FailedSources:    []DiscoverySource{SourceTrendAnalyzer},
		},
	}
	assert.False(t, emptyWithFailure.Cacheable(), "empty result with a failed source must retry")

	emptyAllSucceeded := UnifiedDiscoveryResult{
		Papers: []DiscoveredPaper{},
		Metadata: SynthesisMetadata{
			SucceededSources: []DiscoverySource{SourceCitationRegistry, SourceSemanticCorpus},
		},
	}
	assert.True(t, emptyAllSucceeded.Cacheable(), "empty but fully successful run is a valid cached outcome")

	allFailed := UnifiedDiscoveryResult{
		Metadata: SynthesisMetadata{
			FailedSources: []DiscoverySource{SourceCitationRegistry, SourceSemanticCorpus, SourceTrendAnalyzer},
		},
	}
	assert.False(t, allFailed.Cacheable())
}

func TestFeedbackEvent_Validate(t *testing.T) {
	four := 4
	valid := FeedbackEvent{
		UserID:        "u1",
		SourcePaperID: "P1",
		DiscoveredKey: "doi:10.1/x",
		Type:          FeedbackRating,
		Rating:        &four,
	}
	assert.NoError(t, valid.Validate())

	six := 6
	badRating := valid
	badRating.Rating = &six
	assert.Error(t, badRating.Validate())

	noRating := valid
	noRating.Rating = nil
	assert.Error(t, noRating.Validate())

	badType := valid
	badType.Type = "starred"
	assert.Error(t, badType.Validate())

	noUser := valid
	noUser.UserID = ""
	assert.Error(t, noUser.Validate())
}

func TestFeedbackEvent_NormalizedRating(t *testing.T) {
	one, three, five := 1, 3, 5
	assert.Equal(t, -1.0, FeedbackEvent{Type: FeedbackRating, Rating: &one}.NormalizedRating())
	assert.Equal(t, 0.0, FeedbackEvent{Type: FeedbackRating, Rating: &three}.NormalizedRating())
	assert.Equal(t, 1.0, FeedbackEvent{Type: FeedbackRating, Rating: &five}.NormalizedRating())
	assert.Equal(t, 1.0, FeedbackEvent{Type: FeedbackSaved}.NormalizedRating())
	assert.Equal(t, -1.0, FeedbackEvent{Type: FeedbackDismissed}.NormalizedRating())
	assert.Equal(t, 0.25, FeedbackEvent{Type: FeedbackClicked}.NormalizedRating())
}
