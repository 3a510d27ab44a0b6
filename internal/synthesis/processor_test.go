package synthesis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/paperscope/paperscope/pkg/models"
)

type ProcessorSuite struct {
	suite.Suite
	proc   *Processor
	now    time.Time
	source models.SourcePaper
	cfg    models.DiscoveryConfiguration
}

func (s *ProcessorSuite) SetupTest() {
	s.now = time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	s.proc = NewProcessor(WithClock(func() time.Time { return s.now }))
	s.source = models.SourcePaper{
		ID:      "P1",
		Title:   "Graph Neural Networks",
		Authors: []string{"A. Lee", "B. Kim"},
	}
	s.cfg = models.ComprehensiveConfiguration()
	s.cfg.MinRelevanceThreshold = 0.0
}

func TestProcessorSuite(t *testing.T) {
	suite.Run(t, new(ProcessorSuite))
}

func (s *ProcessorSuite) succeeded(src models.DiscoverySource, papers ...models.DiscoveredPaper) models.SourceDiscoveryResult {
	for i := range papers {
		papers[i].DiscoverySource = src
	}
	return models.SourceDiscoveryResult{Source: src, Papers: papers, Success: true}
}

func (s *ProcessorSuite) TestProcess_MergesAcrossSources() {
	results := []models.SourceDiscoveryResult{
		s.succeeded(models.SourceCitationRegistry,
			models.DiscoveredPaper{DOI: "10.1/a", Title: "Paper A", RelevanceScore: 0.9},
			models.DiscoveredPaper{DOI: "10.1/b", Title: "Paper B", RelevanceScore: 0.7},
		),
		s.succeeded(models.SourceSemanticCorpus,
			models.DiscoveredPaper{DOI: "10.1/a", Title: "Paper A (dup)", RelevanceScore: 0.8},
			models.DiscoveredPaper{DOI: "10.1/c", Title: "Paper C", RelevanceScore: 0.5},
		),
	}

	papers, stats := s.proc.Process(s.source, s.cfg, results)

	s.Equal(4, stats.Raw)
	s.Equal(3, stats.AfterDedup, "DOI duplicate collapsed")
	s.Len(papers, 3)
}

func (s *ProcessorSuite) TestProcess_FailedSourcesContributeNothing() {
	results := []models.SourceDiscoveryResult{
		s.succeeded(models.SourceCitationRegistry,
			models.DiscoveredPaper{DOI: "10.1/a", Title: "Paper A", RelevanceScore: 0.9},
		),
		models.FailedSourceResult(models.SourceTrendAnalyzer, models.ErrKindTimeout, "deadline", time.Second),
	}

	papers, stats := s.proc.Process(s.source, s.cfg, results)
	s.Equal(1, stats.Raw)
	s.Len(papers, 1)
}

func (s *ProcessorSuite) TestProcess_ThresholdFilters() {
	s.cfg.MinRelevanceThreshold = 0.3
	results := []models.SourceDiscoveryResult{
		s.succeeded(models.SourceCitationRegistry,
			models.DiscoveredPaper{DOI: "10.1/hi", Title: "Strong Match", RelevanceScore: 1.0},
			models.DiscoveredPaper{DOI: "10.1/lo", Title: "Weak Match", RelevanceScore: 0.1},
		),
	}

	papers, _ := s.proc.Process(s.source, s.cfg, results)
	require.Len(s.T(), papers, 1)
	s.Equal("10.1/hi", papers[0].DOI)
	for _, p := range papers {
		s.GreaterOrEqual(p.RelevanceScore, s.cfg.MinRelevanceThreshold)
	}
}

func (s *ProcessorSuite) TestProcess_EmptyTitlesDroppedAndCounted() {
	results := []models.SourceDiscoveryResult{
		s.succeeded(models.SourceCitationRegistry,
			models.DiscoveredPaper{Title: "   ", RelevanceScore: 0.9},
			models.DiscoveredPaper{Title: "Kept", RelevanceScore: 0.9},
		),
	}

	papers, _ := s.proc.Process(s.source, s.cfg, results)
	s.Len(papers, 1)
	s.Equal(int64(1), s.proc.DroppedEmptyTitle.Load())
}

func (s *ProcessorSuite) TestProcess_OpenAccessOnly() {
	s.cfg.OpenAccessOnly = true
	results := []models.SourceDiscoveryResult{
		s.succeeded(models.SourceTrendAnalyzer,
			models.DiscoveredPaper{DOI: "10.1/oa", Title: "Open", RelevanceScore: 0.5, OpenAccess: true},
			models.DiscoveredPaper{DOI: "10.1/closed", Title: "Closed", RelevanceScore: 0.9},
		),
	}

	papers, _ := s.proc.Process(s.source, s.cfg, results)
	require.Len(s.T(), papers, 1)
	s.True(papers[0].OpenAccess)
}

func (s *ProcessorSuite) TestProcess_ExcludedVenues() {
	s.cfg.ExcludedVenues = []string{"Predatory Letters"}
	results := []models.SourceDiscoveryResult{
		s.succeeded(models.SourceSemanticCorpus,
			models.DiscoveredPaper{DOI: "10.1/good", Title: "Good", Journal: "Nature", RelevanceScore: 0.5},
			models.DiscoveredPaper{DOI: "10.1/bad", Title: "Bad", Journal: "predatory letters", RelevanceScore: 0.9},
		),
	}

	papers, _ := s.proc.Process(s.source, s.cfg, results)
	require.Len(s.T(), papers, 1)
	s.Equal("Nature", papers[0].Journal)
}

func (s *ProcessorSuite) TestProcess_DateRange() {
	s.cfg.DateRange = &models.DateRange{
		From: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	in := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	out := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
	results := []models.SourceDiscoveryResult{
		s.succeeded(models.SourceCitationRegistry,
			models.DiscoveredPaper{DOI: "10.1/in", Title: "In Range", PublicationDate: &in, RelevanceScore: 0.5},
			models.DiscoveredPaper{DOI: "10.1/out", Title: "Out Of Range", PublicationDate: &out, RelevanceScore: 0.5},
			models.DiscoveredPaper{DOI: "10.1/undated", Title: "Undated", RelevanceScore: 0.5},
		),
	}

	papers, _ := s.proc.Process(s.source, s.cfg, results)
	require.Len(s.T(), papers, 1)
	s.Equal("10.1/in", papers[0].DOI)
}

func (s *ProcessorSuite) TestProcess_OutputOrderIsTotal() {
	results := []models.SourceDiscoveryResult{
		s.succeeded(models.SourceCitationRegistry,
			models.DiscoveredPaper{DOI: "10.1/b", Title: "Same Score Fewer Cites", RelevanceScore: 0.5, CitationCount: intPtr(10)},
			models.DiscoveredPaper{DOI: "10.1/a", Title: "Same Everything Lower DOI", RelevanceScore: 0.5, CitationCount: intPtr(50)},
			models.DiscoveredPaper{DOI: "10.1/c", Title: "Top Score", RelevanceScore: 0.99, CitationCount: intPtr(1)},
		),
	}

	papers, _ := s.proc.Process(s.source, s.cfg, results)
	require.Len(s.T(), papers, 3)

	// Score first, then citations.
	s.Equal("10.1/c", papers[0].DOI)
	s.Equal("10.1/a", papers[1].DOI)
	s.Equal("10.1/b", papers[2].DOI)

	// Reordering any adjacent pair violates the comparator.
	for i := 0; i+1 < len(papers); i++ {
		s.False(Less(&papers[i+1], &papers[i]), "adjacent pair %d out of order", i)
	}
}

func (s *ProcessorSuite) TestProcess_DeterministicAcrossRuns() {
	results := []models.SourceDiscoveryResult{
		s.succeeded(models.SourceCitationRegistry,
			models.DiscoveredPaper{DOI: "10.1/a", Title: "Alpha", RelevanceScore: 0.6},
			models.DiscoveredPaper{DOI: "10.1/b", Title: "Beta", RelevanceScore: 0.6},
		),
		s.succeeded(models.SourceSemanticCorpus,
			models.DiscoveredPaper{DOI: "10.1/g", Title: "Gamma", RelevanceScore: 0.6},
		),
	}

	first, _ := s.proc.Process(s.source, s.cfg, results)
	second, _ := s.proc.Process(s.source, s.cfg, results)
	assert.Equal(s.T(), first, second)
}
