// Package models contains domain models for paperscope.
package models

import (
	"strings"
	"time"
)

// DiscoverySource identifies the external bibliographic provider a
// candidate paper came from.
type DiscoverySource string

const (
	SourceCitationRegistry DiscoverySource = "citation_registry"
	SourceSemanticCorpus   DiscoverySource = "semantic_corpus"
	SourceTrendAnalyzer    DiscoverySource = "trend_analyzer"
)

// AllSources lists the providers in their canonical enumeration order.
// The order is load-bearing: sourceResults ordering and dedup tie-breaks
// both follow it.
var AllSources = []DiscoverySource{
	SourceCitationRegistry,
	SourceSemanticCorpus,
	SourceTrendAnalyzer,
}

// SourcePriority returns the dedup tie-break rank for a source.
// Lower is preferred.
func SourcePriority(s DiscoverySource) int {
	for i, src := range AllSources {
		if src == s {
			return i
		}
	}
	return len(AllSources)
}

// RelationshipType describes how a discovered paper relates to the
// source paper.
type RelationshipType string

const (
	RelCites                 RelationshipType = "cites"
	RelCitedBy               RelationshipType = "cited_by"
	RelSemanticSimilarity    RelationshipType = "semantic_similarity"
	RelAuthorConnection      RelationshipType = "author_connection"
	RelVenueSimilarity       RelationshipType = "venue_similarity"
	RelTopicSimilarity       RelationshipType = "topic_similarity"
	RelMethodologySimilarity RelationshipType = "methodology_similarity"
	RelTemporalRelationship  RelationshipType = "temporal_relationship"
)

// SourcePaper is the read-only query subject for a discovery run.
type SourcePaper struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Authors          []string `json:"authors,omitempty"`
	DOI              string   `json:"doi,omitempty"`
	ArxivID          string   `json:"arxiv_id,omitempty"`
	SemanticCorpusID string   `json:"semantic_corpus_id,omitempty"`
	Abstract         string   `json:"abstract,omitempty"`
	Year             *int     `json:"year,omitempty"`
}

// DiscoveredPaper is a candidate related paper materialized from a
// provider response. Instances have no identity outside a single run;
// once embedded in a UnifiedDiscoveryResult they are never mutated.
type DiscoveredPaper struct {
	Metadata             map[string]any    `json:"metadata,omitempty"`
	SourceIDs            map[string]string `json:"source_ids,omitempty"`
	DOI                  string            `json:"doi,omitempty"`
	Title                string            `json:"title"`
	Authors              []string          `json:"authors,omitempty"`
	Abstract             string            `json:"abstract,omitempty"`
	Journal              string            `json:"journal,omitempty"`
	PublicationDate      *time.Time        `json:"publication_date,omitempty"`
	Year                 *int              `json:"year,omitempty"`
	CitationCount        *int              `json:"citation_count,omitempty"`
	InfluentialCitations int               `json:"influential_citations,omitempty"`
	ReferenceCount       int               `json:"reference_count,omitempty"`
	OpenAccess           bool              `json:"open_access"`
	RelevanceScore       float64           `json:"relevance_score"`
	SourceReliability    float64           `json:"source_reliability"`
	DataCompleteness     float64           `json:"data_completeness"`
	DiscoverySource      DiscoverySource   `json:"discovery_source"`
	RelationshipType     RelationshipType  `json:"relationship_type"`
}

// completenessFieldCount is the size of the field set considered by
// ComputeDataCompleteness.
const completenessFieldCount = 5

// ComputeDataCompleteness returns the fraction of {DOI, authors,
// journal, publication date, citation count} that is populated.
func (p *DiscoveredPaper) ComputeDataCompleteness() float64 {
	present := 0
	if p.DOI != "" {
		present++
	}
	if len(p.Authors) > 0 {
		present++
	}
	if p.Journal != "" {
		present++
	}
	if p.PublicationDate != nil {
		present++
	}
	if p.CitationCount != nil {
		present++
	}
	return float64(present) / float64(completenessFieldCount)
}

// PublicationYear returns the best-known publication year, preferring
// the explicit year over the publication date. ok is false when neither
// is set.
func (p *DiscoveredPaper) PublicationYear() (int, bool) {
	if p.Year != nil {
		return *p.Year, true
	}
	if p.PublicationDate != nil {
		return p.PublicationDate.Year(), true
	}
	return 0, false
}

// Citations returns the citation count, treating unknown as zero.
func (p *DiscoveredPaper) Citations() int {
	if p.CitationCount == nil {
		return 0
	}
	return *p.CitationCount
}

// NormalizedDOI returns the DOI lowered and trimmed for comparison.
func (p *DiscoveredPaper) NormalizedDOI() string {
	return strings.ToLower(strings.TrimSpace(p.DOI))
}

// Key returns a stable identity string for feedback aggregation:
// the normalized DOI when present, otherwise the normalized title.
func (p *DiscoveredPaper) Key() string {
	if doi := p.NormalizedDOI(); doi != "" {
		return "doi:" + doi
	}
	return "title:" + strings.Join(strings.Fields(strings.ToLower(p.Title)), " ")
}
