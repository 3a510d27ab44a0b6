package sources

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/paperscope/paperscope/pkg/models"
)

const semanticCorpusReliability = 0.85

// SemanticCorpusConfig configures the semantic-corpus adapter.
type SemanticCorpusConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	Limit      int
}

// SemanticCorpus discovers papers by embedding similarity, shared
// authorship, and venue proximity. It prefers the corpus-native paper
// ID and falls back to a title search when the source paper lacks one.
type SemanticCorpus struct {
	transport *transport
	baseURL   string
	limit     int
}

// NewSemanticCorpus creates a semantic-corpus client.
func NewSemanticCorpus(cfg SemanticCorpusConfig) *SemanticCorpus {
	limit := cfg.Limit
	if limit <= 0 {
		limit = 40
	}
	return &SemanticCorpus{
		transport: newTransport(models.SourceSemanticCorpus, cfg.APIKey, cfg.Timeout, cfg.MaxRetries),
		baseURL:   cfg.BaseURL,
		limit:     limit,
	}
}

// Source implements Client.
func (c *SemanticCorpus) Source() models.DiscoverySource {
	return models.SourceSemanticCorpus
}

type corpusPaper struct {
	CorpusID        string   `json:"corpus_id"`
	DOI             string   `json:"doi"`
	Title           string   `json:"title"`
	Abstract        string   `json:"abstract"`
	Authors         []string `json:"authors"`
	Venue           string   `json:"venue"`
	Year            *int     `json:"year"`
	CitationCount   *int     `json:"citation_count"`
	Influential     int      `json:"influential_citation_count"`
	IsOpenAccess    bool     `json:"is_open_access"`
	Similarity      float64  `json:"similarity"`
	MatchDimension  string   `json:"match_dimension"`
	FieldsOfStudy   []string `json:"fields_of_study"`
	PublicationDate string   `json:"publication_date"`
}

type corpusRelatedResponse struct {
	Papers []corpusPaper `json:"papers"`
	Total  int           `json:"total"`
}

type corpusSearchResponse struct {
	Matches []struct {
		CorpusID string `json:"corpus_id"`
	} `json:"matches"`
}

// Discover implements Client.
func (c *SemanticCorpus) Discover(ctx context.Context, paper models.SourcePaper) (models.SourceDiscoveryResult, error) {
	start := time.Now()

	corpusID := paper.SemanticCorpusID
	resolvedByTitle := false
	if corpusID == "" {
		id, err := c.resolveByTitle(ctx, paper.Title)
		if err != nil {
			return models.SourceDiscoveryResult{}, err
		}
		if id == "" {
			// Unknown to the corpus: nothing to relate against.
			return models.SourceDiscoveryResult{
				Source:   models.SourceSemanticCorpus,
				Papers:   []models.DiscoveredPaper{},
				Metadata: map[string]any{"skipped": "not_in_corpus"},
				Duration: time.Since(start),
				Success:  true,
			}, nil
		}
		corpusID = id
		resolvedByTitle = true
	}

	var related corpusRelatedResponse
	relatedURL := fmt.Sprintf("%s/papers/%s/related?limit=%d", c.baseURL, url.PathEscape(corpusID), c.limit)
	if err := c.transport.getJSON(ctx, relatedURL, &related); err != nil {
		return models.SourceDiscoveryResult{}, err
	}

	papers := make([]models.DiscoveredPaper, 0, len(related.Papers))
	for _, cp := range related.Papers {
		if p, ok := c.mapPaper(cp); ok {
			papers = append(papers, p)
		}
	}

	return models.SourceDiscoveryResult{
		Source: models.SourceSemanticCorpus,
		Papers: papers,
		Metadata: map[string]any{
			"corpus_id":         corpusID,
			"resolved_by_title": resolvedByTitle,
			"related_total":     related.Total,
		},
		Duration: time.Since(start),
		Success:  true,
	}, nil
}

// resolveByTitle looks the source paper up by exact title match. An
// empty corpus ID with nil error means the paper is not indexed.
func (c *SemanticCorpus) resolveByTitle(ctx context.Context, title string) (string, error) {
	if title == "" {
		return "", nil
	}
	searchURL := fmt.Sprintf("%s/papers/search?query=%s&limit=1", c.baseURL, url.QueryEscape(title))
	var resp corpusSearchResponse
	if err := c.transport.getJSON(ctx, searchURL, &resp); err != nil {
		return "", err
	}
	if len(resp.Matches) == 0 {
		return "", nil
	}
	return resp.Matches[0].CorpusID, nil
}

func (c *SemanticCorpus) mapPaper(cp corpusPaper) (models.DiscoveredPaper, bool) {
	if cp.Title == "" {
		return models.DiscoveredPaper{}, false
	}

	p := models.DiscoveredPaper{
		DOI:                  cp.DOI,
		Title:                cp.Title,
		Abstract:             cp.Abstract,
		Authors:              cp.Authors,
		Journal:              cp.Venue,
		Year:                 cp.Year,
		CitationCount:        cp.CitationCount,
		InfluentialCitations: cp.Influential,
		OpenAccess:           cp.IsOpenAccess,
		RelevanceScore:       clampUnit(cp.Similarity),
		SourceReliability:    semanticCorpusReliability,
		DiscoverySource:      models.SourceSemanticCorpus,
		RelationshipType:     relationshipForDimension(cp.MatchDimension),
	}
	if cp.CorpusID != "" {
		p.SourceIDs = map[string]string{"semantic_corpus": cp.CorpusID}
	}
	if len(cp.FieldsOfStudy) > 0 {
		p.Metadata = map[string]any{"field": cp.FieldsOfStudy[0]}
	}
	if t, err := time.Parse("2006-01-02", cp.PublicationDate); err == nil {
		p.PublicationDate = &t
	}
	return p, true
}

func relationshipForDimension(dim string) models.RelationshipType {
	switch dim {
	case "author":
		return models.RelAuthorConnection
	case "venue":
		return models.RelVenueSimilarity
	default:
		return models.RelSemanticSimilarity
	}
}
