package sources

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/paperscope/paperscope/pkg/models"
)

// citationRegistryReliability reflects the registry's curated citation
// graph; its links are authoritative but its metadata can lag.
const citationRegistryReliability = 0.9

// CitationRegistryConfig configures the citation-registry adapter.
type CitationRegistryConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	PageSize   int
}

// CitationRegistry discovers papers through citation-network
// relationships: works the source paper cites and works citing it.
// It requires a DOI; source papers without one yield an empty success.
type CitationRegistry struct {
	transport *transport
	baseURL   string
	pageSize  int
}

// NewCitationRegistry creates a citation-registry client.
func NewCitationRegistry(cfg CitationRegistryConfig) *CitationRegistry {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 25
	}
	return &CitationRegistry{
		transport: newTransport(models.SourceCitationRegistry, cfg.APIKey, cfg.Timeout, cfg.MaxRetries),
		baseURL:   cfg.BaseURL,
		pageSize:  pageSize,
	}
}

// Source implements Client.
func (c *CitationRegistry) Source() models.DiscoverySource {
	return models.SourceCitationRegistry
}

// registryWork is the provider's wire representation of one work.
type registryWork struct {
	DOI            string   `json:"doi"`
	Title          string   `json:"title"`
	Authors        []string `json:"authors"`
	Journal        string   `json:"container_title"`
	PublishedDate  string   `json:"published_date"`
	Year           *int     `json:"year"`
	CitedByCount   *int     `json:"cited_by_count"`
	ReferenceCount int      `json:"reference_count"`
	OpenAccess     bool     `json:"open_access"`
	Score          float64  `json:"score"`
}

type registryLinksResponse struct {
	Works []registryWork `json:"works"`
	Total int            `json:"total"`
}

// Discover implements Client.
func (c *CitationRegistry) Discover(ctx context.Context, paper models.SourcePaper) (models.SourceDiscoveryResult, error) {
	start := time.Now()

	if paper.DOI == "" {
		// Contract: a missing required identifier is an empty success,
		// not a failure.
		return models.SourceDiscoveryResult{
			Source:   models.SourceCitationRegistry,
			Papers:   []models.DiscoveredPaper{},
			Metadata: map[string]any{"skipped": "no_doi"},
			Duration: time.Since(start),
			Success:  true,
		}, nil
	}

	escaped := url.PathEscape(paper.DOI)

	var citations registryLinksResponse
	citationsURL := fmt.Sprintf("%s/works/%s/citations?rows=%d", c.baseURL, escaped, c.pageSize)
	if err := c.transport.getJSON(ctx, citationsURL, &citations); err != nil {
		return models.SourceDiscoveryResult{}, err
	}

	var references registryLinksResponse
	referencesURL := fmt.Sprintf("%s/works/%s/references?rows=%d", c.baseURL, escaped, c.pageSize)
	if err := c.transport.getJSON(ctx, referencesURL, &references); err != nil {
		return models.SourceDiscoveryResult{}, err
	}

	papers := make([]models.DiscoveredPaper, 0, len(citations.Works)+len(references.Works))
	for _, w := range citations.Works {
		if p, ok := c.mapWork(w, models.RelCitedBy); ok {
			papers = append(papers, p)
		}
	}
	for _, w := range references.Works {
		if p, ok := c.mapWork(w, models.RelCites); ok {
			papers = append(papers, p)
		}
	}

	return models.SourceDiscoveryResult{
		Source: models.SourceCitationRegistry,
		Papers: papers,
		Metadata: map[string]any{
			"citations_total":  citations.Total,
			"references_total": references.Total,
		},
		Duration: time.Since(start),
		Success:  true,
	}, nil
}

func (c *CitationRegistry) mapWork(w registryWork, rel models.RelationshipType) (models.DiscoveredPaper, bool) {
	if w.Title == "" {
		return models.DiscoveredPaper{}, false
	}

	p := models.DiscoveredPaper{
		DOI:               w.DOI,
		Title:             w.Title,
		Authors:           w.Authors,
		Journal:           w.Journal,
		Year:              w.Year,
		CitationCount:     w.CitedByCount,
		ReferenceCount:    w.ReferenceCount,
		OpenAccess:        w.OpenAccess,
		RelevanceScore:    clampUnit(w.Score),
		SourceReliability: citationRegistryReliability,
		DiscoverySource:   models.SourceCitationRegistry,
		RelationshipType:  rel,
	}
	if t, err := time.Parse("2006-01-02", w.PublishedDate); err == nil {
		p.PublicationDate = &t
	}
	return p, true
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
