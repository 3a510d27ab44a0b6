package sources

import (
	"context"
	"time"

	"github.com/paperscope/paperscope/pkg/models"
)

const trendAnalyzerReliability = 0.75

// TrendAnalyzerConfig configures the trend-analyzer adapter.
type TrendAnalyzerConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	Limit      int
}

// TrendAnalyzer surfaces papers from currently active research threads
// matching the source paper's topic. Its results skew recent and
// open-access, and it returns fewer, more contextual candidates than
// the other providers.
type TrendAnalyzer struct {
	transport *transport
	baseURL   string
	limit     int
}

// NewTrendAnalyzer creates a trend-analyzer client.
func NewTrendAnalyzer(cfg TrendAnalyzerConfig) *TrendAnalyzer {
	limit := cfg.Limit
	if limit <= 0 {
		limit = 15
	}
	return &TrendAnalyzer{
		transport: newTransport(models.SourceTrendAnalyzer, cfg.APIKey, cfg.Timeout, cfg.MaxRetries),
		baseURL:   cfg.BaseURL,
		limit:     limit,
	}
}

// Source implements Client.
func (c *TrendAnalyzer) Source() models.DiscoverySource {
	return models.SourceTrendAnalyzer
}

type trendQuery struct {
	Title    string `json:"title"`
	Abstract string `json:"abstract,omitempty"`
	Limit    int    `json:"limit"`
}

type trendPaper struct {
	DOI             string   `json:"doi"`
	Title           string   `json:"title"`
	Abstract        string   `json:"abstract"`
	Authors         []string `json:"authors"`
	Venue           string   `json:"venue"`
	Year            *int     `json:"year"`
	Citations       *int     `json:"citations"`
	OpenAccess      bool     `json:"open_access"`
	TrendScore      float64  `json:"trend_score"`
	Topic           string   `json:"topic"`
	Relation        string   `json:"relation"`
	PublicationDate string   `json:"publication_date"`
}

type trendResponse struct {
	Papers     []trendPaper `json:"papers"`
	TrendLabel string       `json:"trend_label"`
	WindowDays int          `json:"window_days"`
}

// Discover implements Client.
func (c *TrendAnalyzer) Discover(ctx context.Context, paper models.SourcePaper) (models.SourceDiscoveryResult, error) {
	start := time.Now()

	query := trendQuery{
		Title:    paper.Title,
		Abstract: paper.Abstract,
		Limit:    c.limit,
	}

	var resp trendResponse
	if err := c.transport.postJSON(ctx, c.baseURL+"/trends/related", query, &resp); err != nil {
		return models.SourceDiscoveryResult{}, err
	}

	papers := make([]models.DiscoveredPaper, 0, len(resp.Papers))
	for _, tp := range resp.Papers {
		if p, ok := c.mapPaper(tp); ok {
			papers = append(papers, p)
		}
	}

	return models.SourceDiscoveryResult{
		Source: models.SourceTrendAnalyzer,
		Papers: papers,
		Metadata: map[string]any{
			"trend_label": resp.TrendLabel,
			"window_days": resp.WindowDays,
		},
		Duration: time.Since(start),
		Success:  true,
	}, nil
}

func (c *TrendAnalyzer) mapPaper(tp trendPaper) (models.DiscoveredPaper, bool) {
	if tp.Title == "" {
		return models.DiscoveredPaper{}, false
	}

	p := models.DiscoveredPaper{
		DOI:               tp.DOI,
		Title:             tp.Title,
		Abstract:          tp.Abstract,
		Authors:           tp.Authors,
		Journal:           tp.Venue,
		Year:              tp.Year,
		CitationCount:     tp.Citations,
		OpenAccess:        tp.OpenAccess,
		RelevanceScore:    clampUnit(tp.TrendScore),
		SourceReliability: trendAnalyzerReliability,
		DiscoverySource:   models.SourceTrendAnalyzer,
		RelationshipType:  relationshipForTrend(tp.Relation),
	}
	if tp.Topic != "" {
		p.Metadata = map[string]any{"field": tp.Topic}
	}
	if t, err := time.Parse("2006-01-02", tp.PublicationDate); err == nil {
		p.PublicationDate = &t
	}
	return p, true
}

func relationshipForTrend(rel string) models.RelationshipType {
	switch rel {
	case "methodology":
		return models.RelMethodologySimilarity
	case "temporal":
		return models.RelTemporalRelationship
	default:
		return models.RelTopicSimilarity
	}
}
