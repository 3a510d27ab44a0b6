package synthesis

import (
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/paperscope/paperscope/pkg/models"
)

// Processor synthesizes per-source results into a single scored,
// deduplicated, threshold-filtered candidate list. It is a pure
// function of its inputs apart from observability counters.
type Processor struct {
	now  func() time.Time
	bias BiasFunc

	// DroppedEmptyTitle counts candidates rejected for arriving with an
	// empty title; clients should have filtered them already.
	DroppedEmptyTitle atomic.Int64
}

// Option configures a Processor at construction time.
type Option func(*Processor)

// WithClock injects a custom time source for deterministic testing.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// WithBias injects the feedback-derived scoring bias lookup.
func WithBias(bias BiasFunc) Option {
	return func(p *Processor) { p.bias = bias }
}

// NewProcessor creates a result processor.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stats reports candidate counts through the synthesis stages.
type Stats struct {
	Raw            int
	AfterFilters   int
	AfterDedup     int
	AfterThreshold int
}

// Process runs the synthesis pipeline: collect, configured filters,
// dedup, score, threshold, sort. The returned papers carry their
// unified score in RelevanceScore and are in the total result order.
func (p *Processor) Process(
	source models.SourcePaper,
	cfg models.DiscoveryConfiguration,
	sourceResults []models.SourceDiscoveryResult,
) ([]models.DiscoveredPaper, Stats) {
	var stats Stats

	candidates := make([]models.DiscoveredPaper, 0, 64)
	for _, sr := range sourceResults {
		if !sr.Success {
			continue
		}
		stats.Raw += len(sr.Papers)
		for _, paper := range sr.Papers {
			if strings.TrimSpace(paper.Title) == "" {
				p.DroppedEmptyTitle.Add(1)
				log.Debug().Str("source", string(sr.Source)).Msg("Dropped candidate with empty title")
				continue
			}
			if !p.passesFilters(&paper, cfg) {
				continue
			}
			paper.DataCompleteness = paper.ComputeDataCompleteness()
			candidates = append(candidates, paper)
		}
	}
	stats.AfterFilters = len(candidates)

	deduped := Deduplicate(candidates)
	stats.AfterDedup = len(deduped)

	now := p.now()
	scored := deduped[:0]
	for i := range deduped {
		components := ScoreCandidate(&source, &deduped[i], now, p.bias)
		deduped[i].RelevanceScore = components.FinalScore
		if components.FinalScore >= cfg.MinRelevanceThreshold {
			scored = append(scored, deduped[i])
		}
	}
	stats.AfterThreshold = len(scored)

	SortByRelevance(scored)
	return scored, stats
}

// passesFilters applies the configured candidate filters: open-access
// only, excluded venues, and the inclusive date range. Candidates
// without any date information fail a configured date range.
func (p *Processor) passesFilters(paper *models.DiscoveredPaper, cfg models.DiscoveryConfiguration) bool {
	if cfg.OpenAccessOnly && !paper.OpenAccess {
		return false
	}

	if len(cfg.ExcludedVenues) > 0 && paper.Journal != "" {
		venue := strings.ToLower(paper.Journal)
		for _, excluded := range cfg.ExcludedVenues {
			if venue == strings.ToLower(excluded) {
				return false
			}
		}
	}

	if cfg.DateRange != nil {
		date := paper.PublicationDate
		if date == nil {
			year, ok := paper.PublicationYear()
			if !ok {
				return false
			}
			mid := time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC)
			date = &mid
		}
		if date.Before(cfg.DateRange.From) || date.After(cfg.DateRange.To) {
			return false
		}
	}
	return true
}

// SortByRelevance sorts papers into the total result order: unified
// score descending, citation count descending, publication year
// descending, DOI ascending. Remaining ties keep input order.
func SortByRelevance(papers []models.DiscoveredPaper) {
	sort.SliceStable(papers, func(i, j int) bool {
		return Less(&papers[i], &papers[j])
	})
}

// Less is the relevance-order comparator shared with the diversity
// optimizer's tie handling.
func Less(a, b *models.DiscoveredPaper) bool {
	if a.RelevanceScore != b.RelevanceScore {
		return a.RelevanceScore > b.RelevanceScore
	}
	if a.Citations() != b.Citations() {
		return a.Citations() > b.Citations()
	}
	yearA, _ := a.PublicationYear()
	yearB, _ := b.PublicationYear()
	if yearA != yearB {
		return yearA > yearB
	}
	return a.NormalizedDOI() < b.NormalizedDOI()
}
