// Package orchestrator coordinates a discovery run: cache lookup,
// request coalescing, bounded-parallel source fan-out under the
// execution deadline, synthesis, and diversity-aware truncation.
package orchestrator

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/paperscope/paperscope/internal/cache"
	"github.com/paperscope/paperscope/internal/diversity"
	"github.com/paperscope/paperscope/internal/feedback"
	"github.com/paperscope/paperscope/internal/sources"
	"github.com/paperscope/paperscope/internal/synthesis"
	"github.com/paperscope/paperscope/pkg/models"
)

// Confidence weights: how much of the overall confidence comes from
// source availability vs. result quality.
const (
	confidenceSuccessWeight = 0.4
	confidenceScoreWeight   = 0.6
)

// Orchestrator runs the discovery pipeline. Safe for concurrent use.
type Orchestrator struct {
	clients   map[models.DiscoverySource]sources.Client
	processor *synthesis.Processor
	cache     *cache.TwoTier
	feedback  *feedback.Store // nil disables feedback bias
	biasSnap  atomic.Pointer[feedback.Snapshot]
	group     singleflight.Group
	metrics   *DiscoveryMetrics
	now       func() time.Time
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithClock injects a custom time source for deterministic testing.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithFeedback enables the feedback-derived scoring bias.
func WithFeedback(store *feedback.Store) Option {
	return func(o *Orchestrator) { o.feedback = store }
}

// New creates an orchestrator over the given source clients and cache.
func New(clients []sources.Client, resultCache *cache.TwoTier, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		clients: make(map[models.DiscoverySource]sources.Client, len(clients)),
		cache:   resultCache,
		metrics: &DiscoveryMetrics{},
		now:     time.Now,
	}
	for _, c := range clients {
		o.clients[c.Source()] = c
	}
	for _, opt := range opts {
		opt(o)
	}
	o.processor = synthesis.NewProcessor(
		synthesis.WithClock(func() time.Time { return o.now() }),
		synthesis.WithBias(o.lookupBias),
	)
	return o
}

// lookupBias reads the bias from the snapshot loaded at run start.
func (o *Orchestrator) lookupBias(sourcePaperID, discoveredKey string) float64 {
	snap := o.biasSnap.Load()
	if snap == nil {
		return 0
	}
	return snap.Bias(sourcePaperID, discoveredKey)
}

// Metrics returns the discovery metrics for monitoring.
func (o *Orchestrator) Metrics() *DiscoveryMetrics {
	return o.metrics
}

// CacheStats returns current cache statistics.
func (o *Orchestrator) CacheStats() map[string]any {
	return o.cache.Stats()
}

// Discover runs one discovery for (paper, cfg). Validation happens
// before any cache or provider I/O; per-source failures are folded into
// the result, never raised. Concurrent identical requests share one
// execution.
func (o *Orchestrator) Discover(ctx context.Context, paper models.SourcePaper, cfg models.DiscoveryConfiguration) (*models.UnifiedDiscoveryResult, error) {
	if paper.ID == "" {
		return nil, &models.ConfigurationError{Field: "source_paper.id", Reason: "must not be empty"}
	}
	if paper.Title == "" {
		return nil, &models.ConfigurationError{Field: "source_paper.title", Reason: "must not be empty"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	key := cfg.CacheKey(paper.ID)
	if cached, ok := o.cache.Get(ctx, key); ok {
		atomic.AddInt64(&o.metrics.CacheHits, 1)
		return cached, nil
	}

	value, err, shared := o.group.Do(key, func() (any, error) {
		return o.execute(ctx, paper, cfg, key)
	})
	if err != nil {
		atomic.AddInt64(&o.metrics.RunErrors, 1)
		return nil, err
	}
	if shared {
		atomic.AddInt64(&o.metrics.CoalescedRequests, 1)
	}
	return value.(*models.UnifiedDiscoveryResult), nil
}

func (o *Orchestrator) execute(ctx context.Context, paper models.SourcePaper, cfg models.DiscoveryConfiguration, key string) (*models.UnifiedDiscoveryResult, error) {
	started := o.now()

	o.refreshBias(ctx)

	fanOutStart := time.Now()
	sourceResults := o.fanOut(ctx, paper, cfg)
	fanOutDur := time.Since(fanOutStart)

	synthesisStart := time.Now()
	papers, stats := o.processor.Process(paper, cfg, sourceResults)
	synthesisDur := time.Since(synthesisStart)

	diversityStart := time.Now()
	selected := diversity.Select(papers, cfg.DiversityLevel, cfg.EffectiveMaxResults())
	diversityDur := time.Since(diversityStart)

	execution := models.DiscoveryExecution{
		SourcePaper:   paper,
		Configuration: cfg,
		StartedAt:     started,
		FinishedAt:    o.now(),
		SourceResults: sourceResults,
	}
	succeeded, failed := execution.Partition()

	result := &models.UnifiedDiscoveryResult{
		SourcePaper:   paper,
		Papers:        selected,
		SourceResults: sourceResults,
		Configuration: cfg,
		Metadata: models.SynthesisMetadata{
			SucceededSources: succeeded,
			FailedSources:    failed,
			Stages: models.StageDurations{
				FanOut:    fanOutDur,
				Synthesis: synthesisDur,
				Diversity: diversityDur,
			},
			TotalRawResults:   stats.Raw,
			TotalAfterDedup:   stats.AfterDedup,
			TotalReturned:     len(selected),
			ProcessingTime:    execution.FinishedAt.Sub(started),
			OverallConfidence: overallConfidence(len(succeeded), len(cfg.EnabledSources()), selected),
		},
	}

	atomic.AddInt64(&o.metrics.TotalRuns, 1)
	atomic.AddInt64(&o.metrics.PapersReturned, int64(len(selected)))
	atomic.AddInt64(&o.metrics.TotalLatencyNs, int64(result.Metadata.ProcessingTime))

	o.cache.Put(key, result)

	log.Info().
		Str("paper", paper.ID).
		Str("mode", string(cfg.Mode)).
		Int("raw", stats.Raw).
		Int("returned", len(selected)).
		Int("failed_sources", len(failed)).
		Dur("elapsed", result.Metadata.ProcessingTime).
		Msg("Discovery run complete")

	return result, nil
}

// refreshBias reloads the feedback snapshot. Failures keep the previous
// snapshot; feedback is advisory.
func (o *Orchestrator) refreshBias(ctx context.Context) {
	if o.feedback == nil {
		return
	}
	snap, err := o.feedback.LoadSnapshot(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Feedback snapshot load failed, keeping previous bias")
		return
	}
	o.biasSnap.Store(snap)
}

// fanOut queries every enabled source in parallel under the execution
// deadline. Each source yields exactly one SourceDiscoveryResult;
// sources still in flight when the deadline fires are abandoned and
// recorded as timeouts.
func (o *Orchestrator) fanOut(ctx context.Context, paper models.SourcePaper, cfg models.DiscoveryConfiguration) []models.SourceDiscoveryResult {
	enabled := cfg.EnabledSources()

	runCtx, cancel := context.WithTimeout(ctx, cfg.MaxExecutionTime)
	defer cancel()

	results := make(map[models.DiscoverySource]models.SourceDiscoveryResult, len(enabled))
	resultCh := make(chan models.SourceDiscoveryResult, len(enabled))
	pending := 0

	fanOutStart := time.Now()
	for _, src := range enabled {
		client, ok := o.clients[src]
		if !ok {
			results[src] = models.FailedSourceResult(src, models.ErrKindProviderUnavailable, "no client configured", 0)
			continue
		}
		pending++
		go func(src models.DiscoverySource, client sources.Client) {
			start := time.Now()
			result, err := client.Discover(runCtx, paper)
			if err != nil {
				resultCh <- models.FailedSourceResult(src, sources.Classify(err), err.Error(), time.Since(start))
				return
			}
			resultCh <- result
		}(src, client)
	}

	for pending > 0 {
		select {
		case result := <-resultCh:
			results[result.Source] = result
			pending--
		case <-runCtx.Done():
			// Abandon the stragglers; their goroutines drain into the
			// buffered channel and exit.
			elapsed := time.Since(fanOutStart)
			for _, src := range enabled {
				if _, ok := results[src]; !ok {
					results[src] = models.FailedSourceResult(src, models.ErrKindTimeout, "execution deadline exceeded", elapsed)
				}
			}
			pending = 0
		}
	}

	ordered := make([]models.SourceDiscoveryResult, 0, len(enabled))
	for _, src := range enabled {
		result := results[src]
		if !result.Success {
			atomic.AddInt64(&o.metrics.SourceFailures, 1)
			if result.ErrorKind == models.ErrKindTimeout {
				atomic.AddInt64(&o.metrics.SourceTimeouts, 1)
			}
			log.Warn().
				Str("source", string(src)).
				Str("kind", string(result.ErrorKind)).
				Str("error", result.ErrorMsg).
				Msg("Source discovery failed")
		}
		ordered = append(ordered, result)
	}
	return ordered
}

// overallConfidence blends source availability with mean result score.
func overallConfidence(succeeded, enabled int, papers []models.DiscoveredPaper) float64 {
	if enabled == 0 {
		return 0
	}
	successRatio := float64(succeeded) / float64(enabled)

	avgScore := 0.0
	if len(papers) > 0 {
		sum := 0.0
		for i := range papers {
			sum += papers[i].RelevanceScore
		}
		avgScore = sum / float64(len(papers))
	}
	return confidenceSuccessWeight*successRatio + confidenceScoreWeight*avgScore
}
