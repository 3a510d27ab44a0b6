package models

import "time"

// ErrorKind classifies a per-source failure. Kinds are recorded on the
// failed SourceDiscoveryResult and never raised past the orchestrator.
type ErrorKind string

const (
	// ErrKindTimeout means the source task did not complete before the
	// configured execution deadline.
	ErrKindTimeout ErrorKind = "timeout"
	// ErrKindProviderUnavailable covers connection, HTTP, and auth
	// failures that persisted past the client's retry budget.
	ErrKindProviderUnavailable ErrorKind = "provider_unavailable"
	// ErrKindMalformedResponse means the provider responded but the
	// payload violated the expected schema.
	ErrKindMalformedResponse ErrorKind = "malformed_response"
)

// SourceDiscoveryResult is the per-source outcome of one discovery run.
// Every enabled source produces exactly one, failed or not.
type SourceDiscoveryResult struct {
	Metadata  map[string]any    `json:"metadata,omitempty"`
	Source    DiscoverySource   `json:"source"`
	Papers    []DiscoveredPaper `json:"papers"`
	ErrorKind ErrorKind         `json:"error_kind,omitempty"`
	ErrorMsg  string            `json:"error_msg,omitempty"`
	Duration  time.Duration     `json:"duration_ns"`
	Success   bool              `json:"success"`
}

// FailedSourceResult builds the failure-tagged result for a source.
func FailedSourceResult(src DiscoverySource, kind ErrorKind, msg string, dur time.Duration) SourceDiscoveryResult {
	return SourceDiscoveryResult{
		Source:    src,
		Papers:    []DiscoveredPaper{},
		ErrorKind: kind,
		ErrorMsg:  msg,
		Duration:  dur,
		Success:   false,
	}
}

// StageDurations records wall-clock time spent in each pipeline stage.
type StageDurations struct {
	FanOut    time.Duration `json:"fan_out_ns"`
	Synthesis time.Duration `json:"synthesis_ns"`
	Diversity time.Duration `json:"diversity_ns"`
}

// SynthesisMetadata summarizes what happened during one discovery run.
type SynthesisMetadata struct {
	SucceededSources  []DiscoverySource `json:"succeeded_sources"`
	FailedSources     []DiscoverySource `json:"failed_sources"`
	Stages            StageDurations    `json:"stages"`
	TotalRawResults   int               `json:"total_raw_results"`
	TotalAfterDedup   int               `json:"total_after_dedup"`
	TotalReturned     int               `json:"total_returned"`
	ProcessingTime    time.Duration     `json:"processing_time_ns"`
	OverallConfidence float64           `json:"overall_confidence"`
}

// UnifiedDiscoveryResult is the final value of a discovery run. It is
// constructed once per (source paper, configuration) pair and never
// mutated afterwards.
type UnifiedDiscoveryResult struct {
	SourcePaper   SourcePaper             `json:"source_paper"`
	Papers        []DiscoveredPaper       `json:"papers"`
	SourceResults []SourceDiscoveryResult `json:"source_results"`
	Metadata      SynthesisMetadata       `json:"metadata"`
	Configuration DiscoveryConfiguration  `json:"configuration"`
}

// Cacheable reports whether the result qualifies for cache write-back.
// Runs where every paper was lost and at least one source failed are
// retried on the next call instead of being pinned in the cache.
func (r *UnifiedDiscoveryResult) Cacheable() bool {
	if len(r.Metadata.FailedSources) > 0 && len(r.Papers) == 0 {
		return false
	}
	return len(r.Metadata.SucceededSources) > 0
}

// DiscoveryExecution is the transient bundle collected while a run is
// in flight.
type DiscoveryExecution struct {
	SourcePaper   SourcePaper
	Configuration DiscoveryConfiguration
	StartedAt     time.Time
	FinishedAt    time.Time
	SourceResults []SourceDiscoveryResult
}

// RawResultCount sums papers across all source results, pre-dedup.
func (e *DiscoveryExecution) RawResultCount() int {
	n := 0
	for _, sr := range e.SourceResults {
		n += len(sr.Papers)
	}
	return n
}

// Partition splits source tags into succeeded and failed lists,
// preserving canonical source order.
func (e *DiscoveryExecution) Partition() (succeeded, failed []DiscoverySource) {
	succeeded = make([]DiscoverySource, 0, len(e.SourceResults))
	failed = make([]DiscoverySource, 0)
	for _, sr := range e.SourceResults {
		if sr.Success {
			succeeded = append(succeeded, sr.Source)
		} else {
			failed = append(failed, sr.Source)
		}
	}
	return succeeded, failed
}
