package orchestrator

import "sync/atomic"

// DiscoveryMetrics tracks orchestrator activity with atomic counters.
// Fields are accessed with the sync/atomic helpers; no lock needed.
type DiscoveryMetrics struct {
	TotalRuns         int64
	CacheHits         int64
	CoalescedRequests int64
	SourceFailures    int64
	SourceTimeouts    int64
	PapersReturned    int64
	RunErrors         int64
	TotalLatencyNs    int64
}

// GetStats returns the current discovery statistics.
func (m *DiscoveryMetrics) GetStats() map[string]any {
	totalRuns := atomic.LoadInt64(&m.TotalRuns)
	totalLatency := atomic.LoadInt64(&m.TotalLatencyNs)

	avgLatencyMs := float64(0)
	if totalRuns > 0 {
		avgLatencyMs = float64(totalLatency) / float64(totalRuns) / 1e6
	}

	return map[string]any{
		"total_runs":         totalRuns,
		"cache_hits":         atomic.LoadInt64(&m.CacheHits),
		"coalesced_requests": atomic.LoadInt64(&m.CoalescedRequests),
		"source_failures":    atomic.LoadInt64(&m.SourceFailures),
		"source_timeouts":    atomic.LoadInt64(&m.SourceTimeouts),
		"papers_returned":    atomic.LoadInt64(&m.PapersReturned),
		"run_errors":         atomic.LoadInt64(&m.RunErrors),
		"avg_latency_ms":     avgLatencyMs,
	}
}
