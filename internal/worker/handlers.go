package worker

import (
	"errors"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/paperscope/paperscope/pkg/models"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleHealth handles health check requests.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"version":    s.version,
		"uptime_sec": int64(time.Since(s.startTime).Seconds()),
	})
}

// handleVersion returns the worker version for version checking.
func (s *Service) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": s.version,
	})
}

// discoverRequest is the /api/discover payload. Either a preset name or
// a full configuration object; supplying both is rejected.
type discoverRequest struct {
	SourcePaper   models.SourcePaper `json:"source_paper"`
	Preset        string             `json:"preset,omitempty"`
	Configuration json.RawMessage    `json:"configuration,omitempty"`
}

// handleDiscover runs a discovery and returns the unified result.
func (s *Service) handleDiscover(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	var req discoverRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "decode body: "+err.Error())
		return
	}

	cfg, err := resolveConfiguration(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.orchestrator.Discover(r.Context(), req.SourcePaper, cfg)
	if err != nil {
		var cfgErr *models.ConfigurationError
		if errors.As(err, &cfgErr) {
			writeError(w, http.StatusBadRequest, cfgErr.Error())
			return
		}
		log.Error().Err(err).Str("paper", req.SourcePaper.ID).Msg("Discovery failed")
		writeError(w, http.StatusInternalServerError, "discovery failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func resolveConfiguration(req discoverRequest) (models.DiscoveryConfiguration, error) {
	if req.Preset != "" && len(req.Configuration) > 0 {
		return models.DiscoveryConfiguration{}, &models.ConfigurationError{
			Field: "preset", Reason: "preset and configuration are mutually exclusive",
		}
	}

	switch req.Preset {
	case "":
	case string(models.ModeQuick):
		return models.QuickConfiguration(), nil
	case string(models.ModeComprehensive):
		return models.ComprehensiveConfiguration(), nil
	default:
		return models.DiscoveryConfiguration{}, &models.ConfigurationError{
			Field: "preset", Reason: "unrecognized preset " + req.Preset,
		}
	}

	if len(req.Configuration) == 0 {
		return models.ComprehensiveConfiguration(), nil
	}
	return models.ParseConfiguration(req.Configuration)
}

// handleFeedback records one feedback event.
func (s *Service) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if s.feedback == nil {
		writeError(w, http.StatusServiceUnavailable, "feedback is disabled")
		return
	}

	var event models.FeedbackEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "decode body: "+err.Error())
		return
	}

	if err := s.feedback.Record(r.Context(), event); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStats returns orchestrator, rate-limit, and feedback counters.
func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"discovery":  s.orchestrator.Metrics().GetStats(),
		"rate_limit": s.limiter.Stats(),
	}
	if s.feedback != nil {
		if n, err := s.feedback.Count(r.Context()); err == nil {
			stats["feedback_events"] = n
		}
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleCacheStats returns the two-tier cache statistics.
func (s *Service) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orchestrator.CacheStats())
}
