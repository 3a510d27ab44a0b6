package models

import (
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

// DiscoveryMode selects a named discovery profile.
type DiscoveryMode string

const (
	ModeQuick         DiscoveryMode = "quick"
	ModeStandard      DiscoveryMode = "standard"
	ModeComprehensive DiscoveryMode = "comprehensive"
	ModeCustom        DiscoveryMode = "custom"
)

// DiversityLevel controls the relevance-vs-variety tradeoff in the
// diversity optimizer.
type DiversityLevel string

const (
	DiversityLow    DiversityLevel = "low"
	DiversityMedium DiversityLevel = "medium"
	DiversityHigh   DiversityLevel = "high"
)

// MaxResultsCap is the hard upper bound on returned papers.
const MaxResultsCap = 100

// DateRange is an inclusive publication-date filter.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// DiscoveryConfiguration is the immutable set of options for one
// discovery run. Construct via a preset or ParseConfiguration; derive
// variants by copying, never by mutating a shared value.
type DiscoveryConfiguration struct {
	Mode                    DiscoveryMode  `json:"mode"`
	IncludeCitationRegistry bool           `json:"include_citation_registry"`
	IncludeSemanticCorpus   bool           `json:"include_semantic_corpus"`
	IncludeTrendAnalyzer    bool           `json:"include_trend_analyzer"`
	MaxResults              int            `json:"max_results"`
	DiversityLevel          DiversityLevel `json:"diversity_level"`
	MaxExecutionTime        time.Duration  `json:"max_execution_time_ns"`
	MinRelevanceThreshold   float64        `json:"min_relevance_threshold"`
	OpenAccessOnly          bool           `json:"open_access_only"`
	ExcludedVenues          []string       `json:"excluded_venues,omitempty"`
	DateRange               *DateRange     `json:"date_range,omitempty"`
}

// ComprehensiveConfiguration returns the comprehensive preset: all
// three sources, 50 results, medium diversity, 3 minute deadline,
// threshold 0.3.
func ComprehensiveConfiguration() DiscoveryConfiguration {
	return DiscoveryConfiguration{
		Mode:                    ModeComprehensive,
		IncludeCitationRegistry: true,
		IncludeSemanticCorpus:   true,
		IncludeTrendAnalyzer:    true,
		MaxResults:              50,
		DiversityLevel:          DiversityMedium,
		MaxExecutionTime:        3 * time.Minute,
		MinRelevanceThreshold:   0.3,
	}
}

// QuickConfiguration returns the quick preset: two sources (no trend
// analyzer), 20 results, low diversity, 1 minute deadline,
// threshold 0.4.
func QuickConfiguration() DiscoveryConfiguration {
	return DiscoveryConfiguration{
		Mode:                    ModeQuick,
		IncludeCitationRegistry: true,
		IncludeSemanticCorpus:   true,
		IncludeTrendAnalyzer:    false,
		MaxResults:              20,
		DiversityLevel:          DiversityLow,
		MaxExecutionTime:        time.Minute,
		MinRelevanceThreshold:   0.4,
	}
}

// EnabledSources returns the enabled source tags in canonical order.
func (c DiscoveryConfiguration) EnabledSources() []DiscoverySource {
	sources := make([]DiscoverySource, 0, len(AllSources))
	if c.IncludeCitationRegistry {
		sources = append(sources, SourceCitationRegistry)
	}
	if c.IncludeSemanticCorpus {
		sources = append(sources, SourceSemanticCorpus)
	}
	if c.IncludeTrendAnalyzer {
		sources = append(sources, SourceTrendAnalyzer)
	}
	return sources
}

// EffectiveMaxResults clamps MaxResults to the hard cap.
func (c DiscoveryConfiguration) EffectiveMaxResults() int {
	if c.MaxResults > MaxResultsCap {
		return MaxResultsCap
	}
	return c.MaxResults
}

// Validate checks every field against its allowed range. It returns a
// *ConfigurationError describing the first violation found.
func (c DiscoveryConfiguration) Validate() error {
	switch c.Mode {
	case ModeQuick, ModeStandard, ModeComprehensive, ModeCustom:
	default:
		return &ConfigurationError{Field: "mode", Reason: fmt.Sprintf("unrecognized mode %q", c.Mode)}
	}
	if c.MaxResults < 1 || c.MaxResults > MaxResultsCap {
		return &ConfigurationError{Field: "max_results", Reason: fmt.Sprintf("must be 1..%d, got %d", MaxResultsCap, c.MaxResults)}
	}
	switch c.DiversityLevel {
	case DiversityLow, DiversityMedium, DiversityHigh:
	default:
		return &ConfigurationError{Field: "diversity_level", Reason: fmt.Sprintf("unrecognized level %q", c.DiversityLevel)}
	}
	if c.MaxExecutionTime <= 0 {
		return &ConfigurationError{Field: "max_execution_time_ns", Reason: "must be positive"}
	}
	if c.MinRelevanceThreshold < 0 || c.MinRelevanceThreshold > 1 {
		return &ConfigurationError{Field: "min_relevance_threshold", Reason: fmt.Sprintf("must be in [0,1], got %g", c.MinRelevanceThreshold)}
	}
	if len(c.EnabledSources()) == 0 {
		return &ConfigurationError{Field: "include_*", Reason: "at least one source must be enabled"}
	}
	if c.DateRange != nil && c.DateRange.To.Before(c.DateRange.From) {
		return &ConfigurationError{Field: "date_range", Reason: "to precedes from"}
	}
	return nil
}

// ConfigurationError reports an invalid or unrecognized configuration
// field. It is the only caller-side error Discover surfaces besides
// invariant violations.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// recognizedConfigKeys are the JSON keys accepted in a custom
// configuration payload.
var recognizedConfigKeys = map[string]bool{
	"mode":                      true,
	"include_citation_registry": true,
	"include_semantic_corpus":   true,
	"include_trend_analyzer":    true,
	"max_results":               true,
	"diversity_level":           true,
	"max_execution_time_ns":     true,
	"min_relevance_threshold":   true,
	"open_access_only":          true,
	"excluded_venues":           true,
	"date_range":                true,
}

// ParseConfiguration decodes a configuration payload. Custom-mode
// payloads are rejected when they carry any unrecognized key; this
// happens before any provider or cache I/O.
func ParseConfiguration(data []byte) (DiscoveryConfiguration, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return DiscoveryConfiguration{}, &ConfigurationError{Field: "body", Reason: err.Error()}
	}

	var cfg DiscoveryConfiguration
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DiscoveryConfiguration{}, &ConfigurationError{Field: "body", Reason: err.Error()}
	}

	if cfg.Mode == ModeCustom {
		keys := make([]string, 0, len(raw))
		for k := range raw {
			if !recognizedConfigKeys[k] {
				keys = append(keys, k)
			}
		}
		if len(keys) > 0 {
			sort.Strings(keys)
			return DiscoveryConfiguration{}, &ConfigurationError{Field: keys[0], Reason: "unrecognized configuration key"}
		}
	}

	if err := cfg.Validate(); err != nil {
		return DiscoveryConfiguration{}, err
	}
	return cfg, nil
}

// Digest returns a stable hash of the normalized configuration.
// Semantically equal configurations share a digest: the excluded-venue
// set is sorted, booleans canonicalized, and the threshold rounded to
// three decimals. FNV-64a rendered in base36 for a compact key.
func (c DiscoveryConfiguration) Digest() string {
	h := fnv.New64a()

	writeBool := func(b bool) {
		if b {
			h.Write([]byte{'1'})
		} else {
			h.Write([]byte{'0'})
		}
		h.Write([]byte{'|'})
	}

	h.Write([]byte(c.Mode))
	h.Write([]byte{'|'})
	writeBool(c.IncludeCitationRegistry)
	writeBool(c.IncludeSemanticCorpus)
	writeBool(c.IncludeTrendAnalyzer)
	h.Write([]byte(strconv.Itoa(c.MaxResults)))
	h.Write([]byte{'|'})
	h.Write([]byte(c.DiversityLevel))
	h.Write([]byte{'|'})
	h.Write([]byte(strconv.FormatInt(int64(c.MaxExecutionTime), 10)))
	h.Write([]byte{'|'})

	threshold := math.Round(c.MinRelevanceThreshold*1000) / 1000
	h.Write([]byte(strconv.FormatFloat(threshold, 'f', 3, 64)))
	h.Write([]byte{'|'})
	writeBool(c.OpenAccessOnly)

	venues := make([]string, len(c.ExcludedVenues))
	copy(venues, c.ExcludedVenues)
	sort.Strings(venues)
	for _, v := range venues {
		h.Write([]byte(v))
		h.Write([]byte{','})
	}
	h.Write([]byte{'|'})

	if c.DateRange != nil {
		h.Write([]byte(strconv.FormatInt(c.DateRange.From.Unix(), 10)))
		h.Write([]byte{'-'})
		h.Write([]byte(strconv.FormatInt(c.DateRange.To.Unix(), 10)))
	}

	return strconv.FormatUint(h.Sum64(), 36)
}

// CacheKey combines the source paper ID with the configuration digest.
func (c DiscoveryConfiguration) CacheKey(sourcePaperID string) string {
	return sourcePaperID + ":" + c.Digest()
}
