// Package config provides configuration management for paperscope.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

const (
	// DefaultWorkerPort is the default HTTP port for the worker service.
	DefaultWorkerPort = 37788

	// DefaultCacheBackend selects the persistent cache tier. One of
	// "sqlite", "postgres", "redis", "none".
	DefaultCacheBackend = "sqlite"
)

// ProviderConfig holds the per-provider connection settings.
type ProviderConfig struct {
	BaseURL    string `json:"base_url"`
	APIKey     string `json:"api_key"`
	TimeoutSec int    `json:"timeout_sec"`
	MaxRetries int    `json:"max_retries"`
}

// Config holds the application configuration.
type Config struct {
	// Worker settings
	WorkerPort int `json:"worker_port"`

	// Cache settings
	CacheBackend    string `json:"cache_backend"`
	CachePath       string `json:"cache_path"`
	CacheMaxEntries int    `json:"cache_max_entries"`
	CacheTTLSec     int    `json:"cache_ttl_sec"`
	PostgresDSN     string `json:"postgres_dsn"`
	RedisAddress    string `json:"redis_address"`
	RedisPassword   string `json:"redis_password"`
	RedisDB         int    `json:"redis_db"`
	MaxConns        int    `json:"max_conns"`

	// Feedback settings
	FeedbackEnabled bool   `json:"feedback_enabled"`
	FeedbackPath    string `json:"feedback_path"`

	// Provider settings
	CitationRegistry ProviderConfig `json:"citation_registry"`
	SemanticCorpus   ProviderConfig `json:"semantic_corpus"`
	TrendAnalyzer    ProviderConfig `json:"trend_analyzer"`

	// Rate limiting
	RateLimitPerSec int `json:"rate_limit_per_sec"`
	RateLimitBurst  int `json:"rate_limit_burst"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// DataDir returns the data directory path (~/.paperscope), overridable
// with PAPERSCOPE_DATA_DIR.
func DataDir() string {
	if dir := os.Getenv("PAPERSCOPE_DATA_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".paperscope")
}

// CacheDBPath returns the cache database file path.
func CacheDBPath() string {
	return filepath.Join(DataDir(), "cache.db")
}

// FeedbackDBPath returns the feedback database file path.
func FeedbackDBPath() string {
	return filepath.Join(DataDir(), "feedback.db")
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// EnsureSettings creates a default settings file if it doesn't exist.
func EnsureSettings() error {
	path := SettingsPath()

	if _, err := os.Stat(path); err == nil {
		return nil
	}

	defaultSettings := `{
  "PAPERSCOPE_WORKER_PORT": 37788,
  "PAPERSCOPE_CACHE_BACKEND": "sqlite",
  "PAPERSCOPE_FEEDBACK_ENABLED": true,
  "PAPERSCOPE_CITATION_REGISTRY_URL": "https://api.citation-registry.example.org/v1",
  "PAPERSCOPE_SEMANTIC_CORPUS_URL": "https://api.semantic-corpus.example.org/v1",
  "PAPERSCOPE_TREND_ANALYZER_URL": "https://api.trend-analyzer.example.org/v1"
}
`
	return os.WriteFile(path, []byte(defaultSettings), 0600)
}

// EnsureAll ensures all required directories and files exist.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	return EnsureSettings()
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		WorkerPort:      DefaultWorkerPort,
		CacheBackend:    DefaultCacheBackend,
		CachePath:       CacheDBPath(),
		CacheMaxEntries: 1000,
		CacheTTLSec:     8 * 3600,
		MaxConns:        4,
		FeedbackEnabled: true,
		FeedbackPath:    FeedbackDBPath(),
		CitationRegistry: ProviderConfig{
			TimeoutSec: 20,
			MaxRetries: 3,
		},
		SemanticCorpus: ProviderConfig{
			TimeoutSec: 20,
			MaxRetries: 3,
		},
		TrendAnalyzer: ProviderConfig{
			TimeoutSec: 20,
			MaxRetries: 3,
		},
		RateLimitPerSec: 10,
		RateLimitBurst:  20,
	}
}

// Load loads configuration from the settings file, merging with defaults.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(SettingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	var settings map[string]interface{}
	if err := json.Unmarshal(data, &settings); err != nil {
		return cfg, nil // Return defaults on parse error
	}

	if v, ok := settings["PAPERSCOPE_WORKER_PORT"].(float64); ok && v > 0 {
		cfg.WorkerPort = int(v)
	}
	if v, ok := settings["PAPERSCOPE_CACHE_BACKEND"].(string); ok && v != "" {
		cfg.CacheBackend = v
	}
	if v, ok := settings["PAPERSCOPE_CACHE_PATH"].(string); ok && v != "" {
		cfg.CachePath = v
	}
	if v, ok := settings["PAPERSCOPE_CACHE_MAX_ENTRIES"].(float64); ok && v > 0 {
		cfg.CacheMaxEntries = int(v)
	}
	if v, ok := settings["PAPERSCOPE_CACHE_TTL_SEC"].(float64); ok && v > 0 {
		cfg.CacheTTLSec = int(v)
	}
	if v, ok := settings["PAPERSCOPE_POSTGRES_DSN"].(string); ok {
		cfg.PostgresDSN = v
	}
	if v, ok := settings["PAPERSCOPE_REDIS_ADDRESS"].(string); ok {
		cfg.RedisAddress = v
	}
	if v, ok := settings["PAPERSCOPE_REDIS_PASSWORD"].(string); ok {
		cfg.RedisPassword = v
	}
	if v, ok := settings["PAPERSCOPE_REDIS_DB"].(float64); ok && v >= 0 {
		cfg.RedisDB = int(v)
	}
	if v, ok := settings["PAPERSCOPE_MAX_CONNS"].(float64); ok && v > 0 {
		cfg.MaxConns = int(v)
	}
	if v, ok := settings["PAPERSCOPE_FEEDBACK_ENABLED"].(bool); ok {
		cfg.FeedbackEnabled = v
	}
	if v, ok := settings["PAPERSCOPE_FEEDBACK_PATH"].(string); ok && v != "" {
		cfg.FeedbackPath = v
	}
	if v, ok := settings["PAPERSCOPE_RATE_LIMIT_PER_SEC"].(float64); ok && v > 0 {
		cfg.RateLimitPerSec = int(v)
	}
	if v, ok := settings["PAPERSCOPE_RATE_LIMIT_BURST"].(float64); ok && v > 0 {
		cfg.RateLimitBurst = int(v)
	}

	loadProvider(settings, "CITATION_REGISTRY", &cfg.CitationRegistry)
	loadProvider(settings, "SEMANTIC_CORPUS", &cfg.SemanticCorpus)
	loadProvider(settings, "TREND_ANALYZER", &cfg.TrendAnalyzer)

	return cfg, nil
}

func loadProvider(settings map[string]interface{}, name string, pc *ProviderConfig) {
	if v, ok := settings["PAPERSCOPE_"+name+"_URL"].(string); ok && v != "" {
		pc.BaseURL = v
	}
	if v, ok := settings["PAPERSCOPE_"+name+"_API_KEY"].(string); ok {
		pc.APIKey = v
	}
	if v, ok := settings["PAPERSCOPE_"+name+"_TIMEOUT_SEC"].(float64); ok && v > 0 {
		pc.TimeoutSec = int(v)
	}
	if v, ok := settings["PAPERSCOPE_"+name+"_MAX_RETRIES"].(float64); ok && v > 0 {
		pc.MaxRetries = int(v)
	}
}

// Get returns the global configuration, loading it if necessary.
func Get() *Config {
	configOnce.Do(func() {
		var err error
		globalConfig, err = Load()
		if err != nil {
			globalConfig = Default()
		}
	})

	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}

// GetWorkerPort returns the worker port from environment or config.
func GetWorkerPort() int {
	if port := os.Getenv("PAPERSCOPE_WORKER_PORT"); port != "" {
		var p int
		if err := json.Unmarshal([]byte(port), &p); err == nil && p > 0 {
			return p
		}
	}
	return Get().WorkerPort
}

// reload replaces the global configuration after a settings change.
func reload() {
	cfg, err := Load()
	if err != nil {
		return
	}
	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
}
