// Package main provides the entry point for the paperscope worker.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/paperscope/paperscope/internal/cache"
	"github.com/paperscope/paperscope/internal/config"
	"github.com/paperscope/paperscope/internal/feedback"
	"github.com/paperscope/paperscope/internal/orchestrator"
	"github.com/paperscope/paperscope/internal/sources"
	"github.com/paperscope/paperscope/internal/worker"
)

var Version = "dev"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	log.Info().
		Str("version", Version).
		Msg("Starting paperscope worker")

	if err := config.EnsureAll(); err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare data directory")
	}
	cfg := config.Get()

	store, err := buildCacheStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.CacheBackend).Msg("Failed to open cache backend")
	}
	memory := cache.NewMemory(cfg.CacheMaxEntries, time.Duration(cfg.CacheTTLSec)*time.Second)
	resultCache := cache.NewTwoTier(memory, store)
	defer resultCache.Close()

	clients := []sources.Client{
		sources.NewCitationRegistry(sources.CitationRegistryConfig{
			BaseURL:    cfg.CitationRegistry.BaseURL,
			APIKey:     cfg.CitationRegistry.APIKey,
			Timeout:    time.Duration(cfg.CitationRegistry.TimeoutSec) * time.Second,
			MaxRetries: cfg.CitationRegistry.MaxRetries,
		}),
		sources.NewSemanticCorpus(sources.SemanticCorpusConfig{
			BaseURL:    cfg.SemanticCorpus.BaseURL,
			APIKey:     cfg.SemanticCorpus.APIKey,
			Timeout:    time.Duration(cfg.SemanticCorpus.TimeoutSec) * time.Second,
			MaxRetries: cfg.SemanticCorpus.MaxRetries,
		}),
		sources.NewTrendAnalyzer(sources.TrendAnalyzerConfig{
			BaseURL:    cfg.TrendAnalyzer.BaseURL,
			APIKey:     cfg.TrendAnalyzer.APIKey,
			Timeout:    time.Duration(cfg.TrendAnalyzer.TimeoutSec) * time.Second,
			MaxRetries: cfg.TrendAnalyzer.MaxRetries,
		}),
	}

	var opts []orchestrator.Option
	var feedbackStore *feedback.Store
	if cfg.FeedbackEnabled {
		feedbackStore, err = feedback.NewStore(feedback.Config{Path: cfg.FeedbackPath, MaxConns: cfg.MaxConns})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open feedback store")
		}
		defer feedbackStore.Close()
		opts = append(opts, orchestrator.WithFeedback(feedbackStore))
	}

	orch := orchestrator.New(clients, resultCache, opts...)
	svc := worker.NewService(Version, cfg, orch, feedbackStore)

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	go func() {
		if err := config.Watch(watchCtx, nil); err != nil && watchCtx.Err() == nil {
			log.Warn().Err(err).Msg("Settings watcher stopped")
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		log.Info().Msg("Received shutdown signal")
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("Worker service failed")
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := svc.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}

	log.Info().Msg("Worker shutdown complete")
}

// buildCacheStore opens the configured persistent cache tier.
func buildCacheStore(cfg *config.Config) (cache.Store, error) {
	switch cfg.CacheBackend {
	case "postgres":
		return cache.NewPostgresStore(cache.PostgresConfig{DSN: cfg.PostgresDSN, MaxConns: cfg.MaxConns})
	case "redis":
		return cache.NewRedisStore(cache.RedisConfig{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	case "none":
		return nil, nil
	default:
		return cache.NewSQLiteStore(cache.SQLiteConfig{Path: cfg.CachePath, MaxConns: cfg.MaxConns})
	}
}
