package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/riskibarqy/kqsx/external/minhchinh"
	"github.com/riskibarqy/kqsx/external/ollama"
	"github.com/riskibarqy/kqsx/internal/config"
	"github.com/riskibarqy/kqsx/internal/domain/source"
	"github.com/riskibarqy/kqsx/internal/platform/cache"
	"github.com/riskibarqy/kqsx/internal/platform/logging"
	"github.com/riskibarqy/kqsx/internal/usecase"
)

const redisKeyPrefix = "kqsx:"

// newSource builds the fetch strategy: the structured page parser, with the
// LLM extractor behind it when free text extraction is enabled.
func newSource(cfg config.Config, logger *logging.Logger) source.Fetcher {
	transport := otelhttp.NewTransport(http.DefaultTransport)
	primary := minhchinh.NewClient(minhchinh.ClientConfig{
		HTTPClient:     &http.Client{Timeout: cfg.SourceTimeout, Transport: transport},
		BaseURL:        cfg.SourceBaseURL,
		Timeout:        cfg.SourceTimeout,
		MaxRetries:     cfg.SourceMaxRetries,
		Logger:         logger.Named("minhchinh"),
		CircuitBreaker: cfg.SourceCircuit,
	})
	if !cfg.FreeTextEnabled {
		return usecase.NewSourceChain(primary, nil, logger)
	}

	extractor := ollama.NewExtractor(ollama.ClientConfig{
		HTTPClient:     &http.Client{Timeout: cfg.OllamaTimeout, Transport: transport},
		Host:           cfg.OllamaHost,
		Model:          cfg.OllamaModel,
		Timeout:        cfg.OllamaTimeout,
		Logger:         logger.Named("ollama"),
		CircuitBreaker: cfg.OllamaCircuit,
	}, primary)
	return usecase.NewSourceChain(primary, extractor, logger)
}

// newCacheBackend returns nil when caching is disabled. The closer releases
// the redis client, if any.
func newCacheBackend(ctx context.Context, cfg config.Config, logger *logging.Logger) (cache.Backend, func() error, error) {
	noop := func() error { return nil }
	if !cfg.CacheEnabled {
		logger.Info("cache disabled", "reason", "CACHE_ENABLED=false")
		return nil, noop, nil
	}

	if cfg.CacheBackend != config.CacheBackendRedis {
		logger.Info("cache enabled", "backend", config.CacheBackendMemory, "ttl", cfg.CacheTTL.String(), "max_entries", cfg.CacheMaxEntries)
		return cache.NewStore(cfg.CacheTTL, cfg.CacheMaxEntries), noop, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, noop, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("cache enabled", "backend", config.CacheBackendRedis, "ttl", cfg.CacheTTL.String(), "addr", cfg.RedisAddr)
	return cache.NewRedisStore(client, cfg.CacheTTL, redisKeyPrefix), client.Close, nil
}
