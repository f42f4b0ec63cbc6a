package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/kqsx/internal/config"
	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	"github.com/riskibarqy/kqsx/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/kqsx/internal/platform/cache"
	"github.com/riskibarqy/kqsx/internal/platform/logging"
	"github.com/riskibarqy/kqsx/internal/usecase"
)

func TestNewCacheBackend(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewNop()

	t.Run("disabled", func(t *testing.T) {
		backend, closer, err := newCacheBackend(ctx, config.Config{CacheEnabled: false}, logger)
		require.NoError(t, err)
		assert.Nil(t, backend)
		assert.NoError(t, closer())
	})

	t.Run("memory", func(t *testing.T) {
		backend, _, err := newCacheBackend(ctx, config.Config{
			CacheEnabled:    true,
			CacheBackend:    config.CacheBackendMemory,
			CacheTTL:        time.Minute,
			CacheMaxEntries: 8,
		}, logger)
		require.NoError(t, err)
		_, ok := backend.(*cache.Store)
		assert.True(t, ok)
	})

	t.Run("redis", func(t *testing.T) {
		srv := miniredis.RunT(t)
		backend, closer, err := newCacheBackend(ctx, config.Config{
			CacheEnabled: true,
			CacheBackend: config.CacheBackendRedis,
			CacheTTL:     time.Minute,
			RedisAddr:    srv.Addr(),
		}, logger)
		require.NoError(t, err)
		defer closer()

		require.NoError(t, backend.Set(ctx, "draws:mn:2024-10-03", []byte("[]")))
		assert.True(t, srv.Exists(redisKeyPrefix+"draws:mn:2024-10-03"))
	})

	t.Run("redis unreachable", func(t *testing.T) {
		_, _, err := newCacheBackend(ctx, config.Config{
			CacheEnabled: true,
			CacheBackend: config.CacheBackendRedis,
			CacheTTL:     time.Minute,
			RedisAddr:    "127.0.0.1:1",
		}, logger)
		require.Error(t, err)
	})
}

func TestRangeRunnerWriter(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewNop()
	draw := lottery.Draw{
		Game:      lottery.RegionalGame(lottery.RegionSouth),
		Date:      time.Date(2024, 10, 3, 0, 0, 0, 0, time.UTC),
		Sequence:  1,
		Status:    lottery.DrawStatusCompleted,
		Provinces: []lottery.Province{{Code: "ben_tre", Name: "Ben Tre", Region: lottery.RegionSouth}},
	}

	t.Run("redis evicts cached reads", func(t *testing.T) {
		srv := miniredis.RunT(t)
		repo := memory.NewLotteryRepository(nil)
		writer, closer, err := rangeRunnerWriter(ctx, config.Config{
			CacheEnabled: true,
			CacheBackend: config.CacheBackendRedis,
			CacheTTL:     time.Minute,
			RedisAddr:    srv.Addr(),
		}, repo, logger)
		require.NoError(t, err)
		defer closer()

		key := redisKeyPrefix + "draws:mn:2024-10-03"
		require.NoError(t, srv.Set(key, "[]"))

		_, err = writer.UpsertDraw(ctx, draw, lottery.WriteMeta{})
		require.NoError(t, err)
		assert.False(t, srv.Exists(key))
		assert.Equal(t, 1, repo.DrawCount())
	})

	t.Run("process-local caches write straight through", func(t *testing.T) {
		repo := memory.NewLotteryRepository(nil)
		for _, cfg := range []config.Config{
			{CacheEnabled: false},
			{CacheEnabled: true, CacheBackend: config.CacheBackendMemory, CacheTTL: time.Minute, CacheMaxEntries: 8},
		} {
			writer, closer, err := rangeRunnerWriter(ctx, cfg, repo, logger)
			require.NoError(t, err)
			assert.Same(t, repo, writer)
			assert.NoError(t, closer())
		}
	})

	t.Run("redis unreachable", func(t *testing.T) {
		_, _, err := rangeRunnerWriter(ctx, config.Config{
			CacheEnabled: true,
			CacheBackend: config.CacheBackendRedis,
			CacheTTL:     time.Minute,
			RedisAddr:    "127.0.0.1:1",
		}, memory.NewLotteryRepository(nil), logger)
		require.Error(t, err)
	})
}

func TestNewSource_ChainsExtractorWhenEnabled(t *testing.T) {
	cfg := config.Config{
		SourceBaseURL: "http://127.0.0.1:1",
		SourceTimeout: time.Second,
		OllamaHost:    "http://127.0.0.1:1",
		OllamaModel:   "llama3",
		OllamaTimeout: time.Second,
	}

	_, ok := newSource(cfg, logging.NewNop()).(*usecase.SourceChain)
	assert.True(t, ok)

	cfg.FreeTextEnabled = true
	_, ok = newSource(cfg, logging.NewNop()).(*usecase.SourceChain)
	assert.True(t, ok)
}

func TestNewRangeRunner_WithoutPersistenceSkipsDatabase(t *testing.T) {
	cfg := config.Config{
		DBURL:         "postgres://nobody@127.0.0.1:1/kqsx?sslmode=disable",
		SourceBaseURL: "http://127.0.0.1:1",
		SourceTimeout: time.Second,
		Location:      time.UTC,
	}

	runner, closer, err := NewRangeRunner(context.Background(), cfg, false, logging.NewNop())
	require.NoError(t, err)
	require.NotNil(t, runner)
	assert.NoError(t, closer())
}
