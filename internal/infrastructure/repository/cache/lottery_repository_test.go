package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	"github.com/riskibarqy/kqsx/internal/infrastructure/repository/memory"
	basecache "github.com/riskibarqy/kqsx/internal/platform/cache"
)

type countingRepository struct {
	lottery.Repository
	reads int
}

func (r *countingRepository) ListCompletedDraws(ctx context.Context, date time.Time, region lottery.RegionCode) ([]lottery.Draw, error) {
	r.reads++
	return r.Repository.ListCompletedDraws(ctx, date, region)
}

func centralDraw(special string) lottery.Draw {
	draw := lottery.Draw{
		Game:      lottery.RegionalGame(lottery.RegionCentral),
		Date:      time.Date(2024, 10, 2, 0, 0, 0, 0, time.UTC),
		Sequence:  1,
		Status:    lottery.DrawStatusCompleted,
		Provinces: []lottery.Province{{Code: "da_nang", Name: "Da Nang", Region: lottery.RegionCentral}},
	}
	draw.Prizes = []lottery.Prize{{
		Level:          lottery.PrizeSpecial,
		Order:          1,
		Name:           lottery.PrizeSpecial.Name(),
		RewardAmount:   decimal.NewFromInt(2000000000),
		RewardCurrency: lottery.DefaultCurrency,
		Results:        []lottery.Result{{ProvinceCode: "da_nang", Numbers: []string{special}}},
	}}
	return draw
}

func newCachedRepository(t *testing.T) (*LotteryRepository, *countingRepository, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	backend := basecache.NewRedisStore(client, time.Minute, "kqsx:")
	counter := &countingRepository{Repository: memory.NewLotteryRepository(nil)}
	return NewLotteryRepository(counter, basecache.NewLoader(backend, nil)), counter, mr
}

func TestLotteryRepository_DoesNotCacheEmptyReads(t *testing.T) {
	ctx := context.Background()
	repo, counter, mr := newCachedRepository(t)
	date := time.Date(2024, 10, 2, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		draws, err := repo.ListCompletedDraws(ctx, date, lottery.RegionCentral)
		require.NoError(t, err)
		assert.Empty(t, draws)
	}
	assert.Equal(t, 2, counter.reads)
	assert.False(t, mr.Exists("kqsx:draws:mt:2024-10-02"))
}

func TestLotteryRepository_CachesAndInvalidatesOnWrite(t *testing.T) {
	ctx := context.Background()
	repo, counter, mr := newCachedRepository(t)
	date := time.Date(2024, 10, 2, 0, 0, 0, 0, time.UTC)

	_, err := repo.UpsertDraw(ctx, centralDraw("123456"), lottery.WriteMeta{Actor: lottery.ActorWatchdog})
	require.NoError(t, err)

	first, err := repo.ListCompletedDraws(ctx, date, lottery.RegionCentral)
	require.NoError(t, err)
	second, err := repo.ListCompletedDraws(ctx, date, lottery.RegionCentral)
	require.NoError(t, err)

	assert.Equal(t, 1, counter.reads)
	assert.True(t, mr.Exists("kqsx:draws:mt:2024-10-02"))
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Game.Code, second[0].Game.Code)
	assert.True(t, second[0].Prizes[0].RewardAmount.Equal(decimal.NewFromInt(2000000000)))

	_, err = repo.UpsertDraw(ctx, centralDraw("654321"), lottery.WriteMeta{Actor: lottery.ActorWatchdog})
	require.NoError(t, err)
	assert.False(t, mr.Exists("kqsx:draws:mt:2024-10-02"))

	third, err := repo.ListCompletedDraws(ctx, date, lottery.RegionCentral)
	require.NoError(t, err)
	assert.Equal(t, 2, counter.reads)
	numbers, _ := third[0].Prizes[0].ResultFor("da_nang")
	assert.Equal(t, []string{"654321"}, numbers)
}
