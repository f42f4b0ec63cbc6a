package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	basecache "github.com/riskibarqy/kqsx/internal/platform/cache"
)

// LotteryRepository caches completed draws per (region, date). Empty lists
// are not cached so a later ingestion shows up on the next read.
type LotteryRepository struct {
	next  lottery.Repository
	cache *basecache.Loader
}

var _ lottery.Repository = (*LotteryRepository)(nil)

func NewLotteryRepository(next lottery.Repository, cache *basecache.Loader) *LotteryRepository {
	return &LotteryRepository{next: next, cache: cache}
}

func drawsKey(region lottery.RegionCode, date time.Time) string {
	return fmt.Sprintf("draws:%s:%s", region, lottery.FormatDate(date))
}

func (r *LotteryRepository) ListCompletedDraws(ctx context.Context, date time.Time, region lottery.RegionCode) ([]lottery.Draw, error) {
	raw, err := r.cache.GetOrLoad(ctx, drawsKey(region, date), func(ctx context.Context) ([]byte, bool, error) {
		items, err := r.next.ListCompletedDraws(ctx, date, region)
		if err != nil {
			return nil, false, err
		}
		encoded, err := sonic.Marshal(items)
		if err != nil {
			return nil, false, fmt.Errorf("encode draws: %w", err)
		}
		return encoded, len(items) > 0, nil
	})
	if err != nil {
		return nil, err
	}

	var items []lottery.Draw
	if err := sonic.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode cached draws: %w", err)
	}
	return items, nil
}

func (r *LotteryRepository) UpsertDraw(ctx context.Context, draw lottery.Draw, meta lottery.WriteMeta) (lottery.WriteResult, error) {
	res, err := r.next.UpsertDraw(ctx, draw, meta)
	if err != nil {
		return res, err
	}
	if res.Action != lottery.ActionUnchanged {
		r.cache.Invalidate(ctx, drawsKey(draw.Game.Region, draw.Date))
	}
	return res, nil
}
