package source

import (
	"context"
	"time"

	"github.com/riskibarqy/kqsx/internal/domain/lottery"
)

// Fetcher retrieves the raw results of one region for one date. It never
// panics and reports failures through FetchResult.
type Fetcher interface {
	Fetch(ctx context.Context, region lottery.RegionCode, date time.Time) FetchResult
}
