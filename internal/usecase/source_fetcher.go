package usecase

import (
	"context"
	"time"

	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	"github.com/riskibarqy/kqsx/internal/domain/source"
	"github.com/riskibarqy/kqsx/internal/platform/logging"
)

// SourceChain tries the primary strategy and falls back only when the primary
// could not make sense of what it fetched.
type SourceChain struct {
	primary  source.Fetcher
	fallback source.Fetcher
	logger   *logging.Logger
}

var _ source.Fetcher = (*SourceChain)(nil)

func NewSourceChain(primary, fallback source.Fetcher, logger *logging.Logger) *SourceChain {
	if logger == nil {
		logger = logging.Default()
	}
	return &SourceChain{primary: primary, fallback: fallback, logger: logger}
}

func (c *SourceChain) Fetch(ctx context.Context, region lottery.RegionCode, date time.Time) source.FetchResult {
	ctx, span := startUsecaseSpan(ctx, "usecase.SourceChain.Fetch")
	defer span.End()

	res := c.primary.Fetch(ctx, region, date)
	if res.Outcome != source.OutcomeFatal || c.fallback == nil {
		return res
	}

	c.logger.WarnContext(ctx, "primary source failed, trying fallback",
		"region", region,
		"date", lottery.FormatDate(date),
		"error", res.Err,
	)
	fb := c.fallback.Fetch(ctx, region, date).WithRejected(res.Rejected...)
	fb.Attempts += res.Attempts
	if fb.Outcome != source.OutcomeFound {
		c.logger.WarnContext(ctx, "fallback source failed",
			"region", region,
			"date", lottery.FormatDate(date),
			"outcome", fb.Outcome,
			"error", fb.Err,
		)
	}
	return fb
}
