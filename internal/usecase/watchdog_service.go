package usecase

import (
	"context"
	"time"

	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	"github.com/riskibarqy/kqsx/internal/platform/id"
	"github.com/riskibarqy/kqsx/internal/platform/logging"
)

type WatchdogRegionResult struct {
	Region    string `json:"region"`
	Present   bool   `json:"present"`
	Triggered bool   `json:"triggered"`
	Action    string `json:"action,omitempty"`
	Error     string `json:"error,omitempty"`
}

// WatchdogService makes sure today's draws exist for every region once they
// should have been published.
type WatchdogService struct {
	reader   lottery.Reader
	ingester PairIngester
	ids      id.Generator
	location *time.Location
	logger   *logging.Logger
	now      func() time.Time
}

func NewWatchdogService(reader lottery.Reader, ingester PairIngester, ids id.Generator, location *time.Location, logger *logging.Logger) *WatchdogService {
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WatchdogService{
		reader:   reader,
		ingester: ingester,
		ids:      ids,
		location: location,
		logger:   logger.Named("watchdog"),
		now:      time.Now,
	}
}

// CheckToday reads today's draws per region and ingests the missing ones.
// Failures are reported per region and never abort the sweep.
func (s *WatchdogService) CheckToday(ctx context.Context) []WatchdogRegionResult {
	ctx, span := startUsecaseSpan(ctx, "usecase.WatchdogService.CheckToday")
	defer span.End()

	today := lottery.Today(s.now(), s.location)
	runID, err := s.ids.NewID()
	if err != nil {
		s.logger.WarnContext(ctx, "generate run id failed", "error", err)
	}
	meta := lottery.WriteMeta{RunID: runID, Actor: lottery.ActorWatchdog}

	out := make([]WatchdogRegionResult, 0, 3)
	for _, region := range lottery.RegionCodes() {
		row := WatchdogRegionResult{Region: string(region)}

		draws, err := s.reader.ListCompletedDraws(ctx, today, region)
		if err != nil {
			row.Error = err.Error()
			s.logger.WarnContext(ctx, "read today's draws failed", "region", region, "error", err)
			out = append(out, row)
			continue
		}
		if len(draws) > 0 {
			row.Present = true
			out = append(out, row)
			continue
		}

		row.Triggered = true
		res, err := s.ingester.IngestPair(ctx, region, today, meta)
		if err != nil {
			row.Error = err.Error()
			s.logger.WarnContext(ctx, "watchdog ingestion failed",
				"region", region,
				"date", lottery.FormatDate(today),
				"error", err,
			)
		} else {
			row.Action = string(res.Action)
			s.logger.InfoContext(ctx, "watchdog ingested draw",
				"region", region,
				"date", lottery.FormatDate(today),
				"action", res.Action,
				"status", res.Status,
			)
		}
		out = append(out, row)
	}
	return out
}
