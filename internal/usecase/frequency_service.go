package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/riskibarqy/kqsx/internal/domain/frequency"
	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	"github.com/riskibarqy/kqsx/internal/platform/logging"
)

const (
	DefaultFrequencyWindowDays = 365
	defaultFrequencyWorkers    = 3
	maxFrequencyTop            = 100
)

type FrequencyConfig struct {
	WindowDays int
	Workers    int
}

type FrequencyRebuildResult struct {
	GameCount    int                   `json:"game_count"`
	SuccessCount int                   `json:"success_count"`
	FailedCount  int                   `json:"failed_count"`
	Since        string                `json:"since"`
	Games        []FrequencyGameResult `json:"games"`
}

type FrequencyGameResult struct {
	GameCode   string `json:"game_code"`
	Status     string `json:"status"`
	Rows       int    `json:"rows"`
	DurationMs int64  `json:"duration_ms"`
	Message    string `json:"message,omitempty"`
}

type FrequencyEntry struct {
	Tail     string `json:"tail"`
	Hits     int    `json:"hits"`
	LastSeen string `json:"last_seen"`
	GameCode string `json:"game_code"`
}

// FrequencyService maintains the two-digit tail projection. It never touches
// draw tables directly; each game is rebuilt in its own short transaction.
type FrequencyService struct {
	repo     frequency.Repository
	cfg      FrequencyConfig
	location *time.Location
	logger   *logging.Logger
	now      func() time.Time
}

func NewFrequencyService(repo frequency.Repository, cfg FrequencyConfig, location *time.Location, logger *logging.Logger) *FrequencyService {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = DefaultFrequencyWindowDays
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultFrequencyWorkers
	}
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FrequencyService{repo: repo, cfg: cfg, location: location, logger: logger, now: time.Now}
}

func (s *FrequencyService) Rebuild(ctx context.Context) (FrequencyRebuildResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FrequencyService.Rebuild")
	defer span.End()

	if s.repo == nil {
		return FrequencyRebuildResult{}, fmt.Errorf("%w: frequency repository is not configured", ErrDependencyUnavailable)
	}
	games, err := s.repo.ListGameCodes(ctx)
	if err != nil {
		return FrequencyRebuildResult{}, fmt.Errorf("list game codes: %w", err)
	}

	since := lottery.Today(s.now(), s.location).AddDate(0, 0, -s.cfg.WindowDays)
	result := FrequencyRebuildResult{
		GameCount: len(games),
		Since:     lottery.FormatDate(since),
		Games:     make([]FrequencyGameResult, 0, len(games)),
	}
	if len(games) == 0 {
		return result, nil
	}

	workers := s.cfg.Workers
	if workers > len(games) {
		workers = len(games)
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return FrequencyRebuildResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	rows := make(chan FrequencyGameResult, len(games))
	var successCount atomic.Int32
	var failedCount atomic.Int32
	var wg sync.WaitGroup
	for _, code := range games {
		code := code
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			start := time.Now()
			row := FrequencyGameResult{GameCode: code, Status: pairStatusSuccess}
			n, err := s.repo.Rebuild(ctx, code, since)
			row.Rows = n
			row.DurationMs = time.Since(start).Milliseconds()
			if err != nil {
				row.Status = pairStatusFailed
				row.Message = err.Error()
				failedCount.Add(1)
				s.logger.WarnContext(ctx, "frequency rebuild failed", "game_code", code, "error", err)
			} else {
				successCount.Add(1)
			}
			rows <- row
		}); err != nil {
			wg.Done()
			return FrequencyRebuildResult{}, fmt.Errorf("submit task to worker pool: %w", err)
		}
	}
	wg.Wait()
	close(rows)

	for row := range rows {
		result.Games = append(result.Games, row)
	}
	sort.Slice(result.Games, func(i, j int) bool { return result.Games[i].GameCode < result.Games[j].GameCode })
	result.SuccessCount = int(successCount.Load())
	result.FailedCount = int(failedCount.Load())

	s.logger.InfoContext(ctx, "frequency projection rebuilt",
		"games", result.GameCount,
		"failed", result.FailedCount,
		"since", result.Since,
	)
	return result, nil
}

func (s *FrequencyService) Top(ctx context.Context, rawRegion string, limit int) ([]FrequencyEntry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FrequencyService.Top")
	defer span.End()

	region, ok := lottery.ParseRegion(rawRegion)
	if !ok {
		return nil, fmt.Errorf("%w: region must be one of mn, mt, mb", ErrInvalidInput)
	}
	if limit <= 0 || limit > maxFrequencyTop {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidInput, maxFrequencyTop)
	}
	if s.repo == nil {
		return nil, fmt.Errorf("%w: frequency repository is not configured", ErrDependencyUnavailable)
	}

	entries, err := s.repo.Top(ctx, region, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: read frequencies: %v", ErrDependencyUnavailable, err)
	}
	out := make([]FrequencyEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, FrequencyEntry{
			Tail:     e.Tail,
			Hits:     e.Hits,
			LastSeen: lottery.FormatDate(e.LastSeen),
			GameCode: e.GameCode,
		})
	}
	return out, nil
}
