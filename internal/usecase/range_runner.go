package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	"github.com/riskibarqy/kqsx/internal/platform/id"
	"github.com/riskibarqy/kqsx/internal/platform/logging"
)

// DrawExporter writes a draw as a standalone SQL statement file.
type DrawExporter interface {
	ExportDraw(ctx context.Context, dir string, draw lottery.Draw) (string, error)
}

type RangeInput struct {
	Start time.Time
	// End defaults to today in the configured timezone.
	End       time.Time
	Regions   []string
	Persist   bool
	ExportDir string
	Strict    bool
}

type RangeResult struct {
	RunID        string            `json:"run_id"`
	Start        string            `json:"start"`
	End          string            `json:"end"`
	Regions      []string          `json:"regions"`
	PairCount    int               `json:"pair_count"`
	SuccessCount int               `json:"success_count"`
	SkippedCount int               `json:"skipped_count"`
	FailedCount  int               `json:"failed_count"`
	Stopped      bool              `json:"stopped"`
	DurationMs   int64             `json:"duration_ms"`
	Pairs        []RangePairResult `json:"pairs"`
}

type RangePairResult struct {
	Date       string `json:"date"`
	Region     string `json:"region"`
	Status     string `json:"status"`
	Action     string `json:"action,omitempty"`
	Reason     string `json:"reason,omitempty"`
	OutputPath string `json:"output_path,omitempty"`
	Attempts   int    `json:"attempts"`
	DurationMs int64  `json:"duration_ms"`
}

// Failures lists failed pairs as "{date} ({region}): {reason}".
func (r RangeResult) Failures() []string {
	var out []string
	for _, p := range r.Pairs {
		if p.Status == pairStatusFailed {
			out = append(out, fmt.Sprintf("%s (%s): %s", p.Date, p.Region, p.Reason))
		}
	}
	return out
}

const (
	pairStatusSuccess = "success"
	pairStatusFailed  = "failed"
	pairStatusSkipped = "skipped"
)

// RangeRunner ingests every (date, region) pair of a range one at a time.
type RangeRunner struct {
	ingestion *IngestionService
	exporter  DrawExporter
	ids       id.Generator
	location  *time.Location
	logger    *logging.Logger
	now       func() time.Time
}

func NewRangeRunner(ingestion *IngestionService, exporter DrawExporter, ids id.Generator, location *time.Location, logger *logging.Logger) *RangeRunner {
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RangeRunner{
		ingestion: ingestion,
		exporter:  exporter,
		ids:       ids,
		location:  location,
		logger:    logger,
		now:       time.Now,
	}
}

// Run validates the whole input before the first fetch. In strict mode the
// first failed pair stops the run; a write conflict always does.
func (r *RangeRunner) Run(ctx context.Context, input RangeInput) (RangeResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RangeRunner.Run")
	defer span.End()

	start, end, regions, err := r.validate(input)
	if err != nil {
		return RangeResult{}, err
	}

	runID, err := r.ids.NewID()
	if err != nil {
		return RangeResult{}, fmt.Errorf("generate run id: %w", err)
	}
	days := int(end.Sub(start).Hours()/24) + 1

	result := RangeResult{
		RunID:     runID,
		Start:     lottery.FormatDate(start),
		End:       lottery.FormatDate(end),
		Regions:   make([]string, 0, len(regions)),
		PairCount: days * len(regions),
		Pairs:     make([]RangePairResult, 0, days*len(regions)),
	}
	for _, region := range regions {
		result.Regions = append(result.Regions, string(region))
	}

	logger := r.logger.With("run_id", runID)
	logger.InfoContext(ctx, "range run started",
		"start", result.Start,
		"end", result.End,
		"regions", result.Regions,
		"persist", input.Persist,
		"export_dir", input.ExportDir,
		"strict", input.Strict,
	)
	runStart := time.Now()
	meta := lottery.WriteMeta{RunID: runID, Actor: lottery.ActorRangeRunner}

	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		for _, region := range regions {
			if err := ctx.Err(); err != nil {
				result.Stopped = true
				result.DurationMs = time.Since(runStart).Milliseconds()
				return result, err
			}

			row, cause := r.runPair(ctx, date, region, input, meta)
			result.Pairs = append(result.Pairs, row)
			switch row.Status {
			case pairStatusSuccess:
				result.SuccessCount++
			case pairStatusSkipped:
				result.SkippedCount++
			default:
				result.FailedCount++
			}
			logger.InfoContext(ctx, "pair finished",
				"date", row.Date,
				"region", row.Region,
				"status", row.Status,
				"action", row.Action,
				"reason", row.Reason,
				"output_path", row.OutputPath,
			)

			if cause == nil {
				continue
			}
			if input.Strict || crerr.Is(cause, lottery.ErrWriteConflict) {
				result.Stopped = true
				result.DurationMs = time.Since(runStart).Milliseconds()
				return result, fmt.Errorf("%s (%s): %w", row.Date, row.Region, cause)
			}
		}
	}

	result.DurationMs = time.Since(runStart).Milliseconds()
	logger.InfoContext(ctx, "range run finished",
		"succeeded", result.SuccessCount,
		"skipped", result.SkippedCount,
		"failed", result.FailedCount,
		"duration_ms", result.DurationMs,
	)
	return result, nil
}

func (r *RangeRunner) runPair(ctx context.Context, date time.Time, region lottery.RegionCode, input RangeInput, meta lottery.WriteMeta) (RangePairResult, error) {
	started := time.Now()
	row := RangePairResult{Date: lottery.FormatDate(date), Region: string(region)}
	finish := func(status, reason string) {
		row.Status = status
		row.Reason = reason
		row.DurationMs = time.Since(started).Milliseconds()
	}

	fetched, err := r.ingestion.Fetch(ctx, region, date)
	row.Attempts = fetched.Attempts
	if err != nil {
		if crerr.Is(err, lottery.ErrNotAvailable) {
			finish(pairStatusSkipped, err.Error())
			return row, nil
		}
		finish(pairStatusFailed, err.Error())
		return row, err
	}

	if input.ExportDir != "" {
		path, err := r.exporter.ExportDraw(ctx, input.ExportDir, fetched.Draw)
		if err != nil {
			err = fmt.Errorf("export draw: %w", err)
			finish(pairStatusFailed, err.Error())
			return row, err
		}
		row.OutputPath = path
	}

	if input.Persist {
		res, err := r.ingestion.Persist(ctx, fetched, meta)
		if err != nil {
			finish(pairStatusFailed, err.Error())
			return row, err
		}
		row.Action = string(res.Action)
	}

	finish(pairStatusSuccess, "")
	return row, nil
}

func (r *RangeRunner) validate(input RangeInput) (time.Time, time.Time, []lottery.RegionCode, error) {
	if input.Start.IsZero() {
		return time.Time{}, time.Time{}, nil, fmt.Errorf("%w: start date is required", ErrInvalidInput)
	}
	start := lottery.DateOf(input.Start)
	end := lottery.Today(r.now(), r.location)
	if !input.End.IsZero() {
		end = lottery.DateOf(input.End)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, nil, fmt.Errorf("%w: end %s must be on or after start %s", ErrInvalidInput, lottery.FormatDate(end), lottery.FormatDate(start))
	}

	regions, err := resolveRegions(input.Regions)
	if err != nil {
		return time.Time{}, time.Time{}, nil, err
	}

	if !input.Persist && strings.TrimSpace(input.ExportDir) == "" {
		return time.Time{}, time.Time{}, nil, fmt.Errorf("%w: an export directory is required when persistence is off", ErrInvalidInput)
	}
	if input.ExportDir != "" && r.exporter == nil {
		return time.Time{}, time.Time{}, nil, fmt.Errorf("%w: export is not configured", ErrDependencyUnavailable)
	}
	if r.ingestion == nil {
		return time.Time{}, time.Time{}, nil, fmt.Errorf("%w: ingestion is not configured", ErrDependencyUnavailable)
	}
	return start, end, regions, nil
}

// resolveRegions defaults to every region and drops duplicates, keeping order.
func resolveRegions(raw []string) ([]lottery.RegionCode, error) {
	if len(raw) == 0 {
		return lottery.RegionCodes(), nil
	}
	out := make([]lottery.RegionCode, 0, len(raw))
	seen := make(map[lottery.RegionCode]struct{}, len(raw))
	for _, item := range raw {
		code, ok := lottery.ParseRegion(item)
		if !ok {
			return nil, fmt.Errorf("%w: unknown region %q", ErrInvalidInput, item)
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out, nil
}
