package usecase

import (
	"context"
	"fmt"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	"github.com/riskibarqy/kqsx/internal/domain/rawdata"
	"github.com/riskibarqy/kqsx/internal/domain/source"
	"github.com/riskibarqy/kqsx/internal/platform/logging"
)

// FetchedDraw is a normalized draw together with the payload it came from.
type FetchedDraw struct {
	Draw     lottery.Draw
	Payload  *source.RawPayload
	Attempts int
}

// IngestionService runs one (region, date) pair through fetch, normalize and write.
type IngestionService struct {
	fetcher     source.Fetcher
	normalizer  *Normalizer
	writer      lottery.Writer
	rawDataRepo rawdata.Repository
	logger      *logging.Logger
	now         func() time.Time
}

func NewIngestionService(
	fetcher source.Fetcher,
	normalizer *Normalizer,
	writer lottery.Writer,
	rawDataRepo rawdata.Repository,
	logger *logging.Logger,
) *IngestionService {
	if normalizer == nil {
		normalizer = NewNormalizer("", nil)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &IngestionService{
		fetcher:     fetcher,
		normalizer:  normalizer,
		writer:      writer,
		rawDataRepo: rawDataRepo,
		logger:      logger,
		now:         time.Now,
	}
}

// Fetch fetches and normalizes one pair without writing the draw. Documents
// that fail to parse go to raw storage so the payload_ref in the error
// resolves. Errors are marked with lottery.ErrNotAvailable, lottery.ErrFetch
// or lottery.ErrParse.
func (s *IngestionService) Fetch(ctx context.Context, region lottery.RegionCode, date time.Time) (FetchedDraw, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.Fetch")
	defer span.End()

	if !region.Valid() {
		return FetchedDraw{}, fmt.Errorf("%w: unknown region %q", ErrInvalidInput, region)
	}
	if s.fetcher == nil {
		return FetchedDraw{}, fmt.Errorf("%w: no source configured", ErrDependencyUnavailable)
	}

	res := s.fetcher.Fetch(ctx, region, date)
	for _, rejected := range res.Rejected {
		s.storeRaw(ctx, rejected)
	}
	fetched := FetchedDraw{Payload: res.Payload, Attempts: res.Attempts}
	switch res.Outcome {
	case source.OutcomeFound:
	case source.OutcomeNotAvailable:
		return fetched, markOutcome(res.Err, lottery.ErrNotAvailable, "draw not published")
	case source.OutcomeRetryable:
		return fetched, markOutcome(res.Err, lottery.ErrFetch, "fetch failed")
	default:
		return fetched, markOutcome(res.Err, lottery.ErrParse, "source returned an unusable payload")
	}
	if res.Payload == nil {
		return fetched, crerr.Mark(crerr.New("source reported found without a payload"), lottery.ErrParse)
	}

	draw, err := s.normalizer.Normalize(*res.Payload)
	if err != nil {
		var pe *lottery.ParseError
		if crerr.As(err, &pe) {
			s.logger.WarnContext(ctx, "payload rejected",
				"region", region,
				"date", lottery.FormatDate(date),
				"field", pe.Field,
				"reason", pe.Reason,
				"payload_ref", pe.PayloadRef,
			)
		}
		s.storeRaw(ctx, res.Payload)
		return fetched, err
	}
	fetched.Draw = draw
	return fetched, nil
}

// Persist stores the raw payload and upserts the draw.
func (s *IngestionService) Persist(ctx context.Context, fetched FetchedDraw, meta lottery.WriteMeta) (lottery.WriteResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.Persist")
	defer span.End()

	if s.writer == nil {
		return lottery.WriteResult{}, fmt.Errorf("%w: draw writer is not configured", ErrDependencyUnavailable)
	}
	s.storeRaw(ctx, fetched.Payload)

	res, err := s.writer.UpsertDraw(ctx, fetched.Draw, meta)
	if err != nil {
		return lottery.WriteResult{}, fmt.Errorf("upsert draw %s: %w", fetched.Draw.Key(), err)
	}
	s.logger.InfoContext(ctx, "draw written",
		"draw", fetched.Draw.Key().String(),
		"action", res.Action,
		"status", res.Status,
		"results_inserted", res.ResultsInserted,
		"corrections", len(res.Corrections),
		"actor", meta.Actor,
		"run_id", meta.RunID,
	)
	return res, nil
}

// IngestPair fetches, normalizes and persists one pair.
func (s *IngestionService) IngestPair(ctx context.Context, region lottery.RegionCode, date time.Time, meta lottery.WriteMeta) (lottery.WriteResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.IngestPair")
	defer span.End()

	fetched, err := s.Fetch(ctx, region, date)
	if err != nil {
		return lottery.WriteResult{}, err
	}
	return s.Persist(ctx, fetched, meta)
}

func (s *IngestionService) storeRaw(ctx context.Context, p *source.RawPayload) {
	if s.rawDataRepo == nil || p == nil || len(p.Body) == 0 {
		return
	}
	contentType := "text/html"
	if p.Kind == source.KindFreeText {
		contentType = "application/json"
	}
	item := rawdata.Payload{
		Source:      p.Source,
		EntityType:  rawdata.EntityResultsPage,
		EntityKey:   fmt.Sprintf("%s:%s", lottery.FormatDate(p.Date), p.Region),
		ContentType: contentType,
		Body:        p.Body,
		PayloadHash: rawdata.Hash(p.Body),
		FetchedAt:   s.now().UTC(),
	}
	if err := s.rawDataRepo.UpsertMany(ctx, []rawdata.Payload{item}); err != nil {
		s.logger.WarnContext(ctx, "store raw payload failed", "entity_key", item.EntityKey, "error", err)
	}
}

func markOutcome(err, mark error, fallback string) error {
	if err == nil {
		err = crerr.New(fallback)
	}
	if crerr.Is(err, mark) {
		return err
	}
	return crerr.Mark(err, mark)
}
