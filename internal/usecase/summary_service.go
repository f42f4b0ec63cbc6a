package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	"github.com/riskibarqy/kqsx/internal/platform/id"
	"github.com/riskibarqy/kqsx/internal/platform/logging"
)

const (
	DefaultSummaryLookbackDays = 2
	summaryRegionAll           = "all"
	pendingNumbersText         = "Đang cập nhật"
)

// PairIngester fetches and writes one (region, date) pair on demand.
type PairIngester interface {
	IngestPair(ctx context.Context, region lottery.RegionCode, date time.Time, meta lottery.WriteMeta) (lottery.WriteResult, error)
}

type SummaryConfig struct {
	LookbackDays      int
	OnDemandIngestion bool
}

type SummaryInput struct {
	// Date defaults to today in the configured timezone.
	Date   time.Time
	Region string
}

type PrizeSummary struct {
	Label   string   `json:"label"`
	Level   string   `json:"level"`
	Numbers []string `json:"numbers"`
}

type BoardSummary struct {
	Region       string         `json:"region"`
	RegionLabel  string         `json:"region_label"`
	ProvinceCode string         `json:"province_code,omitempty"`
	ProvinceName string         `json:"province_name"`
	Operator     string         `json:"operator,omitempty"`
	GameCode     string         `json:"game_code,omitempty"`
	GameName     string         `json:"game_name,omitempty"`
	Sequence     int            `json:"sequence"`
	Prizes       []PrizeSummary `json:"prizes"`
	SourceURL    string         `json:"source_url,omitempty"`
}

type Summary struct {
	RequestedDate      string         `json:"requested_date"`
	Date               string         `json:"date"`
	Region             string         `json:"region"`
	RegionLabel        string         `json:"region_label"`
	Draws              []BoardSummary `json:"draws"`
	SummaryText        string         `json:"summary_text"`
	FallbackOffsetDays int            `json:"fallback_offset_days"`
	Fallback           bool           `json:"fallback"`
	Available          bool           `json:"available"`
}

// SummaryService answers "latest results" questions, walking back a few days
// when the requested date has nothing yet.
type SummaryService struct {
	reader   lottery.Reader
	ingester PairIngester
	ids      id.Generator
	cfg      SummaryConfig
	location *time.Location
	logger   *logging.Logger
	now      func() time.Time
}

func NewSummaryService(reader lottery.Reader, ingester PairIngester, ids id.Generator, cfg SummaryConfig, location *time.Location, logger *logging.Logger) *SummaryService {
	if cfg.LookbackDays < 0 {
		cfg.LookbackDays = DefaultSummaryLookbackDays
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SummaryService{
		reader:   reader,
		ingester: ingester,
		ids:      ids,
		cfg:      cfg,
		location: location,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *SummaryService) GetSummary(ctx context.Context, input SummaryInput) (Summary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SummaryService.GetSummary")
	defer span.End()

	requested := lottery.Today(s.now(), s.location)
	if !input.Date.IsZero() {
		requested = lottery.DateOf(input.Date)
	}

	regionValue := summaryRegionAll
	label := lottery.AllRegionsLabel
	regions := lottery.RegionCodes()
	if raw := strings.TrimSpace(input.Region); raw != "" && !strings.EqualFold(raw, summaryRegionAll) {
		code, ok := lottery.ParseRegion(raw)
		if !ok {
			return Summary{}, fmt.Errorf("%w: region must be one of mn, mt, mb", ErrInvalidInput)
		}
		regionValue = string(code)
		label = code.Label()
		regions = []lottery.RegionCode{code}
	}

	resolved, offset, byRegion, err := s.gather(ctx, requested, regions)
	if err != nil {
		return Summary{}, err
	}

	out := Summary{
		RequestedDate: lottery.FormatDate(requested),
		Date:          lottery.FormatDate(resolved),
		Region:        regionValue,
		RegionLabel:   label,
		Draws:         []BoardSummary{},
	}
	for _, region := range regions {
		out.Draws = append(out.Draws, BuildBoards(byRegion[region])...)
	}
	SortBoards(out.Draws)

	out.Available = len(out.Draws) > 0
	if out.Available {
		out.FallbackOffsetDays = offset
		out.Fallback = offset > 0
	}
	out.SummaryText = RenderSummaryText(resolved, label, out.Draws)
	return out, nil
}

// gather reads every region for date-offset, offset 0..lookback, and returns
// the first date with any draws. At offset 0 regions with nothing trigger one
// on-demand ingestion each before the date is read again.
func (s *SummaryService) gather(ctx context.Context, requested time.Time, regions []lottery.RegionCode) (time.Time, int, map[lottery.RegionCode][]lottery.Draw, error) {
	attempted := make(map[lottery.RegionCode]bool, len(regions))
	offset := 0
	for offset <= s.cfg.LookbackDays {
		date := requested.AddDate(0, 0, -offset)
		byRegion, err := s.readRegions(ctx, date, regions)
		if err != nil {
			return time.Time{}, 0, nil, err
		}
		if len(byRegion) > 0 {
			return date, offset, byRegion, nil
		}

		if offset == 0 && s.cfg.OnDemandIngestion && s.ingester != nil {
			triggered := false
			for _, region := range regions {
				if attempted[region] {
					continue
				}
				attempted[region] = true
				triggered = true
				s.ingestOnDemand(ctx, region, date)
			}
			if triggered {
				continue
			}
		}
		offset++
	}
	return requested, 0, nil, nil
}

type regionDraws struct {
	region lottery.RegionCode
	draws  []lottery.Draw
}

func (s *SummaryService) readRegions(ctx context.Context, date time.Time, regions []lottery.RegionCode) (map[lottery.RegionCode][]lottery.Draw, error) {
	p := pool.NewWithResults[regionDraws]().WithContext(ctx).WithMaxGoroutines(len(regions))
	for _, region := range regions {
		region := region
		p.Go(func(ctx context.Context) (regionDraws, error) {
			draws, err := s.reader.ListCompletedDraws(ctx, date, region)
			if err != nil {
				return regionDraws{}, fmt.Errorf("read %s draws for %s: %w", region, lottery.FormatDate(date), err)
			}
			return regionDraws{region: region, draws: draws}, nil
		})
	}
	rows, err := p.Wait()
	if err != nil {
		s.logger.ErrorContext(ctx, "read draws failed", "date", lottery.FormatDate(date), "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	out := make(map[lottery.RegionCode][]lottery.Draw, len(rows))
	for _, row := range rows {
		if len(row.draws) > 0 {
			out[row.region] = row.draws
		}
	}
	return out, nil
}

func (s *SummaryService) ingestOnDemand(ctx context.Context, region lottery.RegionCode, date time.Time) {
	runID, err := s.ids.NewID()
	if err != nil {
		s.logger.WarnContext(ctx, "generate run id failed", "error", err)
	}
	res, err := s.ingester.IngestPair(ctx, region, date, lottery.WriteMeta{RunID: runID, Actor: lottery.ActorSummaryReader})
	if err != nil {
		s.logger.WarnContext(ctx, "on-demand ingestion failed",
			"region", region,
			"date", lottery.FormatDate(date),
			"error", err,
		)
		return
	}
	s.logger.InfoContext(ctx, "on-demand ingestion finished",
		"region", region,
		"date", lottery.FormatDate(date),
		"action", res.Action,
		"status", res.Status,
	)
}

// BuildBoards splits each draw into one board per province.
func BuildBoards(draws []lottery.Draw) []BoardSummary {
	var out []BoardSummary
	for _, d := range draws {
		region := d.Game.Region
		layout := region.PrizeOrder()
		for _, province := range d.Provinces {
			board := BoardSummary{
				Region:       string(region),
				RegionLabel:  region.Label(),
				ProvinceCode: province.Code,
				ProvinceName: province.Name,
				Operator:     province.Operator,
				GameCode:     province.GameCode(),
				GameName:     province.GameName(),
				Sequence:     d.Sequence,
				SourceURL:    d.SourceURL,
			}
			for _, level := range layout {
				for _, prize := range prizesAt(d.Prizes, level) {
					numbers, _ := prize.ResultFor(province.Code)
					board.Prizes = append(board.Prizes, PrizeSummary{
						Label:   level.DisplayLabel(),
						Level:   string(level),
						Numbers: append([]string{}, numbers...),
					})
				}
			}
			out = append(out, board)
		}
	}
	return out
}

func prizesAt(prizes []lottery.Prize, level lottery.PrizeLevel) []lottery.Prize {
	var out []lottery.Prize
	for _, p := range prizes {
		if p.Level == level {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// SortBoards orders boards south to north, then by sequence and province name.
func SortBoards(boards []BoardSummary) {
	sort.SliceStable(boards, func(i, j int) bool {
		ri := lottery.DisplayRank(lottery.RegionCode(boards[i].Region))
		rj := lottery.DisplayRank(lottery.RegionCode(boards[j].Region))
		if ri != rj {
			return ri < rj
		}
		if boards[i].Sequence != boards[j].Sequence {
			return boards[i].Sequence < boards[j].Sequence
		}
		return boards[i].ProvinceName < boards[j].ProvinceName
	})
}

// RenderSummaryText renders boards as the chat-friendly text block.
func RenderSummaryText(date time.Time, label string, boards []BoardSummary) string {
	dateLabel := date.Format("02/01/2006")
	if len(boards) == 0 {
		return fmt.Sprintf("🎯 Chưa có dữ liệu kết quả xổ số %s cho ngày %s.", label, dateLabel)
	}

	regions := make(map[string]struct{}, 3)
	for _, b := range boards {
		regions[b.Region] = struct{}{}
	}
	multiRegion := len(regions) > 1

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎯 Kết quả Xổ Số %s – %s", label, dateLabel))
	for _, b := range boards {
		sb.WriteString("\n\n")
		header := b.ProvinceName
		if multiRegion {
			header = b.RegionLabel + " – " + header
		}
		var details []string
		if code := FormatGameCode(b.GameCode); code != "" {
			details = append(details, code)
		}
		if b.Operator != "" {
			details = append(details, b.Operator)
		}
		if len(details) > 0 {
			header += " (" + strings.Join(details, " – ") + ")"
		}
		sb.WriteString(header)

		for _, p := range b.Prizes {
			numbers := pendingNumbersText
			if len(p.Numbers) > 0 {
				numbers = strings.Join(p.Numbers, " – ")
			}
			sb.WriteString("\n" + p.Label + ": " + numbers)
		}
	}
	return sb.String()
}

// FormatGameCode turns xs_mn_ben_tre into "MN BEN TRE".
func FormatGameCode(code string) string {
	code = strings.TrimPrefix(strings.TrimSpace(code), "xs_")
	return strings.ReplaceAll(strings.ToUpper(code), "_", " ")
}
