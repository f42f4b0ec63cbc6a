package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	"github.com/riskibarqy/kqsx/internal/platform/textnorm"
)

type TicketCheckInput struct {
	Date     time.Time
	Region   string
	Province string
	Number   string
}

type TicketWin struct {
	Level   string `json:"level"`
	Label   string `json:"label"`
	Matched string `json:"matched"`
}

type TicketCheckResult struct {
	Date         string      `json:"date"`
	Region       string      `json:"region"`
	ProvinceCode string      `json:"province_code"`
	ProvinceName string      `json:"province_name"`
	Number       string      `json:"number"`
	Winner       bool        `json:"winner"`
	Wins         []TicketWin `json:"wins"`
}

// TicketService matches a ticket number against a completed draw. It only
// reads; it never triggers ingestion or looks at other dates.
type TicketService struct {
	reader lottery.Reader
}

func NewTicketService(reader lottery.Reader) *TicketService {
	return &TicketService{reader: reader}
}

func (s *TicketService) Check(ctx context.Context, input TicketCheckInput) (TicketCheckResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TicketService.Check")
	defer span.End()

	if input.Date.IsZero() {
		return TicketCheckResult{}, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	region, ok := lottery.ParseRegion(input.Region)
	if !ok {
		return TicketCheckResult{}, fmt.Errorf("%w: region must be one of mn, mt, mb", ErrInvalidInput)
	}
	provinceKey := textnorm.Key(input.Province)
	if provinceKey == "" {
		return TicketCheckResult{}, fmt.Errorf("%w: province is required", ErrInvalidInput)
	}
	number := strings.TrimSpace(input.Number)
	if want := region.Info().TicketLen; len(number) != want || !allDigits(number) {
		return TicketCheckResult{}, fmt.Errorf("%w: ticket number must be %d digits", ErrInvalidInput, want)
	}

	date := lottery.DateOf(input.Date)
	draws, err := s.reader.ListCompletedDraws(ctx, date, region)
	if err != nil {
		return TicketCheckResult{}, fmt.Errorf("%w: read draws: %v", ErrDependencyUnavailable, err)
	}

	for _, d := range draws {
		province, ok := findProvince(d, provinceKey)
		if !ok {
			continue
		}
		out := TicketCheckResult{
			Date:         lottery.FormatDate(date),
			Region:       string(region),
			ProvinceCode: province.Code,
			ProvinceName: province.Name,
			Number:       number,
			Wins:         []TicketWin{},
		}
		for _, level := range region.PrizeOrder() {
			for _, prize := range prizesAt(d.Prizes, level) {
				numbers, _ := prize.ResultFor(province.Code)
				for _, n := range numbers {
					if len(n) <= len(number) && strings.HasSuffix(number, n) {
						out.Wins = append(out.Wins, TicketWin{Level: string(level), Label: level.DisplayLabel(), Matched: n})
					}
				}
			}
		}
		out.Winner = len(out.Wins) > 0
		return out, nil
	}
	return TicketCheckResult{}, fmt.Errorf("%w: no completed draw for %s on %s", ErrNotFound, input.Province, lottery.FormatDate(date))
}

// findProvince accepts a province code or its name in any accent form.
func findProvince(d lottery.Draw, key string) (lottery.Province, bool) {
	for _, p := range d.Provinces {
		if p.Code == key || textnorm.Key(p.Name) == key {
			return p, true
		}
	}
	return lottery.Province{}, false
}
