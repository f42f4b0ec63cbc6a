package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	"github.com/riskibarqy/kqsx/internal/domain/source"
)

func day(raw string) time.Time {
	t, err := lottery.ParseDate(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// testBoard builds a complete board for region whose numbers derive from seed.
func testBoard(region lottery.RegionCode, name string, seed int) source.RawBoard {
	board := source.RawBoard{Name: name}
	for i, level := range region.PrizeOrder() {
		digits, _ := region.DigitCount(level)
		mod := 1
		for k := 0; k < digits; k++ {
			mod *= 10
		}
		count, _ := region.NumberCount(level)
		row := source.RawRow{Level: string(level)}
		for j := 0; j < count; j++ {
			row.Numbers = append(row.Numbers, fmt.Sprintf("%0*d", digits, (seed*7919+i*131+j*37)%mod))
		}
		board.Rows = append(board.Rows, row)
	}
	return board
}

func structuredPayload(region lottery.RegionCode, date time.Time, names ...string) *source.RawPayload {
	p := &source.RawPayload{
		Kind:   source.KindStructured,
		Source: "minhchinh",
		Region: region,
		Date:   date,
		Body:   []byte("<html>" + string(region) + lottery.FormatDate(date) + "</html>"),
		Ref:    "minhchinh:abc123",
	}
	for i, name := range names {
		p.Boards = append(p.Boards, testBoard(region, name, i+1))
	}
	return p
}

func defaultProvinces(region lottery.RegionCode) []string {
	switch region {
	case lottery.RegionNorth:
		return []string{"Hà Nội"}
	case lottery.RegionCentral:
		return []string{"Đà Nẵng", "Khánh Hòa"}
	default:
		return []string{"TP. HCM", "Đồng Tháp", "Cà Mau"}
	}
}

// fetcherFunc adapts a function to source.Fetcher and records call order.
type fetcherFunc struct {
	mu    sync.Mutex
	calls []string
	fn    func(region lottery.RegionCode, date time.Time) source.FetchResult
}

func (f *fetcherFunc) Fetch(_ context.Context, region lottery.RegionCode, date time.Time) source.FetchResult {
	f.mu.Lock()
	f.calls = append(f.calls, fmt.Sprintf("%s/%s", lottery.FormatDate(date), region))
	f.mu.Unlock()
	return f.fn(region, date)
}

func (f *fetcherFunc) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.calls...)
}

func alwaysFound() *fetcherFunc {
	return &fetcherFunc{fn: func(region lottery.RegionCode, date time.Time) source.FetchResult {
		return source.Found(structuredPayload(region, date, defaultProvinces(region)...), 1)
	}}
}

func malformed(p *source.RawPayload) *source.RawPayload {
	p.Boards[0].Rows[0].Numbers = []string{"xx"}
	return p
}
