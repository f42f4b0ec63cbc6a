package lottery

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	CategoryRegional = "regional"
	DefaultCurrency  = "VND"
	DefaultSequence  = 1
	DateLayout       = "2006-01-02"
)

type DrawStatus string

const (
	DrawStatusScheduled  DrawStatus = "scheduled"
	DrawStatusInProgress DrawStatus = "in_progress"
	DrawStatusCompleted  DrawStatus = "completed"
	DrawStatusCancelled  DrawStatus = "cancelled"
	DrawStatusVoid       DrawStatus = "void"
)

func (s DrawStatus) Terminal() bool {
	switch s {
	case DrawStatusCompleted, DrawStatusCancelled, DrawStatusVoid:
		return true
	default:
		return false
	}
}

func (s DrawStatus) rank() int {
	switch s {
	case DrawStatusScheduled:
		return 0
	case DrawStatusInProgress:
		return 1
	default:
		return 2
	}
}

// CanTransition reports whether a stored status may move to next. Status only
// moves forward; a terminal status stays where it is.
func (s DrawStatus) CanTransition(next DrawStatus) bool {
	if s == next {
		return true
	}
	if s.Terminal() {
		return false
	}
	return next.rank() >= s.rank()
}

// Game is one regional lottery product, e.g. xs_mn.
type Game struct {
	Code             string
	Name             string
	Category         string
	Operator         string
	Region           RegionCode
	NumbersPerTicket int
	NumberPool       int
	DrawTime         string
	Timezone         string
}

// RegionalGame derives the regional game for code.
func RegionalGame(code RegionCode) Game {
	info := code.Info()
	return Game{
		Code:             "xs_" + string(code),
		Name:             "XS " + info.Name,
		Category:         CategoryRegional,
		Operator:         "XSKT " + info.Name,
		Region:           code,
		NumbersPerTicket: info.TicketLen,
		NumberPool:       10,
		DrawTime:         info.DrawTime,
		Timezone:         Timezone,
	}
}

type Province struct {
	Code     string
	Name     string
	Operator string
	Region   RegionCode
}

// GameCode is the board code shown to readers, e.g. xs_mn_tp_hcm.
func (p Province) GameCode() string {
	return fmt.Sprintf("xs_%s_%s", p.Region, p.Code)
}

// GameName is the board name shown to readers, e.g. "XS Mien Nam - Ben Tre".
func (p Province) GameName() string {
	return fmt.Sprintf("XS %s - %s", p.Region.Info().Name, p.Name)
}

type Result struct {
	ProvinceCode string
	Numbers      []string
}

type Prize struct {
	Level          PrizeLevel
	Order          int
	Name           string
	RewardAmount   decimal.Decimal
	RewardCurrency string
	WinnerCount    int
	Results        []Result
}

// ResultFor returns the numbers recorded for a province, if any.
func (p Prize) ResultFor(provinceCode string) ([]string, bool) {
	for _, r := range p.Results {
		if r.ProvinceCode == provinceCode {
			return r.Numbers, true
		}
	}
	return nil, false
}

// RawFeed is the provenance stored alongside a draw.
type RawFeed struct {
	ImportSource  string   `json:"import_source"`
	ImportedVia   string   `json:"imported_via"`
	ProvinceCodes []string `json:"province_codes"`
	DrawDate      string   `json:"draw_date"`
	PayloadRef    string   `json:"payload_ref,omitempty"`
}

type Draw struct {
	ID        int64
	Game      Game
	Date      time.Time
	Sequence  int
	Status    DrawStatus
	SourceURL string
	RawFeed   RawFeed
	Provinces []Province
	Prizes    []Prize
}

type DrawKey struct {
	GameCode string
	Date     string
	Sequence int
}

func (k DrawKey) String() string {
	return fmt.Sprintf("%s:%s:%d", k.GameCode, k.Date, k.Sequence)
}

func (d Draw) Key() DrawKey {
	return DrawKey{GameCode: d.Game.Code, Date: FormatDate(d.Date), Sequence: d.Sequence}
}

func (d Draw) Province(code string) (Province, bool) {
	for _, p := range d.Provinces {
		if p.Code == code {
			return p, true
		}
	}
	return Province{}, false
}

// ResultCount is the number of (prize, province) result rows in the draw.
func (d Draw) ResultCount() int {
	n := 0
	for _, p := range d.Prizes {
		n += len(p.Results)
	}
	return n
}

// DateOf truncates t to its calendar date in UTC so dates compare by value.
func DateOf(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must be YYYY-MM-DD", raw)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Today is the current calendar date in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc != nil {
		now = now.In(loc)
	}
	return DateOf(now)
}
