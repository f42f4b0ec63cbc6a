package lottery

import (
	"strings"
)

// Timezone is the reference timezone for draw dates and schedules.
const Timezone = "Asia/Ho_Chi_Minh"

type RegionCode string

const (
	RegionNorth   RegionCode = "mb"
	RegionCentral RegionCode = "mt"
	RegionSouth   RegionCode = "mn"
)

// Region describes one of the three regional draw groupings.
type Region struct {
	Code      RegionCode
	Slug      string
	Name      string
	Label     string
	DrawTime  string
	TicketLen int
}

var regionTable = map[RegionCode]Region{
	RegionNorth:   {Code: RegionNorth, Slug: "mien_bac", Name: "Mien Bac", Label: "Miền Bắc", DrawTime: "18:15", TicketLen: 5},
	RegionCentral: {Code: RegionCentral, Slug: "mien_trung", Name: "Mien Trung", Label: "Miền Trung", DrawTime: "17:15", TicketLen: 6},
	RegionSouth:   {Code: RegionSouth, Slug: "mien_nam", Name: "Mien Nam", Label: "Miền Nam", DrawTime: "16:15", TicketLen: 6},
}

// AllRegionsLabel is used when a summary spans every region.
const AllRegionsLabel = "3 Miền"

// RegionCodes returns the ingestion order: north, central, south.
func RegionCodes() []RegionCode {
	return []RegionCode{RegionNorth, RegionCentral, RegionSouth}
}

// DisplayRank orders regions for summaries: south first, north last.
func DisplayRank(code RegionCode) int {
	switch code {
	case RegionSouth:
		return 0
	case RegionCentral:
		return 1
	case RegionNorth:
		return 2
	default:
		return 99
	}
}

func ParseRegion(raw string) (RegionCode, bool) {
	code := RegionCode(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := regionTable[code]
	return code, ok
}

func (c RegionCode) Valid() bool {
	_, ok := regionTable[c]
	return ok
}

func (c RegionCode) Info() Region {
	return regionTable[c]
}

func (c RegionCode) Label() string {
	if r, ok := regionTable[c]; ok {
		return r.Label
	}
	return string(c)
}

// PrizeOrder is the tier layout of the region's board, in display order.
func (c RegionCode) PrizeOrder() []PrizeLevel {
	if c == RegionNorth {
		return []PrizeLevel{
			PrizeSpecial, PrizeFirst, PrizeSecond, PrizeThird,
			PrizeFourth, PrizeFifth, PrizeSixth, PrizeSeventh,
		}
	}
	return []PrizeLevel{
		PrizeEighth, PrizeSeventh, PrizeSixth, PrizeFifth, PrizeFourth,
		PrizeThird, PrizeSecond, PrizeFirst, PrizeSpecial,
	}
}

// DigitCount is the length every winning number of the tier must have.
func (c RegionCode) DigitCount(level PrizeLevel) (int, bool) {
	var table map[PrizeLevel]int
	if c == RegionNorth {
		table = northDigits
	} else {
		table = southDigits
	}
	n, ok := table[level]
	return n, ok
}

// NumberCount is how many winning numbers one province draws for the tier.
func (c RegionCode) NumberCount(level PrizeLevel) (int, bool) {
	table := southCounts
	if c == RegionNorth {
		table = northCounts
	}
	n, ok := table[level]
	return n, ok
}

var northCounts = map[PrizeLevel]int{
	PrizeSpecial: 1, PrizeFirst: 1, PrizeSecond: 2, PrizeThird: 6,
	PrizeFourth: 4, PrizeFifth: 6, PrizeSixth: 3, PrizeSeventh: 4,
}

var southCounts = map[PrizeLevel]int{
	PrizeEighth: 1, PrizeSeventh: 1, PrizeSixth: 3, PrizeFifth: 1,
	PrizeFourth: 7, PrizeThird: 2, PrizeSecond: 1, PrizeFirst: 1, PrizeSpecial: 1,
}

var northDigits = map[PrizeLevel]int{
	PrizeSpecial: 5, PrizeFirst: 5, PrizeSecond: 5, PrizeThird: 5,
	PrizeFourth: 4, PrizeFifth: 4, PrizeSixth: 3, PrizeSeventh: 2,
}

var southDigits = map[PrizeLevel]int{
	PrizeEighth: 2, PrizeSeventh: 3, PrizeSixth: 4, PrizeFifth: 4,
	PrizeFourth: 5, PrizeThird: 5, PrizeSecond: 5, PrizeFirst: 5, PrizeSpecial: 6,
}
