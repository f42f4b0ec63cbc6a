package lottery

type PrizeLevel string

const (
	PrizeEighth      PrizeLevel = "eighth"
	PrizeSeventh     PrizeLevel = "seventh"
	PrizeSixth       PrizeLevel = "sixth"
	PrizeFifth       PrizeLevel = "fifth"
	PrizeFourth      PrizeLevel = "fourth"
	PrizeThird       PrizeLevel = "third"
	PrizeSecond      PrizeLevel = "second"
	PrizeFirst       PrizeLevel = "first"
	PrizeSpecial     PrizeLevel = "special"
	PrizeConsolation PrizeLevel = "consolation"
	PrizeJackpot     PrizeLevel = "jackpot"
	PrizeOther       PrizeLevel = "other"
)

type prizeNames struct {
	ascii   string
	display string
	class   string
}

var prizeTable = map[PrizeLevel]prizeNames{
	PrizeEighth:      {"Giai tam", "Giải 8", "ten_giai_tam"},
	PrizeSeventh:     {"Giai bay", "Giải 7", "ten_giai_bay"},
	PrizeSixth:       {"Giai sau", "Giải 6", "ten_giai_sau"},
	PrizeFifth:       {"Giai nam", "Giải 5", "ten_giai_nam"},
	PrizeFourth:      {"Giai tu", "Giải 4", "ten_giai_tu"},
	PrizeThird:       {"Giai ba", "Giải 3", "ten_giai_ba"},
	PrizeSecond:      {"Giai nhi", "Giải 2", "ten_giai_nhi"},
	PrizeFirst:       {"Giai nhat", "Giải 1", "ten_giai_nhat"},
	PrizeSpecial:     {"Giai dac biet", "Giải Đặc Biệt", "ten_giai_dac_biet"},
	PrizeConsolation: {"Giai khuyen khich", "Giải Khuyến Khích", ""},
	PrizeJackpot:     {"Giai jackpot", "Giải Jackpot", ""},
	PrizeOther:       {"Giai khac", "Giải Khác", ""},
}

func (l PrizeLevel) Valid() bool {
	_, ok := prizeTable[l]
	return ok
}

// Name is the stored prize name, e.g. "Giai dac biet".
func (l PrizeLevel) Name() string {
	if n, ok := prizeTable[l]; ok {
		return n.ascii
	}
	return string(l)
}

// DisplayLabel is the label used in rendered summaries, e.g. "Giải Đặc Biệt".
func (l PrizeLevel) DisplayLabel() string {
	if n, ok := prizeTable[l]; ok {
		return n.display
	}
	return string(l)
}

// PageClass is the css class the results page puts on the tier's label cell.
func (l PrizeLevel) PageClass() string {
	return prizeTable[l].class
}

// PrizeLevels lists every level with a known name.
func PrizeLevels() []PrizeLevel {
	return []PrizeLevel{
		PrizeEighth, PrizeSeventh, PrizeSixth, PrizeFifth, PrizeFourth, PrizeThird,
		PrizeSecond, PrizeFirst, PrizeSpecial, PrizeConsolation, PrizeJackpot, PrizeOther,
	}
}
