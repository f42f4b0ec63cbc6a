package usecase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"

	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	"github.com/riskibarqy/kqsx/internal/domain/source"
	"github.com/riskibarqy/kqsx/internal/platform/textnorm"
)

// ProvinceOverride replaces the name and operator scraped for a province.
type ProvinceOverride struct {
	Name     string
	Operator string
}

func DefaultProvinceOverrides() map[lottery.RegionCode]map[string]ProvinceOverride {
	return map[lottery.RegionCode]map[string]ProvinceOverride{
		lottery.RegionSouth: {
			"tp_hcm": {Name: "TP. Ho Chi Minh", Operator: "XSKT TP.HCM"},
		},
	}
}

const defaultCanonicalBaseURL = "https://kqxs.pmsa.com.vn/kqxs"

// Normalizer turns a raw payload into one canonical Draw. It is pure: the
// same payload always yields the same Draw.
type Normalizer struct {
	canonicalBaseURL string
	overrides        map[lottery.RegionCode]map[string]ProvinceOverride
}

func NewNormalizer(canonicalBaseURL string, overrides map[lottery.RegionCode]map[string]ProvinceOverride) *Normalizer {
	canonicalBaseURL = strings.TrimRight(strings.TrimSpace(canonicalBaseURL), "/")
	if canonicalBaseURL == "" {
		canonicalBaseURL = defaultCanonicalBaseURL
	}
	if overrides == nil {
		overrides = DefaultProvinceOverrides()
	}
	return &Normalizer{canonicalBaseURL: canonicalBaseURL, overrides: overrides}
}

// CanonicalURL is the stable public link stored on a draw.
func (n *Normalizer) CanonicalURL(date string) string {
	return n.canonicalBaseURL + "/" + date
}

func (n *Normalizer) Normalize(p source.RawPayload) (lottery.Draw, error) {
	draw, err := n.normalize(p)
	if err != nil {
		if pe, ok := err.(*lottery.ParseError); ok && p.Ref != "" {
			return lottery.Draw{}, pe.WithRef(p.Ref)
		}
		return lottery.Draw{}, err
	}
	return draw, nil
}

func (n *Normalizer) normalize(p source.RawPayload) (lottery.Draw, error) {
	if !p.Region.Valid() {
		return lottery.Draw{}, lottery.NewParseError("region", "unknown region %q", p.Region)
	}
	if p.Date.IsZero() {
		return lottery.Draw{}, lottery.NewParseError("date", "draw date is required")
	}
	date := lottery.FormatDate(p.Date)

	var boards []source.RawBoard
	switch p.Kind {
	case source.KindStructured:
		boards = p.Boards
	case source.KindFreeText:
		decoded, err := decodeFreeText(p.Text)
		if err != nil {
			return lottery.Draw{}, err
		}
		boards = decoded
	default:
		return lottery.Draw{}, lottery.NewParseError("kind", "unsupported payload kind %q", p.Kind)
	}
	if len(boards) == 0 {
		return lottery.Draw{}, lottery.NewParseError("boards", "payload has no boards")
	}

	layout := p.Region.PrizeOrder()
	sequence := 0
	partial := false
	provinces := make([]lottery.Province, 0, len(boards))
	numbersByLevel := make(map[lottery.PrizeLevel]map[string][]string, len(layout))
	seen := make(map[string]int, len(boards))

	for i, b := range boards {
		field := fmt.Sprintf("boards[%d]", i)

		province, err := n.province(p.Region, b, field)
		if err != nil {
			return lottery.Draw{}, err
		}
		if prev, dup := seen[province.Code]; dup {
			return lottery.Draw{}, lottery.NewParseError(field+".code", "province %q repeats boards[%d]", province.Code, prev)
		}
		seen[province.Code] = i

		if d := strings.TrimSpace(b.DrawDate); d != "" && d != date {
			return lottery.Draw{}, lottery.NewParseError(field+".draw_date", "got %s, requested %s", d, date)
		}
		seq := b.Sequence
		if seq <= 0 {
			seq = lottery.DefaultSequence
		}
		if sequence == 0 {
			sequence = seq
		} else if seq != sequence {
			return lottery.Draw{}, lottery.NewParseError(field+".sequence", "got %d, other boards use %d", seq, sequence)
		}

		rows, boardPartial, err := boardRows(p.Region, b.Rows, field)
		if err != nil {
			return lottery.Draw{}, err
		}
		partial = partial || boardPartial
		for level, nums := range rows {
			if numbersByLevel[level] == nil {
				numbersByLevel[level] = make(map[string][]string, len(boards))
			}
			numbersByLevel[level][province.Code] = nums
		}
		provinces = append(provinces, province)
	}

	sort.Slice(provinces, func(i, j int) bool { return provinces[i].Code < provinces[j].Code })
	codes := make([]string, 0, len(provinces))
	for _, pr := range provinces {
		codes = append(codes, pr.Code)
	}

	prizes := make([]lottery.Prize, 0, len(layout))
	for _, level := range layout {
		prize := lottery.Prize{
			Level:          level,
			Order:          1,
			Name:           level.Name(),
			RewardAmount:   decimal.Zero,
			RewardCurrency: lottery.DefaultCurrency,
		}
		for _, code := range codes {
			nums := numbersByLevel[level][code]
			if len(nums) == 0 {
				continue
			}
			prize.Results = append(prize.Results, lottery.Result{ProvinceCode: code, Numbers: nums})
		}
		prizes = append(prizes, prize)
	}

	status := lottery.DrawStatusCompleted
	if partial {
		status = lottery.DrawStatusInProgress
	}

	importSource := p.Source
	if importSource == "" {
		importSource = string(p.Kind)
	}

	return lottery.Draw{
		Game:      lottery.RegionalGame(p.Region),
		Date:      lottery.DateOf(p.Date),
		Sequence:  sequence,
		Status:    status,
		SourceURL: n.CanonicalURL(date),
		RawFeed: lottery.RawFeed{
			ImportSource:  importSource,
			ImportedVia:   "automation",
			ProvinceCodes: codes,
			DrawDate:      date,
			PayloadRef:    p.Ref,
		},
		Provinces: provinces,
		Prizes:    prizes,
	}, nil
}

func (n *Normalizer) province(region lottery.RegionCode, b source.RawBoard, field string) (lottery.Province, error) {
	name := strings.TrimSpace(b.Name)
	code := strings.TrimSpace(b.Code)
	if name == "" && code == "" {
		return lottery.Province{}, lottery.NewParseError(field+".name", "province name is required")
	}
	if code == "" {
		code = textnorm.Slug(name, "_")
	} else {
		code = textnorm.Slug(code, "_")
	}
	if name == "" {
		name = code
	}
	name = textnorm.ASCII(name)

	operator := strings.TrimSpace(b.Operator)
	if o, ok := n.overrides[region][code]; ok {
		if o.Name != "" {
			name = o.Name
		}
		if o.Operator != "" {
			operator = o.Operator
		}
	}
	if operator == "" {
		operator = "XSKT " + name
	}
	return lottery.Province{Code: code, Name: name, Operator: operator, Region: region}, nil
}

// boardRows validates one board against the region's tier layout. partial is
// true when some tier is still missing numbers.
func boardRows(region lottery.RegionCode, rows []source.RawRow, field string) (map[lottery.PrizeLevel][]string, bool, error) {
	allowed := make(map[lottery.PrizeLevel]bool, 9)
	for _, level := range region.PrizeOrder() {
		allowed[level] = true
	}

	out := make(map[lottery.PrizeLevel][]string, len(rows))
	for j, row := range rows {
		rowField := fmt.Sprintf("%s.rows[%d]", field, j)
		level, ok := ResolvePrizeLevel(row.Level, row.Label)
		if !ok {
			return nil, false, lottery.NewParseError(rowField+".prize_level", "unknown prize %q", firstNonEmpty(row.Level, row.Label))
		}
		if !allowed[level] {
			return nil, false, lottery.NewParseError(rowField+".prize_level", "%s is not drawn in %s", level, region)
		}
		if _, dup := out[level]; dup {
			return nil, false, lottery.NewParseError(rowField+".prize_level", "duplicate %s row", level)
		}

		want, _ := region.DigitCount(level)
		nums := make([]string, 0, len(row.Numbers))
		for k, raw := range row.Numbers {
			num := strings.TrimSpace(raw)
			numField := fmt.Sprintf("%s.rows[%s].numbers[%d]", field, level, k)
			if num == "" {
				continue
			}
			if !allDigits(num) {
				return nil, false, lottery.NewParseError(numField, "non-digit token %q", num)
			}
			if len(num) != want {
				return nil, false, lottery.NewParseError(numField, "%q has %d digits, want %d", num, len(num), want)
			}
			nums = append(nums, num)
		}
		if count, _ := region.NumberCount(level); len(nums) > count {
			return nil, false, lottery.NewParseError(fmt.Sprintf("%s.rows[%s].numbers", field, level), "%d numbers, %s draws %d", len(nums), level, count)
		}
		out[level] = nums
	}

	var missing []string
	partial := false
	for _, level := range region.PrizeOrder() {
		nums, ok := out[level]
		if !ok {
			missing = append(missing, string(level))
			continue
		}
		if count, _ := region.NumberCount(level); len(nums) < count {
			partial = true
		}
	}
	if len(missing) > 0 {
		return nil, false, lottery.NewParseError(field+".rows", "missing prize rows: %s", strings.Join(missing, ", "))
	}
	return out, partial, nil
}

var prizeLookup = func() map[string]lottery.PrizeLevel {
	m := make(map[string]lottery.PrizeLevel, 48)
	for _, level := range lottery.PrizeLevels() {
		m[string(level)] = level
		m[textnorm.Key(level.Name())] = level
		m[textnorm.Key(level.DisplayLabel())] = level
		if class := level.PageClass(); class != "" {
			m[class] = level
		}
	}
	m["giai_db"] = lottery.PrizeSpecial
	m["db"] = lottery.PrizeSpecial
	return m
}()

// ResolvePrizeLevel maps a canonical level, stored name, display label or
// page css class to a prize level.
func ResolvePrizeLevel(candidates ...string) (lottery.PrizeLevel, bool) {
	for _, c := range candidates {
		if strings.TrimSpace(c) == "" {
			continue
		}
		if level, ok := prizeLookup[textnorm.Key(c)]; ok {
			return level, true
		}
	}
	return "", false
}

// decodeFreeText accepts a JSON array of boards, an object wrapping it under
// result, content or data, or a JSON string holding either.
func decodeFreeText(text string) ([]source.RawBoard, error) {
	if strings.TrimSpace(text) == "" {
		return nil, lottery.NewParseError("text", "empty extractor output")
	}

	var root any
	if err := sonic.UnmarshalString(text, &root); err != nil {
		return nil, lottery.NewParseError("text", "not valid JSON: %v", err)
	}

	for depth := 0; depth < 4; depth++ {
		switch v := root.(type) {
		case string:
			var inner any
			if err := sonic.UnmarshalString(v, &inner); err != nil {
				return nil, lottery.NewParseError("text", "nested string is not valid JSON")
			}
			root = inner
			continue
		case map[string]any:
			unwrapped := false
			for _, key := range []string{"result", "content", "data"} {
				if inner, ok := v[key]; ok && inner != nil {
					root = inner
					unwrapped = true
					break
				}
			}
			if !unwrapped {
				return nil, lottery.NewParseError("text", "object has no result, content or data array")
			}
			continue
		case []any:
			raw, err := sonic.Marshal(v)
			if err != nil {
				return nil, lottery.NewParseError("text", "re-encode boards: %v", err)
			}
			var boards []source.RawBoard
			if err := sonic.Unmarshal(raw, &boards); err != nil {
				return nil, lottery.NewParseError("text", "boards do not match the expected shape: %v", err)
			}
			return boards, nil
		default:
			return nil, lottery.NewParseError("text", "expected a list of boards, got %T", v)
		}
	}
	return nil, lottery.NewParseError("text", "payload nested too deeply")
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
