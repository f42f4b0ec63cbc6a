package usecase

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	"github.com/riskibarqy/kqsx/internal/domain/source"
)

func TestNormalizer_IsDeterministic(t *testing.T) {
	t.Parallel()

	n := NewNormalizer("", nil)
	payload := structuredPayload(lottery.RegionSouth, day("2024-10-03"), "Đồng Nai", "Cần Thơ", "Sóc Trăng")

	first, err := n.Normalize(*payload)
	require.NoError(t, err)
	second, err := n.Normalize(*payload)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNormalizer_SplitsProvincesIntoOneDraw(t *testing.T) {
	t.Parallel()

	n := NewNormalizer("https://kqxs.example.vn/kqxs/", nil)
	draw, err := n.Normalize(*structuredPayload(lottery.RegionSouth, day("2024-10-03"), "Đồng Nai", "Cần Thơ", "Sóc Trăng"))
	require.NoError(t, err)

	assert.Equal(t, "xs_mn", draw.Game.Code)
	assert.Equal(t, lottery.DrawStatusCompleted, draw.Status)
	assert.Equal(t, "https://kqxs.example.vn/kqxs/2024-10-03", draw.SourceURL)
	require.Len(t, draw.Provinces, 3)
	assert.Equal(t, []string{"can_tho", "dong_nai", "soc_trang"}, draw.RawFeed.ProvinceCodes)
	assert.Equal(t, "Can Tho", draw.Provinces[0].Name)

	require.Len(t, draw.Prizes, 9)
	assert.Equal(t, lottery.PrizeEighth, draw.Prizes[0].Level)
	assert.Equal(t, lottery.PrizeSpecial, draw.Prizes[8].Level)
	for _, prize := range draw.Prizes {
		assert.Len(t, prize.Results, 3, "prize %s", prize.Level)
		assert.True(t, prize.RewardAmount.IsZero())
	}
	assert.Equal(t, 27, draw.ResultCount())
}

func TestNormalizer_AppliesProvinceOverrides(t *testing.T) {
	t.Parallel()

	draw, err := NewNormalizer("", nil).Normalize(*structuredPayload(lottery.RegionSouth, day("2024-10-03"), "TP HCM"))
	require.NoError(t, err)
	assert.Equal(t, "tp_hcm", draw.Provinces[0].Code)
	assert.Equal(t, "TP. Ho Chi Minh", draw.Provinces[0].Name)
	assert.Equal(t, "XSKT TP.HCM", draw.Provinces[0].Operator)
}

func TestNormalizer_RejectsMalformedNumbers(t *testing.T) {
	t.Parallel()

	payload := malformed(structuredPayload(lottery.RegionCentral, day("2024-10-02"), "Đà Nẵng"))
	_, err := NewNormalizer("", nil).Normalize(*payload)
	if !errors.Is(err, lottery.ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
	var pe *lottery.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "boards[0].rows[eighth].numbers[0]", pe.Field)
	assert.Equal(t, "minhchinh:abc123", pe.PayloadRef)
}

func TestNormalizer_RejectsMissingTier(t *testing.T) {
	t.Parallel()

	payload := structuredPayload(lottery.RegionNorth, day("2024-10-02"), "Hà Nội")
	payload.Boards[0].Rows = payload.Boards[0].Rows[1:]
	_, err := NewNormalizer("", nil).Normalize(*payload)

	var pe *lottery.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "boards[0].rows", pe.Field)
	assert.Contains(t, pe.Reason, "special")
}

func TestNormalizer_RejectsWrongDate(t *testing.T) {
	t.Parallel()

	payload := structuredPayload(lottery.RegionNorth, day("2024-10-02"), "Hà Nội")
	payload.Boards[0].DrawDate = "2024-10-01"
	_, err := NewNormalizer("", nil).Normalize(*payload)
	assert.ErrorIs(t, err, lottery.ErrParse)
}

func TestNormalizer_EmptyTierMarksDrawInProgress(t *testing.T) {
	t.Parallel()

	payload := structuredPayload(lottery.RegionNorth, day("2024-10-02"), "Hà Nội")
	payload.Boards[0].Rows[0].Numbers = []string{" "}
	draw, err := NewNormalizer("", nil).Normalize(*payload)
	require.NoError(t, err)
	assert.Equal(t, lottery.DrawStatusInProgress, draw.Status)
	assert.Empty(t, draw.Prizes[0].Results)
}

func TestNormalizer_ShortTierMarksDrawInProgress(t *testing.T) {
	t.Parallel()

	payload := structuredPayload(lottery.RegionNorth, day("2024-10-02"), "Hà Nội")
	third := payload.Boards[0].Rows[3]
	require.Equal(t, string(lottery.PrizeThird), third.Level)
	require.Len(t, third.Numbers, 6)
	payload.Boards[0].Rows[3].Numbers = third.Numbers[:3]

	draw, err := NewNormalizer("", nil).Normalize(*payload)
	require.NoError(t, err)
	assert.Equal(t, lottery.DrawStatusInProgress, draw.Status)
	got, ok := draw.Prizes[3].ResultFor("ha_noi")
	require.True(t, ok)
	assert.Len(t, got, 3)
}

func TestNormalizer_RejectsExtraNumbers(t *testing.T) {
	t.Parallel()

	payload := structuredPayload(lottery.RegionSouth, day("2024-10-03"), "Cần Thơ")
	special := &payload.Boards[0].Rows[8]
	require.Equal(t, string(lottery.PrizeSpecial), special.Level)
	special.Numbers = append(special.Numbers, "000000")

	_, err := NewNormalizer("", nil).Normalize(*payload)
	var pe *lottery.ParseError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, "boards[0].rows[special].numbers", pe.Field)
}

func TestNormalizer_DecodesWrappedFreeText(t *testing.T) {
	t.Parallel()

	text := `{"result": [{"name": "Đà Nẵng", "results": [
		{"prize_name": "Giải 8", "numbers": ["12"]},
		{"prize_name": "Giải 7", "numbers": ["345"]},
		{"prize_name": "Giải 6", "numbers": ["1234", "5678", "9012"]},
		{"prize_name": "Giải 5", "numbers": ["3456"]},
		{"prize_name": "Giải 4", "numbers": ["12345", "23456"]},
		{"prize_name": "Giải 3", "numbers": ["34567", "45678"]},
		{"prize_name": "Giải 2", "numbers": ["56789"]},
		{"prize_name": "Giải 1", "numbers": ["67890"]},
		{"prize_name": "Giải Đặc Biệt", "numbers": ["123456"]}
	]}]}`
	draw, err := NewNormalizer("", nil).Normalize(source.RawPayload{
		Kind:   source.KindFreeText,
		Source: "ollama",
		Region: lottery.RegionCentral,
		Date:   day("2024-10-02"),
		Text:   text,
	})
	require.NoError(t, err)
	assert.Equal(t, "ollama", draw.RawFeed.ImportSource)
	assert.Equal(t, lottery.DrawStatusInProgress, draw.Status, "the fourth tier lists 2 of 7 numbers")
	numbers, ok := draw.Prizes[8].ResultFor("da_nang")
	require.True(t, ok)
	assert.Equal(t, []string{"123456"}, numbers)
}

func TestNormalizer_RejectsNonJSONFreeText(t *testing.T) {
	t.Parallel()

	_, err := NewNormalizer("", nil).Normalize(source.RawPayload{
		Kind:   source.KindFreeText,
		Region: lottery.RegionCentral,
		Date:   day("2024-10-02"),
		Text:   "Sorry, I cannot read this page.",
	})
	assert.ErrorIs(t, err, lottery.ErrParse)
}

func TestResolvePrizeLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]lottery.PrizeLevel{
		"special":       lottery.PrizeSpecial,
		"Giải Đặc Biệt": lottery.PrizeSpecial,
		"giai_db":       lottery.PrizeSpecial,
		"ten_giai_bay":  lottery.PrizeSeventh,
		"Giai nhat":     lottery.PrizeFirst,
		"Giải 8":        lottery.PrizeEighth,
	}
	for raw, want := range cases {
		got, ok := ResolvePrizeLevel(raw)
		if !ok || got != want {
			t.Fatalf("ResolvePrizeLevel(%q) = %s, %v; want %s", raw, got, ok, want)
		}
	}
	if _, ok := ResolvePrizeLevel("giải an ủi"); ok {
		t.Fatalf("expected unknown label to be rejected")
	}
}
