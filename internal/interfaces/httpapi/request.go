package httpapi

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	"github.com/riskibarqy/kqsx/internal/usecase"
)

type summaryQuery struct {
	Date   string `query:"date" validate:"omitempty,datetime=2006-01-02"`
	Region string `query:"region" validate:"omitempty,oneof=mn mt mb all"`
}

type ticketQuery struct {
	Date     string `query:"date" validate:"required,datetime=2006-01-02"`
	Region   string `query:"region" validate:"required,oneof=mn mt mb"`
	Province string `query:"province" validate:"required,max=64"`
	Number   string `query:"number" validate:"required,numeric,min=5,max=6"`
}

type frequencyQuery struct {
	Region string `query:"region" validate:"required,oneof=mn mt mb"`
	Limit  int    `query:"limit" validate:"min=1,max=100"`
}

type randomQuery struct {
	MinValue int
	MaxValue int
	Count    int
	Unique   bool
}

const defaultFrequencyLimit = 10

func querySummary(values url.Values) summaryQuery {
	return summaryQuery{
		Date:   strings.TrimSpace(values.Get("date")),
		Region: strings.ToLower(strings.TrimSpace(values.Get("region"))),
	}
}

func queryTicket(values url.Values) ticketQuery {
	return ticketQuery{
		Date:     strings.TrimSpace(values.Get("date")),
		Region:   strings.ToLower(strings.TrimSpace(values.Get("region"))),
		Province: strings.TrimSpace(values.Get("province")),
		Number:   strings.TrimSpace(values.Get("number")),
	}
}

func queryFrequency(values url.Values) (frequencyQuery, error) {
	limit, err := intParam(values, "limit", defaultFrequencyLimit)
	if err != nil {
		return frequencyQuery{}, err
	}
	return frequencyQuery{
		Region: strings.ToLower(strings.TrimSpace(values.Get("region"))),
		Limit:  limit,
	}, nil
}

func queryRandom(values url.Values) (randomQuery, error) {
	minValue, err := intParam(values, "min_value", 0)
	if err != nil {
		return randomQuery{}, err
	}
	maxValue, err := intParam(values, "max_value", usecase.DefaultRandomMax)
	if err != nil {
		return randomQuery{}, err
	}
	count, err := intParam(values, "count", 1)
	if err != nil {
		return randomQuery{}, err
	}
	unique := false
	if raw := strings.TrimSpace(values.Get("unique")); raw != "" {
		unique, err = strconv.ParseBool(raw)
		if err != nil {
			return randomQuery{}, invalidQueryParam("unique", "unique must be true or false")
		}
	}
	return randomQuery{MinValue: minValue, MaxValue: maxValue, Count: count, Unique: unique}, nil
}

func intParam(values url.Values, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidQueryParam(key, "%s must be an integer", key)
	}
	return out, nil
}

// parseOptionalDate returns the zero time for an empty value.
func parseOptionalDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	date, err := lottery.ParseDate(raw)
	if err != nil {
		return time.Time{}, invalidQueryParam("date", "date must be a date in YYYY-MM-DD form")
	}
	return date, nil
}
