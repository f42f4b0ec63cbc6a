package source

import (
	"time"

	"github.com/riskibarqy/kqsx/internal/domain/lottery"
)

type PayloadKind string

const (
	// KindStructured carries boards already split into rows by a page parser.
	KindStructured PayloadKind = "structured"
	// KindFreeText carries extractor output that still has to be decoded.
	KindFreeText PayloadKind = "free_text"
)

// RawRow is one prize row of a board. Level holds a canonical level when the
// parser knows it; otherwise Label carries whatever the source printed.
type RawRow struct {
	Level   string   `json:"prize_level,omitempty"`
	Label   string   `json:"prize_name,omitempty"`
	Order   int      `json:"prize_order,omitempty"`
	Numbers []string `json:"numbers"`
}

// RawBoard is one province column of a regional results table.
type RawBoard struct {
	Code     string   `json:"code,omitempty"`
	Name     string   `json:"name"`
	Operator string   `json:"operator,omitempty"`
	DrawDate string   `json:"draw_date,omitempty"`
	Sequence int      `json:"sequence,omitempty"`
	Rows     []RawRow `json:"results"`
}

// RawPayload is the tagged union handed from a fetch strategy to the normalizer.
type RawPayload struct {
	Kind      PayloadKind
	Source    string
	Region    lottery.RegionCode
	Date      time.Time
	SourceURL string
	Boards    []RawBoard
	Text      string
	// Ref points at the stored raw body, for error reports.
	Ref string
	// Body is the raw document the payload was extracted from.
	Body []byte
}

type Outcome string

const (
	OutcomeFound        Outcome = "found"
	OutcomeNotAvailable Outcome = "not_available"
	OutcomeRetryable    Outcome = "retryable"
	OutcomeFatal        Outcome = "fatal"
)

// FetchResult is returned instead of an error so callers must handle every outcome.
type FetchResult struct {
	Outcome  Outcome
	Payload  *RawPayload
	Err      error
	Attempts int
	// Rejected holds documents a strategy fetched but could not parse. They
	// are kept so the references in its parse errors resolve.
	Rejected []*RawPayload
}

// WithRejected records documents that failed to parse on the way to r.
func (r FetchResult) WithRejected(payloads ...*RawPayload) FetchResult {
	for _, p := range payloads {
		if p != nil && len(p.Body) > 0 {
			r.Rejected = append(r.Rejected, p)
		}
	}
	return r
}

func Found(p *RawPayload, attempts int) FetchResult {
	return FetchResult{Outcome: OutcomeFound, Payload: p, Attempts: attempts}
}

func NotAvailable(err error, attempts int) FetchResult {
	return FetchResult{Outcome: OutcomeNotAvailable, Err: err, Attempts: attempts}
}

func Retryable(err error, attempts int) FetchResult {
	return FetchResult{Outcome: OutcomeRetryable, Err: err, Attempts: attempts}
}

func Fatal(err error, attempts int) FetchResult {
	return FetchResult{Outcome: OutcomeFatal, Err: err, Attempts: attempts}
}
