package lottery

import "time"

type WriteAction string

const (
	ActionInserted  WriteAction = "inserted"
	ActionUpdated   WriteAction = "updated"
	ActionUnchanged WriteAction = "unchanged"
	ActionCorrected WriteAction = "corrected"
)

const (
	ActorRangeRunner   = "range-runner"
	ActorSummaryReader = "summary-reader"
	ActorWatchdog      = "watchdog"
)

// WriteMeta identifies who asked for a write; it ends up in the audit log.
type WriteMeta struct {
	RunID string
	Actor string
}

// Correction records a result whose numbers changed between ingestions.
type Correction struct {
	Prize    PrizeLevel `json:"prize_level"`
	Order    int        `json:"prize_order"`
	Province string     `json:"province_code"`
	Previous []string   `json:"previous"`
	Current  []string   `json:"current"`
}

type WriteResult struct {
	DrawID           int64
	Action           WriteAction
	Status           DrawStatus
	PrizesUpserted   int
	ResultsInserted  int
	ResultsUnchanged int
	Corrections      []Correction
}

// AuditRecord is one append-only audit log row.
type AuditRecord struct {
	ID        string
	RunID     string
	Actor     string
	Entity    string
	EntityKey string
	Action    WriteAction
	Detail    AuditDetail
	CreatedAt time.Time
}

type AuditDetail struct {
	Status           DrawStatus   `json:"status"`
	SourceURL        string       `json:"source_url,omitempty"`
	PayloadRef       string       `json:"payload_ref,omitempty"`
	PrizesUpserted   int          `json:"prizes_upserted"`
	ResultsInserted  int          `json:"results_inserted"`
	ResultsUnchanged int          `json:"results_unchanged"`
	Corrections      []Correction `json:"corrections,omitempty"`
	SkippedReason    string       `json:"skipped_reason,omitempty"`
}

// NewAuditRecord builds the draw audit row from a finished write.
func NewAuditRecord(id string, draw Draw, meta WriteMeta, res WriteResult, now time.Time) AuditRecord {
	action := res.Action
	if len(res.Corrections) > 0 {
		action = ActionCorrected
	}
	detail := AuditDetail{
		Status:           res.Status,
		SourceURL:        draw.SourceURL,
		PayloadRef:       draw.RawFeed.PayloadRef,
		PrizesUpserted:   res.PrizesUpserted,
		ResultsInserted:  res.ResultsInserted,
		ResultsUnchanged: res.ResultsUnchanged,
		Corrections:      res.Corrections,
	}
	if res.Action == ActionUnchanged && res.Status != draw.Status {
		detail.SkippedReason = "stored draw is " + string(res.Status)
	}
	return AuditRecord{
		ID:        id,
		RunID:     meta.RunID,
		Actor:     meta.Actor,
		Entity:    "draw",
		EntityKey: draw.Key().String(),
		Action:    action,
		Detail:    detail,
		CreatedAt: now,
	}
}
