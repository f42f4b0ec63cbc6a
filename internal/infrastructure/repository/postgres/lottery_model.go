package postgres

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type regionInsertModel struct {
	Code string `db:"code"`
	Slug string `db:"slug"`
	Name string `db:"name"`
}

type provinceInsertModel struct {
	RegionID int64  `db:"region_id"`
	Code     string `db:"code"`
	Name     string `db:"name"`
	Operator string `db:"operator"`
}

type gameInsertModel struct {
	Code             string `db:"code"`
	Name             string `db:"name"`
	Category         string `db:"category"`
	Operator         string `db:"operator"`
	RegionID         int64  `db:"region_id"`
	NumbersPerTicket int    `db:"numbers_per_ticket"`
	NumberPool       int    `db:"number_pool"`
	Schedule         string `db:"schedule"`
}

type gameSchedule struct {
	DrawDays []string `json:"draw_days"`
	DrawTime string   `json:"draw_time"`
	Timezone string   `json:"timezone"`
}

type drawInsertModel struct {
	GameID    int64  `db:"game_id"`
	DrawDate  string `db:"draw_date"`
	Sequence  int    `db:"sequence"`
	Status    string `db:"status"`
	SourceURL string `db:"source_url"`
	RawFeed   string `db:"raw_feed"`
}

type prizeInsertModel struct {
	DrawID         int64           `db:"draw_id"`
	PrizeLevel     string          `db:"prize_level"`
	PrizeOrder     int             `db:"prize_order"`
	PrizeName      string          `db:"prize_name"`
	RewardAmount   decimal.Decimal `db:"reward_amount"`
	RewardCurrency string          `db:"reward_currency"`
	WinnerCount    int             `db:"winner_count"`
}

type resultInsertModel struct {
	PrizeID       int64          `db:"prize_id"`
	ProvinceID    int64          `db:"province_id"`
	ResultNumbers pq.StringArray `db:"result_numbers"`
}

type auditInsertModel struct {
	ID        string    `db:"id"`
	RunID     string    `db:"run_id"`
	Actor     string    `db:"actor"`
	Entity    string    `db:"entity"`
	EntityKey string    `db:"entity_key"`
	Action    string    `db:"action"`
	Detail    string    `db:"detail"`
	CreatedAt time.Time `db:"created_at"`
}

type drawLockRow struct {
	ID     int64  `db:"id"`
	Status string `db:"status"`
}

type drawUpsertRow struct {
	ID       int64 `db:"id"`
	Inserted bool  `db:"inserted"`
}

type activeResultRow struct {
	ID            int64          `db:"id"`
	ResultNumbers pq.StringArray `db:"result_numbers"`
}

type drawTableModel struct {
	ID               int64     `db:"id"`
	GameCode         string    `db:"game_code"`
	GameName         string    `db:"game_name"`
	Category         string    `db:"category"`
	Operator         string    `db:"operator"`
	NumbersPerTicket int       `db:"numbers_per_ticket"`
	NumberPool       int       `db:"number_pool"`
	RegionCode       string    `db:"region_code"`
	DrawDate         time.Time `db:"draw_date"`
	Sequence         int       `db:"sequence"`
	Status           string    `db:"status"`
	SourceURL        string    `db:"source_url"`
	RawFeed          string    `db:"raw_feed"`
}

type prizeTableModel struct {
	ID             int64           `db:"id"`
	DrawID         int64           `db:"draw_id"`
	PrizeLevel     string          `db:"prize_level"`
	PrizeOrder     int             `db:"prize_order"`
	PrizeName      string          `db:"prize_name"`
	RewardAmount   decimal.Decimal `db:"reward_amount"`
	RewardCurrency string          `db:"reward_currency"`
	WinnerCount    int             `db:"winner_count"`
}

type resultTableModel struct {
	PrizeID          int64          `db:"prize_id"`
	ProvinceCode     string         `db:"province_code"`
	ProvinceName     string         `db:"province_name"`
	ProvinceOperator string         `db:"province_operator"`
	ResultNumbers    pq.StringArray `db:"result_numbers"`
}
