package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sort"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/lib/pq"

	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	"github.com/riskibarqy/kqsx/internal/platform/id"
	qb "github.com/riskibarqy/kqsx/internal/platform/querybuilder"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// LotteryRepository writes draws transactionally and reads completed draws
// with their active results.
type LotteryRepository struct {
	db  *sqlx.DB
	ids id.Generator
	now func() time.Time
}

var _ lottery.Repository = (*LotteryRepository)(nil)

func NewLotteryRepository(db *sqlx.DB, ids id.Generator) *LotteryRepository {
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	return &LotteryRepository{db: db, ids: ids, now: time.Now}
}

func (r *LotteryRepository) UpsertDraw(ctx context.Context, draw lottery.Draw, meta lottery.WriteMeta) (lottery.WriteResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return lottery.WriteResult{}, fmt.Errorf("begin tx upsert draw: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := r.upsertDraw(ctx, tx, draw)
	if err != nil {
		return lottery.WriteResult{}, asWriteConflict(err)
	}

	auditID, err := r.ids.NewID()
	if err != nil {
		return lottery.WriteResult{}, fmt.Errorf("generate audit id: %w", err)
	}
	record := lottery.NewAuditRecord(auditID, draw, meta, res, r.now().UTC())
	if err := insertAudit(ctx, tx, record); err != nil {
		return lottery.WriteResult{}, asWriteConflict(err)
	}

	if err := tx.Commit(); err != nil {
		return lottery.WriteResult{}, asWriteConflict(fmt.Errorf("commit upsert draw tx: %w", err))
	}
	return res, nil
}

func (r *LotteryRepository) upsertDraw(ctx context.Context, tx *sqlx.Tx, draw lottery.Draw) (lottery.WriteResult, error) {
	region := draw.Game.Region.Info()
	regionID, err := upsertReturningID(ctx, tx, "regions", regionInsertModel{
		Code: string(region.Code),
		Slug: region.Slug,
		Name: region.Name,
	}, `ON CONFLICT (code) DO UPDATE SET
    slug = EXCLUDED.slug,
    name = EXCLUDED.name,
    updated_at = NOW()
RETURNING id`)
	if err != nil {
		return lottery.WriteResult{}, fmt.Errorf("upsert region %s: %w", region.Code, err)
	}

	provinceIDs := make(map[string]int64, len(draw.Provinces))
	for _, p := range draw.Provinces {
		pid, err := upsertReturningID(ctx, tx, "provinces", provinceInsertModel{
			RegionID: regionID,
			Code:     p.Code,
			Name:     p.Name,
			Operator: p.Operator,
		}, `ON CONFLICT (region_id, code) DO UPDATE SET
    name = EXCLUDED.name,
    operator = EXCLUDED.operator,
    updated_at = NOW()
RETURNING id`)
		if err != nil {
			return lottery.WriteResult{}, fmt.Errorf("upsert province %s: %w", p.Code, err)
		}
		provinceIDs[p.Code] = pid
	}

	schedule, err := jsonCodec.MarshalToString(gameSchedule{
		DrawDays: []string{"daily"},
		DrawTime: draw.Game.DrawTime,
		Timezone: draw.Game.Timezone,
	})
	if err != nil {
		return lottery.WriteResult{}, fmt.Errorf("encode game schedule: %w", err)
	}
	gameID, err := upsertReturningID(ctx, tx, "lottery_games", gameInsertModel{
		Code:             draw.Game.Code,
		Name:             draw.Game.Name,
		Category:         draw.Game.Category,
		Operator:         draw.Game.Operator,
		RegionID:         regionID,
		NumbersPerTicket: draw.Game.NumbersPerTicket,
		NumberPool:       draw.Game.NumberPool,
		Schedule:         schedule,
	}, `ON CONFLICT (code) DO UPDATE SET
    name = EXCLUDED.name,
    category = EXCLUDED.category,
    operator = EXCLUDED.operator,
    numbers_per_ticket = EXCLUDED.numbers_per_ticket,
    number_pool = EXCLUDED.number_pool,
    schedule = EXCLUDED.schedule,
    updated_at = NOW()
RETURNING id`)
	if err != nil {
		return lottery.WriteResult{}, fmt.Errorf("upsert game %s: %w", draw.Game.Code, err)
	}

	drawDate := lottery.FormatDate(draw.Date)
	lockQuery, lockArgs, err := qb.Select("id", "status").From("draws").
		Where(
			qb.Eq("game_id", gameID),
			qb.Eq("draw_date", drawDate),
			qb.Eq("sequence", draw.Sequence),
		).
		ForUpdate().
		ToSQL()
	if err != nil {
		return lottery.WriteResult{}, fmt.Errorf("build lock draw query: %w", err)
	}
	var locked []drawLockRow
	if err := tx.SelectContext(ctx, &locked, lockQuery, lockArgs...); err != nil {
		return lottery.WriteResult{}, fmt.Errorf("lock draw %s: %w", draw.Key(), err)
	}
	if len(locked) > 0 {
		stored := lottery.DrawStatus(locked[0].Status)
		if !stored.CanTransition(draw.Status) {
			return lottery.WriteResult{DrawID: locked[0].ID, Action: lottery.ActionUnchanged, Status: stored}, nil
		}
	}

	rawFeed, err := jsonCodec.MarshalToString(draw.RawFeed)
	if err != nil {
		return lottery.WriteResult{}, fmt.Errorf("encode raw feed: %w", err)
	}
	drawQuery, drawArgs, err := qb.InsertModel("draws", drawInsertModel{
		GameID:    gameID,
		DrawDate:  drawDate,
		Sequence:  draw.Sequence,
		Status:    string(draw.Status),
		SourceURL: draw.SourceURL,
		RawFeed:   rawFeed,
	}, `ON CONFLICT (game_id, draw_date, sequence) DO UPDATE SET
    status = EXCLUDED.status,
    source_url = EXCLUDED.source_url,
    raw_feed = EXCLUDED.raw_feed,
    updated_at = NOW()
`+drawStatusGuard+`
RETURNING id, (xmax = 0) AS inserted`)
	if err != nil {
		return lottery.WriteResult{}, fmt.Errorf("build upsert draw query: %w", err)
	}
	var row drawUpsertRow
	err = tx.QueryRowxContext(ctx, drawQuery, drawArgs...).StructScan(&row)
	if crerr.Is(err, sql.ErrNoRows) {
		// A concurrent writer created the draw after the lock query and the
		// guard refused to move its status backwards.
		return currentDrawUnchanged(ctx, tx, gameID, drawDate, draw)
	}
	if err != nil {
		return lottery.WriteResult{}, fmt.Errorf("upsert draw %s: %w", draw.Key(), err)
	}

	res := lottery.WriteResult{DrawID: row.ID, Status: draw.Status}
	for _, prize := range draw.Prizes {
		prizeID, err := upsertReturningID(ctx, tx, "draw_prizes", prizeInsertModel{
			DrawID:         row.ID,
			PrizeLevel:     string(prize.Level),
			PrizeOrder:     prize.Order,
			PrizeName:      prize.Name,
			RewardAmount:   prize.RewardAmount,
			RewardCurrency: prize.RewardCurrency,
			WinnerCount:    prize.WinnerCount,
		}, `ON CONFLICT (draw_id, prize_level, prize_order) DO UPDATE SET
    prize_name = EXCLUDED.prize_name,
    reward_amount = EXCLUDED.reward_amount,
    reward_currency = EXCLUDED.reward_currency,
    winner_count = EXCLUDED.winner_count,
    updated_at = NOW()
RETURNING id`)
		if err != nil {
			return lottery.WriteResult{}, fmt.Errorf("upsert prize %s/%d: %w", prize.Level, prize.Order, err)
		}
		res.PrizesUpserted++

		for _, result := range prize.Results {
			provinceID, ok := provinceIDs[result.ProvinceCode]
			if !ok {
				return lottery.WriteResult{}, fmt.Errorf("result references unknown province %q", result.ProvinceCode)
			}
			correction, inserted, err := reconcileResult(ctx, tx, prizeID, provinceID, result.Numbers)
			if err != nil {
				return lottery.WriteResult{}, fmt.Errorf("write result %s/%s: %w", prize.Level, result.ProvinceCode, err)
			}
			switch {
			case correction != nil:
				correction.Prize = prize.Level
				correction.Order = prize.Order
				correction.Province = result.ProvinceCode
				res.Corrections = append(res.Corrections, *correction)
				res.ResultsInserted++
			case inserted:
				res.ResultsInserted++
			default:
				res.ResultsUnchanged++
			}
		}
	}

	switch {
	case row.Inserted:
		res.Action = lottery.ActionInserted
	case res.ResultsInserted > 0 || (len(locked) > 0 && lottery.DrawStatus(locked[0].Status) != draw.Status):
		res.Action = lottery.ActionUpdated
	default:
		res.Action = lottery.ActionUnchanged
	}
	return res, nil
}

// drawStatusGuard mirrors DrawStatus.CanTransition for the conflict update:
// equal statuses pass, terminal statuses never change, and in_progress never
// falls back to scheduled.
const drawStatusGuard = `WHERE draws.status = EXCLUDED.status
    OR (draws.status = 'scheduled' AND EXCLUDED.status <> 'scheduled')
    OR (draws.status = 'in_progress' AND EXCLUDED.status NOT IN ('scheduled', 'in_progress'))`

func currentDrawUnchanged(ctx context.Context, tx *sqlx.Tx, gameID int64, drawDate string, draw lottery.Draw) (lottery.WriteResult, error) {
	query, args, err := qb.Select("id", "status").From("draws").
		Where(
			qb.Eq("game_id", gameID),
			qb.Eq("draw_date", drawDate),
			qb.Eq("sequence", draw.Sequence),
		).
		ToSQL()
	if err != nil {
		return lottery.WriteResult{}, fmt.Errorf("build select draw status query: %w", err)
	}
	var stored drawLockRow
	if err := tx.GetContext(ctx, &stored, query, args...); err != nil {
		return lottery.WriteResult{}, fmt.Errorf("read draw %s after refused update: %w", draw.Key(), err)
	}
	return lottery.WriteResult{DrawID: stored.ID, Action: lottery.ActionUnchanged, Status: lottery.DrawStatus(stored.Status)}, nil
}

// reconcileResult keeps an identical active result, inserts a missing one and
// supersedes a changed one. It returns a correction for the last case.
func reconcileResult(ctx context.Context, tx *sqlx.Tx, prizeID, provinceID int64, numbers []string) (*lottery.Correction, bool, error) {
	query, args, err := qb.Select("id", "result_numbers").From("draw_results").
		Where(
			qb.Eq("prize_id", prizeID),
			qb.Eq("province_id", provinceID),
			qb.IsNull("superseded_at"),
		).
		ForUpdate().
		ToSQL()
	if err != nil {
		return nil, false, fmt.Errorf("build select active result query: %w", err)
	}
	var active []activeResultRow
	if err := tx.SelectContext(ctx, &active, query, args...); err != nil {
		return nil, false, fmt.Errorf("select active result: %w", err)
	}

	var correction *lottery.Correction
	if len(active) > 0 {
		current := active[0]
		if slices.Equal([]string(current.ResultNumbers), numbers) {
			return nil, false, nil
		}
		updateQuery, updateArgs, err := qb.Update("draw_results").
			SetExpr("superseded_at", "NOW()").
			Where(qb.Eq("id", current.ID)).
			ToSQL()
		if err != nil {
			return nil, false, fmt.Errorf("build supersede result query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, updateQuery, updateArgs...); err != nil {
			return nil, false, fmt.Errorf("supersede result: %w", err)
		}
		correction = &lottery.Correction{
			Previous: append([]string{}, current.ResultNumbers...),
			Current:  append([]string{}, numbers...),
		}
	}

	insertQuery, insertArgs, err := qb.InsertModel("draw_results", resultInsertModel{
		PrizeID:       prizeID,
		ProvinceID:    provinceID,
		ResultNumbers: pq.StringArray(numbers),
	}, "")
	if err != nil {
		return nil, false, fmt.Errorf("build insert result query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertQuery, insertArgs...); err != nil {
		return nil, false, fmt.Errorf("insert result: %w", err)
	}
	return correction, true, nil
}

func insertAudit(ctx context.Context, tx *sqlx.Tx, record lottery.AuditRecord) error {
	detail, err := jsonCodec.MarshalToString(record.Detail)
	if err != nil {
		return fmt.Errorf("encode audit detail: %w", err)
	}
	query, args, err := qb.InsertModel("audit_logs", auditInsertModel{
		ID:        record.ID,
		RunID:     record.RunID,
		Actor:     record.Actor,
		Entity:    record.Entity,
		EntityKey: record.EntityKey,
		Action:    string(record.Action),
		Detail:    detail,
		CreatedAt: record.CreatedAt,
	}, "")
	if err != nil {
		return fmt.Errorf("build insert audit query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert audit %s: %w", record.EntityKey, err)
	}
	return nil
}

func upsertReturningID(ctx context.Context, tx *sqlx.Tx, table string, model any, suffix string) (int64, error) {
	query, args, err := qb.InsertModel(table, model, suffix)
	if err != nil {
		return 0, fmt.Errorf("build upsert %s query: %w", table, err)
	}
	var id int64
	if err := tx.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *LotteryRepository) ListCompletedDraws(ctx context.Context, date time.Time, region lottery.RegionCode) ([]lottery.Draw, error) {
	query, args, err := qb.Select(
		"d.id",
		"g.code AS game_code",
		"g.name AS game_name",
		"g.category",
		"g.operator",
		"g.numbers_per_ticket",
		"g.number_pool",
		"rg.code AS region_code",
		"d.draw_date",
		"d.sequence",
		"d.status",
		"d.source_url",
		"d.raw_feed::text AS raw_feed",
	).From("draws d").
		Join("JOIN lottery_games g ON g.id = d.game_id").
		Join("JOIN regions rg ON rg.id = g.region_id").
		Where(
			qb.Eq("rg.code", string(region)),
			qb.Eq("d.draw_date", lottery.FormatDate(date)),
			qb.Eq("d.status", string(lottery.DrawStatusCompleted)),
		).
		OrderBy("d.sequence", "g.code").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select completed draws query: %w", err)
	}

	var rows []drawTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select completed draws: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	drawIDs := make([]any, 0, len(rows))
	for _, row := range rows {
		drawIDs = append(drawIDs, row.ID)
	}

	prizeQuery, prizeArgs, err := qb.Select(
		"id",
		"draw_id",
		"prize_level",
		"prize_order",
		"prize_name",
		"reward_amount",
		"reward_currency",
		"winner_count",
	).From("draw_prizes").
		Where(qb.In("draw_id", drawIDs)).
		OrderBy("draw_id", "prize_order", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select prizes query: %w", err)
	}
	var prizes []prizeTableModel
	if err := r.db.SelectContext(ctx, &prizes, prizeQuery, prizeArgs...); err != nil {
		return nil, fmt.Errorf("select prizes: %w", err)
	}

	resultQuery, resultArgs, err := qb.Select(
		"r.prize_id",
		"pv.code AS province_code",
		"pv.name AS province_name",
		"pv.operator AS province_operator",
		"r.result_numbers",
	).From("draw_results r").
		Join("JOIN draw_prizes p ON p.id = r.prize_id").
		Join("JOIN provinces pv ON pv.id = r.province_id").
		Where(
			qb.In("p.draw_id", drawIDs),
			qb.IsNull("r.superseded_at"),
		).
		OrderBy("r.prize_id", "pv.code").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select results query: %w", err)
	}
	var results []resultTableModel
	if err := r.db.SelectContext(ctx, &results, resultQuery, resultArgs...); err != nil {
		return nil, fmt.Errorf("select results: %w", err)
	}

	return assembleDraws(rows, prizes, results)
}

func assembleDraws(rows []drawTableModel, prizes []prizeTableModel, results []resultTableModel) ([]lottery.Draw, error) {
	resultsByPrize := make(map[int64][]resultTableModel, len(prizes))
	for _, res := range results {
		resultsByPrize[res.PrizeID] = append(resultsByPrize[res.PrizeID], res)
	}
	prizesByDraw := make(map[int64][]prizeTableModel, len(rows))
	for _, p := range prizes {
		prizesByDraw[p.DrawID] = append(prizesByDraw[p.DrawID], p)
	}

	out := make([]lottery.Draw, 0, len(rows))
	for _, row := range rows {
		region := lottery.RegionCode(row.RegionCode)
		info := region.Info()
		draw := lottery.Draw{
			ID: row.ID,
			Game: lottery.Game{
				Code:             row.GameCode,
				Name:             row.GameName,
				Category:         row.Category,
				Operator:         row.Operator,
				Region:           region,
				NumbersPerTicket: row.NumbersPerTicket,
				NumberPool:       row.NumberPool,
				DrawTime:         info.DrawTime,
				Timezone:         lottery.Timezone,
			},
			Date:      lottery.DateOf(row.DrawDate),
			Sequence:  row.Sequence,
			Status:    lottery.DrawStatus(row.Status),
			SourceURL: row.SourceURL,
		}
		if row.RawFeed != "" {
			if err := jsonCodec.UnmarshalFromString(row.RawFeed, &draw.RawFeed); err != nil {
				return nil, fmt.Errorf("decode raw_feed of draw %d: %w", row.ID, err)
			}
		}

		seen := make(map[string]bool)
		for _, p := range prizesByDraw[row.ID] {
			prize := lottery.Prize{
				Level:          lottery.PrizeLevel(p.PrizeLevel),
				Order:          p.PrizeOrder,
				Name:           p.PrizeName,
				RewardAmount:   p.RewardAmount,
				RewardCurrency: p.RewardCurrency,
				WinnerCount:    p.WinnerCount,
			}
			for _, res := range resultsByPrize[p.ID] {
				prize.Results = append(prize.Results, lottery.Result{
					ProvinceCode: res.ProvinceCode,
					Numbers:      []string(res.ResultNumbers),
				})
				if !seen[res.ProvinceCode] {
					seen[res.ProvinceCode] = true
					draw.Provinces = append(draw.Provinces, lottery.Province{
						Code:     res.ProvinceCode,
						Name:     res.ProvinceName,
						Operator: res.ProvinceOperator,
						Region:   region,
					})
				}
			}
			draw.Prizes = append(draw.Prizes, prize)
		}
		sort.Slice(draw.Provinces, func(i, j int) bool { return draw.Provinces[i].Code < draw.Provinces[j].Code })
		out = append(out, draw)
	}
	return out, nil
}

// asWriteConflict marks integrity constraint violations (SQLSTATE class 23).
func asWriteConflict(err error) error {
	var pqErr *pq.Error
	if crerr.As(err, &pqErr) && pqErr.Code.Class() == "23" {
		return crerr.Mark(crerr.WithDetailf(err, "constraint=%s", pqErr.Constraint), lottery.ErrWriteConflict)
	}
	return err
}
