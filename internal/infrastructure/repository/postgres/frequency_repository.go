package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/kqsx/internal/domain/frequency"
	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	qb "github.com/riskibarqy/kqsx/internal/platform/querybuilder"
)

type FrequencyRepository struct {
	db *sqlx.DB
}

var _ frequency.Repository = (*FrequencyRepository)(nil)

func NewFrequencyRepository(db *sqlx.DB) *FrequencyRepository {
	return &FrequencyRepository{db: db}
}

func (r *FrequencyRepository) ListGameCodes(ctx context.Context) ([]string, error) {
	query, args, err := qb.Select("code").From("lottery_games").OrderBy("code").ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select game codes query: %w", err)
	}
	var codes []string
	if err := r.db.SelectContext(ctx, &codes, query, args...); err != nil {
		return nil, fmt.Errorf("select game codes: %w", err)
	}
	return codes, nil
}

// rebuildTailsQuery counts two-digit tails of active results of completed draws.
const rebuildTailsQuery = `INSERT INTO number_frequencies (game_id, tail, hits, last_seen)
SELECT d.game_id, RIGHT(n.num, 2) AS tail, COUNT(*) AS hits, MAX(d.draw_date) AS last_seen
FROM draw_results r
JOIN draw_prizes p ON p.id = r.prize_id
JOIN draws d ON d.id = p.draw_id
CROSS JOIN LATERAL unnest(r.result_numbers) AS n(num)
WHERE d.game_id = $1
  AND d.status = 'completed'
  AND d.draw_date >= $2
  AND r.superseded_at IS NULL
  AND length(n.num) >= 2
GROUP BY d.game_id, RIGHT(n.num, 2)`

func (r *FrequencyRepository) Rebuild(ctx context.Context, gameCode string, since time.Time) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx rebuild frequencies: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	gameQuery, gameArgs, err := qb.Select("id").From("lottery_games").Where(qb.Eq("code", gameCode)).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build select game query: %w", err)
	}
	var gameID int64
	if err := tx.GetContext(ctx, &gameID, gameQuery, gameArgs...); err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("game %s not found", gameCode)
		}
		return 0, fmt.Errorf("select game %s: %w", gameCode, err)
	}

	deleteQuery, deleteArgs, err := qb.DeleteFrom("number_frequencies").Where(qb.Eq("game_id", gameID)).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build delete frequencies query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
		return 0, fmt.Errorf("delete frequencies for %s: %w", gameCode, err)
	}

	res, err := tx.ExecContext(ctx, rebuildTailsQuery, gameID, lottery.FormatDate(since))
	if err != nil {
		return 0, fmt.Errorf("rebuild frequencies for %s: %w", gameCode, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit rebuild frequencies tx: %w", err)
	}
	return int(affected), nil
}

type frequencyTableModel struct {
	GameCode   string    `db:"game_code"`
	RegionCode string    `db:"region_code"`
	Tail       string    `db:"tail"`
	Hits       int       `db:"hits"`
	LastSeen   time.Time `db:"last_seen"`
}

func (r *FrequencyRepository) Top(ctx context.Context, region lottery.RegionCode, limit int) ([]frequency.Entry, error) {
	query, args, err := qb.Select(
		"g.code AS game_code",
		"rg.code AS region_code",
		"f.tail",
		"f.hits",
		"f.last_seen",
	).From("number_frequencies f").
		Join("JOIN lottery_games g ON g.id = f.game_id").
		Join("JOIN regions rg ON rg.id = g.region_id").
		Where(qb.Eq("rg.code", string(region))).
		OrderBy("f.hits DESC", "f.tail").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select top frequencies query: %w", err)
	}

	var rows []frequencyTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select top frequencies: %w", err)
	}
	out := make([]frequency.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, frequency.Entry{
			GameCode: row.GameCode,
			Region:   lottery.RegionCode(row.RegionCode),
			Tail:     row.Tail,
			Hits:     row.Hits,
			LastSeen: lottery.DateOf(row.LastSeen),
		})
	}
	return out, nil
}
