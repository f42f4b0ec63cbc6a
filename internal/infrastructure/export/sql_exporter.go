package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/lib/pq"
	"github.com/valyala/bytebufferpool"

	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	qb "github.com/riskibarqy/kqsx/internal/platform/querybuilder"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// SQLExporter writes a draw as a standalone transaction script that replays
// the upsert against the lottery schema.
type SQLExporter struct{}

func NewSQLExporter() *SQLExporter {
	return &SQLExporter{}
}

// FileName is the script name for one (date, region) pair.
func FileName(draw lottery.Draw) string {
	return fmt.Sprintf("%s_%s.sql", lottery.FormatDate(draw.Date), draw.Game.Region)
}

func (e *SQLExporter) ExportDraw(ctx context.Context, dir string, draw lottery.Draw) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := Render(buf, draw); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, FileName(draw))
	if err := os.WriteFile(path, buf.B, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

type statementWriter interface {
	WriteString(s string) (int, error)
}

// Render writes the begin/commit script for draw to w.
func Render(w statementWriter, draw lottery.Draw) error {
	region := draw.Game.Region.Info()
	date := lottery.FormatDate(draw.Date)
	regionID := qb.Sub("SELECT id FROM regions WHERE code = ?", string(region.Code))
	gameID := qb.Sub("SELECT id FROM lottery_games WHERE code = ?", draw.Game.Code)
	drawID := qb.Sub(
		"SELECT d.id FROM draws d JOIN lottery_games g ON g.id = d.game_id WHERE g.code = ? AND d.draw_date = ? AND d.sequence = ?",
		draw.Game.Code, date, draw.Sequence,
	)

	rawFeed, err := jsonCodec.MarshalToString(draw.RawFeed)
	if err != nil {
		return fmt.Errorf("encode raw feed: %w", err)
	}

	statements := []*qb.InsertBuilder{
		qb.InsertInto("regions").
			Columns("code", "slug", "name").
			Values(string(region.Code), region.Slug, region.Name).
			Suffix("ON CONFLICT (code) DO UPDATE SET slug = EXCLUDED.slug, name = EXCLUDED.name, updated_at = NOW()"),
	}
	for _, p := range draw.Provinces {
		statements = append(statements, qb.InsertInto("provinces").
			Columns("region_id", "code", "name", "operator").
			Values(regionID, p.Code, p.Name, p.Operator).
			Suffix("ON CONFLICT (region_id, code) DO UPDATE SET name = EXCLUDED.name, operator = EXCLUDED.operator, updated_at = NOW()"))
	}
	statements = append(statements,
		qb.InsertInto("lottery_games").
			Columns("code", "name", "category", "operator", "region_id", "numbers_per_ticket", "number_pool").
			Values(draw.Game.Code, draw.Game.Name, draw.Game.Category, draw.Game.Operator, regionID, draw.Game.NumbersPerTicket, draw.Game.NumberPool).
			Suffix("ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, operator = EXCLUDED.operator, updated_at = NOW()"),
		qb.InsertInto("draws").
			Columns("game_id", "draw_date", "sequence", "status", "source_url", "raw_feed").
			Values(gameID, date, draw.Sequence, string(draw.Status), draw.SourceURL, rawFeed).
			Suffix(`ON CONFLICT (game_id, draw_date, sequence) DO UPDATE SET status = EXCLUDED.status, source_url = EXCLUDED.source_url, raw_feed = EXCLUDED.raw_feed, updated_at = NOW()
    WHERE draws.status = EXCLUDED.status OR draws.status IN ('scheduled', 'in_progress')`),
	)

	if _, err := w.WriteString("BEGIN;\n"); err != nil {
		return err
	}
	for _, stmt := range statements {
		if err := writeStatement(w, stmt); err != nil {
			return err
		}
	}

	for _, prize := range draw.Prizes {
		prizeInsert := qb.InsertInto("draw_prizes").
			Columns("draw_id", "prize_level", "prize_order", "prize_name", "reward_amount", "reward_currency", "winner_count").
			Values(drawID, string(prize.Level), prize.Order, prize.Name, prize.RewardAmount, prize.RewardCurrency, prize.WinnerCount).
			Suffix("ON CONFLICT (draw_id, prize_level, prize_order) DO UPDATE SET prize_name = EXCLUDED.prize_name, reward_amount = EXCLUDED.reward_amount, updated_at = NOW()")
		if err := writeStatement(w, prizeInsert); err != nil {
			return err
		}

		prizeID := qb.Sub(
			"SELECT p.id FROM draw_prizes p WHERE p.draw_id = ? AND p.prize_level = ? AND p.prize_order = ?",
			drawID, string(prize.Level), prize.Order,
		)
		for _, result := range prize.Results {
			provinceID := qb.Sub(
				"SELECT id FROM provinces WHERE region_id = ? AND code = ?",
				regionID, result.ProvinceCode,
			)
			numbers := pq.StringArray(result.Numbers)

			supersede := qb.Update("draw_results").
				SetExpr("superseded_at", "NOW()").
				Where(
					qb.Eq("prize_id", prizeID),
					qb.Eq("province_id", provinceID),
					qb.IsNull("superseded_at"),
					qb.Expr("result_numbers <> ?", numbers),
				)
			if err := writeStatement(w, supersede); err != nil {
				return err
			}

			insert := qb.InsertInto("draw_results").
				Columns("prize_id", "province_id", "result_numbers").
				Values(prizeID, provinceID, numbers).
				Suffix("ON CONFLICT (prize_id, province_id) WHERE superseded_at IS NULL DO NOTHING")
			if err := writeStatement(w, insert); err != nil {
				return err
			}
		}
	}

	_, err = w.WriteString("COMMIT;\n")
	return err
}

type sqlBuilder interface {
	ToSQL() (string, []any, error)
}

func writeStatement(w statementWriter, b sqlBuilder) error {
	query, args, err := b.ToSQL()
	if err != nil {
		return fmt.Errorf("build export statement: %w", err)
	}
	inlined, err := qb.Inline(query, args)
	if err != nil {
		return fmt.Errorf("inline export statement: %w", err)
	}
	if _, err := w.WriteString(inlined + ";\n"); err != nil {
		return err
	}
	return nil
}
