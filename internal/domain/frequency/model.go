package frequency

import (
	"context"
	"time"

	"github.com/riskibarqy/kqsx/internal/domain/lottery"
)

// Entry counts how often a two-digit tail was drawn for a game.
type Entry struct {
	GameCode string
	Region   lottery.RegionCode
	Tail     string
	Hits     int
	LastSeen time.Time
}

// Repository maintains the frequency projection. Rebuild replaces one game's
// rows from active results drawn on or after since.
type Repository interface {
	ListGameCodes(ctx context.Context) ([]string, error)
	Rebuild(ctx context.Context, gameCode string, since time.Time) (int, error)
	Top(ctx context.Context, region lottery.RegionCode, limit int) ([]Entry, error)
}
