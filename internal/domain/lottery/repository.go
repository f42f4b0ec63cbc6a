package lottery

import (
	"context"
	"time"
)

// Writer persists a normalized draw in one transaction and appends an audit record.
type Writer interface {
	UpsertDraw(ctx context.Context, draw Draw, meta WriteMeta) (WriteResult, error)
}

// Reader serves completed draws with their active results.
type Reader interface {
	ListCompletedDraws(ctx context.Context, date time.Time, region RegionCode) ([]Draw, error)
}

type Repository interface {
	Writer
	Reader
}
