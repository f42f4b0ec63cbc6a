package cache

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/riskibarqy/kqsx/internal/platform/logging"
)

// LoadFunc returns the value to serve and whether it may be cached.
type LoadFunc func(ctx context.Context) (value []byte, cacheable bool, err error)

// Loader serves reads from a Backend and collapses concurrent misses for the
// same key into one load. Backend failures degrade to a direct load.
type Loader struct {
	backend Backend
	flight  singleflight.Group
	logger  *logging.Logger
}

func NewLoader(backend Backend, logger *logging.Logger) *Loader {
	if logger == nil {
		logger = logging.Default()
	}
	return &Loader{backend: backend, logger: logger}
}

func (l *Loader) GetOrLoad(ctx context.Context, key string, load LoadFunc) ([]byte, error) {
	if load == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if l.backend == nil || key == "" {
		value, _, err := load(ctx)
		return value, err
	}

	if value, ok := l.get(ctx, key); ok {
		return value, nil
	}

	v, err, _ := l.flight.Do(key, func() (any, error) {
		if value, ok := l.get(ctx, key); ok {
			return value, nil
		}
		value, cacheable, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if cacheable {
			if setErr := l.backend.Set(ctx, key, value); setErr != nil {
				l.logger.WarnContext(ctx, "cache set failed", "key", key, "error", setErr)
			}
		}
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (l *Loader) Invalidate(ctx context.Context, keys ...string) {
	if l.backend == nil || len(keys) == 0 {
		return
	}
	if err := l.backend.Delete(ctx, keys...); err != nil {
		l.logger.WarnContext(ctx, "cache invalidate failed", "keys", keys, "error", err)
	}
}

func (l *Loader) get(ctx context.Context, key string) ([]byte, bool) {
	value, ok, err := l.backend.Get(ctx, key)
	if err != nil {
		l.logger.WarnContext(ctx, "cache get failed", "key", key, "error", err)
		return nil, false
	}
	return value, ok
}
