package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/kqsx/internal/platform/logging"
)

func TestScheduler_AddValidatesSpec(t *testing.T) {
	s := NewScheduler(nil, time.Second, logging.NewNop())

	require.NoError(t, s.Add("watchdog", "@every 1h", func(context.Context) {}))
	require.NoError(t, s.Add("frequency-rebuild", "30 19 * * *", func(context.Context) {}))
	assert.Equal(t, 2, s.Len())

	err := s.Add("broken", "not a cron spec", func(context.Context) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, 2, s.Len())
}

func TestScheduler_RunsJobWithDeadline(t *testing.T) {
	s := NewScheduler(time.UTC, time.Minute, logging.NewNop())
	ran := make(chan bool, 1)
	require.NoError(t, s.Add("tick", "@every 1s", func(ctx context.Context) {
		_, hasDeadline := ctx.Deadline()
		select {
		case ran <- hasDeadline:
		default:
		}
	}))

	s.Start()
	defer s.Stop(context.Background())

	select {
	case hasDeadline := <-ran:
		assert.True(t, hasDeadline)
	case <-time.After(3 * time.Second):
		t.Fatalf("job did not run")
	}
}

func TestScheduler_StopCancelsRunningJob(t *testing.T) {
	s := NewScheduler(time.UTC, 0, logging.NewNop())
	started := make(chan struct{})
	finished := make(chan error, 1)
	require.NoError(t, s.Add("slow", "@every 1s", func(ctx context.Context) {
		select {
		case started <- struct{}{}:
		default:
			return
		}
		<-ctx.Done()
		finished <- ctx.Err()
	}))

	s.Start()
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatalf("job did not start")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Stop(stopCtx)

	select {
	case err := <-finished:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatalf("job was not cancelled")
	}
}
