package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensecheck/internal/check"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
	block chan struct{}
	seen  chan context.Context
}

func (c *countingSweeper) Sweep(ctx context.Context) (*check.SweepSummary, error) {
	c.calls.Add(1)
	if c.seen != nil {
		c.seen <- ctx
	}
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	return &check.SweepSummary{ID: uuid.New()}, nil
}

func TestNew(t *testing.T) {
	t.Run("rejects bad schedule", func(t *testing.T) {
		_, err := New("every tuesday", &countingSweeper{}, nil)
		assert.ErrorContains(t, err, "invalid sweep schedule")
	})

	t.Run("requires sweeper", func(t *testing.T) {
		_, err := New("@weekly", nil, nil)
		assert.Error(t, err)
	})

	t.Run("accepts descriptors and five-field specs", func(t *testing.T) {
		for _, spec := range []string{"@weekly", "@every 1h", "0 6 * * 1"} {
			_, err := New(spec, &countingSweeper{}, nil)
			assert.NoError(t, err, spec)
		}
	})
}

func TestRunNow(t *testing.T) {
	sweeper := &countingSweeper{}
	s, err := New("@weekly", sweeper, nil)
	require.NoError(t, err)

	s.RunNow()
	assert.EqualValues(t, 1, sweeper.calls.Load())

	sweeper.err = errors.New("lock backend down")
	s.RunNow()
	assert.EqualValues(t, 2, sweeper.calls.Load(), "errors are logged, not fatal")
}

func TestScheduledSweepRunsAndStopCancels(t *testing.T) {
	sweeper := &countingSweeper{block: make(chan struct{}), seen: make(chan context.Context, 1)}
	s, err := New("@every 1s", sweeper, nil)
	require.NoError(t, err)

	s.Start(context.Background())

	var ctx context.Context
	select {
	case ctx = <-sweeper.seen:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled sweep did not run")
	}

	s.Stop()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
