package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/bolao/internal/features/autopick"
	"serotonyl.ru/bolao/internal/features/sweeper"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) SweepExpired(context.Context) (*sweeper.SweepResult, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &sweeper.SweepResult{Processed: 1, Refunded: 1}, nil
}

type countingPicker struct{ calls atomic.Int32 }

func (c *countingPicker) Run(context.Context) (*autopick.RunResult, error) {
	c.calls.Add(1)
	return &autopick.RunResult{}, nil
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := NewScheduler(&countingSweeper{}, &countingPicker{}, Specs{Sweep: "not a spec", AutoPick: "* * * * *"}, nil)
	err := s.Start(context.Background())
	assert.Error(t, err)
}

func TestJobsCallServices(t *testing.T) {
	sw := &countingSweeper{}
	ap := &countingPicker{}
	s := NewScheduler(sw, ap, Specs{Sweep: "* * * * *", AutoPick: "* * * * *"}, time.UTC)

	s.runSweep(context.Background())
	s.runAutoPick(context.Background())
	assert.Equal(t, int32(1), sw.calls.Load())
	assert.Equal(t, int32(1), ap.calls.Load())
}

func TestSweepErrorIsLogged(t *testing.T) {
	sw := &countingSweeper{err: errors.New("db down")}
	s := NewScheduler(sw, &countingPicker{}, Specs{Sweep: "* * * * *", AutoPick: "* * * * *"}, time.UTC)

	assert.NotPanics(t, func() { s.runSweep(context.Background()) })
	assert.Equal(t, int32(1), sw.calls.Load())
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(&countingSweeper{}, &countingPicker{}, Specs{Sweep: "*/5 * * * *", AutoPick: "*/5 * * * *"}, time.UTC)
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}
