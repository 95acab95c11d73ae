package pipeline_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-data-etl/internal/pipeline"
)

type countingRunner struct {
	calls atomic.Int32
}

func (c *countingRunner) RunOnce(_ context.Context) (pipeline.RunResult, error) {
	c.calls.Add(1)
	return pipeline.RunResult{}, nil
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	_, err := pipeline.NewScheduler("every tuesday", &countingRunner{}, discardLogger())
	require.Error(t, err)
}

func TestNewScheduler_Descriptors(t *testing.T) {
	for _, spec := range []string{"@every 5m", "@hourly", "*/10 * * * *"} {
		_, err := pipeline.NewScheduler(spec, &countingRunner{}, discardLogger())
		assert.NoError(t, err, spec)
	}
}

func TestScheduler_RunsUntilCancelled(t *testing.T) {
	runner := &countingRunner{}
	s, err := pipeline.NewScheduler("@every 1s", runner, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return runner.calls.Load() >= 1 }, 5*time.Second, 50*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
