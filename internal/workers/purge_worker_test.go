package workers

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alimgiray/storyhub/internal/services"
	"github.com/alimgiray/storyhub/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPurger struct {
	calls atomic.Int32
	err   error
}

func (p *countingPurger) PurgeAll(ctx context.Context) (*services.PurgeReport, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return &services.PurgeReport{}, nil
}

func TestPurgeWorker_RunsOnStartAndOnTick(t *testing.T) {
	logger.SetOutput(io.Discard)
	purger := &countingPurger{}
	worker := NewPurgeWorker("purge-1", purger, 10*time.Millisecond)

	manager := NewWorkerManager(worker)
	require.NoError(t, manager.StartAll())

	assert.Eventually(t, func() bool { return purger.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.True(t, manager.GetWorkerStatus()["purge-1"])

	require.NoError(t, manager.StopAll())
	assert.False(t, worker.IsRunning())
}

func TestPurgeWorker_KeepsRunningAfterFailure(t *testing.T) {
	logger.SetOutput(io.Discard)
	purger := &countingPurger{err: errors.New("store down")}
	worker := NewPurgeWorker("purge-1", purger, 10*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- worker.Start(context.Background()) }()

	assert.Eventually(t, func() bool { return purger.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, worker.Stop())
	require.NoError(t, worker.Stop(), "stopping twice is safe")

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestPurgeWorker_StopsOnContextCancel(t *testing.T) {
	logger.SetOutput(io.Discard)
	worker := NewPurgeWorker("purge-1", &countingPurger{}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, KindPurge, worker.GetKind())
}
