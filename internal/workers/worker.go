package workers

import (
	"context"
	"sync"
	"sync/atomic"
)

// Kind names what a worker does
type Kind string

const KindPurge Kind = "purge"

// Worker interface defines the contract for all workers
type Worker interface {
	// Start runs the worker until ctx is cancelled or Stop is called
	Start(ctx context.Context) error

	// Stop gracefully stops the worker
	Stop() error

	// GetKind returns what this worker does
	GetKind() Kind

	// GetWorkerID returns the unique identifier for this worker
	GetWorkerID() string

	// IsRunning checks if the worker loop is active
	IsRunning() bool
}

// BaseWorker provides common functionality for all workers
type BaseWorker struct {
	WorkerID string
	Kind     Kind
	StopChan chan struct{}

	running  atomic.Bool
	stopOnce sync.Once
}

// NewBaseWorker creates a new base worker
func NewBaseWorker(workerID string, kind Kind) *BaseWorker {
	return &BaseWorker{
		WorkerID: workerID,
		Kind:     kind,
		StopChan: make(chan struct{}),
	}
}

// GetKind returns what this worker does
func (w *BaseWorker) GetKind() Kind {
	return w.Kind
}

// GetWorkerID returns the worker's unique identifier
func (w *BaseWorker) GetWorkerID() string {
	return w.WorkerID
}

// Stop gracefully stops the worker. It is safe to call more than once.
func (w *BaseWorker) Stop() error {
	w.stopOnce.Do(func() { close(w.StopChan) })
	return nil
}

// IsRunning checks if the worker is currently running
func (w *BaseWorker) IsRunning() bool {
	return w.running.Load()
}

func (w *BaseWorker) setRunning(running bool) {
	w.running.Store(running)
}
