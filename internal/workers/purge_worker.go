package workers

import (
	"context"
	"time"

	"github.com/alimgiray/storyhub/internal/services"
	"github.com/alimgiray/storyhub/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Purger runs one purge sweep. services.PurgeService implements it.
type Purger interface {
	PurgeAll(ctx context.Context) (*services.PurgeReport, error)
}

// PurgeWorker runs the purge sweep once at start and then on every interval
type PurgeWorker struct {
	*BaseWorker
	purger   Purger
	interval time.Duration
}

// NewPurgeWorker creates a new purge worker
func NewPurgeWorker(workerID string, purger Purger, interval time.Duration) *PurgeWorker {
	return &PurgeWorker{
		BaseWorker: NewBaseWorker(workerID, KindPurge),
		purger:     purger,
		interval:   interval,
	}
}

// Start begins the purge loop
func (w *PurgeWorker) Start(ctx context.Context) error {
	w.setRunning(true)
	defer w.setRunning(false)

	log := logger.WithFields(logrus.Fields{"worker": w.WorkerID, "interval": w.interval.String()})
	log.Info("Purge worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runOnce(ctx, log)
	for {
		select {
		case <-ctx.Done():
			log.Info("Purge worker stopping due to context cancellation")
			return ctx.Err()
		case <-w.StopChan:
			log.Info("Purge worker stopping")
			return nil
		case <-ticker.C:
			w.runOnce(ctx, log)
		}
	}
}

func (w *PurgeWorker) runOnce(ctx context.Context, log *logrus.Entry) {
	ctx = logger.NewContext(ctx, log)
	report, err := w.purger.PurgeAll(ctx)
	if err != nil {
		log.WithError(err).Error("Purge sweep failed")
		return
	}
	if report.Failures() > 0 {
		log.WithField("failures", report.Failures()).Warn("Purge sweep finished with failures")
	}
}
