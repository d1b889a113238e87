package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/cloo-solutions/faqdesk/internal/logging"
	"go.uber.org/zap"
)

// JobProcessor runs one pass over whatever work is due.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker calls a JobProcessor once at start and then every interval until
// stopped. A pass never runs longer than one interval.
type Worker struct {
	name      string
	processor JobProcessor
	interval  time.Duration
	logger    *zap.Logger

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewWorker(name string, processor JobProcessor, interval time.Duration, logger *zap.Logger) *Worker {
	return &Worker{
		name:      name,
		processor: processor,
		interval:  interval,
		logger:    logging.OrNop(logger).With(zap.String("worker", name)),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (w *Worker) Name() string { return w.name }

// Start blocks until ctx is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.done)

	w.logger.Info("worker started", zap.Duration("interval", w.interval))
	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped", zap.String("reason", "context cancelled"))
			return
		case <-w.stop:
			w.logger.Info("worker stopped", zap.String("reason", "stop requested"))
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	passCtx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()

	if err := w.processor.ProcessJobs(passCtx); err != nil {
		w.logger.Error("job pass failed", zap.Error(err))
	}
}

// Stop signals the loop and waits for the current pass to finish.
// Safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}
