package jobs

import (
	"context"

	"github.com/cloo-solutions/faqdesk/internal/logging"
	"github.com/cloo-solutions/faqdesk/internal/service"
	"go.uber.org/zap"
)

// RetentionPurger deletes engagement records past their retention period
type RetentionPurger interface {
	PurgeExpired(ctx context.Context) (*service.PurgeResult, error)
}

// RetentionWorker purges expired query events and their action records
type RetentionWorker struct {
	purger RetentionPurger
	logger *zap.Logger
}

func NewRetentionWorker(purger RetentionPurger, logger *zap.Logger) *RetentionWorker {
	return &RetentionWorker{
		purger: purger,
		logger: logging.OrNop(logger).Named("retention_worker"),
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *RetentionWorker) ProcessJobs(ctx context.Context) error {
	result, err := w.purger.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	if result.Events > 0 || result.Actions > 0 {
		w.logger.Info("purged expired engagement",
			zap.Int64("events", result.Events),
			zap.Int64("actions", result.Actions),
		)
	}
	return nil
}
