package jobs

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/cloo-solutions/faqdesk/internal/logging"
	"go.uber.org/zap"
)

const (
	// MaxRetries is the maximum number of retries for a failed job
	MaxRetries = 3
)

// EmbeddingJobRepository defines the interface for embedding job persistence
type EmbeddingJobRepository interface {
	// GetPendingJobs retrieves and claims pending embedding jobs
	GetPendingJobs(ctx context.Context) ([]*domain.EmbeddingJob, error)

	// UpdateJobStatus updates the status of an embedding job
	UpdateJobStatus(ctx context.Context, jobID string, status domain.EmbeddingJobStatus, errMsg string) error

	// IncrementRetries increments the retry count for a job
	IncrementRetries(ctx context.Context, jobID string) error
}

// EmbeddingService embeds one FAQ entry and stores its vector
type EmbeddingService interface {
	GenerateEmbedding(ctx context.Context, faqID string) error
}

// EmbeddingWorker processes embedding jobs
type EmbeddingWorker struct {
	repo    EmbeddingJobRepository
	service EmbeddingService
	logger  *zap.Logger
}

// NewEmbeddingWorker creates a new EmbeddingWorker instance
func NewEmbeddingWorker(repo EmbeddingJobRepository, service EmbeddingService, logger *zap.Logger) *EmbeddingWorker {
	return &EmbeddingWorker{
		repo:    repo,
		service: service,
		logger:  logging.OrNop(logger).Named("embedding_worker"),
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *EmbeddingWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.GetPendingJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	w.logger.Info("processing pending embedding jobs", zap.Int("count", len(jobs)))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			w.logger.Error("embedding job failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	}

	return nil
}

func (w *EmbeddingWorker) processJob(ctx context.Context, job *domain.EmbeddingJob) error {
	if job.FAQID == "" {
		if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.EmbeddingJobStatusFailed, "job has no faq_id"); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return fmt.Errorf("job %s has no faq_id", job.ID)
	}

	w.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("faq_id", job.FAQID))
	if err := w.service.GenerateEmbedding(ctx, job.FAQID); err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.EmbeddingJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	w.logger.Debug("job completed", zap.String("job_id", job.ID))
	return nil
}

// handleJobFailure puts the job back to pending, or fails it for good once
// MaxRetries attempts have been used.
func (w *EmbeddingWorker) handleJobFailure(ctx context.Context, job *domain.EmbeddingJob, jobErr error) error {
	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	attempt := job.Retries + 1
	if attempt >= MaxRetries {
		w.logger.Warn("job exceeded max retries",
			zap.String("job_id", job.ID),
			zap.Int32("attempts", attempt),
			zap.Error(jobErr),
		)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.EmbeddingJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	w.logger.Info("job will be retried",
		zap.String("job_id", job.ID),
		zap.Int32("attempt", attempt),
		zap.Int("max_retries", MaxRetries),
		zap.Error(jobErr),
	)
	errMsg := fmt.Sprintf("retry %d: %v", attempt, jobErr)
	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.EmbeddingJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}
