package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/faqdesk/internal/telemetry"
)

// RetentionService purges analytics older than the retention window
type RetentionService struct {
	txRunner TxRunner
	maxAge   time.Duration
	clock    func() time.Time
}

func NewRetentionService(txRunner TxRunner, maxAge time.Duration) *RetentionService {
	return &RetentionService{
		txRunner: txRunner,
		maxAge:   maxAge,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// PurgeResult counts what one purge removed
type PurgeResult struct {
	Actions int64
	Events  int64
}

// PurgeExpired deletes action records, then their events, for every event
// created before now minus maxAge. A zero maxAge disables the purge.
func (s *RetentionService) PurgeExpired(ctx context.Context) (*PurgeResult, error) {
	result := &PurgeResult{}
	if s.maxAge <= 0 {
		return result, nil
	}

	ctx, span := telemetry.StartSpan(ctx, "RetentionService.PurgeExpired", telemetry.SpanAttributes{
		Operation: "purge",
	})
	defer span.End()

	cutoff := s.clock().Add(-s.maxAge)
	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		n, err := repos.Actions().DeleteForEventsCreatedBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		result.Actions = n

		n, err = repos.Events().DeleteCreatedBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		result.Events = n
		return nil
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return result, nil
}
