// Package quota enforces per-chatbot monthly query limits.
package quota

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/cloo-solutions/faqdesk/internal/logging"
)

// Counter is a shared integer store with expiring keys
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Decr(ctx context.Context, key string) error
}

// RejectionObserver is told about every rejected query
type RejectionObserver interface {
	ObserveQuotaRejection()
}

// Guard counts production queries per chatbot and calendar month (UTC)
type Guard struct {
	counter  Counter
	observer RejectionObserver
	logger   *zap.Logger
	now      func() time.Time
}

func NewGuard(counter Counter, observer RejectionObserver, logger *zap.Logger) *Guard {
	return &Guard{
		counter:  counter,
		observer: observer,
		logger:   logging.OrNop(logger).Named("quota"),
		now:      time.Now,
	}
}

// Key names the counter for a chatbot in the month containing at
func Key(chatbotID string, at time.Time) string {
	return fmt.Sprintf("quota:%s:%s", chatbotID, at.UTC().Format("200601"))
}

// EnsureQuota consumes one query from the chatbot's monthly allowance. A
// limit of zero is unlimited. Counter failures let the query through.
func (g *Guard) EnsureQuota(ctx context.Context, chatbot *domain.Chatbot) error {
	if chatbot == nil || chatbot.MonthlyQueryLimit <= 0 {
		return nil
	}

	now := g.now().UTC()
	key := Key(chatbot.ID, now)

	used, err := g.counter.Incr(ctx, key, untilMonthAfter(now))
	if err != nil {
		g.logger.Warn("quota counter unavailable, allowing query",
			zap.String("chatbot_id", chatbot.ID),
			zap.Error(err),
		)
		return nil
	}

	if used <= int64(chatbot.MonthlyQueryLimit) {
		return nil
	}

	if err := g.counter.Decr(ctx, key); err != nil {
		g.logger.Warn("failed to roll back quota counter",
			zap.String("chatbot_id", chatbot.ID),
			zap.Error(err),
		)
	}
	if g.observer != nil {
		g.observer.ObserveQuotaRejection()
	}
	return domain.ErrQuotaExceeded
}

// untilMonthAfter keeps a counter alive through the end of the following month
func untilMonthAfter(now time.Time) time.Duration {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.AddDate(0, 2, 0).Sub(now)
}
