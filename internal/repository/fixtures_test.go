//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/cloo-solutions/faqdesk/internal/testutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func newTestPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	pc := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { _ = pc.Terminate(ctx) })

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	t.Cleanup(pool.Close)
	return pool
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func seedTenant(ctx context.Context, t *testing.T, pool *pgxpool.Pool) *domain.Tenant {
	t.Helper()
	tenant := domain.NewTenant(uuid.NewString(), "tenant-"+uuid.NewString()[:8], now())
	require.NoError(t, NewTenantRepository(pool).Create(ctx, tenant))
	return tenant
}

func seedChatbot(ctx context.Context, t *testing.T, pool *pgxpool.Pool) *domain.Chatbot {
	t.Helper()
	tenant := seedTenant(ctx, t, pool)
	bot := domain.NewChatbot(uuid.NewString(), tenant.ID, "Support", 0, now())
	bot.Status = domain.ChatbotStatusActive
	require.NoError(t, NewChatbotRepository(pool).Create(ctx, bot))
	return bot
}

func seedFAQ(ctx context.Context, t *testing.T, pool *pgxpool.Pool, chatbotID, question, answer string) *domain.FAQ {
	t.Helper()
	faq := domain.NewFAQ(uuid.NewString(), chatbotID, question, answer, domain.FAQLayoutText, now())
	require.NoError(t, NewFAQRepository(pool).Create(ctx, faq))
	return faq
}

func seedSession(ctx context.Context, t *testing.T, pool *pgxpool.Pool, chatbotID string) *domain.ChatSession {
	t.Helper()
	ts := now()
	s := &domain.ChatSession{ID: uuid.NewString(), ChatbotID: chatbotID, CreatedAt: ts, LastActiveAt: ts}
	require.NoError(t, NewSessionRepository(pool).Create(ctx, s))
	return s
}

func seedEvent(ctx context.Context, t *testing.T, pool *pgxpool.Pool, chatbotID, sessionID, query string, resultCount int, createdAt time.Time) *domain.QueryEvent {
	t.Helper()
	e := &domain.QueryEvent{
		ID:          uuid.NewString(),
		ChatbotID:   chatbotID,
		SessionID:   &sessionID,
		Query:       query,
		ResultCount: resultCount,
		CreatedAt:   createdAt,
	}
	require.NoError(t, NewQueryEventRepository(pool).Create(ctx, e))
	return e
}

func unitVector(hot int) []float32 {
	v := make([]float32, domain.EmbeddingDimensions)
	v[hot] = 1
	return v
}
