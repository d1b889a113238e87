//go:build integration

package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/cloo-solutions/faqdesk/internal/pagination"
	"github.com/cloo-solutions/faqdesk/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func viewed(eventID, faqID string) *domain.QueryAction {
	ts := now()
	return &domain.QueryAction{EventID: eventID, FAQID: faqID, Action: domain.ActionViewed, CreatedAt: ts, UpdatedAt: ts}
}

func TestQueryActionRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(ctx, t)
	actions := NewQueryActionRepository(pool)
	bot := seedChatbot(ctx, t, pool)
	session := seedSession(ctx, t, pool, bot.ID)
	faq := seedFAQ(ctx, t, pool, bot.ID, "q", "a")
	event := seedEvent(ctx, t, pool, bot.ID, session.ID, "q", 1, now())

	previous, err := actions.Upsert(ctx, viewed(event.ID, faq.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.ActionKind(""), previous)

	like := viewed(event.ID, faq.ID)
	like.Action = domain.ActionLike
	previous, err = actions.Upsert(ctx, like)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionViewed, previous)

	records, err := actions.ListByEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.ActionLike, records[0].Action)
}

func TestQueryActionRepository_Upsert_ConcurrentFirstView(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(ctx, t)
	actions := NewQueryActionRepository(pool)
	bot := seedChatbot(ctx, t, pool)
	session := seedSession(ctx, t, pool, bot.ID)
	faq := seedFAQ(ctx, t, pool, bot.ID, "q", "a")
	event := seedEvent(ctx, t, pool, bot.ID, session.ID, "q", 1, now())

	const writers = 8
	results := make(chan domain.ActionKind, writers)
	start := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			previous, err := actions.Upsert(ctx, viewed(event.ID, faq.ID))
			assert.NoError(t, err)
			results <- previous
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	firstViews := 0
	for previous := range results {
		if previous != domain.ActionViewed {
			firstViews++
		}
	}
	assert.Equal(t, 1, firstViews, "exactly one writer observes the transition to viewed")

	records, err := actions.ListByEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestQueryEventRepository_ReadCount(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(ctx, t)
	events := NewQueryEventRepository(pool)
	actions := NewQueryActionRepository(pool)
	bot := seedChatbot(ctx, t, pool)
	session := seedSession(ctx, t, pool, bot.ID)
	event := seedEvent(ctx, t, pool, bot.ID, session.ID, "shipping", 5, now())

	faqs := make([]*domain.FAQ, 5)
	for i := range faqs {
		faqs[i] = seedFAQ(ctx, t, pool, bot.ID, "question "+uuid.NewString()[:6], "answer")
	}

	t.Run("concurrent views count every candidate", func(t *testing.T) {
		var wg sync.WaitGroup
		for _, f := range faqs {
			wg.Add(1)
			go func(faqID string) {
				defer wg.Done()
				_, err := actions.Upsert(ctx, viewed(event.ID, faqID))
				assert.NoError(t, err)
				_, err = events.RefreshReadCount(ctx, event.ID)
				assert.NoError(t, err)
			}(f.ID)
		}
		wg.Wait()

		got, err := events.GetByID(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, len(faqs), got.ReadCount)
	})

	t.Run("never decreases", func(t *testing.T) {
		dislike := viewed(event.ID, faqs[0].ID)
		dislike.Action = domain.ActionDislike
		_, err := actions.Upsert(ctx, dislike)
		require.NoError(t, err)

		count, err := events.RefreshReadCount(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, len(faqs), count)
	})

	t.Run("missing event", func(t *testing.T) {
		_, err := events.RefreshReadCount(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrEventNotFound)
	})
}

func TestQueryEventRepository_ListAndStats(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(ctx, t)
	events := NewQueryEventRepository(pool)
	actions := NewQueryActionRepository(pool)
	bot := seedChatbot(ctx, t, pool)
	session := seedSession(ctx, t, pool, bot.ID)
	faq := seedFAQ(ctx, t, pool, bot.ID, "Shipping times", "Three days.")

	base := now().Add(-time.Hour)
	answered := seedEvent(ctx, t, pool, bot.ID, session.ID, "shipping", 2, base)
	seedEvent(ctx, t, pool, bot.ID, session.ID, "gift wrap", 0, base.Add(time.Minute))
	seedEvent(ctx, t, pool, bot.ID, session.ID, "gift wrap", 0, base.Add(2*time.Minute))
	seedEvent(ctx, t, pool, bot.ID, session.ID, "test", 0, base.Add(3*time.Minute))

	_, err := actions.Upsert(ctx, viewed(answered.ID, faq.ID))
	require.NoError(t, err)
	_, err = events.RefreshReadCount(ctx, answered.ID)
	require.NoError(t, err)

	affected, err := events.SetIgnored(ctx, bot.ID, "test", true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	t.Run("pages newest first", func(t *testing.T) {
		filter := service.EventFilter{ChatbotID: bot.ID}
		first, err := events.List(ctx, filter, nil, 3)
		require.NoError(t, err)
		require.Len(t, first.Items, 3)
		assert.True(t, first.HasMore)
		assert.Equal(t, "test", first.Items[0].Query)

		cursor, err := pagination.DecodeCursor(first.NextCursor)
		require.NoError(t, err)
		second, err := events.List(ctx, filter, cursor, 3)
		require.NoError(t, err)
		require.Len(t, second.Items, 1)
		assert.False(t, second.HasMore)
		assert.Equal(t, answered.ID, second.Items[0].ID)
	})

	t.Run("filters", func(t *testing.T) {
		notIgnored := false
		page, err := events.List(ctx, service.EventFilter{
			ChatbotID:       bot.ID,
			Ignored:         &notIgnored,
			ZeroResultsOnly: true,
			QueryContains:   "GIFT",
		}, nil, 10)
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
	})

	t.Run("aggregate excludes ignored", func(t *testing.T) {
		agg, err := events.Aggregate(ctx, bot.ID, domain.TimeWindow{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), agg.Total)
		assert.Equal(t, int64(1), agg.IgnoredCount)
		assert.InDelta(t, 2.0/3.0, agg.AvgResultCount, 1e-9)
		assert.InDelta(t, 1.0/3.0, agg.AvgReadCount, 1e-9)
	})

	t.Run("window", func(t *testing.T) {
		from := base.Add(30 * time.Second)
		to := base.Add(90 * time.Second)
		agg, err := events.Aggregate(ctx, bot.ID, domain.TimeWindow{From: &from, To: &to})
		require.NoError(t, err)
		assert.Equal(t, int64(1), agg.Total)
	})

	t.Run("leaderboards", func(t *testing.T) {
		zero, err := events.ZeroResultQueries(ctx, bot.ID, domain.TimeWindow{}, 10)
		require.NoError(t, err)
		assert.Equal(t, []domain.QueryFrequency{{Query: "gift wrap", Count: 2}}, zero)

		top, err := actions.TopViewed(ctx, bot.ID, domain.TimeWindow{}, 10)
		require.NoError(t, err)
		assert.Equal(t, []domain.CandidateHits{{FAQID: faq.ID, Question: "Shipping times", Views: 1}}, top)

		dist, err := actions.Distribution(ctx, bot.ID, domain.TimeWindow{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), dist[domain.ActionViewed])
	})
}

func TestQueryEventRepository_Delete(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(ctx, t)
	events := NewQueryEventRepository(pool)
	actions := NewQueryActionRepository(pool)
	bot := seedChatbot(ctx, t, pool)
	session := seedSession(ctx, t, pool, bot.ID)
	faq := seedFAQ(ctx, t, pool, bot.ID, "q", "a")

	old := seedEvent(ctx, t, pool, bot.ID, session.ID, "old", 1, now().Add(-48*time.Hour))
	fresh := seedEvent(ctx, t, pool, bot.ID, session.ID, "fresh", 1, now())
	_, err := actions.Upsert(ctx, viewed(old.ID, faq.ID))
	require.NoError(t, err)
	_, err = actions.Upsert(ctx, viewed(fresh.ID, faq.ID))
	require.NoError(t, err)

	t.Run("retention cutoff", func(t *testing.T) {
		cutoff := now().Add(-24 * time.Hour)
		removedActions, err := actions.DeleteForEventsCreatedBefore(ctx, cutoff)
		require.NoError(t, err)
		assert.Equal(t, int64(1), removedActions)

		removedEvents, err := events.DeleteCreatedBefore(ctx, cutoff)
		require.NoError(t, err)
		assert.Equal(t, int64(1), removedEvents)
	})

	t.Run("delete in transaction", func(t *testing.T) {
		runner := NewTxRunner(pool)
		err := runner.WithTx(ctx, func(repos service.TxRepositories) error {
			if _, err := repos.Actions().DeleteByEvent(ctx, fresh.ID); err != nil {
				return err
			}
			return repos.Events().Delete(ctx, fresh.ID)
		})
		require.NoError(t, err)

		_, err = events.GetByID(ctx, fresh.ID)
		assert.ErrorIs(t, err, domain.ErrEventNotFound)
		assert.ErrorIs(t, events.Delete(ctx, fresh.ID), domain.ErrEventNotFound)
	})
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(ctx, t)
	repo := NewSessionRepository(pool)
	bot := seedChatbot(ctx, t, pool)
	session := seedSession(ctx, t, pool, bot.ID)

	at := now().Add(time.Minute)
	require.NoError(t, repo.IncrementQueryCount(ctx, session.ID, at))

	got, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.QueryCount)
	assert.True(t, at.Equal(got.LastActiveAt))

	assert.ErrorIs(t, repo.IncrementQueryCount(ctx, uuid.NewString(), at), domain.ErrSessionNotFound)
}
