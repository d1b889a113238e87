package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type engagementFixture struct {
	events   *MockQueryEventRepository
	actions  *MockQueryActionRepository
	faqs     *MockFAQRepository
	sessions *MockSessionRepository
	txRunner *testTxRunner
	sink     *recordingSink
	service  *EngagementService
}

func newEngagementFixture() *engagementFixture {
	f := &engagementFixture{
		events:   new(MockQueryEventRepository),
		actions:  new(MockQueryActionRepository),
		faqs:     new(MockFAQRepository),
		sessions: new(MockSessionRepository),
		sink:     &recordingSink{},
	}
	f.txRunner = &testTxRunner{repos: &testTxRepos{
		faqs:     f.faqs,
		events:   f.events,
		actions:  f.actions,
		sessions: f.sessions,
	}}
	f.service = NewEngagementServiceWithUUIDGen(f.events, f.actions, f.faqs, f.txRunner, f.sink, nil, NewMockUUIDGenerator("browse-1"))
	f.service.clock = func() time.Time { return fixedNow }
	return f
}

var (
	resetEvent = &domain.QueryEvent{ID: "event-1", ChatbotID: "bot-1", Query: "reset password", ResultCount: 2}
	resetFAQ   = &domain.FAQ{ID: "faq-reset", ChatbotID: "bot-1", Question: "How do I reset my password?"}
	foreignFAQ = &domain.FAQ{ID: "faq-other", ChatbotID: "bot-2", Question: "Shipping times"}
)

func TestEngagementService_RecordAction(t *testing.T) {
	ctx := context.Background()

	t.Run("first view refreshes read count and bumps hit counter", func(t *testing.T) {
		f := newEngagementFixture()
		f.events.On("GetByID", mock.Anything, "event-1").Return(resetEvent, nil)
		f.faqs.On("GetByID", mock.Anything, "faq-reset").Return(resetFAQ, nil)
		f.actions.On("Upsert", mock.Anything, mock.MatchedBy(func(a *domain.QueryAction) bool {
			return a.EventID == "event-1" && a.FAQID == "faq-reset" && a.Action == domain.ActionViewed
		})).Return(domain.ActionKind(""), nil)
		f.events.On("RefreshReadCount", mock.Anything, "event-1").Return(1, nil)
		f.faqs.On("IncrementHit", mock.Anything, "faq-reset", fixedNow).Return(nil)

		out, err := f.service.RecordAction(ctx, RecordActionInput{EventID: "event-1", FAQID: "faq-reset", Action: domain.ActionViewed})

		require.NoError(t, err)
		assert.Equal(t, domain.ActionViewed, out.Action.Action)
		assert.Empty(t, out.Absorbed)
		f.events.AssertExpectations(t)
		f.faqs.AssertExpectations(t)
	})

	t.Run("repeated view does not bump hit counter again", func(t *testing.T) {
		f := newEngagementFixture()
		f.events.On("GetByID", mock.Anything, "event-1").Return(resetEvent, nil)
		f.faqs.On("GetByID", mock.Anything, "faq-reset").Return(resetFAQ, nil)
		f.actions.On("Upsert", mock.Anything, mock.Anything).Return(domain.ActionViewed, nil)
		f.events.On("RefreshReadCount", mock.Anything, "event-1").Return(1, nil)

		_, err := f.service.RecordAction(ctx, RecordActionInput{EventID: "event-1", FAQID: "faq-reset", Action: domain.ActionViewed})

		require.NoError(t, err)
		f.faqs.AssertNotCalled(t, "IncrementHit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("like touches neither counter", func(t *testing.T) {
		f := newEngagementFixture()
		f.events.On("GetByID", mock.Anything, "event-1").Return(resetEvent, nil)
		f.faqs.On("GetByID", mock.Anything, "faq-reset").Return(resetFAQ, nil)
		f.actions.On("Upsert", mock.Anything, mock.Anything).Return(domain.ActionViewed, nil)

		out, err := f.service.RecordAction(ctx, RecordActionInput{EventID: "event-1", FAQID: "faq-reset", Action: domain.ActionLike})

		require.NoError(t, err)
		assert.Equal(t, domain.ActionLike, out.Action.Action)
		f.events.AssertNotCalled(t, "RefreshReadCount", mock.Anything, mock.Anything)
		f.faqs.AssertNotCalled(t, "IncrementHit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid action", func(t *testing.T) {
		f := newEngagementFixture()

		_, err := f.service.RecordAction(ctx, RecordActionInput{EventID: "event-1", FAQID: "faq-reset", Action: "shared"})

		assert.ErrorIs(t, err, domain.ErrInvalidActionKind)
		f.events.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("missing event", func(t *testing.T) {
		f := newEngagementFixture()
		f.events.On("GetByID", mock.Anything, "nope").Return(nil, domain.NewDomainError(domain.ErrCodeNotFound, "query event not found"))

		_, err := f.service.RecordAction(ctx, RecordActionInput{EventID: "nope", FAQID: "faq-reset", Action: domain.ActionViewed})

		assert.ErrorIs(t, err, domain.ErrEventNotFound)
	})

	t.Run("candidate of another chatbot", func(t *testing.T) {
		f := newEngagementFixture()
		f.events.On("GetByID", mock.Anything, "event-1").Return(resetEvent, nil)
		f.faqs.On("GetByID", mock.Anything, "faq-other").Return(foreignFAQ, nil)

		_, err := f.service.RecordAction(ctx, RecordActionInput{EventID: "event-1", FAQID: "faq-other", Action: domain.ActionViewed})

		assert.ErrorIs(t, err, domain.ErrFAQNotFound)
		f.actions.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("upsert failure is reported", func(t *testing.T) {
		f := newEngagementFixture()
		f.events.On("GetByID", mock.Anything, "event-1").Return(resetEvent, nil)
		f.faqs.On("GetByID", mock.Anything, "faq-reset").Return(resetFAQ, nil)
		f.actions.On("Upsert", mock.Anything, mock.Anything).Return(domain.ActionKind(""), errors.New("deadlock detected"))

		_, err := f.service.RecordAction(ctx, RecordActionInput{EventID: "event-1", FAQID: "faq-reset", Action: domain.ActionDislike})

		assert.Equal(t, domain.ErrCodeValidation, domain.ErrorCode(err))
		assert.ErrorContains(t, err, "record action failed")
	})

	t.Run("counter failures are absorbed", func(t *testing.T) {
		f := newEngagementFixture()
		f.events.On("GetByID", mock.Anything, "event-1").Return(resetEvent, nil)
		f.faqs.On("GetByID", mock.Anything, "faq-reset").Return(resetFAQ, nil)
		f.actions.On("Upsert", mock.Anything, mock.Anything).Return(domain.ActionNotViewed, nil)
		f.events.On("RefreshReadCount", mock.Anything, "event-1").Return(0, errors.New("timeout"))
		f.faqs.On("IncrementHit", mock.Anything, "faq-reset", fixedNow).Return(errors.New("timeout"))

		out, err := f.service.RecordAction(ctx, RecordActionInput{EventID: "event-1", FAQID: "faq-reset", Action: domain.ActionViewed})

		require.NoError(t, err)
		require.Len(t, out.Absorbed, 2)
		assert.Equal(t, []Stage{StageReadCount, StageHitCounter}, f.sink.stages())
	})
}

func TestEngagementService_RecordBrowse(t *testing.T) {
	ctx := context.Background()

	t.Run("without session nothing is written", func(t *testing.T) {
		f := newEngagementFixture()
		f.faqs.On("GetByID", mock.Anything, "faq-reset").Return(resetFAQ, nil)

		out, err := f.service.RecordBrowse(ctx, RecordBrowseInput{ChatbotID: "bot-1", FAQID: "faq-reset"})

		require.NoError(t, err)
		assert.Empty(t, out.EventID)
		assert.False(t, f.txRunner.called)
	})

	t.Run("with session logs a one-result one-read event", func(t *testing.T) {
		f := newEngagementFixture()
		f.faqs.On("GetByID", mock.Anything, "faq-reset").Return(resetFAQ, nil)
		f.events.On("Create", mock.Anything, mock.MatchedBy(func(e *domain.QueryEvent) bool {
			return e.ID == "browse-1" && e.ChatbotID == "bot-1" && e.Query == resetFAQ.Question &&
				e.ResultCount == 1 && e.ReadCount == 1 && e.SessionID != nil && *e.SessionID == "sess-1"
		})).Return(nil)
		f.actions.On("Upsert", mock.Anything, mock.MatchedBy(func(a *domain.QueryAction) bool {
			return a.EventID == "browse-1" && a.FAQID == "faq-reset" && a.Action == domain.ActionViewed
		})).Return(domain.ActionKind(""), nil)
		f.faqs.On("IncrementHit", mock.Anything, "faq-reset", fixedNow).Return(nil)
		f.sessions.On("IncrementQueryCount", mock.Anything, "sess-1", fixedNow).Return(nil)

		out, err := f.service.RecordBrowse(ctx, RecordBrowseInput{
			ChatbotID: "bot-1",
			FAQID:     "faq-reset",
			Session:   domain.SessionPresent("sess-1"),
		})

		require.NoError(t, err)
		assert.Equal(t, "browse-1", out.EventID)
		assert.Empty(t, out.Absorbed)
		f.events.AssertExpectations(t)
		f.actions.AssertExpectations(t)
		f.faqs.AssertExpectations(t)
		f.sessions.AssertExpectations(t)
	})

	t.Run("foreign candidate", func(t *testing.T) {
		for _, session := range []domain.SessionRef{domain.NoSession(), domain.SessionPresent("sess-1")} {
			f := newEngagementFixture()
			f.faqs.On("GetByID", mock.Anything, "faq-other").Return(foreignFAQ, nil)

			_, err := f.service.RecordBrowse(ctx, RecordBrowseInput{ChatbotID: "bot-1", FAQID: "faq-other", Session: session})

			assert.ErrorIs(t, err, domain.ErrFAQNotFound)
			assert.False(t, f.txRunner.called)
		}
	})

	t.Run("missing candidate", func(t *testing.T) {
		f := newEngagementFixture()
		f.faqs.On("GetByID", mock.Anything, "gone").Return(nil, domain.NewDomainError(domain.ErrCodeNotFound, "faq not found"))

		_, err := f.service.RecordBrowse(ctx, RecordBrowseInput{ChatbotID: "bot-1", FAQID: "gone", Session: domain.SessionPresent("sess-1")})

		assert.ErrorIs(t, err, domain.ErrFAQNotFound)
	})

	t.Run("log failure is absorbed", func(t *testing.T) {
		f := newEngagementFixture()
		f.faqs.On("GetByID", mock.Anything, "faq-reset").Return(resetFAQ, nil)
		f.events.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

		out, err := f.service.RecordBrowse(ctx, RecordBrowseInput{ChatbotID: "bot-1", FAQID: "faq-reset", Session: domain.SessionPresent("sess-1")})

		require.NoError(t, err)
		assert.Empty(t, out.EventID)
		assert.Equal(t, []Stage{StageBrowseLog}, f.sink.stages())
	})
}
