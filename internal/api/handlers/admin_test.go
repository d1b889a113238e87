package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/faqdesk/internal/api/middleware"
	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/cloo-solutions/faqdesk/internal/service"
)

type MockChatbotService struct {
	mock.Mock
}

func (m *MockChatbotService) Create(ctx context.Context, tenantID, name string, limit int) (*domain.Chatbot, error) {
	args := m.Called(ctx, tenantID, name, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chatbot), args.Error(1)
}

func (m *MockChatbotService) Get(ctx context.Context, tenantID, chatbotID string) (*domain.Chatbot, error) {
	args := m.Called(ctx, tenantID, chatbotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chatbot), args.Error(1)
}

func (m *MockChatbotService) List(ctx context.Context, tenantID string) ([]*domain.Chatbot, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Chatbot), args.Error(1)
}

func (m *MockChatbotService) SetStatus(ctx context.Context, tenantID, chatbotID string, status domain.ChatbotStatus) (*domain.Chatbot, error) {
	args := m.Called(ctx, tenantID, chatbotID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chatbot), args.Error(1)
}

func (m *MockChatbotService) SetQueryLimit(ctx context.Context, tenantID, chatbotID string, limit int) (*domain.Chatbot, error) {
	args := m.Called(ctx, tenantID, chatbotID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chatbot), args.Error(1)
}

type MockFAQService struct {
	mock.Mock
}

func (m *MockFAQService) Create(ctx context.Context, input service.CreateFAQInput) (*domain.FAQ, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FAQ), args.Error(1)
}

func (m *MockFAQService) List(ctx context.Context, tenantID, chatbotID string) ([]*domain.FAQ, error) {
	args := m.Called(ctx, tenantID, chatbotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.FAQ), args.Error(1)
}

type MockMediaService struct {
	mock.Mock
}

func (m *MockMediaService) InitUpload(ctx context.Context, input service.InitUploadInput) (*service.InitUploadResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.InitUploadResult), args.Error(1)
}

type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) Stats(ctx context.Context, tenantID, chatbotID string, window domain.TimeWindow) (*domain.EventStats, error) {
	args := m.Called(ctx, tenantID, chatbotID, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EventStats), args.Error(1)
}

func (m *MockAnalyticsService) ListEvents(ctx context.Context, input service.ListEventsInput) (*service.EventPage, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.EventPage), args.Error(1)
}

func (m *MockAnalyticsService) ListActions(ctx context.Context, tenantID, eventID string) ([]*domain.QueryAction, error) {
	args := m.Called(ctx, tenantID, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.QueryAction), args.Error(1)
}

func (m *MockAnalyticsService) IgnoreQuery(ctx context.Context, tenantID, chatbotID, query string, ignored bool) (int64, error) {
	args := m.Called(ctx, tenantID, chatbotID, query, ignored)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAnalyticsService) DeleteEvent(ctx context.Context, tenantID, eventID string) error {
	args := m.Called(ctx, tenantID, eventID)
	return args.Error(0)
}

// withTenant stands in for the API key middleware
func withTenant(tenantID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tenantID != "" {
				r = r.WithContext(context.WithValue(r.Context(), middleware.TenantIDKey, tenantID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

type adminDeps struct {
	chatbots  *MockChatbotService
	answers   *MockAnswerService
	faqs      *MockFAQService
	media     *MockMediaService
	analytics *MockAnalyticsService
}

func newAdminDeps() *adminDeps {
	return &adminDeps{
		chatbots:  new(MockChatbotService),
		answers:   new(MockAnswerService),
		faqs:      new(MockFAQService),
		media:     new(MockMediaService),
		analytics: new(MockAnalyticsService),
	}
}

func adminRouter(d *adminDeps, tenantID string) http.Handler {
	bots := NewChatbotHandler(d.chatbots, d.answers)
	faqs := NewFAQHandler(d.faqs, d.media)
	analytics := NewAnalyticsHandler(d.analytics)

	r := chi.NewRouter()
	r.Use(withTenant(tenantID))
	r.Post("/chatbots", bots.Create)
	r.Get("/chatbots", bots.List)
	r.Get("/chatbots/{chatbotID}", bots.Get)
	r.Put("/chatbots/{chatbotID}/status", bots.SetStatus)
	r.Put("/chatbots/{chatbotID}/quota", bots.SetQueryLimit)
	r.Post("/chatbots/{chatbotID}/preview", bots.Preview)
	r.Post("/chatbots/{chatbotID}/faqs", faqs.Create)
	r.Get("/chatbots/{chatbotID}/faqs", faqs.List)
	r.Post("/chatbots/{chatbotID}/media", faqs.InitMediaUpload)
	r.Get("/chatbots/{chatbotID}/stats", analytics.Stats)
	r.Get("/chatbots/{chatbotID}/events", analytics.ListEvents)
	r.Put("/chatbots/{chatbotID}/ignored-queries", analytics.IgnoreQuery)
	r.Get("/events/{eventID}/actions", analytics.ListActions)
	r.Delete("/events/{eventID}", analytics.DeleteEvent)
	return r
}

func doRequest(handler http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestChatbotHandler(t *testing.T) {
	created := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	bot := &domain.Chatbot{ID: "bot-1", TenantID: "tenant-1", Name: "Support", Status: domain.ChatbotStatusDraft, CreatedAt: created, UpdatedAt: created}

	t.Run("create", func(t *testing.T) {
		d := newAdminDeps()
		d.chatbots.On("Create", mock.Anything, "tenant-1", "Support", 1000).Return(bot, nil)

		w := postJSON(t, adminRouter(d, "tenant-1"), "/chatbots", CreateChatbotRequest{Name: "Support", MonthlyQueryLimit: 1000}, nil)

		require.Equal(t, http.StatusCreated, w.Code)
		var resp ChatbotResponse
		decodeData(t, w, &resp)
		assert.Equal(t, "bot-1", resp.ID)
		assert.Equal(t, "draft", resp.Status)
	})

	t.Run("create rejects negative limit", func(t *testing.T) {
		d := newAdminDeps()

		w := postJSON(t, adminRouter(d, "tenant-1"), "/chatbots", map[string]interface{}{"name": "x", "monthly_query_limit": -1}, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeError(t, w).Error, "monthly_query_limit")
	})

	t.Run("requires tenant", func(t *testing.T) {
		d := newAdminDeps()

		w := doRequest(adminRouter(d, ""), http.MethodGet, "/chatbots")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("status", func(t *testing.T) {
		d := newAdminDeps()
		active := *bot
		active.Status = domain.ChatbotStatusActive
		d.chatbots.On("SetStatus", mock.Anything, "tenant-1", "bot-1", domain.ChatbotStatusActive).Return(&active, nil)

		router := adminRouter(d, "tenant-1")
		req := httptest.NewRequest(http.MethodPut, "/chatbots/bot-1/status", stringsReader(`{"status":"active"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"active"`)

		req = httptest.NewRequest(http.MethodPut, "/chatbots/bot-1/status", stringsReader(`{"status":"archived"}`))
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("quota accepts zero", func(t *testing.T) {
		d := newAdminDeps()
		d.chatbots.On("SetQueryLimit", mock.Anything, "tenant-1", "bot-1", 0).Return(bot, nil)

		req := httptest.NewRequest(http.MethodPut, "/chatbots/bot-1/quota", stringsReader(`{"monthly_query_limit":0}`))
		w := httptest.NewRecorder()
		adminRouter(d, "tenant-1").ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		d.chatbots.AssertExpectations(t)
	})

	t.Run("preview uses preview mode without session", func(t *testing.T) {
		d := newAdminDeps()
		d.chatbots.On("Get", mock.Anything, "tenant-1", "bot-1").Return(bot, nil)
		d.answers.On("Answer", mock.Anything, service.AnswerInput{
			ChatbotID: "bot-1",
			Query:     "hello",
			Session:   domain.NoSession(),
			Mode:      domain.AnswerModePreview,
		}).Return(&service.AnswerOutput{Candidates: []*service.AnsweredCandidate{}}, nil)

		w := postJSON(t, adminRouter(d, "tenant-1"), "/chatbots/bot-1/preview", AskRequest{Query: "hello"}, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		d.answers.AssertExpectations(t)
	})

	t.Run("preview of another tenant's chatbot", func(t *testing.T) {
		d := newAdminDeps()
		d.chatbots.On("Get", mock.Anything, "tenant-2", "bot-1").Return(nil, domain.ErrChatbotNotFound)

		w := postJSON(t, adminRouter(d, "tenant-2"), "/chatbots/bot-1/preview", AskRequest{Query: "hello"}, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		d.answers.AssertNotCalled(t, "Answer", mock.Anything, mock.Anything)
	})
}

func TestFAQHandler(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		d := newAdminDeps()
		d.faqs.On("Create", mock.Anything, service.CreateFAQInput{
			TenantID:  "tenant-1",
			ChatbotID: "bot-1",
			Question:  "How do I reset my password?",
			Answer:    "Use the link.",
			Layout:    "text",
		}).Return(&domain.FAQ{ID: "faq-1", ChatbotID: "bot-1", Question: "How do I reset my password?", Answer: "Use the link.", Layout: domain.FAQLayoutText}, nil)

		w := postJSON(t, adminRouter(d, "tenant-1"), "/chatbots/bot-1/faqs", CreateFAQRequest{
			Question: "How do I reset my password?",
			Answer:   "Use the link.",
			Layout:   "text",
		}, nil)

		require.Equal(t, http.StatusCreated, w.Code)
		var resp FAQResponse
		decodeData(t, w, &resp)
		assert.Equal(t, "faq-1", resp.ID)
	})

	t.Run("bad layout", func(t *testing.T) {
		d := newAdminDeps()

		w := postJSON(t, adminRouter(d, "tenant-1"), "/chatbots/bot-1/faqs", CreateFAQRequest{Question: "q", Answer: "a", Layout: "carousel"}, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("media upload", func(t *testing.T) {
		d := newAdminDeps()
		d.media.On("InitUpload", mock.Anything, service.InitUploadInput{
			TenantID: "tenant-1", ChatbotID: "bot-1", Filename: "reset.png", ContentType: "image/png",
		}).Return(&service.InitUploadResult{MediaKey: "tenant-1/bot-1/m/reset.png", UploadURL: "https://s3/put"}, nil)

		w := postJSON(t, adminRouter(d, "tenant-1"), "/chatbots/bot-1/media", MediaUploadRequest{Filename: "reset.png", ContentType: "image/png"}, nil)

		require.Equal(t, http.StatusCreated, w.Code)
		var resp MediaUploadResponse
		decodeData(t, w, &resp)
		assert.Equal(t, "https://s3/put", resp.UploadURL)
	})

	t.Run("media without storage", func(t *testing.T) {
		faqs := NewFAQHandler(new(MockFAQService), nil)
		r := chi.NewRouter()
		r.Use(withTenant("tenant-1"))
		r.Post("/chatbots/{chatbotID}/media", faqs.InitMediaUpload)

		w := postJSON(t, r, "/chatbots/bot-1/media", MediaUploadRequest{Filename: "a.png", ContentType: "image/png"}, nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestAnalyticsHandler_Stats(t *testing.T) {
	d := newAdminDeps()
	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	d.analytics.On("Stats", mock.Anything, "tenant-1", "bot-1", domain.TimeWindow{From: &from}).Return(&domain.EventStats{
		Total:          2,
		AvgResultCount: 1.5,
		Feedback:       map[domain.ActionKind]int64{domain.ActionViewed: 2, domain.ActionLike: 0},
		TopCandidates:  []domain.CandidateHits{{FAQID: "faq-reset", Question: "Reset?", Views: 2}},
		ZeroResults:    []domain.QueryFrequency{},
	}, nil)

	router := adminRouter(d, "tenant-1")
	w := doRequest(router, http.MethodGet, "/chatbots/bot-1/stats?from=2026-05-01T00:00:00Z")

	require.Equal(t, http.StatusOK, w.Code)
	var resp StatsResponse
	decodeData(t, w, &resp)
	assert.Equal(t, int64(2), resp.Total)
	assert.Equal(t, int64(2), resp.Feedback["viewed"])
	require.Len(t, resp.TopCandidates, 1)
	assert.NotNil(t, resp.ZeroResults)

	w = doRequest(router, http.MethodGet, "/chatbots/bot-1/stats?from=yesterday")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodGet, "/chatbots/bot-1/stats?from=2026-05-02T00:00:00Z&to=2026-05-01T00:00:00Z")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyticsHandler_ListEvents(t *testing.T) {
	d := newAdminDeps()
	ignored := false
	session := "sess-1"
	d.analytics.On("ListEvents", mock.Anything, service.ListEventsInput{
		TenantID: "tenant-1",
		Filter: service.EventFilter{
			ChatbotID:       "bot-1",
			SessionID:       "sess-1",
			Ignored:         &ignored,
			ZeroResultsOnly: true,
			QueryContains:   "refund",
		},
		Cursor: "abc",
		Limit:  20,
	}).Return(&service.EventPage{
		Items:      []*domain.QueryEvent{{ID: "event-1", ChatbotID: "bot-1", SessionID: &session, Query: "refund policy"}},
		NextCursor: "next",
		HasMore:    true,
	}, nil)

	router := adminRouter(d, "tenant-1")
	q := url.Values{}
	q.Set("session_id", "sess-1")
	q.Set("ignored", "false")
	q.Set("zero_results", "true")
	q.Set("q", " refund ")
	q.Set("cursor", "abc")
	q.Set("limit", "20")
	w := doRequest(router, http.MethodGet, "/chatbots/bot-1/events?"+q.Encode())

	require.Equal(t, http.StatusOK, w.Code)
	var resp EventListResponse
	decodeData(t, w, &resp)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "sess-1", resp.Items[0].SessionID)
	assert.Equal(t, "next", resp.Cursor)
	assert.True(t, resp.HasMore)

	for _, bad := range []string{"ignored=maybe", "zero_results=2x", "limit=-1", "limit=ten"} {
		w = doRequest(router, http.MethodGet, "/chatbots/bot-1/events?"+bad)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}

func TestAnalyticsHandler_EventActions(t *testing.T) {
	at := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

	d := newAdminDeps()
	d.analytics.On("ListActions", mock.Anything, "tenant-1", "event-1").Return([]*domain.QueryAction{
		{EventID: "event-1", FAQID: "faq-reset", Action: domain.ActionViewed, CreatedAt: at, UpdatedAt: at},
	}, nil)
	d.analytics.On("ListActions", mock.Anything, "tenant-1", "gone").Return(nil, domain.ErrEventNotFound)
	d.analytics.On("DeleteEvent", mock.Anything, "tenant-1", "event-1").Return(nil)
	d.analytics.On("DeleteEvent", mock.Anything, "tenant-1", "gone").Return(domain.ErrEventNotFound)

	router := adminRouter(d, "tenant-1")

	w := doRequest(router, http.MethodGet, "/events/event-1/actions")
	require.Equal(t, http.StatusOK, w.Code)
	var actions []QueryActionResponse
	decodeData(t, w, &actions)
	require.Len(t, actions, 1)
	assert.Equal(t, "viewed", actions[0].Action)

	assert.Equal(t, http.StatusNotFound, doRequest(router, http.MethodGet, "/events/gone/actions").Code)
	assert.Equal(t, http.StatusNoContent, doRequest(router, http.MethodDelete, "/events/event-1").Code)
	assert.Equal(t, http.StatusNotFound, doRequest(router, http.MethodDelete, "/events/gone").Code)
}

func TestAnalyticsHandler_IgnoreQuery(t *testing.T) {
	d := newAdminDeps()
	d.analytics.On("IgnoreQuery", mock.Anything, "tenant-1", "bot-1", "test", true).Return(int64(4), nil)
	d.analytics.On("IgnoreQuery", mock.Anything, "tenant-1", "bot-1", "test", false).Return(int64(4), nil)

	router := adminRouter(d, "tenant-1")
	for _, body := range []string{`{"query":"test","ignored":true}`, `{"query":"test","ignored":false}`} {
		req := httptest.NewRequest(http.MethodPut, "/chatbots/bot-1/ignored-queries", stringsReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, body)
		assert.Contains(t, w.Body.String(), `"affected":4`)
	}

	req := httptest.NewRequest(http.MethodPut, "/chatbots/bot-1/ignored-queries", stringsReader(`{"query":"test"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
