package service

import (
	"context"
	"sync"
	"time"

	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/cloo-solutions/faqdesk/internal/pagination"
	"github.com/stretchr/testify/mock"
)

// MockChatbotRepository is a mock implementation of ChatbotRepositoryInterface
type MockChatbotRepository struct {
	mock.Mock
}

func (m *MockChatbotRepository) Create(ctx context.Context, chatbot *domain.Chatbot) error {
	args := m.Called(ctx, chatbot)
	return args.Error(0)
}

func (m *MockChatbotRepository) GetByID(ctx context.Context, id string) (*domain.Chatbot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chatbot), args.Error(1)
}

func (m *MockChatbotRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Chatbot, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Chatbot), args.Error(1)
}

func (m *MockChatbotRepository) UpdateStatus(ctx context.Context, id string, status domain.ChatbotStatus, at time.Time) error {
	args := m.Called(ctx, id, status, at)
	return args.Error(0)
}

func (m *MockChatbotRepository) UpdateQueryLimit(ctx context.Context, id string, limit int, at time.Time) error {
	args := m.Called(ctx, id, limit, at)
	return args.Error(0)
}

// MockFAQRepository is a mock implementation of FAQRepositoryInterface
type MockFAQRepository struct {
	mock.Mock
}

func (m *MockFAQRepository) Create(ctx context.Context, faq *domain.FAQ) error {
	args := m.Called(ctx, faq)
	return args.Error(0)
}

func (m *MockFAQRepository) GetByID(ctx context.Context, id string) (*domain.FAQ, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FAQ), args.Error(1)
}

func (m *MockFAQRepository) GetByIDs(ctx context.Context, chatbotID string, ids []string) ([]*domain.FAQ, error) {
	args := m.Called(ctx, chatbotID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.FAQ), args.Error(1)
}

func (m *MockFAQRepository) ListByChatbot(ctx context.Context, chatbotID string) ([]*domain.FAQ, error) {
	args := m.Called(ctx, chatbotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.FAQ), args.Error(1)
}

func (m *MockFAQRepository) IncrementHit(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// MockEmbeddingJobRepository is a mock implementation of EmbeddingJobRepositoryInterface
type MockEmbeddingJobRepository struct {
	mock.Mock
}

func (m *MockEmbeddingJobRepository) Create(ctx context.Context, job *domain.EmbeddingJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// MockQueryEventRepository is a mock implementation of QueryEventRepositoryInterface
type MockQueryEventRepository struct {
	mock.Mock
}

func (m *MockQueryEventRepository) Create(ctx context.Context, event *domain.QueryEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockQueryEventRepository) GetByID(ctx context.Context, id string) (*domain.QueryEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QueryEvent), args.Error(1)
}

func (m *MockQueryEventRepository) RefreshReadCount(ctx context.Context, id string) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *MockQueryEventRepository) SetIgnored(ctx context.Context, chatbotID, query string, ignored bool) (int64, error) {
	args := m.Called(ctx, chatbotID, query, ignored)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQueryEventRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockQueryEventRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQueryEventRepository) List(ctx context.Context, filter EventFilter, cursor *pagination.Cursor, limit int) (*EventPage, error) {
	args := m.Called(ctx, filter, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*EventPage), args.Error(1)
}

func (m *MockQueryEventRepository) Aggregate(ctx context.Context, chatbotID string, window domain.TimeWindow) (*EventAggregate, error) {
	args := m.Called(ctx, chatbotID, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*EventAggregate), args.Error(1)
}

func (m *MockQueryEventRepository) ZeroResultQueries(ctx context.Context, chatbotID string, window domain.TimeWindow, limit int) ([]domain.QueryFrequency, error) {
	args := m.Called(ctx, chatbotID, window, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.QueryFrequency), args.Error(1)
}

// MockQueryActionRepository is a mock implementation of QueryActionRepositoryInterface
type MockQueryActionRepository struct {
	mock.Mock
}

func (m *MockQueryActionRepository) Upsert(ctx context.Context, action *domain.QueryAction) (domain.ActionKind, error) {
	args := m.Called(ctx, action)
	return args.Get(0).(domain.ActionKind), args.Error(1)
}

func (m *MockQueryActionRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.QueryAction, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.QueryAction), args.Error(1)
}

func (m *MockQueryActionRepository) DeleteByEvent(ctx context.Context, eventID string) (int64, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQueryActionRepository) DeleteForEventsCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQueryActionRepository) Distribution(ctx context.Context, chatbotID string, window domain.TimeWindow) (map[domain.ActionKind]int64, error) {
	args := m.Called(ctx, chatbotID, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.ActionKind]int64), args.Error(1)
}

func (m *MockQueryActionRepository) TopViewed(ctx context.Context, chatbotID string, window domain.TimeWindow, limit int) ([]domain.CandidateHits, error) {
	args := m.Called(ctx, chatbotID, window, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CandidateHits), args.Error(1)
}

// MockSessionRepository is a mock implementation of SessionRepositoryInterface
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.ChatSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id string) (*domain.ChatSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatSession), args.Error(1)
}

func (m *MockSessionRepository) IncrementQueryCount(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// MockUUIDGenerator is a mock implementation of UUIDGenerator
type MockUUIDGenerator struct {
	mu        sync.Mutex
	callCount int
	uuids     []string
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (m *MockUUIDGenerator) NewString() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.callCount < len(m.uuids) {
		uuid := m.uuids[m.callCount]
		m.callCount++
		return uuid
	}
	return "default-uuid"
}

// recordingSink captures absorbed failures
type recordingSink struct {
	mu       sync.Mutex
	failures []AbsorbedFailure
}

func (r *recordingSink) Absorbed(_ context.Context, failure AbsorbedFailure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, failure)
}

func (r *recordingSink) stages() []Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Stage, 0, len(r.failures))
	for _, f := range r.failures {
		out = append(out, f.Stage)
	}
	return out
}

func activeChatbot(id, tenantID string) *domain.Chatbot {
	bot := domain.NewChatbot(id, tenantID, "Support", 0, time.Now().UTC())
	bot.Status = domain.ChatbotStatusActive
	return bot
}

var fixedNow = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

// resetFAQWithAnswer is the password-reset entry with its answer text filled in.
func resetFAQWithAnswer() *domain.FAQ {
	return &domain.FAQ{
		ID:        "faq-reset",
		ChatbotID: "bot-1",
		Question:  "How do I reset my password?",
		Answer:    "Use the link.",
	}
}
