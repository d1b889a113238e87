package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/cloo-solutions/faqdesk/internal/pagination"
)

// EventFilter narrows an event listing. Zero fields do not filter.
type EventFilter struct {
	ChatbotID       string
	Window          domain.TimeWindow
	SessionID       string
	Ignored         *bool
	ZeroResultsOnly bool
	QueryContains   string
}

// EventPage is one keyset page of query events, newest first
type EventPage struct {
	Items      []*domain.QueryEvent
	NextCursor string
	HasMore    bool
}

// EventAggregate holds the scalar event statistics of a chatbot
type EventAggregate struct {
	Total          int64
	IgnoredCount   int64
	AvgResultCount float64
	AvgReadCount   float64
}

// QueryEventRepositoryInterface defines persistence for query events
type QueryEventRepositoryInterface interface {
	Create(ctx context.Context, event *domain.QueryEvent) error
	GetByID(ctx context.Context, id string) (*domain.QueryEvent, error)
	// RefreshReadCount recounts distinct viewed candidates and never lowers the stored value.
	RefreshReadCount(ctx context.Context, id string) (int, error)
	SetIgnored(ctx context.Context, chatbotID, query string, ignored bool) (int64, error)
	Delete(ctx context.Context, id string) error
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	List(ctx context.Context, filter EventFilter, cursor *pagination.Cursor, limit int) (*EventPage, error)
	Aggregate(ctx context.Context, chatbotID string, window domain.TimeWindow) (*EventAggregate, error)
	ZeroResultQueries(ctx context.Context, chatbotID string, window domain.TimeWindow, limit int) ([]domain.QueryFrequency, error)
}

// QueryActionRepositoryInterface defines persistence for per-candidate actions
type QueryActionRepositoryInterface interface {
	// Upsert writes the action for (event, faq) and returns the action it
	// replaced, or "" when the pair was new.
	Upsert(ctx context.Context, action *domain.QueryAction) (domain.ActionKind, error)
	ListByEvent(ctx context.Context, eventID string) ([]*domain.QueryAction, error)
	DeleteByEvent(ctx context.Context, eventID string) (int64, error)
	DeleteForEventsCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Distribution(ctx context.Context, chatbotID string, window domain.TimeWindow) (map[domain.ActionKind]int64, error)
	TopViewed(ctx context.Context, chatbotID string, window domain.TimeWindow, limit int) ([]domain.CandidateHits, error)
}

// SessionRepositoryInterface defines persistence for chat sessions
type SessionRepositoryInterface interface {
	Create(ctx context.Context, session *domain.ChatSession) error
	GetByID(ctx context.Context, id string) (*domain.ChatSession, error)
	IncrementQueryCount(ctx context.Context, id string, at time.Time) error
}
