package service

import (
	"context"
	"strings"

	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/cloo-solutions/faqdesk/internal/pagination"
	"github.com/cloo-solutions/faqdesk/internal/telemetry"
)

const (
	defaultEventPageSize = 50
	maxEventPageSize     = 200
	leaderboardSize      = 10
)

// AnalyticsService answers operator questions about a chatbot's traffic
type AnalyticsService struct {
	chatbots ChatbotRepositoryInterface
	events   QueryEventRepositoryInterface
	actions  QueryActionRepositoryInterface
	txRunner TxRunner
}

func NewAnalyticsService(
	chatbots ChatbotRepositoryInterface,
	events QueryEventRepositoryInterface,
	actions QueryActionRepositoryInterface,
	txRunner TxRunner,
) *AnalyticsService {
	return &AnalyticsService{
		chatbots: chatbots,
		events:   events,
		actions:  actions,
		txRunner: txRunner,
	}
}

// Stats aggregates non-ignored events in the window. Ignored events are only
// counted in IgnoredCount.
func (s *AnalyticsService) Stats(ctx context.Context, tenantID, chatbotID string, window domain.TimeWindow) (*domain.EventStats, error) {
	ctx, span := telemetry.StartSpan(ctx, "AnalyticsService.Stats", telemetry.SpanAttributes{
		TenantID:  tenantID,
		ChatbotID: chatbotID,
		Operation: "stats",
	})
	defer span.End()

	if err := window.Validate(); err != nil {
		return nil, err
	}
	if _, err := ownedChatbot(ctx, s.chatbots, tenantID, chatbotID); err != nil {
		return nil, err
	}

	agg, err := s.events.Aggregate(ctx, chatbotID, window)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	feedback, err := s.actions.Distribution(ctx, chatbotID, window)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	top, err := s.actions.TopViewed(ctx, chatbotID, window, leaderboardSize)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	zero, err := s.events.ZeroResultQueries(ctx, chatbotID, window, leaderboardSize)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	stats := &domain.EventStats{
		Total:          agg.Total,
		IgnoredCount:   agg.IgnoredCount,
		AvgResultCount: agg.AvgResultCount,
		AvgReadCount:   agg.AvgReadCount,
		Feedback:       make(map[domain.ActionKind]int64, len(domain.ActionKinds)),
		TopCandidates:  top,
		ZeroResults:    zero,
	}
	if stats.Total == 0 {
		stats.AvgResultCount = 0
		stats.AvgReadCount = 0
	}
	for _, kind := range domain.ActionKinds {
		stats.Feedback[kind] = feedback[kind]
	}
	if stats.TopCandidates == nil {
		stats.TopCandidates = []domain.CandidateHits{}
	}
	if stats.ZeroResults == nil {
		stats.ZeroResults = []domain.QueryFrequency{}
	}

	return stats, nil
}

// ListEventsInput filters and pages a chatbot's events
type ListEventsInput struct {
	TenantID string
	Filter   EventFilter
	Cursor   string
	Limit    int
}

// ListEvents returns events newest first
func (s *AnalyticsService) ListEvents(ctx context.Context, input ListEventsInput) (*EventPage, error) {
	ctx, span := telemetry.StartSpan(ctx, "AnalyticsService.ListEvents", telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		ChatbotID: input.Filter.ChatbotID,
		Operation: "list_events",
	})
	defer span.End()

	if err := input.Filter.Window.Validate(); err != nil {
		return nil, err
	}
	if _, err := ownedChatbot(ctx, s.chatbots, input.TenantID, input.Filter.ChatbotID); err != nil {
		return nil, err
	}

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	limit := pagination.ClampLimit(input.Limit, defaultEventPageSize, maxEventPageSize)
	page, err := s.events.List(ctx, input.Filter, cursor, limit)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if page.Items == nil {
		page.Items = []*domain.QueryEvent{}
	}
	return page, nil
}

// ListActions returns the action records of an event
func (s *AnalyticsService) ListActions(ctx context.Context, tenantID, eventID string) ([]*domain.QueryAction, error) {
	ctx, span := telemetry.StartSpan(ctx, "AnalyticsService.ListActions", telemetry.SpanAttributes{
		TenantID:  tenantID,
		EventID:   eventID,
		Operation: "list_actions",
	})
	defer span.End()

	if _, err := s.ownedEvent(ctx, tenantID, eventID); err != nil {
		return nil, err
	}

	actions, err := s.actions.ListByEvent(ctx, eventID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if actions == nil {
		actions = []*domain.QueryAction{}
	}
	return actions, nil
}

// IgnoreQuery flags every event of the chatbot whose query text matches
// exactly, and returns how many were changed.
func (s *AnalyticsService) IgnoreQuery(ctx context.Context, tenantID, chatbotID, query string, ignored bool) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "AnalyticsService.IgnoreQuery", telemetry.SpanAttributes{
		TenantID:  tenantID,
		ChatbotID: chatbotID,
		Operation: "ignore_query",
	})
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return 0, domain.ErrEmptyQuery
	}
	if _, err := ownedChatbot(ctx, s.chatbots, tenantID, chatbotID); err != nil {
		return 0, err
	}

	affected, err := s.events.SetIgnored(ctx, chatbotID, query, ignored)
	if err != nil {
		span.SetError(err)
		return 0, err
	}
	return affected, nil
}

// DeleteEvent removes an event's action records, then the event, in one
// transaction. A missing event is reported before anything is written.
func (s *AnalyticsService) DeleteEvent(ctx context.Context, tenantID, eventID string) error {
	ctx, span := telemetry.StartSpan(ctx, "AnalyticsService.DeleteEvent", telemetry.SpanAttributes{
		TenantID:  tenantID,
		EventID:   eventID,
		Operation: "delete_event",
	})
	defer span.End()

	if _, err := s.ownedEvent(ctx, tenantID, eventID); err != nil {
		return err
	}

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if _, err := repos.Actions().DeleteByEvent(ctx, eventID); err != nil {
			return err
		}
		return repos.Events().Delete(ctx, eventID)
	})
	if err != nil {
		span.SetError(err)
		return notFoundOr(err, domain.ErrEventNotFound)
	}
	return nil
}

func (s *AnalyticsService) ownedEvent(ctx context.Context, tenantID, eventID string) (*domain.QueryEvent, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, notFoundOr(err, domain.ErrEventNotFound)
	}
	if _, err := ownedChatbot(ctx, s.chatbots, tenantID, event.ChatbotID); err != nil {
		return nil, notFoundOr(err, domain.ErrEventNotFound)
	}
	return event, nil
}
