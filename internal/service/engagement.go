package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/cloo-solutions/faqdesk/internal/telemetry"
)

// EngagementMetrics observes recorded end-user actions
type EngagementMetrics interface {
	ObserveAction(kind domain.ActionKind)
}

type nopEngagementMetrics struct{}

func (nopEngagementMetrics) ObserveAction(domain.ActionKind) {}

// EngagementService records what end users do with an answer
type EngagementService struct {
	events   QueryEventRepositoryInterface
	actions  QueryActionRepositoryInterface
	faqs     FAQRepositoryInterface
	txRunner TxRunner
	sink     DiagnosticSink
	metrics  EngagementMetrics
	uuidGen  UUIDGenerator
	clock    func() time.Time
}

func NewEngagementService(
	events QueryEventRepositoryInterface,
	actions QueryActionRepositoryInterface,
	faqs FAQRepositoryInterface,
	txRunner TxRunner,
	sink DiagnosticSink,
	metrics EngagementMetrics,
) *EngagementService {
	return NewEngagementServiceWithUUIDGen(events, actions, faqs, txRunner, sink, metrics, &DefaultUUIDGenerator{})
}

// NewEngagementServiceWithUUIDGen creates an EngagementService with custom UUID generator (for testing)
func NewEngagementServiceWithUUIDGen(
	events QueryEventRepositoryInterface,
	actions QueryActionRepositoryInterface,
	faqs FAQRepositoryInterface,
	txRunner TxRunner,
	sink DiagnosticSink,
	metrics EngagementMetrics,
	uuidGen UUIDGenerator,
) *EngagementService {
	if metrics == nil {
		metrics = nopEngagementMetrics{}
	}
	return &EngagementService{
		events:   events,
		actions:  actions,
		faqs:     faqs,
		txRunner: txRunner,
		sink:     sink,
		metrics:  metrics,
		uuidGen:  uuidGen,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// RecordActionInput is feedback on one candidate of an answered event
type RecordActionInput struct {
	EventID string
	FAQID   string
	Action  domain.ActionKind
}

// ActionOutcome reports the stored record and any absorbed side-effect failures
type ActionOutcome struct {
	Action   *domain.QueryAction
	Absorbed []AbsorbedFailure
}

// RecordAction upserts the action for (event, candidate). A viewed action
// also refreshes the event's read count and bumps the candidate hit counter
// when the pair first becomes viewed.
func (s *EngagementService) RecordAction(ctx context.Context, input RecordActionInput) (*ActionOutcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "EngagementService.RecordAction", telemetry.SpanAttributes{
		EventID:   input.EventID,
		Operation: string(input.Action),
	})
	defer span.End()

	if _, err := domain.ParseActionKind(string(input.Action)); err != nil {
		return nil, err
	}

	event, err := s.events.GetByID(ctx, input.EventID)
	if err != nil {
		return nil, notFoundOr(err, domain.ErrEventNotFound)
	}

	faq, err := s.faqs.GetByID(ctx, input.FAQID)
	if err != nil {
		return nil, notFoundOr(err, domain.ErrFAQNotFound)
	}
	if faq.ChatbotID != event.ChatbotID {
		return nil, domain.ErrFAQNotFound
	}

	now := s.clock()
	record := &domain.QueryAction{
		EventID:   event.ID,
		FAQID:     faq.ID,
		Action:    input.Action,
		CreatedAt: now,
		UpdatedAt: now,
	}

	previous, err := s.actions.Upsert(ctx, record)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrRecordActionFailed.Message, err)
	}
	s.metrics.ObserveAction(input.Action)

	absorbed := newAbsorber(s.sink)
	if input.Action == domain.ActionViewed {
		if _, err := s.events.RefreshReadCount(ctx, event.ID); err != nil {
			absorbed.absorb(ctx, StageReadCount, err)
		}
		if previous != domain.ActionViewed {
			if err := s.faqs.IncrementHit(ctx, faq.ID, now); err != nil {
				absorbed.absorb(ctx, StageHitCounter, err)
			}
		}
	}

	return &ActionOutcome{Action: record, Absorbed: absorbed.list()}, nil
}

// RecordBrowseInput is a direct FAQ view outside of an answered query
type RecordBrowseInput struct {
	ChatbotID string
	FAQID     string
	Session   domain.SessionRef
}

// BrowseOutcome reports the synthesized event, if one was written
type BrowseOutcome struct {
	EventID  string
	Absorbed []AbsorbedFailure
}

// RecordBrowse logs a direct view as a one-result, one-read event. Without a
// session nothing is written.
func (s *EngagementService) RecordBrowse(ctx context.Context, input RecordBrowseInput) (*BrowseOutcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "EngagementService.RecordBrowse", telemetry.SpanAttributes{
		ChatbotID: input.ChatbotID,
		Operation: "browse",
	})
	defer span.End()

	faq, err := s.faqs.GetByID(ctx, input.FAQID)
	if err != nil {
		return nil, notFoundOr(err, domain.ErrFAQNotFound)
	}
	if faq.ChatbotID != input.ChatbotID {
		return nil, domain.ErrFAQNotFound
	}

	sessionID, ok := input.Session.Get()
	if !ok {
		return &BrowseOutcome{}, nil
	}

	now := s.clock()
	event := &domain.QueryEvent{
		ID:          s.uuidGen.NewString(),
		ChatbotID:   input.ChatbotID,
		SessionID:   &sessionID,
		Query:       faq.Question,
		ResultCount: 1,
		ReadCount:   1,
		CreatedAt:   now,
	}
	action := &domain.QueryAction{
		EventID:   event.ID,
		FAQID:     faq.ID,
		Action:    domain.ActionViewed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Events().Create(ctx, event); err != nil {
			return err
		}
		if _, err := repos.Actions().Upsert(ctx, action); err != nil {
			return err
		}
		if err := repos.FAQs().IncrementHit(ctx, faq.ID, now); err != nil {
			return err
		}
		return repos.Sessions().IncrementQueryCount(ctx, sessionID, now)
	})

	absorbed := newAbsorber(s.sink)
	if err != nil {
		absorbed.absorb(ctx, StageBrowseLog, err)
		return &BrowseOutcome{Absorbed: absorbed.list()}, nil
	}

	s.metrics.ObserveAction(domain.ActionViewed)
	return &BrowseOutcome{EventID: event.ID}, nil
}

// notFoundOr maps a repository not-found to the caller-facing sentinel and
// passes other errors through.
func notFoundOr(err error, sentinel *domain.DomainError) error {
	if domain.ErrorCode(err) == domain.ErrCodeNotFound {
		return sentinel
	}
	return err
}
