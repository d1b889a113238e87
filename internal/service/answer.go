package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/cloo-solutions/faqdesk/internal/telemetry"
)

// fallbackComponent fills the vector used when embedding fails
const fallbackComponent float32 = 0.001

// FallbackEmbedding returns the constant vector searched with when the
// embedding provider is unavailable.
func FallbackEmbedding() []float32 {
	v := make([]float32, domain.EmbeddingDimensions)
	for i := range v {
		v[i] = fallbackComponent
	}
	return v
}

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// CandidateSearcher ranks a chatbot's FAQ entries for a query
type CandidateSearcher interface {
	HybridSearch(ctx context.Context, req HybridSearchRequest) ([]*domain.Candidate, error)
}

// AnswerSelector decides which candidates answer the query
type AnswerSelector interface {
	SelectAnswers(ctx context.Context, query string, candidates []*domain.Candidate) (*domain.Selection, error)
}

// QuotaGuard rejects queries over the chatbot's quota
type QuotaGuard interface {
	EnsureQuota(ctx context.Context, chatbot *domain.Chatbot) error
}

// MediaURLResolver turns a stored media key into a URL the widget can load
type MediaURLResolver interface {
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
}

// AnswerMetrics observes orchestration outcomes
type AnswerMetrics interface {
	ObserveAnswer(mode domain.AnswerMode, outcome string, candidates int, elapsed time.Duration)
}

type nopAnswerMetrics struct{}

func (nopAnswerMetrics) ObserveAnswer(domain.AnswerMode, string, int, time.Duration) {}

// Answer outcome labels
const (
	OutcomeAnswered    = "answered"
	OutcomeRejected    = "rejected"
	OutcomeUnavailable = "unavailable"
	OutcomeFailed      = "failed"
)

// AnswerDeps wires the orchestrator's collaborators. Media, Sink and Metrics
// are optional.
type AnswerDeps struct {
	Chatbots ChatbotRepositoryInterface
	FAQs     FAQRepositoryInterface
	Embedder EmbeddingClient
	Searcher CandidateSearcher
	Selector AnswerSelector
	Quota    QuotaGuard
	TxRunner TxRunner
	Media    MediaURLResolver
	Sink     DiagnosticSink
	Metrics  AnswerMetrics
	UUIDGen  UUIDGenerator
	Clock    func() time.Time
}

// AnswerService orchestrates embed, search, select, materialize and log
type AnswerService struct {
	deps AnswerDeps
}

func NewAnswerService(deps AnswerDeps) *AnswerService {
	if deps.Metrics == nil {
		deps.Metrics = nopAnswerMetrics{}
	}
	if deps.UUIDGen == nil {
		deps.UUIDGen = &DefaultUUIDGenerator{}
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Now().UTC() }
	}
	return &AnswerService{deps: deps}
}

// AnswerInput is one end-user (or preview) query
type AnswerInput struct {
	ChatbotID string
	Query     string
	Session   domain.SessionRef
	Mode      domain.AnswerMode
}

// AnsweredCandidate is a selected FAQ entry with display fields resolved
type AnsweredCandidate struct {
	FAQID    string
	Question string
	Answer   string
	Layout   domain.FAQLayout
	MediaURL string
}

// AnswerOutput is the orchestrated answer. EventID is empty when no event
// was recorded.
type AnswerOutput struct {
	Intro      string
	Candidates []*AnsweredCandidate
	EventID    string
	Absorbed   []AbsorbedFailure
}

// Answer runs the query pipeline. Embedding, search and logging failures
// degrade the answer; selector failure aborts with ServiceUnavailable.
func (s *AnswerService) Answer(ctx context.Context, input AnswerInput) (*AnswerOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "AnswerService.Answer", telemetry.SpanAttributes{
		ChatbotID: input.ChatbotID,
		Operation: string(input.Mode),
	})
	defer span.End()

	start := time.Now()
	out, outcome, err := s.answer(ctx, input)
	candidates := 0
	if out != nil {
		candidates = len(out.Candidates)
	}
	s.deps.Metrics.ObserveAnswer(input.Mode, outcome, candidates, time.Since(start))

	if err != nil && outcome != OutcomeRejected {
		span.SetError(err)
	}
	return out, err
}

func (s *AnswerService) answer(ctx context.Context, input AnswerInput) (*AnswerOutput, string, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, OutcomeRejected, domain.ErrEmptyQuery
	}

	bot, err := ownedChatbot(ctx, s.deps.Chatbots, "", input.ChatbotID)
	if err != nil {
		if errors.Is(err, domain.ErrChatbotNotFound) {
			return nil, OutcomeRejected, err
		}
		return nil, OutcomeFailed, err
	}

	if input.Mode != domain.AnswerModePreview && !bot.IsActive() {
		return nil, OutcomeRejected, domain.ErrChatbotSuspended
	}
	// Previews are metered like production queries.
	if err := s.deps.Quota.EnsureQuota(ctx, bot); err != nil {
		return nil, OutcomeRejected, err
	}

	absorbed := newAbsorber(s.deps.Sink)

	telemetry.AddBreadcrumb(ctx, "answer", "embedding")
	vector, err := s.deps.Embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		absorbed.absorb(ctx, StageEmbedding, err)
		vector = FallbackEmbedding()
	}

	telemetry.AddBreadcrumb(ctx, "answer", "search")
	candidates, err := s.deps.Searcher.HybridSearch(ctx, DefaultSearchRequest(bot.ID, query, vector))
	if err != nil {
		absorbed.absorb(ctx, StageSearch, err)
		candidates = []*domain.Candidate{}
	}

	telemetry.AddBreadcrumb(ctx, "answer", "select")
	selection, err := s.deps.Selector.SelectAnswers(ctx, query, candidates)
	if err != nil {
		return nil, OutcomeUnavailable, domain.NewDomainErrorWithCause(
			domain.ErrCodeServiceUnavailable, domain.ErrSelectorUnavailable.Message, err)
	}
	if selection == nil {
		selection = &domain.Selection{}
	}

	answered, err := s.materialize(ctx, bot.ID, candidates, selection, absorbed)
	if err != nil {
		return nil, OutcomeFailed, err
	}

	out := &AnswerOutput{
		Intro:      selection.Intro,
		Candidates: answered,
	}

	if sessionID, ok := input.Session.Get(); ok {
		eventID, err := s.logEvent(ctx, bot.ID, sessionID, query, len(answered))
		if err != nil {
			absorbed.absorb(ctx, StageEventLog, err)
		} else {
			out.EventID = eventID
		}
	}

	out.Absorbed = absorbed.list()
	return out, OutcomeAnswered, nil
}

// materialize maps included decisions onto stored FAQ records, keeping the
// selector's order. Decisions naming ids outside the candidate set are dropped.
func (s *AnswerService) materialize(ctx context.Context, chatbotID string, candidates []*domain.Candidate, selection *domain.Selection, absorbed *absorber) ([]*AnsweredCandidate, error) {
	offered := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		offered[c.FAQID] = true
	}

	ids := make([]string, 0, len(candidates))
	for _, id := range selection.IncludedIDs() {
		if offered[id] {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return []*AnsweredCandidate{}, nil
	}

	records, err := s.deps.FAQs.GetByIDs(ctx, chatbotID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.FAQ, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	answered := make([]*AnsweredCandidate, 0, len(ids))
	for _, id := range ids {
		faq, ok := byID[id]
		if !ok {
			continue
		}
		item := &AnsweredCandidate{
			FAQID:    faq.ID,
			Question: faq.Question,
			Answer:   faq.Answer,
			Layout:   faq.Layout,
		}
		if faq.MediaKey != "" {
			item.MediaURL = faq.MediaKey
			if s.deps.Media != nil {
				url, err := s.deps.Media.GenerateDownloadURL(ctx, faq.MediaKey)
				if err != nil {
					absorbed.absorb(ctx, StageMediaURL, err)
				} else {
					item.MediaURL = url
				}
			}
		}
		answered = append(answered, item)
	}
	return answered, nil
}

func (s *AnswerService) logEvent(ctx context.Context, chatbotID, sessionID, query string, resultCount int) (string, error) {
	now := s.deps.Clock()
	event := &domain.QueryEvent{
		ID:          s.deps.UUIDGen.NewString(),
		ChatbotID:   chatbotID,
		SessionID:   &sessionID,
		Query:       query,
		ResultCount: resultCount,
		ReadCount:   0,
		CreatedAt:   now,
	}

	err := s.deps.TxRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Events().Create(ctx, event); err != nil {
			return err
		}
		return repos.Sessions().IncrementQueryCount(ctx, sessionID, now)
	})
	if err != nil {
		return "", err
	}
	return event.ID, nil
}
