package service

import (
	"context"
	"strings"
	"time"

	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/cloo-solutions/faqdesk/internal/telemetry"
	"github.com/google/uuid"
)

// FAQRepositoryInterface defines the interface for FAQ persistence
type FAQRepositoryInterface interface {
	Create(ctx context.Context, faq *domain.FAQ) error
	GetByID(ctx context.Context, id string) (*domain.FAQ, error)
	GetByIDs(ctx context.Context, chatbotID string, ids []string) ([]*domain.FAQ, error)
	ListByChatbot(ctx context.Context, chatbotID string) ([]*domain.FAQ, error)
	IncrementHit(ctx context.Context, id string, at time.Time) error
}

// EmbeddingJobRepositoryInterface defines the interface for queuing embedding jobs
type EmbeddingJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.EmbeddingJob) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// FAQService manages the FAQ entries a chatbot answers from
type FAQService struct {
	chatbots ChatbotRepositoryInterface
	faqs     FAQRepositoryInterface
	txRunner TxRunner
	uuidGen  UUIDGenerator
}

// NewFAQService creates a new FAQService instance
func NewFAQService(chatbots ChatbotRepositoryInterface, faqs FAQRepositoryInterface, txRunner TxRunner) *FAQService {
	return NewFAQServiceWithUUIDGen(chatbots, faqs, txRunner, &DefaultUUIDGenerator{})
}

// NewFAQServiceWithUUIDGen creates a new FAQService with custom UUID generator (for testing)
func NewFAQServiceWithUUIDGen(chatbots ChatbotRepositoryInterface, faqs FAQRepositoryInterface, txRunner TxRunner, uuidGen UUIDGenerator) *FAQService {
	return &FAQService{
		chatbots: chatbots,
		faqs:     faqs,
		txRunner: txRunner,
		uuidGen:  uuidGen,
	}
}

// CreateFAQInput represents the input for creating an FAQ entry
type CreateFAQInput struct {
	TenantID  string
	ChatbotID string
	Question  string
	Answer    string
	Layout    string
	MediaKey  string
}

// Create stores an FAQ entry and queues its embedding in one transaction
func (s *FAQService) Create(ctx context.Context, input CreateFAQInput) (*domain.FAQ, error) {
	ctx, span := telemetry.StartSpan(ctx, "FAQService.Create", telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		ChatbotID: input.ChatbotID,
		Operation: "create",
	})
	defer span.End()

	if _, err := ownedChatbot(ctx, s.chatbots, input.TenantID, input.ChatbotID); err != nil {
		return nil, err
	}

	layout, err := domain.ParseFAQLayout(input.Layout)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	faq := domain.NewFAQ(s.uuidGen.NewString(), input.ChatbotID,
		strings.TrimSpace(input.Question), strings.TrimSpace(input.Answer), layout, now)
	faq.MediaKey = input.MediaKey

	if err := domain.ValidateFAQ(faq); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid faq", err)
	}

	job := domain.NewEmbeddingJob(s.uuidGen.NewString(), faq.ID, now)

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.FAQs().Create(ctx, faq); err != nil {
			return err
		}
		return repos.EmbeddingJobs().Create(ctx, job)
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return faq, nil
}

// List returns a chatbot's FAQ entries
func (s *FAQService) List(ctx context.Context, tenantID, chatbotID string) ([]*domain.FAQ, error) {
	if _, err := ownedChatbot(ctx, s.chatbots, tenantID, chatbotID); err != nil {
		return nil, err
	}
	return s.faqs.ListByChatbot(ctx, chatbotID)
}
