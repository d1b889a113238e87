package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/cloo-solutions/faqdesk/internal/telemetry"
)

// ChatbotRepositoryInterface defines the interface for chatbot persistence
type ChatbotRepositoryInterface interface {
	Create(ctx context.Context, chatbot *domain.Chatbot) error
	GetByID(ctx context.Context, id string) (*domain.Chatbot, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Chatbot, error)
	UpdateStatus(ctx context.Context, id string, status domain.ChatbotStatus, at time.Time) error
	UpdateQueryLimit(ctx context.Context, id string, limit int, at time.Time) error
}

// ChatbotService manages tenant chatbots
type ChatbotService struct {
	repo    ChatbotRepositoryInterface
	uuidGen UUIDGenerator
}

func NewChatbotService(repo ChatbotRepositoryInterface, uuidGen UUIDGenerator) *ChatbotService {
	return &ChatbotService{repo: repo, uuidGen: uuidGen}
}

// Create registers a chatbot in draft state
func (s *ChatbotService) Create(ctx context.Context, tenantID, name string, monthlyQueryLimit int) (*domain.Chatbot, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChatbotService.Create", telemetry.SpanAttributes{
		TenantID:  tenantID,
		Operation: "create",
	})
	defer span.End()

	bot := domain.NewChatbot(s.uuidGen.NewString(), tenantID, strings.TrimSpace(name), monthlyQueryLimit, time.Now().UTC())
	if err := domain.ValidateChatbot(bot); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid chatbot", err)
	}

	if err := s.repo.Create(ctx, bot); err != nil {
		span.SetError(err)
		return nil, err
	}
	return bot, nil
}

// Get returns a chatbot owned by the tenant
func (s *ChatbotService) Get(ctx context.Context, tenantID, chatbotID string) (*domain.Chatbot, error) {
	return ownedChatbot(ctx, s.repo, tenantID, chatbotID)
}

// List returns all chatbots of a tenant
func (s *ChatbotService) List(ctx context.Context, tenantID string) ([]*domain.Chatbot, error) {
	return s.repo.ListByTenant(ctx, tenantID)
}

// SetStatus moves a chatbot between draft, active and suspended
func (s *ChatbotService) SetStatus(ctx context.Context, tenantID, chatbotID string, status domain.ChatbotStatus) (*domain.Chatbot, error) {
	if _, err := domain.ParseChatbotStatus(string(status)); err != nil {
		return nil, err
	}

	bot, err := ownedChatbot(ctx, s.repo, tenantID, chatbotID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, chatbotID, status, now); err != nil {
		return nil, err
	}

	bot.Status = status
	bot.UpdatedAt = now
	return bot, nil
}

// SetQueryLimit changes a chatbot's monthly query quota; 0 removes the cap
func (s *ChatbotService) SetQueryLimit(ctx context.Context, tenantID, chatbotID string, limit int) (*domain.Chatbot, error) {
	if limit < 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "query limit cannot be negative")
	}

	bot, err := ownedChatbot(ctx, s.repo, tenantID, chatbotID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateQueryLimit(ctx, chatbotID, limit, now); err != nil {
		return nil, err
	}

	bot.MonthlyQueryLimit = limit
	bot.UpdatedAt = now
	return bot, nil
}

// ownedChatbot loads a chatbot and hides it from other tenants.
// An empty tenantID skips the ownership check (admin CLI).
func ownedChatbot(ctx context.Context, repo ChatbotRepositoryInterface, tenantID, chatbotID string) (*domain.Chatbot, error) {
	if chatbotID == "" {
		return nil, domain.ErrChatbotNotFound
	}

	bot, err := repo.GetByID(ctx, chatbotID)
	if err != nil {
		if errors.Is(err, domain.ErrChatbotNotFound) {
			return nil, domain.ErrChatbotNotFound
		}
		return nil, err
	}

	if tenantID != "" && bot.TenantID != tenantID {
		return nil, domain.ErrChatbotNotFound
	}
	return bot, nil
}
