package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/cloo-solutions/faqdesk/internal/telemetry"
)

// SessionTokenIssuer signs session tokens for the widget
type SessionTokenIssuer interface {
	Issue(sessionID, chatbotID string) (string, time.Time, error)
}

// SessionService opens end-user chat sessions
type SessionService struct {
	chatbots ChatbotRepositoryInterface
	sessions SessionRepositoryInterface
	tokens   SessionTokenIssuer
	uuidGen  UUIDGenerator
}

func NewSessionService(chatbots ChatbotRepositoryInterface, sessions SessionRepositoryInterface, tokens SessionTokenIssuer, uuidGen UUIDGenerator) *SessionService {
	return &SessionService{
		chatbots: chatbots,
		sessions: sessions,
		tokens:   tokens,
		uuidGen:  uuidGen,
	}
}

// StartSessionResult carries the new session and its bearer token
type StartSessionResult struct {
	Session   *domain.ChatSession
	Token     string
	ExpiresAt time.Time
}

// Start opens a session on an active chatbot
func (s *SessionService) Start(ctx context.Context, chatbotID string) (*StartSessionResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "SessionService.Start", telemetry.SpanAttributes{
		ChatbotID: chatbotID,
		Operation: "start_session",
	})
	defer span.End()

	bot, err := ownedChatbot(ctx, s.chatbots, "", chatbotID)
	if err != nil {
		return nil, err
	}
	if !bot.IsActive() {
		return nil, domain.ErrChatbotSuspended
	}

	now := time.Now().UTC()
	session := &domain.ChatSession{
		ID:           s.uuidGen.NewString(),
		ChatbotID:    chatbotID,
		CreatedAt:    now,
		LastActiveAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		span.SetError(err)
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(session.ID, chatbotID)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to issue session token", err)
	}

	return &StartSessionResult{Session: session, Token: token, ExpiresAt: expiresAt}, nil
}
