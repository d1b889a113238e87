package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionRepository struct {
	db dbtx
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: pool}
}

func NewSessionRepositoryWithTx(tx pgx.Tx) *SessionRepository {
	return &SessionRepository{db: tx}
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.ChatSession) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO chat_sessions (id, chatbot_id, query_count, created_at, last_active_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.ChatbotID, s.QueryCount, s.CreatedAt, s.LastActiveAt,
	)
	if isPgError(err, pgForeignKeyViolation) {
		return domain.ErrChatbotNotFound
	}
	return err
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.ChatSession, error) {
	var s domain.ChatSession
	err := r.db.QueryRow(ctx,
		`SELECT id, chatbot_id, query_count, created_at, last_active_at FROM chat_sessions WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.ChatbotID, &s.QueryCount, &s.CreatedAt, &s.LastActiveAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) IncrementQueryCount(ctx context.Context, id string, at time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE chat_sessions SET query_count = query_count + 1, last_active_at = $1 WHERE id = $2`,
		at, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}
