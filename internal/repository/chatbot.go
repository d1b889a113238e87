package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const chatbotColumns = `id, tenant_id, name, status, monthly_query_limit, created_at, updated_at`

type ChatbotRepository struct {
	pool *pgxpool.Pool
}

func NewChatbotRepository(pool *pgxpool.Pool) *ChatbotRepository {
	return &ChatbotRepository{pool: pool}
}

func (r *ChatbotRepository) Create(ctx context.Context, c *domain.Chatbot) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO chatbots (`+chatbotColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.TenantID, c.Name, c.Status, c.MonthlyQueryLimit, c.CreatedAt, c.UpdatedAt,
	)
	switch {
	case isPgError(err, pgUniqueViolation):
		return domain.ErrChatbotAlreadyExists
	case isPgError(err, pgForeignKeyViolation):
		return domain.ErrTenantNotFound
	}
	return err
}

func (r *ChatbotRepository) GetByID(ctx context.Context, id string) (*domain.Chatbot, error) {
	var c domain.Chatbot
	err := r.pool.QueryRow(ctx,
		`SELECT `+chatbotColumns+` FROM chatbots WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.TenantID, &c.Name, &c.Status, &c.MonthlyQueryLimit, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChatbotNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *ChatbotRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Chatbot, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+chatbotColumns+`
		 FROM chatbots WHERE tenant_id = $1 ORDER BY created_at DESC, id DESC`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bots []*domain.Chatbot
	for rows.Next() {
		var c domain.Chatbot
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Status, &c.MonthlyQueryLimit, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		bots = append(bots, &c)
	}
	return bots, rows.Err()
}

func (r *ChatbotRepository) UpdateStatus(ctx context.Context, id string, status domain.ChatbotStatus, at time.Time) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE chatbots SET status = $1, updated_at = $2 WHERE id = $3`,
		status, at, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChatbotNotFound
	}
	return nil
}

func (r *ChatbotRepository) UpdateQueryLimit(ctx context.Context, id string, limit int, at time.Time) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE chatbots SET monthly_query_limit = $1, updated_at = $2 WHERE id = $3`,
		limit, at, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChatbotNotFound
	}
	return nil
}
