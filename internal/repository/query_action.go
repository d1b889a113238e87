package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type QueryActionRepository struct {
	db dbtx
}

func NewQueryActionRepository(pool *pgxpool.Pool) *QueryActionRepository {
	return &QueryActionRepository{db: pool}
}

func NewQueryActionRepositoryWithTx(tx pgx.Tx) *QueryActionRepository {
	return &QueryActionRepository{db: tx}
}

// Upsert keeps one record per (event, faq) and returns the action it
// replaced, empty on first write. created_at survives overwrites.
//
// The replaced action is read from the conflicting row under the upsert's
// row lock, so concurrent writers for one pair each see the other's write.
func (r *QueryActionRepository) Upsert(ctx context.Context, a *domain.QueryAction) (domain.ActionKind, error) {
	var previous pgtype.Text
	err := r.db.QueryRow(ctx,
		`INSERT INTO query_actions (event_id, faq_id, action, previous_action, created_at, updated_at)
		 VALUES ($1, $2, $3, NULL, $4, $5)
		 ON CONFLICT (event_id, faq_id)
		 DO UPDATE SET previous_action = query_actions.action,
		               action = EXCLUDED.action,
		               updated_at = EXCLUDED.updated_at
		 RETURNING previous_action`,
		a.EventID, a.FAQID, a.Action, a.CreatedAt, a.UpdatedAt,
	).Scan(&previous)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return "", domain.ErrEventNotFound
		}
		return "", err
	}
	if !previous.Valid {
		return "", nil
	}
	return domain.ActionKind(previous.String), nil
}

func (r *QueryActionRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.QueryAction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT event_id, faq_id, action, created_at, updated_at
		 FROM query_actions
		 WHERE event_id = $1
		 ORDER BY created_at ASC, faq_id ASC`,
		eventID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []*domain.QueryAction
	for rows.Next() {
		var a domain.QueryAction
		if err := rows.Scan(&a.EventID, &a.FAQID, &a.Action, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		actions = append(actions, &a)
	}
	return actions, rows.Err()
}

func (r *QueryActionRepository) DeleteByEvent(ctx context.Context, eventID string) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM query_actions WHERE event_id = $1`, eventID)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

func (r *QueryActionRepository) DeleteForEventsCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM query_actions a
		 USING query_events e
		 WHERE a.event_id = e.id AND e.created_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

// Distribution counts action records of non-ignored events by kind
func (r *QueryActionRepository) Distribution(ctx context.Context, chatbotID string, window domain.TimeWindow) (map[domain.ActionKind]int64, error) {
	w := newWhere()
	w.add("e.chatbot_id = %s", chatbotID)
	w.window("e.created_at", window)
	w.raw("NOT e.ignored")

	rows, err := r.db.Query(ctx,
		`SELECT a.action, COUNT(*)
		 FROM query_actions a
		 JOIN query_events e ON e.id = a.event_id
		 WHERE `+w.sql()+`
		 GROUP BY a.action`,
		w.args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[domain.ActionKind]int64)
	for rows.Next() {
		var kind domain.ActionKind
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		out[kind] = count
	}
	return out, rows.Err()
}

// TopViewed ranks candidates by viewed records on non-ignored events
func (r *QueryActionRepository) TopViewed(ctx context.Context, chatbotID string, window domain.TimeWindow, limit int) ([]domain.CandidateHits, error) {
	w := newWhere()
	w.add("e.chatbot_id = %s", chatbotID)
	w.window("e.created_at", window)
	w.raw("NOT e.ignored")
	w.add("a.action = %s", domain.ActionViewed)

	args := append(w.args, limit)
	rows, err := r.db.Query(ctx,
		fmt.Sprintf(`SELECT a.faq_id, f.question, COUNT(*)
		 FROM query_actions a
		 JOIN query_events e ON e.id = a.event_id
		 JOIN faqs f ON f.id = a.faq_id
		 WHERE %s
		 GROUP BY a.faq_id, f.question
		 ORDER BY COUNT(*) DESC, a.faq_id ASC
		 LIMIT $%d`, w.sql(), len(args)),
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CandidateHits
	for rows.Next() {
		var h domain.CandidateHits
		if err := rows.Scan(&h.FAQID, &h.Question, &h.Views); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
