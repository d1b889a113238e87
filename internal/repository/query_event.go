package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/cloo-solutions/faqdesk/internal/pagination"
	"github.com/cloo-solutions/faqdesk/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const queryEventColumns = `id, chatbot_id, session_id, query, result_count, read_count, ignored, created_at`

type QueryEventRepository struct {
	db dbtx
}

func NewQueryEventRepository(pool *pgxpool.Pool) *QueryEventRepository {
	return &QueryEventRepository{db: pool}
}

func NewQueryEventRepositoryWithTx(tx pgx.Tx) *QueryEventRepository {
	return &QueryEventRepository{db: tx}
}

func (r *QueryEventRepository) Create(ctx context.Context, e *domain.QueryEvent) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO query_events (`+queryEventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.ChatbotID, e.SessionID, e.Query, e.ResultCount, e.ReadCount, e.Ignored, e.CreatedAt,
	)
	if isPgError(err, pgForeignKeyViolation) {
		return domain.ErrChatbotNotFound
	}
	return err
}

func (r *QueryEventRepository) GetByID(ctx context.Context, id string) (*domain.QueryEvent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+queryEventColumns+` FROM query_events WHERE id = $1`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events, err := scanQueryEventRows(rows)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, domain.ErrEventNotFound
	}
	return events[0], nil
}

// RefreshReadCount sets read_count to the number of distinct viewed
// candidates, never lowering it.
func (r *QueryEventRepository) RefreshReadCount(ctx context.Context, id string) (int, error) {
	var readCount int
	err := r.db.QueryRow(ctx,
		`UPDATE query_events
		 SET read_count = GREATEST(read_count, (
			 SELECT COUNT(DISTINCT faq_id)
			 FROM query_actions
			 WHERE event_id = $1 AND action = $2
		 ))
		 WHERE id = $1
		 RETURNING read_count`,
		id, domain.ActionViewed,
	).Scan(&readCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrEventNotFound
		}
		return 0, err
	}
	return readCount, nil
}

func (r *QueryEventRepository) SetIgnored(ctx context.Context, chatbotID, query string, ignored bool) (int64, error) {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE query_events SET ignored = $1 WHERE chatbot_id = $2 AND query = $3`,
		ignored, chatbotID, query,
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

func (r *QueryEventRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM query_events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (r *QueryEventRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM query_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

// List returns one page of events newest first. It fetches limit+1 rows to
// learn whether another page exists.
func (r *QueryEventRepository) List(ctx context.Context, filter service.EventFilter, cursor *pagination.Cursor, limit int) (*service.EventPage, error) {
	w := newWhere()
	w.add("chatbot_id = %s", filter.ChatbotID)
	w.window("created_at", filter.Window)
	if filter.SessionID != "" {
		w.add("session_id = %s", filter.SessionID)
	}
	if filter.Ignored != nil {
		w.add("ignored = %s", *filter.Ignored)
	}
	if filter.ZeroResultsOnly {
		w.raw("result_count = 0")
	}
	if q := strings.TrimSpace(filter.QueryContains); q != "" {
		w.add("query ILIKE %s", "%"+escapeLike(q)+"%")
	}
	if cursor != nil {
		w.add2("(created_at, id) < (%s, %s)", cursor.Timestamp, cursor.LastID)
	}

	args := append(w.args, limit+1)
	rows, err := r.db.Query(ctx,
		fmt.Sprintf(`SELECT `+queryEventColumns+`
		 FROM query_events
		 WHERE %s
		 ORDER BY created_at DESC, id DESC
		 LIMIT $%d`, w.sql(), len(args)),
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events, err := scanQueryEventRows(rows)
	if err != nil {
		return nil, err
	}

	page := &service.EventPage{Items: events}
	if len(events) > limit {
		page.Items = events[:limit]
		page.HasMore = true
		last := page.Items[len(page.Items)-1]
		page.NextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}
	return page, nil
}

func (r *QueryEventRepository) Aggregate(ctx context.Context, chatbotID string, window domain.TimeWindow) (*service.EventAggregate, error) {
	w := newWhere()
	w.add("chatbot_id = %s", chatbotID)
	w.window("created_at", window)

	var agg service.EventAggregate
	err := r.db.QueryRow(ctx,
		`SELECT
			 COUNT(*) FILTER (WHERE NOT ignored),
			 COUNT(*) FILTER (WHERE ignored),
			 COALESCE(AVG(result_count) FILTER (WHERE NOT ignored), 0)::float8,
			 COALESCE(AVG(read_count) FILTER (WHERE NOT ignored), 0)::float8
		 FROM query_events
		 WHERE `+w.sql(),
		w.args...,
	).Scan(&agg.Total, &agg.IgnoredCount, &agg.AvgResultCount, &agg.AvgReadCount)
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

// ZeroResultQueries ranks the query texts that produced no candidates
func (r *QueryEventRepository) ZeroResultQueries(ctx context.Context, chatbotID string, window domain.TimeWindow, limit int) ([]domain.QueryFrequency, error) {
	w := newWhere()
	w.add("chatbot_id = %s", chatbotID)
	w.window("created_at", window)
	w.raw("result_count = 0")
	w.raw("NOT ignored")

	args := append(w.args, limit)
	rows, err := r.db.Query(ctx,
		fmt.Sprintf(`SELECT query, COUNT(*)
		 FROM query_events
		 WHERE %s
		 GROUP BY query
		 ORDER BY COUNT(*) DESC, query ASC
		 LIMIT $%d`, w.sql(), len(args)),
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.QueryFrequency
	for rows.Next() {
		var qf domain.QueryFrequency
		if err := rows.Scan(&qf.Query, &qf.Count); err != nil {
			return nil, err
		}
		out = append(out, qf)
	}
	return out, rows.Err()
}

func scanQueryEventRows(rows pgx.Rows) ([]*domain.QueryEvent, error) {
	var events []*domain.QueryEvent
	for rows.Next() {
		var e domain.QueryEvent
		var sessionID pgtype.Text
		if err := rows.Scan(&e.ID, &e.ChatbotID, &sessionID, &e.Query, &e.ResultCount, &e.ReadCount, &e.Ignored, &e.CreatedAt); err != nil {
			return nil, err
		}
		if sessionID.Valid {
			s := sessionID.String
			e.SessionID = &s
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// where accumulates AND-ed predicates with positional arguments
type where struct {
	clauses []string
	args    []any
}

func newWhere() *where {
	return &where{}
}

func (w *where) next() string {
	return fmt.Sprintf("$%d", len(w.args)+1)
}

func (w *where) add(format string, arg any) {
	w.clauses = append(w.clauses, fmt.Sprintf(format, w.next()))
	w.args = append(w.args, arg)
}

func (w *where) add2(format string, a, b any) {
	first := w.next()
	w.args = append(w.args, a)
	second := w.next()
	w.args = append(w.args, b)
	w.clauses = append(w.clauses, fmt.Sprintf(format, first, second))
}

func (w *where) raw(clause string) {
	w.clauses = append(w.clauses, clause)
}

// window bounds column to [From, To)
func (w *where) window(column string, tw domain.TimeWindow) {
	if tw.From != nil {
		w.add(column+" >= %s", *tw.From)
	}
	if tw.To != nil {
		w.add(column+" < %s", *tw.To)
	}
}

func (w *where) sql() string {
	if len(w.clauses) == 0 {
		return "TRUE"
	}
	return strings.Join(w.clauses, " AND ")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
