package repository

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const faqColumns = `id, chatbot_id, question, answer, layout, media_key, hit_count, last_hit_at, created_at, updated_at`

type FAQRepository struct {
	db dbtx
}

func NewFAQRepository(pool *pgxpool.Pool) *FAQRepository {
	return &FAQRepository{db: pool}
}

func NewFAQRepositoryWithTx(tx pgx.Tx) *FAQRepository {
	return &FAQRepository{db: tx}
}

func (r *FAQRepository) Create(ctx context.Context, f *domain.FAQ) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO faqs (id, chatbot_id, question, answer, layout, media_key, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		f.ID, f.ChatbotID, f.Question, f.Answer, f.Layout, nullableString(f.MediaKey), f.CreatedAt, f.UpdatedAt,
	)
	if isPgError(err, pgForeignKeyViolation) {
		return domain.ErrChatbotNotFound
	}
	return err
}

func (r *FAQRepository) GetByID(ctx context.Context, id string) (*domain.FAQ, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+faqColumns+` FROM faqs WHERE id = $1`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanFAQRows(rows)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrFAQNotFound
	}
	return items[0], nil
}

// GetByIDs returns the chatbot's FAQ entries among ids, in no particular order.
// Unknown ids and entries of other chatbots are skipped.
func (r *FAQRepository) GetByIDs(ctx context.Context, chatbotID string, ids []string) ([]*domain.FAQ, error) {
	if len(ids) == 0 {
		return []*domain.FAQ{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+faqColumns+` FROM faqs WHERE chatbot_id = $1 AND id = ANY($2)`,
		chatbotID, ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFAQRows(rows)
}

func (r *FAQRepository) ListByChatbot(ctx context.Context, chatbotID string) ([]*domain.FAQ, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+faqColumns+` FROM faqs WHERE chatbot_id = $1 ORDER BY created_at DESC, id DESC`,
		chatbotID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFAQRows(rows)
}

// IncrementHit bumps the view counter atomically
func (r *FAQRepository) IncrementHit(ctx context.Context, id string, at time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE faqs SET hit_count = hit_count + 1, last_hit_at = $1 WHERE id = $2`,
		at, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrFAQNotFound
	}
	return nil
}

func (r *FAQRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE faqs SET embedding = $1, updated_at = $2 WHERE id = $3`,
		pgvector.NewVector(embedding), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrFAQNotFound
	}
	return nil
}

// SearchLexical ranks entries whose question or answer shares any term with
// the query. Questions weigh more than answers.
func (r *FAQRepository) SearchLexical(ctx context.Context, chatbotID, query string, limit int) ([]*domain.Candidate, error) {
	tsquery := anyTermQuery(query)
	if tsquery == "" {
		return []*domain.Candidate{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT f.id, f.question, f.answer, ts_rank(f.search_tsv, q) AS score
		 FROM faqs f, to_tsquery('simple', $2) q
		 WHERE f.chatbot_id = $1 AND f.search_tsv @@ q
		 ORDER BY score DESC, f.id
		 LIMIT $3`,
		chatbotID, tsquery, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCandidateRows(rows)
}

// SearchSemantic ranks embedded entries by cosine similarity, keeping those at
// or above minSimilarity.
func (r *FAQRepository) SearchSemantic(ctx context.Context, chatbotID string, vector []float32, minSimilarity float64, limit int) ([]*domain.Candidate, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, question, answer, score
		 FROM (
			 SELECT id, question, answer, 1 - (embedding <=> $2) AS score
			 FROM faqs
			 WHERE chatbot_id = $1 AND embedding IS NOT NULL
		 ) ranked
		 WHERE score >= $3
		 ORDER BY score DESC, id
		 LIMIT $4`,
		chatbotID, pgvector.NewVector(vector), minSimilarity, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCandidateRows(rows)
}

// anyTermQuery turns free text into an OR of its alphanumeric terms, safe to
// pass to to_tsquery.
func anyTermQuery(query string) string {
	terms := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(terms))
	unique := terms[:0]
	for _, t := range terms {
		if !seen[t] {
			seen[t] = true
			unique = append(unique, t)
		}
	}
	return strings.Join(unique, " | ")
}

func scanFAQRows(rows pgx.Rows) ([]*domain.FAQ, error) {
	var results []*domain.FAQ
	for rows.Next() {
		var f domain.FAQ
		var mediaKey *string
		if err := rows.Scan(&f.ID, &f.ChatbotID, &f.Question, &f.Answer, &f.Layout, &mediaKey,
			&f.HitCount, &f.LastHitAt, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		f.MediaKey = derefString(mediaKey)
		results = append(results, &f)
	}
	return results, rows.Err()
}

func scanCandidateRows(rows pgx.Rows) ([]*domain.Candidate, error) {
	results := make([]*domain.Candidate, 0)
	for rows.Next() {
		var c domain.Candidate
		var score float64
		if err := rows.Scan(&c.FAQID, &c.Question, &c.Snippet, &score); err != nil {
			return nil, err
		}
		c.Score = float32(score)
		results = append(results, &c)
	}
	return results, rows.Err()
}
