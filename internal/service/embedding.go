package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/faqdesk/internal/domain"
)

// EmbeddingFAQRepository defines the repository interface for embedding operations
type EmbeddingFAQRepository interface {
	GetByID(ctx context.Context, id string) (*domain.FAQ, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// EmbeddingService computes the stored vectors that semantic search ranks on
type EmbeddingService struct {
	client EmbeddingClient
	repo   EmbeddingFAQRepository
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(client EmbeddingClient, repo EmbeddingFAQRepository) *EmbeddingService {
	return &EmbeddingService{
		client: client,
		repo:   repo,
	}
}

// GenerateEmbedding generates and stores an embedding for the given FAQ ID.
// This method is called by the background worker.
func (s *EmbeddingService) GenerateEmbedding(ctx context.Context, faqID string) error {
	faq, err := s.repo.GetByID(ctx, faqID)
	if err != nil {
		return err
	}

	text := buildEmbeddingText(faq)
	if text == "" {
		return fmt.Errorf("faq %s has no text to embed", faqID)
	}

	embedding, err := s.client.GenerateEmbedding(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}
	if len(embedding) != domain.EmbeddingDimensions {
		return fmt.Errorf("embedding has %d dimensions, want %d", len(embedding), domain.EmbeddingDimensions)
	}

	if err := s.repo.UpdateEmbedding(ctx, faqID, embedding); err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}

	return nil
}

// buildEmbeddingText embeds the question with the answer as supporting text.
// Queries are matched against both.
func buildEmbeddingText(f *domain.FAQ) string {
	var parts []string

	if q := strings.TrimSpace(f.Question); q != "" {
		parts = append(parts, q)
	}
	if a := strings.TrimSpace(f.Answer); a != "" {
		parts = append(parts, a)
	}

	return strings.Join(parts, "\n\n")
}
