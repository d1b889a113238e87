package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/faqdesk/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultEmbeddingModel produces domain.EmbeddingDimensions-long vectors
const DefaultEmbeddingModel = openai.LargeEmbedding3

// maxEmbeddingRunes keeps requests under the model's 8191 token input limit.
const maxEmbeddingRunes = 24000

var (
	ErrEmptyText       = errors.New("text cannot be empty")
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	ErrNoEmbedding     = errors.New("no embedding data returned")
)

// EmbeddingsAPI is the slice of the OpenAI client the embedder needs
type EmbeddingsAPI interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Embedder turns FAQ and query text into vectors for semantic search
type Embedder struct {
	api   EmbeddingsAPI
	model openai.EmbeddingModel
}

func NewEmbedder(apiKey string, model openai.EmbeddingModel) *Embedder {
	return NewEmbedderWithAPI(openai.NewClient(apiKey), model)
}

func NewEmbedderWithAPI(api EmbeddingsAPI, model openai.EmbeddingModel) *Embedder {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &Embedder{api: api, model: model}
}

// GenerateEmbedding embeds one text. Overlong input is cut at a rune
// boundary rather than rejected.
func (e *Embedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	resp, err := e.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{truncateRunes(text, maxEmbeddingRunes)},
		Model:      e.model,
		Dimensions: domain.EmbeddingDimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, ErrNoEmbedding
	}

	vector := resp.Data[0].Embedding
	if len(vector) != domain.EmbeddingDimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrWrongDimensions, len(vector), domain.EmbeddingDimensions)
	}
	return vector, nil
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
