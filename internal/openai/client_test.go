package openai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/cloo-solutions/faqdesk/internal/domain"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockEmbeddingsAPI struct {
	mock.Mock
}

func (m *MockEmbeddingsAPI) CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	args := m.Called(ctx, conv)
	return args.Get(0).(openai.EmbeddingResponse), args.Error(1)
}

func vectorOf(n int) openai.EmbeddingResponse {
	v := make([]float32, n)
	for i := range v {
		v[i] = float32(i) * 0.0001
	}
	return openai.EmbeddingResponse{Data: []openai.Embedding{{Embedding: v}}}
}

func requestFor(text string) any {
	return mock.MatchedBy(func(conv openai.EmbeddingRequestConverter) bool {
		req := conv.Convert()
		input, ok := req.Input.([]string)
		return ok && len(input) == 1 && input[0] == text &&
			req.Model == DefaultEmbeddingModel &&
			req.Dimensions == domain.EmbeddingDimensions
	})
}

func TestEmbedder_GenerateEmbedding(t *testing.T) {
	ctx := context.Background()
	api := new(MockEmbeddingsAPI)
	embedder := NewEmbedderWithAPI(api, "")

	api.On("CreateEmbeddings", ctx, requestFor("How do I reset my password?")).
		Return(vectorOf(domain.EmbeddingDimensions), nil)

	vector, err := embedder.GenerateEmbedding(ctx, "  How do I reset my password?\n")

	require.NoError(t, err)
	assert.Len(t, vector, domain.EmbeddingDimensions)
	assert.Equal(t, float32(0.0001), vector[1])
	api.AssertExpectations(t)
}

func TestEmbedder_TruncatesLongInput(t *testing.T) {
	ctx := context.Background()
	api := new(MockEmbeddingsAPI)
	embedder := NewEmbedderWithAPI(api, "")

	long := strings.Repeat("é", maxEmbeddingRunes+10)
	api.On("CreateEmbeddings", ctx, mock.MatchedBy(func(conv openai.EmbeddingRequestConverter) bool {
		input := conv.Convert().Input.([]string)[0]
		return utf8.ValidString(input) && utf8.RuneCountInString(input) == maxEmbeddingRunes
	})).Return(vectorOf(domain.EmbeddingDimensions), nil)

	_, err := embedder.GenerateEmbedding(ctx, long)

	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestEmbedder_Failures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		resp    openai.EmbeddingResponse
		apiErr  error
		wantErr error
		wantMsg string
	}{
		{name: "api error", apiErr: errors.New("rate limit exceeded"), wantMsg: "failed to create embedding"},
		{name: "empty response", resp: openai.EmbeddingResponse{}, wantErr: ErrNoEmbedding},
		{name: "wrong dimensions", resp: vectorOf(1536), wantErr: ErrWrongDimensions, wantMsg: "got 1536, want 3072"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockEmbeddingsAPI)
			api.On("CreateEmbeddings", ctx, mock.Anything).Return(tt.resp, tt.apiErr)

			vector, err := NewEmbedderWithAPI(api, "").GenerateEmbedding(ctx, "hello")

			assert.Nil(t, vector)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.ErrorContains(t, err, tt.wantMsg)
			}
		})
	}
}

func TestEmbedder_EmptyText(t *testing.T) {
	api := new(MockEmbeddingsAPI)

	vector, err := NewEmbedderWithAPI(api, "").GenerateEmbedding(context.Background(), "   ")

	assert.Nil(t, vector)
	assert.ErrorIs(t, err, ErrEmptyText)
	api.AssertNotCalled(t, "CreateEmbeddings", mock.Anything, mock.Anything)
}

func TestNewEmbedder_ModelOverride(t *testing.T) {
	assert.Equal(t, DefaultEmbeddingModel, NewEmbedder("key", "").model)
	assert.Equal(t, openai.SmallEmbedding3, NewEmbedder("key", openai.SmallEmbedding3).model)
}
