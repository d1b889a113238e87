package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFAQService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("stores entry and queues embedding job", func(t *testing.T) {
		chatbots := new(MockChatbotRepository)
		faqs := new(MockFAQRepository)
		jobs := new(MockEmbeddingJobRepository)
		txRunner := &testTxRunner{repos: &testTxRepos{faqs: faqs, embeddingJobs: jobs}}
		service := NewFAQServiceWithUUIDGen(chatbots, faqs, txRunner, NewMockUUIDGenerator("faq-1", "job-1"))

		chatbots.On("GetByID", mock.Anything, "bot-1").Return(activeChatbot("bot-1", "tenant-1"), nil)
		faqs.On("Create", mock.Anything, mock.MatchedBy(func(f *domain.FAQ) bool {
			return f.ID == "faq-1" && f.ChatbotID == "bot-1" && f.Question == "How do I reset my password?" &&
				f.Layout == domain.FAQLayoutText
		})).Return(nil)
		jobs.On("Create", mock.Anything, mock.MatchedBy(func(j *domain.EmbeddingJob) bool {
			return j.ID == "job-1" && j.FAQID == "faq-1" && j.Status == domain.EmbeddingJobStatusPending
		})).Return(nil)

		faq, err := service.Create(ctx, CreateFAQInput{
			TenantID:  "tenant-1",
			ChatbotID: "bot-1",
			Question:  " How do I reset my password? ",
			Answer:    "Use the forgot password link.",
		})

		require.NoError(t, err)
		assert.Equal(t, "faq-1", faq.ID)
		assert.True(t, txRunner.called)
		faqs.AssertExpectations(t)
		jobs.AssertExpectations(t)
	})

	t.Run("rejects unknown layout", func(t *testing.T) {
		chatbots := new(MockChatbotRepository)
		service := NewFAQServiceWithUUIDGen(chatbots, new(MockFAQRepository), &testTxRunner{}, NewMockUUIDGenerator())
		chatbots.On("GetByID", mock.Anything, "bot-1").Return(activeChatbot("bot-1", "tenant-1"), nil)

		_, err := service.Create(ctx, CreateFAQInput{TenantID: "tenant-1", ChatbotID: "bot-1", Question: "q", Answer: "a", Layout: "carousel"})

		assert.ErrorIs(t, err, domain.ErrInvalidLayout)
	})

	t.Run("rejects empty answer", func(t *testing.T) {
		chatbots := new(MockChatbotRepository)
		txRunner := &testTxRunner{}
		service := NewFAQServiceWithUUIDGen(chatbots, new(MockFAQRepository), txRunner, NewMockUUIDGenerator("faq-1"))
		chatbots.On("GetByID", mock.Anything, "bot-1").Return(activeChatbot("bot-1", "tenant-1"), nil)

		_, err := service.Create(ctx, CreateFAQInput{TenantID: "tenant-1", ChatbotID: "bot-1", Question: "q", Answer: "  "})

		assert.Equal(t, domain.ErrCodeValidation, domain.ErrorCode(err))
		assert.False(t, txRunner.called)
	})

	t.Run("chatbot of another tenant", func(t *testing.T) {
		chatbots := new(MockChatbotRepository)
		service := NewFAQServiceWithUUIDGen(chatbots, new(MockFAQRepository), &testTxRunner{}, NewMockUUIDGenerator())
		chatbots.On("GetByID", mock.Anything, "bot-1").Return(activeChatbot("bot-1", "tenant-2"), nil)

		_, err := service.Create(ctx, CreateFAQInput{TenantID: "tenant-1", ChatbotID: "bot-1", Question: "q", Answer: "a"})

		assert.ErrorIs(t, err, domain.ErrChatbotNotFound)
	})

	t.Run("transaction failure", func(t *testing.T) {
		chatbots := new(MockChatbotRepository)
		faqs := new(MockFAQRepository)
		jobs := new(MockEmbeddingJobRepository)
		txRunner := &testTxRunner{repos: &testTxRepos{faqs: faqs, embeddingJobs: jobs}}
		service := NewFAQServiceWithUUIDGen(chatbots, faqs, txRunner, NewMockUUIDGenerator("faq-1", "job-1"))

		chatbots.On("GetByID", mock.Anything, "bot-1").Return(activeChatbot("bot-1", "tenant-1"), nil)
		faqs.On("Create", mock.Anything, mock.Anything).Return(nil)
		jobs.On("Create", mock.Anything, mock.Anything).Return(errors.New("queue full"))

		_, err := service.Create(ctx, CreateFAQInput{TenantID: "tenant-1", ChatbotID: "bot-1", Question: "q", Answer: "a"})

		assert.EqualError(t, err, "queue full")
	})
}

func TestFAQService_List(t *testing.T) {
	ctx := context.Background()
	chatbots := new(MockChatbotRepository)
	faqs := new(MockFAQRepository)
	service := NewFAQService(chatbots, faqs, &testTxRunner{})

	chatbots.On("GetByID", mock.Anything, "bot-1").Return(activeChatbot("bot-1", "tenant-1"), nil)
	faqs.On("ListByChatbot", mock.Anything, "bot-1").Return([]*domain.FAQ{resetFAQWithAnswer()}, nil)

	list, err := service.List(ctx, "tenant-1", "bot-1")

	require.NoError(t, err)
	assert.Len(t, list, 1)
}
