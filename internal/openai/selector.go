package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/cloo-solutions/faqdesk/internal/selector"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultSelectorModel is the chat model used to pick answers
const DefaultSelectorModel = openai.GPT4oMini

// ChatAPI is the slice of the OpenAI client the selector needs
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Selector picks answers with a chat completion in JSON mode
type Selector struct {
	chat  ChatAPI
	model string
}

func NewSelector(apiKey, model string) *Selector {
	return NewSelectorWithAPI(openai.NewClient(apiKey), model)
}

// NewSelectorWithAPI creates a Selector over a custom chat client (for testing)
func NewSelectorWithAPI(chat ChatAPI, model string) *Selector {
	if model == "" {
		model = DefaultSelectorModel
	}
	return &Selector{chat: chat, model: model}
}

// SelectAnswers implements service.AnswerSelector
func (s *Selector) SelectAnswers(ctx context.Context, query string, candidates []*domain.Candidate) (*domain.Selection, error) {
	if len(candidates) == 0 {
		return selector.NoMatch(), nil
	}

	resp, err := s.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: selector.SystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: selector.UserPrompt(query, candidates)},
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	return selector.Parse(resp.Choices[0].Message.Content)
}
