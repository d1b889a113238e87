// Package anthropic selects answers with the Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/cloo-solutions/faqdesk/internal/selector"
)

const (
	// DefaultModel is used when no selector model is configured
	DefaultModel = "claude-haiku-4-5"

	maxTokens = 1024
)

// MessagesClient defines the interface for Anthropic API calls
type MessagesClient interface {
	New(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error)
}

type realMessagesClient struct {
	messages *anthropic.MessageService
}

func (r *realMessagesClient) New(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	return r.messages.New(ctx, params)
}

// Selector implements service.AnswerSelector
type Selector struct {
	client MessagesClient
	model  string
}

func NewSelector(apiKey, model string) *Selector {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return NewSelectorWithClient(&realMessagesClient{messages: &client.Messages}, model)
}

// NewSelectorWithClient creates a Selector over a custom client (for testing)
func NewSelectorWithClient(client MessagesClient, model string) *Selector {
	if model == "" {
		model = DefaultModel
	}
	return &Selector{client: client, model: model}
}

func (s *Selector) SelectAnswers(ctx context.Context, query string, candidates []*domain.Candidate) (*domain.Selection, error) {
	if len(candidates) == 0 {
		return selector.NoMatch(), nil
	}

	resp, err := s.client.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: selector.SystemPrompt()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(selector.UserPrompt(query, candidates))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("selection request failed: %w", err)
	}

	return selector.Parse(textContent(resp))
}

func textContent(resp *anthropic.Message) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}
