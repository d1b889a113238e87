package domain

import (
	"fmt"
	"time"
)

// FAQLayout controls how the widget renders an answer
type FAQLayout string

const (
	FAQLayoutText  FAQLayout = "text"
	FAQLayoutImage FAQLayout = "image"
	FAQLayoutVideo FAQLayout = "video"
	FAQLayoutLink  FAQLayout = "link"
)

// FAQ is a question/answer pair owned by a chatbot. It is the unit the
// search engine ranks and the selector chooses from.
type FAQ struct {
	ID        string
	ChatbotID string
	Question  string
	Answer    string
	Layout    FAQLayout
	MediaKey  string // Object key in media storage, optional
	HitCount  int64
	LastHitAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewFAQ creates a new FAQ instance
func NewFAQ(id, chatbotID, question, answer string, layout FAQLayout, createdAt time.Time) *FAQ {
	return &FAQ{
		ID:        id,
		ChatbotID: chatbotID,
		Question:  question,
		Answer:    answer,
		Layout:    layout,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// ParseFAQLayout converts a raw layout string, defaulting to text
func ParseFAQLayout(s string) (FAQLayout, error) {
	if s == "" {
		return FAQLayoutText, nil
	}
	layout := FAQLayout(s)
	if !isValidFAQLayout(layout) {
		return "", ErrInvalidLayout
	}
	return layout, nil
}

// ValidateFAQ validates an FAQ instance
func ValidateFAQ(f *FAQ) error {
	if f == nil {
		return fmt.Errorf("faq cannot be nil")
	}

	if f.ID == "" {
		return fmt.Errorf("faq ID is required")
	}

	if f.ChatbotID == "" {
		return fmt.Errorf("faq ChatbotID is required")
	}

	if f.Question == "" {
		return fmt.Errorf("faq Question is required")
	}

	if f.Answer == "" {
		return fmt.Errorf("faq Answer is required")
	}

	if !isValidFAQLayout(f.Layout) {
		return fmt.Errorf("faq Layout is invalid: %s", f.Layout)
	}

	return nil
}

func isValidFAQLayout(l FAQLayout) bool {
	switch l {
	case FAQLayoutText, FAQLayoutImage, FAQLayoutVideo, FAQLayoutLink:
		return true
	}
	return false
}
