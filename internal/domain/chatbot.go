package domain

import (
	"fmt"
	"time"
)

// ChatbotStatus represents the lifecycle state of a chatbot
type ChatbotStatus string

const (
	ChatbotStatusDraft     ChatbotStatus = "draft"
	ChatbotStatusActive    ChatbotStatus = "active"
	ChatbotStatusSuspended ChatbotStatus = "suspended"
)

// Chatbot is a tenant-owned assistant answering from its own FAQ entries
type Chatbot struct {
	ID       string
	TenantID string
	Name     string
	Status   ChatbotStatus
	// MonthlyQueryLimit caps production queries per calendar month; 0 means unlimited.
	MonthlyQueryLimit int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewChatbot creates a new Chatbot in draft state
func NewChatbot(id, tenantID, name string, monthlyQueryLimit int, createdAt time.Time) *Chatbot {
	return &Chatbot{
		ID:                id,
		TenantID:          tenantID,
		Name:              name,
		Status:            ChatbotStatusDraft,
		MonthlyQueryLimit: monthlyQueryLimit,
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
	}
}

// IsActive reports whether the chatbot serves production traffic
func (c *Chatbot) IsActive() bool {
	return c.Status == ChatbotStatusActive
}

// ParseChatbotStatus converts a raw status string
func ParseChatbotStatus(s string) (ChatbotStatus, error) {
	status := ChatbotStatus(s)
	if !isValidChatbotStatus(status) {
		return "", ErrInvalidChatbotStatus
	}
	return status, nil
}

// ValidateChatbot validates a Chatbot instance
func ValidateChatbot(c *Chatbot) error {
	if c == nil {
		return fmt.Errorf("chatbot cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("chatbot ID is required")
	}

	if c.TenantID == "" {
		return fmt.Errorf("chatbot TenantID is required")
	}

	if c.Name == "" {
		return fmt.Errorf("chatbot Name is required")
	}

	if !isValidChatbotStatus(c.Status) {
		return fmt.Errorf("chatbot Status is invalid: %s", c.Status)
	}

	if c.MonthlyQueryLimit < 0 {
		return fmt.Errorf("chatbot MonthlyQueryLimit cannot be negative")
	}

	return nil
}

func isValidChatbotStatus(s ChatbotStatus) bool {
	switch s {
	case ChatbotStatusDraft, ChatbotStatusActive, ChatbotStatusSuspended:
		return true
	}
	return false
}
