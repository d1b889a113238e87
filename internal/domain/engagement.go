package domain

import (
	"fmt"
	"time"
)

// ActionKind is the feedback an end user gives on one candidate of an answer
type ActionKind string

const (
	ActionViewed    ActionKind = "viewed"
	ActionNotViewed ActionKind = "not_viewed"
	ActionLike      ActionKind = "like"
	ActionDislike   ActionKind = "dislike"
)

// ActionKinds lists every recognised action in display order
var ActionKinds = []ActionKind{ActionViewed, ActionNotViewed, ActionLike, ActionDislike}

// ParseActionKind converts a raw action string
func ParseActionKind(s string) (ActionKind, error) {
	kind := ActionKind(s)
	for _, k := range ActionKinds {
		if k == kind {
			return kind, nil
		}
	}
	return "", ErrInvalidActionKind
}

// AnswerMode selects between live traffic and authoring previews
type AnswerMode string

const (
	AnswerModeProduction AnswerMode = "production"
	AnswerModePreview    AnswerMode = "preview"
)

// ParseAnswerMode converts a raw mode string, defaulting to production
func ParseAnswerMode(s string) (AnswerMode, error) {
	switch AnswerMode(s) {
	case "", AnswerModeProduction:
		return AnswerModeProduction, nil
	case AnswerModePreview:
		return AnswerModePreview, nil
	}
	return "", ErrInvalidAnswerMode
}

// QueryEvent is one answered query, written only for session-bound traffic
type QueryEvent struct {
	ID          string
	ChatbotID   string
	SessionID   *string
	Query       string
	ResultCount int
	ReadCount   int
	Ignored     bool
	CreatedAt   time.Time
}

// ValidateQueryEvent validates a QueryEvent instance
func ValidateQueryEvent(e *QueryEvent) error {
	if e == nil {
		return fmt.Errorf("query event cannot be nil")
	}

	if e.ID == "" {
		return fmt.Errorf("query event ID is required")
	}

	if e.ChatbotID == "" {
		return fmt.Errorf("query event ChatbotID is required")
	}

	if e.ResultCount < 0 {
		return fmt.Errorf("query event ResultCount cannot be negative")
	}

	if e.ReadCount < 0 {
		return fmt.Errorf("query event ReadCount cannot be negative")
	}

	return nil
}

// QueryAction records the latest action on one candidate of one event.
// (EventID, FAQID) is unique.
type QueryAction struct {
	EventID   string
	FAQID     string
	Action    ActionKind
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChatSession is an end-user conversation with a chatbot
type ChatSession struct {
	ID           string
	ChatbotID    string
	QueryCount   int
	CreatedAt    time.Time
	LastActiveAt time.Time
}

// SessionRef is an optional reference to a chat session. The zero value is
// an absent session.
type SessionRef struct {
	id string
}

// SessionPresent references the given session. An empty id yields an absent
// reference.
func SessionPresent(id string) SessionRef {
	return SessionRef{id: id}
}

// NoSession is the absent session reference
func NoSession() SessionRef {
	return SessionRef{}
}

// Get returns the session id and whether one is present
func (s SessionRef) Get() (string, bool) {
	return s.id, s.id != ""
}

// IsPresent reports whether a session is referenced
func (s SessionRef) IsPresent() bool {
	return s.id != ""
}
