package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ErrorCode returns the code of the first DomainError in err's chain, or "".
func ErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// Common domain error codes
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeAlreadyExists      = "ALREADY_EXISTS"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeSessionExpired     = "SESSION_EXPIRED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInvalidState       = "INVALID_STATE"
	ErrCodeQuotaExceeded      = "QUOTA_EXCEEDED"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrInvalidChatbotStatus      = NewDomainError(ErrCodeValidation, "invalid chatbot status")
	ErrInvalidActionKind         = NewDomainError(ErrCodeValidation, "invalid action")
	ErrInvalidAnswerMode         = NewDomainError(ErrCodeValidation, "invalid answer mode")
	ErrInvalidLayout             = NewDomainError(ErrCodeValidation, "invalid layout")
	ErrInvalidEmbeddingJobStatus = NewDomainError(ErrCodeValidation, "invalid embedding job status")
	ErrMissingRequiredField      = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyQuery                = NewDomainError(ErrCodeValidation, "query is required")
	ErrRecordActionFailed        = NewDomainError(ErrCodeValidation, "record action failed")
	ErrInvalidTimeWindow         = NewDomainError(ErrCodeValidation, "window start must not be after window end")
)

// Not found errors
var (
	ErrTenantNotFound  = NewDomainError(ErrCodeNotFound, "tenant not found")
	ErrChatbotNotFound = NewDomainError(ErrCodeNotFound, "chatbot not found")
	ErrFAQNotFound     = NewDomainError(ErrCodeNotFound, "no such candidate")
	ErrEventNotFound   = NewDomainError(ErrCodeNotFound, "no such event")
	ErrSessionNotFound = NewDomainError(ErrCodeNotFound, "session not found")
	ErrAPIKeyNotFound  = NewDomainError(ErrCodeNotFound, "api key not found")
)

// Already exists errors
var (
	ErrTenantAlreadyExists  = NewDomainError(ErrCodeAlreadyExists, "tenant already exists")
	ErrChatbotAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "chatbot already exists")
	ErrAPIKeyAlreadyExists  = NewDomainError(ErrCodeAlreadyExists, "api key already exists")
)

// Authorization errors
var (
	ErrAPIKeyRevoked     = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey     = NewDomainError(ErrCodeUnauthorized, "invalid api key")
	ErrSessionExpired    = NewDomainError(ErrCodeSessionExpired, "session expired")
	ErrInvalidSession    = NewDomainError(ErrCodeForbidden, "invalid session")
	ErrSessionWrongScope = NewDomainError(ErrCodeForbidden, "session belongs to another chatbot")
)

// State errors
var (
	ErrChatbotSuspended = NewDomainError(ErrCodeInvalidState, "chatbot suspended")
	ErrQuotaExceeded    = NewDomainError(ErrCodeQuotaExceeded, "monthly query quota exceeded")
)

// Collaborator errors
var (
	ErrSelectorUnavailable  = NewDomainError(ErrCodeServiceUnavailable, "answer selection unavailable")
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
)
