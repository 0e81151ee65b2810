package domain

import "fmt"

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

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeUnavailable   = "UNAVAILABLE"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrEmptyMessage         = NewDomainError(ErrCodeValidation, "message is required")
	ErrInvalidRole          = NewDomainError(ErrCodeValidation, "invalid user role")
	ErrInvalidArticleStatus = NewDomainError(ErrCodeValidation, "invalid article status")
	ErrInvalidSourceType    = NewDomainError(ErrCodeValidation, "invalid source type")
)

// Not found errors
var (
	ErrProfileNotFound = NewDomainError(ErrCodeNotFound, "profile not found")
	ErrArticleNotFound = NewDomainError(ErrCodeNotFound, "article not found")
	ErrSessionNotFound = NewDomainError(ErrCodeNotFound, "session not found")
)

// Authorization errors
var (
	ErrUnauthorized    = NewDomainError(ErrCodeUnauthorized, "no valid session")
	ErrSessionExpired  = NewDomainError(ErrCodeUnauthorized, "session has expired")
	ErrProfileInactive = NewDomainError(ErrCodeForbidden, "profile is deactivated")
)

// External capability errors
var (
	ErrEmbeddingUnavailable  = NewDomainError(ErrCodeUnavailable, "embedding provider unavailable")
	ErrGenerationUnavailable = NewDomainError(ErrCodeUnavailable, "generation provider unavailable")
)
