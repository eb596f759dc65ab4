package errors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Kind is the closed set of failure categories an action can report.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindInvalidID    Kind = "invalid_id"
	KindDatabase     Kind = "database"
	KindRateLimited  Kind = "rate_limited"
	KindUnauthorized Kind = "unauthorized"
)

type AppError struct {
	Code        string
	Kind        Kind
	Message     string
	UserMessage string
	Severity    Severity
	Fields      map[string][]string
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

// Short returns the short headline shown next to a failed form, e.g. "Not found.".
func (e *AppError) Short() string {
	if e == nil {
		return ""
	}

	switch e.Kind {
	case KindValidation:
		return "Invalid data."
	case KindNotFound:
		return "Not found."
	case KindInvalidID:
		return "Invalid ID format."
	case KindDatabase:
		return "Database error."
	case KindRateLimited:
		return "Too many requests."
	case KindUnauthorized:
		return "Unauthorized."
	default:
		return "Error."
	}
}

func NewValidationError(fields map[string][]string) *AppError {
	return &AppError{
		Code:        "E100",
		Kind:        KindValidation,
		Message:     fmt.Sprintf("validation failed for %d field(s)", len(fields)),
		UserMessage: "Please correct the highlighted fields.",
		Severity:    SeverityLow,
		Fields:      fields,
	}
}

func NewNotFoundError(entity, userMessage string) *AppError {
	return &AppError{
		Code:        "E110",
		Kind:        KindNotFound,
		Message:     fmt.Sprintf("%s not found", entity),
		UserMessage: userMessage,
		Severity:    SeverityLow,
	}
}

func NewInvalidIDError(entity, id string, cause error) *AppError {
	return &AppError{
		Code:        "E120",
		Kind:        KindInvalidID,
		Message:     fmt.Sprintf("invalid %s id %q", entity, id),
		UserMessage: fmt.Sprintf("%s ID is not a valid ObjectId format.", entity),
		Severity:    SeverityLow,
		cause:       cause,
	}
}

func NewDatabaseError(operation string, cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E200",
		Kind:        KindDatabase,
		Message:     fmt.Sprintf("database error during %s: %s", operation, underlyingMsg),
		UserMessage: fmt.Sprintf("Failed to %s due to a server issue. Please try again later.", operation),
		Severity:    SeverityHigh,
		cause:       cause,
	}
}

func NewRateLimitError(userMessage string) *AppError {
	return &AppError{
		Code:        "E500",
		Kind:        KindRateLimited,
		Message:     "rate limit exceeded",
		UserMessage: userMessage,
		Severity:    SeverityLow,
	}
}

func NewUnauthorizedError(userMessage string) *AppError {
	return &AppError{
		Code:        "E600",
		Kind:        KindUnauthorized,
		Message:     "authentication failed",
		UserMessage: userMessage,
		Severity:    SeverityLow,
	}
}
