// Package errors provides the failure taxonomy for calls to the upstream generation service.
//
// Every failure that leaves the orchestration layer is an *AIError carrying a Category,
// the operation name and the number of attempts made. Failures coming back from the
// transport are *UpstreamError values and are mapped to a Category by a Classifier.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Category identifies the class of a failure.
type Category string

const (
	// CategoryRateLimit is an upstream quota or throttling rejection. Retried with exponential backoff.
	CategoryRateLimit Category = "RATE_LIMIT"
	// CategoryAuth is a rejected credential. Terminal.
	CategoryAuth Category = "AUTH"
	// CategoryTimeout is an attempt that exceeded its time budget. Retried with a fixed delay.
	CategoryTimeout Category = "TIMEOUT"
	// CategoryInvalidRequest is a request the upstream refuses to process. Terminal.
	CategoryInvalidRequest Category = "INVALID_REQUEST"
	// CategoryCircuitOpen is a call rejected by an open circuit without reaching the upstream.
	CategoryCircuitOpen Category = "CIRCUIT_OPEN"
	// CategoryParseFailure is model output from which no validated object could be recovered.
	CategoryParseFailure Category = "PARSE_FAILURE"
	// CategoryConfiguration is a missing or unusable local setting, e.g. an empty credential pool.
	CategoryConfiguration Category = "CONFIGURATION"
	// CategoryUnknown is anything else. Retried with a fixed delay.
	CategoryUnknown Category = "UNKNOWN"
)

// String returns the wire name of the category.
func (c Category) String() string {
	return string(c)
}

// Terminal reports whether retrying a failure of this category is futile.
func (c Category) Terminal() bool {
	switch c {
	case CategoryAuth, CategoryInvalidRequest, CategoryCircuitOpen, CategoryParseFailure, CategoryConfiguration:
		return true
	default:
		return false
	}
}

// AIError is the structured failure returned by every public operation.
type AIError struct {
	Category  Category
	Operation string
	Attempts  int
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *AIError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Category)
	}
}

// Unwrap returns the underlying error for errors.Is and errors.As compatibility.
func (e *AIError) Unwrap() error {
	return e.Err
}

// New creates an AIError with no underlying cause.
func New(category Category, operation, message string) *AIError {
	return &AIError{Category: category, Operation: operation, Message: message}
}

// Configuration reports an unusable local setting.
func Configuration(message string) *AIError {
	return &AIError{Category: CategoryConfiguration, Message: message}
}

// CircuitOpen reports a call rejected by the breaker for operation.
func CircuitOpen(operation string, retryAt time.Time) *AIError {
	return &AIError{
		Category:  CategoryCircuitOpen,
		Operation: operation,
		Message:   fmt.Sprintf("circuit breaker is OPEN for %s, retry after %s", operation, retryAt.Format(time.RFC3339)),
	}
}

// Timeout reports an operation that did not settle within limit.
func Timeout(operation string, limit time.Duration, message string) *AIError {
	if message == "" {
		message = fmt.Sprintf("operation %s timed out after %dms", operation, limit.Milliseconds())
	}
	return &AIError{Category: CategoryTimeout, Operation: operation, Message: message}
}

// ParseFailure reports model output that could not be turned into a validated object.
func ParseFailure(operation, message string, cause error) *AIError {
	return &AIError{Category: CategoryParseFailure, Operation: operation, Message: message, Err: cause}
}

// Wrap prefixes err with purpose while keeping its category, operation and attempt count.
// Errors that are not yet an AIError are classified with the default classifier.
func Wrap(err error, operation, purpose string) *AIError {
	if err == nil {
		return nil
	}
	wrapped := &AIError{Operation: operation, Message: purpose, Err: err}
	var ae *AIError
	if errors.As(err, &ae) {
		wrapped.Category = ae.Category
		wrapped.Attempts = ae.Attempts
		if ae.Operation != "" {
			wrapped.Operation = ae.Operation
		}
		return wrapped
	}
	wrapped.Category = Classify(err)
	return wrapped
}

// CategoryOf returns the category of err, classifying it if it is not an AIError.
func CategoryOf(err error) Category {
	if err == nil {
		return ""
	}
	return Classify(err)
}

// IsCategory reports whether err belongs to category.
func IsCategory(err error, category Category) bool {
	return err != nil && CategoryOf(err) == category
}

// IsTerminal reports whether err should not be retried.
func IsTerminal(err error) bool {
	return err != nil && CategoryOf(err).Terminal()
}

// UpstreamError is a non-success response from the generation endpoint.
type UpstreamError struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Status is the upstream status string, e.g. RESOURCE_EXHAUSTED.
	Status string
	// Message is the upstream error message or the raw body when it was not JSON.
	Message string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("upstream error (HTTP %d %s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("upstream error (HTTP %d): %s", e.StatusCode, e.Message)
}
