package domain

import (
	"errors"
	"fmt"
)

// Common domain errors returned by the judging and selection engine.
var (
	// ErrNotFound indicates that a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoEligibleEntries indicates that eligibility filtering left nothing
	// to select winners from.
	ErrNoEligibleEntries = errors.New("no eligible entries")

	// ErrConcurrency indicates contention on a shared resource such as the
	// completion critical section of a judging session.
	ErrConcurrency = errors.New("concurrent modification")

	// ErrSessionCompleted indicates a write against a session that has
	// already reached its final decision.
	ErrSessionCompleted = errors.New("judging session already completed")

	// ErrDiscussionDisabled indicates a comment on a session that does not
	// allow discussion.
	ErrDiscussionDisabled = errors.New("discussion is disabled for this session")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// AddErrorf adds a formatted error message to the validation error.
func (e *ValidationError) AddErrorf(format string, args ...any) {
	e.AddError(fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}

// Invalid is a shorthand for a ValidationError carrying a single message.
func Invalid(entity, msg string) *ValidationError {
	return &ValidationError{Entity: entity, Errors: []string{msg}}
}

// NotFoundError reports a missing entity by kind and identifier.
type NotFoundError struct {
	// Entity is the kind of the missing entity, e.g. "contest".
	Entity string

	// ID is the identifier that was looked up.
	ID string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// NoEligibleEntriesError is returned by winner selection when the filtered
// pool is empty. Kind is "contest" or "giveaway".
type NoEligibleEntriesError struct {
	Kind string
	ID   string
}

// Error implements the error interface for NoEligibleEntriesError.
func (e *NoEligibleEntriesError) Error() string {
	noun := "submissions"
	if e.Kind == "giveaway" {
		noun = "entries"
	}
	return fmt.Sprintf("no eligible %s to select from for %s %q", noun, e.Kind, e.ID)
}

// Is reports whether target is ErrNoEligibleEntries.
func (e *NoEligibleEntriesError) Is(target error) bool { return target == ErrNoEligibleEntries }

// ConcurrencyError reports lock contention or a serialization failure on a
// shared resource.
type ConcurrencyError struct {
	// Resource names the contended resource, e.g. "submission:<id>".
	Resource string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface for ConcurrencyError.
func (e *ConcurrencyError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("concurrency error: resource=%s", e.Resource)
	}
	return fmt.Sprintf("concurrency error: resource=%s, err=%v", e.Resource, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConcurrencyError) Unwrap() error { return e.Err }

// Is reports whether target is ErrConcurrency.
func (e *ConcurrencyError) Is(target error) bool { return target == ErrConcurrency }

// NewConcurrencyError creates a new ConcurrencyError.
func NewConcurrencyError(resource string, err error) *ConcurrencyError {
	return &ConcurrencyError{Resource: resource, Err: err}
}

// NotificationDeliveryError wraps a failed notification. It is never returned
// from a primary operation; it is logged and recorded only.
type NotificationDeliveryError struct {
	UserID string
	Event  EventType
	Err    error
}

// Error implements the error interface for NotificationDeliveryError.
func (e *NotificationDeliveryError) Error() string {
	return fmt.Sprintf("notification delivery failed: user=%s, event=%s, err=%v", e.UserID, e.Event, e.Err)
}

// Unwrap returns the underlying error.
func (e *NotificationDeliveryError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is or wraps a not-found error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
