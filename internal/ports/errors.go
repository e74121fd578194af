package ports

import (
	"errors"
	"fmt"
)

// Common infrastructure errors that can occur during external service
// interactions.
var (
	// ErrServiceUnavailable indicates that the external service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidResponse indicates that the service returned an invalid
	// response.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrConfigNotFound indicates that required configuration is missing.
	ErrConfigNotFound = errors.New("configuration not found")
)

// StoreError represents a failed storage operation that is not a domain
// condition (not found, concurrency). It names the table and operation.
type StoreError struct {
	// Table is the relation that was being accessed.
	Table string

	// Operation is the name of the storage operation that failed.
	Operation string

	// Err is the underlying driver error.
	Err error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: operation=%s, table=%s, err=%v", e.Operation, e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError creates a new StoreError with the given details.
func NewStoreError(table, operation string, err error) *StoreError {
	return &StoreError{
		Table:     table,
		Operation: operation,
		Err:       err,
	}
}

// DeliveryError represents a failed notification delivery attempt.
type DeliveryError struct {
	// Channel names the delivery mechanism, e.g. "webhook".
	Channel string

	// StatusCode is the remote status when one was received.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for DeliveryError.
func (e *DeliveryError) Error() string {
	msg := fmt.Sprintf("delivery error: channel=%s, err=%v", e.Channel, e.Err)
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(", status=%d", e.StatusCode)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *DeliveryError) Unwrap() error { return e.Err }

// IsRetryable returns true if the error is temporary and the delivery
// can be retried.
func (e *DeliveryError) IsRetryable() bool {
	if e.StatusCode >= 500 || e.StatusCode == 429 {
		return true
	}
	return errors.Is(e.Err, ErrServiceUnavailable) || errors.Is(e.Err, ErrTimeout)
}

// ConfigError represents an error from configuration operations.
type ConfigError struct {
	// ConfigKey is the configuration key that was involved in the failed
	// operation.
	ConfigKey string

	// Err is the underlying error that caused the configuration operation
	// to fail.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}
