// Package errors provides custom error types for the eventdeck system.
// These errors let callers react to failures programmatically: every public
// method in eventdeck returns either a best-effort value or one of these
// errors, never a panic.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is is an alias for the standard library errors.Is.
var Is = errors.Is

// As is an alias for the standard library errors.As.
var As = errors.As

// Common sentinel errors for the eventdeck system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrTransientFetch indicates that the catalog service could not be reached
	// or answered with something unusable. Callers fall back to cached or
	// default data.
	ErrTransientFetch = errors.New("fetch failed")

	// ErrStorageUnavailable indicates that persistent storage is disabled,
	// full, or otherwise failing.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrMalformedData indicates that persisted data could not be decoded.
	ErrMalformedData = errors.New("malformed persisted data")

	// ErrSuperseded indicates that a result was discarded because the filter
	// that requested it is no longer the current one.
	ErrSuperseded = errors.New("superseded by a newer filter")

	// ErrClosed indicates use of a component after Close.
	ErrClosed = errors.New("closed")
)

// TransientFetchError represents a failed call to the catalog service.
// Non-2xx responses, malformed bodies and timeouts all map to this type.
type TransientFetchError struct {
	Operation  string // "categories", "events"
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *TransientFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s failed (status %d): %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("fetch %s failed: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *TransientFetchError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *TransientFetchError) Is(target error) bool {
	return target == ErrTransientFetch
}

// NewTransientFetchError creates a new TransientFetchError
func NewTransientFetchError(operation string, statusCode int, err error) *TransientFetchError {
	message := http.StatusText(statusCode)
	if err != nil {
		message = err.Error()
	}
	return &TransientFetchError{
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// StorageUnavailableError represents a storage backend that cannot accept or
// serve data.
type StorageUnavailableError struct {
	Backend string
	Key     string
	Err     error
}

// Error implements the error interface
func (e *StorageUnavailableError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s unavailable for key %s: %v", e.Backend, e.Key, e.Err)
	}
	return fmt.Sprintf("storage %s unavailable: %v", e.Backend, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *StorageUnavailableError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *StorageUnavailableError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

// NewStorageUnavailableError creates a new StorageUnavailableError
func NewStorageUnavailableError(backend, key string, err error) *StorageUnavailableError {
	return &StorageUnavailableError{Backend: backend, Key: key, Err: err}
}

// MalformedDataError represents a persisted value that failed to decode.
type MalformedDataError struct {
	Key string
	Err error
}

// Error implements the error interface
func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("malformed data in %s: %v", e.Key, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *MalformedDataError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *MalformedDataError) Is(target error) bool {
	return target == ErrMalformedData
}

// NewMalformedDataError creates a new MalformedDataError
func NewMalformedDataError(key string, err error) *MalformedDataError {
	return &MalformedDataError{Key: key, Err: err}
}

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", "url"
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "delete", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "create", "open", "load", "save"
	Resource  string // "client", "store", "backend"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsTransientFetch checks if an error is a failed catalog fetch
func IsTransientFetch(err error) bool {
	return errors.Is(err, ErrTransientFetch)
}

// IsStorageUnavailable checks if an error is a storage failure
func IsStorageUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

// IsMalformedData checks if an error is a decode failure of persisted data
func IsMalformedData(err error) bool {
	return errors.Is(err, ErrMalformedData)
}

// IsSuperseded checks if a result was discarded by a newer filter
func IsSuperseded(err error) bool {
	return errors.Is(err, ErrSuperseded)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapStorage wraps an error as a StorageUnavailableError
func WrapStorage(backend, key string, err error) error {
	if err == nil {
		return nil
	}
	return NewStorageUnavailableError(backend, key, err)
}
