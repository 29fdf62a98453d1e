// Package apperr defines the error taxonomy shared across the backend.
// Handlers map these types to HTTP status codes; everything else wraps
// underlying errors into one of them at the boundary where the failure
// is first understood.
package apperr

import (
	"errors"
	"fmt"
)

// GenerationError indicates the upstream question generator failed,
// timed out, refused, or returned malformed output. Callers may retry;
// nothing in the backend retries automatically.
type GenerationError struct {
	Subject string
	Topic   string
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("question generation failed for %s/%s: %v", e.Subject, e.Topic, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// StorageError indicates a blob store read or write failed.
type StorageError struct {
	Op  string // "put", "get", "list"
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("blob %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NotFoundError indicates a requested entity (question blob, user) does
// not exist.
type NotFoundError struct {
	Kind string // "question", "user"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// ValidationError indicates the caller supplied malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
