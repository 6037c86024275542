package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrAuthRequired = errors.New("authentication required")
	ErrForbidden    = errors.New("forbidden")
)

// ValidationError reports an empty or malformed required field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NotFoundError reports an operation on a post or comment id that does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func PostNotFound(id PostID) error {
	return &NotFoundError{Kind: "post", ID: string(id)}
}

// BackendError wraps any failure of the persistence layer.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Backend wraps err as a BackendError unless it already is a domain error.
func Backend(op string, err error) error {
	if err == nil {
		return nil
	}

	var ve *ValidationError
	var be *BackendError
	if errors.As(err, &ve) || errors.As(err, &be) ||
		errors.Is(err, ErrNotFound) || errors.Is(err, ErrAuthRequired) || errors.Is(err, ErrForbidden) {
		return err
	}
	return &BackendError{Op: op, Err: err}
}
