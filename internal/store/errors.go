package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nick-dorsch/tracker/pkg/models"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("time conflict")
	ErrValidation = errors.New("invalid input")
)

// NotFoundError reports an id that does not resolve to a live item of the
// expected kind. Kind is empty when any kind was acceptable.
type NotFoundError struct {
	Kind models.Kind
	ID   int
}

func (e *NotFoundError) Error() string {
	what := "item"
	if e.Kind != "" {
		what = strings.ToLower(string(e.Kind))
	}
	return fmt.Sprintf("%s not found with id = %d", what, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError reports that an item's interval overlaps a scheduled item.
type ConflictError struct {
	ID   int
	With int
}

func (e *ConflictError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("%s with id = %d", ErrConflict, e.With)
	}
	return fmt.Sprintf("%s: id = %d overlaps id = %d", ErrConflict, e.ID, e.With)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// ValidationError reports structurally invalid input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	if e.Msg == "" {
		return ErrValidation.Error()
	}
	return fmt.Sprintf("%s: %s", ErrValidation, e.Msg)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalidf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func notFound(kind models.Kind, id int) error {
	return &NotFoundError{Kind: kind, ID: id}
}
