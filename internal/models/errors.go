package models

import (
	"errors"
	"fmt"
)

// Domain error kinds. Handlers map them to status codes; callers test them
// with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrProtected          = errors.New("protected")
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// ValidationError reports malformed input. It is raised before any store call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// EntityError attaches entity context to a domain error kind. The underlying
// backend error stays reachable through errors.Is/As but is not part of the
// message.
type EntityError struct {
	Entity string
	ID     string
	Kind   error
	Cause  error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Entity, e.ID, e.Kind)
}

func (e *EntityError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func NewNotFound(entity, id string) error {
	return &EntityError{Entity: entity, ID: id, Kind: ErrNotFound}
}

func NewAlreadyExists(entity, id string) error {
	return &EntityError{Entity: entity, ID: id, Kind: ErrAlreadyExists}
}

func NewProtected(entity, id string) error {
	return &EntityError{Entity: entity, ID: id, Kind: ErrProtected}
}

// PublicMessage describes err without backend detail. Entity errors keep
// their entity and kind, validation errors their message; anything else is
// reported as an internal error.
func PublicMessage(err error) string {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Message
	}
	var e *EntityError
	if errors.As(err, &e) {
		return e.Error()
	}
	return "internal error"
}

// IsValidation reports whether err is a *ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
