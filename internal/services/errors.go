// Package services defines the business logic of the contact book: the
// contact store, the form validator, and the ContactBook command interface.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"
	"strings"
)

var (
	// ErrDuplicateContact is returned by Add when a contact with the same
	// (name, lastName, phone) triple already exists. The store is unchanged.
	ErrDuplicateContact = errors.New("contact already exists")

	// ErrInvalidContact is matched by every *ValidationError.
	ErrInvalidContact = errors.New("invalid contact")

	// ErrContactNotFound indicates that no contact has the requested id.
	ErrContactNotFound = errors.New("contact not found")

	// ErrReplayGone is returned when an idempotent replay refers to a contact
	// that has since been deleted.
	ErrReplayGone = errors.New("contact for this idempotency key no longer exists")
)

// ValidationError lists the form fields that failed validation, in form order.
type ValidationError struct {
	Fields []Field
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = string(f)
	}
	return "invalid contact: " + strings.Join(names, ", ")
}

// Is reports ErrInvalidContact as the target's sentinel.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidContact }
