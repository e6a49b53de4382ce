// Package services – ContactFormValidator
//
// This file implements the format rules for the three contact form fields.
// Every field is evaluated on each check so that a caller can flag all
// invalid fields in a single pass.
package services

import (
	"regexp"

	"github.com/tbourn/go-contact-book/internal/domain"
)

// Field identifies one input of the contact form.
type Field string

const (
	FieldName     Field = "name"
	FieldLastName Field = "lastName"
	FieldPhone    Field = "phone"
)

// FormFields lists the form inputs in display order.
var FormFields = []Field{FieldName, FieldLastName, FieldPhone}

// FieldReporter receives per-field validity signals. A presentation layer
// uses them to show or clear an error indicator next to each input.
type FieldReporter interface {
	FieldInvalid(f Field)
	FieldValid(f Field)
}

// FieldStates is a FieldReporter that records the last signal per field.
type FieldStates map[Field]bool

func (s FieldStates) FieldInvalid(f Field) { s[f] = false }
func (s FieldStates) FieldValid(f Field)   { s[f] = true }

var (
	// 1-50 letters, Latin or Cyrillic (including Ё/ё).
	personNameRE = regexp.MustCompile(`^[a-zA-Zа-яА-ЯёЁ]{1,50}$`)

	// Optional +7/7/8 prefix with an optional separator after it, a 3-digit
	// area code (optionally parenthesized), then 3-2-2 digit groups.
	phoneRE = regexp.MustCompile(`^((\+?7|8)[ -]?)?(\(\d{3}\)|\d{3})[ -]?\d{3}[ -]?\d{2}[ -]?\d{2}$`)
)

// ContactFormValidator checks raw contact form input. The zero value is ready
// to use.
type ContactFormValidator struct{}

// ValidField reports whether value is acceptable for f. Unknown fields are
// never valid.
func (ContactFormValidator) ValidField(f Field, value string) bool {
	switch f {
	case FieldName, FieldLastName:
		return personNameRE.MatchString(value)
	case FieldPhone:
		return phoneRE.MatchString(value)
	default:
		return false
	}
}

// Check validates all three fields, signalling r for each one, and reports
// whether every field passed. r may be nil.
func (v ContactFormValidator) Check(fields domain.ContactFields, r FieldReporter) bool {
	ok := true
	for _, f := range FormFields {
		valid := v.ValidField(f, fieldValue(fields, f))
		if !valid {
			ok = false
		}
		if r == nil {
			continue
		}
		if valid {
			r.FieldValid(f)
		} else {
			r.FieldInvalid(f)
		}
	}
	return ok
}

// Invalid returns the failing fields in form order, or nil when all pass.
func (v ContactFormValidator) Invalid(fields domain.ContactFields) []Field {
	var out []Field
	for _, f := range FormFields {
		if !v.ValidField(f, fieldValue(fields, f)) {
			out = append(out, f)
		}
	}
	return out
}

func fieldValue(fields domain.ContactFields, f Field) string {
	switch f {
	case FieldName:
		return fields.Name
	case FieldLastName:
		return fields.LastName
	case FieldPhone:
		return fields.Phone
	}
	return ""
}
