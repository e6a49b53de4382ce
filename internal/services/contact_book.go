// Package services – ContactBook
//
// This file implements ContactBook, the command interface used by the HTTP
// layer. It normalizes raw form input, validates every field, and delegates
// mutations to ContactStore. Contact metrics are kept current through a
// store change listener.
//
// Observability: all public methods are OpenTelemetry-instrumented.
package services

import (
	"context"
	"errors"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/go-contact-book/internal/domain"
	"github.com/tbourn/go-contact-book/internal/observability"
)

// ContactBook coordinates validation and storage of contacts.
type ContactBook struct {
	Store     *ContactStore
	Validator ContactFormValidator
}

// NewContactBook wires a book to store and starts tracking the
// contacts_stored gauge.
func NewContactBook(store *ContactStore) *ContactBook {
	store.OnChange(func(ev ChangeEvent) {
		observability.SetContactsStored(ev.Len)
		if ev.Op == OpRemove {
			observability.ObserveDeletion()
		}
	})
	observability.SetContactsStored(store.Len())
	return &ContactBook{Store: store}
}

// NormalizeFields returns fields in Unicode NFC so that composed and
// decomposed spellings validate alike. Stored contacts keep the bytes the
// caller sent.
func NormalizeFields(f domain.ContactFields) domain.ContactFields {
	return domain.ContactFields{
		Name:     norm.NFC.String(f.Name),
		LastName: norm.NFC.String(f.LastName),
		Phone:    norm.NFC.String(f.Phone),
	}
}

// SubmitContact validates the normalized fields and adds the contact as
// submitted, so duplicates are detected on the exact triple.
//
// Errors:
//   - *ValidationError (matches ErrInvalidContact) listing every bad field.
//   - ErrDuplicateContact when the exact triple already exists.
//   - A wrapped storage error when persisting fails; nothing is added.
func (b *ContactBook) SubmitContact(ctx context.Context, fields domain.ContactFields) (domain.Contact, error) {
	ctx, span := observability.Tracer("ContactBook").Start(ctx, "SubmitContact")
	defer span.End()

	if bad := b.Validator.Invalid(NormalizeFields(fields)); len(bad) > 0 {
		for _, f := range bad {
			observability.ObserveInvalidField(string(f))
		}
		observability.ObserveSubmission(observability.ResultInvalid)
		span.SetAttributes(attribute.Int("contact.invalid_fields", len(bad)))
		return domain.Contact{}, &ValidationError{Fields: bad}
	}

	c, err := b.Store.Add(ctx, fields)
	switch {
	case errors.Is(err, ErrDuplicateContact):
		observability.ObserveSubmission(observability.ResultDuplicate)
		return domain.Contact{}, err
	case err != nil:
		observability.ObserveSubmission(observability.ResultError)
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return domain.Contact{}, err
	}

	observability.ObserveSubmission(observability.ResultCreated)
	span.SetAttributes(attribute.Int("contact.id", c.ID))
	return c, nil
}

// DeleteContact removes the contact with id. Unknown ids are not an error.
func (b *ContactBook) DeleteContact(ctx context.Context, id int) error {
	ctx, span := observability.Tracer("ContactBook").Start(ctx, "DeleteContact",
		trace.WithAttributes(attribute.Int("contact.id", id)),
	)
	defer span.End()

	removed, err := b.Store.Remove(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return err
	}
	span.SetAttributes(attribute.Bool("contact.removed", removed))
	return nil
}

// ListContacts returns the contacts sorted by last name.
func (b *ContactBook) ListContacts(ctx context.Context) []domain.Contact {
	_, span := observability.Tracer("ContactBook").Start(ctx, "ListContacts")
	defer span.End()

	out := slices.Collect(b.Store.List())
	if out == nil {
		out = []domain.Contact{}
	}
	span.SetAttributes(attribute.Int("contacts.count", len(out)))
	return out
}

// Snapshot returns the sorted contacts with the version they were read at.
func (b *ContactBook) Snapshot(ctx context.Context) Snapshot {
	_, span := observability.Tracer("ContactBook").Start(ctx, "Snapshot")
	defer span.End()

	snap := b.Store.Snapshot()
	if snap.Contacts == nil {
		snap.Contacts = []domain.Contact{}
	}
	span.SetAttributes(
		attribute.Int("contacts.count", len(snap.Contacts)),
		attribute.Int64("contacts.revision", int64(snap.Revision)),
	)
	return snap
}

// GetContact returns the contact with id or ErrContactNotFound.
func (b *ContactBook) GetContact(ctx context.Context, id int) (domain.Contact, error) {
	_, span := observability.Tracer("ContactBook").Start(ctx, "GetContact",
		trace.WithAttributes(attribute.Int("contact.id", id)),
	)
	defer span.End()

	c, ok := b.Store.Get(id)
	if !ok {
		return domain.Contact{}, ErrContactNotFound
	}
	return c, nil
}

// NextID returns the id the next submitted contact would receive.
func (b *ContactBook) NextID(ctx context.Context) int {
	_, span := observability.Tracer("ContactBook").Start(ctx, "NextID")
	defer span.End()
	return b.Store.NextID()
}

// Revision returns the store revision; it changes whenever the list does.
func (b *ContactBook) Revision() uint64 { return b.Store.Revision() }

// Len returns the number of stored contacts.
func (b *ContactBook) Len() int { return b.Store.Len() }

// ValidateContact runs the validator over normalized fields without storing
// anything. r receives a signal for every field and may be nil.
func (b *ContactBook) ValidateContact(ctx context.Context, fields domain.ContactFields, r FieldReporter) bool {
	_, span := observability.Tracer("ContactBook").Start(ctx, "ValidateContact")
	defer span.End()

	ok := b.Validator.Check(NormalizeFields(fields), r)
	span.SetAttributes(attribute.Bool("contact.valid", ok))
	return ok
}
