package handlers

import "github.com/tbourn/go-contact-book/internal/http/middleware"

// Error codes carried in ErrorResponse.Code. Clients branch on these, not on
// the message text, so values never change once published.
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "invalid_contact",
//	  "message": "contact failed validation",
//	  "fields": ["phone"]
//	}
const (
	// Transport-level.
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeGone             = "gone"

	// Written by middleware before a handler runs.
	ErrCodeInternal          = middleware.CodeInternal
	ErrCodeRateLimited       = middleware.CodeRateLimited
	ErrCodeBadIdempotencyKey = middleware.CodeBadIdempotencyKey

	// Contact book.
	ErrCodeInvalidContact   = "invalid_contact"   // 422, Fields lists the offenders
	ErrCodeDuplicateContact = "duplicate_contact" // 409, same name and phone
	ErrCodeCreateFailed     = "create_failed"
	ErrCodeDeleteFailed     = "delete_failed"
)
