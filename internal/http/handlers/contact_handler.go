// Contact HTTP handlers.
//
// This file exposes REST endpoints for the contact book:
//   - GET    /contacts             (list sorted by last name, paginated, ETag support)
//   - GET    /contacts/next-id     (id the next contact would get)
//   - GET    /contacts/{id}        (single contact)
//   - POST   /contacts             (submit, Idempotency-Key aware)
//   - POST   /contacts/validate    (per-field validity, no mutation)
//   - DELETE /contacts/{id}        (remove; absent ids are not an error)
//
// Handlers are transport-thin: they bind input, call the contact book, and
// translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-contact-book/internal/domain"
	"github.com/tbourn/go-contact-book/internal/http/middleware"
	"github.com/tbourn/go-contact-book/internal/services"
	"github.com/tbourn/go-contact-book/internal/utils"
)

// HeaderIdempotencyReplayed marks a response served from a previous
// submission with the same Idempotency-Key.
const HeaderIdempotencyReplayed = middleware.HeaderIdempotencyReplayed

//
// Service contracts (context-aware)
//

// ContactBook defines the contact operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use.
type ContactBook interface {
	// SubmitContact validates and stores a new contact.
	SubmitContact(ctx context.Context, fields domain.ContactFields) (domain.Contact, error)
	// DeleteContact removes a contact; unknown ids succeed.
	DeleteContact(ctx context.Context, id int) error
	// Snapshot returns every contact sorted by last name, with the version
	// the list was read at.
	Snapshot(ctx context.Context) services.Snapshot
	// GetContact returns one contact or services.ErrContactNotFound.
	GetContact(ctx context.Context, id int) (domain.Contact, error)
	// NextID returns the id the next contact would receive.
	NextID(ctx context.Context) int
	// ValidateContact reports per-field validity to r without storing anything.
	ValidateContact(ctx context.Context, fields domain.ContactFields, r services.FieldReporter) bool
}

// IdempotencyStore remembers which contact a (client, key) pair created.
type IdempotencyStore interface {
	// Replay resolves a recorded submission through get; services.ErrReplayGone
	// means the contact was deleted since.
	Replay(ctx context.Context, clientID, key string, now time.Time,
		get func(context.Context, int) (domain.Contact, error)) (domain.Contact, bool, error)
	Remember(ctx context.Context, clientID, key string, c domain.Contact) error
}

//
// Handler wiring
//

// Handlers groups the contact endpoints.
type Handlers struct {
	book ContactBook
	idem IdempotencyStore
}

// New constructs Handlers. idem may be nil, which disables replay.
func New(book ContactBook, idem IdempotencyStore) *Handlers {
	return &Handlers{book: book, idem: idem}
}

//
// DTOs
//

// ContactRequest is the JSON payload of the contact form.
type ContactRequest struct {
	Name     string `json:"name"     example:"Ivan"`
	LastName string `json:"lastName" example:"Petrov"`
	Phone    string `json:"phone"    example:"+7 (912) 345-67-89"`
}

func (r ContactRequest) fields() domain.ContactFields {
	return domain.ContactFields{Name: r.Name, LastName: r.LastName, Phone: r.Phone}
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListContactsResponse wraps a page of contacts and pagination information.
type ListContactsResponse struct {
	Contacts   []domain.Contact `json:"contacts"`
	Pagination Pagination       `json:"pagination"`
}

// NextIDResponse is returned by GET /contacts/next-id.
type NextIDResponse struct {
	NextID int `json:"next_id" example:"3"`
}

// ValidateResponse reports the validity of every form field.
type ValidateResponse struct {
	Valid  bool            `json:"valid"`
	Fields map[string]bool `json:"fields"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 50
		maxPageSize     = 500
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// contactID parses the :id path param as a contact id.
func contactID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(c.Param("id")))
	if err != nil {
		return 0, false
	}
	return id, true
}

func fieldNames(fs []services.Field) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f)
	}
	return out
}

// listETag identifies the list state snap was read at.
func listETag(snap services.Snapshot) string {
	return fmt.Sprintf(`W/"contacts:%s:%d:%d"`, snap.Epoch, snap.Revision, len(snap.Contacts))
}

//
// Handlers
//

// ListContacts godoc
// @ID          listContacts
// @Summary     List contacts (paginated)
// @Description Returns contacts sorted by last name. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Contacts
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"contacts:9b2f4c1e-5d7a-4e3b-8c6d-0a1b2c3d4e5f:3:2\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(500) default(50)
//
// @Success     200  {object} handlers.ListContactsResponse
// @Header      200  {string} ETag           "Weak ETag for current result"
// @Header      200  {string} Cache-Control  "Caching directives (if set)"
// @Success     304  {string} string "Not Modified"
// @Router      /contacts [get]
func (h *Handlers) ListContacts(c *gin.Context) {
	snap := h.book.Snapshot(c.Request.Context())
	etag := listETag(snap)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return
	}

	page, pageSize := clampPagination(c)
	all := snap.Contacts
	items, totalPages := utils.Page(all, page, pageSize)

	ok(c, http.StatusOK, ListContactsResponse{
		Contacts: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int64(len(all)),
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// NextContactID godoc
// @ID          nextContactId
// @Summary     Next contact id
// @Description Returns the smallest non-negative id not in use.
// @Tags        Contacts
// @Produce     json
// @Success     200  {object} handlers.NextIDResponse
// @Router      /contacts/next-id [get]
func (h *Handlers) NextContactID(c *gin.Context) {
	ok(c, http.StatusOK, NextIDResponse{NextID: h.book.NextID(c.Request.Context())})
}

// GetContact godoc
// @ID          getContact
// @Summary     Get a contact
// @Tags        Contacts
// @Produce     json
//
// @Param       id  path  int  true  "Contact ID"  minimum(0)
//
// @Success     200  {object} domain.Contact
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Contact not found"
// @Router      /contacts/{id} [get]
func (h *Handlers) GetContact(c *gin.Context) {
	id, valid := contactID(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "contact id must be an integer")
		return
	}
	ct, err := h.book.GetContact(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "contact not found")
		return
	}
	ok(c, http.StatusOK, ct)
}

// CreateContact godoc
// @ID          createContact
// @Summary     Add a contact
// @Description Validates the form fields and stores a new contact. With an Idempotency-Key,
// @Description a retry replays the originally created contact with 200 and Idempotency-Replayed: true.
// @Tags        Contacts
// @Accept      json
// @Produce     json
//
// @Param       X-Client-ID      header  string  false "Client ID (scopes idempotency keys)"  example(web-1)
// @Param       Idempotency-Key  header  string  false "Safe-retry key"                       example(3f1c2a)
// @Param       body             body    handlers.ContactRequest  true  "Contact form"
//
// @Success     201  {object}  domain.Contact
// @Header      201  {string}  Location  "URL of the new contact"
// @Success     200  {object}  domain.Contact  "Replayed"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Duplicate contact"
// @Failure     410  {object}  handlers.ErrorResponse  "Replayed contact was deleted"
// @Failure     422  {object}  handlers.ErrorResponse  "Invalid fields"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contacts [post]
func (h *Handlers) CreateContact(c *gin.Context) {
	ctx := c.Request.Context()

	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	client := middleware.ClientID(c)
	idemKey, _ := middleware.GetIdempotencyKey(c)

	// Idempotency (replay path).
	if idemKey != "" && h.idem != nil {
		prev, found, err := h.idem.Replay(ctx, client, idemKey, time.Now().UTC(), h.book.GetContact)
		switch {
		case errors.Is(err, services.ErrReplayGone):
			fail(c, http.StatusGone, ErrCodeGone, "contact created by this request was deleted")
			return
		case err == nil && found:
			c.Header(HeaderIdempotencyReplayed, "true")
			ok(c, http.StatusOK, prev)
			return
		}
	}

	ct, err := h.book.SubmitContact(ctx, req.fields())
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			failWithFields(c, http.StatusUnprocessableEntity, ErrCodeInvalidContact, "invalid contact", fieldNames(verr.Fields))
		case errors.Is(err, services.ErrDuplicateContact):
			fail(c, http.StatusConflict, ErrCodeDuplicateContact, "contact already exists")
		default:
			failErr(c, http.StatusInternalServerError, ErrCodeCreateFailed, "could not save contact", err)
		}
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" && h.idem != nil {
		if err := h.idem.Remember(ctx, client, idemKey, ct); err != nil {
			lg := middleware.LoggerFrom(c)
			lg.Warn().Err(err).Int("contact_id", ct.ID).Msg("idempotency record not stored")
		}
	}

	c.Header("Location", fmt.Sprintf("%s/%d", strings.TrimSuffix(c.FullPath(), "/"), ct.ID))
	ok(c, http.StatusCreated, ct)
}

// ValidateContact godoc
// @ID          validateContact
// @Summary     Validate a contact form
// @Description Reports the validity of each field without storing anything.
// @Tags        Contacts
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.ContactRequest  true  "Contact form"
//
// @Success     200  {object} handlers.ValidateResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Router      /contacts/validate [post]
func (h *Handlers) ValidateContact(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	states := services.FieldStates{}
	valid := h.book.ValidateContact(c.Request.Context(), req.fields(), states)

	resp := ValidateResponse{Valid: valid, Fields: make(map[string]bool, len(states))}
	for f, v := range states {
		resp.Fields[string(f)] = v
	}
	ok(c, http.StatusOK, resp)
}

// DeleteContact godoc
// @ID          deleteContact
// @Summary     Delete a contact
// @Description Removes the contact. Deleting an id that does not exist also succeeds.
// @Tags        Contacts
//
// @Param       id  path  int  true  "Contact ID"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /contacts/{id} [delete]
func (h *Handlers) DeleteContact(c *gin.Context) {
	id, valid := contactID(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "contact id must be an integer")
		return
	}
	if err := h.book.DeleteContact(c.Request.Context(), id); err != nil {
		failErr(c, http.StatusInternalServerError, ErrCodeDeleteFailed, "could not delete contact", err)
		return
	}
	noContent(c)
}
