package domain

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Idempotency remembers which contact a client's POST /contacts produced
// under a given Idempotency-Key, until ExpiresAt. The contact's triple is
// kept alongside its id because ids are reused after a delete.
type Idempotency struct {
	ID              string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	ClientID        string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_client_key,priority:1"`
	Key             string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_client_key,priority:2"`
	ContactID       int       `gorm:"type:INTEGER NOT NULL"`
	ContactName     string    `gorm:"type:TEXT NOT NULL;default:''"`
	ContactLastName string    `gorm:"type:TEXT NOT NULL;default:''"`
	ContactPhone    string    `gorm:"type:TEXT NOT NULL;default:''"`
	Status          int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt       time.Time `gorm:"type:DATETIME NOT NULL"`
	ExpiresAt       time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

func (Idempotency) TableName() string { return "idempotency" }

// NewIdempotency builds the record for contact c created at now.
func NewIdempotency(clientID, key string, c Contact, now time.Time, ttl time.Duration) *Idempotency {
	now = now.UTC()
	return &Idempotency{
		ID:              uuid.NewString(),
		ClientID:        clientID,
		Key:             key,
		ContactID:       c.ID,
		ContactName:     c.Name,
		ContactLastName: c.LastName,
		ContactPhone:    c.Phone,
		Status:          http.StatusCreated,
		CreatedAt:       now,
		ExpiresAt:       now.Add(ttl),
	}
}

// Contact returns the contact as it was when the record was made.
func (r Idempotency) Contact() Contact {
	return Contact{ID: r.ContactID, Name: r.ContactName, LastName: r.ContactLastName, Phone: r.ContactPhone}
}
