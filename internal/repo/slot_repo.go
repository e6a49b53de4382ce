// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the key-value slot repository: a single
// table where each row maps a fixed key to an opaque serialized value.
//
// The contact store keeps its whole list under one key and rewrites the row
// on every mutation, so PutSlot is an upsert.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-contact-book/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetSlot fetches the slot stored under key. If no such slot exists, it
// returns ErrNotFound. On other DB errors, the raw error is returned.
func GetSlot(ctx context.Context, db *gorm.DB, key string) (*domain.Slot, error) {
	var s domain.Slot
	err := db.WithContext(ctx).
		Where("`key` = ?", key).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// PutSlot stores value under key, replacing any previous value, and stamps
// UpdatedAt with the current UTC time.
func PutSlot(ctx context.Context, db *gorm.DB, key, value string) error {
	s := &domain.Slot{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(s).Error
}
