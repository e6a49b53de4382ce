package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-contact-book/internal/domain"
)

// ErrDuplicate is returned by SaveIdempotency when the client already holds
// a live record for the key.
var ErrDuplicate = errors.New("idempotency key already recorded")

func byClientKey(clientID, key string) map[string]any {
	return map[string]any{"client_id": clientID, "key": key}
}

// FindIdempotency returns the record for (clientID, key) that is still live
// at now, or ErrNotFound.
func FindIdempotency(ctx context.Context, db *gorm.DB, clientID, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	rec := new(domain.Idempotency)
	err := db.WithContext(ctx).
		Where(byClientKey(clientID, key)).
		Where("expires_at > ?", now.UTC()).
		Take(rec).Error
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// SaveIdempotency stores rec. A record for the same pair that expired
// before rec.CreatedAt is dropped first, so keys become reusable after
// their TTL. A live record for the pair yields ErrDuplicate.
func SaveIdempotency(ctx context.Context, db *gorm.DB, rec *domain.Idempotency) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where(byClientKey(rec.ClientID, rec.Key)).
			Where("expires_at <= ?", rec.CreatedAt).
			Delete(&domain.Idempotency{}).Error
		if err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
		switch {
		case res.Error != nil:
			return res.Error
		case res.RowsAffected == 0:
			return ErrDuplicate
		}
		return nil
	})
}
