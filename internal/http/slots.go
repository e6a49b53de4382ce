package httpapi

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-contact-book/internal/domain"
	"github.com/tbourn/go-contact-book/internal/repo"
)

// SlotRepoShim satisfies services.SlotRepo with the repo package functions.
type SlotRepoShim struct{}

func (SlotRepoShim) GetSlot(ctx context.Context, db *gorm.DB, key string) (*domain.Slot, error) {
	return repo.GetSlot(ctx, db, key)
}

func (SlotRepoShim) PutSlot(ctx context.Context, db *gorm.DB, key, value string) error {
	return repo.PutSlot(ctx, db, key, value)
}
