package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-contact-book/internal/domain"
)

func newSlotRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("slot_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestGetSlot_NotFound(t *testing.T) {
	db := newSlotRepoDB(t, &domain.Slot{})
	s, err := GetSlot(context.Background(), db, "contacts")
	if s != nil || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected (nil, ErrNotFound), got (%v, %v)", s, err)
	}
}

func TestGetSlot_Error_NoTable(t *testing.T) {
	db := newSlotRepoDB(t /* no migrations */)
	if _, err := GetSlot(context.Background(), db, "contacts"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected a non-NotFound error when table missing, got %v", err)
	}
}

func TestPutSlot_InsertThenOverwrite(t *testing.T) {
	db := newSlotRepoDB(t, &domain.Slot{})
	ctx := context.Background()

	start := time.Now().UTC().Add(-time.Minute)
	if err := PutSlot(ctx, db, "contacts", `[]`); err != nil {
		t.Fatalf("PutSlot insert: %v", err)
	}
	got, err := GetSlot(ctx, db, "contacts")
	if err != nil {
		t.Fatalf("GetSlot: %v", err)
	}
	if got.Value != `[]` || got.UpdatedAt.Before(start) {
		t.Fatalf("unexpected slot after insert: %+v", got)
	}

	v2 := `[{"name":"Ivan","lastName":"Petrov","phone":"89123456789","id":0}]`
	if err := PutSlot(ctx, db, "contacts", v2); err != nil {
		t.Fatalf("PutSlot overwrite: %v", err)
	}
	got, err = GetSlot(ctx, db, "contacts")
	if err != nil {
		t.Fatalf("GetSlot after overwrite: %v", err)
	}
	if got.Value != v2 {
		t.Fatalf("expected overwritten value, got %q", got.Value)
	}

	// upsert must not create a second row
	var n int64
	if err := db.Model(&domain.Slot{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected exactly one slot row, got %d", n)
	}
}

func TestPutSlot_KeysAreIndependent(t *testing.T) {
	db := newSlotRepoDB(t, &domain.Slot{})
	ctx := context.Background()

	if err := PutSlot(ctx, db, "a", "1"); err != nil {
		t.Fatalf("PutSlot a: %v", err)
	}
	if err := PutSlot(ctx, db, "b", "2"); err != nil {
		t.Fatalf("PutSlot b: %v", err)
	}
	a, _ := GetSlot(ctx, db, "a")
	b, _ := GetSlot(ctx, db, "b")
	if a == nil || b == nil || a.Value != "1" || b.Value != "2" {
		t.Fatalf("unexpected slots: a=%+v b=%+v", a, b)
	}
}

func TestPutSlot_Error_NoTable(t *testing.T) {
	db := newSlotRepoDB(t /* no migrations */)
	if err := PutSlot(context.Background(), db, "contacts", "[]"); err == nil {
		t.Fatalf("expected error when table does not exist")
	}
}
