// Package services – IdempotencyService
//
// This file implements IdempotencyService, which remembers the outcome of a
// successful POST /contacts under the caller's Idempotency-Key so a retry
// can replay the original contact instead of adding it again.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-contact-book/internal/domain"
	"github.com/tbourn/go-contact-book/internal/observability"
	"github.com/tbourn/go-contact-book/internal/repo"
)

// DefaultIdempotencyTTL applies when TTL is zero.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyService stores and looks up idempotency records.
type IdempotencyService struct {
	// DB is the database handle holding the idempotency table.
	DB *gorm.DB
	// TTL bounds how long a key can be replayed.
	TTL time.Duration
}

// Lookup returns the contact recorded for (clientID, key) as it was when
// it was created. found is false when no unexpired record exists.
func (s *IdempotencyService) Lookup(ctx context.Context, clientID, key string, now time.Time) (created domain.Contact, found bool, err error) {
	ctx, span := observability.Tracer("IdempotencyService").Start(ctx, "Lookup")
	defer span.End()

	rec, err := repo.FindIdempotency(ctx, s.DB, clientID, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Contact{}, false, nil
	}
	if err != nil {
		return domain.Contact{}, false, fmt.Errorf("idempotency lookup: %w", err)
	}
	return rec.Contact(), true, nil
}

// Replay resolves a recorded submission to its contact via get.
// found is false when nothing is recorded (or the lookup failed). Ids are
// reused, so the recorded contact only counts as present when get returns
// the same triple under its id; otherwise Replay returns ErrReplayGone.
func (s *IdempotencyService) Replay(ctx context.Context, clientID, key string, now time.Time,
	get func(context.Context, int) (domain.Contact, error),
) (c domain.Contact, found bool, err error) {
	created, found, err := s.Lookup(ctx, clientID, key, now)
	if err != nil || !found {
		return domain.Contact{}, false, err
	}
	c, err = get(ctx, created.ID)
	switch {
	case errors.Is(err, ErrContactNotFound):
		return domain.Contact{}, true, ErrReplayGone
	case err != nil:
		return domain.Contact{}, true, err
	case c != created:
		return domain.Contact{}, true, ErrReplayGone
	}
	return c, true, nil
}

// Exists adapts Lookup to the middleware's lookup signature.
func (s *IdempotencyService) Exists(ctx context.Context, clientID, key string, now time.Time) (bool, error) {
	_, found, err := s.Lookup(ctx, clientID, key, now)
	return found, err
}

// Remember records that key produced c for clientID.
// A concurrent retry that already recorded the key is not an error.
func (s *IdempotencyService) Remember(ctx context.Context, clientID, key string, c domain.Contact) error {
	ctx, span := observability.Tracer("IdempotencyService").Start(ctx, "Remember")
	defer span.End()

	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	rec := domain.NewIdempotency(clientID, key, c, time.Now(), ttl)
	err := repo.SaveIdempotency(ctx, s.DB, rec)
	if err == nil || errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return fmt.Errorf("idempotency remember: %w", err)
}
