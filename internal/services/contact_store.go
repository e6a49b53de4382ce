// Package services – ContactStore
//
// This file implements ContactStore, the owner of the canonical contact list.
// It assigns ids (smallest unused first), rejects duplicate
// (name, lastName, phone) triples, and mirrors the whole list into a single
// key-value slot after every mutation. If persisting fails, the in-memory
// change is rolled back, so a reload always reconstructs the same contacts.
package services

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-contact-book/internal/domain"
	"github.com/tbourn/go-contact-book/internal/repo"
)

// DefaultStorageKey is the slot key used when none is configured.
const DefaultStorageKey = "contacts"

// SlotRepo defines the repository contract required by ContactStore.
type SlotRepo interface {
	// GetSlot returns the slot stored under key, or repo.ErrNotFound.
	GetSlot(ctx context.Context, db *gorm.DB, key string) (*domain.Slot, error)

	// PutSlot replaces the value stored under key.
	PutSlot(ctx context.Context, db *gorm.DB, key, value string) error
}

// ChangeOp names the mutation reported to change listeners.
type ChangeOp string

const (
	OpLoad   ChangeOp = "load"
	OpAdd    ChangeOp = "add"
	OpRemove ChangeOp = "remove"
)

// ChangeEvent is delivered to listeners after a successful mutation.
type ChangeEvent struct {
	Op       ChangeOp
	Contact  domain.Contact // zero for OpLoad
	Len      int
	Revision uint64
}

// persistedContact is the slot encoding of one contact. ID is a pointer so
// that snapshots written without ids can be told apart from id 0.
type persistedContact struct {
	Name     string `json:"name"`
	LastName string `json:"lastName"`
	Phone    string `json:"phone"`
	ID       *int   `json:"id,omitempty"`
}

// Snapshot is the sorted contact list together with the version it was
// read at. Epoch is minted per store instance, so (Epoch, Revision) never
// names two different lists, even across restarts over the same slot.
type Snapshot struct {
	Contacts []domain.Contact
	Epoch    string
	Revision uint64
}

// ContactStore holds contacts in insertion order. All methods are safe for
// concurrent use.
type ContactStore struct {
	// DB is the GORM handle passed to the repository.
	DB *gorm.DB
	// Repo is the key-value slot repository.
	Repo SlotRepo
	// Key is the slot key holding the serialized list.
	Key string

	epoch     string
	mu        sync.Mutex
	contacts  []domain.Contact
	rev       uint64
	listeners []func(ChangeEvent)
}

// NewContactStore constructs an empty store. Call Initialize to load the
// persisted list.
func NewContactStore(db *gorm.DB, r SlotRepo, key string) *ContactStore {
	if key == "" {
		key = DefaultStorageKey
	}
	return &ContactStore{DB: db, Repo: r, Key: key, epoch: uuid.NewString()}
}

// Initialize replaces the in-memory list with the persisted snapshot.
//
// A missing slot yields an empty store. A slot that cannot be decoded is
// logged and treated as empty. Only a failed storage read is returned.
// Entries keep their stored id when it is non-negative and not yet taken;
// the rest receive the smallest unused ids in stored order. Entries that
// repeat an earlier triple are dropped.
func (s *ContactStore) Initialize(ctx context.Context) error {
	var raw []persistedContact

	slot, err := s.Repo.GetSlot(ctx, s.DB, s.Key)
	switch {
	case errors.Is(err, repo.ErrNotFound):
	case err != nil:
		return fmt.Errorf("load contacts %q: %w", s.Key, err)
	default:
		if jerr := json.Unmarshal([]byte(slot.Value), &raw); jerr != nil {
			log.Warn().Err(jerr).Str("key", s.Key).Msg("malformed persisted contacts, starting empty")
			raw = nil
		}
	}

	loaded := rebuild(raw)

	s.mu.Lock()
	s.contacts = loaded
	s.rev++
	ev := ChangeEvent{Op: OpLoad, Len: len(loaded), Revision: s.rev}
	fns := slices.Clone(s.listeners)
	s.mu.Unlock()

	log.Info().Str("key", s.Key).Int("contacts", len(loaded)).Msg("contacts loaded")
	notify(fns, ev)
	return nil
}

// rebuild turns decoded entries into contacts with unique triples and ids.
func rebuild(raw []persistedContact) []domain.Contact {
	seen := make(map[domain.ContactFields]struct{}, len(raw))
	kept := make([]persistedContact, 0, len(raw))
	for _, p := range raw {
		k := domain.ContactFields{Name: p.Name, LastName: p.LastName, Phone: p.Phone}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, p)
	}

	out := make([]domain.Contact, len(kept))
	used := make(map[int]struct{}, len(kept))
	pending := make([]int, 0)
	for i, p := range kept {
		out[i] = domain.Contact{Name: p.Name, LastName: p.LastName, Phone: p.Phone}
		if p.ID != nil && *p.ID >= 0 {
			if _, taken := used[*p.ID]; !taken {
				out[i].ID = *p.ID
				used[*p.ID] = struct{}{}
				continue
			}
		}
		pending = append(pending, i)
	}

	next := 0
	for _, i := range pending {
		for {
			if _, taken := used[next]; !taken {
				break
			}
			next++
		}
		out[i].ID = next
		used[next] = struct{}{}
	}
	return out
}

// Add appends a contact built from fields with the next free id and persists
// the list. It returns ErrDuplicateContact if the exact triple is present.
func (s *ContactStore) Add(ctx context.Context, fields domain.ContactFields) (domain.Contact, error) {
	s.mu.Lock()
	if slices.ContainsFunc(s.contacts, func(c domain.Contact) bool { return c.Fields() == fields }) {
		s.mu.Unlock()
		return domain.Contact{}, ErrDuplicateContact
	}

	c := domain.Contact{
		ID:       s.nextIDLocked(),
		Name:     fields.Name,
		LastName: fields.LastName,
		Phone:    fields.Phone,
	}
	prev := s.contacts
	s.contacts = append(slices.Clip(prev), c)
	if err := s.persistLocked(ctx); err != nil {
		s.contacts = prev
		s.mu.Unlock()
		return domain.Contact{}, err
	}
	s.rev++
	ev := ChangeEvent{Op: OpAdd, Contact: c, Len: len(s.contacts), Revision: s.rev}
	fns := slices.Clone(s.listeners)
	s.mu.Unlock()

	notify(fns, ev)
	return c, nil
}

// Remove deletes the contact with id and persists the list. Removing an
// absent id succeeds without touching storage. The returned flag reports
// whether a contact was removed.
func (s *ContactStore) Remove(ctx context.Context, id int) (bool, error) {
	s.mu.Lock()
	idx := slices.IndexFunc(s.contacts, func(c domain.Contact) bool { return c.ID == id })
	if idx < 0 {
		s.mu.Unlock()
		return false, nil
	}

	prev := s.contacts
	removed := prev[idx]
	s.contacts = slices.Delete(slices.Clone(prev), idx, idx+1)
	if err := s.persistLocked(ctx); err != nil {
		s.contacts = prev
		s.mu.Unlock()
		return false, err
	}
	s.rev++
	ev := ChangeEvent{Op: OpRemove, Contact: removed, Len: len(s.contacts), Revision: s.rev}
	fns := slices.Clone(s.listeners)
	s.mu.Unlock()

	notify(fns, ev)
	return true, nil
}

// List returns the contacts ordered by LastName (byte-wise), ties kept in
// insertion order. Each iteration reads a fresh snapshot.
func (s *ContactStore) List() iter.Seq[domain.Contact] {
	return func(yield func(domain.Contact) bool) {
		for _, c := range s.Snapshot().Contacts {
			if !yield(c) {
				return
			}
		}
	}
}

// Snapshot copies the list and its revision under one lock and returns the
// copy sorted the way List yields it.
func (s *ContactStore) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{Contacts: slices.Clone(s.contacts), Epoch: s.epoch, Revision: s.rev}
	s.mu.Unlock()

	slices.SortStableFunc(snap.Contacts, func(a, b domain.Contact) int {
		return cmp.Compare(a.LastName, b.LastName)
	})
	return snap
}

// NextID returns the smallest non-negative id not currently in use.
func (s *ContactStore) NextID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextIDLocked()
}

func (s *ContactStore) nextIDLocked() int {
	used := make(map[int]struct{}, len(s.contacts))
	for _, c := range s.contacts {
		used[c.ID] = struct{}{}
	}
	id := 0
	for {
		if _, ok := used[id]; !ok {
			return id
		}
		id++
	}
}

// Get returns the contact with id.
func (s *ContactStore) Get(id int) (domain.Contact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.contacts {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Contact{}, false
}

// Len returns the number of contacts.
func (s *ContactStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.contacts)
}

// Revision increases on every successful load or mutation.
func (s *ContactStore) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rev
}

// OnChange registers fn to run after each successful load or mutation.
// Listeners run outside the store lock, in registration order.
func (s *ContactStore) OnChange(fn func(ChangeEvent)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// persistLocked writes the current list to the slot. Caller holds s.mu.
func (s *ContactStore) persistLocked(ctx context.Context) error {
	out := make([]persistedContact, len(s.contacts))
	for i, c := range s.contacts {
		id := c.ID
		out[i] = persistedContact{Name: c.Name, LastName: c.LastName, Phone: c.Phone, ID: &id}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode contacts: %w", err)
	}
	if err := s.Repo.PutSlot(ctx, s.DB, s.Key, string(b)); err != nil {
		return fmt.Errorf("persist contacts %q: %w", s.Key, err)
	}
	return nil
}

func notify(fns []func(ChangeEvent), ev ChangeEvent) {
	for _, fn := range fns {
		fn(ev)
	}
}
