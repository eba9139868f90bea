package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"work-journal/internal/model"
)

var (
	// ErrNotFound is returned when an operation targets an unknown entry.
	ErrNotFound = errors.New("entry not found")
	// ErrStoreUnavailable wraps any failure of the entry store.
	ErrStoreUnavailable = errors.New("entry store unavailable")
)

// EntryStore is the persistence contract the journal relies on.
type EntryStore interface {
	FindAll(ctx context.Context) ([]model.Entry, error)
	FindByID(ctx context.Context, id uint) (*model.Entry, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*model.Entry, error)
	Create(ctx context.Context, entry *model.Entry) error
	Update(ctx context.Context, id uint, entry model.Entry) error
	Delete(ctx context.Context, id uint) error
}

// JournalService applies validated lifecycle operations to entries.
// Callers are expected to have authorized the request already.
type JournalService struct {
	entries EntryStore
}

func NewJournalService(entries EntryStore) *JournalService {
	return &JournalService{entries: entries}
}

// Weeks loads every entry and groups it by week.
func (s *JournalService) Weeks(ctx context.Context) ([]WeekBucket, error) {
	entries, err := s.entries.FindAll(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return AggregateWeeks(entries), nil
}

func (s *JournalService) Get(ctx context.Context, id uint) (*model.Entry, error) {
	entry, err := s.entries.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return entry, nil
}

// Create stores a new entry and returns its id. A submission whose
// idempotency key was already stored resolves to the existing entry.
func (s *JournalService) Create(ctx context.Context, input EntryInput) (uint, error) {
	if input.IdempotencyKey != "" {
		existing, err := s.entries.FindByIdempotencyKey(ctx, input.IdempotencyKey)
		switch {
		case err == nil:
			return existing.ID, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return 0, storeError(err)
		}
	}

	entry := model.Entry{
		Date: input.Date,
		Type: input.Tag,
		Text: input.Text,
	}
	if input.IdempotencyKey != "" {
		key := input.IdempotencyKey
		entry.IdempotencyKey = &key
	}

	if err := s.entries.Create(ctx, &entry); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) && entry.IdempotencyKey != nil {
			// Lost a race with a concurrent submission carrying the same key.
			existing, findErr := s.entries.FindByIdempotencyKey(ctx, *entry.IdempotencyKey)
			if findErr == nil {
				return existing.ID, nil
			}
		}
		return 0, storeError(err)
	}
	return entry.ID, nil
}

// Update overwrites date, tag and text of an existing entry.
func (s *JournalService) Update(ctx context.Context, id uint, input EntryInput) error {
	err := s.entries.Update(ctx, id, model.Entry{
		Date: input.Date,
		Type: input.Tag,
		Text: input.Text,
	})
	if err != nil {
		return storeError(err)
	}
	return nil
}

// Delete removes an entry permanently.
func (s *JournalService) Delete(ctx context.Context, id uint) error {
	if err := s.entries.Delete(ctx, id); err != nil {
		return storeError(err)
	}
	return nil
}

func storeError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
