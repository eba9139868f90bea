package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"work-journal/internal/model"
)

// EntryRepository handles CRUD for journal entries.
type EntryRepository struct {
	db *gorm.DB
}

func NewEntryRepository(db *gorm.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// FindAll returns every entry in insertion order.
func (r *EntryRepository) FindAll(ctx context.Context) ([]model.Entry, error) {
	var entries []model.Entry
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// FindByID returns gorm.ErrRecordNotFound when the entry does not exist.
func (r *EntryRepository) FindByID(ctx context.Context, id uint) (*model.Entry, error) {
	var entry model.Entry
	if err := r.db.WithContext(ctx).First(&entry, id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *EntryRepository) FindByIdempotencyKey(ctx context.Context, key string) (*model.Entry, error) {
	var entry model.Entry
	if err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// Create inserts entry and fills in its ID.
func (r *EntryRepository) Create(ctx context.Context, entry *model.Entry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("create entry: %w", err)
	}
	return nil
}

// Update overwrites date, type and text of the entry in a single statement.
// It returns gorm.ErrRecordNotFound when no row matches id.
func (r *EntryRepository) Update(ctx context.Context, id uint, entry model.Entry) error {
	res := r.db.WithContext(ctx).Model(&model.Entry{}).Where("id = ?", id).Updates(map[string]interface{}{
		"date": entry.Date,
		"type": entry.Type,
		"text": entry.Text,
	})
	if res.Error != nil {
		return fmt.Errorf("update entry: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the entry. It returns gorm.ErrRecordNotFound when no row matches id.
func (r *EntryRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Entry{})
	if res.Error != nil {
		return fmt.Errorf("delete entry: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Ping checks that the underlying connection is usable.
func (r *EntryRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
