package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"work-journal/internal/model"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestEntryRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewEntryRepository(NewTestDB(t))

	first := model.Entry{Date: day(t, "2024-01-10"), Type: model.TagWork, Text: "A"}
	second := model.Entry{Date: day(t, "2024-01-02"), Type: model.TagLearning, Text: "B"}
	if err := repo.Create(ctx, &first); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, &second); err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.ID == 0 || second.ID <= first.ID {
		t.Fatalf("unexpected ids %d, %d", first.ID, second.ID)
	}

	all, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("find all: %v", err)
	}
	if len(all) != 2 || all[0].Text != "A" || all[1].Text != "B" {
		t.Fatalf("entries not in insertion order: %+v", all)
	}
	if got := all[0].DateString(); got != "2024-01-10" {
		t.Fatalf("date round trip = %q", got)
	}

	update := model.Entry{Date: day(t, "2024-01-11"), Type: model.TagInteresting, Text: "A2"}
	if err := repo.Update(ctx, first.ID, update); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := repo.FindByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Text != "A2" || got.Type != model.TagInteresting || got.DateString() != "2024-01-11" {
		t.Fatalf("update not applied: %+v", got)
	}

	if err := repo.Delete(ctx, second.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, second.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestEntryRepositoryMissingID(t *testing.T) {
	ctx := context.Background()
	repo := NewEntryRepository(NewTestDB(t))

	if err := repo.Update(ctx, 9999, model.Entry{Date: day(t, "2024-01-01"), Type: model.TagWork, Text: "x"}); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("update missing: %v", err)
	}
	if err := repo.Delete(ctx, 9999); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestEntryRepositoryIdempotencyKeyUnique(t *testing.T) {
	ctx := context.Background()
	repo := NewEntryRepository(NewTestDB(t))

	key := "4f7c1f0e-9a55-4d0b-a7d3-1f3c0f3e2b11"
	first := model.Entry{Date: day(t, "2024-02-01"), Type: model.TagWork, Text: "x", IdempotencyKey: &key}
	if err := repo.Create(ctx, &first); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := model.Entry{Date: day(t, "2024-02-01"), Type: model.TagWork, Text: "x", IdempotencyKey: &key}
	if err := repo.Create(ctx, &dup); !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected duplicated key, got %v", err)
	}

	found, err := repo.FindByIdempotencyKey(ctx, key)
	if err != nil {
		t.Fatalf("find by key: %v", err)
	}
	if found.ID != first.ID {
		t.Fatalf("found id %d, want %d", found.ID, first.ID)
	}

	// Entries without a key never collide.
	for i := 0; i < 2; i++ {
		e := model.Entry{Date: day(t, "2024-02-01"), Type: model.TagWork, Text: "x"}
		if err := repo.Create(ctx, &e); err != nil {
			t.Fatalf("create without key: %v", err)
		}
	}
}

func TestEnsureDirForSQLiteSkipsMemory(t *testing.T) {
	if err := ensureDirForSQLite("file:x?mode=memory&cache=shared"); err != nil {
		t.Fatal(err)
	}
	if err := ensureDirForSQLite(":memory:"); err != nil {
		t.Fatal(err)
	}
}
