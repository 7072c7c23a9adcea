package task

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMemoryStoreInsertAndGetReturnCopies(t *testing.T) {
	store := NewMemoryStore()
	task := NewTask("write docs", "")
	task.Tags = []string{"docs"}
	store.Insert(task)

	task.Title = "mutated after insert"

	got, err := store.Get(task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "write docs" {
		t.Fatalf("store shares memory with caller, title=%q", got.Title)
	}
	got.Tags[0] = "changed"

	again, _ := store.Get(task.ID)
	if again.Tags[0] != "docs" {
		t.Fatalf("tags slice leaked out of the store: %v", again.Tags)
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Get(uuid.New()); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestMemoryStoreUpdateWithoutFieldsOnlyTouches(t *testing.T) {
	store := NewMemoryStore()
	task := NewTask("t", "d")
	store.Insert(task)

	store.mu.Lock()
	store.tasks[task.ID].UpdatedAt = task.CreatedAt
	store.mu.Unlock()
	time.Sleep(2 * time.Millisecond)

	updated, err := store.Update(task.ID, TaskUpdate{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "t" || updated.Description != "d" || updated.Completed {
		t.Fatalf("fields changed by empty update: %+v", updated)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Fatalf("expected updated_at to advance, got %v <= %v", updated.UpdatedAt, updated.CreatedAt)
	}
}

func TestMemoryStoreUpdateKeepsUpdatedAfterCreated(t *testing.T) {
	store := NewMemoryStore()
	task := NewTask("future", "")
	task.CreatedAt = time.Now().Add(time.Hour).UTC()
	store.Insert(task)

	updated, err := store.Update(task.ID, TaskUpdate{Completed: boolPtr(true)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.UpdatedAt.Before(updated.CreatedAt) {
		t.Fatalf("updated_at %v precedes created_at %v", updated.UpdatedAt, updated.CreatedAt)
	}
}

func TestMemoryStoreMutateRollsBackOnError(t *testing.T) {
	store := NewMemoryStore()
	task := NewTask("t", "")
	task.Tags = []string{"keep"}
	store.Insert(task)

	_, err := store.Mutate(task.ID, func(t *Task) error {
		t.Tags = []string{"lost"}
		return errors.New("reject")
	})
	if err == nil {
		t.Fatal("expected error from mutate")
	}
	got, _ := store.Get(task.ID)
	if len(got.Tags) != 1 || got.Tags[0] != "keep" {
		t.Fatalf("failed mutate changed tags: %v", got.Tags)
	}
}

func TestMemoryStoreMutateProtectsIdentity(t *testing.T) {
	store := NewMemoryStore()
	task := NewTask("t", "")
	store.Insert(task)

	got, err := store.Mutate(task.ID, func(t *Task) error {
		t.ID = uuid.New()
		t.CreatedAt = time.Time{}
		return nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if got.ID != task.ID || !got.CreatedAt.Equal(task.CreatedAt) {
		t.Fatalf("mutate rewrote identity: %+v", got)
	}
}

func TestMemoryStoreSortedByCreatedAtIsReversible(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		task := NewTask("t", "")
		// 两两共享时间戳，验证 ID 决胜。
		task.CreatedAt = base.Add(time.Duration(i/2) * time.Second)
		store.Insert(task)
	}

	asc := store.ListSortedByCreatedAt(false)
	desc := store.ListSortedByCreatedAt(true)
	if len(asc) != 6 || len(desc) != 6 {
		t.Fatalf("unexpected lengths %d/%d", len(asc), len(desc))
	}
	for i := range asc {
		if asc[i].ID != desc[len(desc)-1-i].ID {
			t.Fatalf("desc is not the reverse of asc at %d", i)
		}
		if i > 0 && asc[i].CreatedAt.Before(asc[i-1].CreatedAt) {
			t.Fatalf("asc out of order at %d", i)
		}
	}
}

func TestMemoryStoreRemoveMany(t *testing.T) {
	store := NewMemoryStore()
	a, b := NewTask("a", ""), NewTask("b", "")
	store.Insert(a)
	store.Insert(b)

	removed := store.RemoveMany([]uuid.UUID{a.ID, uuid.New(), a.ID})
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if store.Count() != 1 {
		t.Fatalf("expected 1 remaining task, got %d", store.Count())
	}
	if store.Remove(a.ID) {
		t.Fatal("remove of a deleted task reported success")
	}
}

func TestMemoryStoreInsertManyKeepsOrderAndUniqueIDs(t *testing.T) {
	store := NewMemoryStore()
	created := store.InsertMany([]TaskCreate{{Title: "one"}, {Title: "two"}, {Title: "three"}})
	if len(created) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(created))
	}
	seen := map[uuid.UUID]bool{}
	for i, want := range []string{"one", "two", "three"} {
		if created[i].Title != want {
			t.Fatalf("position %d: got %q want %q", i, created[i].Title, want)
		}
		if created[i].Priority != PriorityMedium || len(created[i].Tags) != 0 {
			t.Fatalf("unexpected defaults: %+v", created[i])
		}
		if seen[created[i].ID] {
			t.Fatalf("duplicate id %s", created[i].ID)
		}
		seen[created[i].ID] = true
	}
}

func TestMemoryStoreConcurrentInserts(t *testing.T) {
	store := NewMemoryStore()
	const writers, perWriter = 8, 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				store.Insert(NewTask("concurrent", ""))
				_ = store.ListSortedByCreatedAt(true)
			}
		}()
	}
	wg.Wait()

	if got := store.Count(); got != writers*perWriter {
		t.Fatalf("expected %d tasks, got %d", writers*perWriter, got)
	}
}

func boolPtr(v bool) *bool { return &v }

func strPtr(v string) *string { return &v }
