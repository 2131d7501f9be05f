package service

import (
	"context"
	"errors"
	"os"
	"testing"

	"StaySafe/internal/model"
	"StaySafe/internal/model/dto"
	"StaySafe/internal/repository"
	pkgerrors "StaySafe/pkg/errors"
	"StaySafe/pkg/snowflake"
)

func TestMain(m *testing.M) {
	if err := snowflake.Init(1, 1); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeListCache 记录缓存读写，便于断言失效行为
type fakeListCache struct {
	entries     map[string]model.ContactEntries
	invalidated int
}

func newFakeListCache() *fakeListCache {
	return &fakeListCache{entries: make(map[string]model.ContactEntries)}
}

func (f *fakeListCache) Get(ctx context.Context, userID string) (model.ContactEntries, bool, error) {
	entries, ok := f.entries[userID]
	if !ok {
		return nil, false, nil
	}
	return entries.Clone(), true, nil
}

func (f *fakeListCache) Set(ctx context.Context, userID string, entries model.ContactEntries) error {
	f.entries[userID] = entries.Clone()
	return nil
}

func (f *fakeListCache) Invalidate(ctx context.Context, userID string) error {
	delete(f.entries, userID)
	f.invalidated++
	return nil
}

func newTestService() (*ContactService, *repository.MemoryRepository) {
	repo := repository.NewMemory()
	return NewContactService(repo, nil), repo
}

func fields(name, phone, relation string) dto.ContactFields {
	return dto.ContactFields{Name: name, Phone: phone, Relation: relation}
}

func mustAdd(t *testing.T, svc *ContactService, userID string, f dto.ContactFields) model.ContactEntries {
	t.Helper()
	entries, err := svc.AddEntry(context.Background(), userID, f)
	if err != nil {
		t.Fatalf("AddEntry(%q) failed: %v", f.Name, err)
	}
	return entries
}

func TestFetchUnknownUserReturnsEmptyList(t *testing.T) {
	svc, _ := newTestService()

	entries, err := svc.Fetch(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if entries == nil {
		t.Fatal("expected non-nil empty list for unknown user")
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty list, got %d entries", len(entries))
	}
}

func TestAddEntryAppendsInOrder(t *testing.T) {
	svc, _ := newTestService()
	userID := "user-1"

	mustAdd(t, svc, userID, fields("Alice", "111", "sister"))
	mustAdd(t, svc, userID, fields("Bob", "222", "friend"))
	returned := mustAdd(t, svc, userID, fields("Carol", "333", "mother"))

	if len(returned) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(returned))
	}
	for i, want := range []string{"Alice", "Bob", "Carol"} {
		if returned[i].Name != want {
			t.Errorf("position %d: expected %q, got %q", i, want, returned[i].Name)
		}
		if returned[i].ID == 0 {
			t.Errorf("position %d: id was not assigned", i)
		}
	}

	fetched, err := svc.Fetch(context.Background(), userID)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(fetched) != 3 {
		t.Fatalf("Fetch returned %d entries, expected 3", len(fetched))
	}
	for i := range returned {
		if fetched[i] != returned[i] {
			t.Errorf("position %d: Fetch disagrees with mutation response: %+v vs %+v", i, fetched[i], returned[i])
		}
	}
}

func TestAddEntryAssignsUniqueIDs(t *testing.T) {
	svc, _ := newTestService()
	userID := "user-ids"

	seen := make(map[int64]bool)
	for i := 0; i < model.MaxContactEntries; i++ {
		entries := mustAdd(t, svc, userID, fields("N", "123", "friend"))
		id := entries[len(entries)-1].ID
		if seen[id] {
			t.Fatalf("duplicate entry id %d", id)
		}
		seen[id] = true
	}
}

func TestAddEntryValidation(t *testing.T) {
	svc, _ := newTestService()
	userID := "user-2"

	cases := []struct {
		name    string
		input   dto.ContactFields
		wantErr error
	}{
		{"missing name", fields("", "111", "sister"), pkgerrors.ContactNameRequired},
		{"blank name", fields("   ", "111", "sister"), pkgerrors.ContactNameRequired},
		{"missing phone", fields("Alice", "", "sister"), pkgerrors.ContactPhoneRequired},
		{"missing relation", fields("Alice", "111", ""), pkgerrors.ContactRelationRequired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.AddEntry(context.Background(), userID, tc.input); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	entries, err := svc.Fetch(context.Background(), userID)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("rejected adds must not persist, got %d entries", len(entries))
	}
}

func TestAddEntryCapEnforced(t *testing.T) {
	svc, _ := newTestService()
	userID := "user-3"

	for i := 0; i < model.MaxContactEntries; i++ {
		mustAdd(t, svc, userID, fields("N", "123", "friend"))
	}

	_, err := svc.AddEntry(context.Background(), userID, fields("Extra", "999", "friend"))
	if !errors.Is(err, pkgerrors.ContactLimitReached) {
		t.Fatalf("expected ContactLimitReached, got %v", err)
	}

	entries, err := svc.Fetch(context.Background(), userID)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(entries) != model.MaxContactEntries {
		t.Fatalf("expected list unchanged at %d entries, got %d", model.MaxContactEntries, len(entries))
	}
}

func TestAddEntryEmptyUserID(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.AddEntry(context.Background(), "", fields("Alice", "111", "sister")); !errors.Is(err, pkgerrors.InvalidUserID) {
		t.Fatalf("expected InvalidUserID, got %v", err)
	}
}

func TestUpdateEntryReplacesFieldsInPlace(t *testing.T) {
	svc, _ := newTestService()
	userID := "user-4"

	mustAdd(t, svc, userID, fields("Alice", "111", "sister"))
	entries := mustAdd(t, svc, userID, fields("Bob", "222", "friend"))
	mustAdd(t, svc, userID, fields("Carol", "333", "mother"))

	target := entries[1]
	updated, err := svc.UpdateEntry(context.Background(), userID, target.ID, fields("Bobby", "444", "brother"))
	if err != nil {
		t.Fatalf("UpdateEntry failed: %v", err)
	}

	if len(updated) != 3 {
		t.Fatalf("expected 3 entries after update, got %d", len(updated))
	}
	got := updated[1]
	if got.ID != target.ID {
		t.Errorf("entry id changed: %d -> %d", target.ID, got.ID)
	}
	if got.Name != "Bobby" || got.Phone != "444" || got.Relation != "brother" {
		t.Errorf("fields not replaced: %+v", got)
	}
	if updated[0].Name != "Alice" || updated[2].Name != "Carol" {
		t.Errorf("neighbouring entries disturbed: %+v", updated)
	}
}

func TestUpdateEntryNotFound(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.UpdateEntry(context.Background(), "missing-user", 42, fields("A", "1", "x")); !errors.Is(err, pkgerrors.ContactsNotFound) {
		t.Fatalf("expected ContactsNotFound for missing aggregate, got %v", err)
	}

	userID := "user-5"
	mustAdd(t, svc, userID, fields("Alice", "111", "sister"))
	if _, err := svc.UpdateEntry(context.Background(), userID, 42, fields("A", "1", "x")); !errors.Is(err, pkgerrors.ContactNotFound) {
		t.Fatalf("expected ContactNotFound for missing entry, got %v", err)
	}
}

func TestDeleteEntrySplicesPreservingOrder(t *testing.T) {
	svc, _ := newTestService()
	userID := "user-6"

	mustAdd(t, svc, userID, fields("Alice", "111", "sister"))
	entries := mustAdd(t, svc, userID, fields("Bob", "222", "friend"))
	mustAdd(t, svc, userID, fields("Carol", "333", "mother"))

	remaining, err := svc.DeleteEntry(context.Background(), userID, entries[1].ID)
	if err != nil {
		t.Fatalf("DeleteEntry failed: %v", err)
	}

	if len(remaining) != 2 {
		t.Fatalf("expected 2 entries after delete, got %d", len(remaining))
	}
	if remaining[0].Name != "Alice" || remaining[1].Name != "Carol" {
		t.Errorf("relative order lost: %+v", remaining)
	}
}

func TestDeleteEntryNotFound(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.DeleteEntry(context.Background(), "missing-user", 42); !errors.Is(err, pkgerrors.ContactsNotFound) {
		t.Fatalf("expected ContactsNotFound, got %v", err)
	}

	userID := "user-7"
	mustAdd(t, svc, userID, fields("Alice", "111", "sister"))
	if _, err := svc.DeleteEntry(context.Background(), userID, 42); !errors.Is(err, pkgerrors.ContactNotFound) {
		t.Fatalf("expected ContactNotFound, got %v", err)
	}
}

func TestMutationFailureLeavesAggregateUnchanged(t *testing.T) {
	svc, repo := newTestService()
	userID := "user-8"

	entries := mustAdd(t, svc, userID, fields("Alice", "111", "sister"))

	repo.FailNextWith(errors.New("connection reset"))
	if _, err := svc.AddEntry(context.Background(), userID, fields("Bob", "222", "friend")); err == nil {
		t.Fatal("expected persistence failure to surface")
	}

	after, err := svc.Fetch(context.Background(), userID)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(after) != len(entries) {
		t.Fatalf("failed mutation must not change the aggregate: %d vs %d entries", len(after), len(entries))
	}
	if after[0] != entries[0] {
		t.Errorf("entry changed after failed mutation: %+v vs %+v", after[0], entries[0])
	}
}

func TestFetchReadsThroughCacheAndMutationsInvalidate(t *testing.T) {
	repo := repository.NewMemory()
	listCache := newFakeListCache()
	svc := NewContactService(repo, listCache)
	userID := "user-9"

	entries := mustAdd(t, svc, userID, fields("Alice", "111", "sister"))
	if listCache.invalidated == 0 {
		t.Fatal("AddEntry must invalidate the cached list")
	}

	// 第一次 Fetch 回填缓存
	if _, err := svc.Fetch(context.Background(), userID); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if _, ok := listCache.entries[userID]; !ok {
		t.Fatal("Fetch must populate the cache")
	}

	// 命中缓存时绕过仓储：制造一次会失败的读取来证明没有落库
	repo.FailNextWith(errors.New("db down"))
	cached, err := svc.Fetch(context.Background(), userID)
	if err != nil {
		t.Fatalf("cached Fetch failed: %v", err)
	}
	if len(cached) != len(entries) {
		t.Fatalf("cached list mismatch: %d vs %d", len(cached), len(entries))
	}
	repo.FailNext = false

	before := listCache.invalidated
	if _, err := svc.DeleteEntry(context.Background(), userID, entries[0].ID); err != nil {
		t.Fatalf("DeleteEntry failed: %v", err)
	}
	if listCache.invalidated == before {
		t.Fatal("DeleteEntry must invalidate the cached list")
	}
}
