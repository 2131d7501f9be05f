package contactsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeStore 是一个最小化的服务端替身，POST/PUT/DELETE 的响应体故意返回
// 过期列表，用来验证客户端丢弃变更响应、以重新拉取的结果为准
type fakeStore struct {
	mu       sync.Mutex
	entries  []Entry
	nextID   int
	requests []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

func (s *fakeStore) record(r *http.Request) {
	s.requests = append(s.requests, r.Method+" "+r.URL.Path)
}

func (s *fakeStore) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.record(r)

		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		// /api/contacts/{userId}[/{entryId}]
		if len(parts) < 3 || parts[0] != "api" || parts[1] != "contacts" {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodGet:
			json.NewEncoder(w).Encode(s.entries)

		case r.Method == http.MethodPost:
			var f Fields
			json.NewDecoder(r.Body).Decode(&f)
			s.nextID++
			s.entries = append(s.entries, Entry{
				ID:       fmt.Sprintf("id-%d", s.nextID),
				Name:     f.Name,
				Phone:    f.Phone,
				Relation: f.Relation,
			})
			w.WriteHeader(http.StatusCreated)
			// 故意返回过期快照
			json.NewEncoder(w).Encode([]Entry{{ID: "stale"}})

		case r.Method == http.MethodPut && len(parts) == 4:
			for i, e := range s.entries {
				if e.ID == parts[3] {
					var f Fields
					json.NewDecoder(r.Body).Decode(&f)
					s.entries[i] = Entry{ID: e.ID, Name: f.Name, Phone: f.Phone, Relation: f.Relation}
					json.NewEncoder(w).Encode([]Entry{{ID: "stale"}})
					return
				}
			}
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "Contact not found"})

		case r.Method == http.MethodDelete && len(parts) == 4:
			for i, e := range s.entries {
				if e.ID == parts[3] {
					s.entries = append(s.entries[:i], s.entries[i+1:]...)
					json.NewEncoder(w).Encode([]Entry{{ID: "stale"}})
					return
				}
			}
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "Contact not found"})

		default:
			http.NotFound(w, r)
		}
	})
}

func newTestClient(t *testing.T, opts ...Option) (*Client, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	srv := httptest.NewServer(store.handler())
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c, store
}

func TestLoadReplacesCache(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()

	if err := c.Load(ctx, "u1"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := c.Contacts(); len(got) != 0 {
		t.Fatalf("expected empty cache, got %v", got)
	}

	store.mu.Lock()
	store.entries = []Entry{{ID: "a", Name: "Alice", Phone: "111", Relation: "sister"}}
	store.mu.Unlock()

	if err := c.Load(ctx, "u1"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got := c.Contacts()
	if len(got) != 1 || got[0].Name != "Alice" {
		t.Fatalf("cache not replaced: %v", got)
	}
	if c.Loading() {
		t.Error("loading must be released after Load")
	}
}

func TestCreateRefetchesInsteadOfTrustingResponse(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	if err := c.Create(ctx, "u1", Fields{Name: "Alice", Phone: "111", Relation: "sister"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got := c.Contacts()
	if len(got) != 1 {
		t.Fatalf("expected 1 cached entry, got %d", len(got))
	}
	// 变更接口返回的是 "stale" 假快照，缓存必须来自其后的 GET
	if got[0].ID == "stale" {
		t.Fatal("client must discard the mutation response and refetch")
	}
	if got[0].Name != "Alice" {
		t.Errorf("unexpected cached entry: %+v", got[0])
	}
}

func TestModifyAndRemoveRefetch(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()

	for _, name := range []string{"Alice", "Bob"} {
		if err := c.Create(ctx, "u1", Fields{Name: name, Phone: "111", Relation: "friend"}); err != nil {
			t.Fatalf("Create(%s) failed: %v", name, err)
		}
	}

	entries := c.Contacts()
	if err := c.Modify(ctx, "u1", entries[0].ID, Fields{Name: "Alicia", Phone: "999", Relation: "sister"}); err != nil {
		t.Fatalf("Modify failed: %v", err)
	}
	got := c.Contacts()
	if got[0].Name != "Alicia" || got[0].ID != entries[0].ID {
		t.Errorf("modify not reflected from refetch: %+v", got[0])
	}

	if err := c.Remove(ctx, "u1", entries[0].ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	got = c.Contacts()
	if len(got) != 1 || got[0].Name != "Bob" {
		t.Errorf("remove not reflected from refetch: %v", got)
	}

	store.mu.Lock()
	last := store.requests[len(store.requests)-1]
	store.mu.Unlock()
	if !strings.HasPrefix(last, "GET ") {
		t.Errorf("every mutation must end with a refetch, last request was %q", last)
	}
}

func TestValidationFailsBeforeAnyRequest(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()

	err := c.Create(ctx, "u1", Fields{Name: "Alice", Relation: "sister"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	store.mu.Lock()
	count := len(store.requests)
	store.mu.Unlock()
	if count != 0 {
		t.Errorf("validation must fail locally, but %d requests were sent", count)
	}
	if c.LastError() == "" {
		t.Error("lastError must carry the failure")
	}
	if c.Loading() {
		t.Error("loading must be released on failure")
	}
}

func TestCapEnforcedClientSide(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()

	store.mu.Lock()
	for i := 0; i < MaxContacts; i++ {
		store.entries = append(store.entries, Entry{ID: fmt.Sprintf("id-%d", i), Name: "N", Phone: "1", Relation: "x"})
	}
	store.mu.Unlock()

	if err := c.Load(ctx, "u1"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	err := c.Create(ctx, "u1", Fields{Name: "Extra", Phone: "9", Relation: "x"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError at the cap, got %v", err)
	}

	store.mu.Lock()
	for _, req := range store.requests {
		if strings.HasPrefix(req, "POST ") {
			t.Errorf("cap violation must not reach the server: %v", store.requests)
		}
	}
	store.mu.Unlock()
}

func TestAPIErrorSurfacesMessage(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	err := c.Remove(ctx, "u1", "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", apiErr.StatusCode)
	}
	if apiErr.Message != "Contact not found" {
		t.Errorf("server error message not surfaced: %q", apiErr.Message)
	}
	if c.LastError() != "Contact not found" {
		t.Errorf("lastError mismatch: %q", c.LastError())
	}
	if c.Loading() {
		t.Error("loading must be released on failure")
	}
}

func TestOnChangeCallback(t *testing.T) {
	var (
		mu        sync.Mutex
		snapshots [][]Entry
	)
	c, _ := newTestClient(t, WithOnChange(func(entries []Entry) {
		mu.Lock()
		snapshots = append(snapshots, entries)
		mu.Unlock()
	}))

	ctx := context.Background()
	if err := c.Create(ctx, "u1", Fields{Name: "Alice", Phone: "111", Relation: "sister"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(snapshots) == 0 {
		t.Fatal("expected at least one change notification")
	}
	last := snapshots[len(snapshots)-1]
	if len(last) != 1 || last[0].Name != "Alice" {
		t.Errorf("callback snapshot mismatch: %v", last)
	}
}
