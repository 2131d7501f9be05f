package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"

	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/route"

	"StaySafe/internal/repository"
	"StaySafe/internal/service"
	"StaySafe/pkg/snowflake"
)

func TestMain(m *testing.M) {
	if err := snowflake.Init(1, 1); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// wireEntry 客户端视角的联系人条目，id 是不透明字符串
type wireEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Relation string `json:"relation"`
}

type wireError struct {
	Error string `json:"error"`
}

func newContactEngine() *route.Engine {
	svc := service.NewContactService(repository.NewMemory(), nil)
	h := NewContactHandler(svc)

	engine := route.NewEngine(config.NewOptions([]config.Option{}))
	engine.GET("/api/contacts/:user_id", h.List)
	engine.POST("/api/contacts/:user_id", h.Create)
	engine.PUT("/api/contacts/:user_id/:entry_id", h.Update)
	engine.DELETE("/api/contacts/:user_id/:entry_id", h.Delete)
	return engine
}

func jsonBody(t *testing.T, v any) (*ut.Body, ut.Header) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return &ut.Body{Body: bytes.NewBuffer(data), Len: len(data)},
		ut.Header{Key: "Content-Type", Value: "application/json"}
}

func doJSON(t *testing.T, engine *route.Engine, method, path string, payload any) (int, []byte) {
	t.Helper()
	var w *ut.ResponseRecorder
	if payload != nil {
		body, header := jsonBody(t, payload)
		w = ut.PerformRequest(engine, method, path, body, header)
	} else {
		w = ut.PerformRequest(engine, method, path, nil)
	}
	resp := w.Result()
	return resp.StatusCode(), resp.Body()
}

func decodeEntries(t *testing.T, body []byte) []wireEntry {
	t.Helper()
	var entries []wireEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		t.Fatalf("decode entries from %q: %v", body, err)
	}
	return entries
}

func addContact(t *testing.T, engine *route.Engine, userID, name, phone, relation string) []wireEntry {
	t.Helper()
	status, body := doJSON(t, engine, http.MethodPost, "/api/contacts/"+userID,
		map[string]string{"name": name, "phone": phone, "relation": relation})
	if status != http.StatusCreated {
		t.Fatalf("POST returned %d: %s", status, body)
	}
	return decodeEntries(t, body)
}

func TestListUnknownUserReturnsEmptyArray(t *testing.T) {
	engine := newContactEngine()

	status, body := doJSON(t, engine, http.MethodGet, "/api/contacts/never-seen", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for unknown user, got %d", status)
	}
	entries := decodeEntries(t, body)
	if len(entries) != 0 {
		t.Fatalf("expected [], got %v", entries)
	}
}

func TestCreateReturnsFullListWith201(t *testing.T) {
	engine := newContactEngine()

	entries := addContact(t, engine, "u1", "Alice", "111", "sister")
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].ID == "" {
		t.Error("entry id missing in response")
	}

	entries = addContact(t, engine, "u1", "Bob", "222", "friend")
	if len(entries) != 2 {
		t.Fatalf("expected full list of 2, got %d", len(entries))
	}
	if entries[0].Name != "Alice" || entries[1].Name != "Bob" {
		t.Errorf("append order lost: %v", entries)
	}

	status, body := doJSON(t, engine, http.MethodGet, "/api/contacts/u1", nil)
	if status != http.StatusOK {
		t.Fatalf("GET returned %d", status)
	}
	fetched := decodeEntries(t, body)
	if len(fetched) != 2 || fetched[1].Phone != "222" {
		t.Errorf("GET disagrees with mutation response: %v", fetched)
	}
}

func TestCreateValidationReturns400(t *testing.T) {
	engine := newContactEngine()

	status, body := doJSON(t, engine, http.MethodPost, "/api/contacts/u1",
		map[string]string{"name": "Alice", "relation": "sister"})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}

	var we wireError
	if err := json.Unmarshal(body, &we); err != nil || we.Error == "" {
		t.Fatalf("expected {\"error\": ...} body, got %q", body)
	}
}

func TestUpdateReplacesEntry(t *testing.T) {
	engine := newContactEngine()

	addContact(t, engine, "u2", "Alice", "111", "sister")
	entries := addContact(t, engine, "u2", "Bob", "222", "friend")
	target := entries[1].ID

	status, body := doJSON(t, engine, http.MethodPut, "/api/contacts/u2/"+target,
		map[string]string{"name": "Bobby", "phone": "444", "relation": "brother"})
	if status != http.StatusOK {
		t.Fatalf("PUT returned %d: %s", status, body)
	}

	updated := decodeEntries(t, body)
	if len(updated) != 2 {
		t.Fatalf("expected full list of 2, got %d", len(updated))
	}
	if updated[1].ID != target || updated[1].Name != "Bobby" || updated[1].Phone != "444" {
		t.Errorf("entry not replaced in place: %v", updated[1])
	}
}

func TestUpdateMissingReturns404(t *testing.T) {
	engine := newContactEngine()
	payload := map[string]string{"name": "A", "phone": "1", "relation": "x"}

	// 聚合不存在
	status, _ := doJSON(t, engine, http.MethodPut, "/api/contacts/u3/12345", payload)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for missing aggregate, got %d", status)
	}

	// 聚合存在但条目不存在
	addContact(t, engine, "u3", "Alice", "111", "sister")
	status, _ = doJSON(t, engine, http.MethodPut, "/api/contacts/u3/12345", payload)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for missing entry, got %d", status)
	}

	// 无法解析的条目 ID 等同于未找到
	status, _ = doJSON(t, engine, http.MethodPut, "/api/contacts/u3/not-a-number", payload)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for unparsable entry id, got %d", status)
	}
}

func TestDeleteRemovesEntry(t *testing.T) {
	engine := newContactEngine()

	addContact(t, engine, "u4", "Alice", "111", "sister")
	entries := addContact(t, engine, "u4", "Bob", "222", "friend")

	status, body := doJSON(t, engine, http.MethodDelete, "/api/contacts/u4/"+entries[0].ID, nil)
	if status != http.StatusOK {
		t.Fatalf("DELETE returned %d: %s", status, body)
	}

	remaining := decodeEntries(t, body)
	if len(remaining) != 1 || remaining[0].Name != "Bob" {
		t.Errorf("expected only Bob to remain, got %v", remaining)
	}

	status, _ = doJSON(t, engine, http.MethodDelete, "/api/contacts/u4/"+entries[0].ID, nil)
	if status != http.StatusNotFound {
		t.Fatalf("deleting the same entry twice must 404, got %d", status)
	}
}

func TestCapExceededReturns400(t *testing.T) {
	engine := newContactEngine()

	for i := 0; i < 5; i++ {
		addContact(t, engine, "u5", fmt.Sprintf("N%d", i), "123", "friend")
	}

	status, body := doJSON(t, engine, http.MethodPost, "/api/contacts/u5",
		map[string]string{"name": "Extra", "phone": "999", "relation": "friend"})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 when cap exceeded, got %d: %s", status, body)
	}
}
