package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/crucial707/book-catalog/internal/models"
	"github.com/crucial707/book-catalog/internal/repo/memory"
)

func TestAuditHandler_ListAudit(t *testing.T) {
	log := memory.New().Audit
	ctx := context.Background()
	for _, action := range []models.AuditAction{models.AuditCreate, models.AuditUpdate, models.AuditDelete} {
		if err := log.Log(ctx, 1, action, 7, ""); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}
	h := &AuditHandler{Audit: log}

	req := asUser(httptest.NewRequest("GET", "/audit?limit=2", nil), 1)
	rr := httptest.NewRecorder()
	h.ListAudit(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("ListAudit status: got %d, want 200", rr.Code)
	}
	var entries []models.AuditEntry
	if err := json.NewDecoder(rr.Body).Decode(&entries); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(entries) != 2 || entries[0].Action != models.AuditDelete {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestAuditHandler_ListAudit_ByBook(t *testing.T) {
	log := memory.New().Audit
	ctx := context.Background()
	_ = log.Log(ctx, 1, models.AuditCreate, 7, "Dune")
	_ = log.Log(ctx, 1, models.AuditCreate, 8, "Emma")
	_ = log.Log(ctx, 1, models.AuditImport, 0, "format=csv created=2 failed=0")
	h := &AuditHandler{Audit: log}

	rr := httptest.NewRecorder()
	h.ListAudit(rr, asUser(httptest.NewRequest("GET", "/audit?book_id=8", nil), 1))
	if rr.Code != http.StatusOK {
		t.Fatalf("ListAudit status: got %d, want 200", rr.Code)
	}
	var entries []models.AuditEntry
	if err := json.NewDecoder(rr.Body).Decode(&entries); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(entries) != 1 || entries[0].BookID != 8 || entries[0].Details != "Emma" {
		t.Errorf("unexpected entries: %+v", entries)
	}

	rr = httptest.NewRecorder()
	h.ListAudit(rr, asUser(httptest.NewRequest("GET", "/audit?book_id=abc", nil), 1))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("ListAudit with bad book_id: got %d, want 400", rr.Code)
	}
}

func TestUserHandler_Me(t *testing.T) {
	store := memory.New()
	u, err := store.Users.Create(context.Background(), "alice", "hash")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	h := &UserHandler{Users: store.Users}

	rr := httptest.NewRecorder()
	h.Me(rr, asUser(httptest.NewRequest("GET", "/users/me", nil), u.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("Me status: got %d, want 200", rr.Code)
	}
	var out models.User
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Username != "alice" || out.PasswordHash != "" {
		t.Errorf("unexpected user: %+v", out)
	}

	rr = httptest.NewRecorder()
	h.Me(rr, asUser(httptest.NewRequest("GET", "/users/me", nil), 999))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Me for deleted user: got %d, want 401", rr.Code)
	}
}
