package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/crucial707/book-catalog/internal/models"
)

// AuditHandler serves audit log endpoints.
type AuditHandler struct {
	Audit AuditLogger
}

// ListAudit returns recent catalog changes. Query: book_id (optional), limit (default 50,
// max 200), offset (default 0).
func (h *AuditHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireIdentity(w, r); !ok {
		return
	}

	limit := 50
	offset := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 && val <= 200 {
			limit = val
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if val, err := strconv.Atoi(o); err == nil && val >= 0 {
			offset = val
		}
	}

	f := models.AuditFilter{Limit: limit, Offset: offset}
	if b := r.URL.Query().Get("book_id"); b != "" {
		id, err := strconv.ParseInt(b, 10, 64)
		if err != nil || id <= 0 {
			JSONError(w, "invalid book_id", http.StatusBadRequest)
			return
		}
		f.BookID = id
	}

	entries, err := h.Audit.List(r.Context(), f)
	if err != nil {
		slog.Error("list audit", "err", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// recordAudit writes an audit entry. A failure is logged and does not fail the request.
func recordAudit(ctx context.Context, a AuditLogger, userID int64, action models.AuditAction, bookID int64, details string) {
	if a == nil {
		return
	}
	if err := a.Log(ctx, userID, action, bookID, details); err != nil {
		slog.Warn("audit log write failed", "action", action, "book_id", bookID, "err", err)
	}
}
