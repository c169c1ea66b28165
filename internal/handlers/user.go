package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/crucial707/book-catalog/internal/repo"
)

// ==========================
// UserHandler
// ==========================
type UserHandler struct {
	Users UserReader
}

// ==========================
// Current User
// ==========================

// Me returns the caller's own user record.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	ident, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	user, err := h.Users.GetByID(r.Context(), ident.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			JSONError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		slog.Error("get current user", "user_id", ident.UserID, "err", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
