package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/crucial707/book-catalog/internal/auth"
	"github.com/crucial707/book-catalog/internal/models"
	"github.com/crucial707/book-catalog/internal/repo"
)

// BookHandler serves the book resource. Mutating routes must be mounted behind
// auth.Guard.Middleware; any authenticated user may change any book.
type BookHandler struct {
	Books BookStore
	Audit AuditLogger
}

//
// ==========================
// Helpers
// ==========================
//

func requireIdentity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	ident, ok := auth.IdentityFrom(r.Context())
	if !ok {
		JSONError(w, "unauthorized", http.StatusUnauthorized)
	}
	return ident, ok
}

func parseBookID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		JSONError(w, "invalid book id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// normalizeInput trims text fields and lowercases the genre before validation.
func normalizeInput(in models.BookInput) models.BookInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.Genre = models.Genre(strings.ToLower(strings.TrimSpace(string(in.Genre))))
	return in
}

// decodeBook reads and validates a BookInput, answering the request itself on failure.
func decodeBook(w http.ResponseWriter, r *http.Request) (models.BookInput, bool) {
	var in models.BookInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		decodeFailed(w, err)
		return in, false
	}
	return checkBook(w, in)
}

func checkBook(w http.ResponseWriter, in models.BookInput) (models.BookInput, bool) {
	in = normalizeInput(in)
	if fields := validateBook(in); fields != nil {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return in, false
	}
	return in, true
}

// bookFilterFromQuery reads list parameters. Unparseable numbers are ignored and
// sort settings are normalized by the store.
func bookFilterFromQuery(q url.Values) (models.BookFilter, map[string]string) {
	atoi := func(key string) int {
		n, err := strconv.Atoi(q.Get(key))
		if err != nil {
			return 0
		}
		return n
	}

	f := models.BookFilter{
		Title:    strings.TrimSpace(q.Get("title")),
		Author:   strings.TrimSpace(q.Get("author")),
		YearFrom: atoi("year_from"),
		YearTo:   atoi("year_to"),
		Skip:     atoi("skip"),
		Limit:    atoi("limit"),
		SortBy:   q.Get("sort_by"),
		Order:    q.Get("order"),
	}

	if g := strings.TrimSpace(q.Get("genre")); g != "" {
		genre := models.Genre(strings.ToLower(g))
		if !genre.Valid() {
			return f, map[string]string{"genre": "genre"}
		}
		f.Genre = genre
	}
	return f, nil
}

//
// ==========================
// List Books
// ==========================
//

func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	filter, fields := bookFilterFromQuery(r.URL.Query())
	if fields != nil {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}

	books, err := h.Books.List(r.Context(), filter)
	if err != nil {
		slog.Error("list books", "err", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, books)
}

//
// ==========================
// Get Book By ID
// ==========================
//

func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := parseBookID(w, r)
	if !ok {
		return
	}

	book, err := h.Books.GetByID(r.Context(), id)
	if err != nil {
		h.storeFailed(w, "get book", id, err)
		return
	}

	writeJSON(w, http.StatusOK, book)
}

//
// ==========================
// Create Book
// ==========================
//

func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	ident, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	in, ok := decodeBook(w, r)
	if !ok {
		return
	}

	book, err := h.Books.Create(r.Context(), in)
	if err != nil {
		h.storeFailed(w, "create book", 0, err)
		return
	}
	recordAudit(r.Context(), h.Audit, ident.UserID, models.AuditCreate, book.ID, book.Title)

	writeJSON(w, http.StatusCreated, book)
}

//
// ==========================
// Update Book
// ==========================
//

// UpdateBook applies a partial update: fields absent from the body keep their stored
// values and the merged book is validated as a whole.
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	ident, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, ok := parseBookID(w, r)
	if !ok {
		return
	}
	var patch models.BookPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		decodeFailed(w, err)
		return
	}

	cur, err := h.Books.GetByID(r.Context(), id)
	if err != nil {
		h.storeFailed(w, "update book", id, err)
		return
	}
	if patch.Empty() {
		writeJSON(w, http.StatusOK, cur)
		return
	}
	in, ok := checkBook(w, patch.Apply(cur.Input()))
	if !ok {
		return
	}

	book, err := h.Books.Update(r.Context(), id, in)
	if err != nil {
		h.storeFailed(w, "update book", id, err)
		return
	}
	recordAudit(r.Context(), h.Audit, ident.UserID, models.AuditUpdate, book.ID, book.Title)

	writeJSON(w, http.StatusOK, book)
}

//
// ==========================
// Delete Book
// ==========================
//

func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	ident, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, ok := parseBookID(w, r)
	if !ok {
		return
	}

	if err := h.Books.Delete(r.Context(), id); err != nil {
		h.storeFailed(w, "delete book", id, err)
		return
	}
	recordAudit(r.Context(), h.Audit, ident.UserID, models.AuditDelete, id, "")

	w.WriteHeader(http.StatusNoContent)
}

func (h *BookHandler) storeFailed(w http.ResponseWriter, op string, id int64, err error) {
	if errors.Is(err, repo.ErrNotFound) {
		JSONError(w, "book not found", http.StatusNotFound)
		return
	}
	slog.Error(op, "book_id", id, "err", err)
	JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
}
