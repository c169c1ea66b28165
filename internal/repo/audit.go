package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/crucial707/book-catalog/internal/models"
)

// AuditRepo records who changed which book.
type AuditRepo struct {
	DB *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{DB: db}
}

// ========================
// RECORD CHANGE
// ========================

// Log stores one change. bookID 0 (a bulk import) and empty details are stored as NULL.
func (r *AuditRepo) Log(ctx context.Context, userID int64, action models.AuditAction, bookID int64, details string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO audit_log (user_id, action, book_id, details)
		 VALUES ($1, $2, $3, $4)`,
		userID, string(action),
		sql.NullInt64{Int64: bookID, Valid: bookID != 0},
		sql.NullString{String: details, Valid: details != ""},
	)
	return translate("record "+string(action), err)
}

// ========================
// BOOK HISTORY
// ========================

// List returns changes newest first, optionally for a single book.
func (r *AuditRepo) List(ctx context.Context, f models.AuditFilter) ([]models.AuditEntry, error) {
	var sb strings.Builder
	args := []any{}
	sb.WriteString("SELECT id, user_id, action, book_id, details, created_at FROM audit_log")
	if f.BookID != 0 {
		args = append(args, f.BookID)
		sb.WriteString(" WHERE book_id = $1")
	}
	args = append(args, f.Limit, f.Offset)
	sb.WriteString(fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args)))

	rows, err := r.DB.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, translate("book history", err)
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		var (
			e       models.AuditEntry
			action  string
			bookID  sql.NullInt64
			details sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UserID, &action, &bookID, &details, &e.CreatedAt); err != nil {
			return nil, translate("book history", err)
		}
		e.Action = models.AuditAction(action)
		e.BookID = bookID.Int64
		e.Details = details.String
		entries = append(entries, e)
	}
	return entries, translate("book history", rows.Err())
}
