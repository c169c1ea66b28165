package handlers

import (
	"context"

	"github.com/crucial707/book-catalog/internal/models"
)

// BookStore is implemented by repo.BookRepo and memory.BookStore.
type BookStore interface {
	Create(ctx context.Context, in models.BookInput) (*models.Book, error)
	GetByID(ctx context.Context, id int64) (*models.Book, error)
	Update(ctx context.Context, id int64, in models.BookInput) (*models.Book, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f models.BookFilter) ([]models.Book, error)
}

// AuditLogger is implemented by repo.AuditRepo and memory.AuditLog.
type AuditLogger interface {
	Log(ctx context.Context, userID int64, action models.AuditAction, bookID int64, details string) error
	List(ctx context.Context, f models.AuditFilter) ([]models.AuditEntry, error)
}

// UserReader is implemented by repo.UserRepo and memory.UserStore.
type UserReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}
