// Package memory implements in-memory stores for development and testing.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/crucial707/book-catalog/internal/models"
	"github.com/crucial707/book-catalog/internal/repo"
)

// Store bundles the in-memory user, book and audit stores.
type Store struct {
	Users *UserStore
	Books *BookStore
	Audit *AuditLog
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		Users: &UserStore{byName: make(map[string]int64)},
		Books: &BookStore{authors: make(map[string]int64)},
		Audit: &AuditLog{},
	}
}

// --- Users ---

// UserStore holds users keyed by id with a unique username index.
type UserStore struct {
	mu     sync.RWMutex
	users  []models.User
	byName map[string]int64
	nextID int64
}

// Create inserts a user. The username check and insert happen under one lock.
func (s *UserStore) Create(ctx context.Context, username, passwordHash string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byName[username]; taken {
		return nil, fmt.Errorf("create user: %w", repo.ErrDuplicate)
	}
	s.nextID++
	u := models.User{
		ID:           s.nextID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.users = append(s.users, u)
	s.byName[username] = u.ID
	return &u, nil
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("get user: %w", repo.ErrNotFound)
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	id, ok := s.byName[username]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("get user by username: %w", repo.ErrNotFound)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

// --- Books ---

// BookStore holds books and the author name index.
type BookStore struct {
	mu           sync.RWMutex
	books        []models.Book
	authors      map[string]int64
	nextID       int64
	nextAuthorID int64
}

func (s *BookStore) authorID(name string) int64 {
	if id, ok := s.authors[name]; ok {
		return id
	}
	s.nextAuthorID++
	s.authors[name] = s.nextAuthorID
	return s.nextAuthorID
}

func (s *BookStore) Create(ctx context.Context, in models.BookInput) (*models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	b := models.Book{
		ID:            s.nextID,
		Title:         in.Title,
		Author:        in.Author,
		AuthorID:      s.authorID(in.Author),
		Genre:         in.Genre,
		PublishedYear: in.PublishedYear,
		CreatedAt:     time.Now().UTC(),
	}
	s.books = append(s.books, b)
	return &b, nil
}

func (s *BookStore) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.index(id); i >= 0 {
		b := s.books[i]
		return &b, nil
	}
	return nil, fmt.Errorf("get book: %w", repo.ErrNotFound)
}

func (s *BookStore) Update(ctx context.Context, id int64, in models.BookInput) (*models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return nil, fmt.Errorf("update book: %w", repo.ErrNotFound)
	}
	b := &s.books[i]
	b.Title = in.Title
	b.Author = in.Author
	b.AuthorID = s.authorID(in.Author)
	b.Genre = in.Genre
	b.PublishedYear = in.PublishedYear
	out := *b
	return &out, nil
}

func (s *BookStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("delete book: %w", repo.ErrNotFound)
	}
	s.books = slices.Delete(s.books, i, i+1)
	return nil
}

// List applies the same filtering, ordering and paging rules as the postgres store.
func (s *BookStore) List(ctx context.Context, f models.BookFilter) ([]models.Book, error) {
	f = repo.NormalizeBookFilter(f)

	s.mu.RLock()
	matched := []models.Book{}
	for _, b := range s.books {
		if matches(b, f) {
			matched = append(matched, b)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b models.Book) int {
		var c int
		switch f.SortBy {
		case "published_year":
			// unknown years sort last in both directions, like NULLS LAST
			if (a.PublishedYear == 0) != (b.PublishedYear == 0) {
				if a.PublishedYear == 0 {
					return 1
				}
				return -1
			}
			c = cmp.Compare(a.PublishedYear, b.PublishedYear)
		case "author":
			c = strings.Compare(a.Author, b.Author)
		default:
			c = strings.Compare(a.Title, b.Title)
		}
		if f.Order == "desc" {
			c = -c
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		return c
	})

	if f.Skip >= len(matched) {
		return []models.Book{}, nil
	}
	end := min(f.Skip+f.Limit, len(matched))
	return matched[f.Skip:end], nil
}

func (s *BookStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books), nil
}

func (s *BookStore) index(id int64) int {
	return slices.IndexFunc(s.books, func(b models.Book) bool { return b.ID == id })
}

func matches(b models.Book, f models.BookFilter) bool {
	if f.Title != "" && !containsFold(b.Title, f.Title) {
		return false
	}
	if f.Author != "" && !containsFold(b.Author, f.Author) {
		return false
	}
	if f.Genre != "" && b.Genre != f.Genre {
		return false
	}
	if (f.YearFrom > 0 || f.YearTo > 0) && b.PublishedYear == 0 {
		return false
	}
	if f.YearFrom > 0 && b.PublishedYear < f.YearFrom {
		return false
	}
	if f.YearTo > 0 && b.PublishedYear > f.YearTo {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// --- Audit ---

// AuditLog is an append-only in-memory audit trail.
type AuditLog struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func (a *AuditLog) Log(ctx context.Context, userID int64, action models.AuditAction, bookID int64, details string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.entries = append(a.entries, models.AuditEntry{
		ID:        int64(len(a.entries) + 1),
		UserID:    userID,
		Action:    action,
		BookID:    bookID,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// List returns entries newest first.
func (a *AuditLog) List(ctx context.Context, f models.AuditFilter) ([]models.AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := []models.AuditEntry{}
	skipped := 0
	for i := len(a.entries) - 1; i >= 0 && len(out) < f.Limit; i-- {
		e := a.entries[i]
		if f.BookID != 0 && e.BookID != f.BookID {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
