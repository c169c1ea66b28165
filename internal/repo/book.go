package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/crucial707/book-catalog/internal/models"
)

const (
	DefaultBookLimit = 10
	MaxBookLimit     = 100
)

// sortColumns whitelists the columns a listing may be ordered by.
var sortColumns = map[string]string{
	"title":          "title",
	"published_year": "published_year",
	"author":         "author",
}

const bookColumns = "id, title, author, author_id, genre, published_year, created_at"

// ========================
// REPOSITORY STRUCT
// ========================

type BookRepo struct {
	DB *sql.DB
}

func NewBookRepo(db *sql.DB) *BookRepo {
	return &BookRepo{DB: db}
}

// NormalizeBookFilter clamps pagination and replaces unknown sort settings with the
// defaults (title, ascending).
func NormalizeBookFilter(f models.BookFilter) models.BookFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultBookLimit
	}
	if f.Limit > MaxBookLimit {
		f.Limit = MaxBookLimit
	}
	if f.Skip < 0 {
		f.Skip = 0
	}
	if _, ok := sortColumns[f.SortBy]; !ok {
		f.SortBy = "title"
	}
	f.Order = strings.ToLower(f.Order)
	if f.Order != "asc" && f.Order != "desc" {
		f.Order = "asc"
	}
	return f
}

// ========================
// CREATE BOOK
// ========================

// Create resolves (or creates) the author and inserts the book in one transaction.
func (r *BookRepo) Create(ctx context.Context, in models.BookInput) (*models.Book, error) {
	book := &models.Book{
		Title:         in.Title,
		Author:        in.Author,
		Genre:         in.Genre,
		PublishedYear: in.PublishedYear,
	}

	err := WithTx(ctx, r.DB, func(tx DBTX) error {
		authorID, err := upsertAuthor(ctx, tx, in.Author)
		if err != nil {
			return err
		}
		book.AuthorID = authorID

		return tx.QueryRowContext(ctx,
			`INSERT INTO books (title, author, author_id, genre, published_year)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, created_at`,
			in.Title, in.Author, authorID, nullGenre(in.Genre), nullYear(in.PublishedYear),
		).Scan(&book.ID, &book.CreatedAt)
	})
	if err != nil {
		return nil, translate("create book", err)
	}
	return book, nil
}

// ========================
// GET BOOK BY ID
// ========================

func (r *BookRepo) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+bookColumns+`
		 FROM books
		 WHERE id = $1`,
		id,
	)
	book, err := scanBook(row)
	if err != nil {
		return nil, translate("get book", err)
	}
	return book, nil
}

// ========================
// UPDATE BOOK BY ID
// ========================

func (r *BookRepo) Update(ctx context.Context, id int64, in models.BookInput) (*models.Book, error) {
	book := &models.Book{
		ID:            id,
		Title:         in.Title,
		Author:        in.Author,
		Genre:         in.Genre,
		PublishedYear: in.PublishedYear,
	}

	err := WithTx(ctx, r.DB, func(tx DBTX) error {
		authorID, err := upsertAuthor(ctx, tx, in.Author)
		if err != nil {
			return err
		}
		book.AuthorID = authorID

		return tx.QueryRowContext(ctx,
			`UPDATE books
			 SET title = $1, author = $2, author_id = $3, genre = $4, published_year = $5
			 WHERE id = $6
			 RETURNING created_at`,
			in.Title, in.Author, authorID, nullGenre(in.Genre), nullYear(in.PublishedYear), id,
		).Scan(&book.CreatedAt)
	})
	if err != nil {
		return nil, translate("update book", err)
	}
	return book, nil
}

// ========================
// DELETE BOOK BY ID
// ========================

func (r *BookRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return translate("delete book", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return translate("delete book", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete book: %w", ErrNotFound)
	}
	return nil
}

// ========================
// LIST BOOKS WITH FILTERS
// ========================

func (r *BookRepo) List(ctx context.Context, f models.BookFilter) ([]models.Book, error) {
	query, args := buildListQuery(NormalizeBookFilter(f))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate("list books", err)
	}
	defer rows.Close()

	books := []models.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, translate("list books", err)
		}
		books = append(books, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list books", err)
	}
	return books, nil
}

// Count returns the number of books in the catalog.
func (r *BookRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&n); err != nil {
		return 0, translate("count books", err)
	}
	return n, nil
}

// buildListQuery expects a normalized filter; the ORDER BY column comes from sortColumns only.
// Books without a year sort last in either direction.
func buildListQuery(f models.BookFilter) (string, []any) {
	var sb strings.Builder
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	sb.WriteString("SELECT " + bookColumns + " FROM books WHERE 1=1")
	if f.Title != "" {
		sb.WriteString(" AND title ILIKE " + arg("%"+f.Title+"%"))
	}
	if f.Author != "" {
		sb.WriteString(" AND author ILIKE " + arg("%"+f.Author+"%"))
	}
	if f.Genre != "" {
		sb.WriteString(" AND genre = " + arg(string(f.Genre)))
	}
	if f.YearFrom > 0 {
		sb.WriteString(" AND published_year >= " + arg(f.YearFrom))
	}
	if f.YearTo > 0 {
		sb.WriteString(" AND published_year <= " + arg(f.YearTo))
	}
	sb.WriteString(fmt.Sprintf(" ORDER BY %s %s NULLS LAST, id ASC", sortColumns[f.SortBy], strings.ToUpper(f.Order)))
	sb.WriteString(" LIMIT " + arg(f.Limit))
	sb.WriteString(" OFFSET " + arg(f.Skip))

	return sb.String(), args
}

func upsertAuthor(ctx context.Context, tx DBTX, name string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO authors (name) VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		name,
	).Scan(&id)
	return id, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(s rowScanner) (*models.Book, error) {
	var (
		b     models.Book
		genre sql.NullString
		year  sql.NullInt64
	)
	if err := s.Scan(&b.ID, &b.Title, &b.Author, &b.AuthorID, &genre, &year, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.Genre = models.Genre(genre.String)
	b.PublishedYear = int(year.Int64)
	return &b, nil
}

func nullGenre(g models.Genre) sql.NullString {
	return sql.NullString{String: string(g), Valid: g != ""}
}

func nullYear(y int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(y), Valid: y != 0}
}
