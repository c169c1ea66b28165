package repo

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crucial707/book-catalog/internal/models"
)

var bookCols = []string{"id", "title", "author", "author_id", "genre", "published_year", "created_at"}

func dune() models.BookInput {
	return models.BookInput{Title: "Dune", Author: "Herbert", Genre: models.GenreFiction, PublishedYear: 1965}
}

func TestBookRepo_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO authors \(name\) VALUES \(\$1\) ON CONFLICT \(name\) DO UPDATE SET name = EXCLUDED.name RETURNING id`).
		WithArgs("Herbert").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`INSERT INTO books \(title, author, author_id, genre, published_year\) VALUES \(\$1, \$2, \$3, \$4, \$5\) RETURNING id, created_at`).
		WithArgs("Dune", "Herbert", int64(7), "fiction", 1965).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(42, now))
	mock.ExpectCommit()

	repo := NewBookRepo(db)
	book, err := repo.Create(context.Background(), dune())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if book.ID != 42 || book.AuthorID != 7 || book.Title != "Dune" || book.Genre != models.GenreFiction {
		t.Errorf("unexpected book: %+v", book)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestBookRepo_Create_RollsBackOnInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO authors`).
		WithArgs("Herbert").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`INSERT INTO books`).
		WillReturnError(errors.New("check constraint"))
	mock.ExpectRollback()

	_, err = NewBookRepo(db).Create(context.Background(), dune())
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestBookRepo_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, title, author, author_id, genre, published_year, created_at FROM books WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(bookCols).AddRow(1, "Dune", "Herbert", 7, "fiction", 1965, time.Now()))

	book, err := NewBookRepo(db).GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if book.ID != 1 || book.Title != "Dune" || book.Author != "Herbert" || book.PublishedYear != 1965 {
		t.Errorf("unexpected book: %+v", book)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestBookRepo_OptionalFieldsStoredAsNull(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO authors`).
		WithArgs("Herbert").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`INSERT INTO books`).
		WithArgs("Dune", "Herbert", int64(7), nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))
	mock.ExpectCommit()
	mock.ExpectQuery(`FROM books WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(bookCols).AddRow(1, "Dune", "Herbert", 7, nil, nil, time.Now()))

	r := NewBookRepo(db)
	if _, err := r.Create(context.Background(), models.BookInput{Title: "Dune", Author: "Herbert"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	book, err := r.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if book.Genre != "" || book.PublishedYear != 0 {
		t.Errorf("expected unset genre and year, got %+v", book)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestBookRepo_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM books WHERE id = \$1`).
		WithArgs(int64(999)).
		WillReturnError(sql.ErrNoRows)

	_, err = NewBookRepo(db).GetByID(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestBookRepo_Update_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO authors`).
		WithArgs("Herbert").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`UPDATE books SET title = \$1, author = \$2, author_id = \$3, genre = \$4, published_year = \$5 WHERE id = \$6 RETURNING created_at`).
		WithArgs("Dune", "Herbert", int64(7), "fiction", 1965, int64(5)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err = NewBookRepo(db).Update(context.Background(), 5, dune())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestBookRepo_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM books WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewBookRepo(db).Delete(context.Background(), 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestBookRepo_Delete_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM books WHERE id = \$1`).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewBookRepo(db).Delete(context.Background(), 2)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestBookRepo_List_Defaults(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, title, author, author_id, genre, published_year, created_at FROM books WHERE 1=1 ORDER BY title ASC NULLS LAST, id ASC LIMIT $1 OFFSET $2`)).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows(bookCols).
			AddRow(1, "A", "X", 1, "fiction", 1999, time.Now()).
			AddRow(2, "B", "Y", 2, "history", 2001, time.Now()))

	books, err := NewBookRepo(db).List(context.Background(), models.BookFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(books) != 2 || books[0].Title != "A" || books[1].Genre != models.GenreHistory {
		t.Errorf("unexpected list: %+v", books)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestBookRepo_List_Filters(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	want := `SELECT id, title, author, author_id, genre, published_year, created_at FROM books WHERE 1=1` +
		` AND title ILIKE $1 AND author ILIKE $2 AND genre = $3 AND published_year >= $4 AND published_year <= $5` +
		` ORDER BY published_year DESC NULLS LAST, id ASC LIMIT $6 OFFSET $7`
	mock.ExpectQuery(regexp.QuoteMeta(want)).
		WithArgs("%dune%", "%herb%", "fiction", 1900, 2000, 5, 10).
		WillReturnRows(sqlmock.NewRows(bookCols))

	books, err := NewBookRepo(db).List(context.Background(), models.BookFilter{
		Title: "dune", Author: "herb", Genre: models.GenreFiction,
		YearFrom: 1900, YearTo: 2000, Skip: 10, Limit: 5,
		SortBy: "published_year", Order: "DESC",
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if books == nil || len(books) != 0 {
		t.Errorf("expected empty non-nil list, got: %#v", books)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestNormalizeBookFilter(t *testing.T) {
	f := NormalizeBookFilter(models.BookFilter{Limit: 500, Skip: -4, SortBy: "id; DROP TABLE books", Order: "sideways"})
	if f.Limit != MaxBookLimit || f.Skip != 0 || f.SortBy != "title" || f.Order != "asc" {
		t.Errorf("unexpected normalized filter: %+v", f)
	}

	f = NormalizeBookFilter(models.BookFilter{SortBy: "author", Order: "Desc"})
	if f.Limit != DefaultBookLimit || f.SortBy != "author" || f.Order != "desc" {
		t.Errorf("unexpected normalized filter: %+v", f)
	}
}
