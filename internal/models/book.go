package models

import (
	"slices"
	"time"
)

// Genre is one of the fixed catalog genres.
type Genre string

const (
	GenreFiction       Genre = "fiction"
	GenreNonfiction    Genre = "nonfiction"
	GenreScience       Genre = "science"
	GenreHistory       Genre = "history"
	GenreFantasy       Genre = "fantasy"
	GenreRomance       Genre = "romance"
	GenreAutobiography Genre = "autobiography"
)

// Genres lists every accepted genre in display order.
var Genres = []Genre{
	GenreFiction,
	GenreNonfiction,
	GenreScience,
	GenreHistory,
	GenreFantasy,
	GenreRomance,
	GenreAutobiography,
}

// MinPublishedYear is the earliest publication year the catalog accepts.
const MinPublishedYear = 1800

// Book is a catalog entry. Genre and PublishedYear are optional; their zero values
// mean unknown and are stored as NULL.
type Book struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	AuthorID      int64     `json:"author_id"`
	Genre         Genre     `json:"genre,omitempty"`
	PublishedYear int       `json:"published_year,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// BookInput is the writable part of a book, shared by create, update and bulk import.
type BookInput struct {
	Title         string `json:"title" validate:"required,notblank,max=255"`
	Author        string `json:"author" validate:"required,notblank,max=255"`
	Genre         Genre  `json:"genre,omitempty" validate:"omitempty,genre"`
	PublishedYear int    `json:"published_year,omitempty" validate:"omitempty,pubyear"`
}

// Input returns the writable fields of b.
func (b Book) Input() BookInput {
	return BookInput{Title: b.Title, Author: b.Author, Genre: b.Genre, PublishedYear: b.PublishedYear}
}

// BookPatch is a partial update: nil fields keep the stored value. An empty genre
// or a zero year clears the field.
type BookPatch struct {
	Title         *string `json:"title,omitempty"`
	Author        *string `json:"author,omitempty"`
	Genre         *Genre  `json:"genre,omitempty"`
	PublishedYear *int    `json:"published_year,omitempty"`
}

// Apply merges p over cur.
func (p BookPatch) Apply(cur BookInput) BookInput {
	if p.Title != nil {
		cur.Title = *p.Title
	}
	if p.Author != nil {
		cur.Author = *p.Author
	}
	if p.Genre != nil {
		cur.Genre = *p.Genre
	}
	if p.PublishedYear != nil {
		cur.PublishedYear = *p.PublishedYear
	}
	return cur
}

// Empty reports whether p changes nothing.
func (p BookPatch) Empty() bool {
	return p.Title == nil && p.Author == nil && p.Genre == nil && p.PublishedYear == nil
}

// BookFilter narrows and orders a book listing.
type BookFilter struct {
	Title    string
	Author   string
	Genre    Genre
	YearFrom int
	YearTo   int
	Skip     int
	Limit    int
	SortBy   string
	Order    string
}

// Valid reports whether g is one of Genres.
func (g Genre) Valid() bool {
	return slices.Contains(Genres, g)
}
