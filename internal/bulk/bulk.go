// Package bulk decodes book import files (a JSON array or CSV with a header row)
// into per-row records. Rows that cannot be decoded carry their own error so one
// bad row does not sink the whole file.
package bulk

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/crucial707/book-catalog/internal/models"
)

var (
	// ErrUnsupportedFormat means neither the content type nor the file name identify JSON or CSV.
	ErrUnsupportedFormat = errors.New("unsupported import format")
	// ErrMalformedFile means the file as a whole could not be decoded.
	ErrMalformedFile = errors.New("malformed import file")
)

type Format int

const (
	FormatJSON Format = iota + 1
	FormatCSV
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatCSV:
		return "csv"
	}
	return "unknown"
}

// Record is one decoded row. Row is 1-based and excludes the CSV header.
type Record struct {
	Row   int
	Input models.BookInput
	Err   error
}

// DetectFormat picks the format from contentType, falling back to the file extension
// when the content type is missing or generic.
func DetectFormat(contentType, filename string) (Format, error) {
	mt, _, _ := mime.ParseMediaType(contentType)
	switch mt {
	case "application/json", "text/json":
		return FormatJSON, nil
	case "text/csv", "application/csv", "application/vnd.ms-excel":
		return FormatCSV, nil
	case "", "application/octet-stream", "text/plain":
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mt)
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	}
	return 0, ErrUnsupportedFormat
}

// Parse decodes r according to f.
func Parse(r io.Reader, f Format) ([]Record, error) {
	switch f {
	case FormatJSON:
		return parseJSON(r)
	case FormatCSV:
		return parseCSV(r)
	}
	return nil, ErrUnsupportedFormat
}

// jsonBook accepts "author" or "author_name".
type jsonBook struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	AuthorName    string `json:"author_name"`
	Genre         string `json:"genre"`
	PublishedYear int    `json:"published_year"`
}

func (b jsonBook) input() models.BookInput {
	author := b.Author
	if author == "" {
		author = b.AuthorName
	}
	return models.BookInput{
		Title:         strings.TrimSpace(b.Title),
		Author:        strings.TrimSpace(author),
		Genre:         models.Genre(strings.ToLower(strings.TrimSpace(b.Genre))),
		PublishedYear: b.PublishedYear,
	}
}

func parseJSON(r io.Reader) ([]Record, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON array of books: %w", ErrMalformedFile, err)
	}

	records := make([]Record, 0, len(raw))
	for i, msg := range raw {
		rec := Record{Row: i + 1}
		var b jsonBook
		if err := json.Unmarshal(msg, &b); err != nil {
			rec.Err = fmt.Errorf("invalid record: %v", err)
		} else {
			rec.Input = b.input()
		}
		records = append(records, rec)
	}
	return records, nil
}

var csvAliases = map[string]string{
	"title":          "title",
	"author":         "author",
	"author_name":    "author",
	"genre":          "genre",
	"published_year": "published_year",
	"year":           "published_year",
}

func parseCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading csv header: %w", ErrMalformedFile, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if canon, ok := csvAliases[name]; ok {
			cols[canon] = i
		}
	}
	// genre and published_year are optional columns
	for _, need := range []string{"title", "author"} {
		if _, ok := cols[need]; !ok {
			return nil, fmt.Errorf("%w: csv header missing column %q", ErrMalformedFile, need)
		}
	}

	var records []Record
	for row := 1; ; row++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		rec := Record{Row: row}
		if err != nil {
			if !errors.Is(err, csv.ErrFieldCount) {
				return nil, fmt.Errorf("%w: %w", ErrMalformedFile, err)
			}
			rec.Err = fmt.Errorf("expected %d fields, got %d", len(header), len(fields))
			records = append(records, rec)
			continue
		}

		get := func(col string) string {
			i, ok := cols[col]
			if !ok {
				return ""
			}
			return strings.TrimSpace(fields[i])
		}
		var year int
		if raw := get("published_year"); raw != "" {
			if year, err = strconv.Atoi(raw); err != nil {
				rec.Err = fmt.Errorf("published_year %q is not a number", raw)
				records = append(records, rec)
				continue
			}
		}
		rec.Input = models.BookInput{
			Title:         get("title"),
			Author:        get("author"),
			Genre:         models.Genre(strings.ToLower(get("genre"))),
			PublishedYear: year,
		}
		records = append(records, rec)
	}
	return records, nil
}
