package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/crucial707/book-catalog/internal/bulk"
	"github.com/crucial707/book-catalog/internal/metrics"
	"github.com/crucial707/book-catalog/internal/models"
)

// multipartMemory is how much of an uploaded file is held in memory before spilling to disk.
const multipartMemory = 8 << 20

// BulkHandler imports many books from one JSON or CSV file.
type BulkHandler struct {
	Books BookStore
	Audit AuditLogger
}

type bulkRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type bulkReport struct {
	Created []models.Book  `json:"created"`
	Errors  []bulkRowError `json:"errors"`
}

// ImportBooks creates every valid record and reports the rest by row. The file comes
// from the multipart "file" field or, failing that, the raw request body.
func (h *BulkHandler) ImportBooks(w http.ResponseWriter, r *http.Request) {
	ident, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	src, format, err := importSource(r)
	if err != nil {
		importFailed(w, err)
		return
	}
	defer src.Close()

	records, err := bulk.Parse(src, format)
	if err != nil {
		importFailed(w, err)
		return
	}

	report := bulkReport{Created: []models.Book{}, Errors: []bulkRowError{}}
	for _, rec := range records {
		if rec.Err != nil {
			report.Errors = append(report.Errors, bulkRowError{Row: rec.Row, Error: rec.Err.Error()})
			continue
		}
		in := normalizeInput(rec.Input)
		if fields := validateBook(in); fields != nil {
			report.Errors = append(report.Errors, bulkRowError{Row: rec.Row, Error: fieldsSummary(fields)})
			continue
		}
		book, err := h.Books.Create(r.Context(), in)
		if err != nil {
			slog.Error("bulk import: create book", "row", rec.Row, "err", err)
			report.Errors = append(report.Errors, bulkRowError{Row: rec.Row, Error: "could not store record"})
			continue
		}
		report.Created = append(report.Created, *book)
	}

	metrics.RecordImport(len(report.Created), len(report.Errors))
	recordAudit(r.Context(), h.Audit, ident.UserID, models.AuditImport, 0,
		fmt.Sprintf("format=%s created=%d failed=%d", format, len(report.Created), len(report.Errors)))

	writeJSON(w, http.StatusOK, report)
}

func importSource(r *http.Request) (io.ReadCloser, bulk.Format, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt != "multipart/form-data" {
		format, err := bulk.DetectFormat(r.Header.Get("Content-Type"), r.URL.Query().Get("filename"))
		if err != nil {
			return nil, 0, err
		}
		return r.Body, format, nil
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", bulk.ErrMalformedFile, err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, 0, fmt.Errorf("%w: missing \"file\" field", bulk.ErrMalformedFile)
	}
	format, err := bulk.DetectFormat(header.Header.Get("Content-Type"), header.Filename)
	if err != nil {
		file.Close()
		return nil, 0, err
	}
	return file, format, nil
}

func importFailed(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		JSONError(w, "request body too large", http.StatusRequestEntityTooLarge)
	case errors.Is(err, bulk.ErrUnsupportedFormat):
		JSONError(w, "unsupported file type: use JSON or CSV", http.StatusUnsupportedMediaType)
	case errors.Is(err, bulk.ErrMalformedFile):
		JSONError(w, err.Error(), http.StatusBadRequest)
	default:
		slog.Error("bulk import", "err", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
	}
}
