package metrics

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// LoginsTotal counts login attempts by result (success, failure).
	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Total number of login attempts by result",
		},
		[]string{"result"},
	)

	// BooksImportedTotal counts bulk import rows by result (created, failed).
	BooksImportedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "books_imported_total",
			Help: "Total number of bulk import rows by result",
		},
		[]string{"result"},
	)

	// CatalogBooks is the number of books in the catalog, refreshed by the scheduler.
	CatalogBooks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_books",
			Help: "Number of books currently in the catalog",
		},
	)
)

// UnmatchedPath is the path label for requests that matched no route.
const UnmatchedPath = "unmatched"

var (
	numericPathSegment = regexp.MustCompile(`/[0-9]+(/|$)`)
	initOnce           sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, LoginsTotal, BooksImportedTotal, CatalogBooks)
	})
}

// NormalizePath reduces cardinality by replacing numeric path segments with {id}.
// E.g. /books/123 -> /books/{id}.
func NormalizePath(path string) string {
	return numericPathSegment.ReplaceAllString(path, "/{id}$1")
}

// RecordRequest records duration and count for an HTTP request.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	path = NormalizePath(path)
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

func RecordLogin(success bool) {
	if success {
		LoginsTotal.WithLabelValues("success").Inc()
		return
	}
	LoginsTotal.WithLabelValues("failure").Inc()
}

// RecordImport adds one bulk import's row counts.
func RecordImport(created, failed int) {
	BooksImportedTotal.WithLabelValues("created").Add(float64(created))
	BooksImportedTotal.WithLabelValues("failed").Add(float64(failed))
}

func SetCatalogBooks(n int) {
	CatalogBooks.Set(float64(n))
}
