package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crucial707/book-catalog/internal/auth"
	"github.com/crucial707/book-catalog/internal/config"
	"github.com/crucial707/book-catalog/internal/handlers"
	"github.com/crucial707/book-catalog/internal/middleware"
)

// catalogStore is a book store the stats scheduler can also count.
type catalogStore interface {
	handlers.BookStore
	Count(ctx context.Context) (int, error)
}

// deps is everything newRouter needs. ping is nil for the memory store; a nil limiter
// falls back to middleware.AuthRateLimiter.
type deps struct {
	cfg      config.Config
	users    auth.UserStore
	books    catalogStore
	audit    handlers.AuditLogger
	ping     func(ctx context.Context) error
	limiter  *middleware.IPRateLimiter
	hashCost int
}

func newRouter(d deps) (http.Handler, error) {
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret: []byte(d.cfg.JWTSecret),
		TTL:    d.cfg.JWTExpire,
		Issuer: d.cfg.JWTIssuer,
	})
	if err != nil {
		return nil, err
	}

	var credOpts []auth.CredentialsOption
	if d.hashCost > 0 {
		credOpts = append(credOpts, auth.WithHashCost(d.hashCost))
	}
	creds := auth.NewCredentials(d.users, credOpts...)
	guard := auth.NewGuard(tokens, d.users)

	authHandler := &handlers.AuthHandler{Creds: creds, Tokens: tokens}
	bookHandler := &handlers.BookHandler{Books: d.books, Audit: d.audit}
	bulkHandler := &handlers.BulkHandler{Books: d.books, Audit: d.audit}
	auditHandler := &handlers.AuditHandler{Audit: d.audit}
	userHandler := &handlers.UserHandler{Users: d.users}

	tls := d.cfg.TLSCertFile != "" && d.cfg.TLSKeyFile != ""
	authLimiter := d.limiter
	if authLimiter == nil {
		authLimiter = middleware.AuthRateLimiter()
	}
	bodyLimit := middleware.MaxBytes(middleware.DefaultMaxBodyBytes)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.StripSlashes)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLog)
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(tls))
	r.Use(middleware.CORS(d.cfg.CORSAllowedOrigins))

	// ==========================
	// Operational
	// ==========================
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Welcome to the book catalog"}`))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if d.ping != nil {
			if err := d.ping(r.Context()); err != nil {
				handlers.JSONError(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ready"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// ==========================
	// Auth (rate limited per IP)
	// ==========================
	r.Group(func(r chi.Router) {
		r.Use(authLimiter.Middleware)
		r.Use(bodyLimit)
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/users/login", authHandler.Login)
	})

	// ==========================
	// Books (public reads)
	// ==========================
	r.Get("/books", bookHandler.ListBooks)
	r.Get("/books/{id}", bookHandler.GetBook)

	// ==========================
	// Guarded
	// ==========================
	r.Group(func(r chi.Router) {
		r.Use(guard.Middleware)

		r.With(bodyLimit).Post("/books", bookHandler.CreateBook)
		r.With(bodyLimit).Put("/books/{id}", bookHandler.UpdateBook)
		r.Delete("/books/{id}", bookHandler.DeleteBook)
		r.With(middleware.MaxBytes(d.cfg.BulkMaxBytes)).Post("/books/bulk", bulkHandler.ImportBooks)

		r.Get("/audit", auditHandler.ListAudit)
		r.Get("/users/me", userHandler.Me)
	})

	return r, nil
}
