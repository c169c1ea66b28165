package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crucial707/book-catalog/internal/config"
	"github.com/crucial707/book-catalog/internal/db"
	"github.com/crucial707/book-catalog/internal/middleware"
	"github.com/crucial707/book-catalog/internal/repo"
	"github.com/crucial707/book-catalog/internal/repo/memory"
	"github.com/crucial707/book-catalog/internal/scheduler"
)

// limiterIdle is how long a client IP's auth bucket is kept after its last request.
const limiterIdle = 10 * time.Minute

func main() {

	// Load configuration
	cfg := config.Load()
	slog.SetDefault(newLogger(cfg.LogFormat, cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	d, closeStore, err := openStores(cfg)
	if err != nil {
		slog.Error("open store", "store", cfg.Store, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	d.limiter = middleware.NewIPRateLimiter(middleware.PerMinute(cfg.AuthRatePerMinute), cfg.AuthRateBurst)

	router, err := newRouter(d)
	if err != nil {
		slog.Error("build router", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	schedDone, err := scheduler.Start(ctx, cfg.StatsCron, d.books, scheduler.Job{
		Name: "prune-auth-limiter",
		Spec: "@every 5m",
		Run: func(context.Context) {
			if n := d.limiter.Prune(limiterIdle); n > 0 {
				slog.Debug("pruned idle rate limit buckets", "count", n)
			}
		},
	})
	if err != nil {
		slog.Error("start scheduler", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		tls := cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""
		slog.Info("starting server", "addr", srv.Addr, "tls", tls, "store", cfg.Store)
		if tls {
			serveErr <- srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
			return
		}
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "err", err)
		}
		stop()
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown", "err", err)
	}
	<-schedDone
}

// openStores builds the persistence layer selected by cfg.Store.
func openStores(cfg config.Config) (deps, func(), error) {
	d := deps{cfg: cfg}

	if cfg.Store == config.StoreMemory {
		slog.Warn("using in-memory store; data is lost on restart")
		m := memory.New()
		d.users, d.books, d.audit = m.Users, m.Books, m.Audit
		return d, func() {}, nil
	}

	database, err := db.Connect(
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
		cfg.DBUser,
		cfg.DBPass,
		cfg.DBMaxOpenConns,
		cfg.DBMaxIdleConns,
	)
	if err != nil {
		return d, nil, err
	}
	slog.Info("connected to database", "host", cfg.DBHost, "name", cfg.DBName)

	if cfg.RunMigrations {
		if err := db.Migrate(cfg.DatabaseURL()); err != nil {
			database.Close()
			return d, nil, err
		}
	}

	d.users = repo.NewUserRepo(database)
	d.books = repo.NewBookRepo(database)
	d.audit = repo.NewAuditRepo(database)
	d.ping = func(ctx context.Context) error { return pingDB(ctx, database) }
	return d, func() { database.Close() }, nil
}

func pingDB(ctx context.Context, database *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return database.PingContext(ctx)
}
