package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/crucial707/book-catalog/internal/metrics"
)

// DefaultSpec refreshes catalog stats once a minute.
const DefaultSpec = "@every 1m"

// refreshTimeout bounds a single Count call.
const refreshTimeout = 10 * time.Second

// BookCounter is satisfied by repo.BookRepo and memory.BookStore.
type BookCounter interface {
	Count(ctx context.Context) (int, error)
}

// Job is an extra periodic task run on the same cron runner.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context)
}

// Start refreshes the catalog_books gauge once immediately and then on spec until ctx
// is cancelled. It returns once the schedule is installed; the returned channel closes
// after the cron runner has stopped and any running job has finished.
func Start(ctx context.Context, spec string, books BookCounter, jobs ...Job) (<-chan struct{}, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { Refresh(ctx, books) }); err != nil {
		return nil, fmt.Errorf("scheduler: invalid cron spec %q: %w", spec, err)
	}
	for _, j := range jobs {
		run := j.Run
		if _, err := c.AddFunc(j.Spec, func() {
			if ctx.Err() == nil {
				run(ctx)
			}
		}); err != nil {
			return nil, fmt.Errorf("scheduler: job %s: invalid cron spec %q: %w", j.Name, j.Spec, err)
		}
		slog.Info("scheduler: job scheduled", "job", j.Name, "spec", j.Spec)
	}

	Refresh(ctx, books)
	c.Start()
	slog.Info("scheduler: catalog stats refresh scheduled", "spec", spec)

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		close(done)
	}()
	return done, nil
}

// Refresh sets catalog_books from books.Count. Errors are logged and the gauge keeps its last value.
func Refresh(ctx context.Context, books BookCounter) {
	if ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	n, err := books.Count(ctx)
	if err != nil {
		slog.Warn("scheduler: count books", "err", err)
		return
	}
	metrics.SetCatalogBooks(n)
}
