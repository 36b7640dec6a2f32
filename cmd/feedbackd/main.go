package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/feedback-analytics/internal/application"
	"github.com/example/feedback-analytics/internal/attendance"
	"github.com/example/feedback-analytics/internal/config"
	httptransport "github.com/example/feedback-analytics/internal/http"
	"github.com/example/feedback-analytics/internal/links"
	"github.com/example/feedback-analytics/internal/metrics"
	"github.com/example/feedback-analytics/internal/persistence/memory"
	"github.com/example/feedback-analytics/internal/persistence/sqlite"
	"github.com/example/feedback-analytics/internal/token"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if cfg.UsingDefaultSecret {
		logger.Warn("JWT_SECRET is not set; feedback tokens are signed with the public default secret")
	}

	service, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise service", "error", err)
		os.Exit(1)
	}
	defer service.Close()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           service.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("feedback API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

type app struct {
	handler http.Handler
	tracker *attendance.Tracker
	store   *memory.Store
	metrics *metrics.Metrics
	closers []func() error
	logger  *slog.Logger
}

// Close releases resources in reverse order of acquisition. It is safe to
// call more than once.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("failed to close resource", "error", err)
		}
	}
	a.closers = nil
}

// newApp assembles the catalog, the attendance tracker with its journal and
// the HTTP surface. Journaled sessions are replayed before it returns.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{store: memory.New(), metrics: metrics.New(), logger: logger}

	if cfg.SeedFile != "" {
		seed, err := a.store.LoadSeed(ctx, cfg.SeedFile)
		if err != nil {
			return nil, err
		}
		logger.Info("catalog seeded", "file", cfg.SeedFile,
			"events", len(seed.Events), "users", len(seed.Users), "forms", len(seed.Forms), "responses", len(seed.Responses))
	}

	journal, err := a.openJournal(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.tracker = attendance.NewTracker(
		attendance.WithJournal(journal),
		attendance.WithObserver(a.metrics),
		attendance.WithLogger(logger),
	)
	restored, err := a.tracker.Restore(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("restore attendance sessions: %w", err)
	}
	logger.Info("attendance sessions restored", "sessions", restored)

	codec := token.NewCodec(cfg.JWTSecret, time.Now)
	issuer := links.NewIssuer(codec, cfg.FrontendURL, cfg.TokenTTL)

	feedbackService := application.NewFeedbackServiceWithLogger(application.FeedbackDependencies{
		Events:      a.store,
		Users:       a.store,
		Forms:       a.store,
		Responses:   a.store,
		Attendance:  a.tracker,
		Tokens:      codec,
		Observer:    a.metrics,
		IDGenerator: uuid.NewString,
		Now:         time.Now,
	}, logger)
	attendanceService := application.NewAttendanceServiceWithLogger(a.store, a.store, a.tracker, issuer, time.Now, logger)
	linkService := application.NewLinkServiceWithLogger(a.store, a.store, a.tracker, issuer, logger)

	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Attendance:   httptransport.NewAttendanceHandler(attendanceService, linkService, logger),
		Feedback:     httptransport.NewFeedbackHandler(feedbackService, logger),
		Metrics:      a.metrics.Handler(),
		QueryTimeout: cfg.QueryTimeout,
		Middleware:   []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})
	return a, nil
}

func (a *app) openJournal(ctx context.Context, cfg config.Config) (attendance.Journal, error) {
	if !cfg.JournalEnabled() {
		a.logger.Warn("attendance journal disabled; sessions are kept in memory only")
		return attendance.NewMemoryJournal(), nil
	}

	pool, err := sqlite.Open(ctx, cfg.SQLiteDSN, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open attendance journal: %w", err)
	}
	a.closers = append(a.closers, pool.Close)

	if err := pool.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return attendance.NewPersistentJournal(sqlite.NewSessionJournal(pool)), nil
}
