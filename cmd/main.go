// cmd/main.go is the application entry point.
// It wires together all layers and starts the local shell server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/eventhub/internal/advisor"
	"github.com/Shivanand-hulikatti/eventhub/internal/booking"
	"github.com/Shivanand-hulikatti/eventhub/internal/config"
	"github.com/Shivanand-hulikatti/eventhub/internal/gateway"
	"github.com/Shivanand-hulikatti/eventhub/internal/guard"
	"github.com/Shivanand-hulikatti/eventhub/internal/handler"
	"github.com/Shivanand-hulikatti/eventhub/internal/logging"
	"github.com/Shivanand-hulikatti/eventhub/internal/metrics"
	"github.com/Shivanand-hulikatti/eventhub/internal/notify"
	"github.com/Shivanand-hulikatti/eventhub/internal/session"
	"github.com/Shivanand-hulikatti/eventhub/internal/shell"
	"github.com/Shivanand-hulikatti/eventhub/internal/storage"
	"github.com/Shivanand-hulikatti/eventhub/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// ── 1. Configuration and logging ─────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	m := metrics.New()

	// ── 2. Session persistence ───────────────────────────────────────────
	kv, err := session.Open(ctx, cfg.Session, logging.Component(logger, "session"))
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	defer kv.Close()
	tokens := session.NewTokens(kv, nil)
	logger.Info("session store ready", zap.String("driver", cfg.Session.Driver))

	// ── 3. Backend gateway and AI advisor ────────────────────────────────
	client := gateway.New(cfg.Backend.BaseURL, tokens,
		gateway.WithHTTPClient(&http.Client{Timeout: cfg.Backend.Timeout}),
		gateway.WithLogger(logging.Component(logger, "gateway")),
		gateway.WithMetrics(m),
	)

	adv, err := newAdvisor(ctx, cfg, logger, m)
	if err != nil {
		return err
	}

	// ── 4. Wire up layers ────────────────────────────────────────────────
	notes := notify.NewCenter(cfg.Notify.TTL, nil, logging.Component(logger, "notify"))
	g := &guard.Guard{}
	events := store.New(client, tokens, g, notes,
		store.WithImages(adv),
		store.WithLogger(logging.Component(logger, "store")),
	)
	ui := shell.New(events, notes)
	workflow := booking.New(events, client, g, notes,
		booking.WithNavigator(ui),
		booking.WithDetailView(ui),
		booking.WithMaxTickets(cfg.Booking.MaxTicketsPerUser),
		booking.WithLogger(logging.Component(logger, "booking")),
		booking.WithMetrics(m),
	)
	h := handler.New(handler.Deps{
		Store:      events,
		Booking:    workflow,
		Shell:      ui,
		Advisor:    adv,
		Notes:      notes,
		Guard:      g,
		Metrics:    m,
		Logger:     logging.Component(logger, "handler"),
		MaxTickets: cfg.Booking.MaxTicketsPerUser,
	})

	// A failed first load is recorded on the store and retried from the shell.
	if err := events.Bootstrap(ctx); err != nil {
		logger.Warn("initial load failed", zap.Error(err))
	}

	// ── 5. Build the router ──────────────────────────────────────────────
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(handler.Logger(logging.Component(logger, "http")))
	r.Use(handler.CORS)

	h.Register(r)

	// ── 6. Start server with graceful shutdown ───────────────────────────
	srv := &http.Server{
		Addr:         cfg.Shell.Addr,
		Handler:      r,
		ReadTimeout:  cfg.Shell.ReadTimeout,
		WriteTimeout: cfg.Shell.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("shell listening", zap.String("addr", cfg.Shell.Addr), zap.String("backend", cfg.Backend.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Block until SIGINT, SIGTERM or a listener failure.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// newAdvisor builds the AI advisor. Without an API key it stays unconfigured
// and every advisory call reports that.
func newAdvisor(ctx context.Context, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*advisor.Advisor, error) {
	log := logging.Component(logger, "advisor")
	opts := []advisor.Option{advisor.WithLogger(log), advisor.WithMetrics(m)}

	if cfg.Images.Enabled() {
		banners, err := storage.NewBannerStore(ctx, cfg.Images, logging.Component(logger, "storage"))
		if err != nil {
			return nil, fmt.Errorf("banner storage: %w", err)
		}
		opts = append(opts, advisor.WithImageHost(banners))
	}

	var gen advisor.Generator
	if cfg.AI.APIKey != "" {
		gemini, err := advisor.NewGemini(ctx, cfg.AI.APIKey, cfg.AI.TextModel, cfg.AI.ImageModel)
		if err != nil {
			return nil, fmt.Errorf("ai client: %w", err)
		}
		gen = gemini
	} else {
		log.Info("no AI api key set; advisory features disabled")
	}
	return advisor.New(gen, opts...), nil
}
