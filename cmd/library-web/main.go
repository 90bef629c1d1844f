// main is the entry point of the library web front end.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file
//  2. Initialise the logger
//  3. Open the SQLite session store
//  4. Build the API client, session manager and templates
//  5. Register all HTTP routes and start the server
//  6. Block until an OS signal (Ctrl+C / kill) arrives
//  7. Gracefully shut down: finish in-flight requests, then exit
//
// RUNNING THE SERVER:
//
//	go run ./cmd/library-web --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/library-web
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aanand-mishra/library-web/internal/api"
	"github.com/aanand-mishra/library-web/internal/config"
	"github.com/aanand-mishra/library-web/internal/http/handlers/pages"
	"github.com/aanand-mishra/library-web/internal/http/middleware"
	"github.com/aanand-mishra/library-web/internal/http/view"
	"github.com/aanand-mishra/library-web/internal/session"
	"github.com/aanand-mishra/library-web/internal/storage/sqlite"
)

const sweepInterval = 10 * time.Minute

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	// Handlers log through the package-level slog functions, so the
	// configured logger also becomes the default.
	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting library-web",
		slog.String("env", cfg.Env),
		slog.String("api", cfg.API.BaseURL),
	)

	// ── 3. Initialise Session Storage ─────────────────────────────────────
	storage, err := sqlite.New(cfg)
	if err != nil {
		log.Error("failed to initialise storage",
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("storage initialised",
		slog.String("path", cfg.StoragePath))

	// ── 4. Wire Dependencies ──────────────────────────────────────────────
	client := api.New(cfg.API.BaseURL, api.WithLoginPath(cfg.API.LoginPath))

	sessions := session.NewManager(storage, client,
		session.WithCookie(cfg.Session.CookieName, cfg.Session.MaxAge, cfg.Session.Secure),
	)

	views, err := view.New()
	if err != nil {
		log.Error("failed to parse templates",
			slog.String("error", err.Error()))
		closeStorage(log, storage)
		os.Exit(1)
	}

	// ── 5. Register HTTP Routes ───────────────────────────────────────────
	router := pages.Routes(pages.Deps{
		API:        client,
		Sessions:   sessions,
		Views:      views,
		LoanPeriod: cfg.LoanPeriod,
	})

	server := &http.Server{
		Addr:    cfg.HTTPServer.Addr,
		Handler: middleware.Recover(log, middleware.Logger(log, router)),

		// Page loads fan out to the API; the write timeout leaves room
		// for a slow backend.
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ── 6. Run Server and Session Sweeper ─────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sessions.Sweep(gctx, sweepInterval)
		return nil
	})

	// ── 7. Graceful Shutdown ──────────────────────────────────────────────
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, stopping server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	stop()
	closeStorage(log, storage)
	if err != nil {
		log.Error("server stopped with error",
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("server stopped gracefully")
}

// closeStorage closes the session store. Every exit path after the store
// is opened goes through it because os.Exit skips defers.
func closeStorage(log *slog.Logger, storage *sqlite.SQLite) {
	if err := storage.Close(); err != nil {
		log.Error("failed to close storage",
			slog.String("error", err.Error()))
	}
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Staging: JSON at DEBUG level. Production (prod): JSON at INFO level.
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default:
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	}
}
