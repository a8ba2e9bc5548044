package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
	"github.com/spf13/cobra"

	"github.com/neomorfeo/fleetsignup/internal/adapter/fsm"
	otelAdapter "github.com/neomorfeo/fleetsignup/internal/adapter/otel"
	"github.com/neomorfeo/fleetsignup/internal/adapter/registration"
	riverAdapter "github.com/neomorfeo/fleetsignup/internal/adapter/river"
	"github.com/neomorfeo/fleetsignup/internal/adapter/session"
	"github.com/neomorfeo/fleetsignup/internal/adapter/sqlite"
	"github.com/neomorfeo/fleetsignup/internal/app"
	"github.com/neomorfeo/fleetsignup/internal/config"

	handler "github.com/neomorfeo/fleetsignup/internal/adapter/http"
)

const serviceName = "fleetsignup"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          serviceName,
		Short:        "Multi-step fleet operator signup service",
		Long:         "fleetsignup serves the signup wizard API and forwards completed registrations to the platform backend.",
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run()
		},
	}

	root.AddCommand(newValidateCmd())
	root.AddCommand(newSweepCmd())
	return root
}

// run starts the server and blocks until SIGINT or SIGTERM.
func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---
	providers, err := otelAdapter.Setup(ctx, cfg.OTel)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	// --- Adapters (out) ---
	db, err := otelAdapter.OpenDB(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	repo, err := sqlite.NewFromDB(db)
	if err != nil {
		db.Close()
		return fmt.Errorf("database: %w", err)
	}
	defer repo.Close()

	tracedRepo := otelAdapter.NewTracingRepository(repo)

	riverClient, err := riverAdapter.Setup(ctx, db, riverAdapter.SweepConfig{
		Store:    tracedRepo,
		TTL:      cfg.SessionTTL,
		Interval: cfg.SweepInterval,
	})
	if err != nil {
		return fmt.Errorf("river: %w", err)
	}
	if err := riverClient.Start(ctx); err != nil {
		return fmt.Errorf("river start: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := riverClient.Stop(stopCtx); err != nil {
			log.Printf("river stop: %v", err)
		}
	}()

	registrar, err := otelAdapter.NewInstrumentedRegistrar(newRegistrar(cfg))
	if err != nil {
		return fmt.Errorf("registrar: %w", err)
	}

	// --- Application ---
	svc := app.NewSignupService(
		tracedRepo,
		otelAdapter.NewTracingPublisher(riverAdapter.NewPublisher(riverClient)),
		fsm.New(),
		registrar,
	)

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(router)))
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)

	api := humachi.New(router, huma.DefaultConfig(serviceName, cfg.OTel.ServiceVersion))
	handler.Register(api, svc)

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("%s listening on :%s", serviceName, cfg.Port)
		log.Printf("API docs: http://localhost:%s/docs", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	log.Println("stopped")
	return nil
}

func newRegistrar(cfg config.Config) *registration.Client {
	return registration.New(cfg.RegistrationURL,
		registration.WithTimeout(cfg.RegistrationTimeout),
		registration.WithSessionContext(session.NewStatic(cfg.RegistrationToken, nil)),
	)
}
