// Agentdeck - administration and embedding layer for AI chat agents.
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

	"github.com/ashureev/agentdeck/internal/agentcfg"
	"github.com/ashureev/agentdeck/internal/api"
	"github.com/ashureev/agentdeck/internal/chatlog"
	"github.com/ashureev/agentdeck/internal/config"
	"github.com/ashureev/agentdeck/internal/domain"
	"github.com/ashureev/agentdeck/internal/identity"
	"github.com/ashureev/agentdeck/internal/middleware"
	"github.com/ashureev/agentdeck/internal/rbac"
	"github.com/ashureev/agentdeck/internal/store"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port)

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Initialize services.
	evaluator := rbac.NewEvaluator(repo)
	agentSvc := agentcfg.NewService(repo)
	aggregator := chatlog.NewAggregator(repo)

	// Auth token issuance is external; the static resolver covers
	// single-operator deployments where ADMIN_TOKEN is set.
	tokens := map[string]domain.Principal{}
	if cfg.AdminToken != "" {
		tokens[cfg.AdminToken] = domain.Principal{UserID: "admin", RoleIDs: []string{"role_admin"}}
	} else {
		slog.Warn("ADMIN_TOKEN not set, all mutating endpoints will be denied")
	}
	resolver := identity.NewStaticResolver(tokens)

	// Initialize handlers.
	healthHandler := api.NewHealthHandler(repo)
	agentHandler := api.NewAgentHandler(agentSvc)
	roleHandler := api.NewRoleHandler(evaluator)
	sessionHandler := api.NewSessionHandler(aggregator)
	embedHandler := api.NewEmbedHandler(agentSvc)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(identity.Middleware(resolver, evaluator))

	// Public routes.
	healthHandler.RegisterHealth(r)
	embedHandler.RegisterRoutes(r)

	// Admin API routes; mutations are gated per-route by the evaluator.
	agentHandler.RegisterRoutes(r)
	roleHandler.RegisterRoutes(r)
	sessionHandler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start retention worker.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chatlog.StartRetentionWorker(ctx, repo, cfg.SessionRetention)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
