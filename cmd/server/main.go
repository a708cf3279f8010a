package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"

	"github.com/inkwire/publishinghub/pkg/publishing/api"
	"github.com/inkwire/publishinghub/pkg/publishing/config"
)

func main() {
	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		log.Fatalf("Failed to load server configuration: %v", err)
	}

	svc, err := cfg.BuildService()
	if err != nil {
		log.Fatalf("Failed to build publishing service: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: routes(cfg, api.NewHandler(svc, logger)),
	}

	go func() {
		logger.Info("publishing hub starting",
			slog.String("port", cfg.Port),
			slog.String("environment", cfg.Environment),
			slog.String("ledger", cfg.LedgerType),
			slog.String("storage", cfg.StorageType))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("server exited")
}

func routes(cfg *config.ServerConfig, handler *api.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS for development
	if cfg.Environment == "development" {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Viewer-Identity")

				if r.Method == "OPTIONS" {
					w.WriteHeader(http.StatusOK)
					return
				}

				next.ServeHTTP(w, r)
			})
		})
	}

	var tokenAuth *jwtauth.JWTAuth
	if cfg.JWTSecret != "" {
		tokenAuth = jwtauth.New("HS256", []byte(cfg.JWTSecret), nil)
	}
	r.Use(api.IdentityVerifier(tokenAuth))

	r.Get("/health", handleHealth(cfg))
	r.Mount("/api/v1", handler.Routes())

	return r
}

func handleHealth(cfg *config.ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status": "healthy", "environment": "%s", "ledger": "%s", "storage": "%s"}`,
			cfg.Environment, cfg.LedgerType, cfg.StorageType)
	}
}
