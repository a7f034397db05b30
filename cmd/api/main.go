package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Redish03/StepCounter/internal/api"
	"github.com/Redish03/StepCounter/internal/auth"
	"github.com/Redish03/StepCounter/internal/config"
	"github.com/Redish03/StepCounter/internal/groups"
	"github.com/Redish03/StepCounter/internal/identity"
	"github.com/Redish03/StepCounter/internal/remote/firestore"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.FirestoreProjectID == "" {
		log.Fatal("FIRESTORE_PROJECT_ID is required")
	}

	store, err := firestore.New(ctx, cfg.FirestoreProjectID)
	if err != nil {
		log.Fatalf("failed to connect to remote store: %v", err)
	}
	defer store.Close()

	ident, err := identity.NewFirebase(ctx, cfg.FirestoreProjectID)
	if err != nil {
		log.Fatalf("failed to initialise identity: %v", err)
	}

	coordinator := groups.NewCoordinator(store, ident)

	handler := api.NewHandler(coordinator)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Basic request logger
	logger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
	authMiddleware.Skipper = func(r *http.Request) bool {
		return r.URL.Path == "/healthz" || r.URL.Path == "/metrics"
	}

	server := &http.Server{
		Addr:         cfg.HTTPAddress,
		Handler:      authMiddleware.Wrap(logger(mux)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("step api listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
