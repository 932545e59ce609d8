// The mindmesh daemon keeps a mindmap session synchronized with its
// backend: it runs the intent bus, the effect pipelines and the standing
// subscriptions, and serves Prometheus metrics.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mindmesh/application/intents"
	"mindmesh/infrastructure/config"
	"mindmesh/infrastructure/di"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	container.Dispatcher.Register(container.Epics)
	go container.Dispatcher.Run(ctx)

	// Initial load: graph, documents, history availability, then the
	// standing subscriptions.
	container.Dispatcher.Dispatch(intents.LoadApp{})

	if path := os.Getenv("MINDMESH_CONFIG"); path != "" {
		watcher, err := config.NewWatcher(path, *cfg, container.Logger)
		if err != nil {
			container.Logger.Fatal("Failed to watch configuration file", zap.Error(err))
		}
		defer watcher.Close()
		watcher.OnChange(func(next *config.Config) {
			container.Epics.UpdateConfig(di.ProvideEpicsConfig(next))
		})
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Handle("/metrics", promhttp.HandlerFor(container.Registry, promhttp.HandlerOpts{}))
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:         cfg.MetricsAddress,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		container.Logger.Info("Starting daemon",
			zap.String("app", cfg.App),
			zap.String("backend", cfg.BaseURL),
			zap.String("metrics", cfg.MetricsAddress),
			zap.String("environment", cfg.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Fatal("Metrics server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	container.Logger.Info("Shutting down...")
	container.Dispatcher.Dispatch(intents.StopSubscriptions{})
	container.Epics.Stop()
	cancel()
	container.Dispatcher.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Metrics server shutdown error", zap.Error(err))
	}

	if err := container.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}
	log.Println("Daemon stopped")
}
