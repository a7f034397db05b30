package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"github.com/Redish03/StepCounter/internal/aggregator"
	"github.com/Redish03/StepCounter/internal/config"
	"github.com/Redish03/StepCounter/internal/consumer"
	"github.com/Redish03/StepCounter/internal/counterstore"
	"github.com/Redish03/StepCounter/internal/domain"
	"github.com/Redish03/StepCounter/internal/groups"
	"github.com/Redish03/StepCounter/internal/identity"
	"github.com/Redish03/StepCounter/internal/remote/firestore"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := counterstore.Open(counterstore.Options{Path: cfg.CounterPath})
	if err != nil {
		log.Fatalf("failed to open counter store: %v", err)
	}
	defer store.Close()

	opts := []aggregator.Option{
		aggregator.WithInterval(cfg.ReconcileInterval),
		aggregator.WithThresholds(aggregator.Thresholds{
			StepDelta: cfg.UploadStepThreshold,
			MaxAge:    cfg.UploadMaxAge,
		}),
		aggregator.WithStatusSurface(&aggregator.LogSurface{
			Logger: log.New(log.Writer(), "[status] ", log.LstdFlags),
		}),
	}

	// Without a configured project the agent counts locally and never
	// uploads.
	if cfg.FirestoreProjectID != "" && cfg.DeviceUID != "" {
		remoteStore, err := firestore.New(ctx, cfg.FirestoreProjectID)
		if err != nil {
			log.Fatalf("failed to connect to remote store: %v", err)
		}
		defer remoteStore.Close()

		ident := identity.Static{User: identity.User{UID: cfg.DeviceUID, DisplayName: cfg.DeviceName}}
		coordinator := groups.NewCoordinator(remoteStore, ident)
		opts = append(opts, aggregator.WithPublisher(publisherFunc(coordinator.PublishSteps)))
	} else {
		log.Println("no remote store configured, running local-only")
	}

	agg := aggregator.New(store, opts...)

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler()}
	go func() {
		log.Printf("aggregator metrics listening on %s", cfg.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.KafkaBrokers,
		GroupID:         cfg.ConsumerGroupID,
		Topic:           cfg.StepTopic,
		MinBytes:        1,
		MaxBytes:        10e6,
		CommitInterval:  time.Second,
		ReadLagInterval: -1,
	})
	proc := consumer.NewProcessor(reader, consumer.NewStepHandler(agg))

	var wg sync.WaitGroup
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	fatal := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := agg.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("aggregator stopped with error: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer reader.Close()

		log.Printf("step consumer started (topic=%s, group=%s)", cfg.StepTopic, cfg.ConsumerGroupID)
		err := proc.Run(ctx)
		switch {
		case errors.Is(err, domain.ErrPermissionDenied):
			fatal <- err
		case err != nil && !errors.Is(err, context.Canceled):
			log.Printf("step consumer stopped with error: %v", err)
		}
	}()

	select {
	case <-stop:
		log.Println("aggregator shutdown requested")
	case err := <-fatal:
		log.Printf("not started: permission denied: %v", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown error: %v", err)
	}

	wg.Wait()
}

// publisherFunc adapts a method to the aggregator.Publisher interface.
type publisherFunc func(ctx context.Context, steps int) error

func (f publisherFunc) PublishSteps(ctx context.Context, steps int) error {
	return f(ctx, steps)
}
