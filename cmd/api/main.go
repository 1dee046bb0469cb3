package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/extracurricular/internal/api"
	"example.com/extracurricular/internal/config"
	"example.com/extracurricular/internal/domain"
	"example.com/extracurricular/internal/outbox"
	"example.com/extracurricular/internal/persistence"
	"example.com/extracurricular/internal/persistence/memory"
	httptransport "example.com/extracurricular/internal/transport/http"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seed, err := persistence.LoadSeed(cfg.SeedFile)
	if err != nil {
		log.Fatalf("failed to load seed: %v", err)
	}

	repo, err := memory.NewRepository(seed)
	if err != nil {
		log.Fatalf("failed to build registry: %v", err)
	}

	var (
		recorder   domain.EventRecorder = domain.NoopRecorder{}
		dispatcher *outbox.Dispatcher
	)
	if cfg.EventsEnabled() {
		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()

		box := outbox.NewOutbox(cfg.OutboxCapacity)
		dispatcher = outbox.NewDispatcher(box, producer, cfg.EnrollmentTopic, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
		recorder = box

		go dispatcher.Start(ctx)
		log.Printf("publishing enrollment events to %s via %v", cfg.EnrollmentTopic, cfg.KafkaBrokers)
	}

	service := domain.NewService(repo,
		domain.WithCapacityEnforcement(cfg.EnforceCapacity),
		domain.WithEventRecorder(recorder),
	)

	handler := api.NewHandler(service)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))
	mux.Handle("GET /metrics", promhttp.Handler())

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}, httptransport.Chain(mux,
		httptransport.RequestLogger(log.Default()),
		httptransport.CORS(cfg.CORSAllowedOrigin),
	))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("activity directory listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	// Stop the dispatcher only after in-flight requests have recorded their events.
	cancel()
	if dispatcher != nil {
		dispatcher.Wait()
	}
}
