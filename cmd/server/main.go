package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/skillsprint/internal/api"
	"github.com/dgallion1/skillsprint/internal/config"
	"github.com/dgallion1/skillsprint/internal/generate"
	"github.com/dgallion1/skillsprint/internal/metrics"
	"github.com/dgallion1/skillsprint/internal/parser"
	"github.com/dgallion1/skillsprint/internal/pipeline"
	"github.com/dgallion1/skillsprint/internal/review"
	"github.com/dgallion1/skillsprint/internal/store"
	"github.com/dgallion1/skillsprint/internal/structure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Initialize storage and generation.
	lessons, err := store.Open(cfg.StoreDriver, cfg.StorePath)
	if err != nil {
		log.Error("open lesson store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	backend, err := generate.NewBackend(cfg, log)
	if err != nil {
		log.Error("init generator", "error", err)
		os.Exit(1)
	}

	st := structure.New(
		parser.Decoder{FallbackPdftotext: cfg.PDFFallbackPdftotext},
		structure.Thresholds{Delta: cfg.HeadingDelta, HeadingSize: cfg.HeadingMinSize},
	)

	// Initialize pipeline and review sessions.
	orch := pipeline.NewOrchestrator(cfg, st, lessons, m, log.With("component", "pipeline"))
	orch.Start(ctx)

	sessions := review.NewSessions(backend.Generator, cfg.GenerationTimeout, cfg.SessionTTL, log, m)
	go sessions.Run(ctx, 5*time.Minute)

	// Initialize HTTP server.
	srv := api.NewServer(api.Deps{
		Orchestrator: orch,
		Structurer:   st,
		Lessons:      lessons,
		Generator:    backend.Generator,
		Sessions:     sessions,
		Metrics:      m,
		Stats:        backend.Stats,
		Model:        backend.Model,
	}, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.GenerationTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		sessions.Close()
		cancel()
		backend.Close()
		if err := lessons.Close(); err != nil {
			log.Warn("close lesson store", "error", err)
		}
	}()

	log.Info("starting skillsprint", "port", cfg.Port, "store", cfg.StoreDriver, "generator", cfg.Generator)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-stopped
}
