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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/xiaot623/lifeline/internal/adapter/speech"
	"github.com/xiaot623/lifeline/internal/adapter/telephony"
	"github.com/xiaot623/lifeline/internal/audio"
	"github.com/xiaot623/lifeline/internal/callscript"
	"github.com/xiaot623/lifeline/internal/calls"
	"github.com/xiaot623/lifeline/internal/cleanup"
	"github.com/xiaot623/lifeline/internal/config"
	"github.com/xiaot623/lifeline/internal/crisis"
	"github.com/xiaot623/lifeline/internal/hub"
	"github.com/xiaot623/lifeline/internal/notify"
	"github.com/xiaot623/lifeline/internal/observability"
	"github.com/xiaot623/lifeline/internal/repository"
	"github.com/xiaot623/lifeline/internal/service"
	handler "github.com/xiaot623/lifeline/internal/transport/http"
	"github.com/xiaot623/lifeline/policy"
)

// mockFromNumber is the sender used in MOCK mode when none is configured.
const mockFromNumber = "+15005550006"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("WARN: failed to load .env: %v", err)
	}

	// Load configuration
	cfg := config.Load()

	log.Printf("Starting lifeline...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Public URL: %s", cfg.PublicBaseURL)
	log.Printf("Database: %s", cfg.DatabaseURL)

	// Initialize store
	db, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize policy engine
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policyContent := policy.DefaultPolicy
	if cfg.PolicyFile != "" {
		data, err := os.ReadFile(cfg.PolicyFile)
		if err != nil {
			log.Fatalf("Failed to read policy file: %v", err)
		}
		policyContent = string(data)
	}
	policyEngine, err := policy.NewEngine(ctx, policyContent)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	// Audio artifacts and their delayed cleanup
	artifacts, err := audio.NewStore(cfg.AudioDir)
	if err != nil {
		log.Fatalf("Failed to initialize audio store: %v", err)
	}
	scheduler := cleanup.New()

	// Call tracking and the watch feed
	watchHub := hub.NewHub(metrics)
	scripts := callscript.NewBuilder(cfg.CallResponseURL())
	tracker := calls.NewTracker(scripts, db, metrics)
	tracker.AddObserver(watchHub)

	// External providers
	provider := telephony.NewProvider(cfg)
	synthesizer := speech.NewSynthesizer(cfg)

	fromNumber := cfg.TwilioPhoneNumber
	if fromNumber == "" && cfg.MockMode() {
		fromNumber = mockFromNumber
	}
	dispatcher := notify.NewDispatcher(notify.Config{
		FromNumber:        fromNumber,
		OrgName:           cfg.OrgName,
		StatusCallbackURL: cfg.CallStatusURL(),
		Pacing:            cfg.PacingInterval,
		ProviderTimeout:   cfg.ProviderTimeout,
		CleanupDelay:      cfg.AudioCleanupDelay,
		AudioURL:          cfg.AudioURL,
	}, notify.Deps{
		Telephony:   provider,
		Synthesizer: synthesizer,
		Artifacts:   artifacts,
		Scripts:     scripts,
		Calls:       tracker,
		Scheduler:   scheduler,
		Metrics:     metrics,
		Done:        ctx.Done(),
	})

	// Initialize service
	svc := service.New(db, crisis.NewDefaultAnalyzer(), dispatcher, tracker, provider, cfg, policyEngine, metrics)

	server := handler.NewServer(svc, cfg, artifacts, watchHub, reg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		watchHub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		tracker.RunSweeper(gctx, 30*time.Second)
		return nil
	})
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down lifeline...")

		// Graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("WARN: failed to shutdown server gracefully: %v", err)
		}
		if err := scheduler.Shutdown(shutdownCtx, cfg.CleanupFlushOnShutdown); err != nil {
			log.Printf("WARN: audio cleanup did not finish: %v", err)
		}
		return nil
	})

	log.Printf("API started on port %d", cfg.HTTPPort)

	if err := g.Wait(); err != nil {
		log.Printf("ERROR: %v", err)
	}
	log.Println("Lifeline stopped")
}
