package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jwebster45206/interrogation-engine/internal/config"
	"github.com/jwebster45206/interrogation-engine/internal/handlers"
	"github.com/jwebster45206/interrogation-engine/internal/logger"
	"github.com/jwebster45206/interrogation-engine/internal/middleware"
	"github.com/jwebster45206/interrogation-engine/internal/services"
	"github.com/jwebster45206/interrogation-engine/internal/services/events"
	"github.com/jwebster45206/interrogation-engine/internal/sessions"
	"github.com/jwebster45206/interrogation-engine/internal/storage"
	"github.com/jwebster45206/interrogation-engine/pkg/textfilter"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Interrogation Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName)

	llmService, err := services.NewLLMService(cfg, log)
	if err != nil {
		log.Error("Failed to create LLM service", "error", err)
		os.Exit(1)
	}

	store, err := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, cfg.SessionTTL, log)
	if err != nil {
		log.Error("Failed to create storage", "error", err)
		os.Exit(1)
	}
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}

	initCtx, initCancel := context.WithTimeout(context.Background(), time.Minute)
	defer initCancel()
	if err := llmService.InitModel(initCtx, cfg.ModelName); err != nil {
		log.Error("Failed to initialize LLM model", "error", err, "model", cfg.ModelName)
		os.Exit(1)
	}

	broadcaster := events.NewBroadcaster(store.Client(), log)
	opts := sessions.Options{
		BannedTerms: cfg.BannedTerms,
		TurnTimeout: cfg.TurnTimeout,
	}
	if textfilter.ShouldFilter(cfg.ContentRating) {
		opts.ReplyFilter = textfilter.New(cfg.BannedTerms...)
	}
	manager := sessions.NewManager(store, llmService, opts, log)

	mux := http.NewServeMux()
	mux.Handle("/health", handlers.NewHealthHandler(store, manager, cfg.LLMProvider, log))

	casesHandler := handlers.NewCasesHandler(store, log)
	mux.Handle("/v1/cases", casesHandler)
	mux.Handle("/v1/cases/", casesHandler)

	sessionsHandler := handlers.NewSessionsHandler(manager, broadcaster, log)
	mux.Handle("/v1/sessions", sessionsHandler)
	mux.Handle("/v1/sessions/", sessionsHandler)

	mux.Handle("/v1/events/sessions/", handlers.NewEventsHandler(broadcaster, log))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     middleware.LoggerWith(log, mux),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: SSE streams stay open and turns wait on the LLM.
		IdleTimeout: 60 * time.Second,
		// Requests inherit the signal context so open event streams end on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Server is shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return store.Close()
	})

	if err := g.Wait(); err != nil {
		log.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("Server exited")
}
