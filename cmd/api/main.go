// Package main is the entry point for the API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/helpassistant/assistant-platform/internal/config"
	"github.com/helpassistant/assistant-platform/internal/events"
	"github.com/helpassistant/assistant-platform/internal/handler"
	"github.com/helpassistant/assistant-platform/internal/llm"
	"github.com/helpassistant/assistant-platform/internal/lock"
	"github.com/helpassistant/assistant-platform/internal/provider"
	"github.com/helpassistant/assistant-platform/internal/service"
	"github.com/helpassistant/assistant-platform/internal/store"
	"github.com/helpassistant/assistant-platform/pkg/logger"
	"github.com/helpassistant/assistant-platform/pkg/tracing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "assistant-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Storage
	st, err := store.Open(cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer st.Close()

	// Collection creation lock
	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		locker = lock.NewRedis(rdb, 0)
		log.Info("using redis lock")
	}

	// Domain events
	var (
		publisher  events.Publisher = events.Nop{}
		natsClient *events.Client
	)
	if cfg.NATSURL != "" {
		natsClient, err = events.Connect(ctx, events.Config{
			URL:   cfg.NATSURL,
			Token: cfg.NATSToken,
		}, log)
		if err != nil {
			return err
		}
		defer natsClient.Close()

		js := events.NewJetStreamPublisher(natsClient)
		if err := js.EnsureStream(ctx); err != nil {
			return err
		}
		publisher = events.NewBestEffort(js, log)
	}

	// Completion backend
	llmOpts := llm.Options{
		Backend:      llm.Backend(cfg.CompletionBackend),
		APIKey:       cfg.ProviderAPIKey,
		BaseURL:      cfg.ProviderBaseURL,
		DefaultModel: cfg.ProviderLLMModel,
	}
	if llmOpts.Backend == llm.BackendAnthropic {
		llmOpts.APIKey = cfg.AnthropicAPIKey
		llmOpts.BaseURL = ""
		llmOpts.DefaultModel = cfg.AnthropicModel
	}
	llmClient, err := llm.NewClient(llmOpts)
	if err != nil {
		return err
	}

	providerClient := provider.New(provider.Options{
		BaseURL:         cfg.ProviderBaseURL,
		APIKey:          cfg.ProviderAPIKey,
		EmbeddingsModel: cfg.ProviderEmbeddingsModel,
		LLMModel:        llmOpts.DefaultModel,
		Timeout:         cfg.ProviderTimeout,
		SearchTopK:      cfg.SearchTopK,
		Completion:      llmClient,
	})

	// Initialize services
	maxUpload := cfg.MaxUploadMB << 20
	collections := service.NewCollectionManager(st, providerClient, locker, publisher, log)
	services := handler.Services{
		Assistants:  service.NewAssistantService(st, collections, cfg.UploadDir, publisher, log),
		Collections: collections,
		Documents:   service.NewDocumentManager(st, providerClient, collections, cfg.UploadDir, maxUpload, publisher, log),
		Chats:       service.NewChatOrchestrator(st, providerClient, collections, publisher, log),
	}

	router := handler.NewRouter(handler.RouterConfig{
		JWTSecret:         cfg.JWTSecret,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		MaxUploadBytes:    maxUpload,
		AllowedOrigins:    cfg.CORSAllowedOrigins,
	}, services, st, natsClient, log)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}
