// Package main is the entry point for the interactions API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/config"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/handler"
	natsclient "github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/nats"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/service"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/store"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/pkg/logger"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "interactions-api", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("failed to open store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
		os.Exit(1)
	}

	var (
		publisher service.Publisher
		health    = handler.NewHealthHandler(nil)
		stream    *handler.StreamHandler
	)

	// Connect to NATS for live events
	if cfg.LiveEventsEnabled {
		natsClient, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
			Name:     "interactions-api",
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer natsClient.Close()

		publisher = natsclient.NewPublisher(natsClient)
		health = handler.NewHealthHandler(natsClient)
		stream = handler.NewStreamHandler(natsclient.NewSubscriber(natsClient), cfg.SSEHeartbeat, log)
	}

	// Initialize services
	interactionSvc := service.NewInteractionService(st, publisher, cfg.MaxContentLength, log)

	// Create router
	r := handler.NewRouter(handler.RouterConfig{
		JWTSecret:           cfg.JWTSecret,
		RateLimitRequests:   cfg.RateLimitRequests,
		IPRateLimitRequests: cfg.IPRateLimitRequests,
		RateLimitWindow:     cfg.RateLimitWindow,
		AllowedOrigins:      cfg.AllowedOrigins,
	}, handler.Handlers{
		Health:       health,
		Interactions: handler.NewInteractionHandler(interactionSvc, cfg.MaxContentLength, log),
		Stream:       stream,
	}, log)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
	if stream != nil {
		// Event streams are long lived.
		server.WriteTimeout = 0
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort), zap.String("store", cfg.StoreBackend))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return store.NewMemoryStore(), nil
	case config.StoreDynamoDB:
		client, err := store.NewDynamoClient(ctx, cfg.AWSRegion, cfg.DynamoEndpoint)
		if err != nil {
			return nil, err
		}
		return store.NewDynamoStore(client, cfg.DynamoTable), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
