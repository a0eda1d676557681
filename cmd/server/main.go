package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Swuzz123/Coffee-Assistant/internal/app"
	"github.com/Swuzz123/Coffee-Assistant/internal/config"
	"github.com/Swuzz123/Coffee-Assistant/internal/logging"
	"github.com/Swuzz123/Coffee-Assistant/internal/transport"
)

func main() {
	// Load .env file if it exists (for development)
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("❌ Failed to load config: %v", err)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if envErr != nil {
		log.Debug("No .env file found, using environment variables")
	}

	log.Info("🚀 Starting Coffee Assistant...")
	log.WithFields(logrus.Fields{
		"service":  cfg.ServiceName,
		"env":      cfg.Env,
		"provider": cfg.LLMProvider,
		"model":    cfg.LLMModel,
		"db":       cfg.DBDriver,
		"sessions": cfg.SessionBackend,
	}).Info("📋 Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.Build(ctx, cfg, log, nil)
	if err != nil {
		log.Fatalf("❌ Failed to initialize: %v", err)
	}
	defer application.Close()
	log.Info("✅ Dialog stack initialized")

	go application.Sessions.RunSweeper(ctx, cfg.SessionSweepInterval)

	httpServer := transport.NewHTTPServer(application.Chat, transport.HTTPOptions{
		Addr:           cfg.HTTPAddr,
		RateLimit:      cfg.HTTPRateLimit,
		RateBurst:      cfg.HTTPRateBurst,
		RequestTimeout: cfg.LLMTimeout * time.Duration(cfg.AgentMaxIterations),
		ServiceName:    cfg.ServiceName,
	}, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	var natsTransport *transport.NATSTransport
	if cfg.NatsEnabled {
		log.Info("📡 Connecting to NATS...")
		natsTransport, err = transport.NewNATSTransport(transport.NATSOptions{
			URL:            cfg.NatsURL,
			Name:           cfg.ServiceName,
			SubjectPrefix:  cfg.NatsSubjectPrefix,
			ConnectTimeout: cfg.NatsTimeout,
			RequestTimeout: cfg.LLMTimeout * time.Duration(cfg.AgentMaxIterations),
		}, application.Chat, log)
		if err != nil {
			log.Fatalf("❌ Failed to initialize NATS transport: %v", err)
		}
		if err := natsTransport.Start(); err != nil {
			log.Fatalf("❌ Failed to start NATS transport: %v", err)
		}
	}

	log.Info("✅ Coffee Assistant is running!")

	select {
	case <-ctx.Done():
		log.Info("🛑 Received shutdown signal")
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("❌ HTTP server stopped")
		}
	}
	log.Info("🔄 Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("⚠️ Error shutting down HTTP server")
	}
	if natsTransport != nil {
		if err := natsTransport.Close(); err != nil {
			log.WithError(err).Warn("⚠️ Error closing NATS transport")
		}
	}

	log.Info("👋 Coffee Assistant stopped")
}
