package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/wa-ai-bot-go/internal/composer"
	"github.com/wa-ai-bot-go/internal/config"
	"github.com/wa-ai-bot-go/internal/handlers"
	"github.com/wa-ai-bot-go/internal/i18n"
	"github.com/wa-ai-bot-go/internal/middleware"
	"github.com/wa-ai-bot-go/internal/roles"
	"github.com/wa-ai-bot-go/internal/services/cache"
	"github.com/wa-ai-bot-go/internal/services/completion"
	"github.com/wa-ai-bot-go/internal/services/gateway"
	"github.com/wa-ai-bot-go/internal/services/storage"
	"github.com/wa-ai-bot-go/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		// It's okay if .env doesn't exist
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting WhatsApp AI bot...")
	log.WithField("instance", cfg.Gateway.Instance).Info("Gateway instance configured")

	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}

	resolver := roles.NewResolver(&cfg.Roles, log)
	store := storage.NewMemoryStore(log)
	cacheService := cache.NewResponseCache(&cfg.Cache, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)
	metrics := middleware.NewMetrics()

	provider := completion.NewClient(&cfg.Completion, log)
	delivery := gateway.NewGreenAPI(&cfg.Gateway, log)
	comp := composer.New(&cfg.Context, &cfg.Fallback, resolver, log)

	commandRouter := handlers.NewCommandRouter(cfg, resolver, store, localizer, metrics, log)
	messageHandler := handlers.NewMessageHandler(
		cfg,
		resolver,
		rateLimiter,
		store,
		cacheService,
		comp,
		provider,
		delivery,
		commandRouter,
		localizer,
		metrics,
		log,
	)
	webhookHandler := handlers.NewWebhookHandler(cfg, messageHandler, delivery.BotIdentifier(), metrics, log)

	if cfg.Monitoring.Metrics.Enabled {
		go func() {
			log.WithFields(logrus.Fields{
				"port": cfg.Monitoring.Metrics.Port,
				"path": cfg.Monitoring.Metrics.Path,
			}).Info("Starting metrics server")

			if err := middleware.StartMetricsServer(cfg.Monitoring.Metrics.Port, cfg.Monitoring.Metrics.Path); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go startPeriodicTasks(ctx, store, metrics)

	router := mux.NewRouter()
	webhookHandler.Register(router)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("Webhook server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Webhook server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	log.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Webhook server shutdown failed")
	}

	cancel()
	log.Info("Bot stopped")
}

// startPeriodicTasks refreshes gauges that need polling.
func startPeriodicTasks(ctx context.Context, store storage.Store, metrics *middleware.Metrics) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.SetActiveUsers(float64(len(store.AllStats())))
		}
	}
}
