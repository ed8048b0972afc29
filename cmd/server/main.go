package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/pranav-m-r/Webquity/internal/account"
	"github.com/pranav-m-r/Webquity/internal/auth"
	"github.com/pranav-m-r/Webquity/internal/config"
	"github.com/pranav-m-r/Webquity/internal/database"
	"github.com/pranav-m-r/Webquity/internal/events"
	"github.com/pranav-m-r/Webquity/internal/ledger"
	"github.com/pranav-m-r/Webquity/internal/portfolio"
	"github.com/pranav-m-r/Webquity/internal/quote"
	"github.com/pranav-m-r/Webquity/internal/server"
	"github.com/pranav-m-r/Webquity/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/server.local.yaml", "path to config file")
	flag.Parse()

	// .env is optional; config values reference its variables via ${VAR}.
	godotenv.Load()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting server",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := ledger.NewPostgresStore(pool, logger)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	logger.Info("database connected")

	// Build the quote provider chain: REST feed, optionally fronted by
	// the websocket stream, re-denominated into the accounting currency,
	// and cached in redis.
	var provider quote.Provider = quote.NewClient(
		cfg.Quotes.FeedURL,
		quote.WithLogger(logger),
		quote.WithTimeout(cfg.Quotes.Timeout),
		quote.WithRetries(cfg.Quotes.MaxRetries, cfg.Quotes.RetryBackoff),
	)

	var stream *quote.Stream
	if cfg.Quotes.Stream.Enabled {
		stream = quote.NewStream(quote.StreamConfig{
			URL:     cfg.Quotes.Stream.URL,
			Symbols: cfg.Quotes.Stream.Symbols,
			MaxAge:  cfg.Quotes.Stream.MaxAge,
		}, logger)
		if err := stream.Start(ctx); err != nil {
			logger.Error("failed to start quote stream", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer shutdownCancel()
			stream.Stop(shutdownCtx)
		}()
		provider = quote.Fallback(stream, provider)
	}

	if cfg.Quotes.FeedCurrency != cfg.Quotes.AccountCurrency {
		rates := quote.NewRates(cfg.Quotes.FXURL, cfg.Quotes.FXTTL, logger)
		provider = quote.NewConverting(provider, rates, cfg.Quotes.FeedCurrency, cfg.Quotes.AccountCurrency)
	}

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		provider = quote.NewCache(provider, rdb, cfg.Redis.QuoteTTL, logger)
		logger.Info("quote cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.QuoteTTL)
	}

	// Ledger event publisher
	var publisher events.Publisher
	if cfg.Events.Enabled {
		kp := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers:       cfg.Events.Brokers,
			Topic:         cfg.Events.Topic,
			BatchSize:     cfg.Events.BatchSize,
			FlushInterval: cfg.Events.FlushInterval,
			BufferSize:    cfg.Events.BufferSize,
		}, logger)
		if err := kp.Start(ctx); err != nil {
			logger.Error("failed to start event publisher", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer shutdownCancel()
			kp.Stop(shutdownCtx)
		}()
		publisher = kp
	}

	// Core services
	authSvc := auth.NewService(store, []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL, logger)
	mutator := account.NewService(store, provider, publisher, logger)
	aggregator := portfolio.NewAggregator(store, provider, cfg.Portfolio.QuoteConcurrency, logger)

	srv := server.New(mutator, aggregator, authSvc, provider, pool, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("http server listening", "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)

	logger.Info("server stopped")
}
