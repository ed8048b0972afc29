// quotecheck looks up quotes for one or more symbols and prints them to
// console. It exercises the same provider chain the server uses, so it is
// handy for verifying feed and FX configuration before deploying.
// Usage: go run ./cmd/quotecheck --config configs/server.local.yaml AAPL MSFT
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pranav-m-r/Webquity/internal/config"
	"github.com/pranav-m-r/Webquity/internal/quote"
)

func main() {
	configPath := flag.String("config", "configs/server.example.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "print full quote JSON")
	watch := flag.Duration("watch", 0, "re-poll at this interval (0 = look up once and exit)")
	flag.Parse()

	godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	symbols := flag.Args()
	if len(symbols) == 0 {
		fmt.Fprintln(os.Stderr, "usage: quotecheck [flags] SYMBOL [SYMBOL...]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

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
			Symbols: symbols,
			MaxAge:  cfg.Quotes.Stream.MaxAge,
		}, logger)
		if err := stream.Start(ctx); err != nil {
			logger.Error("failed to start quote stream", "error", err)
			os.Exit(1)
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			stream.Stop(stopCtx)
		}()
		provider = quote.Fallback(stream, provider)
		logger.Info("quote stream enabled", "url", cfg.Quotes.Stream.URL)
	}

	if cfg.Quotes.FeedCurrency != cfg.Quotes.AccountCurrency {
		rates := quote.NewRates(cfg.Quotes.FXURL, cfg.Quotes.FXTTL, logger)
		provider = quote.NewConverting(provider, rates, cfg.Quotes.FeedCurrency, cfg.Quotes.AccountCurrency)
		logger.Info("fx conversion enabled",
			"from", cfg.Quotes.FeedCurrency,
			"to", cfg.Quotes.AccountCurrency,
		)
	}

	lookup := func() {
		for _, raw := range symbols {
			symbol := strings.ToUpper(strings.TrimSpace(raw))
			q, err := provider.GetQuote(ctx, symbol)
			if err != nil {
				fmt.Printf("[QUOTE] symbol=%s error=%v\n", symbol, err)
				continue
			}
			if *verbose {
				data, _ := json.MarshalIndent(q, "", "  ")
				fmt.Printf("[QUOTE] %s\n", data)
			} else {
				fmt.Printf("[QUOTE] symbol=%s price=%s as_of=%s\n",
					q.Symbol, q.UnitPrice, q.AsOf.Format(time.RFC3339))
			}
		}
	}

	lookup()
	if *watch <= 0 {
		return
	}

	logger.Info("watching quotes - press Ctrl+C to stop", "interval", *watch)
	ticker := time.NewTicker(*watch)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown complete")
			return
		case <-ticker.C:
			lookup()
		}
	}
}
