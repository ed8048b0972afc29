package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultServerPort       = 8080
	DefaultReadTimeout      = 15 * time.Second
	DefaultWriteTimeout     = 30 * time.Second
	DefaultShutdownTimeout  = 10 * time.Second
	DefaultDBPort           = 5432
	DefaultDBSSLMode        = "prefer"
	DefaultMaxConns         = 10
	DefaultMinConns         = 2
	DefaultFeedURL          = "https://query1.finance.yahoo.com/v7/finance/download"
	DefaultQuoteTimeout     = 10 * time.Second
	DefaultMaxRetries       = 2
	DefaultRetryBackoff     = 250 * time.Millisecond
	DefaultFeedCurrency     = "USD"
	DefaultAccountCurrency  = "USD"
	DefaultFXURL            = "https://api.frankfurter.app"
	DefaultFXTTL            = time.Hour
	DefaultStreamMaxAge     = 2 * time.Minute
	DefaultRedisAddr        = "127.0.0.1:6379"
	DefaultQuoteTTL         = 5 * time.Minute
	DefaultTokenTTL         = 24 * time.Hour
	DefaultBatchSize        = 100
	DefaultFlushInterval    = time.Second
	DefaultBufferSize       = 1024
	DefaultQuoteConcurrency = 8
)

func (c *ServerConfig) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Quotes defaults
	if c.Quotes.FeedURL == "" {
		c.Quotes.FeedURL = DefaultFeedURL
	}
	if c.Quotes.Timeout == 0 {
		c.Quotes.Timeout = DefaultQuoteTimeout
	}
	if c.Quotes.MaxRetries == 0 {
		c.Quotes.MaxRetries = DefaultMaxRetries
	}
	if c.Quotes.RetryBackoff == 0 {
		c.Quotes.RetryBackoff = DefaultRetryBackoff
	}
	if c.Quotes.FeedCurrency == "" {
		c.Quotes.FeedCurrency = DefaultFeedCurrency
	}
	if c.Quotes.AccountCurrency == "" {
		c.Quotes.AccountCurrency = DefaultAccountCurrency
	}
	if c.Quotes.FXURL == "" {
		c.Quotes.FXURL = DefaultFXURL
	}
	if c.Quotes.FXTTL == 0 {
		c.Quotes.FXTTL = DefaultFXTTL
	}
	if c.Quotes.Stream.MaxAge == 0 {
		c.Quotes.Stream.MaxAge = DefaultStreamMaxAge
	}

	// Redis defaults
	if c.Redis.Addr == "" {
		c.Redis.Addr = DefaultRedisAddr
	}
	if c.Redis.QuoteTTL == 0 {
		c.Redis.QuoteTTL = DefaultQuoteTTL
	}

	// Auth defaults
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = DefaultTokenTTL
	}

	// Events defaults
	if c.Events.BatchSize == 0 {
		c.Events.BatchSize = DefaultBatchSize
	}
	if c.Events.FlushInterval == 0 {
		c.Events.FlushInterval = DefaultFlushInterval
	}
	if c.Events.BufferSize == 0 {
		c.Events.BufferSize = DefaultBufferSize
	}

	// Portfolio defaults
	if c.Portfolio.QuoteConcurrency == 0 {
		c.Portfolio.QuoteConcurrency = DefaultQuoteConcurrency
	}
}
