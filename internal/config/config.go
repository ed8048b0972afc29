package config

import "time"

// ServerConfig is the root configuration for the service.
type ServerConfig struct {
	Server    HTTPConfig      `yaml:"server"`
	Database  DBConfig        `yaml:"database"`
	Quotes    QuotesConfig    `yaml:"quotes"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Events    EventsConfig    `yaml:"events"`
	Portfolio PortfolioConfig `yaml:"portfolio"`
}

// HTTPConfig holds the listener settings.
type HTTPConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DBConfig holds the postgres connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// QuotesConfig holds the price feed settings.
type QuotesConfig struct {
	FeedURL      string        `yaml:"feed_url"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	// Currency conversion: prices arrive in FeedCurrency and are
	// re-denominated into AccountCurrency when the two differ.
	FeedCurrency    string        `yaml:"feed_currency"`
	AccountCurrency string        `yaml:"account_currency"`
	FXURL           string        `yaml:"fx_url"`
	FXTTL           time.Duration `yaml:"fx_ttl"`

	Stream StreamConfig `yaml:"stream"`
}

// StreamConfig holds the optional websocket price feed.
type StreamConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	Symbols []string      `yaml:"symbols"`
	MaxAge  time.Duration `yaml:"max_age"`
}

// RedisConfig holds the optional quote cache.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	QuoteTTL time.Duration `yaml:"quote_ttl"`
}

// AuthConfig holds credential settings.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// EventsConfig holds the optional kafka ledger-event publisher.
type EventsConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Brokers       []string      `yaml:"brokers"`
	Topic         string        `yaml:"topic"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// PortfolioConfig holds read-path settings.
type PortfolioConfig struct {
	QuoteConcurrency int `yaml:"quote_concurrency"`
}
