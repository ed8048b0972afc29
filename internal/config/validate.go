package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if err := c.Database.validate("database"); err != nil {
		return err
	}

	if c.Quotes.FeedURL == "" {
		return errors.New("quotes.feed_url is required")
	}
	if c.Quotes.FeedCurrency != c.Quotes.AccountCurrency && c.Quotes.FXURL == "" {
		return errors.New("quotes.fx_url is required when feed and account currencies differ")
	}
	if c.Quotes.Stream.Enabled && c.Quotes.Stream.URL == "" {
		return errors.New("quotes.stream.url is required when the stream is enabled")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return errors.New("redis.addr is required when redis is enabled")
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}

	if c.Events.Enabled {
		if len(c.Events.Brokers) == 0 {
			return errors.New("events.brokers is required when events are enabled")
		}
		if c.Events.Topic == "" {
			return errors.New("events.topic is required when events are enabled")
		}
		if c.Events.BatchSize < 1 {
			return errors.New("events.batch_size must be >= 1")
		}
		if c.Events.BufferSize < 1 {
			return errors.New("events.buffer_size must be >= 1")
		}
	}

	if c.Portfolio.QuoteConcurrency < 1 {
		return errors.New("portfolio.quote_concurrency must be >= 1")
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
