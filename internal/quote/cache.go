package quote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"github.com/pranav-m-r/Webquity/internal/model"
)

// Cache decorates a Provider with a redis-backed price cache. Prices are
// stored as plain decimal strings under quote:<symbol> with a TTL.
//
// Redis failures never fail a lookup: a broken cache degrades to the
// inner provider. Only the inner provider's errors surface to the caller.
type Cache struct {
	inner  Provider
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache wraps inner with a redis cache.
func NewCache(inner Provider, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{inner: inner, rdb: rdb, ttl: ttl, logger: logger}
}

func cacheKey(symbol string) string {
	return fmt.Sprintf("quote:%s:price", symbol)
}

// GetQuote implements Provider.
func (c *Cache) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	cached, err := c.rdb.Get(ctx, cacheKey(symbol)).Result()
	if err == nil {
		price, perr := decimal.NewFromString(cached)
		if perr == nil && price.IsPositive() {
			return model.Quote{Symbol: symbol, UnitPrice: price, AsOf: time.Now()}, nil
		}
		c.logger.Warn("discarding bad cached quote", "symbol", symbol, "value", cached)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("quote cache read failed", "symbol", symbol, "err", err)
	}

	q, err := c.inner.GetQuote(ctx, symbol)
	if err != nil {
		return model.Quote{}, err
	}

	if err := c.rdb.Set(ctx, cacheKey(symbol), q.UnitPrice.String(), c.ttl).Err(); err != nil {
		c.logger.Warn("quote cache write failed", "symbol", symbol, "err", err)
	}
	return q, nil
}

var _ Provider = (*Cache)(nil)
