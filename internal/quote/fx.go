package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pranav-m-r/Webquity/internal/model"
)

// RateSource resolves an exchange rate between two currency codes.
type RateSource interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Rates fetches exchange rates from an HTTP API with the common shape
// GET {base}/latest?from=USD&to=INR -> {"rates":{"INR":83.1}}.
// Rates move slowly, so each pair is cached for a configurable TTL.
type Rates struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	ttl        time.Duration

	mu    sync.Mutex
	cache map[string]cachedRate
}

type cachedRate struct {
	rate    decimal.Decimal
	expires time.Time
}

// NewRates creates an FX rate client. ttl bounds how long a fetched rate
// is reused before hitting the API again.
func NewRates(baseURL string, ttl time.Duration, logger *slog.Logger) *Rates {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rates{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
		ttl:    ttl,
		cache:  make(map[string]cachedRate),
	}
}

// Rate implements RateSource.
func (r *Rates) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	key := from + "/" + to

	r.mu.Lock()
	if c, ok := r.cache[key]; ok && time.Now().Before(c.expires) {
		r.mu.Unlock()
		return c.rate, nil
	}
	r.mu.Unlock()

	query := url.Values{}
	query.Set("from", from)
	query.Set("to", to)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/latest?"+query.Encode(), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("create rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch rate %s: %w", key, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read rate response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return decimal.Zero, fmt.Errorf("rate api %s: status %d", key, resp.StatusCode)
	}

	var parsed struct {
		Rates map[string]decimal.Decimal `json:"rates"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return decimal.Zero, fmt.Errorf("unmarshal rate response: %w", err)
	}

	rate, ok := parsed.Rates[to]
	if !ok || !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("rate api %s: no usable rate", key)
	}

	r.mu.Lock()
	r.cache[key] = cachedRate{rate: rate, expires: time.Now().Add(r.ttl)}
	r.mu.Unlock()

	return rate, nil
}

// Converting decorates a Provider, re-denominating every price from the
// feed currency into the accounting currency. A failed rate lookup makes
// the quote unavailable: the write path must never post a half-converted
// price.
type Converting struct {
	inner Provider
	rates RateSource
	from  string
	to    string
}

// NewConverting wraps inner so prices quoted in from are returned in to.
func NewConverting(inner Provider, rates RateSource, from, to string) *Converting {
	return &Converting{inner: inner, rates: rates, from: from, to: to}
}

// GetQuote implements Provider.
func (c *Converting) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	q, err := c.inner.GetQuote(ctx, symbol)
	if err != nil {
		return model.Quote{}, err
	}

	rate, err := c.rates.Rate(ctx, c.from, c.to)
	if err != nil {
		return model.Quote{}, fmt.Errorf("convert %s %s->%s: %w", symbol, c.from, c.to, ErrUnavailable)
	}

	q.UnitPrice = q.UnitPrice.Mul(rate)
	return q, nil
}

var _ Provider = (*Converting)(nil)
