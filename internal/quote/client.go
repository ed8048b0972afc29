package quote

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pranav-m-r/Webquity/internal/model"
)

// Client fetches prices from a historical-download HTTP endpoint that
// serves one CSV per symbol (Date,Open,High,Low,Close,Adj Close,Volume).
// The quote is the adjusted close of the most recent row.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	window       time.Duration // How far back to request rows
	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a price feed client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:       slog.Default(),
		window:       7 * 24 * time.Hour,
		maxRetries:   2,
		retryBackoff: 250 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// APIError represents an error response from the price feed.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("price feed error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// GetQuote implements Provider.
func (c *Client) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	now := time.Now()
	query := url.Values{}
	query.Set("period1", strconv.FormatInt(now.Add(-c.window).Unix(), 10))
	query.Set("period2", strconv.FormatInt(now.Unix(), 10))
	query.Set("interval", "1d")
	query.Set("events", "history")
	query.Set("includeAdjustedClose", "true")

	body, err := c.doWithRetry(ctx, "/"+url.PathEscape(symbol), query)
	if err != nil {
		c.logger.Debug("quote fetch failed", "symbol", symbol, "err", err)
		return model.Quote{}, fmt.Errorf("fetch %s: %w", symbol, ErrUnavailable)
	}

	price, err := parseAdjClose(body)
	if err != nil {
		c.logger.Debug("quote parse failed", "symbol", symbol, "err", err)
		return model.Quote{}, fmt.Errorf("parse %s: %w", symbol, ErrUnavailable)
	}

	return model.Quote{Symbol: symbol, UnitPrice: price, AsOf: now}, nil
}

// parseAdjClose extracts the adjusted close of the last CSV row.
func parseAdjClose(body []byte) (decimal.Decimal, error) {
	records, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	if err != nil {
		return decimal.Zero, fmt.Errorf("read csv: %w", err)
	}
	if len(records) < 2 {
		return decimal.Zero, fmt.Errorf("no data rows")
	}

	col := -1
	for i, name := range records[0] {
		if name == "Adj Close" {
			col = i
			break
		}
	}
	if col < 0 {
		return decimal.Zero, fmt.Errorf("no adj close column")
	}

	last := records[len(records)-1]
	if col >= len(last) {
		return decimal.Zero, fmt.Errorf("short data row")
	}

	price, err := decimal.NewFromString(last[col])
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %q: %w", last[col], err)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive price %s", price)
	}
	return price, nil
}

// doRequest performs a single GET against the feed.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "*/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}

	return body, nil
}

// doWithRetry performs a request with exponential backoff retry.
func (c *Client) doWithRetry(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Add jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + time.Duration(rand.Int64N(int64(backoff)))
			c.logger.Debug("retrying quote request",
				"attempt", attempt,
				"backoff", jitter,
				"path", path,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
		}

		body, err := c.doRequest(ctx, path, query)
		if err == nil {
			return body, nil
		}

		lastErr = err

		apiErr, ok := err.(*APIError)
		if !ok || !apiErr.IsRetryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

var _ Provider = (*Client)(nil)
