package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/pranav-m-r/Webquity/internal/model"
)

// StreamConfig holds streaming feed settings.
type StreamConfig struct {
	URL                string        // Websocket endpoint
	Symbols            []string      // Symbols to subscribe to
	MaxAge             time.Duration // Quotes older than this are unavailable
	ReconnectBaseDelay time.Duration // First reconnect delay
	ReconnectMaxDelay  time.Duration // Reconnect delay cap
	HandshakeTimeout   time.Duration // Dial timeout
}

// DefaultStreamConfig returns sensible defaults for everything but URL
// and Symbols.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		MaxAge:             2 * time.Minute,
		ReconnectBaseDelay: time.Second,
		ReconnectMaxDelay:  60 * time.Second,
		HandshakeTimeout:   10 * time.Second,
	}
}

// Stream maintains a websocket subscription to a price feed and serves
// Provider reads from the latest observed quote per symbol. A quote older
// than MaxAge, or a symbol never seen on the feed, is unavailable.
type Stream struct {
	cfg    StreamConfig
	logger *slog.Logger

	mu     sync.RWMutex
	latest map[string]model.Quote

	connMu sync.Mutex
	conn   *websocket.Conn

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// streamMsg is one price update from the feed.
type streamMsg struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// NewStream creates a streaming quote source.
func NewStream(cfg StreamConfig, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = DefaultStreamConfig().MaxAge
	}
	if cfg.ReconnectBaseDelay == 0 {
		cfg.ReconnectBaseDelay = DefaultStreamConfig().ReconnectBaseDelay
	}
	if cfg.ReconnectMaxDelay == 0 {
		cfg.ReconnectMaxDelay = DefaultStreamConfig().ReconnectMaxDelay
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = DefaultStreamConfig().HandshakeTimeout
	}
	return &Stream{
		cfg:    cfg,
		logger: logger,
		latest: make(map[string]model.Quote),
	}
}

// Start connects to the feed and begins consuming updates. Reconnects
// with exponential backoff until the context is cancelled.
func (s *Stream) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("quote stream started",
		"url", s.cfg.URL,
		"symbols", len(s.cfg.Symbols),
	)
	return nil
}

// Stop closes the connection and waits for the consumer to drain.
func (s *Stream) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	s.closeConn()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("quote stream stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetQuote implements Provider from the latest-quote table.
func (s *Stream) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	s.mu.RLock()
	q, ok := s.latest[symbol]
	s.mu.RUnlock()

	if !ok {
		return model.Quote{}, fmt.Errorf("symbol %s not on feed: %w", symbol, ErrUnavailable)
	}
	if time.Since(q.AsOf) > s.cfg.MaxAge {
		return model.Quote{}, fmt.Errorf("quote for %s stale: %w", symbol, ErrUnavailable)
	}
	return q, nil
}

// run is the connect/consume/reconnect loop.
func (s *Stream) run() {
	defer s.wg.Done()

	delay := s.cfg.ReconnectBaseDelay
	for {
		if s.ctx.Err() != nil {
			return
		}

		if err := s.connectAndConsume(); err != nil {
			s.logger.Warn("quote stream disconnected", "err", err)
		}

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(delay):
		}

		delay *= 2
		if delay > s.cfg.ReconnectMaxDelay {
			delay = s.cfg.ReconnectMaxDelay
		}
	}
}

// connectAndConsume dials the feed, subscribes, and reads updates until
// the connection breaks or the stream is stopped.
func (s *Stream) connectAndConsume() error {
	dialer := websocket.Dialer{
		HandshakeTimeout: s.cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(s.ctx, s.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
	defer s.closeConn()

	if len(s.cfg.Symbols) > 0 {
		sub := map[string]any{
			"type":    "subscribe",
			"symbols": s.cfg.Symbols,
		}
		if err := conn.WriteJSON(sub); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	}

	s.logger.Debug("quote stream connected", "url", s.cfg.URL)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if s.ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		var msg streamMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("unparseable feed message", "err", err)
			continue
		}
		if msg.Symbol == "" || !msg.Price.IsPositive() {
			continue
		}

		s.mu.Lock()
		s.latest[msg.Symbol] = model.Quote{
			Symbol:    msg.Symbol,
			UnitPrice: msg.Price,
			AsOf:      time.Now(),
		}
		s.mu.Unlock()
	}
}

func (s *Stream) closeConn() {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

var _ Provider = (*Stream)(nil)
