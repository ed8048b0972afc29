package quote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// mockFeedServer creates a test websocket price feed.
func mockFeedServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// waitForQuote polls until the stream serves symbol or the deadline hits.
func waitForQuote(t *testing.T, s *Stream, symbol string) decimal.Decimal {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := s.GetQuote(context.Background(), symbol)
		if err == nil {
			return got.UnitPrice
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no quote for %s before deadline", symbol)
	return decimal.Zero
}

func TestStream_SubscribeAndServe(t *testing.T) {
	subscribed := make(chan []string, 1)
	server := mockFeedServer(t, func(conn *websocket.Conn) {
		var sub struct {
			Type    string   `json:"type"`
			Symbols []string `json:"symbols"`
		}
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		subscribed <- sub.Symbols

		update, _ := json.Marshal(map[string]any{"symbol": "AAPL", "price": "102.75"})
		if err := conn.WriteMessage(websocket.TextMessage, update); err != nil {
			return
		}
		// Hold the connection open.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	stream := NewStream(StreamConfig{
		URL:     wsURL(server),
		Symbols: []string{"AAPL", "MSFT"},
		MaxAge:  time.Minute,
	}, nil)

	ctx := context.Background()
	if err := stream.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := stream.Stop(stopCtx); err != nil {
			t.Errorf("Stop failed: %v", err)
		}
	}()

	select {
	case symbols := <-subscribed:
		if len(symbols) != 2 || symbols[0] != "AAPL" {
			t.Errorf("subscribed symbols = %v, want [AAPL MSFT]", symbols)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no subscribe message received")
	}

	price := waitForQuote(t, stream, "AAPL")
	if !price.Equal(decimal.RequireFromString("102.75")) {
		t.Errorf("price = %s, want 102.75", price)
	}

	// A symbol the feed never sent stays unavailable.
	if _, err := stream.GetQuote(ctx, "MSFT"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("MSFT error = %v, want ErrUnavailable", err)
	}
}

func TestStream_StaleQuoteUnavailable(t *testing.T) {
	server := mockFeedServer(t, func(conn *websocket.Conn) {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		update, _ := json.Marshal(map[string]any{"symbol": "AAPL", "price": "50"})
		conn.WriteMessage(websocket.TextMessage, update)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	stream := NewStream(StreamConfig{
		URL:     wsURL(server),
		Symbols: []string{"AAPL"},
		MaxAge:  50 * time.Millisecond,
	}, nil)

	ctx := context.Background()
	if err := stream.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		stream.Stop(stopCtx)
	}()

	waitForQuote(t, stream, "AAPL")

	time.Sleep(100 * time.Millisecond)
	if _, err := stream.GetQuote(ctx, "AAPL"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("stale quote error = %v, want ErrUnavailable", err)
	}
}

func TestStream_IgnoresBadMessages(t *testing.T) {
	server := mockFeedServer(t, func(conn *websocket.Conn) {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"symbol":"","price":"5"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"symbol":"AAPL","price":"-5"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"symbol":"AAPL","price":"42"}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	stream := NewStream(StreamConfig{
		URL:     wsURL(server),
		Symbols: []string{"AAPL"},
		MaxAge:  time.Minute,
	}, nil)

	if err := stream.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		stream.Stop(stopCtx)
	}()

	price := waitForQuote(t, stream, "AAPL")
	if !price.Equal(decimal.RequireFromString("42")) {
		t.Errorf("price = %s, want 42", price)
	}
}
