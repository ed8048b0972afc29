package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pranav-m-r/Webquity/internal/account"
	"github.com/pranav-m-r/Webquity/internal/auth"
	"github.com/pranav-m-r/Webquity/internal/ledger"
	"github.com/pranav-m-r/Webquity/internal/model"
	"github.com/pranav-m-r/Webquity/internal/portfolio"
	"github.com/pranav-m-r/Webquity/internal/quote"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store := ledger.NewMemoryStore()
	quotes := quote.ProviderFunc(func(ctx context.Context, symbol string) (model.Quote, error) {
		if symbol != "AAPL" {
			return model.Quote{}, quote.ErrUnavailable
		}
		return model.Quote{Symbol: "AAPL", UnitPrice: decimal.RequireFromString("50"), AsOf: time.Now()}, nil
	})

	authSvc := auth.NewService(store, []byte("test-secret"), time.Hour, nil)
	mutator := account.NewService(store, quotes, nil, nil)
	aggregator := portfolio.NewAggregator(store, quotes, 0, nil)

	return New(mutator, aggregator, authSvc, quotes, nil, nil)
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// registerAndLogin creates an account and returns a session token.
func registerAndLogin(t *testing.T, handler http.Handler) string {
	t.Helper()

	rec := doJSON(t, handler, http.MethodPost, "/register", "", map[string]string{
		"username": "testuser01",
		"password": "passw0rd!",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body = %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, handler, http.MethodPost, "/login", "", map[string]string{
		"username": "testuser01",
		"password": "passw0rd!",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("empty token")
	}
	return resp.Token
}

func TestRegisterLoginFlow(t *testing.T) {
	handler := newTestServer(t).Handler()
	registerAndLogin(t, handler)

	// Duplicate registration conflicts.
	rec := doJSON(t, handler, http.MethodPost, "/register", "", map[string]string{
		"username": "testuser01",
		"password": "0therpass!",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", rec.Code)
	}

	// Wrong password rejected.
	rec = doJSON(t, handler, http.MethodPost, "/login", "", map[string]string{
		"username": "testuser01",
		"password": "wrongpass1!",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", rec.Code)
	}
}

func TestRegister_WeakPassword(t *testing.T) {
	handler := newTestServer(t).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/register", "", map[string]string{
		"username": "testuser01",
		"password": "weak",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	handler := newTestServer(t).Handler()

	rec := doJSON(t, handler, http.MethodGet, "/portfolio", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/portfolio", "not.a.token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", rec.Code)
	}
}

func TestTradeFlow(t *testing.T) {
	handler := newTestServer(t).Handler()
	token := registerAndLogin(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/deposit", token, map[string]any{"amount": "1000"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("deposit status = %d, body = %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, handler, http.MethodPost, "/buy", token, map[string]any{
		"symbol": "aapl", "shares": 10,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("buy status = %d, body = %s", rec.Code, rec.Body)
	}

	var op struct {
		Account struct {
			Cash decimal.Decimal `json:"cash"`
		} `json:"account"`
		Entry struct {
			Kind     model.EntryKind `json:"kind"`
			Symbol   string          `json:"symbol"`
			Quantity int64           `json:"quantity"`
		} `json:"entry"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &op); err != nil {
		t.Fatalf("decode buy response: %v", err)
	}
	if !op.Account.Cash.Equal(decimal.RequireFromString("500")) {
		t.Errorf("cash = %s, want 500", op.Account.Cash)
	}
	// Symbol text is normalized before hitting the core.
	if op.Entry.Symbol != "AAPL" {
		t.Errorf("symbol = %q, want AAPL", op.Entry.Symbol)
	}
	if op.Entry.Kind != model.KindBuy || op.Entry.Quantity != 10 {
		t.Errorf("entry = %+v, want buy of 10", op.Entry)
	}

	rec = doJSON(t, handler, http.MethodPost, "/sell", token, map[string]any{
		"symbol": "AAPL", "shares": 4,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("sell status = %d, body = %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, handler, http.MethodGet, "/portfolio", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("portfolio status = %d, body = %s", rec.Code, rec.Body)
	}
	var pf struct {
		Holdings []struct {
			Symbol string `json:"symbol"`
			Shares int64  `json:"shares"`
		} `json:"holdings"`
		MarketValue decimal.Decimal `json:"market_value"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &pf); err != nil {
		t.Fatalf("decode portfolio: %v", err)
	}
	if len(pf.Holdings) != 1 || pf.Holdings[0].Symbol != "AAPL" || pf.Holdings[0].Shares != 6 {
		t.Errorf("holdings = %+v, want 6 AAPL", pf.Holdings)
	}
	if !pf.MarketValue.Equal(decimal.RequireFromString("300")) {
		t.Errorf("market_value = %s, want 300", pf.MarketValue)
	}

	rec = doJSON(t, handler, http.MethodGet, "/history", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d, body = %s", rec.Code, rec.Body)
	}
	var history []struct {
		Seq  int64           `json:"seq"`
		Kind model.EntryKind `json:"kind"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("len(history) = %d, want 3", len(history))
	}
	if history[0].Seq != 3 || history[0].Kind != model.KindSell {
		t.Errorf("history[0] = %+v, want seq 3 sell", history[0])
	}
}

func TestBuy_InsufficientFunds(t *testing.T) {
	handler := newTestServer(t).Handler()
	token := registerAndLogin(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/deposit", token, map[string]any{"amount": "100"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("deposit status = %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/buy", token, map[string]any{
		"symbol": "AAPL", "shares": 3,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422, body = %s", rec.Code, rec.Body)
	}
}

func TestSell_InsufficientShares(t *testing.T) {
	handler := newTestServer(t).Handler()
	token := registerAndLogin(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/sell", token, map[string]any{
		"symbol": "AAPL", "shares": 1,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422, body = %s", rec.Code, rec.Body)
	}
}

func TestQuoteRoute(t *testing.T) {
	handler := newTestServer(t).Handler()
	token := registerAndLogin(t, handler)

	rec := doJSON(t, handler, http.MethodGet, "/quote?symbol=aapl", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var q struct {
		Symbol string          `json:"symbol"`
		Price  decimal.Decimal `json:"price"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &q); err != nil {
		t.Fatalf("decode quote: %v", err)
	}
	if q.Symbol != "AAPL" || !q.Price.Equal(decimal.RequireFromString("50")) {
		t.Errorf("quote = %+v, want AAPL at 50", q)
	}

	rec = doJSON(t, handler, http.MethodGet, "/quote?symbol=bad%20symbol", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid symbol status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/quote?symbol=NOSUCH", token, nil)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("unknown symbol status = %d, want 502", rec.Code)
	}
}

func TestWithdraw_Overdraw(t *testing.T) {
	handler := newTestServer(t).Handler()
	token := registerAndLogin(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/withdraw", token, map[string]any{"amount": "1"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422, body = %s", rec.Code, rec.Body)
	}
}

func TestInvalidBodies(t *testing.T) {
	handler := newTestServer(t).Handler()
	token := registerAndLogin(t, handler)

	tests := []struct {
		name string
		path string
		body any
	}{
		{"buy zero shares", "/buy", map[string]any{"symbol": "AAPL", "shares": 0}},
		{"buy empty symbol", "/buy", map[string]any{"symbol": "", "shares": 1}},
		{"deposit negative", "/deposit", map[string]any{"amount": "-5"}},
		{"withdraw zero", "/withdraw", map[string]any{"amount": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, handler, http.MethodPost, tt.path, token, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400, body = %s", rec.Code, rec.Body)
			}
		})
	}
}

func TestChangePassword(t *testing.T) {
	handler := newTestServer(t).Handler()
	token := registerAndLogin(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/password", token, map[string]string{
		"new_password": "newpassw0rd!",
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204, body = %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, handler, http.MethodPost, "/login", "", map[string]string{
		"username": "testuser01",
		"password": "newpassw0rd!",
	})
	if rec.Code != http.StatusOK {
		t.Errorf("login with new password status = %d, want 200", rec.Code)
	}
}

func TestDeleteAccountRoute(t *testing.T) {
	handler := newTestServer(t).Handler()
	token := registerAndLogin(t, handler)

	rec := doJSON(t, handler, http.MethodDelete, "/account", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204, body = %s", rec.Code, rec.Body)
	}

	// The token now resolves to a missing account.
	rec = doJSON(t, handler, http.MethodGet, "/portfolio", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404, body = %s", rec.Code, rec.Body)
	}
}

func TestHealth(t *testing.T) {
	handler := newTestServer(t).Handler()

	rec := doJSON(t, handler, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var health struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("status = %q, want healthy", health.Status)
	}
}

func TestCleanSymbol(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"aapl", "AAPL", true},
		{" msft ", "MSFT", true},
		{"BRK.B", "BRK.B", true},
		{"BF-B", "BF-B", true},
		{"", "", false},
		{"   ", "", false},
		{"way-too-long-symbol", "", false},
		{"bad symbol", "", false},
		{"aapl;drop", "", false},
	}

	for _, tt := range tests {
		got, ok := cleanSymbol(tt.raw)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("cleanSymbol(%q) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}
