package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pranav-m-r/Webquity/internal/account"
	"github.com/pranav-m-r/Webquity/internal/auth"
	"github.com/pranav-m-r/Webquity/internal/ledger"
	"github.com/pranav-m-r/Webquity/internal/portfolio"
	"github.com/pranav-m-r/Webquity/internal/quote"
)

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires the HTTP routes to the trading core.
type Server struct {
	mutator    *account.Service
	aggregator *portfolio.Aggregator
	auth       *auth.Service
	quotes     quote.Provider
	db         Pinger
	logger     *slog.Logger
}

// New creates a Server. db may be nil when no durable store is attached.
func New(mutator *account.Service, aggregator *portfolio.Aggregator, authsvc *auth.Service, quotes quote.Provider, db Pinger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		mutator:    mutator,
		aggregator: aggregator,
		auth:       authsvc,
		quotes:     quotes,
		db:         db,
		logger:     logger,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /password", s.requireAuth(s.handlePassword))

	mux.HandleFunc("GET /quote", s.requireAuth(s.handleQuote))
	mux.HandleFunc("POST /buy", s.requireAuth(s.handleBuy))
	mux.HandleFunc("POST /sell", s.requireAuth(s.handleSell))
	mux.HandleFunc("POST /deposit", s.requireAuth(s.handleDeposit))
	mux.HandleFunc("POST /withdraw", s.requireAuth(s.handleWithdraw))

	mux.HandleFunc("GET /portfolio", s.requireAuth(s.handlePortfolio))
	mux.HandleFunc("GET /history", s.requireAuth(s.handleHistory))
	mux.HandleFunc("DELETE /account", s.requireAuth(s.handleDeleteAccount))

	return mux
}

// authedHandler receives the account id resolved from the session token.
type authedHandler func(w http.ResponseWriter, r *http.Request, accountID uuid.UUID)

// requireAuth resolves the bearer token into an account id.
func (s *Server) requireAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeJSONError(w, http.StatusUnauthorized, "authorization header required")
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		accountID, err := s.auth.VerifyToken(token)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid session token")
			return
		}
		next(w, r, accountID)
	}
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps the core error taxonomy to status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var validationErr *ledger.ValidationError
	var storageErr *ledger.StorageError

	switch {
	case errors.As(err, &validationErr):
		writeJSONError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, quote.ErrUnavailable):
		writeJSONError(w, http.StatusBadGateway, "quote unavailable")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		writeJSONError(w, http.StatusUnprocessableEntity, "insufficient funds")
	case errors.Is(err, ledger.ErrInsufficientShares):
		writeJSONError(w, http.StatusUnprocessableEntity, "insufficient shares")
	case errors.Is(err, ledger.ErrAccountNotFound):
		writeJSONError(w, http.StatusNotFound, "account not found")
	case errors.Is(err, ledger.ErrUsernameTaken):
		writeJSONError(w, http.StatusConflict, "username already taken")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeJSONError(w, http.StatusUnauthorized, "invalid username or password")
	case errors.As(err, &storageErr):
		s.logger.Error("storage failure", "err", err)
		writeJSONError(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		s.logger.Error("unhandled error", "err", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

// handleHealth reports component statuses.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}{
		Status:     "healthy",
		Components: make(map[string]string),
	}

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["postgres"] = "disconnected"
		} else {
			health.Components["postgres"] = "connected"
		}
	}

	status := http.StatusOK
	if health.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

// cleanSymbol uppercases and validates raw symbol text.
func cleanSymbol(raw string) (string, bool) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if symbol == "" || len(symbol) > 12 {
		return "", false
	}
	for _, r := range symbol {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '.' && r != '-' {
			return "", false
		}
	}
	return symbol, true
}
