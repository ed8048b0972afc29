package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pranav-m-r/Webquity/internal/account"
	"github.com/pranav-m-r/Webquity/internal/model"
)

// accountView is the account shape returned to clients.
type accountView struct {
	ID            uuid.UUID       `json:"id"`
	Username      string          `json:"username"`
	Cash          decimal.Decimal `json:"cash"`
	DepositTotal  decimal.Decimal `json:"deposit_total"`
	WithdrawTotal decimal.Decimal `json:"withdraw_total"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toAccountView(a model.Account) accountView {
	return accountView{
		ID:            a.ID,
		Username:      a.Username,
		Cash:          a.Cash,
		DepositTotal:  a.DepositTotal,
		WithdrawTotal: a.WithdrawTotal,
		CreatedAt:     a.CreatedAt,
	}
}

// entryView is the ledger entry shape returned to clients.
type entryView struct {
	ID        uuid.UUID       `json:"id"`
	Seq       int64           `json:"seq"`
	Kind      model.EntryKind `json:"kind"`
	Symbol    string          `json:"symbol,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

func toEntryView(e model.LedgerEntry) entryView {
	return entryView{
		ID:        e.ID,
		Seq:       e.Seq,
		Kind:      e.Kind,
		Symbol:    e.Symbol,
		UnitPrice: e.UnitPrice,
		Quantity:  e.Quantity,
		Total:     e.Total,
		CreatedAt: e.CreatedAt,
	}
}

type operationResponse struct {
	Account accountView `json:"account"`
	Entry   entryView   `json:"entry"`
}

func toOperationResponse(res account.Result) operationResponse {
	return operationResponse{
		Account: toAccountView(res.Account),
		Entry:   toEntryView(res.Entry),
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	acc, err := s.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountView(acc))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	acc, token, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":   token,
		"account": toAccountView(acc),
	})
}

func (s *Server) handlePassword(w http.ResponseWriter, r *http.Request, accountID uuid.UUID) {
	var req struct {
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.auth.ChangePassword(r.Context(), accountID, req.NewPassword); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request, accountID uuid.UUID) {
	symbol, ok := cleanSymbol(r.URL.Query().Get("symbol"))
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "invalid symbol")
		return
	}

	q, err := s.quotes.GetQuote(r.Context(), symbol)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol": q.Symbol,
		"price":  q.UnitPrice,
		"as_of":  q.AsOf,
	})
}

// tradeRequest is the body of /buy and /sell.
type tradeRequest struct {
	Symbol string `json:"symbol"`
	Shares int64  `json:"shares"`
}

func (s *Server) decodeTrade(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return "", 0, false
	}
	symbol, ok := cleanSymbol(req.Symbol)
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "invalid symbol")
		return "", 0, false
	}
	if req.Shares <= 0 {
		writeJSONError(w, http.StatusBadRequest, "shares must be a positive integer")
		return "", 0, false
	}
	return symbol, req.Shares, true
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request, accountID uuid.UUID) {
	symbol, shares, ok := s.decodeTrade(w, r)
	if !ok {
		return
	}

	res, err := s.mutator.Buy(r.Context(), accountID, symbol, shares)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOperationResponse(res))
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request, accountID uuid.UUID) {
	symbol, shares, ok := s.decodeTrade(w, r)
	if !ok {
		return
	}

	res, err := s.mutator.Sell(r.Context(), accountID, symbol, shares)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOperationResponse(res))
}

// cashRequest is the body of /deposit and /withdraw.
type cashRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) decodeCash(w http.ResponseWriter, r *http.Request) (decimal.Decimal, bool) {
	var req cashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return decimal.Zero, false
	}
	if !req.Amount.IsPositive() {
		writeJSONError(w, http.StatusBadRequest, "amount must be positive")
		return decimal.Zero, false
	}
	return req.Amount, true
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request, accountID uuid.UUID) {
	amount, ok := s.decodeCash(w, r)
	if !ok {
		return
	}

	res, err := s.mutator.Deposit(r.Context(), accountID, amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOperationResponse(res))
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request, accountID uuid.UUID) {
	amount, ok := s.decodeCash(w, r)
	if !ok {
		return
	}

	res, err := s.mutator.Withdraw(r.Context(), accountID, amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOperationResponse(res))
}

// holdingView is one marked-to-market position row.
type holdingView struct {
	Symbol           string          `json:"symbol"`
	Shares           int64           `json:"shares"`
	AvgCost          decimal.Decimal `json:"avg_cost"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	CurrentValue     decimal.Decimal `json:"current_value"`
	UnrealizedGain   decimal.Decimal `json:"unrealized_gain"`
	PriceUnavailable bool            `json:"price_unavailable,omitempty"`
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request, accountID uuid.UUID) {
	summary, err := s.aggregator.ComputeSummary(r.Context(), accountID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	holdings := make([]holdingView, 0, len(summary.Holdings))
	for _, h := range summary.Holdings {
		holdings = append(holdings, holdingView{
			Symbol:           h.Symbol,
			Shares:           h.Shares,
			AvgCost:          h.AvgCost,
			CurrentPrice:     h.CurrentPrice,
			CurrentValue:     h.CurrentValue,
			UnrealizedGain:   h.UnrealizedGain,
			PriceUnavailable: h.PriceUnavailable,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"account":      toAccountView(summary.Account),
		"holdings":     holdings,
		"market_value": summary.MarketValue,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, accountID uuid.UUID) {
	entries, err := s.aggregator.ComputeHistory(r.Context(), accountID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	views := make([]entryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, toEntryView(e))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request, accountID uuid.UUID) {
	if err := s.mutator.DeleteAccount(r.Context(), accountID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
