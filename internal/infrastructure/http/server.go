package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finledger-service/internal/application"
	"finledger-service/internal/domain"
)

const defaultHistoryWindow = 30 * 24 * time.Hour
const defaultHistoryLimit = 50

type Server struct {
	cache     *application.QuoteCache
	valuation *application.ValuationService
	ledger    *application.LedgerService
	recorder  application.TransactionRecorder
	idem      application.IdempotencyStore

	ping func(ctx context.Context) error
}

func NewServer(
	cache *application.QuoteCache,
	valuation *application.ValuationService,
	ledger *application.LedgerService,
	recorder application.TransactionRecorder,
	idem application.IdempotencyStore,
) *Server {
	if idem == nil {
		idem = application.NoopIdempotency{}
	}
	return &Server{cache: cache, valuation: valuation, ledger: ledger, recorder: recorder, idem: idem}
}

func (s *Server) SetReadyCheck(f func(ctx context.Context) error) { s.ping = f }

type quoteDTO struct {
	Symbol           string          `json:"symbol"`
	Price            decimal.Decimal `json:"price"`
	Change           decimal.Decimal `json:"change"`
	ChangePercent    decimal.Decimal `json:"change_percent"`
	PreviousClose    decimal.Decimal `json:"previous_close"`
	Open             decimal.Decimal `json:"open"`
	High             decimal.Decimal `json:"high"`
	Low              decimal.Decimal `json:"low"`
	Volume           int64           `json:"volume"`
	LatestTradingDay string          `json:"latest_trading_day"`
}

func toQuoteDTO(q domain.Quote) quoteDTO {
	return quoteDTO{
		Symbol:           string(q.Symbol),
		Price:            q.Price,
		Change:           q.Change,
		ChangePercent:    q.ChangePercent,
		PreviousClose:    q.PreviousClose,
		Open:             q.Open,
		High:             q.High,
		Low:              q.Low,
		Volume:           q.Volume,
		LatestTradingDay: q.LatestTradingDay.Format("2006-01-02"),
	}
}

// GetQuotes serves GET /quotes?symbols=AAPL,MSFT. Symbols that could not be
// priced are listed separately rather than failing the request.
func (s *Server) GetQuotes(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("symbols")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "symbols query parameter is required")
		return
	}
	var symbols []domain.Symbol
	for _, part := range strings.Split(raw, ",") {
		sym := domain.NormalizeSymbol(part)
		if sym == "" {
			continue
		}
		symbols = append(symbols, sym)
	}
	if len(symbols) == 0 {
		writeError(w, http.StatusBadRequest, "no valid symbols")
		return
	}

	quotes := s.cache.GetOrFetch(r.Context(), symbols)
	resp := struct {
		Quotes  []quoteDTO `json:"quotes"`
		Missing []string   `json:"missing,omitempty"`
	}{Quotes: []quoteDTO{}}
	for _, sym := range symbols {
		if q, ok := quotes[sym]; ok {
			resp.Quotes = append(resp.Quotes, toQuoteDTO(q))
		} else {
			resp.Missing = append(resp.Missing, string(sym))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type positionDTO struct {
	Symbol        string          `json:"symbol"`
	Shares        decimal.Decimal `json:"shares"`
	Price         decimal.Decimal `json:"price"`
	Value         decimal.Decimal `json:"value"`
	DailyChange   decimal.Decimal `json:"daily_change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Priced        bool            `json:"priced"`
}

func (s *Server) GetValuation(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	v, err := s.valuation.Valuate(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := struct {
		Positions          []positionDTO   `json:"positions"`
		TotalValue         decimal.Decimal `json:"total_value"`
		DailyChange        decimal.Decimal `json:"daily_change"`
		DailyChangePercent decimal.Decimal `json:"daily_change_percent"`
		Unpriced           []string        `json:"unpriced,omitempty"`
	}{
		Positions:          []positionDTO{},
		TotalValue:         v.TotalValue,
		DailyChange:        v.DailyChange,
		DailyChangePercent: v.DailyChangePercent,
	}
	for _, p := range v.Positions {
		resp.Positions = append(resp.Positions, positionDTO{
			Symbol:        string(p.Symbol),
			Shares:        p.Shares,
			Price:         p.Price,
			Value:         p.Value,
			DailyChange:   p.DailyChange,
			ChangePercent: p.ChangePercent,
			Priced:        p.Priced,
		})
	}
	for _, sym := range v.Unpriced {
		resp.Unpriced = append(resp.Unpriced, string(sym))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) AddPosition(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var body struct {
		Symbol string          `json:"symbol"`
		Shares decimal.Decimal `json:"shares"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sym := domain.NormalizeSymbol(body.Symbol)
	if err := s.valuation.AddPosition(r.Context(), userID, sym, body.Shares); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	sym := domain.NormalizeSymbol(chi.URLParam(r, "symbol"))
	var body struct {
		Shares decimal.Decimal `json:"shares"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.valuation.UpdateShares(r.Context(), userID, sym, body.Shares); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) RemovePosition(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	sym := domain.NormalizeSymbol(chi.URLParam(r, "symbol"))
	if err := s.valuation.RemovePosition(r.Context(), userID, sym); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type balanceDTO struct {
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	UpdatedAt time.Time       `json:"updated_at"`
	Version   int64           `json:"version"`
}

func toBalanceDTO(b domain.Balance) balanceDTO {
	return balanceDTO{UserID: b.UserID, Amount: b.Amount, UpdatedAt: b.UpdatedAt, Version: b.Version}
}

func (s *Server) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	b, err := s.ledger.GetOrCreate(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(b))
}

func (s *Server) SetBalance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var body struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	b, err := s.ledger.SetAbsolute(r.Context(), userID, body.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(b))
}

// ApplyDelta serves POST /balances/{userID}/deltas. An X-Idempotency-Key
// header deduplicates retried submissions: the second request with the same
// key gets a 409 without touching the balance.
func (s *Server) ApplyDelta(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var body struct {
		Amount      decimal.Decimal `json:"amount"`
		Kind        string          `json:"kind"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	dir, ok := domain.DirectionForKind(body.Kind)
	if !ok {
		writeError(w, http.StatusBadRequest, "kind must be income or expense")
		return
	}

	idemKey := r.Header.Get("X-Idempotency-Key")
	if idemKey != "" {
		reserved, err := s.idem.TryReserve(r.Context(), idemKey)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "idempotency check failed")
			return
		}
		if !reserved {
			writeError(w, http.StatusConflict, "duplicate request")
			return
		}
	}
	// A reservation only sticks when the delta takes effect; otherwise the
	// caller must be able to retry with the same key.
	release := func() {
		if idemKey != "" {
			_ = s.idem.Release(r.Context(), idemKey)
		}
	}

	txID := uuid.NewString()
	b, err := s.ledger.ApplyDelta(r.Context(), application.DeltaRequest{
		UserID:        userID,
		Amount:        body.Amount,
		Direction:     dir,
		TransactionID: txID,
	})
	if err != nil {
		release()
		writeDomainError(w, err)
		return
	}

	entry := domain.LedgerEntry{
		ID:            txID,
		UserID:        userID,
		Kind:          body.Kind,
		Category:      body.Category,
		Amount:        body.Amount,
		Description:   body.Description,
		RecordedAt:    time.Now().UTC(),
		ReferenceType: body.Kind,
		ReferenceID:   txID,
	}
	if err := s.recorder.Append(r.Context(), entry); err != nil {
		// The balance write landed; surfacing the append failure lets the
		// caller reconcile instead of silently losing the audit line.
		release()
		writeError(w, http.StatusInternalServerError, "balance updated but ledger append failed")
		return
	}

	resp := struct {
		Balance       balanceDTO `json:"balance"`
		TransactionID string     `json:"transaction_id"`
	}{Balance: toBalanceDTO(b), TransactionID: txID}
	writeJSON(w, http.StatusOK, resp)
}

type entryDTO struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Category    string          `json:"category,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	RecordedAt  time.Time       `json:"recorded_at"`
}

func (s *Server) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}
	since := time.Now().UTC().Add(-defaultHistoryWindow)
	entries, err := s.recorder.ListRecent(r.Context(), userID, since, defaultHistoryLimit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := struct {
		Transactions []entryDTO `json:"transactions"`
	}{Transactions: []entryDTO{}}
	for _, e := range entries {
		resp.Transactions = append(resp.Transactions, entryDTO{
			ID:          e.ID,
			Kind:        e.Kind,
			Category:    e.Category,
			Amount:      e.Amount,
			Description: e.Description,
			RecordedAt:  e.RecordedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorEnvelope{Code: status, Message: msg})
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, application.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, application.ErrNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, application.ErrConcurrencyConflict), errors.Is(err, application.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, application.ErrUpstreamUnavailable), errors.Is(err, application.ErrDataIntegrity):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
