package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finledger-service/internal/application"
	"finledger-service/internal/domain"
	"finledger-service/internal/infrastructure/httpx"
)

const (
	alphaVantageQueryPath = "/query"
	tradingDayLayout      = "2006-01-02"
)

// AlphaVantageProvider adapts the Alpha Vantage GLOBAL_QUOTE endpoint. All
// numeric fields arrive as decimal strings; empty or missing values are a
// hard parse failure for that symbol.
type AlphaVantageProvider struct {
	BaseURL string
	APIKey  string
	Client  *httpx.Client
}

var _ application.QuoteProvider = (*AlphaVantageProvider)(nil)

type avGlobalQuoteResp struct {
	GlobalQuote avGlobalQuote `json:"Global Quote"`
	Note        string        `json:"Note,omitempty"`
	Information string        `json:"Information,omitempty"`
}

type avGlobalQuote struct {
	Symbol           string `json:"01. symbol"`
	Open             string `json:"02. open"`
	High             string `json:"03. high"`
	Low              string `json:"04. low"`
	Price            string `json:"05. price"`
	Volume           string `json:"06. volume"`
	LatestTradingDay string `json:"07. latest trading day"`
	PreviousClose    string `json:"08. previous close"`
	Change           string `json:"09. change"`
	ChangePercent    string `json:"10. change percent"`
}

func (p *AlphaVantageProvider) Get(ctx context.Context, symbol domain.Symbol) (domain.Quote, error) {
	if p.BaseURL == "" || p.APIKey == "" {
		return domain.Quote{}, errors.New("alphavantage: missing configuration")
	}
	if !domain.ValidateSymbol(symbol) {
		return domain.Quote{}, fmt.Errorf("%w: symbol %q", application.ErrInvalidInput, symbol)
	}

	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("alphavantage: invalid base url: %w", err)
	}
	u.Path = alphaVantageQueryPath
	q := u.Query()
	q.Set("function", "GLOBAL_QUOTE")
	q.Set("symbol", string(symbol))
	q.Set("apikey", p.APIKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("alphavantage: create request: %w", err)
	}

	client := p.Client
	if client == nil {
		client = &httpx.Client{}
	}
	var body avGlobalQuoteResp
	if err := client.DoJSON(ctx, req, &body); err != nil {
		return domain.Quote{}, fmt.Errorf("%w: alphavantage: %s: %v", application.ErrUpstreamUnavailable, symbol, err)
	}

	if body.Note != "" {
		return domain.Quote{}, fmt.Errorf("%w: alphavantage throttled: %s", application.ErrUpstreamUnavailable, body.Note)
	}
	if body.Information != "" {
		return domain.Quote{}, fmt.Errorf("%w: alphavantage: %s", application.ErrUpstreamUnavailable, body.Information)
	}
	if body.GlobalQuote.Symbol == "" {
		return domain.Quote{}, fmt.Errorf("%w: alphavantage: empty payload for %s", application.ErrDataIntegrity, symbol)
	}

	quote, err := mapGlobalQuote(body.GlobalQuote)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: alphavantage: %s: %v", application.ErrDataIntegrity, symbol, err)
	}
	return quote, nil
}

func mapGlobalQuote(g avGlobalQuote) (domain.Quote, error) {
	price, err := parseDecimal(g.Price)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("price: %w", err)
	}
	change, err := parseDecimal(g.Change)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("change: %w", err)
	}
	changePct, err := parseDecimal(strings.TrimSuffix(g.ChangePercent, "%"))
	if err != nil {
		return domain.Quote{}, fmt.Errorf("change percent: %w", err)
	}
	prevClose, err := parseDecimal(g.PreviousClose)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("previous close: %w", err)
	}
	open, err := parseDecimal(g.Open)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("open: %w", err)
	}
	high, err := parseDecimal(g.High)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("high: %w", err)
	}
	low, err := parseDecimal(g.Low)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("low: %w", err)
	}
	volume, err := strconv.ParseInt(strings.TrimSpace(g.Volume), 10, 64)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("volume: %w", err)
	}
	day, err := time.Parse(tradingDayLayout, strings.TrimSpace(g.LatestTradingDay))
	if err != nil {
		return domain.Quote{}, fmt.Errorf("latest trading day: %w", err)
	}

	q := domain.Quote{
		Symbol:           domain.NormalizeSymbol(g.Symbol),
		Price:            price,
		Change:           change,
		ChangePercent:    changePct,
		PreviousClose:    prevClose,
		Volume:           volume,
		Open:             open,
		High:             high,
		Low:              low,
		LatestTradingDay: day,
		FetchedAt:        time.Now().UTC(),
	}
	if err := q.Validate(); err != nil {
		return domain.Quote{}, err
	}
	return q, nil
}

func parseDecimal(v string) (decimal.Decimal, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return decimal.Decimal{}, errors.New("empty decimal value")
	}
	return decimal.NewFromString(v)
}
