package provider_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finledger-service/internal/application"
	"finledger-service/internal/domain"
	"finledger-service/internal/infrastructure/httpx"
	"finledger-service/internal/infrastructure/provider"
)

type roundTripFunc func(*http.Request) *http.Response

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r), nil }

func httpClient(resBody string, code int) *httpx.Client {
	return &httpx.Client{HTTP: &http.Client{
		Timeout: 2 * time.Second,
		Transport: roundTripFunc(func(r *http.Request) *http.Response {
			return &http.Response{
				StatusCode: code,
				Body:       io.NopCloser(strings.NewReader(resBody)),
				Header:     make(http.Header),
				Request:    r,
			}
		}),
	}}
}

const sampleOK = `{
  "Global Quote": {
    "01. symbol": "AAPL",
    "02. open": "188.90",
    "03. high": "190.10",
    "04. low": "188.20",
    "05. price": "189.95",
    "06. volume": "52164500",
    "07. latest trading day": "2025-06-02",
    "08. previous close": "188.75",
    "09. change": "1.20",
    "10. change percent": "0.6358%"
  }
}`

func newProvider(body string, code int) *provider.AlphaVantageProvider {
	return &provider.AlphaVantageProvider{
		BaseURL: "https://www.alphavantage.co",
		APIKey:  "test",
		Client:  httpClient(body, code),
	}
}

func TestGet_HappyPath(t *testing.T) {
	p := newProvider(sampleOK, 200)
	q, err := p.Get(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, domain.Symbol("AAPL"), q.Symbol)
	require.Equal(t, "189.95", q.Price.String())
	require.Equal(t, "1.2", q.Change.String())
	require.Equal(t, "0.6358", q.ChangePercent.String())
	require.EqualValues(t, 52164500, q.Volume)
	require.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), q.LatestTradingDay)
}

func TestGet_EmptyPayload(t *testing.T) {
	p := newProvider(`{"Global Quote": {}}`, 200)
	_, err := p.Get(context.Background(), "NOPE")
	require.ErrorIs(t, err, application.ErrDataIntegrity)
}

func TestGet_RateLimitNote(t *testing.T) {
	body := `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`
	p := newProvider(body, 200)
	_, err := p.Get(context.Background(), "AAPL")
	require.ErrorIs(t, err, application.ErrUpstreamUnavailable)
}

func TestGet_UnparseableChangePercent(t *testing.T) {
	body := strings.Replace(sampleOK, `"0.6358%"`, `"n/a"`, 1)
	p := newProvider(body, 200)
	_, err := p.Get(context.Background(), "AAPL")
	require.ErrorIs(t, err, application.ErrDataIntegrity)
}

func TestGet_EmptyNumericField(t *testing.T) {
	body := strings.Replace(sampleOK, `"189.95"`, `""`, 1)
	p := newProvider(body, 200)
	_, err := p.Get(context.Background(), "AAPL")
	require.ErrorIs(t, err, application.ErrDataIntegrity)
}

func TestGet_ZeroVolumeRejected(t *testing.T) {
	body := strings.Replace(sampleOK, `"52164500"`, `"0"`, 1)
	p := newProvider(body, 200)
	_, err := p.Get(context.Background(), "AAPL")
	require.ErrorIs(t, err, application.ErrDataIntegrity)
}

func TestGet_ServerError(t *testing.T) {
	p := newProvider("oops", 503)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err := p.Get(ctx, "AAPL")
	require.ErrorIs(t, err, application.ErrUpstreamUnavailable)
}

func TestGet_InvalidSymbolBeforeIO(t *testing.T) {
	p := newProvider(sampleOK, 200)
	_, err := p.Get(context.Background(), "not a symbol")
	require.ErrorIs(t, err, application.ErrInvalidInput)
}
