package fx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"invest-tracker-go/internal/cache"
	"invest-tracker-go/internal/config"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// stubSource is a scripted RateSource for Provider tests.
type stubSource struct {
	tables map[string]map[string]float64
	err    error
	calls  int
}

func (s *stubSource) RateTable(_ context.Context, base string) (map[string]float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	table, ok := s.tables[base]
	if !ok {
		return nil, errors.New("unknown base")
	}
	return table, nil
}

func newTestProvider(source RateSource) *Provider {
	return NewProvider(source, cache.New(30*time.Minute), 30*time.Minute, zap.NewNop())
}

func TestRate_SameCurrencyIsIdentity(t *testing.T) {
	source := &stubSource{}
	p := newTestProvider(source)

	for _, ccy := range []string{"USD", "INR", "EUR", "GBP"} {
		assert.Equal(t, 1.0, p.Rate(ccy, ccy))
	}
	// Same-currency short-circuits before any lookup
	assert.Zero(t, source.calls)
}

func TestRate_FetchesFullTableOnceAndCaches(t *testing.T) {
	source := &stubSource{tables: map[string]map[string]float64{
		"USD": {"INR": 83.0, "EUR": 0.93},
	}}
	p := newTestProvider(source)

	assert.Equal(t, 83.0, p.Rate("USD", "INR"))
	assert.Equal(t, 0.93, p.Rate("USD", "EUR"))

	// Both targets came from the one cached table fetch
	assert.Equal(t, 1, source.calls)
}

func TestRate_FallsBackToStaticTableOnFailure(t *testing.T) {
	p := newTestProvider(&stubSource{err: errors.New("network down")})

	assert.Equal(t, 83.0, p.Rate("USD", "INR"))
	assert.Equal(t, 1.27, p.Rate("GBP", "USD"))
}

func TestRate_IdentityForUnknownPair(t *testing.T) {
	p := newTestProvider(&stubSource{err: errors.New("network down")})

	// Pair absent from the static table resolves to 1, never an error
	assert.Equal(t, 1.0, p.Rate("USD", "JPY"))
}

func TestConvert_RoundsToTwoDecimals(t *testing.T) {
	source := &stubSource{tables: map[string]map[string]float64{
		"USD": {"EUR": 0.9237},
	}}
	p := newTestProvider(source)

	assert.Equal(t, 92.37, p.Convert(100, "USD", "EUR"))
	assert.Equal(t, 100.0, p.Convert(100, "USD", "USD"))
}

func TestClient_RateTable(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/USD", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"base":"USD","rates":{"INR":83.12,"EUR":0.92,"GBP":0.79}}`)
		})
		server := httptest.NewServer(handler)
		defer server.Close()

		c := NewClient(&config.FX{BaseURL: server.URL, TimeoutSeconds: 5}, zap.NewNop())

		table, err := c.RateTable(context.Background(), "USD")

		assert.NoError(t, err)
		assert.Equal(t, 83.12, table["INR"])
		assert.Equal(t, 0.79, table["GBP"])
	})

	t.Run("UpstreamError", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		})
		server := httptest.NewServer(handler)
		defer server.Close()

		c := NewClient(&config.FX{BaseURL: server.URL, TimeoutSeconds: 5}, zap.NewNop())

		_, err := c.RateTable(context.Background(), "USD")
		assert.Error(t, err)
	})

	t.Run("EmptyTable", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"base":"USD","rates":{}}`)
		})
		server := httptest.NewServer(handler)
		defer server.Close()

		c := NewClient(&config.FX{BaseURL: server.URL, TimeoutSeconds: 5}, zap.NewNop())

		_, err := c.RateTable(context.Background(), "USD")
		assert.Error(t, err)
	})
}
