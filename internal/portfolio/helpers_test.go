package portfolio

import (
	"context"
	"errors"
	"testing"
	"time"

	"invest-tracker-go/internal/cache"
	"invest-tracker-go/internal/fx"
	"invest-tracker-go/internal/models"
	"invest-tracker-go/internal/store"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockQuoteSource is a mock implementation of marketdata.QuoteSource.
type MockQuoteSource struct {
	mock.Mock
}

func (m *MockQuoteSource) Quote(_ context.Context, symbol string) (*models.Quote, error) {
	args := m.Called(symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quote), args.Error(1)
}

// Quotes fans out to Quote so tests only script individual symbols. Failed
// lookups degrade to unsuccessful quotes, matching the production client.
func (m *MockQuoteSource) Quotes(ctx context.Context, symbols []string) map[string]*models.Quote {
	quotes := make(map[string]*models.Quote, len(symbols))
	for _, symbol := range symbols {
		q, err := m.Quote(ctx, symbol)
		if err != nil || q == nil {
			q = &models.Quote{Symbol: symbol}
		}
		quotes[symbol] = q
	}
	return quotes
}

// fakeRates is a scripted fx.RateSource for engine tests.
type fakeRates struct {
	tables map[string]map[string]float64
}

func (f fakeRates) RateTable(_ context.Context, base string) (map[string]float64, error) {
	if table, ok := f.tables[base]; ok {
		return table, nil
	}
	return nil, errors.New("no table for base")
}

// testEnv bundles a service with its collaborators for direct manipulation.
type testEnv struct {
	service *Service
	store   *store.Store
	quotes  *MockQuoteSource
}

// fixedNow is the deterministic clock used across engine tests.
var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

// setupTest creates a full test environment with a mock quote source, an
// in-memory store and scripted FX rates. Each test gets fresh instances.
func setupTest(t *testing.T, rates map[string]map[string]float64) testEnv {
	st, err := store.New(afero.NewMemMapFs(), "/data", zap.NewNop())
	assert.NoError(t, err)

	quotes := new(MockQuoteSource)
	fxp := fx.NewProvider(fakeRates{tables: rates}, cache.New(30*time.Minute), 30*time.Minute, zap.NewNop())
	svc := NewService(st, quotes, fxp, cache.New(30*time.Minute), 0.045, zap.NewNop(),
		WithClock(func() time.Time { return fixedNow }))

	return testEnv{service: svc, store: st, quotes: quotes}
}

// day returns a transaction date n days after a fixed base date.
func day(n int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

// seedPortfolio stores a portfolio record directly, bypassing the service.
func seedPortfolio(t *testing.T, env testEnv, id, currency string) {
	assert.NoError(t, env.store.SavePortfolio(models.Portfolio{
		ID:       id,
		Name:     id,
		Currency: currency,
	}))
}

// seedTx appends a ledger entry directly, bypassing service validation.
func seedTx(t *testing.T, env testEnv, id, portfolioID, action, ticker string, qty, price, fees float64, date time.Time, currency string) {
	assert.NoError(t, env.store.AppendTransaction(models.Transaction{
		ID:          id,
		PortfolioID: portfolioID,
		Action:      action,
		Ticker:      ticker,
		Quantity:    qty,
		TradePrice:  price,
		Fees:        fees,
		Date:        date,
		Currency:    currency,
	}))
}
