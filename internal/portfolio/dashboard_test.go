package portfolio

import (
	"context"
	"testing"

	"invest-tracker-go/internal/models"

	"github.com/stretchr/testify/assert"
)

// crossRates is the fixed 83 INR/USD world used by the currency tests.
var crossRates = map[string]map[string]float64{
	"USD": {"INR": 83.0},
	"INR": {"USD": 1.0 / 83.0},
}

func seedCurrencyScenario(t *testing.T, env testEnv) {
	// Portfolio A: native USD, cash 1000, one holding worth 2000 USD.
	seedPortfolio(t, env, "pf-a", "USD")
	assert.NoError(t, env.store.SetCash("pf-a", 1000, fixedNow))
	seedTx(t, env, "t1", "pf-a", models.ActionBuy, "AAPL", 10, 200, 0, day(0), "USD")
	env.quotes.On("Quote", "AAPL").Return(&models.Quote{
		Symbol: "AAPL", Price: 200, Sector: "Technology", Success: true,
	}, nil)

	// Portfolio B: native INR, cash 83,000, no holdings.
	seedPortfolio(t, env, "pf-b", "INR")
	assert.NoError(t, env.store.SetCash("pf-b", 83000, fixedNow))
}

func TestDashboard_CurrencyRoundTripUSD(t *testing.T) {
	env := setupTest(t, crossRates)
	seedCurrencyScenario(t, env)

	data, err := env.service.Dashboard(context.Background(), "USD")

	assert.NoError(t, err)
	assert.InDelta(t, 2000.0, data.TotalCash, 0.01) // 1000 + 83000/83
	assert.InDelta(t, 2000.0, data.TotalValue, 0.01)
	assert.InDelta(t, 2000.0, data.TotalInvested, 0.01)
}

func TestDashboard_CurrencyRoundTripINR(t *testing.T) {
	env := setupTest(t, crossRates)
	seedCurrencyScenario(t, env)

	data, err := env.service.Dashboard(context.Background(), "INR")

	assert.NoError(t, err)
	assert.InDelta(t, 166000.0, data.TotalCash, 0.01) // 83000 + 1000×83
}

func TestDashboard_PortfolioAllocations(t *testing.T) {
	env := setupTest(t, crossRates)
	seedCurrencyScenario(t, env)

	data, err := env.service.Dashboard(context.Background(), "USD")

	assert.NoError(t, err)
	assert.Len(t, data.Portfolios, 2)
	sum := 0.0
	for _, p := range data.Portfolios {
		sum += p.Allocation
	}
	assert.InDelta(t, 100.0, sum, 0.01)
	// pf-a holds 3000 of the 4000 grand total (2000 value + 1000 cash)
	assert.Equal(t, "pf-a", data.Portfolios[0].ID)
	assert.InDelta(t, 75.0, data.Portfolios[0].Allocation, 0.01)
}

func TestDashboard_SectorFallbackToUnknown(t *testing.T) {
	env := setupTest(t, nil)
	seedPortfolio(t, env, "pf-1", "USD")
	seedTx(t, env, "t1", "pf-1", models.ActionBuy, "AAPL", 10, 100, 0, day(0), "USD")
	seedTx(t, env, "t2", "pf-1", models.ActionBuy, "MYST", 10, 100, 0, day(1), "USD")
	env.quotes.On("Quote", "AAPL").Return(&models.Quote{Symbol: "AAPL", Price: 100, Sector: "Technology", Success: true}, nil)
	// No sector on this quote: it must land in the "Unknown" bucket
	env.quotes.On("Quote", "MYST").Return(&models.Quote{Symbol: "MYST", Price: 100, Success: true}, nil)

	data, err := env.service.Dashboard(context.Background(), "USD")

	assert.NoError(t, err)
	assert.Len(t, data.Sectors, 2)
	var sectorTotal float64
	seen := map[string]bool{}
	for _, sa := range data.Sectors {
		sectorTotal += sa.Value
		seen[sa.Sector] = true
	}
	assert.True(t, seen[models.SectorUnknown])
	// Totals reconcile: nothing was dropped
	assert.InDelta(t, data.TotalValue, sectorTotal, 0.01)
}

func TestDashboard_EmptyStateHasNoNaN(t *testing.T) {
	env := setupTest(t, nil)

	data, err := env.service.Dashboard(context.Background(), "USD")

	assert.NoError(t, err)
	assert.Zero(t, data.TotalValue)
	assert.Zero(t, data.TotalReturnPct)
	assert.Empty(t, data.Portfolios)
	assert.Empty(t, data.Sectors)
}

func TestDashboard_ResultIsCached(t *testing.T) {
	env := setupTest(t, crossRates)
	seedCurrencyScenario(t, env)

	first, err := env.service.Dashboard(context.Background(), "USD")
	assert.NoError(t, err)
	second, err := env.service.Dashboard(context.Background(), "USD")
	assert.NoError(t, err)

	// Same cached object: the generation timestamp did not change
	assert.Equal(t, first.GeneratedAt, second.GeneratedAt)
	// The quote source was only consulted for the first build
	env.quotes.AssertNumberOfCalls(t, "Quote", 1)
}
