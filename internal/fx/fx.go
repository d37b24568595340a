// Package fx resolves currency conversion rates. Lookups are cache-first,
// fetch the full rate table for a base currency in one call on a miss, and
// degrade to a bundled static table when the upstream provider is
// unavailable. Rate never fails: conversions must always return a number so
// that P&L totals remain computable without FX data.
package fx

import (
	"context"
	"math"
	"strings"
	"time"

	"invest-tracker-go/internal/cache"

	"go.uber.org/zap"
)

// RateSource fetches the full conversion table for one base currency.
type RateSource interface {
	RateTable(ctx context.Context, base string) (map[string]float64, error)
}

// staticRates are approximate fallback rates, frozen at build time. The
// table is not invertible: A→B and B→A are independently specified numbers.
var staticRates = map[string]map[string]float64{
	"USD": {"INR": 83.0, "EUR": 0.92, "GBP": 0.79},
	"INR": {"USD": 0.012, "EUR": 0.011, "GBP": 0.0095},
	"EUR": {"USD": 1.09, "INR": 90.5, "GBP": 0.86},
	"GBP": {"USD": 1.27, "INR": 105.0, "EUR": 1.16},
}

// Provider answers rate and conversion queries for the rest of the system.
type Provider struct {
	source RateSource
	cache  *cache.Cache
	ttl    time.Duration
	log    *zap.Logger
}

// NewProvider creates a Provider that caches fetched rate tables for ttl.
func NewProvider(source RateSource, c *cache.Cache, ttl time.Duration, log *zap.Logger) *Provider {
	return &Provider{source: source, cache: c, ttl: ttl, log: log}
}

// Rate returns the multiplicative rate converting 1 unit of from into to.
// It never returns an error: on upstream failure it falls back to the static
// table, and on a missing pair to the identity rate 1.
func (p *Provider) Rate(from, to string) float64 {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == to || from == "" || to == "" {
		return 1
	}

	key := cache.Key("fx", from)
	if v, ok := p.cache.Get(key); ok {
		if table, ok := v.(map[string]float64); ok {
			if rate, ok := table[to]; ok && rate > 0 {
				return rate
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	table, err := p.source.RateTable(ctx, from)
	if err != nil {
		p.log.Warn("FX lookup failed, using static fallback rates",
			zap.String("from", from),
			zap.String("to", to),
			zap.Error(err),
		)
		return p.staticRate(from, to)
	}

	p.cache.SetTTL(key, table, p.ttl)
	if rate, ok := table[to]; ok && rate > 0 {
		return rate
	}

	p.log.Warn("FX table missing target currency, using static fallback rates",
		zap.String("from", from),
		zap.String("to", to),
	)
	return p.staticRate(from, to)
}

// staticRate looks up the bundled fallback table; absent pairs resolve to
// the identity rate so totals stay computable, with a log line flagging the
// silent substitution.
func (p *Provider) staticRate(from, to string) float64 {
	if targets, ok := staticRates[from]; ok {
		if rate, ok := targets[to]; ok {
			return rate
		}
	}
	p.log.Warn("no fallback rate for currency pair, using identity rate",
		zap.String("from", from),
		zap.String("to", to),
	)
	return 1
}

// Convert converts an amount between currencies, rounded to 2 decimals.
func (p *Provider) Convert(amount float64, from, to string) float64 {
	return math.Round(amount*p.Rate(from, to)*100) / 100
}
