package portfolio

import (
	"math"
	"sort"
	"time"

	"invest-tracker-go/internal/models"
)

// cashFlow is a single dated flow for the XIRR calculation. Negative values
// are money out (buys), positive values money in (sells, current value).
type cashFlow struct {
	date   time.Time
	amount float64
}

// calculateXIRR computes the annualized internal rate of return for a
// portfolio using Newton-Raphson iteration. Cash flows come from the
// ledger — BUY as a negative flow including fees, SELL as a positive flow
// net of fees — plus the current market value as a terminal positive flow.
// Returns a percentage, or 0 when no rate can be computed.
func calculateXIRR(txs []models.Transaction, currentValue float64, now time.Time) float64 {
	var flows []cashFlow
	for _, tx := range txs {
		switch tx.Action {
		case models.ActionBuy:
			flows = append(flows, cashFlow{date: tx.Date, amount: -(tx.Quantity*tx.TradePrice + tx.Fees)})
		case models.ActionSell:
			flows = append(flows, cashFlow{date: tx.Date, amount: tx.Quantity*tx.TradePrice - tx.Fees})
		}
	}
	if len(flows) == 0 {
		return 0
	}
	if currentValue > 0 {
		flows = append(flows, cashFlow{date: now, amount: currentValue})
	}

	sort.Slice(flows, func(i, j int) bool { return flows[i].date.Before(flows[j].date) })

	// Need at least one flow in each direction for a rate to exist.
	hasNeg, hasPos := false, false
	for _, f := range flows {
		if f.amount < 0 {
			hasNeg = true
		}
		if f.amount > 0 {
			hasPos = true
		}
	}
	if !hasNeg || !hasPos {
		return 0
	}

	t0 := flows[0].date
	yearsFrom := func(d time.Time) float64 {
		return d.Sub(t0).Hours() / (24 * 365.25)
	}

	rate := 0.1
	for i := 0; i < 100; i++ {
		var npv, deriv float64
		for _, f := range flows {
			y := yearsFrom(f.date)
			denom := math.Pow(1+rate, y)
			if denom == 0 || math.IsInf(denom, 0) || math.IsNaN(denom) {
				return 0
			}
			npv += f.amount / denom
			deriv -= y * f.amount / (denom * (1 + rate))
		}
		if math.Abs(deriv) < 1e-12 {
			break
		}
		next := rate - npv/deriv
		// Keep the iteration inside the domain of (1+rate)^y.
		if next <= -0.9999 {
			next = (rate - 0.9999) / 2
		}
		if math.Abs(next-rate) < 1e-9 {
			rate = next
			break
		}
		rate = next
	}

	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0
	}
	return rate * 100
}
