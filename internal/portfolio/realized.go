package portfolio

import (
	"sort"

	"invest-tracker-go/internal/models"
)

// RealizedPL computes the profit or loss already crystallized by SELL
// transactions in one portfolio, in the portfolio's native currency.
//
// The fold mirrors the holdings calculation: ascending date order, average
// cost basis. Each SELL realizes qty × (sale price − average cost) − fees.
func (s *Service) RealizedPL(portfolioID string) (float64, error) {
	txs, err := s.store.Transactions(portfolioID)
	if err != nil {
		return 0, err
	}
	return realizedFromLedger(txs), nil
}

// RealizedPLAll aggregates realized P&L across every portfolio. The values
// are summed in each portfolio's native currency with no FX normalization;
// the dashboard converts per portfolio when a single-currency figure is
// needed.
func (s *Service) RealizedPLAll() (float64, error) {
	txs, err := s.store.Transactions("")
	if err != nil {
		return 0, err
	}
	return realizedFromLedger(txs), nil
}

func realizedFromLedger(txs []models.Transaction) float64 {
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date.Before(txs[j].Date) })

	type basis struct {
		quantity  float64
		totalCost float64
	}
	// Positions are tracked per (portfolio, ticker) so the all-portfolios
	// aggregate never blends cost bases across portfolios.
	positions := make(map[string]*basis)

	var realized float64
	for _, tx := range txs {
		key := tx.PortfolioID + "\x00" + tx.Ticker
		b := positions[key]
		if b == nil {
			b = &basis{}
			positions[key] = b
		}

		switch tx.Action {
		case models.ActionBuy:
			b.quantity += tx.Quantity
			b.totalCost += tx.Quantity*tx.TradePrice + tx.Fees
		case models.ActionSell:
			var avg float64
			if b.quantity > 0 {
				avg = b.totalCost / b.quantity
			}
			realized += tx.Quantity*(tx.TradePrice-avg) - tx.Fees
			b.quantity -= tx.Quantity
			b.totalCost -= tx.Quantity * avg
			if b.quantity <= 0 {
				delete(positions, key)
			}
		}
	}
	return realized
}
