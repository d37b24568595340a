package portfolio

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"invest-tracker-go/internal/cache"
	"invest-tracker-go/internal/models"

	"go.uber.org/zap"
)

// position is the running per-ticker accumulator for the average-cost fold.
// Fees are included in cost basis on BUY; a SELL reduces cost proportionally
// so the average price is unchanged by it.
type position struct {
	ticker    string
	exchange  string
	country   string
	currency  string
	quantity  float64
	totalCost float64
	lastPrice float64
}

func (p *position) avgPrice() float64 {
	if p.quantity <= 0 {
		return 0
	}
	return p.totalCost / p.quantity
}

// Holdings converts one portfolio's ordered transaction ledger into its
// current holdings. An unknown portfolio id yields an empty list, not an
// error. When realTime is set the current price comes from the quote
// source, degrading to the average buy price if the lookup fails; otherwise
// the average buy price is used directly.
func (s *Service) Holdings(ctx context.Context, portfolioID string, realTime bool) ([]models.Holding, error) {
	return s.holdings(ctx, portfolioID, realTime, nil)
}

// holdings is the fold behind Holdings. A non-nil prefetched map supplies
// quotes fetched in one batch upfront, so a bulk refresh does not hit the
// provider once per portfolio per ticker.
func (s *Service) holdings(ctx context.Context, portfolioID string, realTime bool, prefetched map[string]*models.Quote) ([]models.Holding, error) {
	if portfolioID == "" {
		return nil, fmt.Errorf("%w: portfolio id is required", ErrValidation)
	}

	key := cache.Key("holdings", portfolioID, strconv.FormatBool(realTime))
	if v, ok := s.cache.Get(key); ok {
		if holdings, ok := v.([]models.Holding); ok {
			return holdings, nil
		}
	}

	txs, err := s.store.Transactions(portfolioID)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return []models.Holding{}, nil
	}

	// Ascending by date; the stable sort keeps insertion order for ties.
	// The fold is order-dependent: reordering would corrupt average cost.
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date.Before(txs[j].Date) })

	positions := make(map[string]*position)
	for _, tx := range txs {
		pos := positions[tx.Ticker]
		if pos == nil {
			pos = &position{
				ticker:   tx.Ticker,
				exchange: tx.Exchange,
				country:  tx.Country,
				currency: tx.Currency,
			}
			positions[tx.Ticker] = pos
		}

		switch tx.Action {
		case models.ActionBuy:
			pos.quantity += tx.Quantity
			pos.totalCost += tx.Quantity*tx.TradePrice + tx.Fees
		case models.ActionSell:
			avg := pos.avgPrice()
			pos.quantity -= tx.Quantity
			pos.totalCost -= tx.Quantity * avg
		}
		pos.lastPrice = tx.TradePrice

		// Fully exited positions drop out of the holdings map entirely;
		// a later BUY recreates the ticker with a fresh cost basis.
		if pos.quantity <= 0 {
			delete(positions, tx.Ticker)
		}
	}

	holdings := make([]models.Holding, 0, len(positions))
	for _, pos := range positions {
		h := models.Holding{
			Ticker:        pos.ticker,
			Exchange:      pos.exchange,
			Country:       pos.country,
			Currency:      pos.currency,
			Quantity:      pos.quantity,
			AvgBuyPrice:   pos.avgPrice(),
			InvestedValue: pos.totalCost,
		}

		price := pos.avgPrice()
		if realTime {
			quote, err := s.quoteFor(ctx, pos.ticker, prefetched)
			if err != nil || !quote.Success {
				// One failed lookup must not abort the whole calculation.
				s.log.Warn("Quote unavailable, pricing holding at average cost",
					zap.String("ticker", pos.ticker), zap.Error(err))
				h.StalePrice = true
			} else {
				price = quote.Price
				h.Name = quote.CompanyName
				h.Sector = quote.Sector
				if quote.PreviousClose > 0 {
					h.DailyChange = (quote.Price - quote.PreviousClose) * pos.quantity
					h.DailyChangePct = (quote.Price - quote.PreviousClose) / quote.PreviousClose * 100
				}
			}
		}

		h.CurrentPrice = price
		h.CurrentValue = pos.quantity * price
		h.UnrealizedPL = h.CurrentValue - pos.totalCost
		if pos.totalCost != 0 {
			h.UnrealizedPLPct = h.UnrealizedPL / pos.totalCost * 100
		}
		holdings = append(holdings, h)
	}

	var totalValue float64
	for _, h := range holdings {
		totalValue += h.CurrentValue
	}
	for i := range holdings {
		if totalValue > 0 {
			holdings[i].Allocation = holdings[i].CurrentValue / totalValue * 100
		}
	}

	sort.Slice(holdings, func(i, j int) bool {
		if holdings[i].CurrentValue != holdings[j].CurrentValue {
			return holdings[i].CurrentValue > holdings[j].CurrentValue
		}
		return holdings[i].Ticker < holdings[j].Ticker
	})

	s.cache.Set(key, holdings)
	return holdings, nil
}

// quoteFor resolves one ticker's quote, preferring a prefetched batch over
// an individual provider call.
func (s *Service) quoteFor(ctx context.Context, ticker string, prefetched map[string]*models.Quote) (*models.Quote, error) {
	if prefetched != nil {
		if q, ok := prefetched[ticker]; ok && q != nil {
			return q, nil
		}
		return nil, fmt.Errorf("no prefetched quote for %s", ticker)
	}
	return s.quotes.Quote(ctx, ticker)
}
