package portfolio

import (
	"context"
	"sort"
	"strings"

	"invest-tracker-go/internal/cache"
	"invest-tracker-go/internal/models"
)

// Dashboard combines holdings and cash across all portfolios into one view
// in the requested display currency. Cash converts from each portfolio's
// native currency; each holding converts from its own currency, so a
// mixed-currency portfolio's holdings may each use a different rate.
func (s *Service) Dashboard(ctx context.Context, displayCurrency string) (*models.DashboardData, error) {
	displayCurrency = strings.ToUpper(strings.TrimSpace(displayCurrency))
	if displayCurrency == "" {
		displayCurrency = "USD"
	}

	key := cache.Key("dashboard", displayCurrency)
	if v, ok := s.cache.Get(key); ok {
		if data, ok := v.(*models.DashboardData); ok {
			return data, nil
		}
	}

	portfolios, err := s.store.Portfolios()
	if err != nil {
		return nil, err
	}

	data := &models.DashboardData{
		DisplayCurrency: displayCurrency,
		Portfolios:      []models.PortfolioSummary{},
		Sectors:         []models.SectorAllocation{},
		GeneratedAt:     s.now(),
	}
	sectorValues := make(map[string]float64)

	for _, p := range portfolios {
		holdings, err := s.Holdings(ctx, p.ID, true)
		if err != nil {
			return nil, err
		}
		cashNative, err := s.store.Cash(p.ID)
		if err != nil {
			return nil, err
		}
		realizedNative, err := s.RealizedPL(p.ID)
		if err != nil {
			return nil, err
		}

		summary := models.PortfolioSummary{
			ID:         p.ID,
			Name:       p.Name,
			Currency:   p.Currency,
			Cash:       s.fx.Convert(cashNative, p.Currency, displayCurrency),
			RealizedPL: s.fx.Convert(realizedNative, p.Currency, displayCurrency),
		}

		for _, h := range holdings {
			value := s.fx.Convert(h.CurrentValue, h.Currency, displayCurrency)
			invested := s.fx.Convert(h.InvestedValue, h.Currency, displayCurrency)
			summary.CurrentValue += value
			summary.Invested += invested

			sector := h.Sector
			if sector == "" {
				sector = models.SectorUnknown
			}
			sectorValues[sector] += value
		}
		summary.UnrealizedPL = summary.CurrentValue - summary.Invested

		data.TotalCash += summary.Cash
		data.TotalInvested += summary.Invested
		data.TotalValue += summary.CurrentValue
		data.TotalUnrealized += summary.UnrealizedPL
		data.TotalRealized += summary.RealizedPL
		data.Portfolios = append(data.Portfolios, summary)
	}

	// Per-portfolio allocation: this portfolio's total over the grand total,
	// cash included on both sides. Defined as 0 when the grand total is 0.
	grandTotal := data.TotalValue + data.TotalCash
	for i := range data.Portfolios {
		if grandTotal > 0 {
			p := &data.Portfolios[i]
			p.Allocation = (p.CurrentValue + p.Cash) / grandTotal * 100
		}
	}

	for sector, value := range sectorValues {
		alloc := 0.0
		if data.TotalValue > 0 {
			alloc = value / data.TotalValue * 100
		}
		data.Sectors = append(data.Sectors, models.SectorAllocation{
			Sector:     sector,
			Value:      value,
			Allocation: alloc,
		})
	}
	sort.Slice(data.Sectors, func(i, j int) bool {
		if data.Sectors[i].Value != data.Sectors[j].Value {
			return data.Sectors[i].Value > data.Sectors[j].Value
		}
		return data.Sectors[i].Sector < data.Sectors[j].Sector
	})

	if data.TotalInvested > 0 {
		data.TotalReturnPct = (data.TotalUnrealized + data.TotalRealized) / data.TotalInvested * 100
	}

	s.cache.Set(key, data)
	return data, nil
}
