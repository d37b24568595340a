package models

import "time"

// SectorUnknown is the bucket for holdings that carry no sector label, so
// sector allocation always reconciles with the grand total.
const SectorUnknown = "Unknown"

// PortfolioSummary is one portfolio's contribution to the dashboard, with
// every monetary field already converted into the display currency.
type PortfolioSummary struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Currency     string  `json:"currency"` // native currency, informational
	Cash         float64 `json:"cash"`
	Invested     float64 `json:"invested"`
	CurrentValue float64 `json:"current_value"`
	UnrealizedPL float64 `json:"unrealized_pl"`
	RealizedPL   float64 `json:"realized_pl"`
	Allocation   float64 `json:"allocation"` // % of grand total value
}

// SectorAllocation is one sector's aggregated slice of the dashboard.
type SectorAllocation struct {
	Sector     string  `json:"sector"`
	Value      float64 `json:"value"`
	Allocation float64 `json:"allocation"`
}

// DashboardData combines holdings and cash across every portfolio into one
// view in a single display currency.
type DashboardData struct {
	DisplayCurrency string             `json:"display_currency"`
	TotalCash       float64            `json:"total_cash"`
	TotalInvested   float64            `json:"total_invested"`
	TotalValue      float64            `json:"total_value"`
	TotalUnrealized float64            `json:"total_unrealized_pl"`
	TotalRealized   float64            `json:"total_realized_pl"`
	TotalReturnPct  float64            `json:"total_return_percent"`
	Portfolios      []PortfolioSummary `json:"portfolios"`
	Sectors         []SectorAllocation `json:"sectors"`
	GeneratedAt     time.Time          `json:"generated_at"`
}
