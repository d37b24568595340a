package models

// Holding is a derived snapshot of one security's current position within
// one portfolio. Holdings are recomputed from the transaction ledger on every
// request and are never persisted as their own entity.
type Holding struct {
	Ticker             string  `json:"ticker"`
	Name               string  `json:"name,omitempty"`
	Exchange           string  `json:"exchange,omitempty"`
	Currency           string  `json:"currency"`
	Quantity           float64 `json:"quantity"`
	AvgBuyPrice        float64 `json:"avg_buy_price"`
	CurrentPrice       float64 `json:"current_price"`
	CurrentValue       float64 `json:"current_value"`
	InvestedValue      float64 `json:"invested_value"`
	UnrealizedPL       float64 `json:"unrealized_pl"`
	UnrealizedPLPct    float64 `json:"unrealized_pl_percent"`
	DailyChange        float64 `json:"daily_change"`
	DailyChangePct     float64 `json:"daily_change_percent"`
	Allocation         float64 `json:"allocation"`
	Sector             string  `json:"sector,omitempty"`
	Country            string  `json:"country,omitempty"`
	StalePrice         bool    `json:"stale_price,omitempty"`
}
