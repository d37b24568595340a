package models

import "time"

// Portfolio is a named container of transactions and cash.
//
// Currency is fixed at creation (derived from Country) and is not editable
// afterwards; only the dashboard's display currency is user-selectable.
// The aggregate fields (TotalInvested through XIRR) are derived values,
// persisted on the record as a cache and refreshed whenever holdings are
// recalculated.
type Portfolio struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Description       string  `json:"description,omitempty"`
	Currency          string  `json:"currency"`
	Country           string  `json:"country,omitempty"`
	CashPosition      float64 `json:"cash_position"`
	TargetCashPercent float64 `json:"target_cash_percent,omitempty"`

	TotalInvested float64 `json:"total_invested"`
	CurrentValue  float64 `json:"current_value"`
	TotalReturn   float64 `json:"total_return"`
	RealizedPL    float64 `json:"realized_pl"`
	UnrealizedPL  float64 `json:"unrealized_pl"`
	DailyChange   float64 `json:"daily_change"`
	XIRR          float64 `json:"xirr"`

	Deleted   bool      `json:"deleted,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
