package models

import "time"

// Quote is an ephemeral market data point for one security.
// Success is false when the upstream provider did not recognise the symbol
// or the lookup failed; callers must treat such quotes as "no data", not as
// a zero price.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	PreviousClose float64   `json:"previous_close"`
	CompanyName   string    `json:"company_name,omitempty"`
	Sector        string    `json:"sector,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Success       bool      `json:"success"`
}
