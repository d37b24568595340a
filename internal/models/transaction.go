package models

import "time"

const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
)

// Transaction is one immutable trade record in a portfolio's ledger.
// Records are append-only: the only permitted mutation after creation is
// setting the Deleted flag.
type Transaction struct {
	ID          string    `json:"id"`
	PortfolioID string    `json:"portfolio_id"`
	Date        time.Time `json:"date"`
	Action      string    `json:"action"` // "BUY" or "SELL"
	Ticker      string    `json:"ticker"`
	Exchange    string    `json:"exchange,omitempty"`
	Country     string    `json:"country,omitempty"`
	Quantity    float64   `json:"quantity"`
	TradePrice  float64   `json:"trade_price"`
	Currency    string    `json:"currency"`
	Fees        float64   `json:"fees"`
	Notes       string    `json:"notes,omitempty"`
	Tag         string    `json:"tag,omitempty"`
	Deleted     bool      `json:"deleted,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
