package fx

import (
	"context"
	"fmt"
	"time"

	"invest-tracker-go/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client fetches rate tables from an exchangerate-api.com style endpoint:
// GET {base_url}/{currency} returns {"base":"USD","rates":{"INR":83.1,...}}.
type Client struct {
	client *resty.Client
	log    *zap.Logger
}

var _ RateSource = (*Client)(nil)

// NewClient creates a new FX rate client.
func NewClient(cfg *config.FX, log *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)

	return &Client{client: client, log: log}
}

type rateTableResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// RateTable fetches the full conversion table for one base currency.
func (c *Client) RateTable(ctx context.Context, base string) (map[string]float64, error) {
	var result rateTableResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/" + base)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rate table for %s: %w", base, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("rate table request for %s returned status %s", base, resp.Status())
	}
	if len(result.Rates) == 0 {
		return nil, fmt.Errorf("rate table for %s is empty", base)
	}

	c.log.Debug("Fetched FX rate table",
		zap.String("base", base),
		zap.Int("targets", len(result.Rates)),
	)
	return result.Rates, nil
}
