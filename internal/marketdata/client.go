// Package marketdata is the quote source adapter: it fetches a security's
// current price, previous close, company name and sector from the upstream
// provider and normalises the result into a models.Quote.
package marketdata

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"invest-tracker-go/internal/config"
	"invest-tracker-go/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// QuoteSource defines the interface for the quote provider client.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
	Quotes(ctx context.Context, symbols []string) map[string]*models.Quote
}

// Client is a rate-limited client for the quote provider's REST API.
// It implements the QuoteSource interface.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure Client implements the interface
var _ QuoteSource = (*Client)(nil)

// NewClient creates a new quote provider client.
func NewClient(cfg *config.MarketData, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		client:  client,
		logger:  logger,
		limiter: limiter,
	}
}

type quoteResponse struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	PreviousClose float64 `json:"previous_close"`
	CompanyName   string  `json:"company_name"`
	Sector        string  `json:"sector"`
	Currency      string  `json:"currency"`
}

// Quote fetches the current quote for one symbol. An unknown symbol is not
// an error: the provider answers 404 and the caller gets a quote with
// Success set to false.
func (c *Client) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	var result quoteResponse

	req := c.client.R().
		SetContext(ctx).
		SetResult(&result).
		SetHeader("Content-Type", "application/json")

	resp, err := c.doRequest(ctx, http.MethodGet, "/quote/"+url.PathEscape(symbol), req)
	if err != nil {
		if resp != nil && resp.StatusCode() == http.StatusNotFound {
			c.logger.Debug("Symbol not known to provider", zap.String("symbol", symbol))
			return &models.Quote{Symbol: symbol, Timestamp: time.Now(), Success: false}, nil
		}
		return nil, fmt.Errorf("failed to get quote for %s: %w", symbol, err)
	}

	return &models.Quote{
		Symbol:        symbol,
		Price:         result.Price,
		PreviousClose: result.PreviousClose,
		CompanyName:   result.CompanyName,
		Sector:        result.Sector,
		Currency:      result.Currency,
		Timestamp:     time.Now(),
		Success:       result.Price > 0,
	}, nil
}

// Quotes fetches quotes for many symbols, pacing requests through the rate
// limiter. A failed lookup yields a Success:false quote for that symbol
// rather than aborting the batch.
func (c *Client) Quotes(ctx context.Context, symbols []string) map[string]*models.Quote {
	quotes := make(map[string]*models.Quote, len(symbols))
	for _, symbol := range symbols {
		q, err := c.Quote(ctx, symbol)
		if err != nil {
			c.logger.Warn("Quote lookup failed during bulk refresh",
				zap.String("symbol", symbol), zap.Error(err))
			q = &models.Quote{Symbol: symbol, Timestamp: time.Now(), Success: false}
		}
		quotes[symbol] = q
	}
	return quotes
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil && resp.StatusCode() != 0 {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return resp, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return resp, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}
