// Package portfolio is the holdings-and-P&L calculation engine: it turns the
// append-only transaction ledger into current holdings, realized and
// unrealized P&L, multi-currency dashboards and performance analytics.
//
// Cost basis uses the average-cost method throughout: all purchased lots of
// a security are blended into one running average price, and a sale reduces
// cost basis proportionally without tracking individual lots. This is a
// deliberate simplification and materially changes realized P&L numbers
// versus FIFO lot matching.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"invest-tracker-go/internal/cache"
	"invest-tracker-go/internal/fx"
	"invest-tracker-go/internal/marketdata"
	"invest-tracker-go/internal/models"
	"invest-tracker-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// analyticsTTL is shorter than the default cache TTL because analytics are
// cheap to rebuild and sensitive to new transactions.
const analyticsTTL = 5 * time.Minute

// ErrValidation marks rejected caller input (missing ids, non-positive
// quantities). Handlers translate it to a 400 response.
var ErrValidation = errors.New("invalid input")

// ErrOversell is returned when a SELL transaction's quantity exceeds the
// quantity currently held for that ticker. Oversells are rejected at
// ingestion so the ledger can never produce a negative running position.
var ErrOversell = errors.New("sell quantity exceeds held quantity")

// Service wires the store, quote source, FX provider and result cache into
// the calculation engine. Construct one per process and inject it into the
// HTTP layer; tests build fresh instances with fakes.
type Service struct {
	store        *store.Store
	quotes       marketdata.QuoteSource
	fx           *fx.Provider
	cache        *cache.Cache
	log          *zap.Logger
	riskFreeRate float64
	now          func() time.Time

	mu             sync.Mutex
	portfolioLocks map[string]*sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the service's time source in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the calculation engine.
func NewService(st *store.Store, quotes marketdata.QuoteSource, fxp *fx.Provider, c *cache.Cache, riskFreeRate float64, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:          st,
		quotes:         quotes,
		fx:             fxp,
		cache:          c,
		log:            log,
		riskFreeRate:   riskFreeRate,
		now:            time.Now,
		portfolioLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lockPortfolio serializes writers to one portfolio's data. Concurrent
// writes to different portfolios proceed independently.
func (s *Service) lockPortfolio(id string) func() {
	s.mu.Lock()
	l, ok := s.portfolioLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.portfolioLocks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// currencyForCountry derives a portfolio's fixed native currency from its
// country at creation time. The currency is not user-editable afterwards;
// only the dashboard's display currency is selectable.
func currencyForCountry(country string) string {
	switch strings.ToUpper(strings.TrimSpace(country)) {
	case "IN", "INDIA":
		return "INR"
	case "GB", "UK", "UNITED KINGDOM":
		return "GBP"
	case "DE", "FR", "IT", "ES", "NL", "GERMANY", "FRANCE", "ITALY", "SPAIN", "NETHERLANDS":
		return "EUR"
	default:
		return "USD"
	}
}

// CreatePortfolio creates a new portfolio with its currency derived from
// the country.
func (s *Service) CreatePortfolio(name, description, country string) (*models.Portfolio, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: portfolio name is required", ErrValidation)
	}

	now := s.now()
	p := models.Portfolio{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(name),
		Description: description,
		Country:     country,
		Currency:    currencyForCountry(country),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.SavePortfolio(p); err != nil {
		return nil, err
	}

	s.log.Info("Created portfolio",
		zap.String("id", p.ID),
		zap.String("name", p.Name),
		zap.String("currency", p.Currency),
	)
	return &p, nil
}

// Portfolios lists every live portfolio.
func (s *Service) Portfolios() ([]models.Portfolio, error) {
	return s.store.Portfolios()
}

// Portfolio returns one live portfolio by id.
func (s *Service) Portfolio(id string) (*models.Portfolio, error) {
	return s.store.Portfolio(id)
}

// DeletePortfolio soft-deletes a portfolio, optionally cascading to its
// transactions, and invalidates cached aggregates.
func (s *Service) DeletePortfolio(id string, cascade bool) error {
	unlock := s.lockPortfolio(id)
	defer unlock()

	if err := s.store.DeletePortfolio(id, cascade, s.now()); err != nil {
		return err
	}
	s.cache.Clear()
	return nil
}

// AddTransaction validates and appends one trade to the ledger. A SELL is
// rejected if inserting it at its date would drive the ticker's running
// position negative at any point in the replayed ledger.
func (s *Service) AddTransaction(tx models.Transaction) (*models.Transaction, error) {
	if tx.PortfolioID == "" {
		return nil, fmt.Errorf("%w: portfolio id is required", ErrValidation)
	}
	if tx.Ticker == "" {
		return nil, fmt.Errorf("%w: ticker is required", ErrValidation)
	}
	if tx.Action != models.ActionBuy && tx.Action != models.ActionSell {
		return nil, fmt.Errorf("%w: action must be BUY or SELL", ErrValidation)
	}
	if tx.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	if tx.TradePrice <= 0 {
		return nil, fmt.Errorf("%w: trade price must be positive", ErrValidation)
	}
	if tx.Fees < 0 {
		return nil, fmt.Errorf("%w: fees must not be negative", ErrValidation)
	}

	p, err := s.store.Portfolio(tx.PortfolioID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	tx.Ticker = strings.ToUpper(strings.TrimSpace(tx.Ticker))
	if tx.Currency == "" {
		tx.Currency = p.Currency
	}
	if tx.Date.IsZero() {
		tx.Date = now
	}

	unlock := s.lockPortfolio(tx.PortfolioID)
	defer unlock()

	if tx.Action == models.ActionSell {
		if err := s.checkSellCovered(tx); err != nil {
			return nil, err
		}
	}

	tx.ID = uuid.NewString()
	tx.Deleted = false
	tx.CreatedAt = now
	tx.UpdatedAt = now

	if err := s.store.AppendTransaction(tx); err != nil {
		return nil, err
	}
	s.cache.Clear()

	s.log.Info("Recorded transaction",
		zap.String("id", tx.ID),
		zap.String("portfolio", tx.PortfolioID),
		zap.String("action", tx.Action),
		zap.String("ticker", tx.Ticker),
		zap.Float64("quantity", tx.Quantity),
		zap.Float64("price", tx.TradePrice),
	)
	return &tx, nil
}

// checkSellCovered replays the ticker's ledger in date order with the
// candidate SELL inserted and rejects it if the running quantity would go
// negative at any point. An aggregate sum is not enough: it would accept a
// SELL dated before its covering BUY, which the dated holdings fold then
// misreads as a full exit followed by a fresh position.
func (s *Service) checkSellCovered(candidate models.Transaction) error {
	txs, err := s.store.Transactions(candidate.PortfolioID)
	if err != nil {
		return err
	}

	ledger := make([]models.Transaction, 0, len(txs)+1)
	for _, tx := range txs {
		if tx.Ticker == candidate.Ticker {
			ledger = append(ledger, tx)
		}
	}
	ledger = append(ledger, candidate)
	sort.SliceStable(ledger, func(i, j int) bool {
		return ledger[i].Date.Before(ledger[j].Date)
	})

	held := 0.0
	for _, tx := range ledger {
		switch tx.Action {
		case models.ActionBuy:
			held += tx.Quantity
		case models.ActionSell:
			held -= tx.Quantity
		}
		if held < -1e-9 {
			return fmt.Errorf("%w: selling %.4f %s leaves the position negative as of %s",
				ErrOversell, candidate.Quantity, candidate.Ticker,
				tx.Date.Format("2006-01-02"))
		}
	}
	return nil
}

// Transactions lists the live transactions for one portfolio.
func (s *Service) Transactions(portfolioID string) ([]models.Transaction, error) {
	return s.store.Transactions(portfolioID)
}

// DeleteTransaction soft-deletes one transaction and invalidates caches.
func (s *Service) DeleteTransaction(id string) error {
	if err := s.store.DeleteTransaction(id, s.now()); err != nil {
		return err
	}
	s.cache.Clear()
	return nil
}

// SetCash updates a portfolio's cash position in its native currency.
func (s *Service) SetCash(portfolioID string, amount float64) error {
	unlock := s.lockPortfolio(portfolioID)
	defer unlock()

	if err := s.store.SetCash(portfolioID, amount, s.now()); err != nil {
		return err
	}
	s.cache.Clear()
	return nil
}

// UpdatePortfolioTotals recomputes a portfolio's derived aggregates from
// its holdings and persists them back onto the record. This is an explicit
// separate step from the holdings calculation itself.
func (s *Service) UpdatePortfolioTotals(ctx context.Context, portfolioID string) error {
	return s.updateTotals(ctx, portfolioID, nil)
}

func (s *Service) updateTotals(ctx context.Context, portfolioID string, prefetched map[string]*models.Quote) error {
	p, err := s.store.Portfolio(portfolioID)
	if err != nil {
		return err
	}
	holdings, err := s.holdings(ctx, portfolioID, true, prefetched)
	if err != nil {
		return err
	}
	realized, err := s.RealizedPL(portfolioID)
	if err != nil {
		return err
	}
	txs, err := s.store.Transactions(portfolioID)
	if err != nil {
		return err
	}

	unlock := s.lockPortfolio(portfolioID)
	defer unlock()

	var invested, current, daily float64
	for _, h := range holdings {
		invested += h.InvestedValue
		current += h.CurrentValue
		daily += h.DailyChange
	}

	p.TotalInvested = invested
	p.CurrentValue = current
	p.UnrealizedPL = current - invested
	p.RealizedPL = realized
	p.DailyChange = daily
	if invested > 0 {
		p.TotalReturn = (p.UnrealizedPL + realized) / invested * 100
	} else {
		p.TotalReturn = 0
	}
	p.XIRR = calculateXIRR(txs, current, s.now())
	p.UpdatedAt = s.now()

	return s.store.SavePortfolio(*p)
}

// RefreshAll recomputes totals for every portfolio with fresh market data.
// Quotes for every held ticker are fetched once in a single batch, the
// result cache is dropped so the pass cannot read stale aggregates, and the
// per-portfolio recalculation then repopulates it from the new quotes.
func (s *Service) RefreshAll(ctx context.Context) error {
	portfolios, err := s.store.Portfolios()
	if err != nil {
		return err
	}

	txs, err := s.store.Transactions("")
	if err != nil {
		return err
	}
	seen := make(map[string]bool)
	tickers := make([]string, 0, len(txs))
	for _, tx := range txs {
		if !seen[tx.Ticker] {
			seen[tx.Ticker] = true
			tickers = append(tickers, tx.Ticker)
		}
	}
	sort.Strings(tickers)
	prefetched := s.quotes.Quotes(ctx, tickers)

	s.cache.Clear()
	for _, p := range portfolios {
		if err := s.updateTotals(ctx, p.ID, prefetched); err != nil {
			s.log.Warn("Failed to refresh portfolio totals",
				zap.String("portfolio", p.ID), zap.Error(err))
		}
	}
	return nil
}
