package store

import (
	"testing"
	"time"

	"invest-tracker-go/internal/models"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	s, err := New(afero.NewMemMapFs(), "/data", zap.NewNop())
	assert.NoError(t, err)
	return s
}

func TestSavePortfolio_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	p := models.Portfolio{ID: "pf-1", Name: "Growth", Currency: "USD", Country: "US"}

	assert.NoError(t, s.SavePortfolio(p))

	got, err := s.Portfolio("pf-1")
	assert.NoError(t, err)
	assert.Equal(t, "Growth", got.Name)
	assert.Equal(t, "USD", got.Currency)
}

func TestSavePortfolio_ReplacesById(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.SavePortfolio(models.Portfolio{ID: "pf-1", Name: "Old"}))
	assert.NoError(t, s.SavePortfolio(models.Portfolio{ID: "pf-1", Name: "New"}))

	all, err := s.Portfolios()
	assert.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, "New", all[0].Name)
}

func TestPortfolio_UnknownId(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Portfolio("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletePortfolio_SoftDeleteWithCascade(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	assert.NoError(t, s.SavePortfolio(models.Portfolio{ID: "pf-1", Name: "Gone"}))
	assert.NoError(t, s.AppendTransaction(models.Transaction{ID: "tx-1", PortfolioID: "pf-1", Ticker: "AAPL"}))
	assert.NoError(t, s.AppendTransaction(models.Transaction{ID: "tx-2", PortfolioID: "pf-2", Ticker: "MSFT"}))

	assert.NoError(t, s.DeletePortfolio("pf-1", true, now))

	_, err := s.Portfolio("pf-1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Cascade soft-deleted only pf-1's transactions
	txs, err := s.Transactions("pf-1")
	assert.NoError(t, err)
	assert.Empty(t, txs)
	txs, err = s.Transactions("pf-2")
	assert.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestTransactions_FilterAndOrder(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.AppendTransaction(models.Transaction{ID: "a", PortfolioID: "pf-1"}))
	assert.NoError(t, s.AppendTransaction(models.Transaction{ID: "b", PortfolioID: "pf-1"}))
	assert.NoError(t, s.DeleteTransaction("a", time.Now()))

	txs, err := s.Transactions("pf-1")
	assert.NoError(t, err)
	assert.Len(t, txs, 1)
	assert.Equal(t, "b", txs[0].ID)

	// Empty id returns everything live
	all, err := s.Transactions("")
	assert.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSetCash_MirrorsOntoPortfolio(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.SavePortfolio(models.Portfolio{ID: "pf-1", Currency: "USD"}))

	assert.NoError(t, s.SetCash("pf-1", 2500, time.Now()))

	amount, err := s.Cash("pf-1")
	assert.NoError(t, err)
	assert.Equal(t, 2500.0, amount)

	p, err := s.Portfolio("pf-1")
	assert.NoError(t, err)
	assert.Equal(t, 2500.0, p.CashPosition)
}

func TestSetCash_UnknownPortfolio(t *testing.T) {
	s := newTestStore(t)
	err := s.SetCash("missing", 100, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCash_DefaultsToZero(t *testing.T) {
	s := newTestStore(t)
	amount, err := s.Cash("pf-1")
	assert.NoError(t, err)
	assert.Zero(t, amount)
}
