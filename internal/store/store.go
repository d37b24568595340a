// Package store persists the tracker's state as flat JSON files: one file
// per collection (portfolios, transactions, cash positions) under a data
// directory. Reads return the full current collection; writes are atomic
// (temp file + rename) and durable before the call returns.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"invest-tracker-go/internal/models"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	portfoliosFile   = "portfolios.json"
	transactionsFile = "transactions.json"
	cashFile         = "cash.json"
)

// ErrNotFound is returned when a lookup by id matches no live record.
var ErrNotFound = errors.New("record not found")

// Store reads and writes the flat-file collections. All writes go through a
// single mutex so concurrent handlers cannot interleave a read-modify-write
// cycle on the same file.
type Store struct {
	fs  afero.Fs
	dir string
	mu  sync.Mutex
	log *zap.Logger
}

// New creates a store rooted at dir on the given filesystem, creating the
// directory if needed. Tests pass afero.NewMemMapFs().
func New(fs afero.Fs, dir string, log *zap.Logger) (*Store, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return &Store{fs: fs, dir: dir, log: log}, nil
}

func (s *Store) readJSON(name string, out any) error {
	path := filepath.Join(s.dir, name)
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil // empty collection
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

func (s *Store) writeJSON(name string, in any) error {
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

// Portfolios returns every non-deleted portfolio.
func (s *Store) Portfolios() ([]models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.portfoliosLocked()
}

func (s *Store) portfoliosLocked() ([]models.Portfolio, error) {
	var all []models.Portfolio
	if err := s.readJSON(portfoliosFile, &all); err != nil {
		return nil, err
	}
	live := make([]models.Portfolio, 0, len(all))
	for _, p := range all {
		if !p.Deleted {
			live = append(live, p)
		}
	}
	return live, nil
}

// Portfolio returns the non-deleted portfolio with the given id.
func (s *Store) Portfolio(id string) (*models.Portfolio, error) {
	live, err := s.Portfolios()
	if err != nil {
		return nil, err
	}
	for i := range live {
		if live[i].ID == id {
			p := live[i]
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

// SavePortfolio inserts the portfolio, or replaces the stored record with
// the same id.
func (s *Store) SavePortfolio(p models.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.Portfolio
	if err := s.readJSON(portfoliosFile, &all); err != nil {
		return err
	}
	replaced := false
	for i := range all {
		if all[i].ID == p.ID {
			all[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		all = append(all, p)
	}
	return s.writeJSON(portfoliosFile, all)
}

// DeletePortfolio soft-deletes a portfolio and, when cascade is set, every
// transaction belonging to it. Records stay in the files with the Deleted
// flag set; nothing is physically removed.
func (s *Store) DeletePortfolio(id string, cascade bool, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.Portfolio
	if err := s.readJSON(portfoliosFile, &all); err != nil {
		return err
	}
	found := false
	for i := range all {
		if all[i].ID == id && !all[i].Deleted {
			all[i].Deleted = true
			all[i].UpdatedAt = now
			found = true
			break
		}
	}
	if !found {
		return ErrNotFound
	}
	if err := s.writeJSON(portfoliosFile, all); err != nil {
		return err
	}

	if !cascade {
		return nil
	}
	var txs []models.Transaction
	if err := s.readJSON(transactionsFile, &txs); err != nil {
		return err
	}
	for i := range txs {
		if txs[i].PortfolioID == id && !txs[i].Deleted {
			txs[i].Deleted = true
			txs[i].UpdatedAt = now
		}
	}
	return s.writeJSON(transactionsFile, txs)
}

// Transactions returns the non-deleted transactions for one portfolio, in
// stored (insertion) order. An empty portfolioID returns transactions for
// every portfolio.
func (s *Store) Transactions(portfolioID string) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.Transaction
	if err := s.readJSON(transactionsFile, &all); err != nil {
		return nil, err
	}
	live := make([]models.Transaction, 0, len(all))
	for _, tx := range all {
		if tx.Deleted {
			continue
		}
		if portfolioID != "" && tx.PortfolioID != portfolioID {
			continue
		}
		live = append(live, tx)
	}
	return live, nil
}

// AppendTransaction adds one transaction to the ledger.
func (s *Store) AppendTransaction(tx models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.Transaction
	if err := s.readJSON(transactionsFile, &all); err != nil {
		return err
	}
	all = append(all, tx)
	return s.writeJSON(transactionsFile, all)
}

// DeleteTransaction soft-deletes one transaction by id.
func (s *Store) DeleteTransaction(id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.Transaction
	if err := s.readJSON(transactionsFile, &all); err != nil {
		return err
	}
	for i := range all {
		if all[i].ID == id && !all[i].Deleted {
			all[i].Deleted = true
			all[i].UpdatedAt = now
			return s.writeJSON(transactionsFile, all)
		}
	}
	return ErrNotFound
}

// Cash returns the cash position for one portfolio in its native currency.
// A portfolio with no stored cash entry has position 0.
func (s *Store) Cash(portfolioID string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cash := map[string]float64{}
	if err := s.readJSON(cashFile, &cash); err != nil {
		return 0, err
	}
	return cash[portfolioID], nil
}

// SetCash stores the cash position for one portfolio and mirrors it onto
// the portfolio record so the two stay consistent.
func (s *Store) SetCash(portfolioID string, amount float64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cash := map[string]float64{}
	if err := s.readJSON(cashFile, &cash); err != nil {
		return err
	}
	cash[portfolioID] = amount
	if err := s.writeJSON(cashFile, cash); err != nil {
		return err
	}

	var all []models.Portfolio
	if err := s.readJSON(portfoliosFile, &all); err != nil {
		return err
	}
	for i := range all {
		if all[i].ID == portfolioID && !all[i].Deleted {
			all[i].CashPosition = amount
			all[i].UpdatedAt = now
			return s.writeJSON(portfoliosFile, all)
		}
	}
	return ErrNotFound
}
