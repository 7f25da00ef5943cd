package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/davesep77/evolentra/internal/config"
	"github.com/davesep77/evolentra/internal/errs"
	"github.com/davesep77/evolentra/internal/models"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// RateProvider is the pricing collaborator: currency to units per USD.
// Rates are for display only and never enter ledger math.
type RateProvider interface {
	Rates(ctx context.Context) (map[string]decimal.Decimal, error)
}

// StaticRates serves the configured rate table.
type StaticRates struct {
	rules config.Rules
}

func NewStaticRates(rules config.Rules) *StaticRates {
	return &StaticRates{rules: rules}
}

func (r *StaticRates) Rates(context.Context) (map[string]decimal.Decimal, error) {
	return r.rules.RateTable(), nil
}

// WalletBalance is a wallet with its balance shown in the wallet's own
// currency units.
type WalletBalance struct {
	*models.Wallet
	Rate           decimal.Decimal `json:"rate"`
	DisplayBalance decimal.Decimal `json:"display_balance"`
}

type WalletOverview struct {
	Wallets      []WalletBalance `json:"wallets"`
	TotalBalance decimal.Decimal `json:"total_balance"`
}

type RateTable struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

type WalletService interface {
	Balances(ctx context.Context, userID uint64) (*WalletOverview, error)
	Transactions(ctx context.Context, userID uint64, limit int) ([]*models.Transaction, error)
	Rates(ctx context.Context) (*RateTable, error)
}

type walletService struct {
	Deps
	pricing RateProvider
}

func NewWalletService(deps Deps, pricing RateProvider) WalletService {
	return &walletService{Deps: deps, pricing: pricing}
}

func (s *walletService) Balances(ctx context.Context, userID uint64) (*WalletOverview, error) {
	wallets, err := s.Store.Wallets().ListByUser(ctx, userID)
	if err != nil {
		return nil, errs.Persistence(err, "Failed to load wallets")
	}
	rates, err := s.pricing.Rates(ctx)
	if err != nil {
		return nil, errs.Persistence(err, "Failed to load rates")
	}

	overview := &WalletOverview{Wallets: make([]WalletBalance, 0, len(wallets)), TotalBalance: decimal.Zero}
	for _, w := range wallets {
		rate, ok := rates[w.Currency]
		if !ok {
			rate = decimal.NewFromInt(1)
		}
		overview.Wallets = append(overview.Wallets, WalletBalance{
			Wallet:         w,
			Rate:           rate,
			DisplayBalance: w.Balance.Mul(rate).Round(8),
		})
		overview.TotalBalance = overview.TotalBalance.Add(w.Balance)
	}
	return overview, nil
}

func (s *walletService) Transactions(ctx context.Context, userID uint64, limit int) ([]*models.Transaction, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	txs, err := s.Store.Transactions().ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, errs.Persistence(err, "Failed to load transactions")
	}
	return txs, nil
}

func (s *walletService) Rates(ctx context.Context) (*RateTable, error) {
	rates, err := s.pricing.Rates(ctx)
	if err != nil {
		return nil, errs.Persistence(err, "Failed to load rates")
	}
	return &RateTable{Base: "USD", Rates: rates}, nil
}
