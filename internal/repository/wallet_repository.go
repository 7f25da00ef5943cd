package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/davesep77/evolentra/internal/models"
	"github.com/davesep77/evolentra/pkg/db"
)

const walletColumns = `id, user_id, currency, wallet_address, balance, roi_balance, referral_balance,
	binary_balance, total_deposited, total_withdrawn, created_at, updated_at`

// WalletRepository mutates balances with single conditional statements so a
// debit can never take balance below zero.
type WalletRepository interface {
	CreateDefaults(ctx context.Context, userID uint64, currencies []string) error
	FindByUserAndCurrency(ctx context.Context, userID uint64, currency string) (*models.Wallet, error)
	LockByUserAndCurrency(ctx context.Context, userID uint64, currency string) (*models.Wallet, error)
	ListByUser(ctx context.Context, userID uint64) ([]*models.Wallet, error)
	// Credit adds amount to balance and to the sub-balance selected by kind.
	// Returns ErrWalletNotFound when the wallet does not exist.
	Credit(ctx context.Context, userID uint64, currency string, kind models.CreditKind, amount decimal.Decimal) error
	// Debit subtracts amount from balance. Returns ErrInsufficientFunds when
	// balance < amount or the wallet does not exist.
	Debit(ctx context.Context, userID uint64, currency string, amount decimal.Decimal) error
	AddTotalWithdrawn(ctx context.Context, userID uint64, currency string, amount decimal.Decimal) error
}

type walletRepository struct {
	q db.Querier
}

func NewWalletRepository(q db.Querier) WalletRepository {
	return &walletRepository{q: q}
}

func (r *walletRepository) CreateDefaults(ctx context.Context, userID uint64, currencies []string) error {
	if len(currencies) == 0 {
		return nil
	}
	now := time.Now()
	placeholders := make([]string, 0, len(currencies))
	args := make([]interface{}, 0, len(currencies)*4)
	for _, currency := range currencies {
		placeholders = append(placeholders, "(?, ?, ?, ?)")
		args = append(args, userID, currency, now, now)
	}
	query := "INSERT INTO wallets (user_id, currency, created_at, updated_at) VALUES " + strings.Join(placeholders, ", ")
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create wallets: %w", err)
	}
	return nil
}

func (r *walletRepository) FindByUserAndCurrency(ctx context.Context, userID uint64, currency string) (*models.Wallet, error) {
	return r.findOne(ctx, "SELECT "+walletColumns+" FROM wallets WHERE user_id = ? AND currency = ?", userID, currency)
}

func (r *walletRepository) LockByUserAndCurrency(ctx context.Context, userID uint64, currency string) (*models.Wallet, error) {
	return r.findOne(ctx, "SELECT "+walletColumns+" FROM wallets WHERE user_id = ? AND currency = ? FOR UPDATE", userID, currency)
}

func (r *walletRepository) findOne(ctx context.Context, query string, userID uint64, currency string) (*models.Wallet, error) {
	wallet, err := scanWallet(r.q.QueryRowContext(ctx, query, userID, currency))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find wallet: %w", err)
	}
	return wallet, nil
}

func (r *walletRepository) ListByUser(ctx context.Context, userID uint64) ([]*models.Wallet, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT "+walletColumns+" FROM wallets WHERE user_id = ? ORDER BY currency", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*models.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

func (r *walletRepository) Credit(ctx context.Context, userID uint64, currency string, kind models.CreditKind, amount decimal.Decimal) error {
	var set string
	switch kind {
	case models.CreditDeposit:
		set = "balance = balance + ?, total_deposited = total_deposited + ?"
	case models.CreditRoi:
		set = "balance = balance + ?, roi_balance = roi_balance + ?"
	case models.CreditReferral:
		set = "balance = balance + ?, referral_balance = referral_balance + ?"
	case models.CreditBinary:
		set = "balance = balance + ?, binary_balance = binary_balance + ?"
	case models.CreditRefund:
		set = "balance = balance + ?"
	default:
		return fmt.Errorf("unknown credit kind %q", kind)
	}

	args := []interface{}{amount.String()}
	if kind != models.CreditRefund {
		args = append(args, amount.String())
	}
	args = append(args, time.Now(), userID, currency)

	query := "UPDATE wallets SET " + set + ", updated_at = ? WHERE user_id = ? AND currency = ?"
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to credit wallet: %w", err)
	}
	return requireRow(res, ErrWalletNotFound)
}

func (r *walletRepository) Debit(ctx context.Context, userID uint64, currency string, amount decimal.Decimal) error {
	query := `
		UPDATE wallets
		SET balance = balance - ?, updated_at = ?
		WHERE user_id = ? AND currency = ? AND balance >= ?
	`
	res, err := r.q.ExecContext(ctx, query, amount.String(), time.Now(), userID, currency, amount.String())
	if err != nil {
		return fmt.Errorf("failed to debit wallet: %w", err)
	}
	return requireRow(res, ErrInsufficientFunds)
}

func (r *walletRepository) AddTotalWithdrawn(ctx context.Context, userID uint64, currency string, amount decimal.Decimal) error {
	query := `
		UPDATE wallets
		SET total_withdrawn = total_withdrawn + ?, updated_at = ?
		WHERE user_id = ? AND currency = ?
	`
	res, err := r.q.ExecContext(ctx, query, amount.String(), time.Now(), userID, currency)
	if err != nil {
		return fmt.Errorf("failed to update total withdrawn: %w", err)
	}
	return requireRow(res, ErrWalletNotFound)
}

func requireRow(res sql.Result, none error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return none
	}
	return nil
}

func scanWallet(row rowScanner) (*models.Wallet, error) {
	w := &models.Wallet{}
	var address sql.NullString
	err := row.Scan(&w.ID, &w.UserID, &w.Currency, &address, &w.Balance, &w.RoiBalance,
		&w.ReferralBalance, &w.BinaryBalance, &w.TotalDeposited, &w.TotalWithdrawn,
		&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	w.WalletAddress = nullString(address)
	return w, nil
}
