package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/davesep77/evolentra/internal/models"
	"github.com/davesep77/evolentra/pkg/db"
)

const transactionColumns = `id, user_id, type, currency, amount, fee, net_amount, status,
	reference_id, wallet_address, notes, created_at, updated_at`

type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) (uint64, error)
	UpdateStatusByReference(ctx context.Context, txType models.TransactionType, referenceID uint64, status string) error
	ListByUser(ctx context.Context, userID uint64, limit int) ([]*models.Transaction, error)
}

type transactionRepository struct {
	q db.Querier
}

func NewTransactionRepository(q db.Querier) TransactionRepository {
	return &transactionRepository{q: q}
}

func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) (uint64, error) {
	query := `
		INSERT INTO transactions (user_id, type, currency, amount, fee, net_amount, status,
			reference_id, wallet_address, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	res, err := r.q.ExecContext(ctx, query,
		tx.UserID, string(tx.Type), tx.Currency, tx.Amount.String(), tx.Fee.String(), tx.NetAmount.String(),
		tx.Status, uint64Arg(tx.ReferenceID), stringArg(tx.WalletAddress), stringArg(tx.Notes), now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to create transaction: %w", err)
	}
	id, err := lastInsertID(res)
	if err != nil {
		return 0, fmt.Errorf("failed to get transaction id: %w", err)
	}
	tx.ID = id
	tx.CreatedAt, tx.UpdatedAt = now, now
	return id, nil
}

func (r *transactionRepository) UpdateStatusByReference(ctx context.Context, txType models.TransactionType, referenceID uint64, status string) error {
	query := `
		UPDATE transactions
		SET status = ?, updated_at = ?
		WHERE reference_id = ? AND type = ?
	`
	if _, err := r.q.ExecContext(ctx, query, status, time.Now(), referenceID, string(txType)); err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	return nil
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID uint64, limit int) ([]*models.Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions WHERE user_id = ? ORDER BY id DESC LIMIT ?"
	rows, err := r.q.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*models.Transaction
	for rows.Next() {
		t := &models.Transaction{}
		var txType string
		var referenceID sql.NullInt64
		var address, notes sql.NullString
		err := rows.Scan(&t.ID, &t.UserID, &txType, &t.Currency, &t.Amount, &t.Fee, &t.NetAmount, &t.Status,
			&referenceID, &address, &notes, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.Type = models.TransactionType(txType)
		t.ReferenceID = nullUint64(referenceID)
		t.WalletAddress = nullString(address)
		t.Notes = nullString(notes)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
