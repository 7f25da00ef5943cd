package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/davesep77/evolentra/internal/models"
	"github.com/davesep77/evolentra/pkg/db"
)

const withdrawalColumns = `id, user_id, currency, amount, fee, net_amount, wallet_address, status,
	admin_notes, approved_by, approved_at, created_at, updated_at`

type WithdrawalRepository interface {
	Create(ctx context.Context, w *models.WithdrawalRequest) (uint64, error)
	LockByID(ctx context.Context, id uint64) (*models.WithdrawalRequest, error)
	// Settle moves a pending request to status. Returns ErrAlreadySettled if
	// the request is no longer pending.
	Settle(ctx context.Context, id uint64, status string, adminID uint64, notes *string, at time.Time) error
	ListByStatus(ctx context.Context, status string, limit int) ([]models.AdminWithdrawalView, error)
	ListByUser(ctx context.Context, userID uint64) ([]*models.WithdrawalRequest, error)
}

type withdrawalRepository struct {
	q db.Querier
}

func NewWithdrawalRepository(q db.Querier) WithdrawalRepository {
	return &withdrawalRepository{q: q}
}

func (r *withdrawalRepository) Create(ctx context.Context, w *models.WithdrawalRequest) (uint64, error) {
	query := `
		INSERT INTO withdrawal_requests (user_id, currency, amount, fee, net_amount, wallet_address, status,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	res, err := r.q.ExecContext(ctx, query, w.UserID, w.Currency, w.Amount.String(), w.Fee.String(),
		w.NetAmount.String(), w.WalletAddress, w.Status, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to create withdrawal request: %w", err)
	}
	id, err := lastInsertID(res)
	if err != nil {
		return 0, fmt.Errorf("failed to get withdrawal request id: %w", err)
	}
	w.ID = id
	w.CreatedAt, w.UpdatedAt = now, now
	return id, nil
}

func (r *withdrawalRepository) LockByID(ctx context.Context, id uint64) (*models.WithdrawalRequest, error) {
	query := "SELECT " + withdrawalColumns + " FROM withdrawal_requests WHERE id = ? FOR UPDATE"
	w, err := scanWithdrawal(r.q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock withdrawal request: %w", err)
	}
	return w, nil
}

func (r *withdrawalRepository) Settle(ctx context.Context, id uint64, status string, adminID uint64, notes *string, at time.Time) error {
	query := `
		UPDATE withdrawal_requests
		SET status = ?, approved_by = ?, approved_at = ?, admin_notes = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`
	res, err := r.q.ExecContext(ctx, query, status, adminID, at, stringArg(notes), at, id, models.WithdrawalPending)
	if err != nil {
		return fmt.Errorf("failed to settle withdrawal request: %w", err)
	}
	return requireRow(res, ErrAlreadySettled)
}

func (r *withdrawalRepository) ListByStatus(ctx context.Context, status string, limit int) ([]models.AdminWithdrawalView, error) {
	query := `
		SELECT w.id, w.user_id, w.currency, w.amount, w.fee, w.net_amount, w.wallet_address, w.status,
			w.admin_notes, w.approved_by, w.approved_at, w.created_at, w.updated_at,
			u.email, u.first_name, u.last_name
		FROM withdrawal_requests w
		JOIN users u ON u.id = w.user_id
		WHERE w.status = ?
		ORDER BY w.created_at ASC
		LIMIT ?
	`
	rows, err := r.q.QueryContext(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawal requests: %w", err)
	}
	defer rows.Close()

	var views []models.AdminWithdrawalView
	for rows.Next() {
		var v models.AdminWithdrawalView
		var notes sql.NullString
		var approvedBy sql.NullInt64
		var approvedAt sql.NullTime
		w := &v.WithdrawalRequest
		err := rows.Scan(&w.ID, &w.UserID, &w.Currency, &w.Amount, &w.Fee, &w.NetAmount, &w.WalletAddress,
			&w.Status, &notes, &approvedBy, &approvedAt, &w.CreatedAt, &w.UpdatedAt,
			&v.Email, &v.FirstName, &v.LastName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal request: %w", err)
		}
		w.AdminNotes = nullString(notes)
		w.ApprovedBy = nullUint64(approvedBy)
		w.ApprovedAt = nullTime(approvedAt)
		views = append(views, v)
	}
	return views, rows.Err()
}

func (r *withdrawalRepository) ListByUser(ctx context.Context, userID uint64) ([]*models.WithdrawalRequest, error) {
	query := "SELECT " + withdrawalColumns + " FROM withdrawal_requests WHERE user_id = ? ORDER BY id DESC"
	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawal requests: %w", err)
	}
	defer rows.Close()

	var list []*models.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal request: %w", err)
		}
		list = append(list, w)
	}
	return list, rows.Err()
}

func scanWithdrawal(row rowScanner) (*models.WithdrawalRequest, error) {
	w := &models.WithdrawalRequest{}
	var notes sql.NullString
	var approvedBy sql.NullInt64
	var approvedAt sql.NullTime
	err := row.Scan(&w.ID, &w.UserID, &w.Currency, &w.Amount, &w.Fee, &w.NetAmount, &w.WalletAddress,
		&w.Status, &notes, &approvedBy, &approvedAt, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	w.AdminNotes = nullString(notes)
	w.ApprovedBy = nullUint64(approvedBy)
	w.ApprovedAt = nullTime(approvedAt)
	return w, nil
}
