package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/davesep77/evolentra/internal/models"
	"github.com/davesep77/evolentra/pkg/db"
)

type CommissionRepository interface {
	CreateReferral(ctx context.Context, c *models.ReferralCommission) (uint64, error)
	CreateBinary(ctx context.Context, c *models.BinaryCommission) (uint64, error)
	ListReferralByReferrer(ctx context.Context, referrerID uint64, limit int) ([]*models.ReferralCommission, error)
	SumReferralByReferrer(ctx context.Context, referrerID uint64) (decimal.Decimal, error)
	ListBinaryByUser(ctx context.Context, userID uint64, limit int) ([]*models.BinaryCommission, error)
}

type commissionRepository struct {
	q db.Querier
}

func NewCommissionRepository(q db.Querier) CommissionRepository {
	return &commissionRepository{q: q}
}

func (r *commissionRepository) CreateReferral(ctx context.Context, c *models.ReferralCommission) (uint64, error) {
	query := `
		INSERT INTO referral_commissions (referrer_id, referred_id, investment_id, investment_amount,
			commission_rate, commission_amount, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	res, err := r.q.ExecContext(ctx, query, c.ReferrerID, c.ReferredID, c.InvestmentID,
		c.InvestmentAmount.String(), c.CommissionRate.String(), c.CommissionAmount.String(), c.Status, now)
	if err != nil {
		return 0, fmt.Errorf("failed to create referral commission: %w", err)
	}
	id, err := lastInsertID(res)
	if err != nil {
		return 0, fmt.Errorf("failed to get referral commission id: %w", err)
	}
	c.ID = id
	c.CreatedAt = now
	return id, nil
}

func (r *commissionRepository) CreateBinary(ctx context.Context, c *models.BinaryCommission) (uint64, error) {
	query := `
		INSERT INTO binary_commissions (user_id, left_volume, right_volume, matched_volume, commission_rate,
			commission_amount, left_carry_forward, right_carry_forward, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	res, err := r.q.ExecContext(ctx, query, c.UserID, c.LeftVolume.String(), c.RightVolume.String(),
		c.MatchedVolume.String(), c.CommissionRate.String(), c.CommissionAmount.String(),
		c.LeftCarryForward.String(), c.RightCarryForward.String(), c.Status, now)
	if err != nil {
		return 0, fmt.Errorf("failed to create binary commission: %w", err)
	}
	id, err := lastInsertID(res)
	if err != nil {
		return 0, fmt.Errorf("failed to get binary commission id: %w", err)
	}
	c.ID = id
	c.CreatedAt = now
	return id, nil
}

func (r *commissionRepository) ListReferralByReferrer(ctx context.Context, referrerID uint64, limit int) ([]*models.ReferralCommission, error) {
	query := `
		SELECT id, referrer_id, referred_id, investment_id, investment_amount, commission_rate,
			commission_amount, status, created_at
		FROM referral_commissions
		WHERE referrer_id = ?
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := r.q.QueryContext(ctx, query, referrerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list referral commissions: %w", err)
	}
	defer rows.Close()

	var list []*models.ReferralCommission
	for rows.Next() {
		c := &models.ReferralCommission{}
		err := rows.Scan(&c.ID, &c.ReferrerID, &c.ReferredID, &c.InvestmentID, &c.InvestmentAmount,
			&c.CommissionRate, &c.CommissionAmount, &c.Status, &c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan referral commission: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *commissionRepository) SumReferralByReferrer(ctx context.Context, referrerID uint64) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := "SELECT COALESCE(SUM(commission_amount), 0) FROM referral_commissions WHERE referrer_id = ?"
	if err := r.q.QueryRowContext(ctx, query, referrerID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum referral commissions: %w", err)
	}
	return total, nil
}

func (r *commissionRepository) ListBinaryByUser(ctx context.Context, userID uint64, limit int) ([]*models.BinaryCommission, error) {
	query := `
		SELECT id, user_id, left_volume, right_volume, matched_volume, commission_rate, commission_amount,
			left_carry_forward, right_carry_forward, status, created_at
		FROM binary_commissions
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := r.q.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list binary commissions: %w", err)
	}
	defer rows.Close()

	var list []*models.BinaryCommission
	for rows.Next() {
		c := &models.BinaryCommission{}
		err := rows.Scan(&c.ID, &c.UserID, &c.LeftVolume, &c.RightVolume, &c.MatchedVolume, &c.CommissionRate,
			&c.CommissionAmount, &c.LeftCarryForward, &c.RightCarryForward, &c.Status, &c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan binary commission: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}
