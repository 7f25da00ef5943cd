package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/davesep77/evolentra/internal/models"
	"github.com/davesep77/evolentra/pkg/db"
)

const investmentColumns = `id, user_id, plan_id, amount, roi_rate, start_date, end_date, days_elapsed,
	total_roi_earned, total_roi_withdrawn, status, capital_returned, created_at, updated_at`

type InvestmentRepository interface {
	Create(ctx context.Context, inv *models.Investment) (uint64, error)
	LockByID(ctx context.Context, id uint64) (*models.Investment, error)
	ListByUser(ctx context.Context, userID uint64) ([]models.InvestmentView, error)
	// ListAccruable returns active investments whose term covers day.
	ListAccruable(ctx context.Context, day time.Time) ([]models.AccrualCandidate, error)
	RecordAccrual(ctx context.Context, id uint64, amount decimal.Decimal, daysElapsed int) error
	Complete(ctx context.Context, id uint64, capitalReturned bool) error
}

type investmentRepository struct {
	q db.Querier
}

func NewInvestmentRepository(q db.Querier) InvestmentRepository {
	return &investmentRepository{q: q}
}

func (r *investmentRepository) Create(ctx context.Context, inv *models.Investment) (uint64, error) {
	query := `
		INSERT INTO investments (user_id, plan_id, amount, roi_rate, start_date, end_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	res, err := r.q.ExecContext(ctx, query,
		inv.UserID, inv.PlanID, inv.Amount.String(), inv.RoiRate.String(),
		inv.StartDate.Format(dateLayout), inv.EndDate.Format(dateLayout), inv.Status, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to create investment: %w", err)
	}
	id, err := lastInsertID(res)
	if err != nil {
		return 0, fmt.Errorf("failed to get investment id: %w", err)
	}
	inv.ID = id
	inv.CreatedAt, inv.UpdatedAt = now, now
	return id, nil
}

func (r *investmentRepository) LockByID(ctx context.Context, id uint64) (*models.Investment, error) {
	query := "SELECT " + investmentColumns + " FROM investments WHERE id = ? FOR UPDATE"
	inv, err := scanInvestment(r.q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock investment: %w", err)
	}
	return inv, nil
}

func (r *investmentRepository) ListByUser(ctx context.Context, userID uint64) ([]models.InvestmentView, error) {
	query := `
		SELECT i.id, i.user_id, i.plan_id, i.amount, i.roi_rate, i.start_date, i.end_date, i.days_elapsed,
			i.total_roi_earned, i.total_roi_withdrawn, i.status, i.capital_returned, i.created_at, i.updated_at,
			p.name, p.duration_days, p.capital_return
		FROM investments i
		JOIN investment_plans p ON p.id = i.plan_id
		WHERE i.user_id = ?
		ORDER BY i.created_at DESC
	`
	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}
	defer rows.Close()

	var views []models.InvestmentView
	for rows.Next() {
		var v models.InvestmentView
		i := &v.Investment
		err := rows.Scan(&i.ID, &i.UserID, &i.PlanID, &i.Amount, &i.RoiRate, &i.StartDate, &i.EndDate,
			&i.DaysElapsed, &i.TotalRoiEarned, &i.TotalRoiWithdrawn, &i.Status, &i.CapitalReturned,
			&i.CreatedAt, &i.UpdatedAt, &v.PlanName, &v.DurationDays, &v.CapitalReturn)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investment: %w", err)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

func (r *investmentRepository) ListAccruable(ctx context.Context, day time.Time) ([]models.AccrualCandidate, error) {
	query := `
		SELECT i.id, i.user_id, p.duration_days, p.capital_return
		FROM investments i
		JOIN investment_plans p ON p.id = i.plan_id
		WHERE i.status = ? AND i.start_date <= ? AND i.end_date >= ?
		ORDER BY i.id ASC
	`
	d := day.Format(dateLayout)
	rows, err := r.q.QueryContext(ctx, query, models.InvestmentStatusActive, d, d)
	if err != nil {
		return nil, fmt.Errorf("failed to list accruable investments: %w", err)
	}
	defer rows.Close()

	var candidates []models.AccrualCandidate
	for rows.Next() {
		var c models.AccrualCandidate
		if err := rows.Scan(&c.InvestmentID, &c.UserID, &c.DurationDays, &c.CapitalReturn); err != nil {
			return nil, fmt.Errorf("failed to scan accruable investment: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func (r *investmentRepository) RecordAccrual(ctx context.Context, id uint64, amount decimal.Decimal, daysElapsed int) error {
	query := `
		UPDATE investments
		SET total_roi_earned = total_roi_earned + ?, days_elapsed = GREATEST(days_elapsed, ?), updated_at = ?
		WHERE id = ?
	`
	if _, err := r.q.ExecContext(ctx, query, amount.String(), daysElapsed, time.Now(), id); err != nil {
		return fmt.Errorf("failed to record accrual: %w", err)
	}
	return nil
}

func (r *investmentRepository) Complete(ctx context.Context, id uint64, capitalReturned bool) error {
	query := `
		UPDATE investments
		SET status = ?, capital_returned = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := r.q.ExecContext(ctx, query, models.InvestmentStatusCompleted, capitalReturned, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to complete investment: %w", err)
	}
	return nil
}

func scanInvestment(row rowScanner) (*models.Investment, error) {
	i := &models.Investment{}
	err := row.Scan(&i.ID, &i.UserID, &i.PlanID, &i.Amount, &i.RoiRate, &i.StartDate, &i.EndDate,
		&i.DaysElapsed, &i.TotalRoiEarned, &i.TotalRoiWithdrawn, &i.Status, &i.CapitalReturned,
		&i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return i, nil
}
