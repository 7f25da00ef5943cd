package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/davesep77/evolentra/internal/models"
	"github.com/davesep77/evolentra/pkg/db"
)

const planColumns = `id, name, min_amount, max_amount, roi_rate_min, roi_rate_max, duration_days,
	referral_commission, binary_commission, capital_return, status, created_at, updated_at`

type PlanRepository interface {
	FindByID(ctx context.Context, id uint64) (*models.InvestmentPlan, error)
	ListActive(ctx context.Context) ([]*models.InvestmentPlan, error)
}

type planRepository struct {
	q db.Querier
}

func NewPlanRepository(q db.Querier) PlanRepository {
	return &planRepository{q: q}
}

func (r *planRepository) FindByID(ctx context.Context, id uint64) (*models.InvestmentPlan, error) {
	query := "SELECT " + planColumns + " FROM investment_plans WHERE id = ?"
	plan, err := scanPlan(r.q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find plan: %w", err)
	}
	return plan, nil
}

func (r *planRepository) ListActive(ctx context.Context) ([]*models.InvestmentPlan, error) {
	query := "SELECT " + planColumns + " FROM investment_plans WHERE status = ? ORDER BY min_amount ASC"
	rows, err := r.q.QueryContext(ctx, query, models.PlanStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []*models.InvestmentPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

func scanPlan(row rowScanner) (*models.InvestmentPlan, error) {
	p := &models.InvestmentPlan{}
	err := row.Scan(&p.ID, &p.Name, &p.MinAmount, &p.MaxAmount, &p.RoiRateMin, &p.RoiRateMax,
		&p.DurationDays, &p.ReferralCommission, &p.BinaryCommission, &p.CapitalReturn, &p.Status,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}
