package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/davesep77/evolentra/internal/models"
	"github.com/davesep77/evolentra/pkg/db"
)

// RoiPayoutRepository stores daily payouts. The table carries a unique key on
// (investment_id, payout_date); Exists is the cheap check, the key is the
// guarantee.
type RoiPayoutRepository interface {
	Exists(ctx context.Context, investmentID uint64, day time.Time) (bool, error)
	Create(ctx context.Context, payout *models.RoiPayout) (uint64, error)
}

type roiPayoutRepository struct {
	q db.Querier
}

func NewRoiPayoutRepository(q db.Querier) RoiPayoutRepository {
	return &roiPayoutRepository{q: q}
}

func (r *roiPayoutRepository) Exists(ctx context.Context, investmentID uint64, day time.Time) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM roi_payouts WHERE investment_id = ? AND payout_date = ?"
	if err := r.q.QueryRowContext(ctx, query, investmentID, day.Format(dateLayout)).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check payout: %w", err)
	}
	return count > 0, nil
}

func (r *roiPayoutRepository) Create(ctx context.Context, payout *models.RoiPayout) (uint64, error) {
	query := `
		INSERT INTO roi_payouts (investment_id, user_id, amount, payout_date, day_number, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	res, err := r.q.ExecContext(ctx, query, payout.InvestmentID, payout.UserID, payout.Amount.String(),
		payout.PayoutDate.Format(dateLayout), payout.DayNumber, now)
	if err != nil {
		return 0, fmt.Errorf("failed to create payout: %w", err)
	}
	id, err := lastInsertID(res)
	if err != nil {
		return 0, fmt.Errorf("failed to get payout id: %w", err)
	}
	payout.ID = id
	payout.CreatedAt = now
	return id, nil
}
