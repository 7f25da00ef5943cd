package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PlanStatusActive   = "active"
	PlanStatusInactive = "inactive"
)

// InvestmentPlan is a catalog entry. Rates are percentages; RoiRateMin and
// RoiRateMax are per day.
type InvestmentPlan struct {
	ID                 uint64          `db:"id" json:"id"`
	Name               string          `db:"name" json:"name"`
	MinAmount          decimal.Decimal `db:"min_amount" json:"min_amount"`
	MaxAmount          decimal.Decimal `db:"max_amount" json:"max_amount"`
	RoiRateMin         decimal.Decimal `db:"roi_rate_min" json:"roi_rate_min"`
	RoiRateMax         decimal.Decimal `db:"roi_rate_max" json:"roi_rate_max"`
	DurationDays       int             `db:"duration_days" json:"duration_days"`
	ReferralCommission decimal.Decimal `db:"referral_commission" json:"referral_commission"`
	BinaryCommission   decimal.Decimal `db:"binary_commission" json:"binary_commission"`
	CapitalReturn      bool            `db:"capital_return" json:"capital_return"`
	Status             string          `db:"status" json:"status"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

// AverageRoiRate is the rate frozen on investments of this plan.
func (p *InvestmentPlan) AverageRoiRate() decimal.Decimal {
	return p.RoiRateMin.Add(p.RoiRateMax).Div(decimal.NewFromInt(2))
}

// Accepts reports whether amount lies within the plan bounds, inclusive.
func (p *InvestmentPlan) Accepts(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(p.MinAmount) && amount.LessThanOrEqual(p.MaxAmount)
}
