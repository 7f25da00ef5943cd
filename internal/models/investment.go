package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	InvestmentStatusActive    = "active"
	InvestmentStatusCompleted = "completed"
)

type Investment struct {
	ID                uint64          `db:"id" json:"id"`
	UserID            uint64          `db:"user_id" json:"user_id"`
	PlanID            uint64          `db:"plan_id" json:"plan_id"`
	Amount            decimal.Decimal `db:"amount" json:"amount"`
	RoiRate           decimal.Decimal `db:"roi_rate" json:"roi_rate"`
	StartDate         time.Time       `db:"start_date" json:"start_date"`
	EndDate           time.Time       `db:"end_date" json:"end_date"`
	DaysElapsed       int             `db:"days_elapsed" json:"days_elapsed"`
	TotalRoiEarned    decimal.Decimal `db:"total_roi_earned" json:"total_roi_earned"`
	TotalRoiWithdrawn decimal.Decimal `db:"total_roi_withdrawn" json:"total_roi_withdrawn"`
	Status            string          `db:"status" json:"status"`
	CapitalReturned   bool            `db:"capital_returned" json:"capital_returned"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// DailyRoi is amount * roi_rate / 100.
func (i *Investment) DailyRoi() decimal.Decimal {
	return i.Amount.Mul(i.RoiRate).Div(decimal.NewFromInt(100))
}

// InvestmentView is an investment joined with its plan for the investor.
type InvestmentView struct {
	Investment
	PlanName      string          `json:"plan_name"`
	DurationDays  int             `json:"duration_days"`
	CapitalReturn bool            `json:"capital_return"`
	RoiAvailable  decimal.Decimal `json:"roi_available"`
	DaysRemaining int             `json:"days_remaining"`
}

// AccrualCandidate is what the daily ROI run needs to know up front.
type AccrualCandidate struct {
	InvestmentID  uint64
	UserID        uint64
	DurationDays  int
	CapitalReturn bool
}

// RoiPayout records one day's ROI for one investment. (InvestmentID,
// PayoutDate) is unique.
type RoiPayout struct {
	ID           uint64          `db:"id" json:"id"`
	InvestmentID uint64          `db:"investment_id" json:"investment_id"`
	UserID       uint64          `db:"user_id" json:"user_id"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	PayoutDate   time.Time       `db:"payout_date" json:"payout_date"`
	DayNumber    int             `db:"day_number" json:"day_number"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
