package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const CommissionStatusPaid = "paid"

type ReferralCommission struct {
	ID               uint64          `db:"id" json:"id"`
	ReferrerID       uint64          `db:"referrer_id" json:"referrer_id"`
	ReferredID       uint64          `db:"referred_id" json:"referred_id"`
	InvestmentID     uint64          `db:"investment_id" json:"investment_id"`
	InvestmentAmount decimal.Decimal `db:"investment_amount" json:"investment_amount"`
	CommissionRate   decimal.Decimal `db:"commission_rate" json:"commission_rate"`
	CommissionAmount decimal.Decimal `db:"commission_amount" json:"commission_amount"`
	Status           string          `db:"status" json:"status"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

// BinaryCommission is one matching event at one node.
type BinaryCommission struct {
	ID                uint64          `db:"id" json:"id"`
	UserID            uint64          `db:"user_id" json:"user_id"`
	LeftVolume        decimal.Decimal `db:"left_volume" json:"left_volume"`
	RightVolume       decimal.Decimal `db:"right_volume" json:"right_volume"`
	MatchedVolume     decimal.Decimal `db:"matched_volume" json:"matched_volume"`
	CommissionRate    decimal.Decimal `db:"commission_rate" json:"commission_rate"`
	CommissionAmount  decimal.Decimal `db:"commission_amount" json:"commission_amount"`
	LeftCarryForward  decimal.Decimal `db:"left_carry_forward" json:"left_carry_forward"`
	RightCarryForward decimal.Decimal `db:"right_carry_forward" json:"right_carry_forward"`
	Status            string          `db:"status" json:"status"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}
