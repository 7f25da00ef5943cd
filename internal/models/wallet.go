package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is one user's balance in one currency. Balance is the spendable
// total; the ROI, referral and binary sub-balances are informational and
// already included in Balance.
type Wallet struct {
	ID              uint64          `db:"id" json:"id"`
	UserID          uint64          `db:"user_id" json:"user_id"`
	Currency        string          `db:"currency" json:"currency"`
	WalletAddress   *string         `db:"wallet_address" json:"wallet_address,omitempty"`
	Balance         decimal.Decimal `db:"balance" json:"balance"`
	RoiBalance      decimal.Decimal `db:"roi_balance" json:"roi_balance"`
	ReferralBalance decimal.Decimal `db:"referral_balance" json:"referral_balance"`
	BinaryBalance   decimal.Decimal `db:"binary_balance" json:"binary_balance"`
	TotalDeposited  decimal.Decimal `db:"total_deposited" json:"total_deposited"`
	TotalWithdrawn  decimal.Decimal `db:"total_withdrawn" json:"total_withdrawn"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// CreditKind selects which sub-balance a credit is also booked to.
type CreditKind string

const (
	CreditDeposit  CreditKind = "deposit"
	CreditRoi      CreditKind = "roi"
	CreditReferral CreditKind = "referral"
	CreditBinary   CreditKind = "binary"
	// CreditRefund covers capital return and rejected withdrawals: balance only.
	CreditRefund CreditKind = "refund"
)
