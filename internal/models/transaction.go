package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxDeposit            TransactionType = "deposit"
	TxInvestment         TransactionType = "investment"
	TxRoi                TransactionType = "roi"
	TxReferralCommission TransactionType = "referral_commission"
	TxBinaryCommission   TransactionType = "binary_commission"
	TxCapitalReturn      TransactionType = "capital_return"
	TxWithdrawal         TransactionType = "withdrawal"
)

const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusCancelled = "cancelled"
)

// Transaction is an append-only ledger entry. Only the status of a pending
// withdrawal entry ever changes.
type Transaction struct {
	ID            uint64          `db:"id" json:"id"`
	UserID        uint64          `db:"user_id" json:"user_id"`
	Type          TransactionType `db:"type" json:"type"`
	Currency      string          `db:"currency" json:"currency"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Fee           decimal.Decimal `db:"fee" json:"fee"`
	NetAmount     decimal.Decimal `db:"net_amount" json:"net_amount"`
	Status        string          `db:"status" json:"status"`
	ReferenceID   *uint64         `db:"reference_id" json:"reference_id,omitempty"`
	WalletAddress *string         `db:"wallet_address" json:"wallet_address,omitempty"`
	Notes         *string         `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}
