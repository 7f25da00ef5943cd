package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	WithdrawalPending  = "pending"
	WithdrawalApproved = "approved"
	WithdrawalRejected = "rejected"
)

// Settlement actions accepted from an admin.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

type WithdrawalRequest struct {
	ID            uint64          `db:"id" json:"id"`
	UserID        uint64          `db:"user_id" json:"user_id"`
	Currency      string          `db:"currency" json:"currency"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Fee           decimal.Decimal `db:"fee" json:"fee"`
	NetAmount     decimal.Decimal `db:"net_amount" json:"net_amount"`
	WalletAddress string          `db:"wallet_address" json:"wallet_address"`
	Status        string          `db:"status" json:"status"`
	AdminNotes    *string         `db:"admin_notes" json:"admin_notes,omitempty"`
	ApprovedBy    *uint64         `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt    *time.Time      `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// AdminWithdrawalView adds the requester's identity for the review queue.
type AdminWithdrawalView struct {
	WithdrawalRequest
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
