package models

import "time"

const (
	RoleInvestor = "investor"
	RoleAdmin    = "admin"

	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
)

type User struct {
	ID           uint64    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	ReferrerID   *uint64   `db:"referrer_id" json:"referrer_id,omitempty"`
	ReferralCode string    `db:"referral_code" json:"referral_code"`
	Role         string    `db:"role" json:"role"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the user may act and refer others.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// ReferralEntry is a directly referred user as shown to the referrer.
type ReferralEntry struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
