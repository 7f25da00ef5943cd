package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Leg is a side of a binary tree node.
type Leg string

const (
	LegLeft  Leg = "left"
	LegRight Leg = "right"
)

// Valid reports whether l names a leg.
func (l Leg) Valid() bool {
	return l == LegLeft || l == LegRight
}

// BinaryTreeNode is a user's seat in the binary tree. ParentID and Position
// are written once at insertion.
type BinaryTreeNode struct {
	ID                uint64          `db:"id" json:"id"`
	UserID            uint64          `db:"user_id" json:"user_id"`
	ParentID          *uint64         `db:"parent_id" json:"parent_id"`
	Position          *Leg            `db:"position" json:"position"`
	LeftChildID       *uint64         `db:"left_child_id" json:"left_child_id"`
	RightChildID      *uint64         `db:"right_child_id" json:"right_child_id"`
	LeftVolume        decimal.Decimal `db:"left_volume" json:"left_volume"`
	RightVolume       decimal.Decimal `db:"right_volume" json:"right_volume"`
	LeftCarryForward  decimal.Decimal `db:"left_carry_forward" json:"left_carry_forward"`
	RightCarryForward decimal.Decimal `db:"right_carry_forward" json:"right_carry_forward"`
	TotalMatched      decimal.Decimal `db:"total_matched" json:"total_matched"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// Child returns the occupant of leg, or nil.
func (n *BinaryTreeNode) Child(leg Leg) *uint64 {
	if leg == LegLeft {
		return n.LeftChildID
	}
	return n.RightChildID
}

// ChildSummary describes one direct child in the tree view.
type ChildSummary struct {
	UserID       uint64          `json:"user_id"`
	Email        string          `json:"email"`
	FirstName    string          `json:"first_name"`
	LastName     string          `json:"last_name"`
	LeftVolume   decimal.Decimal `json:"left_volume"`
	RightVolume  decimal.Decimal `json:"right_volume"`
	TotalMatched decimal.Decimal `json:"total_matched"`
}
