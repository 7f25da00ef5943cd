package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/davesep77/evolentra/internal/models"
	"github.com/davesep77/evolentra/pkg/db"
)

const treeColumns = `id, user_id, parent_id, position, left_child_id, right_child_id,
	left_volume, right_volume, left_carry_forward, right_carry_forward, total_matched,
	created_at, updated_at`

// BinaryTreeRepository stores tree nodes. All pointers (parent_id and the
// child ids) hold user ids, not node ids.
type BinaryTreeRepository interface {
	Create(ctx context.Context, node *models.BinaryTreeNode) (uint64, error)
	FindByUserID(ctx context.Context, userID uint64) (*models.BinaryTreeNode, error)
	// LockByUserID reads the node with SELECT ... FOR UPDATE. Only
	// meaningful inside a transaction.
	LockByUserID(ctx context.Context, userID uint64) (*models.BinaryTreeNode, error)
	// AttachChild claims parent's leg for child. It reports false when the
	// leg is already occupied.
	AttachChild(ctx context.Context, parentUserID uint64, leg models.Leg, childUserID uint64) (bool, error)
	AddVolume(ctx context.Context, userID uint64, leg models.Leg, amount decimal.Decimal) error
	ApplyMatch(ctx context.Context, userID uint64, leftCarry, rightCarry, matched decimal.Decimal) error
	FindChildSummary(ctx context.Context, userID uint64) (*models.ChildSummary, error)
}

type binaryTreeRepository struct {
	q db.Querier
}

func NewBinaryTreeRepository(q db.Querier) BinaryTreeRepository {
	return &binaryTreeRepository{q: q}
}

func (r *binaryTreeRepository) Create(ctx context.Context, node *models.BinaryTreeNode) (uint64, error) {
	query := `
		INSERT INTO binary_tree (user_id, parent_id, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	var position interface{}
	if node.Position != nil {
		position = string(*node.Position)
	}
	now := time.Now()
	res, err := r.q.ExecContext(ctx, query, node.UserID, uint64Arg(node.ParentID), position, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to create tree node: %w", err)
	}
	id, err := lastInsertID(res)
	if err != nil {
		return 0, fmt.Errorf("failed to get tree node id: %w", err)
	}
	node.ID = id
	node.CreatedAt, node.UpdatedAt = now, now
	return id, nil
}

func (r *binaryTreeRepository) FindByUserID(ctx context.Context, userID uint64) (*models.BinaryTreeNode, error) {
	return r.find(ctx, "SELECT "+treeColumns+" FROM binary_tree WHERE user_id = ?", userID)
}

func (r *binaryTreeRepository) LockByUserID(ctx context.Context, userID uint64) (*models.BinaryTreeNode, error) {
	return r.find(ctx, "SELECT "+treeColumns+" FROM binary_tree WHERE user_id = ? FOR UPDATE", userID)
}

func (r *binaryTreeRepository) find(ctx context.Context, query string, userID uint64) (*models.BinaryTreeNode, error) {
	node := &models.BinaryTreeNode{}
	var parentID, leftID, rightID sql.NullInt64
	var position sql.NullString

	err := r.q.QueryRowContext(ctx, query, userID).Scan(
		&node.ID, &node.UserID, &parentID, &position, &leftID, &rightID,
		&node.LeftVolume, &node.RightVolume, &node.LeftCarryForward, &node.RightCarryForward,
		&node.TotalMatched, &node.CreatedAt, &node.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find tree node: %w", err)
	}

	node.ParentID = nullUint64(parentID)
	node.LeftChildID = nullUint64(leftID)
	node.RightChildID = nullUint64(rightID)
	if position.Valid {
		leg := models.Leg(position.String)
		node.Position = &leg
	}
	return node, nil
}

func (r *binaryTreeRepository) AttachChild(ctx context.Context, parentUserID uint64, leg models.Leg, childUserID uint64) (bool, error) {
	column, err := legColumn(leg, "child_id")
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`
		UPDATE binary_tree
		SET %s = ?, updated_at = ?
		WHERE user_id = ? AND %s IS NULL
	`, column, column)

	res, err := r.q.ExecContext(ctx, query, childUserID, time.Now(), parentUserID)
	if err != nil {
		return false, fmt.Errorf("failed to attach child: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *binaryTreeRepository) AddVolume(ctx context.Context, userID uint64, leg models.Leg, amount decimal.Decimal) error {
	column, err := legColumn(leg, "volume")
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE binary_tree
		SET %s = %s + ?, updated_at = ?
		WHERE user_id = ?
	`, column, column)

	if _, err := r.q.ExecContext(ctx, query, amount.String(), time.Now(), userID); err != nil {
		return fmt.Errorf("failed to add leg volume: %w", err)
	}
	return nil
}

func (r *binaryTreeRepository) ApplyMatch(ctx context.Context, userID uint64, leftCarry, rightCarry, matched decimal.Decimal) error {
	query := `
		UPDATE binary_tree
		SET left_volume = 0, right_volume = 0,
			left_carry_forward = ?, right_carry_forward = ?,
			total_matched = total_matched + ?, updated_at = ?
		WHERE user_id = ?
	`
	_, err := r.q.ExecContext(ctx, query, leftCarry.String(), rightCarry.String(), matched.String(), time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to apply match: %w", err)
	}
	return nil
}

func (r *binaryTreeRepository) FindChildSummary(ctx context.Context, userID uint64) (*models.ChildSummary, error) {
	query := `
		SELECT u.id, u.email, u.first_name, u.last_name, bt.left_volume, bt.right_volume, bt.total_matched
		FROM binary_tree bt
		JOIN users u ON u.id = bt.user_id
		WHERE bt.user_id = ?
	`
	s := &models.ChildSummary{}
	err := r.q.QueryRowContext(ctx, query, userID).Scan(
		&s.UserID, &s.Email, &s.FirstName, &s.LastName, &s.LeftVolume, &s.RightVolume, &s.TotalMatched)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find child summary: %w", err)
	}
	return s, nil
}

func legColumn(leg models.Leg, suffix string) (string, error) {
	if !leg.Valid() {
		return "", fmt.Errorf("invalid leg %q", leg)
	}
	return string(leg) + "_" + suffix, nil
}
