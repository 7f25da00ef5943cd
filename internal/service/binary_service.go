package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/davesep77/evolentra/internal/config"
	"github.com/davesep77/evolentra/internal/errs"
	"github.com/davesep77/evolentra/internal/models"
	"github.com/davesep77/evolentra/internal/repository"
)

const recentCommissionLimit = 10

var hundred = decimal.NewFromInt(100)

// MatchResult is the outcome of pairing a node's two legs.
type MatchResult struct {
	LeftTotal  decimal.Decimal
	RightTotal decimal.Decimal
	Matched    decimal.Decimal
	Commission decimal.Decimal
	LeftCarry  decimal.Decimal
	RightCarry decimal.Decimal
}

// Match pairs the node's leg totals (volume plus carry-forward) at rate
// percent. It reports false when nothing can be matched.
func Match(node *models.BinaryTreeNode, rate decimal.Decimal) (MatchResult, bool) {
	r := MatchResult{
		LeftTotal:  node.LeftVolume.Add(node.LeftCarryForward),
		RightTotal: node.RightVolume.Add(node.RightCarryForward),
	}
	r.Matched = decimal.Min(r.LeftTotal, r.RightTotal)
	if !r.Matched.IsPositive() {
		return MatchResult{}, false
	}
	r.Commission = r.Matched.Mul(rate).Div(hundred)
	r.LeftCarry = decimal.Max(decimal.Zero, r.LeftTotal.Sub(r.Matched))
	r.RightCarry = decimal.Max(decimal.Zero, r.RightTotal.Sub(r.Matched))
	return r, true
}

// TreeSummary is the investor's view of their seat in the tree.
type TreeSummary struct {
	Node              *models.BinaryTreeNode     `json:"node"`
	LeftChild         *models.ChildSummary       `json:"left_child"`
	RightChild        *models.ChildSummary       `json:"right_child"`
	RecentCommissions []*models.BinaryCommission `json:"recent_commissions"`
}

type BinaryService interface {
	// PlaceUser seats userID under referrerID using a left-first descent.
	// st must be transactional.
	PlaceUser(ctx context.Context, st repository.Store, userID, referrerID uint64) (*models.BinaryTreeNode, error)
	// CreateRoot seats a user with no referrer at the top of a new tree.
	CreateRoot(ctx context.Context, st repository.Store, userID uint64) (*models.BinaryTreeNode, error)
	// PropagateVolume credits amount to every ancestor of userID and runs
	// matching at each hop. st must be transactional.
	PropagateVolume(ctx context.Context, st repository.Store, userID uint64, amount decimal.Decimal) ([]*models.BinaryCommission, error)
	TreeSummary(ctx context.Context, userID uint64) (*TreeSummary, error)
}

type binaryService struct {
	Deps
	rules config.Rules
}

func NewBinaryService(deps Deps, rules config.Rules) BinaryService {
	return &binaryService{Deps: deps, rules: rules}
}

func (s *binaryService) PlaceUser(ctx context.Context, st repository.Store, userID, referrerID uint64) (*models.BinaryTreeNode, error) {
	tree := st.Tree()

	for attempt := 1; attempt <= s.rules.PlacementAttempts; attempt++ {
		parentID, leg, err := s.findSlot(ctx, tree, referrerID)
		if err != nil {
			return nil, err
		}

		claimed, err := tree.AttachChild(ctx, parentID, leg, userID)
		if err != nil {
			return nil, errs.Persistence(err, "Failed to place user in binary tree")
		}
		if !claimed {
			s.Log.WithField("parent_id", parentID).WithField("leg", leg).Debug("placement slot taken, retrying")
			continue
		}

		node := &models.BinaryTreeNode{UserID: userID, ParentID: uint64Ptr(parentID), Position: &leg}
		id, err := tree.Create(ctx, node)
		if err != nil {
			return nil, errs.Persistence(err, "Failed to place user in binary tree")
		}
		node.ID = id
		return node, nil
	}

	return nil, errs.StateConflict("Could not find a free position in the binary tree, please retry")
}

// findSlot walks down from the referrer. Each visited node is locked so a
// concurrent placement under the same node waits for this one.
func (s *binaryService) findSlot(ctx context.Context, tree repository.BinaryTreeRepository, referrerID uint64) (uint64, models.Leg, error) {
	current := referrerID
	for {
		node, err := tree.LockByUserID(ctx, current)
		if err != nil {
			return 0, "", errs.Persistence(err, "Failed to place user in binary tree")
		}
		if node == nil {
			if current == referrerID {
				return 0, "", errs.NotFound("Referrer is not in the binary tree")
			}
			return 0, "", errs.StateConflict("Binary tree is inconsistent at user %d", current)
		}

		switch {
		case node.LeftChildID == nil:
			return current, models.LegLeft, nil
		case node.RightChildID == nil:
			return current, models.LegRight, nil
		default:
			current = *node.LeftChildID
		}
	}
}

func (s *binaryService) CreateRoot(ctx context.Context, st repository.Store, userID uint64) (*models.BinaryTreeNode, error) {
	node := &models.BinaryTreeNode{UserID: userID}
	id, err := st.Tree().Create(ctx, node)
	if err != nil {
		return nil, errs.Persistence(err, "Failed to create binary tree node")
	}
	node.ID = id
	return node, nil
}

func (s *binaryService) PropagateVolume(ctx context.Context, st repository.Store, userID uint64, amount decimal.Decimal) ([]*models.BinaryCommission, error) {
	tree := st.Tree()

	child, err := tree.FindByUserID(ctx, userID)
	if err != nil {
		return nil, errs.Persistence(err, "Failed to propagate binary volume")
	}
	if child == nil {
		s.Log.WithUserID(userID).Warn("investor has no binary tree node, skipping volume propagation")
		return nil, nil
	}

	var paid []*models.BinaryCommission
	for child.ParentID != nil {
		if child.Position == nil {
			return nil, errs.StateConflict("Binary tree is inconsistent at user %d", child.UserID)
		}
		leg := *child.Position

		parent, err := tree.LockByUserID(ctx, *child.ParentID)
		if err != nil {
			return nil, errs.Persistence(err, "Failed to propagate binary volume")
		}
		if parent == nil {
			return nil, errs.StateConflict("Binary tree is inconsistent at user %d", *child.ParentID)
		}

		if err := tree.AddVolume(ctx, parent.UserID, leg, amount); err != nil {
			return nil, errs.Persistence(err, "Failed to propagate binary volume")
		}
		if leg == models.LegLeft {
			parent.LeftVolume = parent.LeftVolume.Add(amount)
		} else {
			parent.RightVolume = parent.RightVolume.Add(amount)
		}

		commission, err := s.settleMatch(ctx, st, parent)
		if err != nil {
			return nil, err
		}
		if commission != nil {
			paid = append(paid, commission)
		}
		child = parent
	}
	return paid, nil
}

// settleMatch runs matching at node and books the commission. It returns
// nil when the legs do not match.
func (s *binaryService) settleMatch(ctx context.Context, st repository.Store, node *models.BinaryTreeNode) (*models.BinaryCommission, error) {
	rate := s.rules.BinaryCommissionRate
	res, ok := Match(node, rate)
	if !ok {
		return nil, nil
	}

	commission := &models.BinaryCommission{
		UserID:            node.UserID,
		LeftVolume:        res.LeftTotal,
		RightVolume:       res.RightTotal,
		MatchedVolume:     res.Matched,
		CommissionRate:    rate,
		CommissionAmount:  res.Commission,
		LeftCarryForward:  res.LeftCarry,
		RightCarryForward: res.RightCarry,
		Status:            models.CommissionStatusPaid,
		CreatedAt:         s.now(),
	}
	id, err := st.Commissions().CreateBinary(ctx, commission)
	if err != nil {
		return nil, errs.Persistence(err, "Failed to record binary commission")
	}
	commission.ID = id

	if err := st.Wallets().Credit(ctx, node.UserID, s.rules.BaseCurrency, models.CreditBinary, res.Commission); err != nil {
		return nil, walletError(err, "Failed to credit binary commission")
	}

	_, err = st.Transactions().Create(ctx, &models.Transaction{
		UserID:      node.UserID,
		Type:        models.TxBinaryCommission,
		Currency:    s.rules.BaseCurrency,
		Amount:      res.Commission,
		NetAmount:   res.Commission,
		Status:      models.TxStatusCompleted,
		ReferenceID: uint64Ptr(id),
	})
	if err != nil {
		return nil, errs.Persistence(err, "Failed to record binary commission")
	}

	if err := st.Tree().ApplyMatch(ctx, node.UserID, res.LeftCarry, res.RightCarry, res.Matched); err != nil {
		return nil, errs.Persistence(err, "Failed to record binary commission")
	}
	node.LeftVolume = decimal.Zero
	node.RightVolume = decimal.Zero
	node.LeftCarryForward = res.LeftCarry
	node.RightCarryForward = res.RightCarry
	node.TotalMatched = node.TotalMatched.Add(res.Matched)

	return commission, nil
}

func (s *binaryService) TreeSummary(ctx context.Context, userID uint64) (*TreeSummary, error) {
	tree := s.Store.Tree()

	node, err := tree.FindByUserID(ctx, userID)
	if err != nil {
		return nil, errs.Persistence(err, "Failed to load binary tree")
	}
	if node == nil {
		return nil, errs.NotFound("Binary tree node not found")
	}

	summary := &TreeSummary{Node: node}
	if node.LeftChildID != nil {
		if summary.LeftChild, err = tree.FindChildSummary(ctx, *node.LeftChildID); err != nil {
			return nil, errs.Persistence(err, "Failed to load binary tree")
		}
	}
	if node.RightChildID != nil {
		if summary.RightChild, err = tree.FindChildSummary(ctx, *node.RightChildID); err != nil {
			return nil, errs.Persistence(err, "Failed to load binary tree")
		}
	}

	summary.RecentCommissions, err = s.Store.Commissions().ListBinaryByUser(ctx, userID, recentCommissionLimit)
	if err != nil {
		return nil, errs.Persistence(err, "Failed to load binary commissions")
	}
	return summary, nil
}
