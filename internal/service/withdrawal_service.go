package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/davesep77/evolentra/internal/config"
	"github.com/davesep77/evolentra/internal/errs"
	"github.com/davesep77/evolentra/internal/models"
	"github.com/davesep77/evolentra/internal/pubsub"
	"github.com/davesep77/evolentra/internal/repository"
	"github.com/davesep77/evolentra/pkg/metrics"
)

const defaultQueueLimit = 100

// WithdrawalInput is an investor's payout request.
type WithdrawalInput struct {
	Currency      string          `json:"currency" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	WalletAddress string          `json:"wallet_address" validate:"required,crypto_address"`
}

// Settlement is an admin decision on a pending request.
type Settlement struct {
	WithdrawalID uint64  `json:"-"`
	Action       string  `json:"action" validate:"required,oneof=approve reject"`
	Notes        *string `json:"notes" validate:"omitempty,max=1000"`
}

type WithdrawalService interface {
	RequestWithdrawal(ctx context.Context, userID uint64, in WithdrawalInput) (*models.WithdrawalRequest, error)
	// SettleWithdrawal applies an admin decision and returns the message to
	// show the admin.
	SettleWithdrawal(ctx context.Context, adminID uint64, in Settlement) (*models.WithdrawalRequest, string, error)
	ListUserWithdrawals(ctx context.Context, userID uint64) ([]*models.WithdrawalRequest, error)
	ListByStatus(ctx context.Context, status string) ([]models.AdminWithdrawalView, error)
}

type withdrawalService struct {
	Deps
	rules   config.Rules
	metrics *metrics.Metrics
}

func NewWithdrawalService(deps Deps, rules config.Rules, m *metrics.Metrics) WithdrawalService {
	return &withdrawalService{Deps: deps, rules: rules, metrics: m}
}

func (s *withdrawalService) RequestWithdrawal(ctx context.Context, userID uint64, in WithdrawalInput) (*models.WithdrawalRequest, error) {
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	address := strings.TrimSpace(in.WalletAddress)

	if !s.rules.IsWithdrawalCurrency(currency) {
		return nil, errs.Validation("Only %s withdrawals are supported", strings.Join(s.rules.Withdrawables(), " and "))
	}
	if in.Amount.LessThan(s.rules.MinWithdrawal) {
		return nil, errs.Validation("Minimum withdrawal amount is $%s", s.rules.MinWithdrawal.String())
	}
	if address == "" {
		return nil, errs.Validation("Wallet address is required")
	}

	fee := in.Amount.Mul(s.rules.WithdrawalFeePercent).Div(hundred)
	req := &models.WithdrawalRequest{
		UserID:        userID,
		Currency:      currency,
		Amount:        in.Amount,
		Fee:           fee,
		NetAmount:     in.Amount.Sub(fee),
		WalletAddress: address,
		Status:        models.WithdrawalPending,
	}
	onPayoutDay := s.now().In(s.rules.Location).Weekday() == s.rules.RoiWithdrawalDay

	err := s.Store.WithinTx(ctx, func(tx repository.Store) error {
		wallet, err := tx.Wallets().LockByUserAndCurrency(ctx, userID, currency)
		if err != nil {
			return errs.Persistence(err, "Failed to load wallet")
		}
		if wallet == nil {
			return errs.NotFound("Wallet not found")
		}
		if in.Amount.GreaterThan(wallet.Balance) {
			return errs.InsufficientBalance("Insufficient balance")
		}
		// Any ROI on the wallet holds the whole request to the payout day.
		if wallet.RoiBalance.IsPositive() && !onPayoutDay {
			return errs.Validation("ROI withdrawals are only allowed on %ss", s.rules.RoiWithdrawalDay)
		}

		id, err := tx.Withdrawals().Create(ctx, req)
		if err != nil {
			return errs.Persistence(err, "Failed to create withdrawal request")
		}
		req.ID = id

		if err := tx.Wallets().Debit(ctx, userID, currency, in.Amount); err != nil {
			return walletError(err, "Failed to debit wallet")
		}

		_, err = tx.Transactions().Create(ctx, &models.Transaction{
			UserID:        userID,
			Type:          models.TxWithdrawal,
			Currency:      currency,
			Amount:        req.Amount,
			Fee:           req.Fee,
			NetAmount:     req.NetAmount,
			Status:        models.TxStatusPending,
			ReferenceID:   uint64Ptr(id),
			WalletAddress: stringPtr(address),
		})
		if err != nil {
			return errs.Persistence(err, "Failed to record withdrawal transaction")
		}
		return nil
	})
	if err != nil {
		return nil, errs.Persistence(err, "Failed to create withdrawal request")
	}

	req.CreatedAt = s.now()
	s.countStatus(models.WithdrawalPending)
	s.publish(ctx, pubsub.LedgerEvent{Type: pubsub.EventWithdrawalCreated, UserID: userID, Payload: req})
	s.Log.WithUserID(userID).WithField("withdrawal_id", req.ID).WithField("amount", req.Amount.String()).Info("withdrawal requested")
	return req, nil
}

func (s *withdrawalService) SettleWithdrawal(ctx context.Context, adminID uint64, in Settlement) (*models.WithdrawalRequest, string, error) {
	var status, message string
	switch in.Action {
	case models.ActionApprove:
		status, message = models.WithdrawalApproved, "Withdrawal approved successfully"
	case models.ActionReject:
		status, message = models.WithdrawalRejected, "Withdrawal rejected and funds refunded"
	default:
		return nil, "", errs.Validation("Action must be approve or reject")
	}

	var req *models.WithdrawalRequest
	at := s.now()
	err := s.Store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		req, err = tx.Withdrawals().LockByID(ctx, in.WithdrawalID)
		if err != nil {
			return errs.Persistence(err, "Failed to load withdrawal request")
		}
		if req == nil {
			return errs.NotFound("Withdrawal request not found")
		}
		if req.Status != models.WithdrawalPending {
			return errs.StateConflict("Withdrawal request already processed")
		}

		err = tx.Withdrawals().Settle(ctx, req.ID, status, adminID, in.Notes, at)
		if errors.Is(err, repository.ErrAlreadySettled) {
			return errs.StateConflict("Withdrawal request already processed")
		}
		if err != nil {
			return errs.Persistence(err, "Failed to settle withdrawal request")
		}

		txStatus := models.TxStatusCompleted
		if status == models.WithdrawalApproved {
			if err := tx.Wallets().AddTotalWithdrawn(ctx, req.UserID, req.Currency, req.Amount); err != nil {
				return walletError(err, "Failed to update wallet")
			}
		} else {
			txStatus = models.TxStatusCancelled
			if err := tx.Wallets().Credit(ctx, req.UserID, req.Currency, models.CreditRefund, req.Amount); err != nil {
				return walletError(err, "Failed to refund wallet")
			}
		}

		if err := tx.Transactions().UpdateStatusByReference(ctx, models.TxWithdrawal, req.ID, txStatus); err != nil {
			return errs.Persistence(err, "Failed to update withdrawal transaction")
		}
		return nil
	})
	if err != nil {
		return nil, "", errs.Persistence(err, "Failed to settle withdrawal request")
	}

	req.Status = status
	req.ApprovedBy = uint64Ptr(adminID)
	req.ApprovedAt = &at
	req.AdminNotes = in.Notes
	req.UpdatedAt = at

	s.countStatus(status)
	s.publish(ctx, pubsub.LedgerEvent{Type: pubsub.EventWithdrawalSettled, UserID: req.UserID, Payload: req})
	s.Log.WithUserID(req.UserID).WithField("withdrawal_id", req.ID).WithField("status", status).
		WithField("admin_id", adminID).Info("withdrawal settled")
	return req, message, nil
}

func (s *withdrawalService) ListUserWithdrawals(ctx context.Context, userID uint64) ([]*models.WithdrawalRequest, error) {
	list, err := s.Store.Withdrawals().ListByUser(ctx, userID)
	if err != nil {
		return nil, errs.Persistence(err, "Failed to load withdrawal requests")
	}
	return list, nil
}

func (s *withdrawalService) ListByStatus(ctx context.Context, status string) ([]models.AdminWithdrawalView, error) {
	if status == "" {
		status = models.WithdrawalPending
	}
	switch status {
	case models.WithdrawalPending, models.WithdrawalApproved, models.WithdrawalRejected:
	default:
		return nil, errs.Validation("Unknown withdrawal status %q", status)
	}

	list, err := s.Store.Withdrawals().ListByStatus(ctx, status, defaultQueueLimit)
	if err != nil {
		return nil, errs.Persistence(err, "Failed to load withdrawal requests")
	}
	return list, nil
}

func (s *withdrawalService) countStatus(status string) {
	if s.metrics != nil {
		s.metrics.WithdrawalsByStatus.WithLabelValues(status).Inc()
	}
}
