package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/davesep77/evolentra/internal/config"
	"github.com/davesep77/evolentra/internal/errs"
	"github.com/davesep77/evolentra/internal/models"
	"github.com/davesep77/evolentra/internal/pubsub"
	"github.com/davesep77/evolentra/internal/repository"
	"github.com/davesep77/evolentra/pkg/metrics"
)

const depositNote = "Automatic wallet credit for investment"

// InvestmentReceipt is returned to the investor after a successful
// investment.
type InvestmentReceipt struct {
	Investment         *models.Investment         `json:"investment"`
	PlanName           string                     `json:"plan"`
	ReferralCommission *models.ReferralCommission `json:"referral_commission,omitempty"`
	BinaryCommissions  int                        `json:"binary_commissions"`
}

type InvestmentService interface {
	ListPlans(ctx context.Context) ([]*models.InvestmentPlan, error)
	Calculate(ctx context.Context, in CalculatorInput) (*Calculation, error)
	CreateInvestment(ctx context.Context, userID, planID uint64, amount decimal.Decimal) (*InvestmentReceipt, error)
	ListUserInvestments(ctx context.Context, userID uint64) ([]models.InvestmentView, error)
}

type investmentService struct {
	Deps
	rules   config.Rules
	binary  BinaryService
	metrics *metrics.Metrics
}

func NewInvestmentService(deps Deps, rules config.Rules, binary BinaryService, m *metrics.Metrics) InvestmentService {
	return &investmentService{Deps: deps, rules: rules, binary: binary, metrics: m}
}

func (s *investmentService) ListPlans(ctx context.Context) ([]*models.InvestmentPlan, error) {
	plans, err := s.Store.Plans().ListActive(ctx)
	if err != nil {
		return nil, errs.Persistence(err, "Failed to load investment plans")
	}
	return plans, nil
}

// activePlan loads a plan and checks amount against its bounds. Nothing is
// written before this passes.
func (s *investmentService) activePlan(ctx context.Context, planID uint64, amount decimal.Decimal) (*models.InvestmentPlan, error) {
	if !amount.IsPositive() {
		return nil, errs.Validation("Invalid amount")
	}
	plan, err := s.Store.Plans().FindByID(ctx, planID)
	if err != nil {
		return nil, errs.Persistence(err, "Failed to load investment plan")
	}
	if plan == nil {
		return nil, errs.NotFound("Investment plan not found")
	}
	if plan.Status != models.PlanStatusActive {
		return nil, errs.Validation("Invalid investment plan")
	}
	if !plan.Accepts(amount) {
		return nil, errs.Validation("Investment amount must be between $%s and $%s",
			plan.MinAmount.StringFixed(2), plan.MaxAmount.StringFixed(2))
	}
	return plan, nil
}

func (s *investmentService) CreateInvestment(ctx context.Context, userID, planID uint64, amount decimal.Decimal) (*InvestmentReceipt, error) {
	plan, err := s.activePlan(ctx, planID, amount)
	if err != nil {
		return nil, err
	}

	user, err := s.Store.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, errs.Persistence(err, "Failed to load user")
	}
	if user == nil {
		return nil, errs.NotFound("User not found")
	}
	if !user.IsActive() {
		return nil, errs.StateConflict("Account is suspended")
	}

	today := s.rules.Today(s.now())
	inv := &models.Investment{
		UserID:    userID,
		PlanID:    plan.ID,
		Amount:    amount,
		RoiRate:   plan.AverageRoiRate(),
		StartDate: today,
		EndDate:   today.AddDate(0, 0, plan.DurationDays),
		Status:    models.InvestmentStatusActive,
	}

	var referral *models.ReferralCommission
	var binary []*models.BinaryCommission
	err = s.Store.WithinTx(ctx, func(tx repository.Store) error {
		id, err := tx.Investments().Create(ctx, inv)
		if err != nil {
			return errs.Persistence(err, "Failed to create investment")
		}
		inv.ID = id

		if err := tx.Wallets().Credit(ctx, userID, s.rules.BaseCurrency, models.CreditDeposit, amount); err != nil {
			return walletError(err, "Failed to credit wallet")
		}
		if err := s.record(ctx, tx, userID, models.TxDeposit, amount, id, stringPtr(depositNote)); err != nil {
			return err
		}

		referral = nil
		if user.ReferrerID != nil {
			if referral, err = s.payReferral(ctx, tx, *user.ReferrerID, userID, plan, inv); err != nil {
				return err
			}
		}

		if binary, err = s.binary.PropagateVolume(ctx, tx, userID, amount); err != nil {
			return err
		}

		return s.record(ctx, tx, userID, models.TxInvestment, amount, id, nil)
	})
	if err != nil {
		return nil, errs.Persistence(err, "Failed to create investment")
	}

	s.observe(amount, referral, binary)
	s.publish(ctx, investmentEvents(inv, referral, binary)...)
	s.Log.WithUserID(userID).WithField("investment_id", inv.ID).WithField("amount", amount.String()).Info("investment created")

	return &InvestmentReceipt{
		Investment:         inv,
		PlanName:           plan.Name,
		ReferralCommission: referral,
		BinaryCommissions:  len(binary),
	}, nil
}

func (s *investmentService) payReferral(ctx context.Context, tx repository.Store, referrerID, referredID uint64, plan *models.InvestmentPlan, inv *models.Investment) (*models.ReferralCommission, error) {
	amount := inv.Amount.Mul(plan.ReferralCommission).Div(hundred)

	c := &models.ReferralCommission{
		ReferrerID:       referrerID,
		ReferredID:       referredID,
		InvestmentID:     inv.ID,
		InvestmentAmount: inv.Amount,
		CommissionRate:   plan.ReferralCommission,
		CommissionAmount: amount,
		Status:           models.CommissionStatusPaid,
		CreatedAt:        s.now(),
	}
	id, err := tx.Commissions().CreateReferral(ctx, c)
	if err != nil {
		return nil, errs.Persistence(err, "Failed to record referral commission")
	}
	c.ID = id

	if err := tx.Wallets().Credit(ctx, referrerID, s.rules.BaseCurrency, models.CreditReferral, amount); err != nil {
		return nil, walletError(err, "Failed to credit referral commission")
	}
	if err := s.record(ctx, tx, referrerID, models.TxReferralCommission, amount, inv.ID, nil); err != nil {
		return nil, err
	}
	return c, nil
}

// record appends a completed, fee-free ledger entry.
func (s *investmentService) record(ctx context.Context, tx repository.Store, userID uint64, typ models.TransactionType, amount decimal.Decimal, refID uint64, notes *string) error {
	_, err := tx.Transactions().Create(ctx, &models.Transaction{
		UserID:      userID,
		Type:        typ,
		Currency:    s.rules.BaseCurrency,
		Amount:      amount,
		NetAmount:   amount,
		Status:      models.TxStatusCompleted,
		ReferenceID: uint64Ptr(refID),
		Notes:       notes,
	})
	if err != nil {
		return errs.Persistence(err, "Failed to record transaction")
	}
	return nil
}

func (s *investmentService) observe(amount decimal.Decimal, referral *models.ReferralCommission, binary []*models.BinaryCommission) {
	if s.metrics == nil {
		return
	}
	s.metrics.InvestmentsCreated.Inc()
	s.metrics.InvestedVolume.Add(amount.InexactFloat64())
	if referral != nil {
		s.metrics.CommissionsPaid.WithLabelValues("referral").Add(referral.CommissionAmount.InexactFloat64())
	}
	for _, c := range binary {
		s.metrics.CommissionsPaid.WithLabelValues("binary").Add(c.CommissionAmount.InexactFloat64())
	}
}

func investmentEvents(inv *models.Investment, referral *models.ReferralCommission, binary []*models.BinaryCommission) []pubsub.LedgerEvent {
	events := []pubsub.LedgerEvent{{Type: pubsub.EventInvestmentCreated, UserID: inv.UserID, Payload: inv}}
	if referral != nil {
		events = append(events, pubsub.LedgerEvent{Type: pubsub.EventCommissionPaid, UserID: referral.ReferrerID, Payload: referral})
	}
	for _, c := range binary {
		events = append(events, pubsub.LedgerEvent{Type: pubsub.EventCommissionPaid, UserID: c.UserID, Payload: c})
	}
	return events
}

func (s *investmentService) ListUserInvestments(ctx context.Context, userID uint64) ([]models.InvestmentView, error) {
	views, err := s.Store.Investments().ListByUser(ctx, userID)
	if err != nil {
		return nil, errs.Persistence(err, "Failed to load investments")
	}
	for i := range views {
		v := &views[i]
		v.RoiAvailable = v.TotalRoiEarned.Sub(v.TotalRoiWithdrawn)
		if v.Status == models.InvestmentStatusActive {
			v.DaysRemaining = max(v.DurationDays-v.DaysElapsed, 0)
		}
	}
	return views, nil
}
