package handler

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/davesep77/evolentra/internal/models"
	"github.com/davesep77/evolentra/internal/repository"
	"github.com/davesep77/evolentra/internal/service"
)

type mockUsers struct{ mock.Mock }

func (m *mockUsers) Register(ctx context.Context, in service.RegisterInput) (*models.User, error) {
	args := m.Called(ctx, in)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUsers) Login(ctx context.Context, in service.LoginInput) (*service.Session, error) {
	args := m.Called(ctx, in)
	s, _ := args.Get(0).(*service.Session)
	return s, args.Error(1)
}

func (m *mockUsers) SetUserStatus(ctx context.Context, userID uint64, status string) error {
	return m.Called(ctx, userID, status).Error(0)
}

func (m *mockUsers) ReferralSummary(ctx context.Context, userID uint64) (*service.ReferralSummary, error) {
	args := m.Called(ctx, userID)
	s, _ := args.Get(0).(*service.ReferralSummary)
	return s, args.Error(1)
}

type mockInvestments struct{ mock.Mock }

func (m *mockInvestments) ListPlans(ctx context.Context) ([]*models.InvestmentPlan, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).([]*models.InvestmentPlan)
	return p, args.Error(1)
}

func (m *mockInvestments) Calculate(ctx context.Context, in service.CalculatorInput) (*service.Calculation, error) {
	args := m.Called(ctx, in)
	c, _ := args.Get(0).(*service.Calculation)
	return c, args.Error(1)
}

func (m *mockInvestments) CreateInvestment(ctx context.Context, userID, planID uint64, amount decimal.Decimal) (*service.InvestmentReceipt, error) {
	args := m.Called(ctx, userID, planID, amount)
	r, _ := args.Get(0).(*service.InvestmentReceipt)
	return r, args.Error(1)
}

func (m *mockInvestments) ListUserInvestments(ctx context.Context, userID uint64) ([]models.InvestmentView, error) {
	args := m.Called(ctx, userID)
	v, _ := args.Get(0).([]models.InvestmentView)
	return v, args.Error(1)
}

type mockWallets struct{ mock.Mock }

func (m *mockWallets) Balances(ctx context.Context, userID uint64) (*service.WalletOverview, error) {
	args := m.Called(ctx, userID)
	o, _ := args.Get(0).(*service.WalletOverview)
	return o, args.Error(1)
}

func (m *mockWallets) Transactions(ctx context.Context, userID uint64, limit int) ([]*models.Transaction, error) {
	args := m.Called(ctx, userID, limit)
	t, _ := args.Get(0).([]*models.Transaction)
	return t, args.Error(1)
}

func (m *mockWallets) Rates(ctx context.Context) (*service.RateTable, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).(*service.RateTable)
	return r, args.Error(1)
}

type mockWithdrawals struct{ mock.Mock }

func (m *mockWithdrawals) RequestWithdrawal(ctx context.Context, userID uint64, in service.WithdrawalInput) (*models.WithdrawalRequest, error) {
	args := m.Called(ctx, userID, in)
	w, _ := args.Get(0).(*models.WithdrawalRequest)
	return w, args.Error(1)
}

func (m *mockWithdrawals) SettleWithdrawal(ctx context.Context, adminID uint64, in service.Settlement) (*models.WithdrawalRequest, string, error) {
	args := m.Called(ctx, adminID, in)
	w, _ := args.Get(0).(*models.WithdrawalRequest)
	return w, args.String(1), args.Error(2)
}

func (m *mockWithdrawals) ListUserWithdrawals(ctx context.Context, userID uint64) ([]*models.WithdrawalRequest, error) {
	args := m.Called(ctx, userID)
	w, _ := args.Get(0).([]*models.WithdrawalRequest)
	return w, args.Error(1)
}

func (m *mockWithdrawals) ListByStatus(ctx context.Context, status string) ([]models.AdminWithdrawalView, error) {
	args := m.Called(ctx, status)
	w, _ := args.Get(0).([]models.AdminWithdrawalView)
	return w, args.Error(1)
}

type mockBinary struct{ mock.Mock }

func (m *mockBinary) PlaceUser(ctx context.Context, st repository.Store, userID, referrerID uint64) (*models.BinaryTreeNode, error) {
	args := m.Called(ctx, st, userID, referrerID)
	n, _ := args.Get(0).(*models.BinaryTreeNode)
	return n, args.Error(1)
}

func (m *mockBinary) CreateRoot(ctx context.Context, st repository.Store, userID uint64) (*models.BinaryTreeNode, error) {
	args := m.Called(ctx, st, userID)
	n, _ := args.Get(0).(*models.BinaryTreeNode)
	return n, args.Error(1)
}

func (m *mockBinary) PropagateVolume(ctx context.Context, st repository.Store, userID uint64, amount decimal.Decimal) ([]*models.BinaryCommission, error) {
	args := m.Called(ctx, st, userID, amount)
	c, _ := args.Get(0).([]*models.BinaryCommission)
	return c, args.Error(1)
}

func (m *mockBinary) TreeSummary(ctx context.Context, userID uint64) (*service.TreeSummary, error) {
	args := m.Called(ctx, userID)
	s, _ := args.Get(0).(*service.TreeSummary)
	return s, args.Error(1)
}

type mockScheduler struct{ mock.Mock }

func (m *mockScheduler) ProcessDay(ctx context.Context, day time.Time) (*service.RunReport, error) {
	args := m.Called(ctx, day)
	r, _ := args.Get(0).(*service.RunReport)
	return r, args.Error(1)
}

func (m *mockScheduler) Today() time.Time {
	return m.Called().Get(0).(time.Time)
}
