package repository

import (
	"context"
	"database/sql"

	"github.com/davesep77/evolentra/pkg/db"
)

// Store groups the repositories over one connection or one transaction.
type Store interface {
	Users() UserRepository
	Tree() BinaryTreeRepository
	Plans() PlanRepository
	Investments() InvestmentRepository
	Payouts() RoiPayoutRepository
	Wallets() WalletRepository
	Transactions() TransactionRepository
	Commissions() CommissionRepository
	Withdrawals() WithdrawalRepository

	// WithinTx runs fn with a Store bound to a single transaction. A Store
	// that is already transactional runs fn directly in its transaction.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type sqlStore struct {
	conn *sql.DB // nil when bound to a transaction

	users        UserRepository
	tree         BinaryTreeRepository
	plans        PlanRepository
	investments  InvestmentRepository
	payouts      RoiPayoutRepository
	wallets      WalletRepository
	transactions TransactionRepository
	commissions  CommissionRepository
	withdrawals  WithdrawalRepository
}

// NewStore creates a Store over the connection pool.
func NewStore(conn *sql.DB) Store {
	s := newStore(conn)
	s.conn = conn
	return s
}

func newStore(q db.Querier) *sqlStore {
	return &sqlStore{
		users:        NewUserRepository(q),
		tree:         NewBinaryTreeRepository(q),
		plans:        NewPlanRepository(q),
		investments:  NewInvestmentRepository(q),
		payouts:      NewRoiPayoutRepository(q),
		wallets:      NewWalletRepository(q),
		transactions: NewTransactionRepository(q),
		commissions:  NewCommissionRepository(q),
		withdrawals:  NewWithdrawalRepository(q),
	}
}

func (s *sqlStore) Users() UserRepository               { return s.users }
func (s *sqlStore) Tree() BinaryTreeRepository          { return s.tree }
func (s *sqlStore) Plans() PlanRepository               { return s.plans }
func (s *sqlStore) Investments() InvestmentRepository   { return s.investments }
func (s *sqlStore) Payouts() RoiPayoutRepository        { return s.payouts }
func (s *sqlStore) Wallets() WalletRepository           { return s.wallets }
func (s *sqlStore) Transactions() TransactionRepository { return s.transactions }
func (s *sqlStore) Commissions() CommissionRepository   { return s.commissions }
func (s *sqlStore) Withdrawals() WithdrawalRepository   { return s.withdrawals }

func (s *sqlStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.conn == nil {
		return fn(s)
	}
	return db.WithTx(ctx, s.conn, func(tx *sql.Tx) error {
		return fn(newStore(tx))
	})
}
