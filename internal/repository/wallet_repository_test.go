package repository

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davesep77/evolentra/internal/models"
)

var walletRowColumns = []string{"id", "user_id", "currency", "wallet_address", "balance", "roi_balance",
	"referral_balance", "binary_balance", "total_deposited", "total_withdrawn", "created_at", "updated_at"}

func TestWalletRepository_Credit(t *testing.T) {
	ctx := context.Background()
	amount := decimal.NewFromInt(45)

	tests := []struct {
		name      string
		kind      models.CreditKind
		pattern   string
		args      []driver.Value
		affected  int64
		expectErr error
	}{
		{
			name:     "deposit touches total_deposited",
			kind:     models.CreditDeposit,
			pattern:  `UPDATE wallets SET balance = balance \+ \?, total_deposited = total_deposited \+ \?`,
			args:     []driver.Value{"45", "45", sqlmock.AnyArg(), 7, "USDT"},
			affected: 1,
		},
		{
			name:     "referral touches referral_balance",
			kind:     models.CreditReferral,
			pattern:  `referral_balance = referral_balance \+ \?`,
			args:     []driver.Value{"45", "45", sqlmock.AnyArg(), 7, "USDT"},
			affected: 1,
		},
		{
			name:     "refund touches balance only",
			kind:     models.CreditRefund,
			pattern:  `UPDATE wallets SET balance = balance \+ \?, updated_at = \?`,
			args:     []driver.Value{"45", sqlmock.AnyArg(), 7, "USDT"},
			affected: 1,
		},
		{
			name:      "missing wallet",
			kind:      models.CreditRoi,
			pattern:   `roi_balance = roi_balance \+ \?`,
			args:      []driver.Value{"45", "45", sqlmock.AnyArg(), 7, "USDT"},
			affected:  0,
			expectErr: ErrWalletNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectExec(tt.pattern).
				WithArgs(tt.args...).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err = NewWalletRepository(db).Credit(ctx, 7, "USDT", tt.kind, amount)
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
			} else {
				assert.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestWalletRepository_CreditUnknownKind(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	err = NewWalletRepository(db).Credit(context.Background(), 7, "USDT", models.CreditKind("bonus"), decimal.NewFromInt(1))
	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepository_Debit(t *testing.T) {
	tests := []struct {
		name      string
		affected  int64
		expectErr error
	}{
		{name: "sufficient balance", affected: 1},
		{name: "insufficient balance", affected: 0, expectErr: ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectExec(`UPDATE wallets\s+SET balance = balance - \?, updated_at = \?\s+WHERE user_id = \? AND currency = \? AND balance >= \?`).
				WithArgs("100", sqlmock.AnyArg(), 7, "USDT", "100").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err = NewWalletRepository(db).Debit(context.Background(), 7, "USDT", decimal.NewFromInt(100))
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
			} else {
				assert.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestWalletRepository_CreateDefaults(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO wallets \(user_id, currency, created_at, updated_at\) VALUES \(\?, \?, \?, \?\), \(\?, \?, \?, \?\)`).
		WithArgs(9, "USDT", sqlmock.AnyArg(), sqlmock.AnyArg(), 9, "TRX", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 2))

	err = NewWalletRepository(db).CreateDefaults(context.Background(), 9, []string{"USDT", "TRX"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepository_LockByUserAndCurrency(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM wallets WHERE user_id = \? AND currency = \? FOR UPDATE`).
		WithArgs(7, "USDT").
		WillReturnRows(sqlmock.NewRows(walletRowColumns).
			AddRow(1, 7, "USDT", nil, "1100.00000000", "100.00000000", "0", "0", "1000", "0", now, now))

	wallet, err := NewWalletRepository(db).LockByUserAndCurrency(context.Background(), 7, "USDT")
	require.NoError(t, err)
	require.NotNil(t, wallet)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(1100)))
	assert.True(t, wallet.RoiBalance.Equal(decimal.NewFromInt(100)))
	assert.Nil(t, wallet.WalletAddress)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepository_FindMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM wallets WHERE user_id = \? AND currency = \?`).
		WithArgs(7, "XRP").
		WillReturnRows(sqlmock.NewRows(walletRowColumns))

	wallet, err := NewWalletRepository(db).FindByUserAndCurrency(context.Background(), 7, "XRP")
	require.NoError(t, err)
	assert.Nil(t, wallet)
	require.NoError(t, mock.ExpectationsWereMet())
}
