package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davesep77/evolentra/internal/models"
)

func TestWithdrawalRepository_Settle(t *testing.T) {
	at := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	notes := "paid on chain"

	tests := []struct {
		name      string
		affected  int64
		expectErr error
	}{
		{name: "pending request", affected: 1},
		{name: "already settled", affected: 0, expectErr: ErrAlreadySettled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectExec(`UPDATE withdrawal_requests SET status = \?, approved_by = \?, approved_at = \?, admin_notes = \?, updated_at = \? WHERE id = \? AND status = \?`).
				WithArgs(models.WithdrawalApproved, 1, at, notes, at, 12, models.WithdrawalPending).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err = NewWithdrawalRepository(db).Settle(context.Background(), 12, models.WithdrawalApproved, 1, &notes, at)
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
			} else {
				assert.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestWithdrawalRepository_ListByStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`FROM withdrawal_requests w\s+JOIN users u ON u.id = w.user_id\s+WHERE w.status = \?`).
		WithArgs(models.WithdrawalPending, 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "currency", "amount", "fee", "net_amount",
			"wallet_address", "status", "admin_notes", "approved_by", "approved_at", "created_at", "updated_at",
			"email", "first_name", "last_name"}).
			AddRow(12, 7, "USDT", "100", "7", "93", "TQn9Y2khEsLJW1ChVWFMSMeRDow5KcbLSE", "pending",
				nil, nil, nil, now, now, "b@example.com", "Bea", "Investor"))

	views, err := NewWithdrawalRepository(db).ListByStatus(context.Background(), models.WithdrawalPending, 50)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "b@example.com", views[0].Email)
	assert.Equal(t, "93", views[0].NetAmount.String())
	assert.Nil(t, views[0].ApprovedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}
