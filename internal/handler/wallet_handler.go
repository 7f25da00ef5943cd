package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/davesep77/evolentra/internal/service"
)

type WalletHandler struct {
	wallets     service.WalletService
	withdrawals service.WithdrawalService
}

func NewWalletHandler(wallets service.WalletService, withdrawals service.WithdrawalService) *WalletHandler {
	return &WalletHandler{wallets: wallets, withdrawals: withdrawals}
}

// Balances handles GET /api/wallet
func (h *WalletHandler) Balances(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	overview, err := h.wallets.Balances(c.Request.Context(), user.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", overview)
}

// Transactions handles GET /api/wallet/transactions?limit=
func (h *WalletHandler) Transactions(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fail(c, http.StatusUnprocessableEntity, "The limit field must be a positive number", nil)
			return
		}
		limit = n
	}

	txs, err := h.wallets.Transactions(c.Request.Context(), user.UserID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", txs)
}

// Withdraw handles POST /api/wallet/withdraw
func (h *WalletHandler) Withdraw(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}
	var req service.WithdrawalInput
	if !bind(c, &req) {
		return
	}

	withdrawal, err := h.withdrawals.RequestWithdrawal(c.Request.Context(), user.UserID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Withdrawal request submitted successfully", withdrawal)
}

// Withdrawals handles GET /api/wallet/withdrawals
func (h *WalletHandler) Withdrawals(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	list, err := h.withdrawals.ListUserWithdrawals(c.Request.Context(), user.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", list)
}

// Rates handles GET /api/rates
func (h *WalletHandler) Rates(c *gin.Context) {
	table, err := h.wallets.Rates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", table)
}
