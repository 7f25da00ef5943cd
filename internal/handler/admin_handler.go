package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/davesep77/evolentra/internal/service"
)

type AdminHandler struct {
	withdrawals service.WithdrawalService
	users       service.UserService
	scheduler   service.RoiScheduler
}

func NewAdminHandler(withdrawals service.WithdrawalService, users service.UserService, scheduler service.RoiScheduler) *AdminHandler {
	return &AdminHandler{withdrawals: withdrawals, users: users, scheduler: scheduler}
}

type roiRunRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type userStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active suspended"`
}

// Withdrawals handles GET /api/admin/withdrawals?status=
func (h *AdminHandler) Withdrawals(c *gin.Context) {
	list, err := h.withdrawals.ListByStatus(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", list)
}

// Settle handles POST /api/admin/withdrawals/:id/settle
func (h *AdminHandler) Settle(c *gin.Context) {
	admin, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "Withdrawal request not found")
	if !ok {
		return
	}
	var req service.Settlement
	if !bind(c, &req) {
		return
	}
	req.WithdrawalID = id

	withdrawal, message, err := h.withdrawals.SettleWithdrawal(c.Request.Context(), admin.UserID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, message, withdrawal)
}

// RunRoi handles POST /api/admin/roi/run. The body is optional; the run
// defaults to the current business date.
func (h *AdminHandler) RunRoi(c *gin.Context) {
	var req roiRunRequest
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}

	day := h.scheduler.Today()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			fail(c, http.StatusUnprocessableEntity, "The date field must be a date in YYYY-MM-DD format", nil)
			return
		}
		day = parsed
	}

	report, err := h.scheduler.ProcessDay(c.Request.Context(), day)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "ROI run completed", report)
}

// SetUserStatus handles PUT /api/admin/users/:id/status
func (h *AdminHandler) SetUserStatus(c *gin.Context) {
	id, ok := pathID(c, "id", "User not found")
	if !ok {
		return
	}
	var req userStatusRequest
	if !bind(c, &req) {
		return
	}

	if err := h.users.SetUserStatus(c.Request.Context(), id, req.Status); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "User status updated", gin.H{"id": id, "status": req.Status})
}
