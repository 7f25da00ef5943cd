package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/davesep77/evolentra/internal/service"
)

type InvestmentHandler struct {
	investments service.InvestmentService
}

func NewInvestmentHandler(investments service.InvestmentService) *InvestmentHandler {
	return &InvestmentHandler{investments: investments}
}

type createInvestmentRequest struct {
	PlanID uint64          `json:"plan_id" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
}

// ListPlans handles GET /api/plans
func (h *InvestmentHandler) ListPlans(c *gin.Context) {
	plans, err := h.investments.ListPlans(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", plans)
}

// Calculate handles POST /api/plans/calculate
func (h *InvestmentHandler) Calculate(c *gin.Context) {
	var req service.CalculatorInput
	if !bind(c, &req) {
		return
	}

	calc, err := h.investments.Calculate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", calc)
}

// List handles GET /api/investments
func (h *InvestmentHandler) List(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	list, err := h.investments.ListUserInvestments(c.Request.Context(), user.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", list)
}

// Create handles POST /api/investments
func (h *InvestmentHandler) Create(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}
	var req createInvestmentRequest
	if !bind(c, &req) {
		return
	}

	receipt, err := h.investments.CreateInvestment(c.Request.Context(), user.UserID, req.PlanID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Investment created successfully", receipt)
}
