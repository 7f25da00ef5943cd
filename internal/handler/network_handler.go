package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/davesep77/evolentra/internal/service"
)

// NetworkHandler serves the investor's binary tree and referral views.
type NetworkHandler struct {
	binary service.BinaryService
	users  service.UserService
}

func NewNetworkHandler(binary service.BinaryService, users service.UserService) *NetworkHandler {
	return &NetworkHandler{binary: binary, users: users}
}

// Tree handles GET /api/binary/tree
func (h *NetworkHandler) Tree(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	summary, err := h.binary.TreeSummary(c.Request.Context(), user.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", summary)
}

// Referrals handles GET /api/referrals
func (h *NetworkHandler) Referrals(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}

	summary, err := h.users.ReferralSummary(c.Request.Context(), user.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", summary)
}
