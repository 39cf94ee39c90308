package handler

import (
	"net/http"

	"recovr/internal/middleware"
	"recovr/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MeHandler serves the CLIENT self-service view.
type MeHandler struct {
	clients service.ClientService
	ledger  service.LedgerService
}

func NewMeHandler(clients service.ClientService, ledger service.LedgerService) *MeHandler {
	return &MeHandler{clients: clients, ledger: ledger}
}

// Ledger godoc
// @Summary The caller's own shop and its payments, newest first
// @Tags me
// @Produce json
// @Success 200 {object} dto.LedgerResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/me/ledger [get]
func (h *MeHandler) Ledger(c *gin.Context) {
	ctx := c.Request.Context()
	profile, err := h.clients.FindForUser(ctx, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	resp, err := h.ledger.Ledger(ctx, uuid.MustParse(profile.ID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
