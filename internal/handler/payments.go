package handler

import (
	"net/http"

	"recovr/internal/dto"
	"recovr/internal/middleware"
	"recovr/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentsHandler struct{ ledger service.LedgerService }

func NewPaymentsHandler(ledger service.LedgerService) *PaymentsHandler {
	return &PaymentsHandler{ledger: ledger}
}

// Record godoc
// @Summary Record an invoice, a recovery, or both
// @Description Updates the client's balances and appends one payment atomically.
// @Tags payments
// @Accept json
// @Produce json
// @Param body body dto.PaymentDraft true "Payment"
// @Success 201 {object} dto.PaymentResponse
// @Failure 404 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/payments [post]
func (h *PaymentsHandler) Record(c *gin.Context) {
	var req dto.PaymentDraft
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.ledger.RecordPayment(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
