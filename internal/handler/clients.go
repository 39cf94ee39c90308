package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"recovr/internal/apierror"
	"recovr/internal/dto"
	"recovr/internal/infra"
	"recovr/internal/middleware"
	"recovr/internal/model"
	"recovr/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ClientsHandler struct {
	clients service.ClientService
	ledger  service.LedgerService
}

func NewClientsHandler(clients service.ClientService, ledger service.LedgerService) *ClientsHandler {
	return &ClientsHandler{clients: clients, ledger: ledger}
}

// Enroll godoc
// @Summary Enroll a shop under the calling salesman
// @Tags clients
// @Accept json
// @Produce json
// @Param body body dto.ClientDraft true "Shop"
// @Success 201 {object} dto.ClientResponse
// @Failure 409 {object} apierror.ConflictError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/clients [post]
func (h *ClientsHandler) Enroll(c *gin.Context) {
	var req dto.ClientDraft
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.clients.Enroll(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Lookup godoc
// @Summary List or search clients
// @Description A salesman with no filter sees their own portfolio.
// @Tags clients
// @Produce json
// @Param salesman_id query string false "Salesman"
// @Param cnic query string false "CNIC"
// @Param phone query string false "Phone"
// @Param q query string false "Shop name or phone substring"
// @Param sort query string false "pending_desc"
// @Success 200 {array} dto.ClientResponse
// @Router /v1/clients [get]
func (h *ClientsHandler) Lookup(c *gin.Context) {
	var filter dto.ClientFilter
	if !bindQuery(c, &filter) {
		return
	}
	claims := middleware.GetClaims(c)
	if claims.Role == model.RoleSalesman && filter.SalesmanID == "" && filter.CNIC == "" && filter.Phone == "" {
		filter.SalesmanID = claims.UserID
	}
	resp, err := h.clients.Lookup(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ClientsHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.clients.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// History returns a client's payments in the order they were recorded.
func (h *ClientsHandler) History(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.ledger.History(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Ledger godoc
// @Summary Client profile with payments, newest first
// @Tags clients
// @Produce json
// @Param id path string true "Client ID"
// @Success 200 {object} dto.LedgerResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/clients/{id}/ledger [get]
func (h *ClientsHandler) Ledger(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.ledger.Ledger(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ExportLedger streams the ledger as an Excel workbook.
func (h *ClientsHandler) ExportLedger(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.ledger.Ledger(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := infra.WriteLedgerWorkbook(&buf, resp); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="ledger_%s.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid ID"))
		return uuid.Nil, false
	}
	return id, true
}
