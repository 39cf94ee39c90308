package handler

import (
	"net/http"

	"recovr/internal/middleware"
	"recovr/internal/service"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct{ svc service.StatsService }

func NewStatsHandler(svc service.StatsService) *StatsHandler { return &StatsHandler{svc: svc} }

// Company godoc
// @Summary Company-wide recovery totals and per-salesman performance
// @Tags stats
// @Produce json
// @Success 200 {object} dto.CompanyStatsResponse
// @Router /v1/stats/company [get]
func (h *StatsHandler) Company(c *gin.Context) {
	resp, err := h.svc.Company(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *StatsHandler) Salesman(c *gin.Context) {
	resp, err := h.svc.Salesman(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
