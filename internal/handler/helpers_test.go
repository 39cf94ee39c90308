package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"recovr/internal/dto"
	"recovr/internal/infra"
	"recovr/internal/kvstore"
	"recovr/internal/middleware"
	"recovr/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestValidation_CustomTags(t *testing.T) {
	ok := dto.ClientDraft{ShopName: "Madina Traders", Phone: "0300-1234567", CNIC: "35202-1234567-1"}
	assert.NoError(t, validate.Struct(ok))

	bad := ok
	bad.Phone = "042-1234567"
	bad.CNIC = "1234"
	err := validate.Struct(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pk_mobile")
	assert.Contains(t, err.Error(), "cnic")
}

func TestValidation_DecimalMin(t *testing.T) {
	draft := dto.PaymentDraft{
		ClientID:      "8d3c1a0e-6a63-4b55-9a57-30a4cb0f8e7e",
		InvoiceAmount: decimal.NewFromInt(-1),
		PaidAmount:    decimal.Zero,
	}
	assert.Error(t, validate.Struct(draft))
	draft.InvoiceAmount = decimal.NewFromInt(100)
	assert.NoError(t, validate.Struct(draft))
}

func TestRespondError_StatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&service.DuplicateIdentityError{ShopName: "Madina Traders"}, http.StatusConflict},
		{service.ErrClientNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: %w", service.ErrInvalidAmounts, service.ErrNegativeAmount), http.StatusUnprocessableEntity},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrAdminExists, http.StatusConflict},
		{service.ErrAssistantUnavailable, http.StatusServiceUnavailable},
		{&service.AssistantError{Op: "chat", Err: infra.ErrCircuitOpen}, http.StatusServiceUnavailable},
		{&service.AssistantError{Op: "chat", Err: errors.New("quota")}, http.StatusBadGateway},
		{kvstore.ErrConflict, http.StatusServiceUnavailable},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			r := gin.New()
			r.Use(middleware.ErrorHandler())
			r.GET("/", func(c *gin.Context) { respondError(c, tc.err) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tc.want, w.Code)
			assert.NotContains(t, w.Body.String(), "disk on fire")
		})
	}
}

func TestRespondError_ConflictNamesExistingShop(t *testing.T) {
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		respondError(c, &service.DuplicateIdentityError{ShopName: "Madina Traders"})
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.JSONEq(t, `{"detail":"CNIC is already registered to another shop","existing":"Madina Traders"}`, w.Body.String())
}

func TestBindAndValidate(t *testing.T) {
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var req dto.LoginRequest
		if !bindAndValidate(c, &req) {
			return
		}
		c.Status(http.StatusNoContent)
	})

	post := func(body string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusBadRequest, post(`{`))
	assert.Equal(t, http.StatusUnprocessableEntity, post(`{"identifier":""}`))
	assert.Equal(t, http.StatusNoContent, post(`{"identifier":"a@b.pk","password":"x"}`))
}
