package handler

import (
	"errors"
	"net/http"
	"reflect"

	"recovr/internal/apierror"
	"recovr/internal/infra"
	"recovr/internal/kvstore"
	"recovr/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = validate.RegisterValidation("cnic", func(fl validator.FieldLevel) bool {
		return service.ValidCNIC(fl.Field().String())
	})
	_ = validate.RegisterValidation("pk_mobile", func(fl validator.FieldLevel) bool {
		return service.ValidMobile(fl.Field().String())
	})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid JSON: "+err.Error()))
		return false
	}
	return runValidation(c, req)
}

// bindQuery is bindAndValidate for query-string filters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return false
	}
	return runValidation(c, req)
}

func runValidation(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string)
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondError maps service errors onto the API envelope. Anything it does
// not recognize is handed to the ErrorHandler middleware, which logs it and
// answers 500 without leaking the cause.
func respondError(c *gin.Context, err error) {
	var dup *service.DuplicateIdentityError
	var aiErr *service.AssistantError

	switch {
	case errors.As(err, &dup):
		c.JSON(http.StatusConflict, apierror.NewConflict(service.ErrDuplicateIdentity.Error(), dup.ShopName))

	case errors.Is(err, service.ErrClientNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrNoClientProfile),
		errors.Is(err, service.ErrRecoveryMismatch):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))

	case errors.Is(err, service.ErrInvalidAmounts):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))

	case errors.Is(err, service.ErrInvalidCNIC),
		errors.Is(err, service.ErrInvalidPhone),
		errors.Is(err, service.ErrShopNameTooShort),
		errors.Is(err, service.ErrWeakPassword):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))

	case errors.Is(err, service.ErrIdentityTaken),
		errors.Is(err, service.ErrAdminExists):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, apierror.New(err.Error()))

	case errors.Is(err, service.ErrAssistantUnavailable),
		errors.Is(err, infra.ErrCircuitOpen):
		c.JSON(http.StatusServiceUnavailable, apierror.New("Assistant is temporarily unavailable"))

	case errors.As(err, &aiErr):
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, apierror.New("Assistant request failed"))

	case errors.Is(err, kvstore.ErrConflict):
		c.JSON(http.StatusServiceUnavailable, apierror.New("Ledger is busy, please retry"))

	default:
		_ = c.Error(err)
	}
}
