package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"

	"cajaflow/internal/apierror"
	"cajaflow/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
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
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Namespace()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// uuidParam parses a path parameter; writes a 400 and returns false on error.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(name+" invalido"))
		return uuid.Nil, false
	}
	return id, true
}

// uuidQuery parses a required query parameter.
func uuidQuery(c *gin.Context, name string) (uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		c.JSON(http.StatusBadRequest, apierror.New(name+" es requerido"))
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(name+" invalido"))
		return uuid.Nil, false
	}
	return id, true
}

func intQuery(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}

// writeError maps service failures onto HTTP statuses. Anything that is not a
// *service.CajaError is handed to ErrorHandler as an internal error.
func writeError(c *gin.Context, err error) {
	var ce *service.CajaError
	if !errors.As(err, &ce) {
		_ = c.Error(err)
		return
	}
	switch ce.Kind {
	case service.KindValidation:
		c.JSON(http.StatusUnprocessableEntity, apierror.WithCode(string(ce.Kind), ce.Msg))
	case service.KindConflict, service.KindInvalidState:
		c.JSON(http.StatusConflict, apierror.WithCode(string(ce.Kind), ce.Msg))
	case service.KindIntegrityMismatch:
		c.JSON(http.StatusConflict, apierror.NewMismatch(ce.Msg, ce.Declared, ce.Ledger))
	case service.KindForbidden:
		c.JSON(http.StatusForbidden, apierror.WithCode(string(ce.Kind), ce.Msg))
	case service.KindNotFound:
		c.JSON(http.StatusNotFound, apierror.WithCode(string(ce.Kind), ce.Msg))
	default:
		_ = c.Error(err)
	}
}
