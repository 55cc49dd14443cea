package handler

import (
	"io"
	"net/http"
	"time"

	"cajaflow/internal/apierror"
	"cajaflow/internal/dto"
	"cajaflow/internal/middleware"
	"cajaflow/internal/service"

	"github.com/gin-gonic/gin"
)

// sseKeepAlive is how often an idle event stream sends a comment line so
// proxies do not drop the connection.
const sseKeepAlive = 25 * time.Second

type CajaHandler struct{ svc service.CajaService }

func NewCajaHandler(svc service.CajaService) *CajaHandler { return &CajaHandler{svc: svc} }

// Abrir godoc
// @Summary Abre una nueva sesion de caja
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.OpenSessionRequest true "Datos de apertura"
// @Success 201 {object} dto.CashSessionResponse
// @Failure 409 {object} apierror.APIError "Ya existe una caja abierta"
// @Failure 422 {object} apierror.APIError
// @Router /v1/caja/abrir [post]
func (h *CajaHandler) Abrir(c *gin.Context) {
	var req dto.OpenSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.OpenSession(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Actual godoc
// @Summary Sesion abierta del negocio con totales en vivo
// @Description Pensado para consultas periodicas; no bloquea ni escribe.
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param business_id query string true "ID del negocio"
// @Success 200 {object} dto.CashSessionResponse
// @Failure 404 {object} apierror.APIError "Sin sesion abierta"
// @Router /v1/caja/actual [get]
func (h *CajaHandler) Actual(c *gin.Context) {
	businessID, ok := uuidQuery(c, "business_id")
	if !ok {
		return
	}
	resp, err := h.svc.GetCurrentSession(c.Request.Context(), middleware.GetUserID(c), businessID)
	if err != nil {
		writeError(c, err)
		return
	}
	if resp == nil {
		c.JSON(http.StatusNotFound, apierror.New("Sin sesión abierta"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Detalle godoc
// @Summary Detalle de una sesion con gastos y denominaciones
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Success 200 {object} dto.SessionDetailResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/{id} [get]
func (h *CajaHandler) Detalle(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetSession(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RegistrarGasto godoc
// @Summary Registra un gasto en una sesion abierta
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Param body body dto.AddExpenseRequest true "Gasto"
// @Success 201 {object} dto.ExpenseResponse
// @Failure 409 {object} apierror.APIError "Sesion cerrada o inexistente"
// @Failure 422 {object} apierror.APIError
// @Router /v1/caja/{id}/gastos [post]
func (h *CajaHandler) RegistrarGasto(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.AddExpenseRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AddExpense(c.Request.Context(), middleware.GetUserID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListarGastos godoc
// @Summary Gastos de una sesion
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Success 200 {array} dto.ExpenseResponse
// @Router /v1/caja/{id}/gastos [get]
func (h *CajaHandler) ListarGastos(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListExpenses(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RegistrarDenominacion godoc
// @Summary Registra (o reemplaza) la cantidad contada de una denominacion
// @Tags caja
// @Accept json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Param body body dto.DenominationRequest true "Denominacion"
// @Success 204
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/caja/{id}/denominaciones [put]
func (h *CajaHandler) RegistrarDenominacion(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.DenominationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.RecordDenomination(c.Request.Context(), middleware.GetUserID(c), id, req); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Denominaciones godoc
// @Summary Conteo por denominaciones y subtotal
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Success 200 {object} dto.DenominationLedgerResponse
// @Router /v1/caja/{id}/denominaciones [get]
func (h *CajaHandler) Denominaciones(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetDenominations(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cerrar godoc
// @Summary Cierra la sesion conciliando el efectivo contado
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Param body body dto.CloseSessionRequest true "Conteo de cierre"
// @Success 200 {object} dto.CloseResult
// @Failure 409 {object} apierror.MismatchError "Sesion ya cerrada o conteo inconsistente"
// @Failure 422 {object} apierror.APIError
// @Router /v1/caja/{id}/cerrar [post]
func (h *CajaHandler) Cerrar(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.CloseSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CloseSession(c.Request.Context(), middleware.GetUserID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Historial godoc
// @Summary Historial paginado de sesiones del negocio
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param business_id query string true "ID del negocio"
// @Param page query int false "Pagina" default(1)
// @Param limit query int false "Tamaño de pagina" default(20)
// @Success 200 {object} dto.SessionHistoryResponse
// @Router /v1/caja/historial [get]
func (h *CajaHandler) Historial(c *gin.Context) {
	businessID, ok := uuidQuery(c, "business_id")
	if !ok {
		return
	}
	resp, err := h.svc.History(c.Request.Context(), middleware.GetUserID(c), businessID,
		intQuery(c, "page", 1), intQuery(c, "limit", 20))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Eventos godoc
// @Summary Flujo SSE de cambios de caja del negocio
// @Tags caja
// @Produce text/event-stream
// @Security BearerAuth
// @Param business_id query string true "ID del negocio"
// @Success 200 {object} dto.CajaEvent
// @Router /v1/caja/eventos [get]
func (h *CajaHandler) Eventos(c *gin.Context) {
	businessID, ok := uuidQuery(c, "business_id")
	if !ok {
		return
	}
	events, err := h.svc.Watch(c.Request.Context(), middleware.GetUserID(c), businessID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case evt, open := <-events:
			if !open {
				return false
			}
			c.SSEvent(evt.Type, evt)
			return true
		case <-keepAlive.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
