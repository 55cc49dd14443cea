package handler

import (
	"net/http"

	"cajaflow/internal/apierror"
	"cajaflow/internal/middleware"
	"cajaflow/internal/service"

	"github.com/gin-gonic/gin"
)

type ReportesHandler struct{ svc service.ReporteService }

func NewReportesHandler(svc service.ReporteService) *ReportesHandler {
	return &ReportesHandler{svc: svc}
}

// Diario godoc
// @Summary Resumen de las sesiones abiertas en un dia
// @Description El dia se interpreta en la zona horaria del negocio. Las sesiones abiertas aportan totales en vivo y no suman diferencias.
// @Tags reportes
// @Produce json
// @Security BearerAuth
// @Param business_id query string true "ID del negocio"
// @Param fecha query string true "Fecha (AAAA-MM-DD)"
// @Success 200 {object} dto.DailyReport
// @Failure 422 {object} apierror.APIError
// @Router /v1/reportes/diario [get]
func (h *ReportesHandler) Diario(c *gin.Context) {
	businessID, ok := uuidQuery(c, "business_id")
	if !ok {
		return
	}
	fecha := c.Query("fecha")
	if fecha == "" {
		c.JSON(http.StatusBadRequest, apierror.New("fecha es requerida"))
		return
	}
	resp, err := h.svc.DailyReport(c.Request.Context(), middleware.GetUserID(c), businessID, fecha)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Periodo godoc
// @Summary Resumen diario de un rango de fechas (hasta 92 dias)
// @Tags reportes
// @Produce json
// @Security BearerAuth
// @Param business_id query string true "ID del negocio"
// @Param desde query string true "Desde (AAAA-MM-DD)"
// @Param hasta query string true "Hasta inclusive (AAAA-MM-DD)"
// @Success 200 {object} dto.PeriodReport
// @Failure 422 {object} apierror.APIError
// @Router /v1/reportes/periodo [get]
func (h *ReportesHandler) Periodo(c *gin.Context) {
	businessID, ok := uuidQuery(c, "business_id")
	if !ok {
		return
	}
	desde, hasta := c.Query("desde"), c.Query("hasta")
	if desde == "" || hasta == "" {
		c.JSON(http.StatusBadRequest, apierror.New("desde y hasta son requeridos"))
		return
	}
	resp, err := h.svc.PeriodReport(c.Request.Context(), middleware.GetUserID(c), businessID, desde, hasta)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
