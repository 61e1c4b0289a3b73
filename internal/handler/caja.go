package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"zerostress/internal/apierror"
	"zerostress/internal/dto"
	"zerostress/internal/infra"
	"zerostress/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type CajaHandler struct{ svc service.CajaService }

func NewCajaHandler(svc service.CajaService) *CajaHandler { return &CajaHandler{svc: svc} }

// ListarFechas godoc
// @Summary Lista los dias que tienen caja, el mas reciente primero
// @Tags caja
// @Produce json
// @Success 200 {array} string
// @Router /v1/cajas [get]
func (h *CajaHandler) ListarFechas(c *gin.Context) {
	fechas, err := h.svc.ListarFechas(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fechas)
}

// Obtener godoc
// @Summary Obtiene la caja de un dia
// @Tags caja
// @Produce json
// @Param fecha path string true "Dia YYYY-MM-DD"
// @Success 200 {object} dto.CajaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/{fecha} [get]
func (h *CajaHandler) Obtener(c *gin.Context) {
	fecha := c.Param("fecha")
	resp, err := h.svc.Obtener(c.Request.Context(), fecha)
	if err != nil {
		respondError(c, err)
		return
	}
	if resp == nil {
		c.JSON(http.StatusNotFound, apierror.New(fmt.Sprintf("No hay caja para %s", fecha)))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Abrir godoc
// @Summary Abre la caja del dia (idempotente mientras este abierta)
// @Tags caja
// @Accept json
// @Produce json
// @Param fecha path string true "Dia YYYY-MM-DD"
// @Param body body dto.AbrirCajaRequest true "Datos de apertura"
// @Success 201 {object} dto.CajaResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/caja/{fecha}/abrir [post]
func (h *CajaHandler) Abrir(c *gin.Context) {
	var req dto.AbrirCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.DateKey = c.Param("fecha")

	resp, err := h.svc.Abrir(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Cerrar godoc
// @Summary Cierra la caja del dia con el efectivo contado
// @Tags caja
// @Accept json
// @Produce json
// @Param fecha path string true "Dia YYYY-MM-DD"
// @Param body body dto.CerrarCajaRequest true "Arqueo"
// @Success 200 {object} dto.CierreCajaResponse
// @Failure 404 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/caja/{fecha}/cerrar [post]
func (h *CajaHandler) Cerrar(c *gin.Context) {
	var req dto.CerrarCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.DateKey = c.Param("fecha")

	resp, err := h.svc.Cerrar(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Resumen godoc
// @Summary Movimientos combinados, totales y resumen de pagos del dia
// @Tags caja
// @Produce json
// @Param fecha path string true "Dia YYYY-MM-DD"
// @Success 200 {object} dto.ResumenCajaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/{fecha}/resumen [get]
func (h *CajaHandler) Resumen(c *gin.Context) {
	resp, err := h.svc.Resumen(c.Request.Context(), c.Param("fecha"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListarManuales godoc
// @Summary Movimientos manuales del dia, el mas reciente primero
// @Tags caja
// @Produce json
// @Param fecha path string true "Dia YYYY-MM-DD"
// @Success 200 {array} dto.CashMove
// @Router /v1/caja/{fecha}/movimientos [get]
func (h *CajaHandler) ListarManuales(c *gin.Context) {
	movs, err := h.svc.ListarManuales(c.Request.Context(), c.Param("fecha"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, movs)
}

// AgregarManual godoc
// @Summary Registra un ingreso o egreso manual en la caja abierta
// @Tags caja
// @Accept json
// @Produce json
// @Param fecha path string true "Dia YYYY-MM-DD"
// @Param body body dto.MovimientoManualRequest true "Movimiento"
// @Success 201 {object} dto.CashMove
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/caja/{fecha}/movimientos [post]
func (h *CajaHandler) AgregarManual(c *gin.Context) {
	var req dto.MovimientoManualRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.DateKey = c.Param("fecha")

	resp, err := h.svc.AgregarManual(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// EliminarManual godoc
// @Summary Elimina un movimiento manual de la caja abierta
// @Tags caja
// @Param fecha path string true "Dia YYYY-MM-DD"
// @Param id path string true "UUID del movimiento"
// @Success 204
// @Failure 409 {object} apierror.APIError
// @Router /v1/caja/{fecha}/movimientos/{id} [delete]
func (h *CajaHandler) EliminarManual(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	if err := h.svc.EliminarManual(c.Request.Context(), c.Param("fecha"), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListarPagos godoc
// @Summary Movimientos derivados de los pagos del dia
// @Tags caja
// @Produce json
// @Param fecha path string true "Dia YYYY-MM-DD"
// @Success 200 {array} dto.CashMove
// @Router /v1/caja/{fecha}/pagos [get]
func (h *CajaHandler) ListarPagos(c *gin.Context) {
	movs, err := h.svc.ListarPagos(c.Request.Context(), c.Param("fecha"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, movs)
}

// Exportar godoc
// @Summary Descarga la caja del dia como planilla xlsx
// @Tags caja
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param fecha path string true "Dia YYYY-MM-DD"
// @Success 200 {file} file
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/{fecha}/exportar [get]
func (h *CajaHandler) Exportar(c *gin.Context) {
	fecha := c.Param("fecha")
	resumen, err := h.svc.Resumen(c.Request.Context(), fecha)
	if err != nil {
		respondError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := infra.WriteCajaXLSX(&buf, resumen); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="caja_%s.xlsx"`, fecha))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
