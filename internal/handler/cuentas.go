package handler

import (
	"net/http"

	"zerostress/internal/apierror"
	"zerostress/internal/dto"
	"zerostress/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CuentasHandler struct{ svc service.CuentaService }

func NewCuentasHandler(svc service.CuentaService) *CuentasHandler {
	return &CuentasHandler{svc: svc}
}

// cuentaID parses the :id path parameter, writing a 400 on failure.
func cuentaID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return uuid.Nil, false
	}
	return id, true
}

// Abrir godoc
// @Summary Abre una cuenta y reserva sus casilleros
// @Tags cuentas
// @Accept json
// @Produce json
// @Param body body dto.AbrirCuentaRequest true "Cliente y casilleros"
// @Success 201 {object} dto.CuentaResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/cuentas [post]
func (h *CuentasHandler) Abrir(c *gin.Context) {
	var req dto.AbrirCuentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Abrir(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Listar godoc
// @Summary Lista cuentas
// @Tags cuentas
// @Produce json
// @Param estado query string false "abierta | cerrada"
// @Success 200 {array} dto.CuentaResponse
// @Router /v1/cuentas [get]
func (h *CuentasHandler) Listar(c *gin.Context) {
	resp, err := h.svc.Listar(c.Request.Context(), c.Query("estado"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Obtener godoc
// @Summary Obtiene una cuenta con sus cargos y casilleros
// @Tags cuentas
// @Produce json
// @Param id path string true "UUID de la cuenta"
// @Success 200 {object} dto.CuentaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/cuentas/{id} [get]
func (h *CuentasHandler) Obtener(c *gin.Context) {
	id, ok := cuentaID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Obtener(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AgregarCargo godoc
// @Summary Agrega un cargo a una cuenta abierta
// @Tags cuentas
// @Accept json
// @Produce json
// @Param id path string true "UUID de la cuenta"
// @Param body body dto.CargoRequest true "Cargo"
// @Success 200 {object} dto.CuentaResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/cuentas/{id}/cargos [post]
func (h *CuentasHandler) AgregarCargo(c *gin.Context) {
	id, ok := cuentaID(c)
	if !ok {
		return
	}
	var req dto.CargoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AgregarCargo(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AgregarLlave godoc
// @Summary Asigna un casillero a la cuenta
// @Tags cuentas
// @Accept json
// @Produce json
// @Param id path string true "UUID de la cuenta"
// @Param body body dto.LlaveCuentaRequest true "Casillero"
// @Success 200 {object} dto.CuentaResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/cuentas/{id}/llaves [post]
func (h *CuentasHandler) AgregarLlave(c *gin.Context) {
	id, ok := cuentaID(c)
	if !ok {
		return
	}
	var req dto.LlaveCuentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AgregarLlave(c.Request.Context(), id, req.Codigo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// QuitarLlave godoc
// @Summary Libera un casillero de la cuenta
// @Tags cuentas
// @Produce json
// @Param id path string true "UUID de la cuenta"
// @Param codigo path string true "Codigo del casillero"
// @Success 200 {object} dto.CuentaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/cuentas/{id}/llaves/{codigo} [delete]
func (h *CuentasHandler) QuitarLlave(c *gin.Context) {
	id, ok := cuentaID(c)
	if !ok {
		return
	}
	resp, err := h.svc.QuitarLlave(c.Request.Context(), id, c.Param("codigo"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cerrar godoc
// @Summary Cierra la cuenta, registra el pago y libera sus casilleros
// @Tags cuentas
// @Accept json
// @Produce json
// @Param id path string true "UUID de la cuenta"
// @Param body body dto.CerrarCuentaRequest true "Pago"
// @Success 200 {object} dto.CuentaResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/cuentas/{id}/cerrar [post]
func (h *CuentasHandler) Cerrar(c *gin.Context) {
	id, ok := cuentaID(c)
	if !ok {
		return
	}
	var req dto.CerrarCuentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Cerrar(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
