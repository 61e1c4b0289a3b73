package handler

import (
	"net/http"

	"zerostress/internal/dto"
	"zerostress/internal/service"

	"github.com/gin-gonic/gin"
)

type LlavesHandler struct{ svc service.LlaveService }

func NewLlavesHandler(svc service.LlaveService) *LlavesHandler { return &LlavesHandler{svc: svc} }

// Tablero godoc
// @Summary Tablero de casilleros (16 Hombres + 16 Mujeres)
// @Tags llaves
// @Produce json
// @Success 200 {object} dto.TableroResponse
// @Failure 502 {object} apierror.APIError
// @Router /v1/llaves [get]
func (h *LlavesHandler) Tablero(c *gin.Context) {
	resp, err := h.svc.Tablero(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Obtener godoc
// @Summary Un casillero por codigo (3H, 12M)
// @Tags llaves
// @Produce json
// @Param codigo path string true "Codigo del casillero"
// @Success 200 {object} dto.LockerView
// @Failure 404 {object} apierror.APIError
// @Router /v1/llaves/{codigo} [get]
func (h *LlavesHandler) Obtener(c *gin.Context) {
	resp, err := h.svc.Obtener(c.Request.Context(), c.Param("codigo"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Actualizar writes the raw key fields without transition checks.
func (h *LlavesHandler) Actualizar(c *gin.Context) {
	var req dto.ActualizarLlaveRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Actualizar(c.Request.Context(), c.Param("codigo"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Asignar godoc
// @Summary Asigna un casillero libre a un cliente
// @Tags llaves
// @Accept json
// @Produce json
// @Param codigo path string true "Codigo del casillero"
// @Param body body dto.AsignarLlaveRequest true "Cliente"
// @Success 200 {object} dto.LockerView
// @Failure 409 {object} apierror.APIError
// @Router /v1/llaves/{codigo}/asignar [post]
func (h *LlavesHandler) Asignar(c *gin.Context) {
	var req dto.AsignarLlaveRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Asignar(c.Request.Context(), c.Param("codigo"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Liberar godoc
// @Summary Libera un casillero ocupado
// @Tags llaves
// @Produce json
// @Param codigo path string true "Codigo del casillero"
// @Success 200 {object} dto.LockerView
// @Failure 409 {object} apierror.APIError
// @Router /v1/llaves/{codigo}/liberar [post]
func (h *LlavesHandler) Liberar(c *gin.Context) {
	resp, err := h.svc.Liberar(c.Request.Context(), c.Param("codigo"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
