package handler

import (
	"net/http"
	"strconv"

	"zerostress/internal/apierror"
	"zerostress/internal/worker"

	"github.com/gin-gonic/gin"
)

// CierresHandler exposes the close-report jobs that ended in the DLQ.
type CierresHandler struct{ store worker.DLQStore }

func NewCierresHandler(store worker.DLQStore) *CierresHandler {
	return &CierresHandler{store: store}
}

// Fallidos godoc
// @Summary Reportes de cierre que agotaron sus reintentos
// @Tags cierres
// @Produce json
// @Param limit query int false "Maximo de entradas (default 50)"
// @Success 200 {array} worker.DLQEntry
// @Router /v1/cierres/fallidos [get]
func (h *CierresHandler) Fallidos(c *gin.Context) {
	limit := int64(50)
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, apierror.New("limit debe ser un entero positivo"))
			return
		}
		limit = n
	}
	entries, err := worker.ListDLQ(c.Request.Context(), h.store, worker.QueueCierre, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Reintentar godoc
// @Summary Reencola todos los reportes de cierre fallidos
// @Tags cierres
// @Produce json
// @Success 200 {object} map[string]int
// @Router /v1/cierres/fallidos/reintentar [post]
func (h *CierresHandler) Reintentar(c *gin.Context) {
	n, err := worker.RequeueDLQ(c.Request.Context(), h.store, worker.QueueCierre)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reencolados": n})
}
