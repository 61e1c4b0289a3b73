package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirCuentaRequest struct {
	Cliente    string   `json:"cliente"     validate:"required"`
	ClienteID  *string  `json:"cliente_id"`
	Llaves     []string `json:"llaves"      validate:"dive,required"`
	AbiertaPor string   `json:"abierta_por" validate:"required"`
}

type CargoRequest struct {
	Kind           string          `json:"kind"            validate:"required,oneof=Product Entrance Parking Other"`
	Concepto       string          `json:"concepto"        validate:"required"`
	Cantidad       int             `json:"cantidad"        validate:"required,min=1"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario" validate:"min=0"`
}

type LlaveCuentaRequest struct {
	Codigo string `json:"codigo" validate:"required"`
}

type CerrarCuentaRequest struct {
	TipoPago   string  `json:"tipo_pago"   validate:"required"`
	Banco      *string `json:"banco"`
	Referencia *string `json:"referencia"`
	CerradaPor string  `json:"cerrada_por" validate:"required"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type CargoResponse struct {
	ID             string          `json:"id"`
	Kind           string          `json:"kind"`
	Concepto       string          `json:"concepto"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	CreatedAt      time.Time       `json:"created_at"`
}

type CuentaLlaveResponse struct {
	LlaveID    string     `json:"llave_id"`
	Code       string     `json:"code"`
	ReleasedAt *time.Time `json:"released_at"`
}

type CuentaResponse struct {
	ID        string                `json:"id"`
	Cliente   string                `json:"cliente"`
	ClienteID *string               `json:"cliente_id"`
	Estado    string                `json:"estado"`
	Total     decimal.Decimal       `json:"total"`
	OpenedAt  time.Time             `json:"opened_at"`
	OpenedBy  string                `json:"opened_by"`
	ClosedAt  *time.Time            `json:"closed_at"`
	ClosedBy  *string               `json:"closed_by"`
	TipoPago  *string               `json:"tipo_pago"`
	PagoID    *string               `json:"pago_id"`
	Cargos    []CargoResponse       `json:"cargos"`
	Llaves    []CuentaLlaveResponse `json:"llaves"`
}
