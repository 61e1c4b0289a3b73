package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// DateKey is filled from the :fecha path parameter, never from the body.

type AbrirCajaRequest struct {
	DateKey       string          `json:"-"`
	OpeningAmount decimal.Decimal `json:"opening_amount" validate:"min=0"`
	OpenedBy      string          `json:"opened_by"      validate:"required"`
}

type CerrarCajaRequest struct {
	DateKey     string          `json:"-"`
	CountedCash decimal.Decimal `json:"counted_cash" validate:"min=0"`
	ClosedBy    string          `json:"closed_by"    validate:"required"`
	Note        string          `json:"note"`
}

type MovimientoManualRequest struct {
	DateKey   string          `json:"-"`
	Tipo      string          `json:"type"       validate:"required,oneof=Ingreso Egreso"`
	Amount    decimal.Decimal `json:"amount"     validate:"required,gt=0"`
	Concept   string          `json:"concept"`
	CreatedBy string          `json:"created_by" validate:"required"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type CajaResponse struct {
	ID            string           `json:"id"`
	DateKey       string           `json:"date_key"`
	Estado        string           `json:"status"`
	OpenedAt      time.Time        `json:"opened_at"`
	OpenedBy      string           `json:"opened_by"`
	OpeningAmount decimal.Decimal  `json:"opening_amount"`
	ClosedAt      *time.Time       `json:"closed_at"`
	ClosedBy      *string          `json:"closed_by"`
	CountedCash   *decimal.Decimal `json:"counted_cash"`
	Note          *string          `json:"note"`
}

// MoveRef is a weak back-reference from a derived move to its payment.
type MoveRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// MovePayment carries denormalized display fields of the originating payment.
type MovePayment struct {
	PaymentType string  `json:"payment_type"`
	Bank        *string `json:"bank,omitempty"`
	Reference   *string `json:"reference,omitempty"`
}

// CashMove is a ledger entry as seen by clients, manual or payment-derived.
type CashMove struct {
	ID        string          `json:"id"`
	DateKey   string          `json:"date_key"`
	Tipo      string          `json:"type"`
	Source    string          `json:"source"`
	Concept   string          `json:"concept"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
	CreatedBy string          `json:"created_by"`
	Ref       *MoveRef        `json:"ref,omitempty"`
	Payment   *MovePayment    `json:"payment,omitempty"`
}

type CashboxTotals struct {
	Opening     decimal.Decimal  `json:"opening"`
	Ingresos    decimal.Decimal  `json:"ingresos"`
	Egresos     decimal.Decimal  `json:"egresos"`
	Theoretical decimal.Decimal  `json:"theoretical"`
	Counted     *decimal.Decimal `json:"counted,omitempty"`
	Diff        *decimal.Decimal `json:"diff,omitempty"`
}

type PaymentSummary struct {
	PaymentType string          `json:"payment_type"`
	Amount      decimal.Decimal `json:"amount"`
	Count       int             `json:"count"`
}

// ResumenCajaResponse is the full day view: box, merged moves, totals and
// the per-payment-type breakdown.
type ResumenCajaResponse struct {
	Caja        *CajaResponse    `json:"cashbox"`
	Movimientos []CashMove       `json:"moves"`
	Totales     CashboxTotals    `json:"totals"`
	Pagos       []PaymentSummary `json:"payment_summary"`
}

type CierreCajaResponse struct {
	Caja    CajaResponse  `json:"cashbox"`
	Totales CashboxTotals `json:"totals"`
}
