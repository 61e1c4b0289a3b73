package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"zerostress/internal/apierror"
	"zerostress/internal/dto"
	"zerostress/internal/model"

	"github.com/shopspring/decimal"
)

const (
	dateKeyLayout      = "2006-01-02"
	conceptoPorDefecto = "Sin concepto"
	tipoDesconocido    = "Desconocido"
	creadoPorSistema   = "Sistema"
)

// parseDateKey validates a YYYY-MM-DD key and returns the start of that day in loc.
func parseDateKey(dateKey string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateKeyLayout, dateKey, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("fecha %q inválida, se espera AAAA-MM-DD: %w", dateKey, apierror.ErrInvalidInput)
	}
	return t, nil
}

// DateKeyOf returns the local calendar day of t.
func DateKeyOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateKeyLayout)
}

// MergeMoves concatenates manual and payment moves, most recent first.
// Moves with equal timestamps keep their input order.
func MergeMoves(manual, payment []dto.CashMove) []dto.CashMove {
	out := make([]dto.CashMove, 0, len(manual)+len(payment))
	out = append(out, manual...)
	out = append(out, payment...)
	sortMovesDesc(out)
	return out
}

func sortMovesDesc(moves []dto.CashMove) {
	sort.SliceStable(moves, func(i, j int) bool {
		return moves[i].CreatedAt.After(moves[j].CreatedAt)
	})
}

// CalcTotals sums moves by type: theoretical = opening + ingresos − egresos.
// When counted is given, Diff = counted − theoretical.
func CalcTotals(opening decimal.Decimal, moves []dto.CashMove, counted *decimal.Decimal) dto.CashboxTotals {
	t := dto.CashboxTotals{
		Opening:  opening,
		Ingresos: decimal.Zero,
		Egresos:  decimal.Zero,
	}
	for _, m := range moves {
		switch m.Tipo {
		case model.MovIngreso:
			t.Ingresos = t.Ingresos.Add(m.Amount)
		case model.MovEgreso:
			t.Egresos = t.Egresos.Add(m.Amount)
		}
	}
	t.Theoretical = opening.Add(t.Ingresos).Sub(t.Egresos)
	if counted != nil {
		c := *counted
		diff := c.Sub(t.Theoretical)
		t.Counted = &c
		t.Diff = &diff
	}
	return t
}

// SummarizePayments groups payment-derived moves by payment type, largest
// amount first.
func SummarizePayments(moves []dto.CashMove) []dto.PaymentSummary {
	idx := make(map[string]int)
	out := []dto.PaymentSummary{}
	for _, m := range moves {
		if m.Source != model.SourcePayment {
			continue
		}
		label := tipoDesconocido
		if m.Payment != nil && strings.TrimSpace(m.Payment.PaymentType) != "" {
			label = m.Payment.PaymentType
		}
		i, ok := idx[label]
		if !ok {
			i = len(out)
			idx[label] = i
			out = append(out, dto.PaymentSummary{PaymentType: label, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(m.Amount)
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out
}

func manualToMove(m model.MovimientoCaja) dto.CashMove {
	return dto.CashMove{
		ID:        m.ID.String(),
		DateKey:   m.DateKey,
		Tipo:      m.Tipo,
		Source:    model.SourceManual,
		Concept:   m.Concept,
		Amount:    m.Amount,
		CreatedAt: m.CreatedAt,
		CreatedBy: m.CreatedBy,
	}
}

// pagoToMove derives a ledger move from a payment that is known to fall on
// dateKey. Negative totals are refunds and become Egreso moves.
func pagoToMove(p model.Pago, dateKey string, loc *time.Location) dto.CashMove {
	tipo := model.MovIngreso
	if p.Total.IsNegative() {
		tipo = model.MovEgreso
	}

	label := p.PaymentType
	if strings.TrimSpace(label) == "" {
		label = tipoDesconocido
	}
	concept := fmt.Sprintf("Pago (%s)", label)
	if p.TransactionID != nil && *p.TransactionID != "" {
		concept += " #" + shortID(*p.TransactionID)
	}

	return dto.CashMove{
		ID:        "pago-" + p.ID,
		DateKey:   dateKey,
		Tipo:      tipo,
		Source:    model.SourcePayment,
		Concept:   concept,
		Amount:    p.Total.Abs(),
		CreatedAt: p.PaidAt.In(loc),
		CreatedBy: creadoPorSistema,
		Ref:       &dto.MoveRef{Kind: "Payment", ID: p.ID},
		Payment: &dto.MovePayment{
			PaymentType: p.PaymentType,
			Bank:        p.Bank,
			Reference:   p.Reference,
		},
	}
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func cajaToResponse(c *model.Caja) *dto.CajaResponse {
	return &dto.CajaResponse{
		ID:            c.ID.String(),
		DateKey:       c.DateKey,
		Estado:        c.Estado,
		OpenedAt:      c.OpenedAt,
		OpenedBy:      c.OpenedBy,
		OpeningAmount: c.OpeningAmount,
		ClosedAt:      c.ClosedAt,
		ClosedBy:      c.ClosedBy,
		CountedCash:   c.CountedCash,
		Note:          c.Note,
	}
}
