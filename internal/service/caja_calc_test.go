package service

import (
	"testing"
	"time"

	"zerostress/internal/dto"
	"zerostress/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func move(id, tipo, source, amount string, at time.Time) dto.CashMove {
	return dto.CashMove{ID: id, Tipo: tipo, Source: source, Amount: decimal.RequireFromString(amount), CreatedAt: at}
}

func TestCalcTotals_SinDeriva(t *testing.T) {
	at := time.Now()
	var moves []dto.CashMove
	for i := 0; i < 10; i++ {
		moves = append(moves, move("i", model.MovIngreso, model.SourceManual, "0.10", at))
	}
	moves = append(moves, move("e", model.MovEgreso, model.SourceManual, "0.30", at))

	counted := decimal.RequireFromString("1.00")
	totals := CalcTotals(decimal.Zero, moves, &counted)

	assert.True(t, totals.Ingresos.Equal(decimal.NewFromInt(1)))
	assert.True(t, totals.Theoretical.Equal(decimal.RequireFromString("0.70")))
	require.NotNil(t, totals.Diff)
	assert.True(t, totals.Diff.Equal(decimal.RequireFromString("0.30")))
}

func TestCalcTotals_SinContadoNoHayDiferencia(t *testing.T) {
	totals := CalcTotals(decimal.NewFromInt(10), nil, nil)
	assert.True(t, totals.Theoretical.Equal(decimal.NewFromInt(10)))
	assert.Nil(t, totals.Counted)
	assert.Nil(t, totals.Diff)
}

func TestMergeMoves_OrdenDescendenteEstable(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	manualMoves := []dto.CashMove{
		move("m1", model.MovIngreso, model.SourceManual, "1", t0),
		move("m2", model.MovIngreso, model.SourceManual, "1", t0.Add(2*time.Minute)),
	}
	paymentMoves := []dto.CashMove{
		move("p1", model.MovIngreso, model.SourcePayment, "1", t0),
		move("p2", model.MovIngreso, model.SourcePayment, "1", t0.Add(time.Minute)),
	}

	merged := MergeMoves(manualMoves, paymentMoves)

	ids := make([]string, 0, len(merged))
	for _, m := range merged {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"m2", "p2", "m1", "p1"}, ids)
}

func TestSummarizePayments_AgrupaYOrdena(t *testing.T) {
	at := time.Now()
	withType := func(m dto.CashMove, tipo string) dto.CashMove {
		m.Payment = &dto.MovePayment{PaymentType: tipo}
		return m
	}
	moves := []dto.CashMove{
		withType(move("1", model.MovIngreso, model.SourcePayment, "10", at), "Efectivo"),
		withType(move("2", model.MovIngreso, model.SourcePayment, "40", at), "Tarjeta"),
		withType(move("3", model.MovIngreso, model.SourcePayment, "15", at), "Efectivo"),
		withType(move("4", model.MovIngreso, model.SourcePayment, "5", at), ""),
		move("5", model.MovIngreso, model.SourceManual, "100", at),
	}

	summary := SummarizePayments(moves)

	require.Len(t, summary, 3)
	assert.Equal(t, "Tarjeta", summary[0].PaymentType)
	assert.Equal(t, "Efectivo", summary[1].PaymentType)
	assert.True(t, summary[1].Amount.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, 2, summary[1].Count)
	assert.Equal(t, tipoDesconocido, summary[2].PaymentType)
}

func TestSummarizePayments_VacioNoEsNil(t *testing.T) {
	assert.NotNil(t, SummarizePayments(nil))
}

func TestDateKeyOf_UsaZonaLocal(t *testing.T) {
	gye := time.FixedZone("GYE", -5*60*60)
	at := time.Date(2025, 1, 16, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-01-15", DateKeyOf(at, gye))
	assert.Equal(t, "2025-01-16", DateKeyOf(at, time.UTC))
}

func TestPagoToMove_SinTipo(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := pagoToMove(model.Pago{ID: "9", Total: decimal.NewFromInt(3), PaidAt: &at}, "2025-03-01", time.UTC)
	assert.Equal(t, "Pago (Desconocido)", m.Concept)
	assert.Equal(t, model.MovIngreso, m.Tipo)
	assert.Equal(t, model.SourcePayment, m.Source)
}
