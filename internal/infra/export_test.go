package infra

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"zerostress/internal/dto"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	excelize "github.com/xuri/excelize/v2"
)

func resumenDePrueba() *dto.ResumenCajaResponse {
	at := time.Date(2025, 3, 1, 18, 30, 0, 0, time.UTC)
	counted := decimal.RequireFromString("64")
	diff := decimal.RequireFromString("-1")
	return &dto.ResumenCajaResponse{
		Caja: &dto.CajaResponse{
			DateKey:       "2025-03-01",
			Estado:        "cerrada",
			OpenedAt:      at.Add(-8 * time.Hour),
			OpenedBy:      "ana",
			OpeningAmount: decimal.RequireFromString("50"),
		},
		Movimientos: []dto.CashMove{
			{
				ID: "pago-1", DateKey: "2025-03-01", Tipo: "Ingreso", Source: "Payment",
				Concept: "Pago (Efectivo) #abcd1234", Amount: decimal.RequireFromString("20"),
				CreatedAt: at, CreatedBy: "Sistema",
				Payment: &dto.MovePayment{PaymentType: "Efectivo"},
			},
			{
				ID: "m-1", DateKey: "2025-03-01", Tipo: "Egreso", Source: "Manual",
				Concept: "Hielo", Amount: decimal.RequireFromString("5"),
				CreatedAt: at.Add(-time.Hour), CreatedBy: "ana",
			},
		},
		Totales: dto.CashboxTotals{
			Opening:     decimal.RequireFromString("50"),
			Ingresos:    decimal.RequireFromString("20"),
			Egresos:     decimal.RequireFromString("5"),
			Theoretical: decimal.RequireFromString("65"),
			Counted:     &counted,
			Diff:        &diff,
		},
		Pagos: []dto.PaymentSummary{
			{PaymentType: "Efectivo", Amount: decimal.RequireFromString("20"), Count: 1},
		},
	}
}

func TestWriteCajaXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCajaXLSX(&buf, resumenDePrueba()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{hojaMovimientos, hojaResumen}, f.GetSheetList())

	v, err := f.GetCellValue(hojaMovimientos, "E2")
	require.NoError(t, err)
	assert.Equal(t, "Pago (Efectivo) #abcd1234", v)
	v, _ = f.GetCellValue(hojaMovimientos, "H2")
	assert.Equal(t, "Efectivo", v)
	v, _ = f.GetCellValue(hojaMovimientos, "E3")
	assert.Equal(t, "Hielo", v)
	v, _ = f.GetCellValue(hojaMovimientos, "H3")
	assert.Empty(t, v)

	rows, err := f.GetRows(hojaResumen)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fecha", "2025-03-01"}, rows[0])
	assert.Equal(t, "Diferencia", rows[7][0])
	assert.Equal(t, "-1", rows[7][1])
	v, _ = f.GetCellValue(hojaResumen, "A11")
	assert.Equal(t, "Efectivo", v)
}

func TestWriteCajaXLSX_SinCaja(t *testing.T) {
	assert.Error(t, WriteCajaXLSX(&bytes.Buffer{}, &dto.ResumenCajaResponse{}))
}

func TestGenerateCierrePDF(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reportes")

	path, err := GenerateCierrePDF(resumenDePrueba(), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cierre_2025-03-01.pdf"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF-")))
}

func TestMailer_Deshabilitado(t *testing.T) {
	var m *Mailer
	assert.False(t, m.Enabled())
}
