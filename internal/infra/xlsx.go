package infra

import (
	"fmt"
	"io"

	"zerostress/internal/dto"

	excelize "github.com/xuri/excelize/v2"
)

const (
	hojaMovimientos = "Movimientos"
	hojaResumen     = "Resumen"
)

// WriteCajaXLSX writes the day's ledger as a workbook with two sheets:
// the merged moves and the totals with the payment summary.
func WriteCajaXLSX(w io.Writer, resumen *dto.ResumenCajaResponse) error {
	if resumen == nil || resumen.Caja == nil {
		return fmt.Errorf("xlsx: resumen sin caja")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", hojaMovimientos); err != nil {
		return fmt.Errorf("xlsx: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(hojaResumen); err != nil {
		return fmt.Errorf("xlsx: new sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsx: style: %w", err)
	}

	// ── Movimientos ──────────────────────────────────────────────────────────
	headers := []interface{}{"Fecha", "Hora", "Tipo", "Origen", "Concepto", "Monto", "Registrado por", "Tipo de pago"}
	if err := setRow(f, hojaMovimientos, 1, headers); err != nil {
		return err
	}
	if err := f.SetCellStyle(hojaMovimientos, "A1", "H1", bold); err != nil {
		return fmt.Errorf("xlsx: header style: %w", err)
	}
	for i, m := range resumen.Movimientos {
		tipoPago := ""
		if m.Payment != nil {
			tipoPago = m.Payment.PaymentType
		}
		row := []interface{}{
			m.DateKey, m.CreatedAt.Format("15:04:05"), m.Tipo, m.Source,
			m.Concept, m.Amount.InexactFloat64(), m.CreatedBy, tipoPago,
		}
		if err := setRow(f, hojaMovimientos, i+2, row); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(hojaMovimientos, "E", "E", 40)
	_ = f.SetColWidth(hojaMovimientos, "G", "H", 18)

	// ── Resumen ──────────────────────────────────────────────────────────────
	t := resumen.Totales
	rows := [][]interface{}{
		{"Fecha", resumen.Caja.DateKey},
		{"Estado", resumen.Caja.Estado},
		{"Fondo inicial", t.Opening.InexactFloat64()},
		{"Ingresos", t.Ingresos.InexactFloat64()},
		{"Egresos", t.Egresos.InexactFloat64()},
		{"Efectivo teórico", t.Theoretical.InexactFloat64()},
	}
	if t.Counted != nil {
		rows = append(rows, []interface{}{"Efectivo contado", t.Counted.InexactFloat64()})
	}
	if t.Diff != nil {
		rows = append(rows, []interface{}{"Diferencia", t.Diff.InexactFloat64()})
	}
	rows = append(rows, []interface{}{}, []interface{}{"Tipo de pago", "Monto", "Cantidad"})
	headerRow := len(rows)
	for _, p := range resumen.Pagos {
		rows = append(rows, []interface{}{p.PaymentType, p.Amount.InexactFloat64(), p.Count})
	}
	for i, r := range rows {
		if err := setRow(f, hojaResumen, i+1, r); err != nil {
			return err
		}
	}
	cell, _ := excelize.CoordinatesToCellName(3, headerRow)
	_ = f.SetCellStyle(hojaResumen, fmt.Sprintf("A%d", headerRow), cell, bold)
	_ = f.SetColWidth(hojaResumen, "A", "A", 22)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("xlsx: cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("xlsx: set %s: %w", cell, err)
		}
	}
	return nil
}
