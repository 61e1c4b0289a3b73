package infra

// pdf.go renders the close-of-day cashbox report with go-pdf/fpdf:
//   - venue header, date and who opened/closed the box
//   - totals block (opening, ingresos, egresos, theoretical, counted, diff)
//   - payment summary by type
//   - the merged move list, newest first
//
// The output file is saved to storagePath/cierre_{dateKey}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"zerostress/internal/dto"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// GenerateCierrePDF writes the close report for one day and returns its path.
// storagePath is created if needed.
func GenerateCierrePDF(resumen *dto.ResumenCajaResponse, storagePath string) (string, error) {
	if resumen == nil || resumen.Caja == nil {
		return "", fmt.Errorf("pdf: resumen sin caja")
	}
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	caja := resumen.Caja
	filePath := filepath.Join(storagePath, fmt.Sprintf("cierre_%s.pdf", caja.DateKey))

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 24

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 8, "Zero Stress", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW, 6, tr("Cierre de caja "+caja.DateKey), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, tr(fmt.Sprintf("Apertura: %s por %s", caja.OpenedAt.Format("02/01/2006 15:04"), caja.OpenedBy)), "", 1, "L", false, 0, "")
	if caja.ClosedAt != nil {
		closedBy := ""
		if caja.ClosedBy != nil {
			closedBy = *caja.ClosedBy
		}
		pdf.CellFormat(contentW, 5, tr(fmt.Sprintf("Cierre: %s por %s", caja.ClosedAt.Format("02/01/2006 15:04"), closedBy)), "", 1, "L", false, 0, "")
	}
	if caja.Note != nil && *caja.Note != "" {
		pdf.MultiCell(contentW, 5, tr("Nota: "+*caja.Note), "", "L", false)
	}
	pdf.Ln(2)
	pdf.Line(12, pdf.GetY(), pageW-12, pdf.GetY())
	pdf.Ln(3)

	// ── Totals ───────────────────────────────────────────────────────────────
	labelW := contentW * 0.7
	valueW := contentW * 0.3
	row := func(label string, v decimal.Decimal, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(labelW, 6, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, 6, "$"+v.StringFixed(2), "", 1, "R", false, 0, "")
	}
	t := resumen.Totales
	row("Fondo inicial", t.Opening, false)
	row("Ingresos", t.Ingresos, false)
	row("Egresos", t.Egresos, false)
	row("Efectivo teórico", t.Theoretical, true)
	if t.Counted != nil {
		row("Efectivo contado", *t.Counted, false)
	}
	if t.Diff != nil {
		row("Diferencia", *t.Diff, true)
	}
	pdf.Ln(3)

	// ── Payment summary ──────────────────────────────────────────────────────
	if len(resumen.Pagos) > 0 {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(contentW, 6, "Pagos por tipo", "B", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		for _, p := range resumen.Pagos {
			pdf.CellFormat(labelW, 5, tr(fmt.Sprintf("%s (%d)", p.PaymentType, p.Count)), "", 0, "L", false, 0, "")
			pdf.CellFormat(valueW, 5, "$"+p.Amount.StringFixed(2), "", 1, "R", false, 0, "")
		}
		pdf.Ln(3)
	}

	// ── Moves ────────────────────────────────────────────────────────────────
	colHora := contentW * 0.12
	colTipo := contentW * 0.14
	colConcepto := contentW * 0.56
	colMonto := contentW * 0.18

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(colHora, 6, "Hora", "B", 0, "L", false, 0, "")
	pdf.CellFormat(colTipo, 6, "Tipo", "B", 0, "L", false, 0, "")
	pdf.CellFormat(colConcepto, 6, "Concepto", "B", 0, "L", false, 0, "")
	pdf.CellFormat(colMonto, 6, "Monto", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	for _, m := range resumen.Movimientos {
		concepto := m.Concept
		if len([]rune(concepto)) > 60 {
			concepto = string([]rune(concepto)[:59]) + "..."
		}
		sign := ""
		if m.Tipo == "Egreso" {
			sign = "-"
		}
		pdf.CellFormat(colHora, 5, m.CreatedAt.Format("15:04"), "", 0, "L", false, 0, "")
		pdf.CellFormat(colTipo, 5, m.Tipo, "", 0, "L", false, 0, "")
		pdf.CellFormat(colConcepto, 5, tr(concepto), "", 0, "L", false, 0, "")
		pdf.CellFormat(colMonto, 5, sign+"$"+m.Amount.StringFixed(2), "", 1, "R", false, 0, "")
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}
