package infra

// pdf.go: closing report ("arqueo de caja") rendered with go-pdf/fpdf.
// One A4 page: business header, session times, totals block, reconciliation
// result, expense list and the denomination ledger when one was recorded.
// The file is saved to storagePath/cierre_{session_id}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cajaflow/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// CierreReport is everything the closing PDF shows.
type CierreReport struct {
	BusinessName  string
	Timezone      string
	Session       *model.CashSession
	Expenses      []model.Expense
	Denominations []model.DenominationCount
}

// GenerateCierrePDF renders the report of a closed session and returns the
// path of the written file.
func GenerateCierrePDF(r CierreReport, storagePath string) (string, error) {
	s := r.Session
	if s == nil || s.ClosedAt == nil {
		return "", fmt.Errorf("pdf: session is not closed")
	}
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, fmt.Sprintf("cierre_%s.pdf", s.ID))

	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		loc = time.UTC
	}
	fecha := func(t time.Time) string { return t.In(loc).Format("02/01/2006 15:04") }
	opened := s.OpenedAt
	closed := *s.ClosedAt

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30
	labelW := contentW * 0.6
	valueW := contentW * 0.4

	line := func(label string, v decimal.Decimal) {
		pdf.CellFormat(labelW, 6, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, 6, "$"+v.StringFixed(2), "", 1, "R", false, 0, "")
	}
	separator := func() {
		pdf.Ln(2)
		pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
		pdf.Ln(3)
	}

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, tr(r.BusinessName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW, 6, tr("Arqueo de caja"), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, tr("Sesión: "+s.ID.String()), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 5, tr("Apertura: "+fecha(opened)), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 5, tr("Cierre: "+fecha(closed)), "", 1, "L", false, 0, "")
	separator()

	// ── Totals ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 10)
	line("Monto inicial", s.InitialCash)
	line("Ventas en efectivo", s.CashSales)
	line("Ventas por transferencia", s.TransferSales)
	line("Gastos", s.ExpensesTotal)
	if s.ExpectedCash != nil {
		pdf.SetFont("Helvetica", "B", 10)
		line("Efectivo esperado", *s.ExpectedCash)
	}
	separator()

	// ── Reconciliation ───────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 10)
	if s.ActualCashCounted != nil {
		line("Efectivo contado", *s.ActualCashCounted)
	}
	if s.Difference != nil {
		pdf.SetFont("Helvetica", "B", 11)
		line("Diferencia", *s.Difference)
	}
	if s.DifferenceType != nil {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(contentW, 6, tr("Resultado: "+*s.DifferenceType), "", 1, "L", false, 0, "")
	}
	if s.ClosingNotes != nil {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(contentW, 5, tr("Notas: "+*s.ClosingNotes), "", "L", false)
	}

	// ── Expenses ─────────────────────────────────────────────────────────────
	if len(r.Expenses) > 0 {
		separator()
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(contentW, 6, "Gastos", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		for _, g := range r.Expenses {
			desc := g.Description
			if len(desc) > 60 {
				desc = desc[:59] + "..."
			}
			line(desc, g.Amount)
		}
	}

	// ── Denominations ────────────────────────────────────────────────────────
	if len(r.Denominations) > 0 {
		separator()
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(contentW*0.3, 6, "Tipo", "B", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.25, 6, "Valor", "B", 0, "R", false, 0, "")
		pdf.CellFormat(contentW*0.2, 6, "Cantidad", "B", 0, "R", false, 0, "")
		pdf.CellFormat(contentW*0.25, 6, "Subtotal", "B", 1, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		for _, d := range r.Denominations {
			tipo := "Billete"
			if d.Type == "coin" {
				tipo = "Moneda"
			}
			subtotal := d.Value.Mul(decimal.NewFromInt(int64(d.Quantity)))
			pdf.CellFormat(contentW*0.3, 5, tipo, "", 0, "L", false, 0, "")
			pdf.CellFormat(contentW*0.25, 5, "$"+d.Value.StringFixed(2), "", 0, "R", false, 0, "")
			pdf.CellFormat(contentW*0.2, 5, fmt.Sprintf("%d", d.Quantity), "", 0, "R", false, 0, "")
			pdf.CellFormat(contentW*0.25, 5, "$"+subtotal.StringFixed(2), "", 1, "R", false, 0, "")
		}
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}
