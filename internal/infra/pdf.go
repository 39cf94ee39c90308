package infra

// pdf.go — payment receipt rendering using go-pdf/fpdf.
// A7-sized slip with the company header, shop, the invoice and recovery
// amounts, the recovery in words and the balance left after this payment.
// Written to storagePath/receipt_{payment_id}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"recovr/internal/model"

	"github.com/divan/num2words"
	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// ReceiptInput is everything printed on a receipt.
type ReceiptInput struct {
	Company  string
	Client   *model.Client
	Payment  *model.Payment
	Salesman string
}

// ReceiptFileName is the on-disk (and object store) name for a payment's receipt.
func ReceiptFileName(p *model.Payment) string {
	return fmt.Sprintf("receipt_%s.pdf", p.ID)
}

// GenerateReceiptPDF renders the receipt and returns the written file path.
func GenerateReceiptPDF(in ReceiptInput, storagePath string) (string, error) {
	if in.Client == nil || in.Payment == nil {
		return "", fmt.Errorf("pdf: client and payment are required")
	}
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, ReceiptFileName(in.Payment))

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 74, Ht: 105},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(true, 4)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8
	labelW := contentW * 0.55
	valueW := contentW - labelW

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, in.Company, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Recovery Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(1)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, truncate(in.Client.ShopName, 34), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, in.Payment.CreatedAt.Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 4, "Ref "+in.Payment.ID.String()[:8], "", 1, "L", false, 0, "")
	pdf.Ln(1)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Amounts ──────────────────────────────────────────────────────────────
	row := func(label string, v decimal.Decimal, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 8)
		pdf.CellFormat(labelW, 5, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, 5, "Rs. "+v.StringFixed(2), "", 1, "R", false, 0, "")
	}
	if !in.Payment.TotalBill.IsZero() {
		row("Invoice", in.Payment.TotalBill, false)
	}
	row("Received ("+in.Payment.PaymentType+")", in.Payment.PaidAmount, true)
	row("Balance", in.Payment.RemainingAmount, false)

	pdf.Ln(1)
	pdf.SetFont("Helvetica", "I", 6)
	pdf.MultiCell(contentW, 3, AmountInWords(in.Payment.PaidAmount), "", "L", false)

	if in.Payment.Note != nil && *in.Payment.Note != "" {
		pdf.Ln(1)
		pdf.SetFont("Helvetica", "", 6)
		pdf.MultiCell(contentW, 3, truncate(*in.Payment.Note, 120), "", "L", false)
	}

	// ── Footer ────────────────────────────────────────────────────────────────
	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(1)
	pdf.SetFont("Helvetica", "", 6)
	if in.Salesman != "" {
		pdf.CellFormat(contentW, 3, "Collected by "+in.Salesman, "", 1, "C", false, 0, "")
	}
	pdf.CellFormat(contentW, 3, "Thank you for your business", "", 1, "C", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}

// AmountInWords spells a rupee amount, e.g. 3000.50 ->
// "Rupees three thousand and 50 paisa only".
func AmountInWords(amount decimal.Decimal) string {
	amount = amount.Abs().Round(2)
	rupees := amount.IntPart()
	paisa := amount.Sub(decimal.NewFromInt(rupees)).Shift(2).IntPart()

	words := num2words.Convert(int(rupees))
	if paisa > 0 {
		return fmt.Sprintf("Rupees %s and %02d paisa only", words, paisa)
	}
	return fmt.Sprintf("Rupees %s only", words)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
