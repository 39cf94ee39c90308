package infra

import (
	"fmt"
	"io"

	"recovr/internal/dto"

	"github.com/xuri/excelize/v2"
)

const ledgerSheet = "Ledger"

// WriteLedgerWorkbook exports a client's ledger as an .xlsx workbook:
// a summary block followed by one row per payment.
func WriteLedgerWorkbook(w io.Writer, ledger *dto.LedgerResponse) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(ledgerSheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	summary := [][2]interface{}{
		{"Shop", ledger.Client.ShopName},
		{"CNIC", ledger.Client.CNIC},
		{"Phone", ledger.Client.Phone},
		{"Total Pending", ledger.Client.TotalPending.InexactFloat64()},
		{"Total Recovered", ledger.Client.TotalRecovered.InexactFloat64()},
		{"Total Trade", ledger.TotalTrade.InexactFloat64()},
	}
	for i, kv := range summary {
		row := i + 1
		if err := f.SetCellValue(ledgerSheet, fmt.Sprintf("A%d", row), kv[0]); err != nil {
			return err
		}
		if err := f.SetCellValue(ledgerSheet, fmt.Sprintf("B%d", row), kv[1]); err != nil {
			return err
		}
	}

	headerRow := len(summary) + 2
	headers := []string{"Date", "Invoice", "Paid", "Balance", "Type", "Note"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		if err := f.SetCellValue(ledgerSheet, cell, h); err != nil {
			return err
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), headerRow)
	_ = f.SetCellStyle(ledgerSheet, fmt.Sprintf("A%d", headerRow), last, bold)

	for i, p := range ledger.Payments {
		row := headerRow + 1 + i
		note := ""
		if p.Note != nil {
			note = *p.Note
		}
		values := []interface{}{
			p.CreatedAt,
			p.TotalBill.InexactFloat64(),
			p.PaidAmount.InexactFloat64(),
			p.RemainingAmount.InexactFloat64(),
			p.PaymentType,
			note,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(ledgerSheet, cell, v); err != nil {
				return err
			}
		}
	}
	_ = f.SetColWidth(ledgerSheet, "A", "A", 24)
	_ = f.SetColWidth(ledgerSheet, "F", "F", 40)

	return f.Write(w)
}
