// Package export renders admin invoice reports as Excel workbooks.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"topdivers/internal/models"

	"github.com/xuri/excelize/v2"
)

const invoiceSheet = "Invoices"

var invoiceHeaders = []string{
	"Invoice", "Created", "Buyer", "Email", "Phone", "Activity",
	"Amount", "Currency", "Type", "Coupon", "Status", "Picked up",
}

var statusFills = map[string]string{
	models.InvoiceStatusPaid:     "#E2EFDA",
	models.InvoiceStatusPending:  "#FFF2CC",
	models.InvoiceStatusDraft:    "#FFF2CC",
	models.InvoiceStatusOverdue:  "#FCE4D6",
	models.InvoiceStatusCanceled: "#F8CBAD",
	models.InvoiceStatusFailed:   "#F8CBAD",
}

// Period is the date range printed in the report title. A zero Period
// means all time.
type Period struct {
	From time.Time
	To   time.Time
}

func (p Period) String() string {
	if p.From.IsZero() && p.To.IsZero() {
		return "All invoices"
	}
	return fmt.Sprintf("Period: %s - %s", p.From.Format("02.01.2006"), p.To.Format("02.01.2006"))
}

// FileName is the download name for p.
func (p Period) FileName() string {
	if p.From.IsZero() && p.To.IsZero() {
		return "invoices.xlsx"
	}
	return fmt.Sprintf("invoices_%s_to_%s.xlsx", p.From.Format("2006-01-02"), p.To.Format("2006-01-02"))
}

// InvoicesXLSX writes the invoice report to w: a title row, a header row, one
// row per invoice and the paid totals per currency.
func InvoicesXLSX(w io.Writer, invoices []models.Invoice, period Period) error {
	f, err := build(invoices, period)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SaveInvoices stores the report under dir and returns its path.
func SaveInvoices(dir string, invoices []models.Invoice, period Period) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	f, err := build(invoices, period)
	if err != nil {
		return "", err
	}
	defer f.Close()

	path := filepath.Join(dir, period.FileName())
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return path, nil
}

func build(invoices []models.Invoice, period Period) (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(invoiceSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	lastCol, _ := excelize.ColumnNumberToName(len(invoiceHeaders))

	_ = f.SetCellValue(invoiceSheet, "A1", period.String())
	_ = f.MergeCell(invoiceSheet, "A1", lastCol+"1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(invoiceSheet, "A1", "A1", titleStyle)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, h := range invoiceHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(invoiceSheet, cell, h)
	}
	_ = f.SetCellStyle(invoiceSheet, "A2", lastCol+"2", headerStyle)

	styles := map[string]int{}
	totals := map[string]float64{}
	row := 3
	for _, inv := range invoices {
		if err := writeInvoiceRow(f, row, inv); err != nil {
			f.Close()
			return nil, err
		}
		if color, ok := statusFills[inv.Status]; ok {
			style, cached := styles[inv.Status]
			if !cached {
				style, _ = f.NewStyle(&excelize.Style{
					Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
				})
				styles[inv.Status] = style
			}
			cell, _ := excelize.CoordinatesToCellName(11, row)
			_ = f.SetCellStyle(invoiceSheet, cell, cell, style)
		}
		if inv.Status == models.InvoiceStatusPaid {
			totals[currency(inv)] += inv.Amount.Float()
		}
		row++
	}

	writeTotals(f, row+1, totals)

	_ = f.SetColWidth(invoiceSheet, "A", "B", 14)
	_ = f.SetColWidth(invoiceSheet, "C", "D", 28)
	_ = f.SetColWidth(invoiceSheet, "E", lastCol, 14)
	_ = f.SetPanes(invoiceSheet, &excelize.Panes{Freeze: true, YSplit: 2, TopLeftCell: "A3", ActivePane: "bottomLeft"})
	return f, nil
}

func writeInvoiceRow(f *excelize.File, row int, inv models.Invoice) error {
	created := ""
	if !inv.CreatedAt.IsZero() {
		created = inv.CreatedAt.Format("2006-01-02 15:04")
	}
	pickedUp := "no"
	if inv.PickedUp {
		pickedUp = "yes"
	}
	values := []any{
		inv.ID, created, inv.BuyerName, inv.BuyerEmail, inv.BuyerPhone, inv.Activity,
		inv.Amount.Float(), currency(inv), inv.InvoiceType, inv.CouponCode, inv.Status, pickedUp,
	}
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(invoiceSheet, cell, &values); err != nil {
		return fmt.Errorf("write invoice %d: %w", inv.ID, err)
	}
	return nil
}

func writeTotals(f *excelize.File, row int, totals map[string]float64) {
	currencies := make([]string, 0, len(totals))
	for c := range totals {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	bold, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	for _, c := range currencies {
		label, _ := excelize.CoordinatesToCellName(6, row)
		amount, _ := excelize.CoordinatesToCellName(7, row)
		cur, _ := excelize.CoordinatesToCellName(8, row)
		_ = f.SetCellValue(invoiceSheet, label, "Paid total")
		_ = f.SetCellValue(invoiceSheet, amount, totals[c])
		_ = f.SetCellValue(invoiceSheet, cur, c)
		_ = f.SetCellStyle(invoiceSheet, label, cur, bold)
		row++
	}
}

func currency(inv models.Invoice) string {
	if inv.Currency == "" {
		return models.DefaultCurrency
	}
	return inv.Currency
}
