package reports

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tess/backoffice/inventory"
	"github.com/tess/backoffice/payroll"
	"github.com/tess/backoffice/records"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// XLSX EXPORT
// =============================================================================

const (
	PayrollSheet   = "Payroll"
	SalesSheet     = "Sales"
	SaleItemsSheet = "Sale Items"
	InventorySheet = "Inventory"
)

var payrollHeader = []any{
	"Employee", "Period", "Status", "Payment Method", "Base Salary",
	"Production Earnings", "Bonuses", "Deductions", "Net Pay", "Payment Date", "Records",
}

// WritePayrollWorkbook renders salary records and their totals as XLSX.
func WritePayrollWorkbook(w io.Writer, salaries []records.SalaryRecord) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), PayrollSheet); err != nil {
		return err
	}
	if err := writeHeader(f, PayrollSheet, payrollHeader); err != nil {
		return err
	}

	row := 2
	for _, s := range salaries {
		paidOn := ""
		if s.PaymentDate != nil {
			paidOn = s.PaymentDate.Format("2006-01-02")
		}
		values := []any{
			s.EmployeeName, s.Period, string(s.Status), string(s.PaymentMethod),
			money(s.BaseSalary), money(s.ProductionEarnings), money(s.Bonuses),
			money(s.Deductions), money(s.NetPay), paidOn, len(s.ProductionRecords),
		}
		if err := setRow(f, PayrollSheet, row, values); err != nil {
			return err
		}
		row++
	}

	t := payroll.Summarize(salaries)
	totals := []any{
		"Total", "", "", "",
		money(t.BaseSalary), money(t.ProductionEarnings), money(t.Bonuses),
		money(t.Deductions), money(t.NetPay), "", "",
	}
	if err := setRow(f, PayrollSheet, row, totals); err != nil {
		return err
	}

	_, err := f.WriteTo(w)
	return err
}

// WriteSalesWorkbook renders sales as XLSX: one sheet of sales and one of
// their line items.
func WriteSalesWorkbook(w io.Writer, sales []records.Sale) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SalesSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(SaleItemsSheet); err != nil {
		return err
	}
	if err := writeHeader(f, SalesSheet, []any{"Sale", "Date", "Customer", "Payment", "Status", "Items", "Total"}); err != nil {
		return err
	}
	if err := writeHeader(f, SaleItemsSheet, []any{"Sale", "Product", "Name", "Quantity", "Price", "Subtotal"}); err != nil {
		return err
	}

	saleRow, itemRow := 2, 2
	for _, s := range sales {
		values := []any{
			s.ID, s.Date.Format("2006-01-02 15:04"), s.CustomerName, s.PaymentMethod,
			s.Status, len(s.Items), money(s.Total),
		}
		if err := setRow(f, SalesSheet, saleRow, values); err != nil {
			return err
		}
		saleRow++

		for _, line := range s.Items {
			values := []any{s.ID, line.ProductID, line.Name, line.Quantity, money(line.Price), money(line.Subtotal())}
			if err := setRow(f, SaleItemsSheet, itemRow, values); err != nil {
				return err
			}
			itemRow++
		}
	}

	_, err := f.WriteTo(w)
	return err
}

func writeHeader(f *excelize.File, sheet string, header []any) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func money(m records.Money) float64 {
	return m.Round(2).InexactFloat64()
}

// =============================================================================
// XLSX IMPORT
// =============================================================================

// ReadInventorySheet parses the first sheet of an XLSX workbook into item
// inputs. The first row is a header naming at least "name" and "sku";
// "category", "quantity", "price", "critical level" and "expiry date" are
// optional. Column order is free and header case is ignored.
func ReadInventorySheet(r io.Reader) ([]inventory.ItemInput, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, records.Invalid("file", "not a readable xlsx workbook")
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, records.Invalid("file", "no worksheet found")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, records.Invalid("file", "worksheet is empty")
	}

	cols := make(map[string]int)
	for i, h := range rows[0] {
		cols[normalizeHeader(h)] = i
	}
	for _, required := range []string{"name", "sku"} {
		if _, ok := cols[required]; !ok {
			return nil, records.Invalid("file", fmt.Sprintf("missing %q column", required))
		}
	}
	col := func(name string) int {
		if i, ok := cols[name]; ok {
			return i
		}
		return -1
	}

	var out []inventory.ItemInput
	for n, row := range rows[1:] {
		line := n + 2
		in := inventory.ItemInput{
			Name:     cellValue(row, col("name")),
			SKU:      cellValue(row, col("sku")),
			Category: cellValue(row, col("category")),
			Price:    decimal.Zero,
		}
		if in.Name == "" && in.SKU == "" {
			continue
		}

		if v := cellValue(row, col("quantity")); v != "" {
			qty, err := strconv.Atoi(v)
			if err != nil {
				return nil, records.Invalid(fmt.Sprintf("row %d quantity", line), "must be a whole number")
			}
			in.Quantity = qty
		}
		if v := cellValue(row, col("price")); v != "" {
			price, err := decimal.NewFromString(v)
			if err != nil {
				return nil, records.Invalid(fmt.Sprintf("row %d price", line), "must be a number")
			}
			in.Price = price
		}
		if v := cellValue(row, col("critical level")); v != "" {
			level, err := strconv.Atoi(v)
			if err != nil {
				return nil, records.Invalid(fmt.Sprintf("row %d critical level", line), "must be a whole number")
			}
			in.CriticalLevel = &level
		}
		if v := cellValue(row, col("expiry date")); v != "" {
			date := normalizeDate(v)
			in.ExpiryDate = &date
		}
		out = append(out, in)
	}
	return out, nil
}

func normalizeHeader(header string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.ReplaceAll(header, "_", " "))), " ")
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// normalizeDate turns an Excel date serial into YYYY-MM-DD and leaves
// anything else untouched.
func normalizeDate(v string) string {
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return v
}
