package reports_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tess/backoffice/records"
	"github.com/tess/backoffice/records/memory"
	"github.com/tess/backoffice/reports"
	"github.com/xuri/excelize/v2"
)

var now = time.Date(2026, time.October, 18, 15, 0, 0, 0, time.UTC)

func sale(id string, at time.Time, total int64) records.Sale {
	return records.Sale{
		ID:            id,
		Items:         []records.SaleItem{{ProductID: "item-1", Name: "Siomai", Quantity: 1, Price: records.Pesos(total)}},
		Total:         records.Pesos(total),
		CustomerName:  "Walk-in Customer",
		PaymentMethod: "cash",
		Status:        "completed",
		Date:          at,
	}
}

func stockItem(id, category string, qty, critical int, price int64) records.InventoryItem {
	return records.InventoryItem{
		ID:            id,
		Name:          "Item " + id,
		SKU:           "SKU-" + id,
		Category:      category,
		Quantity:      qty,
		Price:         records.Pesos(price),
		CriticalLevel: critical,
		Status:        records.StockStatusFor(qty, critical),
	}
}

func TestAdminDashboard(t *testing.T) {
	// GIVEN: sales today, yesterday, 5 days ago and 20 days ago, and three items
	// WHEN: the admin dashboard is computed
	// THEN: each window sums only its sales and stock figures add up
	allSales := []records.Sale{
		sale("s1", now.Add(-2*time.Hour), 300),
		sale("s2", now.AddDate(0, 0, -1), 200),
		sale("s3", now.AddDate(0, 0, -5), 100),
		sale("s4", now.AddDate(0, 0, -20), 1000),
		sale("s5", now.AddDate(0, 0, -45), 5000),
	}
	items := []records.InventoryItem{
		stockItem("a", "Dumplings", 50, 10, 100),
		stockItem("b", "Dumplings", 4, 10, 50),
		stockItem("c", "", 0, 10, 80),
	}

	m := reports.AdminDashboard(allSales, items, now)

	assert.True(t, m.TotalSales.Equal(records.Pesos(6600)))
	assert.True(t, m.TodaySales.Equal(records.Pesos(300)))
	assert.True(t, m.YesterdaySales.Equal(records.Pesos(200)))
	assert.True(t, m.SalesChange.Equal(decimal.NewFromInt(50)), "got %s", m.SalesChange)
	assert.True(t, m.WeeklySales.Equal(records.Pesos(600)))
	assert.True(t, m.MonthlySales.Equal(records.Pesos(1600)))

	assert.Equal(t, 3, m.TotalProducts)
	assert.Equal(t, 54, m.TotalStock)
	assert.True(t, m.TotalInventoryValue.Equal(records.Pesos(5200)))
	assert.True(t, m.LowStockValue.Equal(records.Pesos(200)))
	assert.Equal(t, 2, m.LowStockItems)
	assert.Equal(t, 2, m.CriticalItems)
	require.Len(t, m.ByCategory, 2)
	assert.Equal(t, "Dumplings", m.ByCategory[0].Name)
	assert.Equal(t, 54, m.ByCategory[0].Units)
	assert.Equal(t, "Uncategorized", m.ByCategory[1].Name)
}

func TestAdminDashboard_NoSalesYesterday(t *testing.T) {
	m := reports.AdminDashboard([]records.Sale{sale("s1", now, 300)}, nil, now)

	assert.True(t, m.SalesChange.IsZero())
	assert.True(t, m.AverageUnitPrice.IsZero())
	assert.Empty(t, m.ByCategory)
}

func TestEmployeeDashboard(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	_, err := records.Production.Save(ctx, store, []records.ProductionRecord{
		{ID: "p1", EmployeeID: "emp-1", ItemName: "Siomai", Quantity: decimal.NewFromInt(10), TotalEarnings: records.Pesos(500), Date: "2026-10-02", Status: records.ProductionPaid},
		{ID: "p2", EmployeeID: "emp-1", ItemName: "Siomai", Quantity: decimal.NewFromInt(4), TotalEarnings: records.Pesos(200), Date: "2026-10-10", Status: records.ProductionPending},
		{ID: "p3", EmployeeID: "emp-1", ItemName: "Siomai", Quantity: decimal.NewFromInt(2), TotalEarnings: records.Pesos(100), Date: "2026-09-10", Status: records.ProductionReviewed},
		{ID: "p4", EmployeeID: "emp-2", ItemName: "Siomai", Quantity: decimal.NewFromInt(9), TotalEarnings: records.Pesos(900), Date: "2026-10-10", Status: records.ProductionPending},
	}, 0)
	require.NoError(t, err)
	paidAt := now.AddDate(0, 0, -3)
	_, err = records.Salaries.Save(ctx, store, []records.SalaryRecord{
		{ID: "sal-1", EmployeeID: "emp-1", Period: "September 2026", Status: records.SalaryPaid, PaymentMethod: records.PaymentCash, NetPay: records.Pesos(400), PaymentDate: &paidAt, CreatedAt: now.AddDate(0, 0, -10)},
		{ID: "sal-2", EmployeeID: "emp-1", Period: "October 2026", Status: records.SalaryPending, PaymentMethod: records.PaymentCash, NetPay: records.Pesos(500), CreatedAt: now.AddDate(0, 0, -1)},
	}, 0)
	require.NoError(t, err)

	m, err := reports.NewService(store).EmployeeDashboard(ctx, "emp-1", now)

	require.NoError(t, err)
	assert.Equal(t, "October 2026", m.Period)
	assert.Equal(t, 2, m.MonthlyRecords)
	assert.True(t, m.MonthlyQuantity.Equal(decimal.NewFromInt(14)))
	assert.True(t, m.MonthlyEarnings.Equal(records.Pesos(700)))
	assert.True(t, m.UnpaidEarnings.Equal(records.Pesos(300)))
	assert.Equal(t, 1, m.PendingReview)
	require.NotNil(t, m.LatestSalary)
	assert.Equal(t, "sal-2", m.LatestSalary.ID)
	assert.True(t, m.TotalPaidToDate.Equal(records.Pesos(400)))
	assert.True(t, m.OutstandingSalary.Equal(records.Pesos(500)))
}

func TestSalesReports(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	_, err := records.Sales.Save(ctx, store, []records.Sale{
		sale("s1", now, 300),
		sale("s2", now.Add(-3*time.Hour), 100),
		sale("s3", now.AddDate(0, 0, -1), 200),
		sale("s4", now.AddDate(-1, 0, 0), 999),
	}, 0)
	require.NoError(t, err)
	svc := reports.NewService(store)

	daily, err := svc.DailySales(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, daily.Count)
	assert.Equal(t, 2, daily.Units)
	assert.True(t, daily.Total.Equal(records.Pesos(400)))

	// same month last year does not count
	monthly, err := svc.MonthlySales(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 3, monthly.Count)
	assert.True(t, monthly.Total.Equal(records.Pesos(600)))
}

func TestInventoryReports(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	soon := "2026-10-25"
	later := "2027-03-01"
	a := stockItem("a", "Dumplings", 50, 10, 100)
	a.ExpiryDate = &soon
	b := stockItem("b", "Dumplings", 4, 10, 50)
	b.ExpiryDate = &later
	_, err := records.Inventory.Save(ctx, store, []records.InventoryItem{a, b, stockItem("c", "", 0, 10, 80)}, 0)
	require.NoError(t, err)
	svc := reports.NewService(store)

	status, err := svc.InventoryStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, status.TotalProducts)
	assert.Equal(t, 54, status.TotalQuantity)
	assert.Equal(t, 1, status.LowStock)
	assert.Equal(t, 1, status.OutOfStock)

	expiring, err := svc.ExpiringItems(ctx, now)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, "a", expiring[0].ID)
	assert.Equal(t, 7, expiring[0].DaysLeft)
}

// =============================================================================
// WORKBOOKS
// =============================================================================

func TestWritePayrollWorkbook(t *testing.T) {
	paidAt := now
	salaries := []records.SalaryRecord{
		{ID: "s1", EmployeeName: "Maria", Period: "October 2026", Status: records.SalaryPaid, PaymentMethod: records.PaymentCash,
			BaseSalary: records.Pesos(1000), ProductionEarnings: records.Pesos(500), Bonuses: decimal.Zero, Deductions: decimal.Zero,
			NetPay: records.Pesos(1500), PaymentDate: &paidAt},
		{ID: "s2", EmployeeName: "Jose", Period: "October 2026", Status: records.SalaryPending, PaymentMethod: records.PaymentOnline,
			BaseSalary: decimal.Zero, ProductionEarnings: records.MustMoney("250.50"), Bonuses: decimal.Zero, Deductions: decimal.Zero,
			NetPay: records.MustMoney("250.50")},
	}
	var buf bytes.Buffer

	require.NoError(t, reports.WritePayrollWorkbook(&buf, salaries))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(reports.PayrollSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Employee", rows[0][0])
	assert.Equal(t, "Maria", rows[1][0])
	assert.Equal(t, "2026-10-18", rows[1][9])
	assert.Equal(t, "Total", rows[3][0])
	assert.Equal(t, "1750.5", rows[3][8])
}

func TestWriteSalesWorkbook(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, reports.WriteSalesWorkbook(&buf, []records.Sale{sale("s1", now, 300), sale("s2", now, 150)}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	salesRows, err := f.GetRows(reports.SalesSheet)
	require.NoError(t, err)
	assert.Len(t, salesRows, 3)
	itemRows, err := f.GetRows(reports.SaleItemsSheet)
	require.NoError(t, err)
	require.Len(t, itemRows, 3)
	assert.Equal(t, "Siomai", itemRows[1][2])
}

func TestReadInventorySheet(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"SKU", "Name", "Category", "Quantity", "Price", "Critical_Level", "Expiry Date"},
		{"SIO-1", "Pork Siomai", "Dumplings", 40, "185.50", 12, "2026-12-31"},
		{"", "", "", "", "", "", ""},
		{"TOC-1", "Chicken Tocino", "Cured Meat", 8, 150},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	got, err := reports.ReadInventorySheet(&buf)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Pork Siomai", got[0].Name)
	assert.Equal(t, 40, got[0].Quantity)
	assert.True(t, got[0].Price.Equal(records.MustMoney("185.50")))
	require.NotNil(t, got[0].CriticalLevel)
	assert.Equal(t, 12, *got[0].CriticalLevel)
	require.NotNil(t, got[0].ExpiryDate)
	assert.Equal(t, "2026-12-31", *got[0].ExpiryDate)
	assert.Nil(t, got[1].CriticalLevel)
	assert.Nil(t, got[1].ExpiryDate)
}

func TestReadInventorySheet_MissingColumn(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow(f.GetSheetName(0), "A1", &[]any{"Name", "Quantity"}))
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	_, err = reports.ReadInventorySheet(&buf)

	assert.ErrorIs(t, err, records.ErrValidation)
}
