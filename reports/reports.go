/*
Package reports computes the dashboards and reports of both portals.

PURPOSE:
  Read-only aggregation over the stored collections: sales totals by day,
  week and month, stock levels and values, expiring goods, and an
  employee's own production and pay. Spreadsheet export and import live in
  workbook.go.

CONVENTIONS:
  - Day boundaries are taken in the location of the "now" passed in
  - "Weekly" and "monthly" dashboard sales are rolling 7 and 30 day windows;
    MonthlySales is the calendar month
  - Money sums use decimal arithmetic; percentages are rounded to 2 places

SEE ALSO:
  - inventory: ExpiringFrom
  - payroll: Summarize
*/
package reports

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tess/backoffice/inventory"
	"github.com/tess/backoffice/payroll"
	"github.com/tess/backoffice/records"
	"github.com/tess/backoffice/sales"
)

// LowStockThreshold is the fixed quantity below which the admin dashboard
// counts an item's value as low-stock value, independent of its own
// critical level.
const LowStockThreshold = 10

type Service struct {
	Store records.Store
}

func NewService(store records.Store) *Service {
	return &Service{Store: store}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// =============================================================================
// ADMIN DASHBOARD
// =============================================================================

type CategoryShare struct {
	Name  string        `json:"name"`
	Units int           `json:"units"`
	Value records.Money `json:"value"`
}

// AdminMetrics are the admin dashboard figures. SalesChange is today vs
// yesterday in percent, 0 when yesterday had no sales.
type AdminMetrics struct {
	TotalSales     records.Money   `json:"totalSales"`
	TodaySales     records.Money   `json:"todaySales"`
	YesterdaySales records.Money   `json:"yesterdaySales"`
	SalesChange    decimal.Decimal `json:"salesChange"`
	WeeklySales    records.Money   `json:"weeklySales"`
	MonthlySales   records.Money   `json:"monthlySales"`

	TotalProducts       int             `json:"totalProducts"`
	TotalStock          int             `json:"totalStock"`
	TotalInventoryValue records.Money   `json:"totalInventoryValue"`
	AverageUnitPrice    records.Money   `json:"averageUnitPrice"`
	LowStockValue       records.Money   `json:"lowStockValue"`
	LowStockItems       int             `json:"lowStockItems"`
	CriticalItems       int             `json:"criticalItems"`
	ByCategory          []CategoryShare `json:"byCategory"`
}

func (s *Service) AdminDashboard(ctx context.Context, now time.Time) (AdminMetrics, error) {
	allSales, err := records.Sales.All(ctx, s.Store)
	if err != nil {
		return AdminMetrics{}, err
	}
	items, err := records.Inventory.All(ctx, s.Store)
	if err != nil {
		return AdminMetrics{}, err
	}
	return AdminDashboard(allSales, items, now), nil
}

// AdminDashboard computes the admin metrics over loaded collections.
func AdminDashboard(allSales []records.Sale, items []records.InventoryItem, now time.Time) AdminMetrics {
	today := startOfDay(now)
	tomorrow := today.AddDate(0, 0, 1)
	yesterday := today.AddDate(0, 0, -1)

	m := AdminMetrics{
		TotalSales:     sales.Total(allSales),
		TodaySales:     sales.Total(sales.Between(allSales, today, tomorrow)),
		YesterdaySales: sales.Total(sales.Between(allSales, yesterday, today)),
		SalesChange:    decimal.Zero,
		WeeklySales:    sales.Total(sales.Between(allSales, now.AddDate(0, 0, -7), tomorrow)),
		MonthlySales:   sales.Total(sales.Between(allSales, now.AddDate(0, 0, -30), tomorrow)),

		TotalProducts:       len(items),
		TotalInventoryValue: decimal.Zero,
		AverageUnitPrice:    decimal.Zero,
		LowStockValue:       decimal.Zero,
	}
	if m.YesterdaySales.IsPositive() {
		m.SalesChange = m.TodaySales.Sub(m.YesterdaySales).
			Div(m.YesterdaySales).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}

	byCategory := make(map[string]*CategoryShare)
	for _, it := range items {
		value := it.Value()
		m.TotalStock += it.Quantity
		m.TotalInventoryValue = m.TotalInventoryValue.Add(value)
		if it.Quantity < LowStockThreshold {
			m.LowStockItems++
			m.LowStockValue = m.LowStockValue.Add(value)
		}
		if it.Quantity <= it.CriticalLevel {
			m.CriticalItems++
		}

		name := it.Category
		if name == "" {
			name = "Uncategorized"
		}
		share, ok := byCategory[name]
		if !ok {
			share = &CategoryShare{Name: name, Value: decimal.Zero}
			byCategory[name] = share
		}
		share.Units += it.Quantity
		share.Value = share.Value.Add(value)
	}
	if m.TotalStock > 0 {
		m.AverageUnitPrice = m.TotalInventoryValue.Div(decimal.NewFromInt(int64(m.TotalStock))).Round(2)
	}

	m.ByCategory = make([]CategoryShare, 0, len(byCategory))
	for _, share := range byCategory {
		m.ByCategory = append(m.ByCategory, *share)
	}
	sort.Slice(m.ByCategory, func(i, j int) bool { return m.ByCategory[i].Name < m.ByCategory[j].Name })
	return m
}

// =============================================================================
// EMPLOYEE DASHBOARD
// =============================================================================

type EmployeeMetrics struct {
	Period            string                `json:"period"`
	MonthlyQuantity   decimal.Decimal       `json:"monthlyQuantity"`
	MonthlyEarnings   records.Money         `json:"monthlyEarnings"`
	MonthlyRecords    int                   `json:"monthlyRecords"`
	UnpaidEarnings    records.Money         `json:"unpaidEarnings"`
	PendingReview     int                   `json:"pendingReview"`
	LatestSalary      *records.SalaryRecord `json:"latestSalary,omitempty"`
	TotalPaidToDate   records.Money         `json:"totalPaidToDate"`
	OutstandingSalary records.Money         `json:"outstandingSalary"`
}

func (s *Service) EmployeeDashboard(ctx context.Context, id records.EmployeeID, now time.Time) (EmployeeMetrics, error) {
	production, err := records.Production.All(ctx, s.Store)
	if err != nil {
		return EmployeeMetrics{}, err
	}
	salaries, err := records.Salaries.All(ctx, s.Store)
	if err != nil {
		return EmployeeMetrics{}, err
	}

	period := payroll.Resolve(payroll.SelectCurrent, now)
	m := EmployeeMetrics{
		Period:          period.Label,
		MonthlyQuantity: decimal.Zero,
		MonthlyEarnings: decimal.Zero,
		UnpaidEarnings:  decimal.Zero,
	}
	for _, p := range production {
		if p.EmployeeID != id {
			continue
		}
		if period.Contains(p.Date) {
			m.MonthlyRecords++
			m.MonthlyQuantity = m.MonthlyQuantity.Add(p.Quantity)
			m.MonthlyEarnings = m.MonthlyEarnings.Add(p.TotalEarnings)
		}
		if p.Status != records.ProductionPaid {
			m.UnpaidEarnings = m.UnpaidEarnings.Add(p.TotalEarnings)
		}
		if p.Status == records.ProductionPending {
			m.PendingReview++
		}
	}

	var mine []records.SalaryRecord
	for _, rec := range salaries {
		if rec.EmployeeID == id {
			mine = append(mine, rec)
		}
	}
	totals := payroll.Summarize(mine)
	m.TotalPaidToDate = totals.Paid
	m.OutstandingSalary = totals.Outstanding
	if len(mine) > 0 {
		sort.SliceStable(mine, func(i, j int) bool { return mine[i].CreatedAt.After(mine[j].CreatedAt) })
		latest := mine[0]
		m.LatestSalary = &latest
	}
	return m, nil
}

// =============================================================================
// SALES REPORTS
// =============================================================================

type SalesReport struct {
	From  time.Time      `json:"from"`
	To    time.Time      `json:"to"`
	Count int            `json:"count"`
	Units int            `json:"units"`
	Total records.Money  `json:"total"`
	Sales []records.Sale `json:"sales"`
}

func newSalesReport(all []records.Sale, from, to time.Time) SalesReport {
	in := sales.Between(all, from, to)
	r := SalesReport{From: from, To: to, Count: len(in), Total: sales.Total(in), Sales: in}
	for _, sale := range in {
		for _, line := range sale.Items {
			r.Units += line.Quantity
		}
	}
	if r.Sales == nil {
		r.Sales = []records.Sale{}
	}
	return r
}

// DailySales reports the sales of day's calendar day.
func (s *Service) DailySales(ctx context.Context, day time.Time) (SalesReport, error) {
	all, err := records.Sales.All(ctx, s.Store)
	if err != nil {
		return SalesReport{}, err
	}
	from := startOfDay(day)
	return newSalesReport(all, from, from.AddDate(0, 0, 1)), nil
}

// MonthlySales reports the sales of the calendar month containing day.
func (s *Service) MonthlySales(ctx context.Context, day time.Time) (SalesReport, error) {
	all, err := records.Sales.All(ctx, s.Store)
	if err != nil {
		return SalesReport{}, err
	}
	from := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	return newSalesReport(all, from, from.AddDate(0, 1, 0)), nil
}

// =============================================================================
// INVENTORY REPORTS
// =============================================================================

type InventoryReport struct {
	TotalProducts int                     `json:"totalProducts"`
	TotalQuantity int                     `json:"totalQuantity"`
	LowStock      int                     `json:"lowStock"`
	OutOfStock    int                     `json:"outOfStock"`
	TotalValue    records.Money           `json:"totalValue"`
	Items         []records.InventoryItem `json:"items"`
}

func (s *Service) InventoryStatus(ctx context.Context) (InventoryReport, error) {
	items, err := records.Inventory.All(ctx, s.Store)
	if err != nil {
		return InventoryReport{}, err
	}
	r := InventoryReport{TotalProducts: len(items), TotalValue: decimal.Zero, Items: items}
	for _, it := range items {
		r.TotalQuantity += it.Quantity
		r.TotalValue = r.TotalValue.Add(it.Value())
		switch it.Status {
		case records.LowStock:
			r.LowStock++
		case records.OutOfStock:
			r.OutOfStock++
		}
	}
	if r.Items == nil {
		r.Items = []records.InventoryItem{}
	}
	return r, nil
}

// ExpiringItems lists items expiring within the default window of now.
func (s *Service) ExpiringItems(ctx context.Context, now time.Time) ([]inventory.ExpiringItem, error) {
	items, err := records.Inventory.All(ctx, s.Store)
	if err != nil {
		return nil, err
	}
	return inventory.ExpiringFrom(items, now, inventory.DefaultExpiryWindow), nil
}
