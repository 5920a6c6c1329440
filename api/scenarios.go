/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	frozen-foods data for testing and demos. Each scenario goes through the
	domain services, so everything it creates obeys the same rules as data
	entered through the UI.

AVAILABLE SCENARIOS:

	fresh-start:        Default admins only
	stocked-store:      Frozen-foods catalog with low-stock and expiring items,
	                    plus a week of sales history
	month-end-payroll:  Production staff with last month's work reviewed,
	                    salaries generated and partly paid

HOW SCENARIOS WORK:
 1. Reset store (clear all collections)
 2. Re-seed the default admins
 3. Create employees via sign-up
 4. Create inventory, sales, production and salaries via the services

USAGE VIA API:

	POST /api/admin/scenarios/load
	{"scenario_id": "month-end-payroll"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add it to the 'loaders' map

NOTE:

	Scenarios reset the store. Only use in development/demo environments.
	Demo employees sign in with DemoPassword.

SEE ALSO:
  - handlers.go: Handler and its services
*/
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tess/backoffice/accounts"
	"github.com/tess/backoffice/inventory"
	"github.com/tess/backoffice/payroll"
	"github.com/tess/backoffice/records"
	"github.com/tess/backoffice/sales"
)

// DemoPassword is the password of every employee a scenario creates.
const DemoPassword = "frozen-demo"

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "fresh-start",
		Name:        "Fresh Start",
		Description: "Empty store with the default admin accounts",
	},
	{
		ID:          "stocked-store",
		Name:        "Stocked Store",
		Description: "Frozen-foods catalog with low-stock and expiring items and a week of sales",
	},
	{
		ID:          "month-end-payroll",
		Name:        "Month-End Payroll",
		Description: "Production staff with last month's salaries generated and partly paid",
	},
}

func (h *Handler) loaders() map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		"fresh-start":       func(context.Context) error { return nil },
		"stocked-store":     h.loadStockedStoreScenario,
		"month-end-payroll": h.loadMonthEndPayrollScenario,
	}
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current, Description: "Currently loaded scenario"})
}

// LoadScenario resets the store and loads a predefined scenario.
// POST /api/admin/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	load, ok := h.loaders()[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	h.currentScenario = ""
	if err := h.reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = req.ScenarioID

	log.Printf("[API] Loaded scenario %s", req.ScenarioID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears every collection and re-seeds the default admins.
// POST /api/admin/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.currentScenario = ""
	if err := h.reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) reset(ctx context.Context) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	return h.Accounts.Seed(ctx, h.AdminPassword)
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

type demoItem struct {
	name, sku, category string
	quantity            int
	price               string
	critical            int
	expiresInDays       int // 0 means no expiry date
}

var demoCatalog = []demoItem{
	{"Chicken Nuggets 1kg", "FRZ-CHK-001", "Chicken", 120, "289.00", 20, 180},
	{"Chicken Tocino 500g", "FRZ-CHK-002", "Chicken", 45, "165.00", 15, 90},
	{"Pork Longganisa 500g", "FRZ-PRK-001", "Pork", 8, "175.00", 15, 60},
	{"Pork Siomai 40pcs", "FRZ-PRK-002", "Pork", 60, "210.00", 10, 20},
	{"Beef Tapa 500g", "FRZ-BEF-001", "Beef", 0, "245.00", 10, 120},
	{"Shrimp Dumplings 24pcs", "FRZ-SEA-001", "Seafood", 30, "320.00", 10, 12},
	{"Fish Balls 1kg", "FRZ-SEA-002", "Seafood", 75, "130.00", 20, 0},
	{"Lumpiang Shanghai 50pcs", "FRZ-RTE-001", "Ready to Cook", 5, "255.00", 10, 45},
}

func (h *Handler) createCatalog(ctx context.Context, now time.Time) (map[string]records.InventoryItem, error) {
	bySKU := make(map[string]records.InventoryItem, len(demoCatalog))
	for _, d := range demoCatalog {
		critical := d.critical
		in := inventory.ItemInput{
			Name:          d.name,
			SKU:           d.sku,
			Category:      d.category,
			Quantity:      d.quantity,
			Price:         records.MustMoney(d.price),
			CriticalLevel: &critical,
		}
		if d.expiresInDays > 0 {
			expiry := now.AddDate(0, 0, d.expiresInDays).Format("2006-01-02")
			in.ExpiryDate = &expiry
		}
		item, err := h.Inventory.Create(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", d.sku, err)
		}
		bySKU[d.sku] = item
	}
	return bySKU, nil
}

func (h *Handler) loadStockedStoreScenario(ctx context.Context) error {
	now := h.now()
	items, err := h.createCatalog(ctx, now)
	if err != nil {
		return err
	}

	// A week of sales, one checkout per day at mid-morning, backdated.
	carts := []struct {
		daysAgo  int
		customer string
		method   string
		lines    map[string]int
	}{
		{6, "Aling Nena's Store", "cash", map[string]int{"FRZ-CHK-001": 5, "FRZ-SEA-002": 3}},
		{5, "", "gcash", map[string]int{"FRZ-PRK-002": 2}},
		{4, "Kusina ni Ben", "card", map[string]int{"FRZ-CHK-002": 6, "FRZ-RTE-001": 2}},
		{3, "", "cash", map[string]int{"FRZ-SEA-001": 1, "FRZ-CHK-001": 2}},
		{1, "Aling Nena's Store", "cash", map[string]int{"FRZ-PRK-001": 4, "FRZ-SEA-002": 5}},
		{0, "", "gcash", map[string]int{"FRZ-CHK-001": 1}},
	}
	for _, c := range carts {
		at := time.Date(now.Year(), now.Month(), now.Day(), 10, 0, 0, 0, now.Location()).AddDate(0, 0, -c.daysAgo)
		if at.After(now) {
			at = now
		}
		svc := sales.NewService(h.Store)
		svc.Now = func() time.Time { return at }

		in := sales.CheckoutInput{CustomerName: c.customer, PaymentMethod: c.method}
		for sku, qty := range c.lines {
			in.Items = append(in.Items, sales.Line{ProductID: items[sku].ID, Quantity: qty})
		}
		if _, err := svc.Checkout(ctx, in); err != nil {
			return err
		}
	}
	return nil
}

type demoEmployee struct {
	username, name, position string
	baseSalary               int64
	rate                     string
	method                   records.PaymentMethod
}

var demoStaff = []demoEmployee{
	{"maria", "Maria Santos", "Production Lead", 12000, "18", records.PaymentOnline},
	{"jose", "Jose Reyes", "Production Staff", 9000, "15", records.PaymentCash},
	{"ana", "Ana Cruz", "Packer", 8500, "12.50", records.PaymentCash},
}

func (h *Handler) createStaff(ctx context.Context) ([]records.Employee, error) {
	staff := make([]records.Employee, 0, len(demoStaff))
	for _, d := range demoStaff {
		user, err := h.Accounts.SignUp(ctx, accounts.SignUpInput{
			Username:        d.username,
			Name:            d.name,
			Password:        DemoPassword,
			ConfirmPassword: DemoPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("sign up %s: %w", d.username, err)
		}
		base := records.Pesos(d.baseSalary)
		rate := decimal.RequireFromString(d.rate)
		emp, err := h.Accounts.UpdateEmployee(ctx, records.EmployeeID(user.ID), accounts.EmployeeUpdate{
			Position:       d.position,
			BaseSalary:     &base,
			PaymentMethod:  d.method,
			ProductionRate: &rate,
		})
		if err != nil {
			return nil, err
		}
		staff = append(staff, emp)
	}
	return staff, nil
}

func (h *Handler) loadMonthEndPayrollScenario(ctx context.Context) error {
	now := h.now()
	if _, err := h.createCatalog(ctx, now); err != nil {
		return err
	}
	staff, err := h.createStaff(ctx)
	if err != nil {
		return err
	}

	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	lastMonth := thisMonth.AddDate(0, -1, 0)

	work := []struct {
		item, category, unitPrice string
		quantity                  int64
	}{
		{"Chicken Nuggets", "Chicken", "4.50", 400},
		{"Pork Siomai", "Pork", "0.75", 1200},
		{"Lumpiang Shanghai", "Ready to Cook", "1.20", 800},
	}

	// Last month: three working days each, reviewed.
	for i, emp := range staff {
		for day := 0; day < 3; day++ {
			w := work[(i+day)%len(work)]
			rec, err := h.Payroll.SubmitProduction(ctx, emp, payroll.ProductionInput{
				Date:      lastMonth.AddDate(0, 0, 2+day*7).Format("2006-01-02"),
				ItemName:  w.item,
				Category:  w.category,
				Quantity:  decimal.NewFromInt(w.quantity),
				UnitPrice: records.MustMoney(w.unitPrice),
			})
			if err != nil {
				return err
			}
			if _, err := h.Payroll.ReviewProduction(ctx, rec.ID); err != nil {
				return err
			}
		}
	}

	// This month so far: one pending submission each.
	for i, emp := range staff {
		w := work[i%len(work)]
		if _, err := h.Payroll.SubmitProduction(ctx, emp, payroll.ProductionInput{
			Date:      thisMonth.Format("2006-01-02"),
			ItemName:  w.item,
			Category:  w.category,
			Quantity:  decimal.NewFromInt(w.quantity / 2),
			UnitPrice: records.MustMoney(w.unitPrice),
			Remarks:   "Morning shift",
		}); err != nil {
			return err
		}
	}

	_, generated, err := h.Scheduler.Generate(ctx, payroll.SelectLast, nil, TriggerManual)
	if err != nil {
		return err
	}

	// First record paid, second in processing, the rest left pending.
	if len(generated) > 0 {
		id := generated[0].ID
		if _, err := h.Payroll.AdvancePayment(ctx, id, records.SalaryProcessing, "Released with payslip"); err != nil {
			return err
		}
		if _, err := h.Payroll.AdvancePayment(ctx, id, records.SalaryPaid, ""); err != nil {
			return err
		}
	}
	if len(generated) > 1 {
		if _, err := h.Payroll.EditAdjustments(ctx, generated[1].ID, payroll.Adjustments{
			Bonuses:    records.Pesos(500),
			Deductions: records.Pesos(150),
		}); err != nil {
			return err
		}
		if _, err := h.Payroll.AdvancePayment(ctx, generated[1].ID, records.SalaryProcessing, ""); err != nil {
			return err
		}
	}
	return nil
}
