package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tess/backoffice/inventory"
	"github.com/tess/backoffice/payroll"
	"github.com/tess/backoffice/records"
)

func loadScenario(t *testing.T, env *testEnv, id string) {
	t.Helper()
	rec := env.do(http.MethodPost, "/api/admin/scenarios/load", env.adminToken(), LoadScenarioRequest{ScenarioID: id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestScenario_AllScenariosLoadWithoutError(t *testing.T) {
	env := newTestEnv(t)
	for _, s := range scenarios {
		t.Run(s.ID, func(t *testing.T) {
			// The reset replaces the admin accounts, so each load logs in again.
			loadScenario(t, env, s.ID)

			current := decode[ScenarioDTO](t, env.do(http.MethodGet, "/api/admin/scenarios/current", env.adminToken(), nil))
			assert.Equal(t, s.ID, current.ID)
		})
	}
}

func TestScenario_UnknownRejected(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/api/admin/scenarios/load", env.adminToken(), LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScenario_StockedStore(t *testing.T) {
	// GIVEN: the stocked-store scenario
	// WHEN: inventory and sales are inspected
	// THEN: the catalog has critical and expiring items and a week of sales
	env := newTestEnv(t)
	loadScenario(t, env, "stocked-store")
	ctx := context.Background()

	items, err := env.h.Inventory.List(ctx, inventory.Filter{})
	require.NoError(t, err)
	assert.Len(t, items, len(demoCatalog))

	critical, err := env.h.Inventory.Critical(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, critical)

	expiring, err := env.h.Reports.ExpiringItems(ctx, env.now)
	require.NoError(t, err)
	assert.NotEmpty(t, expiring)

	sales, err := env.h.Sales.List(ctx)
	require.NoError(t, err)
	assert.Len(t, sales, 6)
	assert.True(t, sales[0].Date.After(sales[len(sales)-1].Date), "newest first")
}

func TestScenario_MonthEndPayroll(t *testing.T) {
	env := newTestEnv(t)
	loadScenario(t, env, "month-end-payroll")
	ctx := context.Background()

	last, err := env.h.Payroll.ListSalaries(ctx, payroll.SalaryFilter{Period: payroll.SelectLast})
	require.NoError(t, err)
	require.Len(t, last, len(demoStaff))

	byStatus := map[records.SalaryStatus]int{}
	for _, s := range last {
		byStatus[s.Status]++
	}
	assert.Equal(t, 1, byStatus[records.SalaryPaid])
	assert.Equal(t, 1, byStatus[records.SalaryProcessing])
	assert.Equal(t, 1, byStatus[records.SalaryPending])

	pending, err := env.h.Payroll.ListProduction(ctx, payroll.ProductionFilter{Status: records.ProductionPending})
	require.NoError(t, err)
	assert.Len(t, pending, len(demoStaff))

	// Demo staff can sign in to the employee portal.
	token := env.login("maria", DemoPassword, records.RoleEmployee)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/employee/salaries", token, nil).Code)
}

func TestResetDatabase(t *testing.T) {
	env := newTestEnv(t)
	loadScenario(t, env, "month-end-payroll")

	rec := env.do(http.MethodPost, "/api/admin/scenarios/reset", env.adminToken(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	users, err := env.h.Accounts.Users(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2, "only the default admins remain")

	rec = env.do(http.MethodGet, "/api/admin/scenarios/current", env.adminToken(), nil)
	assert.Equal(t, "null\n", rec.Body.String())
}
