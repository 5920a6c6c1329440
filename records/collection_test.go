package records_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tess/backoffice/records"
	"github.com/tess/backoffice/records/memory"
)

func sampleSalary() records.SalaryRecord {
	paid := time.Date(2026, time.October, 20, 9, 30, 0, 0, time.UTC)
	s := records.SalaryRecord{
		ID:                 "salary-emp-1-a",
		EmployeeID:         "emp-1",
		EmployeeName:       "Maria",
		Period:             "October 2026",
		BaseSalary:         records.Pesos(1000),
		ProductionEarnings: records.MustMoney("512.75"),
		Bonuses:            records.Pesos(50),
		Deductions:         records.MustMoney("12.5"),
		Status:             records.SalaryPaid,
		PaymentMethod:      records.PaymentOnline,
		PaymentDate:        &paid,
		PaymentNotes:       "gcash ref 42",
		ProductionRecords: []records.ProductionRef{
			{ID: "prod-1", ItemName: "Siomai", Quantity: decimal.NewFromFloat(2.5), Unit: "kg", TotalEarnings: records.MustMoney("312.75"), Date: "2026-10-02"},
			{ID: "prod-2", ItemName: "Lumpia", Quantity: decimal.NewFromInt(40), Unit: "pcs", TotalEarnings: records.Pesos(200), Date: "2026-10-03"},
		},
		CreatedAt: time.Date(2026, time.October, 18, 8, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, time.October, 20, 9, 30, 0, 0, time.UTC),
	}
	s.Recalculate()
	return s
}

func TestCollection_RoundTrip(t *testing.T) {
	// GIVEN: a salary record with nested references, decimals and optional fields
	// WHEN: it is written and read back
	// THEN: the value read is deep-equal to the value written
	store := memory.New()
	ctx := context.Background()
	written := []records.SalaryRecord{sampleSalary()}

	version, err := records.Salaries.Save(ctx, store, written, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	read, readVersion, err := records.Salaries.Load(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, version, readVersion)
	assert.Equal(t, written, read)
}

func TestCollection_RoundTripInventory(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	expiry := "2026-12-31"
	written := []records.InventoryItem{{
		ID:            "item-1",
		Name:          "Pork Siomai 1kg",
		SKU:           "SIO-001",
		Category:      "Dumplings",
		Quantity:      25,
		Price:         records.MustMoney("185.50"),
		CriticalLevel: 10,
		ExpiryDate:    &expiry,
		LastUpdated:   time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC),
		Status:        records.InStock,
	}}

	_, err := records.Inventory.Save(ctx, store, written, 0)
	require.NoError(t, err)

	read, err := records.Inventory.All(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, written, read)
}

func TestCollection_RoundTripTrailingZeros(t *testing.T) {
	// GIVEN: amounts carrying trailing fractional zeros and decimal.Zero
	// WHEN: they are saved and read back
	// THEN: the saved slice holds the stored form and deep-equals the read
	store := memory.New()
	ctx := context.Background()
	rec := records.ProductionRecord{
		ID:            "prod-1",
		EmployeeID:    "emp-1",
		Date:          "2026-10-02",
		ItemName:      "Chicken Nuggets",
		Quantity:      decimal.NewFromInt(200),
		Unit:          "pcs",
		UnitPrice:     decimal.RequireFromString("4.50"),
		TotalEarnings: decimal.NewFromInt(200).Mul(decimal.RequireFromString("4.50")),
		Status:        records.ProductionPending,
		SubmittedAt:   time.Date(2026, time.October, 2, 8, 0, 0, 0, time.UTC),
		UpdatedAt:     time.Date(2026, time.October, 2, 8, 0, 0, 0, time.UTC),
	}
	written := []records.ProductionRecord{rec}

	_, err := records.Production.Save(ctx, store, written, 0)
	require.NoError(t, err)

	read, err := records.Production.All(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, written, read)
	assert.Equal(t, "4.5", written[0].UnitPrice.String())
	assert.True(t, written[0].TotalEarnings.Equal(decimal.NewFromInt(900)))

	salary := sampleSalary()
	salary.Bonuses = decimal.Zero
	salary.Recalculate()
	salaries := []records.SalaryRecord{salary}
	_, err = records.Salaries.Save(ctx, store, salaries, 0)
	require.NoError(t, err)
	readSalaries, err := records.Salaries.All(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, salaries, readSalaries)
}

func TestCanonicalMoney(t *testing.T) {
	assert.Equal(t, records.MustMoney("185.5"), records.MustMoney("185.50"))
	assert.Equal(t, records.MustMoney("0"), records.CanonicalMoney(decimal.Zero))
	assert.Equal(t, records.Pesos(900), records.CanonicalMoney(decimal.RequireFromString("900.00")))
	assert.True(t, records.MustMoney("bogus").IsZero())
}

func TestCollection_SaveRejectsInvalidRecord(t *testing.T) {
	store := memory.New()
	bad := sampleSalary()
	bad.Status = "Lost"

	_, err := records.Salaries.Save(context.Background(), store, []records.SalaryRecord{bad}, 0)

	require.Error(t, err)
	assert.ErrorIs(t, err, records.ErrValidation)
	var verrs records.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "status", verrs[0].Field)
}

func TestCollection_CorruptDocument(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	_, err := store.Save(ctx, records.Document{Name: records.CollectionSalaries, Data: []byte(`{not json`)})
	require.NoError(t, err)

	_, err = records.Salaries.All(ctx, store)

	assert.ErrorIs(t, err, records.ErrCorruptCollection)
}

func TestCollection_StoredRecordFailingValidationIsCorrupt(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	_, err := store.Save(ctx, records.Document{
		Name: records.CollectionInventory,
		Data: []byte(`[{"id":"x","name":"Tocino","sku":"","quantity":-3,"price":"10","status":"in-stock"}]`),
	})
	require.NoError(t, err)

	_, err = records.Inventory.All(ctx, store)

	assert.ErrorIs(t, err, records.ErrCorruptCollection)
}

func TestCollection_UpdateDetectsConcurrentWriter(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	_, err := records.Sales.Save(ctx, store, nil, 0)
	require.NoError(t, err)

	err = records.Sales.Update(ctx, store, func(sales []records.Sale) ([]records.Sale, error) {
		// another writer lands between our read and our write
		_, werr := records.Sales.Save(ctx, store, nil, 1)
		require.NoError(t, werr)
		return sales, nil
	})

	assert.ErrorIs(t, err, records.ErrConcurrentModification)
	assert.True(t, records.IsRetryable(err))
}

func TestSalaryRecord_Recalculate(t *testing.T) {
	s := records.SalaryRecord{
		BaseSalary:         records.Pesos(1000),
		ProductionEarnings: records.Pesos(500),
		Bonuses:            records.Pesos(200),
		Deductions:         records.Pesos(150),
	}

	s.Recalculate()

	assert.True(t, s.NetPay.Equal(records.Pesos(1550)), "got %s", s.NetPay)
}

func TestStockStatusFor(t *testing.T) {
	assert.Equal(t, records.OutOfStock, records.StockStatusFor(0, 10))
	assert.Equal(t, records.LowStock, records.StockStatusFor(5, 10))
	assert.Equal(t, records.LowStock, records.StockStatusFor(10, 10))
	assert.Equal(t, records.InStock, records.StockStatusFor(50, 10))
}
