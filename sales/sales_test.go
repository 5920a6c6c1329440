package sales_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tess/backoffice/inventory"
	"github.com/tess/backoffice/records"
	"github.com/tess/backoffice/records/memory"
	"github.com/tess/backoffice/sales"
)

type fixture struct {
	ctx   context.Context
	store *memory.Store
	inv   *inventory.Service
	pos   *sales.Service
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   context.Background(),
		store: memory.New(),
		now:   time.Date(2026, time.October, 18, 14, 0, 0, 0, time.UTC),
	}
	seq := 0
	ids := func(prefix string) string {
		seq++
		return fmt.Sprintf("%s-%d", prefix, seq)
	}
	clock := func() time.Time { return f.now }
	f.inv = &inventory.Service{Store: f.store, Now: clock, NewID: ids}
	f.pos = &sales.Service{Store: f.store, Now: clock, NewID: ids}
	return f
}

func (f *fixture) stock(t *testing.T, name string, qty int, price int64) records.InventoryItem {
	t.Helper()
	item, err := f.inv.Create(f.ctx, inventory.ItemInput{
		Name:     name,
		SKU:      "SKU-" + name,
		Quantity: qty,
		Price:    records.Pesos(price),
	})
	require.NoError(t, err)
	return item
}

func TestCheckout_DecrementsStockAndRecordsSale(t *testing.T) {
	// GIVEN: 30 packs of siomai at ₱150 and 12 of lumpia at ₱90
	// WHEN: a walk-in customer buys 5 siomai and 3 lumpia
	// THEN: stock drops, statuses are recomputed and the sale totals ₱1020
	f := newFixture(t)
	siomai := f.stock(t, "Siomai", 30, 150)
	lumpia := f.stock(t, "Lumpia", 12, 90)

	sale, err := f.pos.Checkout(f.ctx, sales.CheckoutInput{
		Items: []sales.Line{
			{ProductID: siomai.ID, Quantity: 5},
			{ProductID: lumpia.ID, Quantity: 3},
		},
		PaymentMethod: "gcash",
	})

	require.NoError(t, err)
	assert.Equal(t, sales.WalkInCustomer, sale.CustomerName)
	assert.Equal(t, sales.StatusCompleted, sale.Status)
	assert.True(t, sale.Total.Equal(records.Pesos(1020)), "got %s", sale.Total)
	require.Len(t, sale.Items, 2)
	assert.Equal(t, "Siomai", sale.Items[0].Name)

	gotSiomai, err := f.inv.Get(f.ctx, siomai.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, gotSiomai.Quantity)
	assert.Equal(t, records.InStock, gotSiomai.Status)

	gotLumpia, err := f.inv.Get(f.ctx, lumpia.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, gotLumpia.Quantity)
	assert.Equal(t, records.LowStock, gotLumpia.Status)

	list, err := f.pos.List(f.ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCheckout_InsufficientStockLeavesInventoryUnchanged(t *testing.T) {
	f := newFixture(t)
	siomai := f.stock(t, "Siomai", 30, 150)
	lumpia := f.stock(t, "Lumpia", 2, 90)

	_, err := f.pos.Checkout(f.ctx, sales.CheckoutInput{
		Items: []sales.Line{
			{ProductID: siomai.ID, Quantity: 5},
			{ProductID: lumpia.ID, Quantity: 3},
		},
		PaymentMethod: "cash",
	})

	require.Error(t, err)
	var stockErr *records.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Lumpia", stockErr.Name)
	assert.Equal(t, 2, stockErr.Available)
	assert.True(t, records.IsClientError(err))

	gotSiomai, err := f.inv.Get(f.ctx, siomai.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, gotSiomai.Quantity)
	list, err := f.pos.List(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCheckout_DuplicateLinesSummed(t *testing.T) {
	f := newFixture(t)
	siomai := f.stock(t, "Siomai", 5, 150)

	_, err := f.pos.Checkout(f.ctx, sales.CheckoutInput{
		Items: []sales.Line{
			{ProductID: siomai.ID, Quantity: 3},
			{ProductID: siomai.ID, Quantity: 3},
		},
		PaymentMethod: "cash",
	})

	var stockErr *records.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 6, stockErr.Requested)
}

func TestCheckout_SellingOutMarksOutOfStock(t *testing.T) {
	f := newFixture(t)
	siomai := f.stock(t, "Siomai", 4, 150)

	_, err := f.pos.Checkout(f.ctx, sales.CheckoutInput{
		Items:         []sales.Line{{ProductID: siomai.ID, Quantity: 4}},
		CustomerName:  "Aling Nena",
		PaymentMethod: "card",
	})
	require.NoError(t, err)

	got, err := f.inv.Get(f.ctx, siomai.ID)
	require.NoError(t, err)
	assert.Equal(t, records.OutOfStock, got.Status)
}

func TestCheckout_Validation(t *testing.T) {
	f := newFixture(t)
	siomai := f.stock(t, "Siomai", 4, 150)

	_, err := f.pos.Checkout(f.ctx, sales.CheckoutInput{PaymentMethod: "cash"})
	assert.ErrorIs(t, err, records.ErrValidation)

	_, err = f.pos.Checkout(f.ctx, sales.CheckoutInput{
		Items:         []sales.Line{{ProductID: siomai.ID, Quantity: 1}},
		PaymentMethod: "barter",
	})
	assert.ErrorIs(t, err, records.ErrValidation)

	_, err = f.pos.Checkout(f.ctx, sales.CheckoutInput{
		Items:         []sales.Line{{ProductID: "item-missing", Quantity: 1}},
		PaymentMethod: "cash",
	})
	assert.True(t, records.IsNotFound(err))
}

func TestBetween(t *testing.T) {
	f := newFixture(t)
	siomai := f.stock(t, "Siomai", 40, 100)
	buy := func() {
		_, err := f.pos.Checkout(f.ctx, sales.CheckoutInput{
			Items:         []sales.Line{{ProductID: siomai.ID, Quantity: 1}},
			PaymentMethod: "cash",
		})
		require.NoError(t, err)
	}

	f.now = time.Date(2026, time.October, 17, 10, 0, 0, 0, time.UTC)
	buy()
	f.now = time.Date(2026, time.October, 18, 10, 0, 0, 0, time.UTC)
	buy()
	buy()

	day := time.Date(2026, time.October, 18, 0, 0, 0, 0, time.UTC)
	today, err := f.pos.Between(f.ctx, day, day.AddDate(0, 0, 1))

	require.NoError(t, err)
	assert.Len(t, today, 2)
	assert.True(t, sales.Total(today).Equal(records.Pesos(200)))
}
