package inventory_test

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
)

func newService(t *testing.T) (*inventory.Service, *time.Time) {
	t.Helper()
	now := time.Date(2026, time.October, 18, 9, 0, 0, 0, time.UTC)
	seq := 0
	svc := inventory.NewService(memory.New())
	svc.Now = func() time.Time { return now }
	svc.NewID = func(prefix string) string {
		seq++
		return fmt.Sprintf("%s-%d", prefix, seq)
	}
	return svc, &now
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func item(name, sku string, qty int) inventory.ItemInput {
	return inventory.ItemInput{
		Name:     name,
		SKU:      sku,
		Category: "Dumplings",
		Quantity: qty,
		Price:    records.Pesos(150),
	}
}

func TestCreate_StatusComputed(t *testing.T) {
	// GIVEN: items created with quantity 0, 5 and 50 and critical level 10
	// WHEN: they are stored
	// THEN: their status is out-of-stock, low-stock and in-stock
	svc, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		qty  int
		want records.StockStatus
	}{
		{0, records.OutOfStock},
		{5, records.LowStock},
		{50, records.InStock},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprint(tt.qty), func(t *testing.T) {
			in := item("Siomai", fmt.Sprintf("SIO-%d", i), tt.qty)
			in.CriticalLevel = intPtr(10)

			got, err := svc.Create(ctx, in)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
			stored, err := svc.Get(ctx, got.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stored.Status)
		})
	}
}

func TestCreate_DefaultCriticalLevel(t *testing.T) {
	svc, _ := newService(t)

	got, err := svc.Create(context.Background(), item("Tocino", "TOC-1", 10))

	require.NoError(t, err)
	assert.Equal(t, records.DefaultCriticalLevel, got.CriticalLevel)
	assert.Equal(t, records.LowStock, got.Status)
}

func TestCreate_DuplicateSKU(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, item("Tocino", "TOC-1", 10))
	require.NoError(t, err)

	_, err = svc.Create(ctx, item("Tocino Sweet", "toc-1", 4))

	assert.ErrorIs(t, err, records.ErrConflict)
	all, err := svc.List(ctx, inventory.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, item("", "X-1", 1))
	assert.ErrorIs(t, err, records.ErrValidation)

	_, err = svc.Create(ctx, item("Longganisa", "LON-1", -1))
	assert.ErrorIs(t, err, records.ErrValidation)

	bad := item("Longganisa", "LON-1", 1)
	bad.ExpiryDate = strPtr("next week")
	_, err = svc.Create(ctx, bad)
	var verrs records.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "expiryDate", verrs[0].Field)
}

func TestUpdate_RecomputesStatus(t *testing.T) {
	svc, now := newService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, item("Tocino", "TOC-1", 50))
	require.NoError(t, err)
	*now = now.Add(time.Hour)

	in := item("Tocino", "TOC-1", 0)
	updated, err := svc.Update(ctx, created.ID, in)

	require.NoError(t, err)
	assert.Equal(t, records.OutOfStock, updated.Status)
	assert.True(t, updated.LastUpdated.Equal(*now))
	assert.Equal(t, records.DefaultCriticalLevel, updated.CriticalLevel, "nil critical level keeps the current one")
}

func TestUpdate_SKUConflictWithOtherItem(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, item("Tocino", "TOC-1", 50))
	require.NoError(t, err)
	other, err := svc.Create(ctx, item("Siomai", "SIO-1", 50))
	require.NoError(t, err)

	_, err = svc.Update(ctx, other.ID, item("Siomai", "TOC-1", 50))
	assert.ErrorIs(t, err, records.ErrConflict)

	// keeping its own SKU is fine
	_, err = svc.Update(ctx, other.ID, item("Siomai Large", "SIO-1", 40))
	assert.NoError(t, err)
}

func TestRestockAndDelete(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, item("Tocino", "TOC-1", 0))
	require.NoError(t, err)

	restocked, err := svc.Restock(ctx, created.ID, 25)
	require.NoError(t, err)
	assert.Equal(t, 25, restocked.Quantity)
	assert.Equal(t, records.InStock, restocked.Status)

	_, err = svc.Restock(ctx, created.ID, 0)
	assert.ErrorIs(t, err, records.ErrValidation)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	assert.True(t, records.IsNotFound(err))
	assert.True(t, records.IsNotFound(svc.Delete(ctx, created.ID)))
}

func TestListFiltersAndCritical(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, item("Siomai", "SIO-1", 50))
	require.NoError(t, err)
	_, err = svc.Create(ctx, item("Lumpia", "LUM-1", 3))
	require.NoError(t, err)
	meat := item("Chicken Tocino", "TOC-1", 0)
	meat.Category = "Cured Meat"
	_, err = svc.Create(ctx, meat)
	require.NoError(t, err)

	all, err := svc.List(ctx, inventory.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Chicken Tocino", all[0].Name)

	dumplings, err := svc.List(ctx, inventory.Filter{Category: "dumplings"})
	require.NoError(t, err)
	assert.Len(t, dumplings, 2)

	bySKU, err := svc.List(ctx, inventory.Filter{Search: "lum"})
	require.NoError(t, err)
	assert.Len(t, bySKU, 1)

	low, err := svc.List(ctx, inventory.Filter{Status: records.LowStock})
	require.NoError(t, err)
	assert.Len(t, low, 1)

	critical, err := svc.Critical(ctx)
	require.NoError(t, err)
	require.Len(t, critical, 2)
	assert.Equal(t, 0, critical[0].Quantity)

	cats, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cured Meat", "Dumplings"}, cats)
}

func TestExpiring(t *testing.T) {
	// GIVEN: items expiring yesterday, in 10 days, in 60 days, and one with no date
	// WHEN: items expiring within 30 days are requested
	// THEN: the expired and the 10-day items come back, soonest first
	svc, now := newService(t)
	ctx := context.Background()
	dates := map[string]*string{
		"EXP-1": strPtr("2026-10-17"),
		"EXP-2": strPtr("2026-10-28"),
		"EXP-3": strPtr("2026-12-17"),
		"EXP-4": nil,
	}
	for sku, date := range dates {
		in := item("Item "+sku, sku, 20)
		in.ExpiryDate = date
		_, err := svc.Create(ctx, in)
		require.NoError(t, err)
	}

	got, err := svc.Expiring(ctx, *now, inventory.DefaultExpiryWindow)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "EXP-1", got[0].SKU)
	assert.Equal(t, -1, got[0].DaysLeft)
	assert.Equal(t, "EXP-2", got[1].SKU)
	assert.Equal(t, 10, got[1].DaysLeft)
}

func TestImport_UpsertsBySKU(t *testing.T) {
	// GIVEN: an existing item and a sheet that updates it (SKU in another
	// case), adds a new one and carries one invalid row
	// WHEN: imported
	// THEN: one created, one updated, one rejected, statuses recomputed
	svc, _ := newService(t)
	ctx := context.Background()
	existing, err := svc.Create(ctx, item("Pork Siomai", "SIO-01", 50))
	require.NoError(t, err)

	updated := item("Pork Siomai (Large)", "sio-01", 4)
	fresh := item("Chicken Tocino", "TOC-01", 30)
	fresh.CriticalLevel = intPtr(5)
	invalid := item("", "BAD-01", 3)

	res, err := svc.Import(ctx, []inventory.ItemInput{updated, fresh, invalid})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Updated)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 2, res.Errors[0].Index)
	assert.ErrorIs(t, res.Errors[0].Err, records.ErrValidation)

	got, err := svc.Get(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pork Siomai (Large)", got.Name)
	assert.Equal(t, "SIO-01", got.SKU, "SKU keeps its stored spelling")
	assert.Equal(t, records.LowStock, got.Status)

	all, err := svc.List(ctx, inventory.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
