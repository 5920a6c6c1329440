package records

import (
	"context"
	"encoding/json"
	"fmt"
)

// =============================================================================
// COLLECTION - Typed view over one Store document
// =============================================================================

// Collection reads and writes one named collection as []T.
//
// Every element is validated on the way in and on the way out, so a record
// that violates its invariants can neither be persisted nor silently loaded.
type Collection[T any] struct {
	Name CollectionName
}

var (
	Inventory  = Collection[InventoryItem]{Name: CollectionInventory}
	Sales      = Collection[Sale]{Name: CollectionSales}
	Users      = Collection[User]{Name: CollectionUsers}
	Employees  = Collection[Employee]{Name: CollectionEmployees}
	Production = Collection[ProductionRecord]{Name: CollectionProduction}
	Salaries   = Collection[SalaryRecord]{Name: CollectionSalaries}
)

// Load returns the items and the version they were read at.
func (c Collection[T]) Load(ctx context.Context, s Store) ([]T, int64, error) {
	doc, err := s.Load(ctx, c.Name)
	if err != nil {
		return nil, 0, fmt.Errorf("load %s: %w", c.Name, err)
	}
	if len(doc.Data) == 0 {
		return nil, doc.Version, nil
	}

	var items []T
	if err := json.Unmarshal(doc.Data, &items); err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %v", ErrCorruptCollection, c.Name, err)
	}
	for i := range items {
		if err := Validate(items[i]); err != nil {
			return nil, 0, fmt.Errorf("%w: %s[%d]: %v", ErrCorruptCollection, c.Name, i, err)
		}
	}
	return items, doc.Version, nil
}

// All returns the items, ignoring the version.
func (c Collection[T]) All(ctx context.Context, s Store) ([]T, error) {
	items, _, err := c.Load(ctx, s)
	return items, err
}

// Save replaces the whole collection if it is still at version.
//
// items are rewritten in place to their stored form, so they compare equal to
// what a later Load returns. Decimals lose trailing fractional zeros on
// encode; 185.50 is stored and read back as 185.5.
func (c Collection[T]) Save(ctx context.Context, s Store, items []T, version int64) (int64, error) {
	for i := range items {
		if err := Validate(items[i]); err != nil {
			return 0, err
		}
	}
	data, err := c.encode(items)
	if err != nil {
		return 0, err
	}
	return s.Save(ctx, Document{Name: c.Name, Data: data, Version: version})
}

func (c Collection[T]) encode(items []T) ([]byte, error) {
	if items == nil {
		return []byte("[]"), nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", c.Name, err)
	}

	var stored []T
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("encode %s: %w", c.Name, err)
	}
	copy(items, stored)
	return data, nil
}

// Update performs one read-modify-write of the collection.
func (c Collection[T]) Update(ctx context.Context, s Store, fn func([]T) ([]T, error)) error {
	items, version, err := c.Load(ctx, s)
	if err != nil {
		return err
	}
	updated, err := fn(items)
	if err != nil {
		return err
	}
	_, err = c.Save(ctx, s, updated, version)
	return err
}

// Find returns the first item matching pred.
func Find[T any](items []T, pred func(T) bool) (T, int, bool) {
	for i, item := range items {
		if pred(item) {
			return item, i, true
		}
	}
	var zero T
	return zero, -1, false
}
