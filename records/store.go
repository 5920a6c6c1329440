/*
store.go - Persistence interface for record collections

PURPOSE:
  Defines the interface between the domain services and whatever keeps the
  data. Every logical collection (inventory, sales, users, employees,
  production records, salary records) is persisted as ONE JSON array under a
  stable name, the same layout the front end has always used.

KEY INTERFACES:
  Store:   Load and compare-and-swap Save of a named document
  TxStore: Store + WithTx for atomic multi-collection writes

OPTIMISTIC VERSIONING:
  Each document carries a version. Save succeeds only when the caller's
  version matches the stored one and returns the new version. A stale writer
  gets ErrConcurrentModification instead of silently overwriting another
  writer's full collection.

IMPLEMENTATIONS:
  - records/memory: in-memory, for tests and demos
  - store/sqlite:   SQLite, one row per collection

SEE ALSO:
  - collection.go: typed accessor built on Store
*/
package records

import "context"

// CollectionName is the stable key a collection is persisted under.
type CollectionName string

const (
	CollectionInventory  CollectionName = "tess_inventory"
	CollectionSales      CollectionName = "tess_sales"
	CollectionUsers      CollectionName = "tess_users"
	CollectionEmployees  CollectionName = "tess_employees"
	CollectionProduction CollectionName = "tess_production_records"
	CollectionSalaries   CollectionName = "tess_salary_records"
)

// AllCollections lists every collection the back office persists.
var AllCollections = []CollectionName{
	CollectionInventory,
	CollectionSales,
	CollectionUsers,
	CollectionEmployees,
	CollectionProduction,
	CollectionSalaries,
}

// Document is the serialized form of one collection.
// Version 0 means the collection has never been written.
type Document struct {
	Name    CollectionName
	Data    []byte
	Version int64
}

// =============================================================================
// STORE - Interface for collection persistence
// =============================================================================

type Store interface {
	// Load returns the named document. A missing collection is an empty
	// document with Version 0, not an error.
	Load(ctx context.Context, name CollectionName) (Document, error)

	// Save writes doc if the stored version still equals doc.Version and
	// returns the new version. Otherwise returns ErrConcurrentModification.
	Save(ctx context.Context, doc Document) (int64, error)
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic operations across collections
// =============================================================================

// TxStore wraps Store with transaction support.
// Use this when one operation writes several collections (paying a salary
// flips production records, a sale decrements inventory).
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, every Save made through the given Store is
	// discarded. If fn returns nil, they are committed together.
	WithTx(ctx context.Context, fn func(Store) error) error
}
