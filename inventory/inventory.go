/*
Package inventory manages the frozen-goods stock list.

PURPOSE:
  Items carry a quantity, a selling price, a critical level and an optional
  expiry date. Their stock status is never taken from input: it is computed
  from quantity and critical level on every write, so the stored status
  always agrees with the stored quantity.

RULES:
  - quantity <= 0              -> out-of-stock
  - quantity <= criticalLevel  -> low-stock
  - otherwise                  -> in-stock
  - SKU is unique across items (case-insensitive)

SEE ALSO:
  - sales: checkout decrements stock through the same status rule
  - reports: expiring and low-stock reports
*/
package inventory

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/tess/backoffice/records"
)

// DefaultExpiryWindow is how far ahead Expiring looks by default.
const DefaultExpiryWindow = 30 * 24 * time.Hour

type Service struct {
	Store records.TxStore
	Now   func() time.Time
	NewID func(prefix string) string
}

func NewService(store records.TxStore) *Service {
	return &Service{Store: store, Now: time.Now, NewID: records.NewID}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Service) newID(prefix string) string {
	if s.NewID == nil {
		return records.NewID(prefix)
	}
	return s.NewID(prefix)
}

// ItemInput is the editable part of an inventory item. A nil CriticalLevel
// means DefaultCriticalLevel on create and "unchanged" on update.
type ItemInput struct {
	Name          string        `json:"name" validate:"required"`
	SKU           string        `json:"sku" validate:"required"`
	Category      string        `json:"category"`
	Quantity      int           `json:"quantity" validate:"gte=0"`
	Price         records.Money `json:"price" validate:"gte=0"`
	CriticalLevel *int          `json:"criticalLevel" validate:"omitempty,gte=0"`
	ExpiryDate    *string       `json:"expiryDate"`
}

func (in *ItemInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.SKU = strings.TrimSpace(in.SKU)
	in.Category = strings.TrimSpace(in.Category)
	if err := records.Validate(*in); err != nil {
		return err
	}
	if in.ExpiryDate != nil {
		if strings.TrimSpace(*in.ExpiryDate) == "" {
			in.ExpiryDate = nil
		} else if _, err := parseExpiry(*in.ExpiryDate); err != nil {
			return records.Invalid("expiryDate", "must be a date (YYYY-MM-DD)")
		}
	}
	return nil
}

func parseExpiry(s string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(s))
}

// Restamp recomputes the derived fields of an item after its quantity or
// critical level changed.
func Restamp(item *records.InventoryItem, now time.Time) {
	item.Status = records.StockStatusFor(item.Quantity, item.CriticalLevel)
	item.LastUpdated = now
}

// =============================================================================
// CRUD
// =============================================================================

// Create adds an item. A SKU already in use is ErrConflict.
func (s *Service) Create(ctx context.Context, in ItemInput) (records.InventoryItem, error) {
	if err := in.normalize(); err != nil {
		return records.InventoryItem{}, err
	}

	critical := records.DefaultCriticalLevel
	if in.CriticalLevel != nil {
		critical = *in.CriticalLevel
	}
	item := records.InventoryItem{
		ID:            s.newID("item"),
		Name:          in.Name,
		SKU:           in.SKU,
		Category:      in.Category,
		Quantity:      in.Quantity,
		Price:         in.Price,
		CriticalLevel: critical,
		ExpiryDate:    in.ExpiryDate,
	}
	Restamp(&item, s.now())

	err := records.Inventory.Update(ctx, s.Store, func(items []records.InventoryItem) ([]records.InventoryItem, error) {
		if err := checkSKU(items, item.SKU, ""); err != nil {
			return nil, err
		}
		return append(items, item), nil
	})
	if err != nil {
		return records.InventoryItem{}, err
	}

	log.Printf("[Inventory] added %s (%s) qty=%d status=%s", item.Name, item.SKU, item.Quantity, item.Status)
	return item, nil
}

// Update replaces the editable fields of an item.
func (s *Service) Update(ctx context.Context, id string, in ItemInput) (records.InventoryItem, error) {
	if err := in.normalize(); err != nil {
		return records.InventoryItem{}, err
	}

	var updated records.InventoryItem
	err := records.Inventory.Update(ctx, s.Store, func(items []records.InventoryItem) ([]records.InventoryItem, error) {
		item, i, ok := records.Find(items, func(it records.InventoryItem) bool { return it.ID == id })
		if !ok {
			return nil, &records.NotFoundError{Kind: "inventory item", ID: id}
		}
		if err := checkSKU(items, in.SKU, id); err != nil {
			return nil, err
		}

		item.Name = in.Name
		item.SKU = in.SKU
		item.Category = in.Category
		item.Quantity = in.Quantity
		item.Price = in.Price
		item.ExpiryDate = in.ExpiryDate
		if in.CriticalLevel != nil {
			item.CriticalLevel = *in.CriticalLevel
		}
		Restamp(&item, s.now())

		items[i] = item
		updated = item
		return items, nil
	})
	return updated, err
}

// ImportError is one input Import rejected.
type ImportError struct {
	Index int    `json:"index"`
	SKU   string `json:"sku"`
	Err   error  `json:"-"`
}

// ImportResult counts what Import did.
type ImportResult struct {
	Created int           `json:"created"`
	Updated int           `json:"updated"`
	Errors  []ImportError `json:"errors"`
}

// Import upserts items by SKU in one write: an existing SKU is updated in
// place, a new one is created. Invalid inputs are reported and skipped.
func (s *Service) Import(ctx context.Context, inputs []ItemInput) (ImportResult, error) {
	var res ImportResult
	err := records.Inventory.Update(ctx, s.Store, func(items []records.InventoryItem) ([]records.InventoryItem, error) {
		res = ImportResult{}
		now := s.now()
		for n, in := range inputs {
			if err := in.normalize(); err != nil {
				res.Errors = append(res.Errors, ImportError{Index: n, SKU: in.SKU, Err: err})
				continue
			}
			_, i, ok := records.Find(items, func(it records.InventoryItem) bool {
				return strings.EqualFold(it.SKU, in.SKU)
			})
			if ok {
				item := items[i]
				item.Name = in.Name
				item.Category = in.Category
				item.Quantity = in.Quantity
				item.Price = in.Price
				item.ExpiryDate = in.ExpiryDate
				if in.CriticalLevel != nil {
					item.CriticalLevel = *in.CriticalLevel
				}
				Restamp(&item, now)
				items[i] = item
				res.Updated++
				continue
			}

			critical := records.DefaultCriticalLevel
			if in.CriticalLevel != nil {
				critical = *in.CriticalLevel
			}
			item := records.InventoryItem{
				ID:            s.newID("item"),
				Name:          in.Name,
				SKU:           in.SKU,
				Category:      in.Category,
				Quantity:      in.Quantity,
				Price:         in.Price,
				CriticalLevel: critical,
				ExpiryDate:    in.ExpiryDate,
			}
			Restamp(&item, now)
			items = append(items, item)
			res.Created++
		}
		return items, nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	log.Printf("[Inventory] import: %d created, %d updated, %d rejected", res.Created, res.Updated, len(res.Errors))
	return res, nil
}

// Restock adds qty units to an item.
func (s *Service) Restock(ctx context.Context, id string, qty int) (records.InventoryItem, error) {
	if qty <= 0 {
		return records.InventoryItem{}, records.Invalid("quantity", "must be greater than 0")
	}

	var updated records.InventoryItem
	err := records.Inventory.Update(ctx, s.Store, func(items []records.InventoryItem) ([]records.InventoryItem, error) {
		item, i, ok := records.Find(items, func(it records.InventoryItem) bool { return it.ID == id })
		if !ok {
			return nil, &records.NotFoundError{Kind: "inventory item", ID: id}
		}
		item.Quantity += qty
		Restamp(&item, s.now())
		items[i] = item
		updated = item
		return items, nil
	})
	return updated, err
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return records.Inventory.Update(ctx, s.Store, func(items []records.InventoryItem) ([]records.InventoryItem, error) {
		_, i, ok := records.Find(items, func(it records.InventoryItem) bool { return it.ID == id })
		if !ok {
			return nil, &records.NotFoundError{Kind: "inventory item", ID: id}
		}
		return append(items[:i], items[i+1:]...), nil
	})
}

func (s *Service) Get(ctx context.Context, id string) (records.InventoryItem, error) {
	items, err := records.Inventory.All(ctx, s.Store)
	if err != nil {
		return records.InventoryItem{}, err
	}
	item, _, ok := records.Find(items, func(it records.InventoryItem) bool { return it.ID == id })
	if !ok {
		return records.InventoryItem{}, &records.NotFoundError{Kind: "inventory item", ID: id}
	}
	return item, nil
}

func checkSKU(items []records.InventoryItem, sku, exceptID string) error {
	for _, it := range items {
		if it.ID != exceptID && strings.EqualFold(it.SKU, sku) {
			return fmt.Errorf("sku %q is used by %s: %w", sku, it.Name, records.ErrConflict)
		}
	}
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Search   string
	Category string
	Status   records.StockStatus
}

// List returns matching items ordered by name.
func (s *Service) List(ctx context.Context, f Filter) ([]records.InventoryItem, error) {
	items, err := records.Inventory.All(ctx, s.Store)
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]records.InventoryItem, 0, len(items))
	for _, it := range items {
		if f.Category != "" && !strings.EqualFold(it.Category, f.Category) {
			continue
		}
		if f.Status != "" && it.Status != f.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(it.Name), search) &&
			!strings.Contains(strings.ToLower(it.SKU), search) {
			continue
		}
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// Categories returns the distinct categories in use, sorted.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	items, err := records.Inventory.All(ctx, s.Store)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, it := range items {
		if it.Category != "" && !seen[it.Category] {
			seen[it.Category] = true
			out = append(out, it.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Critical returns items that are low or out of stock.
func (s *Service) Critical(ctx context.Context) ([]records.InventoryItem, error) {
	items, err := records.Inventory.All(ctx, s.Store)
	if err != nil {
		return nil, err
	}
	var out []records.InventoryItem
	for _, it := range items {
		if it.Status != records.InStock {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Quantity < out[j].Quantity })
	return out, nil
}

// ExpiringItem is an item with its days until expiry (negative once expired).
type ExpiringItem struct {
	records.InventoryItem
	DaysLeft int `json:"daysLeft"`
}

// Expiring returns items whose expiry date falls before now+within,
// including already expired ones, soonest first.
func (s *Service) Expiring(ctx context.Context, now time.Time, within time.Duration) ([]ExpiringItem, error) {
	items, err := records.Inventory.All(ctx, s.Store)
	if err != nil {
		return nil, err
	}
	return ExpiringFrom(items, now, within), nil
}

// ExpiringFrom is Expiring over an already loaded item list.
func ExpiringFrom(items []records.InventoryItem, now time.Time, within time.Duration) []ExpiringItem {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	cutoff := today.Add(within)

	var out []ExpiringItem
	for _, it := range items {
		if it.ExpiryDate == nil {
			continue
		}
		expiry, err := parseExpiry(*it.ExpiryDate)
		if err != nil || expiry.After(cutoff) {
			continue
		}
		days := int(expiry.Sub(today).Hours() / 24)
		out = append(out, ExpiringItem{InventoryItem: it, DaysLeft: days})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DaysLeft < out[j].DaysLeft })
	return out
}
