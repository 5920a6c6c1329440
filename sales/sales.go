// Package sales implements point-of-sale checkout against the inventory.
package sales

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tess/backoffice/inventory"
	"github.com/tess/backoffice/records"
)

const (
	WalkInCustomer  = "Walk-in Customer"
	StatusCompleted = "completed"
)

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

// Line is one product and quantity in a cart.
type Line struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

// CheckoutInput is a cart ready to be paid.
type CheckoutInput struct {
	Items         []Line `json:"items" validate:"min=1,dive"`
	CustomerName  string `json:"customerName"`
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=cash card gcash"`
}

// =============================================================================
// CHECKOUT - Stock check, decrement and sale record in one transaction
// =============================================================================

// Checkout sells a cart. Prices come from the inventory, not the caller.
//
// This is TRANSACTIONAL:
//   - Every line is checked against current stock (lines for the same
//     product are summed first)
//   - Stock is decremented and item statuses recomputed
//   - The sale is recorded with total = Σ price × quantity
//
// If any line cannot be filled nothing is written.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (records.Sale, error) {
	if err := records.Validate(in); err != nil {
		return records.Sale{}, err
	}
	customer := strings.TrimSpace(in.CustomerName)
	if customer == "" {
		customer = WalkInCustomer
	}

	var sale records.Sale
	err := s.Store.WithTx(ctx, func(tx records.Store) error {
		items, invVersion, err := records.Inventory.Load(ctx, tx)
		if err != nil {
			return err
		}
		index := make(map[string]int, len(items))
		for i, it := range items {
			index[it.ID] = i
		}

		requested := make(map[string]int)
		for _, line := range in.Items {
			requested[line.ProductID] += line.Quantity
		}
		for _, line := range in.Items {
			i, ok := index[line.ProductID]
			if !ok {
				return &records.NotFoundError{Kind: "inventory item", ID: line.ProductID}
			}
			if want := requested[line.ProductID]; items[i].Quantity < want {
				return &records.InsufficientStockError{
					ProductID: line.ProductID,
					Name:      items[i].Name,
					Available: items[i].Quantity,
					Requested: want,
				}
			}
		}

		now := s.now()
		sale = records.Sale{
			ID:            s.newID("sale"),
			CustomerName:  customer,
			PaymentMethod: in.PaymentMethod,
			Status:        StatusCompleted,
			Date:          now,
			Total:         decimal.Zero,
		}
		for _, line := range in.Items {
			item := &items[index[line.ProductID]]
			item.Quantity -= line.Quantity
			inventory.Restamp(item, now)

			si := records.SaleItem{
				ProductID: item.ID,
				Name:      item.Name,
				Quantity:  line.Quantity,
				Price:     item.Price,
			}
			sale.Items = append(sale.Items, si)
			sale.Total = sale.Total.Add(si.Subtotal())
		}

		if _, err := records.Inventory.Save(ctx, tx, items, invVersion); err != nil {
			return fmt.Errorf("failed to update stock: %w", err)
		}

		sales, salesVersion, err := records.Sales.Load(ctx, tx)
		if err != nil {
			return err
		}
		if _, err := records.Sales.Save(ctx, tx, append(sales, sale), salesVersion); err != nil {
			return fmt.Errorf("failed to record sale: %w", err)
		}
		return nil
	})
	if err != nil {
		return records.Sale{}, err
	}

	log.Printf("[Sales] %s: %d line(s) to %s, total %s", sale.ID, len(sale.Items), sale.CustomerName, sale.Total.StringFixed(2))
	return sale, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// List returns every sale, newest first.
func (s *Service) List(ctx context.Context) ([]records.Sale, error) {
	sales, err := records.Sales.All(ctx, s.Store)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sales, func(i, j int) bool { return sales[i].Date.After(sales[j].Date) })
	return sales, nil
}

// Between returns sales dated in [from, to), newest first.
func (s *Service) Between(ctx context.Context, from, to time.Time) ([]records.Sale, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return Between(all, from, to), nil
}

// Between filters already loaded sales to [from, to).
func Between(sales []records.Sale, from, to time.Time) []records.Sale {
	var out []records.Sale
	for _, sale := range sales {
		if !sale.Date.Before(from) && sale.Date.Before(to) {
			out = append(out, sale)
		}
	}
	return out
}

func (s *Service) Get(ctx context.Context, id string) (records.Sale, error) {
	sales, err := records.Sales.All(ctx, s.Store)
	if err != nil {
		return records.Sale{}, err
	}
	sale, _, ok := records.Find(sales, func(sl records.Sale) bool { return sl.ID == id })
	if !ok {
		return records.Sale{}, &records.NotFoundError{Kind: "sale", ID: id}
	}
	return sale, nil
}

// Total sums the totals of sales.
func Total(sales []records.Sale) records.Money {
	total := decimal.Zero
	for _, s := range sales {
		total = total.Add(s.Total)
	}
	return total
}
