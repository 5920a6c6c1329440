/*
Package records holds the persisted entities of the back office and the
storage contract they are read and written through.

PURPOSE:
  Every screen of the business (inventory, point of sale, production log,
  payroll) works on a handful of flat collections. This package defines
  those record shapes as a closed set of typed structs, the Money type used
  for every currency amount, and the Store interface that persists each
  collection as one JSON document.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: decimal currency amount (pesos)
  - ProductionRecord: one logged unit of work by an employee
  - SalaryRecord: one payroll disbursement for one employee and period
  - Employee / User: people and their credentials
  - InventoryItem / Sale: stock and point-of-sale records

DESIGN PRINCIPLES:
  1. Precision: currency uses decimal.Decimal, never float64
  2. Explicit optionals: optional fields are pointers or documented zero values
  3. Validation at the boundary: every record carries validator tags that
     Collection checks on every read and write

SEE ALSO:
  - store.go: Store / TxStore persistence contract
  - collection.go: typed accessor over a Store
  - errors.go: sentinel and structured errors
*/
package records

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY
// =============================================================================

// Money is a currency amount in pesos.
type Money = decimal.Decimal

// Pesos returns a whole-peso amount.
func Pesos(v int64) Money { return CanonicalMoney(decimal.NewFromInt(v)) }

// MustMoney parses a decimal string, returning zero on malformed input.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return CanonicalMoney(decimal.Zero)
	}
	return CanonicalMoney(d)
}

// CanonicalMoney returns m in the form it is decoded as after storage:
// trailing fractional zeros dropped, zero at exponent 0.
func CanonicalMoney(m Money) Money {
	c, err := decimal.NewFromString(m.String())
	if err != nil {
		return m
	}
	return c
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string

// =============================================================================
// PRODUCTION
// =============================================================================

type ProductionStatus string

const (
	ProductionPending  ProductionStatus = "pending"
	ProductionReviewed ProductionStatus = "reviewed"
	ProductionPaid     ProductionStatus = "paid"
)

// ProductionRecord is one unit of work performed by an employee, priced at a
// unit rate. TotalEarnings is fixed at creation and never recomputed.
type ProductionRecord struct {
	ID            string           `json:"id" validate:"required"`
	EmployeeID    EmployeeID       `json:"employeeId" validate:"required"`
	EmployeeName  string           `json:"employeeName"`
	ItemName      string           `json:"itemName" validate:"required"`
	Category      string           `json:"category,omitempty"`
	Quantity      decimal.Decimal  `json:"quantity" validate:"gt=0"`
	Unit          string           `json:"unit"`
	UnitPrice     Money            `json:"unitPrice" validate:"gte=0"`
	TotalEarnings Money            `json:"totalEarnings" validate:"gte=0"`
	Date          string           `json:"date" validate:"required"`
	Status        ProductionStatus `json:"status" validate:"oneof=pending reviewed paid"`
	Remarks       string           `json:"remarks,omitempty"`
	SubmittedAt   time.Time        `json:"submittedAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// ProductionRef is the snapshot of a ProductionRecord kept on the salary
// record that pays it.
type ProductionRef struct {
	ID            string          `json:"id" validate:"required"`
	ItemName      string          `json:"itemName"`
	Quantity      decimal.Decimal `json:"quantity"`
	Unit          string          `json:"unit"`
	TotalEarnings Money           `json:"totalEarnings"`
	Date          string          `json:"date"`
}

// Ref returns the reference a salary record keeps for p.
func (p ProductionRecord) Ref() ProductionRef {
	return ProductionRef{
		ID:            p.ID,
		ItemName:      p.ItemName,
		Quantity:      p.Quantity,
		Unit:          p.Unit,
		TotalEarnings: p.TotalEarnings,
		Date:          p.Date,
	}
}

// =============================================================================
// SALARY
// =============================================================================

type SalaryStatus string

const (
	SalaryPending    SalaryStatus = "Pending"
	SalaryProcessing SalaryStatus = "Processing"
	SalaryPaid       SalaryStatus = "Paid"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "Cash"
	PaymentOnline PaymentMethod = "OnlinePayment"
)

// SalaryRecord is one payroll disbursement unit for one employee for one
// period. NetPay = BaseSalary + ProductionEarnings + Bonuses - Deductions.
type SalaryRecord struct {
	ID                 string          `json:"id" validate:"required"`
	EmployeeID         EmployeeID      `json:"employeeId" validate:"required"`
	EmployeeName       string          `json:"employeeName"`
	Period             string          `json:"period" validate:"required"`
	BaseSalary         Money           `json:"baseSalary" validate:"gte=0"`
	ProductionEarnings Money           `json:"productionEarnings" validate:"gte=0"`
	Bonuses            Money           `json:"bonuses" validate:"gte=0"`
	Deductions         Money           `json:"deductions" validate:"gte=0"`
	NetPay             Money           `json:"netPay"`
	Status             SalaryStatus    `json:"status" validate:"oneof=Pending Processing Paid"`
	PaymentMethod      PaymentMethod   `json:"paymentMethod" validate:"omitempty,oneof=Cash OnlinePayment"`
	PaymentDate        *time.Time      `json:"paymentDate,omitempty"`
	PaymentNotes       string          `json:"paymentNotes,omitempty"`
	ProductionRecords  []ProductionRef `json:"productionRecords" validate:"dive"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// Recalculate restores the NetPay identity. Every mutation of a pay
// component must call it.
func (s *SalaryRecord) Recalculate() {
	s.NetPay = s.BaseSalary.Add(s.ProductionEarnings).Add(s.Bonuses).Sub(s.Deductions)
}

// References reports whether the record covers production record id.
func (s SalaryRecord) References(id string) bool {
	for _, ref := range s.ProductionRecords {
		if ref.ID == id {
			return true
		}
	}
	return false
}

// =============================================================================
// PEOPLE
// =============================================================================

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// Employee is the payroll identity of a user with the employee role.
type Employee struct {
	ID             EmployeeID      `json:"id" validate:"required"`
	Name           string          `json:"name" validate:"required"`
	Position       string          `json:"position"`
	BaseSalary     Money           `json:"baseSalary" validate:"gte=0"`
	PaymentMethod  PaymentMethod   `json:"paymentMethod" validate:"omitempty,oneof=Cash OnlinePayment"`
	ProductionRate decimal.Decimal `json:"productionRate"`
}

// User is a login account. PasswordHash is a bcrypt hash, never plaintext.
type User struct {
	ID           string    `json:"id" validate:"required"`
	Username     string    `json:"username" validate:"required"`
	PasswordHash string    `json:"passwordHash" validate:"required"`
	Role         Role      `json:"role" validate:"oneof=admin employee"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
}

// =============================================================================
// INVENTORY & SALES
// =============================================================================

type StockStatus string

const (
	InStock    StockStatus = "in-stock"
	LowStock   StockStatus = "low-stock"
	OutOfStock StockStatus = "out-of-stock"
)

// DefaultCriticalLevel is used when an item is created without one.
const DefaultCriticalLevel = 10

// StockStatusFor computes the status of an item holding quantity units.
func StockStatusFor(quantity, criticalLevel int) StockStatus {
	switch {
	case quantity <= 0:
		return OutOfStock
	case quantity <= criticalLevel:
		return LowStock
	default:
		return InStock
	}
}

type InventoryItem struct {
	ID            string      `json:"id" validate:"required"`
	Name          string      `json:"name" validate:"required"`
	SKU           string      `json:"sku" validate:"required"`
	Category      string      `json:"category"`
	Quantity      int         `json:"quantity" validate:"gte=0"`
	Price         Money       `json:"price" validate:"gte=0"`
	CriticalLevel int         `json:"criticalLevel" validate:"gte=0"`
	ExpiryDate    *string     `json:"expiryDate,omitempty"`
	LastUpdated   time.Time   `json:"lastUpdated"`
	Status        StockStatus `json:"status" validate:"oneof=in-stock low-stock out-of-stock"`
}

// Value is the stock value of the item at its selling price.
func (i InventoryItem) Value() Money {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type SaleItem struct {
	ProductID string `json:"productId" validate:"required"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
	Price     Money  `json:"price" validate:"gte=0"`
}

// Subtotal is price × quantity for the line.
func (si SaleItem) Subtotal() Money {
	return si.Price.Mul(decimal.NewFromInt(int64(si.Quantity)))
}

type Sale struct {
	ID            string     `json:"id" validate:"required"`
	Items         []SaleItem `json:"items" validate:"min=1,dive"`
	Total         Money      `json:"total" validate:"gte=0"`
	CustomerName  string     `json:"customerName"`
	PaymentMethod string     `json:"paymentMethod" validate:"required"`
	Status        string     `json:"status"`
	Date          time.Time  `json:"date"`
}
