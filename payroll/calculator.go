/*
Package payroll turns logged production into salary records and pays them.

PURPOSE:
  Employees log production (items made, priced at a unit rate). Payroll
  periodically reconciles the unpaid production of a period into salary
  records, then walks each record through Pending -> Processing -> Paid.
  Paying a record stamps every production record it covers as paid.

KEY CONCEPTS:
  - Period: a month (or all time) selected relative to now; its label is
    the reconciliation partition key
  - Primary record: the first salary record of an employee for a period,
    carrying the base salary
  - Adjustment record: a later record for the same period covering
    production logged after the primary was generated; base salary 0

INVARIANTS:
  1. No double allocation: a production record is referenced by at most one
     salary record of its employee
  2. Idempotent generation: regenerating with no new production creates
     nothing
  3. NetPay = BaseSalary + ProductionEarnings + Bonuses - Deductions after
     every mutation
  4. Only the Paid transition marks production as paid, and only the
     production the record references

SEE ALSO:
  - period.go: selector resolution
  - payment.go: payment state machine
  - production.go: production log
*/
package payroll

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tess/backoffice/records"
)

// =============================================================================
// SALARY CALCULATOR
// =============================================================================

// Calculate reconciles one employee's production for period against the
// existing salary records. It returns nil when there is nothing new to pay.
//
// The result is the primary record of the period when the employee has no
// record labelled for it yet, and an adjustment record otherwise. It covers
// exactly the unpaid production of the period that no salary record of the
// employee references.
//
// Exclusion is not scoped to records covering period: production referenced
// by any of the employee's records, from any period, is never paid twice.
func Calculate(
	emp records.Employee,
	period Period,
	production []records.ProductionRecord,
	salaries []records.SalaryRecord,
	now time.Time,
	newID func() string,
) *records.SalaryRecord {
	var unpaid []records.ProductionRecord
	for _, p := range production {
		if p.EmployeeID != emp.ID || !period.Contains(p.Date) {
			continue
		}
		if p.Status != records.ProductionPaid {
			unpaid = append(unpaid, p)
		}
	}
	if len(unpaid) == 0 {
		return nil
	}

	// Records of this period decide primary vs adjustment. Every record of
	// the employee counts for coverage, so "all" never re-pays a month.
	referenced := make(map[string]bool)
	existingForPeriod := 0
	for _, s := range salaries {
		if s.EmployeeID != emp.ID {
			continue
		}
		if period.Covers(s.Period) {
			existingForPeriod++
		}
		for _, ref := range s.ProductionRecords {
			referenced[ref.ID] = true
		}
	}

	var (
		refs     []records.ProductionRef
		earnings = decimal.Zero
	)
	for _, p := range unpaid {
		if referenced[p.ID] {
			continue
		}
		refs = append(refs, p.Ref())
		earnings = earnings.Add(p.TotalEarnings)
	}
	if len(refs) == 0 {
		return nil
	}

	label := period.Label
	base := emp.BaseSalary
	if existingForPeriod > 0 {
		label = period.AdjustmentLabel()
		base = decimal.Zero
	}

	method := emp.PaymentMethod
	if method == "" {
		method = records.PaymentCash
	}

	rec := &records.SalaryRecord{
		ID:                 newID(),
		EmployeeID:         emp.ID,
		EmployeeName:       emp.Name,
		Period:             label,
		BaseSalary:         base,
		ProductionEarnings: earnings,
		Bonuses:            decimal.Zero,
		Deductions:         decimal.Zero,
		Status:             records.SalaryPending,
		PaymentMethod:      method,
		ProductionRecords:  refs,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	rec.Recalculate()
	return rec
}

// upsertSalaries replaces records with matching ids and appends the rest.
func upsertSalaries(existing, candidates []records.SalaryRecord) []records.SalaryRecord {
	index := make(map[string]int, len(existing))
	for i, s := range existing {
		index[s.ID] = i
	}
	for _, c := range candidates {
		if i, ok := index[c.ID]; ok {
			existing[i] = c
			continue
		}
		index[c.ID] = len(existing)
		existing = append(existing, c)
	}
	return existing
}
