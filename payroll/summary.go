package payroll

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tess/backoffice/records"
)

// SalaryFilter narrows ListSalaries. Zero fields match everything.
type SalaryFilter struct {
	EmployeeID records.EmployeeID
	Search     string
	Status     records.SalaryStatus
	Period     Selector
}

// ListSalaries returns matching salary records, most recently updated first.
// A period filter matches the period's primary and adjustment records.
func (s *Service) ListSalaries(ctx context.Context, f SalaryFilter) ([]records.SalaryRecord, error) {
	all, err := records.Salaries.All(ctx, s.Store)
	if err != nil {
		return nil, err
	}

	var period *Period
	if f.Period != "" && f.Period != SelectAll {
		p := Resolve(f.Period, s.now())
		period = &p
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]records.SalaryRecord, 0, len(all))
	for _, rec := range all {
		if f.EmployeeID != "" && rec.EmployeeID != f.EmployeeID {
			continue
		}
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		if period != nil && !period.Covers(rec.Period) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(rec.EmployeeName), search) {
			continue
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Totals aggregates the pay components of a set of salary records.
type Totals struct {
	Count              int           `json:"count"`
	BaseSalary         records.Money `json:"baseSalary"`
	ProductionEarnings records.Money `json:"productionEarnings"`
	Bonuses            records.Money `json:"bonuses"`
	Deductions         records.Money `json:"deductions"`
	NetPay             records.Money `json:"netPay"`
	Paid               records.Money `json:"paid"`
	Outstanding        records.Money `json:"outstanding"`
}

func Summarize(salaries []records.SalaryRecord) Totals {
	t := Totals{
		BaseSalary:         decimal.Zero,
		ProductionEarnings: decimal.Zero,
		Bonuses:            decimal.Zero,
		Deductions:         decimal.Zero,
		NetPay:             decimal.Zero,
		Paid:               decimal.Zero,
		Outstanding:        decimal.Zero,
	}
	for _, s := range salaries {
		t.Count++
		t.BaseSalary = t.BaseSalary.Add(s.BaseSalary)
		t.ProductionEarnings = t.ProductionEarnings.Add(s.ProductionEarnings)
		t.Bonuses = t.Bonuses.Add(s.Bonuses)
		t.Deductions = t.Deductions.Add(s.Deductions)
		t.NetPay = t.NetPay.Add(s.NetPay)
		if s.Status == records.SalaryPaid {
			t.Paid = t.Paid.Add(s.NetPay)
		} else {
			t.Outstanding = t.Outstanding.Add(s.NetPay)
		}
	}
	return t
}
