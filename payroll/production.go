package payroll

import (
	"context"
	"log"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tess/backoffice/records"
)

// =============================================================================
// PRODUCTION LOG
// =============================================================================

// DefaultUnit is used when production is logged without a unit.
const DefaultUnit = "pcs"

// ProductionInput is what an employee submits for one unit of work.
type ProductionInput struct {
	Date      string          `json:"date" validate:"required"`
	ItemName  string          `json:"itemName" validate:"required"`
	Category  string          `json:"category"`
	Quantity  decimal.Decimal `json:"quantity" validate:"gt=0"`
	Unit      string          `json:"unit"`
	UnitPrice records.Money   `json:"unitPrice" validate:"gte=0"`
	Remarks   string          `json:"remarks"`
}

// SubmitProduction logs work for emp. Earnings are fixed now as quantity ×
// unit price, rounded to centavos.
func (s *Service) SubmitProduction(ctx context.Context, emp records.Employee, in ProductionInput) (records.ProductionRecord, error) {
	in.ItemName = strings.TrimSpace(in.ItemName)
	if err := records.Validate(in); err != nil {
		return records.ProductionRecord{}, err
	}
	now := s.now()
	if _, ok := ParseDate(in.Date, now.Location()); !ok {
		return records.ProductionRecord{}, records.Invalid("date", "must be a date (YYYY-MM-DD)")
	}
	if in.Unit == "" {
		in.Unit = DefaultUnit
	}

	rec := records.ProductionRecord{
		ID:            s.newID("prod-" + string(emp.ID)),
		EmployeeID:    emp.ID,
		EmployeeName:  emp.Name,
		ItemName:      in.ItemName,
		Category:      in.Category,
		Quantity:      in.Quantity,
		Unit:          in.Unit,
		UnitPrice:     in.UnitPrice,
		TotalEarnings: in.Quantity.Mul(in.UnitPrice).Round(2),
		Date:          in.Date,
		Status:        records.ProductionPending,
		Remarks:       in.Remarks,
		SubmittedAt:   now,
		UpdatedAt:     now,
	}

	err := records.Production.Update(ctx, s.Store, func(all []records.ProductionRecord) ([]records.ProductionRecord, error) {
		return append(all, rec), nil
	})
	if err != nil {
		return records.ProductionRecord{}, err
	}

	log.Printf("[Payroll] production %s logged by %s: %s %s %s", rec.ID, emp.Name, rec.Quantity, rec.Unit, rec.ItemName)
	return rec, nil
}

// ProductionFilter narrows ListProduction. Zero fields match everything.
type ProductionFilter struct {
	EmployeeID records.EmployeeID
	Status     records.ProductionStatus
	Search     string
	Period     Selector
}

// ListProduction returns matching records, most recently submitted first.
func (s *Service) ListProduction(ctx context.Context, f ProductionFilter) ([]records.ProductionRecord, error) {
	all, err := records.Production.All(ctx, s.Store)
	if err != nil {
		return nil, err
	}

	var period *Period
	if f.Period != "" {
		p := Resolve(f.Period, s.now())
		period = &p
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]records.ProductionRecord, 0, len(all))
	for _, p := range all {
		if f.EmployeeID != "" && p.EmployeeID != f.EmployeeID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if period != nil && !period.Contains(p.Date) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.ItemName), search) &&
			!strings.Contains(strings.ToLower(p.EmployeeName), search) {
			continue
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}

// ReviewProduction marks a pending record as reviewed by an admin.
func (s *Service) ReviewProduction(ctx context.Context, id string) (records.ProductionRecord, error) {
	var updated records.ProductionRecord
	err := records.Production.Update(ctx, s.Store, func(all []records.ProductionRecord) ([]records.ProductionRecord, error) {
		rec, i, ok := records.Find(all, func(p records.ProductionRecord) bool { return p.ID == id })
		if !ok {
			return nil, &records.NotFoundError{Kind: "production record", ID: id}
		}
		if rec.Status != records.ProductionPending {
			return nil, records.Invalid("status", "only pending records can be reviewed, record is "+string(rec.Status))
		}
		rec.Status = records.ProductionReviewed
		rec.UpdatedAt = s.now()
		all[i] = rec
		updated = rec
		return all, nil
	})
	return updated, err
}

// DeleteProduction force-deletes a production record. Salary records keep
// their reference snapshot of it.
func (s *Service) DeleteProduction(ctx context.Context, id string) error {
	return records.Production.Update(ctx, s.Store, func(all []records.ProductionRecord) ([]records.ProductionRecord, error) {
		_, i, ok := records.Find(all, func(p records.ProductionRecord) bool { return p.ID == id })
		if !ok {
			return nil, &records.NotFoundError{Kind: "production record", ID: id}
		}
		return append(all[:i], all[i+1:]...), nil
	})
}

// UnpaidEarnings sums the earnings of the employee's production that no
// payment has covered yet.
func (s *Service) UnpaidEarnings(ctx context.Context, id records.EmployeeID) (records.Money, error) {
	all, err := records.Production.All(ctx, s.Store)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, p := range all {
		if p.EmployeeID == id && p.Status != records.ProductionPaid {
			total = total.Add(p.TotalEarnings)
		}
	}
	return total, nil
}
