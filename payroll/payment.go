package payroll

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tess/backoffice/records"
)

// =============================================================================
// PAYMENT STATE MACHINE
// =============================================================================
//
//   Pending ──► Processing ──► Paid
//
// Paid is terminal. Bonuses, deductions and payment method are editable
// until the record is Paid.

var nextStatus = map[records.SalaryStatus]records.SalaryStatus{
	records.SalaryPending:    records.SalaryProcessing,
	records.SalaryProcessing: records.SalaryPaid,
}

// CanTransition reports whether a record in from may move to to.
func CanTransition(from, to records.SalaryStatus) bool {
	next, ok := nextStatus[from]
	return ok && next == to
}

// AdvancePayment moves a salary record one step along the payment lifecycle.
//
// Moving to Paid is TRANSACTIONAL:
//   - Requires a payment method on the record
//   - Stamps the payment date and stores notes
//   - Marks every referenced production record paid
//
// If ANY step fails, ALL changes are rolled back.
func (s *Service) AdvancePayment(ctx context.Context, id string, target records.SalaryStatus, notes string) (records.SalaryRecord, error) {
	var updated records.SalaryRecord

	err := s.Store.WithTx(ctx, func(tx records.Store) error {
		salaries, version, err := records.Salaries.Load(ctx, tx)
		if err != nil {
			return err
		}
		rec, i, ok := records.Find(salaries, func(r records.SalaryRecord) bool { return r.ID == id })
		if !ok {
			return &records.NotFoundError{Kind: "salary record", ID: id}
		}
		if !CanTransition(rec.Status, target) {
			return &records.TransitionError{ID: id, From: rec.Status, To: target}
		}

		now := s.now()
		rec.Status = target
		rec.UpdatedAt = now
		if target == records.SalaryPaid {
			if rec.PaymentMethod == "" {
				return records.ErrPaymentMethodRequired
			}
			rec.PaymentDate = &now
			rec.PaymentNotes = notes
		}
		rec.Recalculate()
		salaries[i] = rec

		if _, err := records.Salaries.Save(ctx, tx, salaries, version); err != nil {
			return fmt.Errorf("failed to update salary record: %w", err)
		}

		if target == records.SalaryPaid {
			if err := markProductionPaid(ctx, tx, rec, now); err != nil {
				return err
			}
		}

		updated = rec
		return nil
	})
	if err != nil {
		return records.SalaryRecord{}, err
	}

	log.Printf("[Payroll] salary %s -> %s", id, target)
	return updated, nil
}

// markProductionPaid stamps exactly the production rec references.
// References to records deleted since generation are skipped.
func markProductionPaid(ctx context.Context, tx records.Store, rec records.SalaryRecord, now time.Time) error {
	production, version, err := records.Production.Load(ctx, tx)
	if err != nil {
		return err
	}

	changed := false
	for i := range production {
		if !rec.References(production[i].ID) {
			continue
		}
		production[i].Status = records.ProductionPaid
		production[i].UpdatedAt = now
		changed = true
	}
	if !changed {
		return nil
	}

	if _, err := records.Production.Save(ctx, tx, production, version); err != nil {
		return fmt.Errorf("failed to mark production paid: %w", err)
	}
	return nil
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

// Adjustments are the editable parts of an unpaid salary record. An empty
// PaymentMethod keeps the current one.
type Adjustments struct {
	Bonuses       records.Money         `json:"bonuses" validate:"gte=0"`
	Deductions    records.Money         `json:"deductions" validate:"gte=0"`
	PaymentMethod records.PaymentMethod `json:"paymentMethod" validate:"omitempty,oneof=Cash OnlinePayment"`
}

// EditAdjustments updates bonuses, deductions and payment method of an
// unpaid record and recomputes its net pay.
func (s *Service) EditAdjustments(ctx context.Context, id string, adj Adjustments) (records.SalaryRecord, error) {
	if err := records.Validate(adj); err != nil {
		return records.SalaryRecord{}, err
	}

	var updated records.SalaryRecord
	err := records.Salaries.Update(ctx, s.Store, func(salaries []records.SalaryRecord) ([]records.SalaryRecord, error) {
		rec, i, ok := records.Find(salaries, func(r records.SalaryRecord) bool { return r.ID == id })
		if !ok {
			return nil, &records.NotFoundError{Kind: "salary record", ID: id}
		}
		if rec.Status == records.SalaryPaid {
			return nil, fmt.Errorf("salary %s: %w", id, records.ErrRecordPaid)
		}

		rec.Bonuses = adj.Bonuses
		rec.Deductions = adj.Deductions
		if adj.PaymentMethod != "" {
			rec.PaymentMethod = adj.PaymentMethod
		}
		rec.UpdatedAt = s.now()
		rec.Recalculate()

		salaries[i] = rec
		updated = rec
		return salaries, nil
	})
	if err != nil {
		return records.SalaryRecord{}, err
	}
	return updated, nil
}

// =============================================================================
// DELETE
// =============================================================================

// DeleteSalary removes a salary record in any state. Production it marked
// paid stays paid; production of an unpaid record becomes eligible for the
// next generation run.
func (s *Service) DeleteSalary(ctx context.Context, id string) error {
	err := records.Salaries.Update(ctx, s.Store, func(salaries []records.SalaryRecord) ([]records.SalaryRecord, error) {
		_, i, ok := records.Find(salaries, func(r records.SalaryRecord) bool { return r.ID == id })
		if !ok {
			return nil, &records.NotFoundError{Kind: "salary record", ID: id}
		}
		return append(salaries[:i], salaries[i+1:]...), nil
	})
	if err != nil {
		return err
	}

	log.Printf("[Payroll] salary %s deleted", id)
	return nil
}
