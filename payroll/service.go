package payroll

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tess/backoffice/records"
)

// =============================================================================
// PAYROLL SERVICE - Salary generation with transactional guarantees
// =============================================================================

type Service struct {
	Store records.TxStore

	// Now and NewID are injectable for deterministic tests.
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

// =============================================================================
// GENERATE OR UPDATE SALARIES
// =============================================================================

// GenerateOrUpdateSalaries reconciles every employee's unpaid production for
// the selected period into salary records and returns the records created.
//
// This is TRANSACTIONAL: the production and salary collections are read and
// the salary collection written in one transaction, so two concurrent runs
// cannot both allocate the same production. Running it again without new
// production creates nothing.
func (s *Service) GenerateOrUpdateSalaries(ctx context.Context, employees []records.Employee, sel Selector) ([]records.SalaryRecord, error) {
	now := s.now()
	period := Resolve(sel, now)

	var generated []records.SalaryRecord
	err := s.Store.WithTx(ctx, func(tx records.Store) error {
		generated = nil

		production, err := records.Production.All(ctx, tx)
		if err != nil {
			return err
		}
		salaries, version, err := records.Salaries.Load(ctx, tx)
		if err != nil {
			return err
		}

		for _, emp := range employees {
			prefix := "salary-" + string(emp.ID)
			rec := Calculate(emp, period, production, salaries, now, func() string {
				return s.newID(prefix)
			})
			if rec == nil {
				continue
			}
			generated = append(generated, *rec)
			// Later employees see this record, so a repeated employee
			// cannot be allocated twice.
			salaries = upsertSalaries(salaries, []records.SalaryRecord{*rec})
		}
		if len(generated) == 0 {
			return nil
		}

		if _, err := records.Salaries.Save(ctx, tx, salaries, version); err != nil {
			return fmt.Errorf("failed to write salary records: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Payroll] %s: generated %d salary record(s)", period.Label, len(generated))
	return generated, nil
}

// GetSalary returns one salary record.
func (s *Service) GetSalary(ctx context.Context, id string) (records.SalaryRecord, error) {
	salaries, err := records.Salaries.All(ctx, s.Store)
	if err != nil {
		return records.SalaryRecord{}, err
	}
	rec, _, ok := records.Find(salaries, func(r records.SalaryRecord) bool { return r.ID == id })
	if !ok {
		return records.SalaryRecord{}, &records.NotFoundError{Kind: "salary record", ID: id}
	}
	return rec, nil
}
