/*
scheduler.go - Automated payroll generation

PURPOSE:
  Generates salary records for the month that just ended, on a cron
  schedule, and records every generation pass (scheduled or manual) in the
  payroll run log for audit and UI display.

DESIGN:
  - robfig/cron drives the schedule in the business timezone
  - Scheduled runs use the "last" period for every employee
  - Manual runs (POST /api/admin/payroll/generate) go through Generate too,
    so both kinds land in the same run log
  - Runs are serialized; generation itself is idempotent, so a run that
    repeats a period only refreshes unpaid records

CONFIGURATION:
  - Spec: cron expression (default: 06:00 on the 1st of every month)
  - Enabled: whether Start schedules anything (default: true)

USAGE:
  scheduler := NewPayrollScheduler(payrollSvc, accountsSvc, runLog)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - payroll/service.go: GenerateOrUpdateSalaries
  - payroll/runs.go: Run and RunLog
*/
package api

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tess/backoffice/accounts"
	"github.com/tess/backoffice/payroll"
	"github.com/tess/backoffice/records"
)

// DefaultPayrollSpec runs at 06:00 on the first day of each month.
const DefaultPayrollSpec = "0 6 1 * *"

const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// PayrollScheduler handles automated salary generation.
type PayrollScheduler struct {
	Payroll  *payroll.Service
	Accounts *accounts.Service
	Runs     payroll.RunLog
	Spec     string
	Enabled  bool
	Location *time.Location
	Now      func() time.Time
	NewID    func(prefix string) string

	cron    *cron.Cron
	entryID cron.EntryID
	mu      sync.Mutex
	runMu   sync.Mutex
}

// NewPayrollScheduler creates a new scheduler. A nil run log keeps runs in
// memory.
func NewPayrollScheduler(p *payroll.Service, a *accounts.Service, runs payroll.RunLog) *PayrollScheduler {
	if runs == nil {
		runs = payroll.NewMemoryRunLog()
	}
	return &PayrollScheduler{
		Payroll:  p,
		Accounts: a,
		Runs:     runs,
		Spec:     DefaultPayrollSpec,
		Enabled:  true,
		Location: time.Local,
		NewID:    records.NewID,
	}
}

// now prefers the injected clock, which already carries its timezone.
func (ps *PayrollScheduler) now() time.Time {
	if ps.Now != nil {
		return ps.Now()
	}
	if ps.Location != nil {
		return time.Now().In(ps.Location)
	}
	return time.Now()
}

func (ps *PayrollScheduler) newID(prefix string) string {
	if ps.NewID == nil {
		return records.NewID(prefix)
	}
	return ps.NewID(prefix)
}

// Start begins the scheduler.
func (ps *PayrollScheduler) Start() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if !ps.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return nil
	}
	if ps.cron != nil {
		return nil
	}

	loc := ps.Location
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(cron.WithLocation(loc))
	id, err := c.AddFunc(ps.Spec, func() {
		if _, err := ps.RunScheduled(context.Background()); err != nil {
			log.Printf("[Scheduler] Scheduled payroll run failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid payroll schedule %q: %w", ps.Spec, err)
	}
	c.Start()
	ps.cron, ps.entryID = c, id

	log.Printf("[Scheduler] Started with schedule %q, next run %s", ps.Spec, c.Entry(id).Next.Format(time.RFC3339))
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (ps *PayrollScheduler) Stop() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.cron != nil {
		<-ps.cron.Stop().Done()
		ps.cron = nil
		log.Println("[Scheduler] Stopped")
	}
}

// NextRun returns when the next scheduled run will occur.
func (ps *PayrollScheduler) NextRun() (time.Time, bool) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.cron == nil {
		return time.Time{}, false
	}
	next := ps.cron.Entry(ps.entryID).Next
	return next, !next.IsZero()
}

// RunScheduled generates last period's salaries for every employee.
func (ps *PayrollScheduler) RunScheduled(ctx context.Context) (payroll.Run, error) {
	run, _, err := ps.Generate(ctx, payroll.SelectLast, nil, TriggerSchedule)
	return run, err
}

// Generate runs one recorded generation pass. Empty employeeIDs means every
// employee.
func (ps *PayrollScheduler) Generate(ctx context.Context, sel payroll.Selector, employeeIDs []records.EmployeeID, trigger string) (payroll.Run, []records.SalaryRecord, error) {
	ps.runMu.Lock()
	defer ps.runMu.Unlock()

	now := ps.now()
	run := payroll.Run{
		ID:        ps.newID("run"),
		Period:    payroll.Resolve(sel, now).Label,
		Trigger:   trigger,
		Status:    payroll.RunRunning,
		StartedAt: now,
	}
	if err := ps.Runs.SaveRun(ctx, run); err != nil {
		return run, nil, fmt.Errorf("failed to save run record: %w", err)
	}

	generated, err := ps.generate(ctx, sel, employeeIDs)
	completed := ps.now()
	run.CompletedAt = &completed
	if err != nil {
		run.Status = payroll.RunFailed
		run.Error = err.Error()
		if saveErr := ps.Runs.SaveRun(ctx, run); saveErr != nil {
			log.Printf("[Scheduler] Failed to record failed run %s: %v", run.ID, saveErr)
		}
		return run, nil, err
	}

	run.Status = payroll.RunCompleted
	run.Generated = len(generated)
	if err := ps.Runs.SaveRun(ctx, run); err != nil {
		return run, generated, fmt.Errorf("failed to update run record: %w", err)
	}

	log.Printf("[Scheduler] %s run for %s: %d salary record(s)", trigger, run.Period, len(generated))
	return run, generated, nil
}

func (ps *PayrollScheduler) generate(ctx context.Context, sel payroll.Selector, ids []records.EmployeeID) ([]records.SalaryRecord, error) {
	employees, err := ps.Accounts.Employees(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		byID := make(map[records.EmployeeID]records.Employee, len(employees))
		for _, e := range employees {
			byID[e.ID] = e
		}
		selected := make([]records.Employee, 0, len(ids))
		for _, id := range ids {
			e, ok := byID[id]
			if !ok {
				return nil, &records.NotFoundError{Kind: "employee", ID: string(id)}
			}
			selected = append(selected, e)
		}
		employees = selected
	}
	return ps.Payroll.GenerateOrUpdateSalaries(ctx, employees, sel)
}
