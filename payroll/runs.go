package payroll

import (
	"context"
	"sort"
	"sync"
	"time"
)

// =============================================================================
// PAYROLL RUNS - Audit trail of salary generation
// =============================================================================

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run records one generation pass, scheduled or manual.
type Run struct {
	ID          string     `json:"id"`
	Period      string     `json:"period"`
	Trigger     string     `json:"trigger"` // "schedule" or "manual"
	Status      RunStatus  `json:"status"`
	Generated   int        `json:"generated"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// RunLog persists runs. SaveRun inserts or replaces by ID.
type RunLog interface {
	SaveRun(ctx context.Context, run Run) error
	Runs(ctx context.Context, limit int) ([]Run, error)
}

// MemoryRunLog keeps runs in process.
type MemoryRunLog struct {
	mu   sync.RWMutex
	runs map[string]Run
}

func NewMemoryRunLog() *MemoryRunLog {
	return &MemoryRunLog{runs: make(map[string]Run)}
}

func (m *MemoryRunLog) SaveRun(_ context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return nil
}

// Runs returns the newest runs first. limit <= 0 returns all.
func (m *MemoryRunLog) Runs(_ context.Context, limit int) ([]Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Run, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
