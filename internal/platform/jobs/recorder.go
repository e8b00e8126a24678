package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type Run struct {
	ID          string     `json:"id"`
	City        string     `json:"city"`
	Mode        string     `json:"mode"`
	Status      string     `json:"status"`
	ResultCount int        `json:"resultCount"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type RunStore interface {
	CreateRun(ctx context.Context, run Run) error
	FinishRun(ctx context.Context, run Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// Recorder keeps a calculation_runs row for every tracked run. Bookkeeping
// failures are logged and never fail the run itself.
type Recorder struct {
	store RunStore
	now   func() time.Time
}

func NewRecorder(store RunStore) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

func (r *Recorder) Track(ctx context.Context, city, mode string, run func(ctx context.Context, runID string) (int, error)) (string, int, error) {
	record := Run{
		ID:        uuid.NewString(),
		City:      city,
		Mode:      mode,
		Status:    StatusRunning,
		StartedAt: r.now().UTC(),
	}
	// run rows must reach a final status even when the caller goes away
	bookkeeping := context.WithoutCancel(ctx)
	if r.store != nil {
		if err := r.store.CreateRun(bookkeeping, record); err != nil {
			slog.Warn("calculation run insert failed", "runId", record.ID, "err", err)
		}
	}

	count, err := run(ctx, record.ID)
	completed := r.now().UTC()
	record.CompletedAt = &completed
	record.ResultCount = count
	record.Status = StatusCompleted
	if err != nil {
		record.Status = StatusFailed
		record.ResultCount = 0
		record.Error = err.Error()
	}

	if r.store != nil {
		if updErr := r.store.FinishRun(bookkeeping, record); updErr != nil {
			slog.Warn("calculation run update failed", "runId", record.ID, "err", updErr)
		}
	}
	return record.ID, count, err
}

func (r *Recorder) Recent(ctx context.Context, limit int) ([]Run, error) {
	if r == nil || r.store == nil {
		return nil, nil
	}
	return r.store.ListRuns(ctx, limit)
}
