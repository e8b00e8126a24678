package jobs

import (
	"context"
	"errors"
	"testing"
)

type memoryRunStore struct {
	runs      map[string]Run
	createErr error
	finishErr error
}

func (m *memoryRunStore) CreateRun(_ context.Context, run Run) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.runs[run.ID] = run
	return nil
}

func (m *memoryRunStore) FinishRun(ctx context.Context, run Run) error {
	if err := ctx.Err(); err != nil {
		m.finishErr = err
		return err
	}
	m.runs[run.ID] = run
	return nil
}

func (m *memoryRunStore) ListRuns(_ context.Context, _ int) ([]Run, error) {
	out := make([]Run, 0, len(m.runs))
	for _, run := range m.runs {
		out = append(out, run)
	}
	return out, nil
}

func TestRecorderTracksCompletedRun(t *testing.T) {
	store := &memoryRunStore{runs: map[string]Run{}}
	recorder := NewRecorder(store)

	var seenID string
	runID, count, err := recorder.Track(context.Background(), "Shanghai", "overwrite", func(_ context.Context, id string) (int, error) {
		seenID = id
		return 3, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runID == "" || runID != seenID {
		t.Fatalf("expected run id passed to callback, got %q and %q", runID, seenID)
	}
	if count != 3 {
		t.Fatalf("expected count 3, got %d", count)
	}
	run := store.runs[runID]
	if run.Status != StatusCompleted || run.ResultCount != 3 || run.CompletedAt == nil {
		t.Fatalf("unexpected run record %+v", run)
	}
	if run.City != "Shanghai" || run.Mode != "overwrite" {
		t.Fatalf("unexpected run metadata %+v", run)
	}
}

func TestRecorderTracksFailedRun(t *testing.T) {
	store := &memoryRunStore{runs: map[string]Run{}}
	recorder := NewRecorder(store)

	boom := errors.New("boom")
	runID, _, err := recorder.Track(context.Background(), "Shanghai", "append", func(context.Context, string) (int, error) {
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	run := store.runs[runID]
	if run.Status != StatusFailed || run.Error != "boom" {
		t.Fatalf("expected failed run with error text, got %+v", run)
	}
}

func TestRecorderIgnoresBookkeepingFailures(t *testing.T) {
	store := &memoryRunStore{runs: map[string]Run{}, createErr: errors.New("db down")}
	recorder := NewRecorder(store)

	_, count, err := recorder.Track(context.Background(), "Shanghai", "overwrite", func(context.Context, string) (int, error) {
		return 2, nil
	})
	if err != nil {
		t.Fatalf("expected run to succeed despite bookkeeping failure, got %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
}

func TestRecorderWithoutStore(t *testing.T) {
	recorder := NewRecorder(nil)
	runID, _, err := recorder.Track(context.Background(), "X", "append", func(context.Context, string) (int, error) {
		return 1, nil
	})
	if err != nil || runID == "" {
		t.Fatalf("expected run id without store, got %q, %v", runID, err)
	}
	runs, err := recorder.Recent(context.Background(), 10)
	if err != nil || runs != nil {
		t.Fatalf("expected no runs without store, got %v, %v", runs, err)
	}
}

func TestRecorderFinishesRunAfterCallerCancels(t *testing.T) {
	store := &memoryRunStore{runs: map[string]Run{}}
	recorder := NewRecorder(store)

	ctx, cancel := context.WithCancel(context.Background())
	runID, _, err := recorder.Track(ctx, "Shanghai", "overwrite", func(ctx context.Context, _ string) (int, error) {
		cancel()
		return 0, ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the run error to surface, got %v", err)
	}
	if store.finishErr != nil {
		t.Fatalf("bookkeeping write saw a cancelled context: %v", store.finishErr)
	}
	if run := store.runs[runID]; run.Status != StatusFailed || run.CompletedAt == nil {
		t.Fatalf("expected run to be finished as failed, got %+v", run)
	}
}
