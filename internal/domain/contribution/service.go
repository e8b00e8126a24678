package contribution

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type RunTracker interface {
	Track(ctx context.Context, city, mode string, run func(ctx context.Context, runID string) (int, error)) (string, int, error)
}

type Service struct {
	store   StoreAPI
	tracker RunTracker
	now     func() time.Time
}

func NewService(store StoreAPI, tracker RunTracker) *Service {
	return &Service{store: store, tracker: tracker, now: time.Now}
}

// Calculate loads the city rule and every stored salary, runs the calculator
// and persists the batch. Either the whole batch is written or nothing is.
func (s *Service) Calculate(ctx context.Context, req CalculateRequest) (RunSummary, error) {
	mode := ModeName(req.Overwrite)
	run := func(ctx context.Context, runID string) (int, error) {
		return s.calculateRun(ctx, runID, req)
	}

	if s.tracker == nil {
		runID := uuid.NewString()
		count, err := run(ctx, runID)
		return RunSummary{RunID: runID, Count: count}, err
	}
	runID, count, err := s.tracker.Track(ctx, req.City, mode, run)
	return RunSummary{RunID: runID, Count: count}, err
}

func (s *Service) calculateRun(ctx context.Context, runID string, req CalculateRequest) (int, error) {
	rule, err := s.store.FindCityRule(ctx, req.City)
	if errors.Is(err, ErrCityNotFound) {
		return 0, ErrCityNotFound
	}
	if err != nil {
		return 0, computationError("load city rule", err)
	}

	salaries, err := s.store.ListSalaries(ctx)
	if err != nil {
		return 0, computationError("load salaries", err)
	}

	results, err := Calculate(rule, req.City, salaries, s.now().UTC())
	if err != nil {
		return 0, err
	}
	for i := range results {
		results[i].RunID = runID
	}

	written, err := s.store.SaveResults(ctx, results, req.Overwrite)
	if err != nil {
		return 0, computationError("save results", err)
	}
	return written, nil
}

func (s *Service) ReplaceCityRules(ctx context.Context, rules []CityRule) (int, error) {
	for _, rule := range rules {
		if err := ValidateRule(rule); err != nil {
			return 0, err
		}
	}
	return s.store.ReplaceCityRules(ctx, rules)
}

func (s *Service) ReplaceSalaries(ctx context.Context, salaries []SalaryRecord) (int, error) {
	return s.store.ReplaceSalaries(ctx, salaries)
}

func (s *Service) ListCities(ctx context.Context) ([]CityOption, error) {
	return s.store.ListCities(ctx)
}

func (s *Service) ListResults(ctx context.Context, filter ResultFilter) ([]ResultRecord, int, error) {
	total, err := s.store.CountResults(ctx, filter.City)
	if err != nil {
		return nil, 0, err
	}
	results, err := s.store.ListResults(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return results, total, nil
}
