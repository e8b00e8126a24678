package contribution

import (
	"context"

	"sicalc/internal/platform/jobs"
)

type StoreAPI interface {
	ReplaceCityRules(ctx context.Context, rules []CityRule) (int, error)
	ListCities(ctx context.Context) ([]CityOption, error)
	FindCityRule(ctx context.Context, city string) (CityRule, error)
	ReplaceSalaries(ctx context.Context, salaries []SalaryRecord) (int, error)
	ListSalaries(ctx context.Context) ([]SalaryRecord, error)
	SaveResults(ctx context.Context, results []ResultRecord, overwrite bool) (int, error)
	CountResults(ctx context.Context, city string) (int, error)
	ListResults(ctx context.Context, filter ResultFilter) ([]ResultRecord, error)
	Ping(ctx context.Context) error
}

// Backend is a StoreAPI that also keeps calculation run bookkeeping.
type Backend interface {
	StoreAPI
	jobs.RunStore
	Close()
}
