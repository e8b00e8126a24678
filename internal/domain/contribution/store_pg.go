package contribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sicalc/internal/platform/jobs"
)

type PGStore struct {
	DB *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{DB: db}
}

func (s *PGStore) Close() {
	s.DB.Close()
}

func (s *PGStore) Ping(ctx context.Context) error {
	return s.DB.Ping(ctx)
}

func (s *PGStore) ReplaceCityRules(ctx context.Context, rules []CityRule) (int, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "DELETE FROM cities"); err != nil {
		return 0, fmt.Errorf("clear cities: %w", err)
	}
	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"cities"},
		[]string{"city_name", "year", "base_min", "base_max", "rate"},
		pgx.CopyFromSlice(len(rules), func(i int) ([]any, error) {
			r := rules[i]
			return []any{r.CityName, r.Year, r.BaseMin, r.BaseMax, r.Rate}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("insert cities: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return int(copied), nil
}

func (s *PGStore) ListCities(ctx context.Context) ([]CityOption, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT city_name, year
    FROM cities
    ORDER BY city_name, year DESC
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cities []CityOption
	for rows.Next() {
		var city CityOption
		if err := rows.Scan(&city.CityName, &city.Year); err != nil {
			return nil, err
		}
		cities = append(cities, city)
	}
	return cities, rows.Err()
}

func (s *PGStore) FindCityRule(ctx context.Context, city string) (CityRule, error) {
	var rule CityRule
	err := s.DB.QueryRow(ctx, `
    SELECT id, city_name, year, base_min, base_max, rate
    FROM cities
    WHERE city_name = $1
    ORDER BY year DESC, id DESC
    LIMIT 1
  `, city).Scan(&rule.ID, &rule.CityName, &rule.Year, &rule.BaseMin, &rule.BaseMax, &rule.Rate)
	if errors.Is(err, pgx.ErrNoRows) {
		return CityRule{}, ErrCityNotFound
	}
	if err != nil {
		return CityRule{}, err
	}
	return rule, nil
}

func (s *PGStore) ReplaceSalaries(ctx context.Context, salaries []SalaryRecord) (int, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "DELETE FROM salaries"); err != nil {
		return 0, fmt.Errorf("clear salaries: %w", err)
	}
	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"salaries"},
		[]string{"employee_id", "employee_name", "month", "salary_amount"},
		pgx.CopyFromSlice(len(salaries), func(i int) ([]any, error) {
			r := salaries[i]
			return []any{r.EmployeeID, r.EmployeeName, r.Month, r.Amount}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("insert salaries: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return int(copied), nil
}

func (s *PGStore) ListSalaries(ctx context.Context) ([]SalaryRecord, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, employee_name, month, salary_amount
    FROM salaries
    ORDER BY id
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var salaries []SalaryRecord
	for rows.Next() {
		var salary SalaryRecord
		if err := rows.Scan(&salary.ID, &salary.EmployeeID, &salary.EmployeeName, &salary.Month, &salary.Amount); err != nil {
			return nil, err
		}
		salaries = append(salaries, salary)
	}
	return salaries, rows.Err()
}

// SaveResults clears prior results (overwrite) and inserts the batch inside a
// single transaction, so a failed insert keeps the previous result set.
func (s *PGStore) SaveResults(ctx context.Context, results []ResultRecord, overwrite bool) (int, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if overwrite {
		if _, err := tx.Exec(ctx, "DELETE FROM results"); err != nil {
			return 0, fmt.Errorf("clear results: %w", err)
		}
	}
	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"results"},
		[]string{"run_id", "employee_name", "city_name", "avg_salary", "contribution_base", "company_fee", "calculated_at"},
		pgx.CopyFromSlice(len(results), func(i int) ([]any, error) {
			r := results[i]
			return []any{r.RunID, r.EmployeeName, r.CityName, r.AvgSalary, r.ContributionBase, r.CompanyFee, r.CalculatedAt}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("insert results: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return int(copied), nil
}

func (s *PGStore) CountResults(ctx context.Context, city string) (int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM results
    WHERE ($1 = '' OR city_name = $1)
  `, city).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *PGStore) ListResults(ctx context.Context, filter ResultFilter) ([]ResultRecord, error) {
	var limit any
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	rows, err := s.DB.Query(ctx, `
    SELECT id, run_id, employee_name, city_name, avg_salary, contribution_base, company_fee, calculated_at
    FROM results
    WHERE ($1 = '' OR city_name = $1)
    ORDER BY calculated_at DESC, employee_name, id
    LIMIT $2 OFFSET $3
  `, filter.City, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ResultRecord
	for rows.Next() {
		var result ResultRecord
		if err := rows.Scan(&result.ID, &result.RunID, &result.EmployeeName, &result.CityName, &result.AvgSalary, &result.ContributionBase, &result.CompanyFee, &result.CalculatedAt); err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

func (s *PGStore) CreateRun(ctx context.Context, run jobs.Run) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO calculation_runs (id, city_name, mode, status, started_at)
    VALUES ($1,$2,$3,$4,$5)
  `, run.ID, run.City, run.Mode, run.Status, run.StartedAt)
	return err
}

func (s *PGStore) FinishRun(ctx context.Context, run jobs.Run) error {
	completedAt := time.Now().UTC()
	if run.CompletedAt != nil {
		completedAt = *run.CompletedAt
	}
	_, err := s.DB.Exec(ctx, `
    UPDATE calculation_runs
    SET status = $1, result_count = $2, error = NULLIF($3, ''), completed_at = $4
    WHERE id = $5
  `, run.Status, run.ResultCount, run.Error, completedAt, run.ID)
	return err
}

func (s *PGStore) ListRuns(ctx context.Context, limit int) ([]jobs.Run, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, city_name, mode, status, result_count, COALESCE(error, ''), started_at, completed_at
    FROM calculation_runs
    ORDER BY started_at DESC
    LIMIT $1
  `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []jobs.Run
	for rows.Next() {
		var run jobs.Run
		if err := rows.Scan(&run.ID, &run.City, &run.Mode, &run.Status, &run.ResultCount, &run.Error, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
