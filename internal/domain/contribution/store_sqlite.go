package contribution

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sicalc/internal/platform/jobs"
)

// SQLiteStore backs StoreAPI with a single-file (or ":memory:") SQLite
// database. Timestamps are stored as RFC 3339 text.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serialises writers
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

const sqliteParams = "_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"

// sqliteDSN appends the connection parameters, keeping any query string the
// caller already supplied.
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + sqliteParams
	}
	return path + "?" + sqliteParams
}

func (s *SQLiteStore) Close() {
	_ = s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		city_name TEXT NOT NULL,
		year TEXT NOT NULL,
		base_min REAL NOT NULL,
		base_max REAL NOT NULL,
		rate REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_cities_name ON cities(city_name);

	CREATE TABLE IF NOT EXISTS salaries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id TEXT NOT NULL,
		employee_name TEXT NOT NULL,
		month TEXT NOT NULL,
		salary_amount REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		employee_name TEXT NOT NULL,
		city_name TEXT NOT NULL,
		avg_salary REAL NOT NULL,
		contribution_base REAL NOT NULL,
		company_fee REAL NOT NULL,
		calculated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_results_calculated_at ON results(calculated_at DESC);

	CREATE TABLE IF NOT EXISTS calculation_runs (
		id TEXT PRIMARY KEY,
		city_name TEXT NOT NULL,
		mode TEXT NOT NULL,
		status TEXT NOT NULL,
		result_count INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) ReplaceCityRules(ctx context.Context, rules []CityRule) (int, error) {
	return s.replace(ctx, "cities",
		"INSERT INTO cities (city_name, year, base_min, base_max, rate) VALUES (?, ?, ?, ?, ?)",
		len(rules), func(i int) []any {
			r := rules[i]
			return []any{r.CityName, r.Year, r.BaseMin, r.BaseMax, r.Rate}
		})
}

func (s *SQLiteStore) ReplaceSalaries(ctx context.Context, salaries []SalaryRecord) (int, error) {
	return s.replace(ctx, "salaries",
		"INSERT INTO salaries (employee_id, employee_name, month, salary_amount) VALUES (?, ?, ?, ?)",
		len(salaries), func(i int) []any {
			r := salaries[i]
			return []any{r.EmployeeID, r.EmployeeName, r.Month, r.Amount}
		})
}

func (s *SQLiteStore) SaveResults(ctx context.Context, results []ResultRecord, overwrite bool) (int, error) {
	table := ""
	if overwrite {
		table = "results"
	}
	return s.replace(ctx, table,
		`INSERT INTO results (run_id, employee_name, city_name, avg_salary, contribution_base, company_fee, calculated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		len(results), func(i int) []any {
			r := results[i]
			return []any{r.RunID, r.EmployeeName, r.CityName, r.AvgSalary, r.ContributionBase, r.CompanyFee, formatTime(r.CalculatedAt)}
		})
}

// replace optionally clears table, then inserts n rows in one transaction.
func (s *SQLiteStore) replace(ctx context.Context, table, insert string, n int, row func(i int) []any) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if table != "" {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return 0, fmt.Errorf("clear %s: %w", table, err)
		}
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, row(i)...); err != nil {
			return 0, fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLiteStore) ListCities(ctx context.Context) ([]CityOption, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT city_name, year FROM cities ORDER BY city_name, year DESC")
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

func (s *SQLiteStore) FindCityRule(ctx context.Context, city string) (CityRule, error) {
	var rule CityRule
	err := s.db.QueryRowContext(ctx, `
		SELECT id, city_name, year, base_min, base_max, rate
		FROM cities
		WHERE city_name = ?
		ORDER BY year DESC, id DESC
		LIMIT 1
	`, city).Scan(&rule.ID, &rule.CityName, &rule.Year, &rule.BaseMin, &rule.BaseMax, &rule.Rate)
	if errors.Is(err, sql.ErrNoRows) {
		return CityRule{}, ErrCityNotFound
	}
	if err != nil {
		return CityRule{}, err
	}
	return rule, nil
}

func (s *SQLiteStore) ListSalaries(ctx context.Context) ([]SalaryRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, employee_id, employee_name, month, salary_amount FROM salaries ORDER BY id")
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

func (s *SQLiteStore) CountResults(ctx context.Context, city string) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM results WHERE (? = '' OR city_name = ?)", city, city).Scan(&total)
	return total, err
}

func (s *SQLiteStore) ListResults(ctx context.Context, filter ResultFilter) ([]ResultRecord, error) {
	limit := -1
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, employee_name, city_name, avg_salary, contribution_base, company_fee, calculated_at
		FROM results
		WHERE (? = '' OR city_name = ?)
		ORDER BY calculated_at DESC, employee_name, id
		LIMIT ? OFFSET ?
	`, filter.City, filter.City, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ResultRecord
	for rows.Next() {
		var result ResultRecord
		var calculatedAt string
		if err := rows.Scan(&result.ID, &result.RunID, &result.EmployeeName, &result.CityName, &result.AvgSalary, &result.ContributionBase, &result.CompanyFee, &calculatedAt); err != nil {
			return nil, err
		}
		if result.CalculatedAt, err = parseTime(calculatedAt); err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run jobs.Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calculation_runs (id, city_name, mode, status, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.City, run.Mode, run.Status, formatTime(run.StartedAt))
	return err
}

func (s *SQLiteStore) FinishRun(ctx context.Context, run jobs.Run) error {
	completedAt := time.Now().UTC()
	if run.CompletedAt != nil {
		completedAt = *run.CompletedAt
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE calculation_runs
		SET status = ?, result_count = ?, error = NULLIF(?, ''), completed_at = ?
		WHERE id = ?
	`, run.Status, run.ResultCount, run.Error, formatTime(completedAt), run.ID)
	return err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]jobs.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, city_name, mode, status, result_count, COALESCE(error, ''), started_at, completed_at
		FROM calculation_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []jobs.Run
	for rows.Next() {
		var run jobs.Run
		var startedAt string
		var completedAt sql.NullString
		if err := rows.Scan(&run.ID, &run.City, &run.Mode, &run.Status, &run.ResultCount, &run.Error, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		if run.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			completed, err := parseTime(completedAt.String)
			if err != nil {
				return nil, err
			}
			run.CompletedAt = &completed
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// fixed-width layout so that text ordering matches time ordering
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, raw)
}
