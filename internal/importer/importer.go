// Package importer turns uploaded city-standard and salary spreadsheets into
// validated contribution records. The first sheet of an .xlsx workbook or a
// .csv file is read; row 1 holds the column names.
package importer

import (
	"io"
	"math"
	"strconv"
	"strings"

	"sicalc/internal/domain/contribution"
)

var (
	CityColumns   = []string{"city_name", "year", "base_min", "base_max", "rate"}
	SalaryColumns = []string{"employee_id", "employee_name", "month", "salary_amount"}
)

func ParseCities(r io.Reader, filename string) ([]contribution.CityRule, error) {
	s, err := readSheet(r, filename)
	if err != nil {
		return nil, err
	}
	if err := s.require(CityColumns...); err != nil {
		return nil, err
	}

	var rules []contribution.CityRule
	for i, row := range s.rows {
		if blank(row) {
			continue
		}
		line := s.firstRow + i
		rule := contribution.CityRule{
			CityName: s.get(row, "city_name"),
			Year:     integerToken(s.get(row, "year")),
		}
		if rule.CityName == "" {
			return nil, &ValidationError{Row: line, Field: "city_name", Reason: "is required"}
		}
		if rule.BaseMin, err = parseNumber(line, "base_min", s.get(row, "base_min")); err != nil {
			return nil, err
		}
		if rule.BaseMax, err = parseNumber(line, "base_max", s.get(row, "base_max")); err != nil {
			return nil, err
		}
		if rule.Rate, err = parseNumber(line, "rate", s.get(row, "rate")); err != nil {
			return nil, err
		}
		if rule.BaseMin < 0 {
			return nil, &ValidationError{Row: line, Field: "base_min", Reason: "must not be negative"}
		}
		if rule.BaseMin > rule.BaseMax {
			return nil, &ValidationError{Row: line, Field: "base_max", Reason: "must be greater than or equal to base_min"}
		}
		if rule.Rate <= 0 {
			return nil, &ValidationError{Row: line, Field: "rate", Reason: "must be greater than 0"}
		}
		rules = append(rules, rule)
	}
	if len(rules) == 0 {
		return nil, ErrEmptySheet
	}
	return rules, nil
}

func ParseSalaries(r io.Reader, filename string) ([]contribution.SalaryRecord, error) {
	s, err := readSheet(r, filename)
	if err != nil {
		return nil, err
	}
	if err := s.require(SalaryColumns...); err != nil {
		return nil, err
	}

	var salaries []contribution.SalaryRecord
	for i, row := range s.rows {
		if blank(row) {
			continue
		}
		line := s.firstRow + i
		// names are kept verbatim: they are the grouping key
		name := cell(row, s.index["employee_name"])
		if strings.TrimSpace(name) == "" {
			return nil, &ValidationError{Row: line, Field: "employee_name", Reason: "is required"}
		}
		month, ok := normalizeMonth(s.get(row, "month"))
		if !ok {
			return nil, &ValidationError{Row: line, Field: "month", Reason: "must be a month in YYYYMM format"}
		}
		amount, err := parseNumber(line, "salary_amount", s.get(row, "salary_amount"))
		if err != nil {
			return nil, err
		}
		if amount < 0 {
			return nil, &ValidationError{Row: line, Field: "salary_amount", Reason: "must not be negative"}
		}
		salaries = append(salaries, contribution.SalaryRecord{
			EmployeeID:   integerToken(s.get(row, "employee_id")),
			EmployeeName: name,
			Month:        month,
			Amount:       amount,
		})
	}
	if len(salaries) == 0 {
		return nil, ErrEmptySheet
	}
	return salaries, nil
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

func parseNumber(line int, field, raw string) (float64, error) {
	if raw == "" {
		return 0, &ValidationError{Row: line, Field: field, Reason: "is required"}
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, &ValidationError{Row: line, Field: field, Reason: "must be a number"}
	}
	return value, nil
}

// integerToken renders spreadsheet numbers such as "2024.0" as "2024".
func integerToken(raw string) string {
	if !strings.Contains(raw, ".") {
		return raw
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value != math.Trunc(value) || math.Abs(value) > 1e15 {
		return raw
	}
	return strconv.FormatInt(int64(value), 10)
}

// normalizeMonth accepts YYYYMM and YYYY-MM (or YYYY/MM) and returns YYYYMM.
func normalizeMonth(raw string) (string, bool) {
	token := integerToken(raw)
	if len(token) == 7 && (token[4] == '-' || token[4] == '/') {
		token = token[:4] + token[5:]
	}
	if len(token) != 6 {
		return "", false
	}
	for _, r := range token {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	month, _ := strconv.Atoi(token[4:])
	if month < 1 || month > 12 {
		return "", false
	}
	return token, true
}
