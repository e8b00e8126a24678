package contribution

import (
	"fmt"
	"math"
	"sort"
	"time"
)

type salaryTotal struct {
	sum   float64
	count int
}

// Calculate derives one ResultRecord per distinct employee name in salaries.
//
// Amounts are grouped by the exact display name, averaged, clamped into
// [rule.BaseMin, rule.BaseMax] and multiplied by rule.Rate. The average, base
// and fee are rounded independently with Round2. city is stamped onto every
// record as given. The returned slice is sorted by employee name.
func Calculate(rule CityRule, city string, salaries []SalaryRecord, now time.Time) ([]ResultRecord, error) {
	if len(salaries) == 0 {
		return nil, ErrNoSalaryData
	}
	if err := ValidateRule(rule); err != nil {
		return nil, computationError("validate rule", err)
	}

	totals := make(map[string]*salaryTotal, len(salaries))
	for _, salary := range salaries {
		total, ok := totals[salary.EmployeeName]
		if !ok {
			total = &salaryTotal{}
			totals[salary.EmployeeName] = total
		}
		total.sum += salary.Amount
		total.count++
	}

	results := make([]ResultRecord, 0, len(totals))
	for name, total := range totals {
		avg := total.sum / float64(total.count)
		base := ClampBase(avg, rule.BaseMin, rule.BaseMax)
		fee := base * rule.Rate
		if !finite(avg) || !finite(base) || !finite(fee) {
			return nil, computationError("aggregate salaries", fmt.Errorf("non-finite result for employee %q", name))
		}
		results = append(results, ResultRecord{
			EmployeeName:     name,
			CityName:         city,
			AvgSalary:        Round2(avg),
			ContributionBase: Round2(base),
			CompanyFee:       Round2(fee),
			CalculatedAt:     now,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].EmployeeName < results[j].EmployeeName
	})
	return results, nil
}

func ClampBase(avg, baseMin, baseMax float64) float64 {
	if avg < baseMin {
		return baseMin
	}
	if avg > baseMax {
		return baseMax
	}
	return avg
}

func ValidateRule(rule CityRule) error {
	if !finite(rule.BaseMin) || !finite(rule.BaseMax) || !finite(rule.Rate) {
		return fmt.Errorf("%w: bounds and rate must be finite", ErrInvalidRule)
	}
	if rule.BaseMin > rule.BaseMax {
		return fmt.Errorf("%w: base_min %.2f exceeds base_max %.2f", ErrInvalidRule, rule.BaseMin, rule.BaseMax)
	}
	if rule.Rate <= 0 {
		return fmt.Errorf("%w: rate must be positive", ErrInvalidRule)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
