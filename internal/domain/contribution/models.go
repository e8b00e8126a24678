package contribution

import "time"

type CityRule struct {
	ID       int64   `json:"id"`
	CityName string  `json:"cityName"`
	Year     string  `json:"year"`
	BaseMin  float64 `json:"baseMin"`
	BaseMax  float64 `json:"baseMax"`
	Rate     float64 `json:"rate"`
}

type CityOption struct {
	CityName string `json:"cityName"`
	Year     string `json:"year"`
}

type SalaryRecord struct {
	ID           int64   `json:"id"`
	EmployeeID   string  `json:"employeeId"`
	EmployeeName string  `json:"employeeName"`
	Month        string  `json:"month"`
	Amount       float64 `json:"salaryAmount"`
}

type ResultRecord struct {
	ID               int64     `json:"id"`
	RunID            string    `json:"runId"`
	EmployeeName     string    `json:"employeeName"`
	CityName         string    `json:"cityName"`
	AvgSalary        float64   `json:"avgSalary"`
	ContributionBase float64   `json:"contributionBase"`
	CompanyFee       float64   `json:"companyFee"`
	CalculatedAt     time.Time `json:"calculatedAt"`
}

type ResultFilter struct {
	City   string
	Limit  int
	Offset int
}

type CalculateRequest struct {
	City      string
	Overwrite bool
}

type RunSummary struct {
	RunID string `json:"runId"`
	Count int    `json:"count"`
}
