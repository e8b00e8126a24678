// Package exporter renders calculation results as downloadable workbooks and
// PDF reports.
package exporter

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"sicalc/internal/domain/contribution"
)

const ResultsSheet = "计算结果"

var ErrNoResults = errors.New("no data to export")

var resultColumns = []struct {
	header string
	width  float64
}{
	{"员工姓名", 12},
	{"城市", 10},
	{"平均工资", 12},
	{"缴费基数", 12},
	{"公司缴纳金额", 15},
	{"计算时间", 20},
}

// WorkbookFilename is the download name for a workbook generated on day.
func WorkbookFilename(day time.Time) string {
	return fmt.Sprintf("社保计算结果_%s.xlsx", day.Format("2006-01-02"))
}

func WriteResultsWorkbook(w io.Writer, results []contribution.ResultRecord) error {
	if len(results) == 0 {
		return ErrNoResults
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ResultsSheet); err != nil {
		return err
	}

	headers := make([]any, len(resultColumns))
	for i, col := range resultColumns {
		headers[i] = col.header
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(ResultsSheet, name, name, col.width); err != nil {
			return err
		}
	}
	if err := f.SetSheetRow(ResultsSheet, "A1", &headers); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(ResultsSheet, 1, 1, bold); err != nil {
		return err
	}

	for i, r := range results {
		row := []any{
			r.EmployeeName,
			r.CityName,
			r.AvgSalary,
			r.ContributionBase,
			r.CompanyFee,
			r.CalculatedAt.Local().Format("2006/1/2 15:04:05"),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ResultsSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	_, err = f.WriteTo(w)
	return err
}
