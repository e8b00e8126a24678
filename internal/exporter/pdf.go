package exporter

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"sicalc/internal/domain/contribution"
)

// Layout in mm. pageBottom is the lowest y a row or the totals block may
// reach on A4 portrait.
const (
	headerHeight = 8.0
	rowHeight    = 7.0
	totalsHeight = 16.0
	pageBottom   = 287.0
)

// PDFOptions controls report rendering. FontPath points to a TTF file with
// CJK glyphs; without it the built-in Helvetica is used and text outside
// cp1252 is not rendered faithfully.
type PDFOptions struct {
	FontPath    string
	GeneratedAt time.Time
}

func WriteResultsPDF(w io.Writer, results []contribution.ResultRecord, opts PDFOptions) error {
	pdf, err := renderResultsPDF(results, opts)
	if err != nil {
		return err
	}
	return pdf.Output(w)
}

// renderResultsPDF lays rows out until the page is full, then continues on a
// new page with the column header repeated.
func renderResultsPDF(results []contribution.ResultRecord, opts PDFOptions) (*gofpdf.Fpdf, error) {
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	family := "Helvetica"
	translate := pdf.UnicodeTranslatorFromDescriptor("")
	if opts.FontPath != "" {
		family = "report"
		pdf.AddUTF8Font(family, "", opts.FontPath)
		pdf.AddUTF8Font(family, "B", opts.FontPath)
		translate = func(s string) string { return s }
	}

	widths := []float64{34, 24, 28, 28, 32, 44}
	header := func() {
		pdf.SetFont(family, "B", 10)
		for i, col := range resultColumns {
			pdf.CellFormat(widths[i], headerHeight, translate(col.header), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont(family, "", 9)
	}

	pdf.AddPage()
	pdf.SetFont(family, "B", 14)
	pdf.Cell(0, 10, translate("社保计算结果"))
	pdf.Ln(12)
	header()

	total := decimal.Zero
	for _, r := range results {
		if pdf.GetY()+rowHeight > pageBottom {
			pdf.AddPage()
			header()
		}
		cells := []string{
			r.EmployeeName,
			r.CityName,
			money(r.AvgSalary),
			money(r.ContributionBase),
			money(r.CompanyFee),
			r.CalculatedAt.Local().Format("2006-01-02 15:04:05"),
		}
		for j, text := range cells {
			align := "L"
			if j >= 2 && j <= 4 {
				align = "R"
			}
			pdf.CellFormat(widths[j], rowHeight, translate(text), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
		total = total.Add(decimal.NewFromFloat(r.CompanyFee))
	}

	if pdf.GetY()+totalsHeight > pageBottom {
		pdf.AddPage()
	}
	pdf.Ln(4)
	pdf.SetFont(family, "B", 10)
	pdf.Cell(0, 8, translate(fmt.Sprintf("Employees: %d   Company fee total: %s", len(results), total.StringFixed(2))))
	pdf.Ln(6)
	pdf.SetFont(family, "", 8)
	pdf.Cell(0, 6, fmt.Sprintf("Generated %s", opts.GeneratedAt.Format(time.RFC3339)))

	return pdf, pdf.Error()
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
