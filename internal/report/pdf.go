// Package report renders a finished report as a PDF document or as CSV/JSON
// streams. Emitters consume the report's sequences as-is; all fetching and
// normalization happened upstream.
package report

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/azure-flow/internal/model"
	"github.com/Veraticus/azure-flow/internal/service"
	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// PDFWriter renders the report as a paginated A4 document: a summary page
// with charts, the recommendation table, the cost table, and a diagnostics
// appendix.
type PDFWriter struct {
	logger *slog.Logger
	path   string
}

// NewPDFWriter creates a PDF emitter that writes to path.
func NewPDFWriter(path string, logger *slog.Logger) (*PDFWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("pdf output path is required")
	}
	return &PDFWriter{path: path, logger: logger}, nil
}

// Write implements the ReportSink interface.
func (w *PDFWriter) Write(_ context.Context, report *model.Report) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)

	w.summaryPage(pdf, report)
	w.chartPage(pdf, report)
	w.recommendationPages(pdf, report)
	w.costPages(pdf, report)
	w.diagnosticsPage(pdf, report)

	if err := pdf.OutputFileAndClose(w.path); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}

	w.logger.Info("pdf export completed", "path", w.path)
	return nil
}

func (w *PDFWriter) summaryPage(pdf *fpdf.Fpdf, report *model.Report) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Azure Report - Costs & Recommendations", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, "Window: "+report.Window.String(), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	lines := []string{
		fmt.Sprintf("Total recommendations: %d", len(report.Recommendations)),
		fmt.Sprintf("Resource groups with recommendations: %d", model.DistinctGroups(report.RecommendationGroups())),
		fmt.Sprintf("Resource groups billed: %d", model.DistinctGroups(report.CostGroups())),
		fmt.Sprintf("Total cost: %s", report.TotalCost().StringFixed(2)),
		fmt.Sprintf("Potential saving (estimate, factor %s): %s",
			report.SavingsFactor.String(), report.TotalPotentialSaving().StringFixed(2)),
	}
	for _, line := range lines {
		pdf.CellFormat(0, 7, line, "", 1, "L", false, 0, "")
	}

	if !report.Diagnostics.Empty() {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("Partial data: %d fetch errors, %d rows excluded, %d recommendations dropped (see appendix).",
			len(report.Diagnostics.FetchErrors), len(report.Diagnostics.SkippedRows),
			len(report.Diagnostics.DroppedRecommendations)), "", 1, "L", false, 0, "")
	}
}

func (w *PDFWriter) chartPage(pdf *fpdf.Fpdf, report *model.Report) {
	charts := []struct {
		name   string
		title  string
		values func() ([]byte, error)
	}{
		{"cost_chart", "Top groups by cost", func() ([]byte, error) {
			return renderBarChart("Top groups by cost", topGroupsByCost(report))
		}},
		{"rec_chart", "Top groups by recommendations", func() ([]byte, error) {
			return renderBarChart("Top groups by recommendations", topGroupsByRecommendations(report))
		}},
	}

	added := false
	for _, c := range charts {
		png, err := c.values()
		if err != nil {
			w.logger.Debug("skipping chart", "chart", c.name, "reason", err)
			continue
		}
		if !added {
			pdf.AddPage()
			added = true
		}

		opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		pdf.RegisterImageOptionsReader(c.name, opts, bytes.NewReader(png))
		pdf.ImageOptions(c.name, 15, pdf.GetY()+5, 180, 80, false, opts, 0, "")
		pdf.SetY(pdf.GetY() + 95)
	}
}

func (w *PDFWriter) recommendationPages(pdf *fpdf.Fpdf, report *model.Report) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Advisor Recommendations", "", 1, "L", false, 0, "")

	headers := []string{"Subscription", "Category", "Problem", "Impact", "Group", "Saving (est.)"}
	widths := []float64{34, 22, 62, 16, 34, 22}

	w.tableHeader(pdf, headers, widths)
	pdf.SetFont("Helvetica", "", 7)
	for _, row := range report.Joined {
		rec := row.Recommendation
		cells := []string{
			truncate(rec.SubscriptionID, 24),
			truncate(rec.Category, 16),
			truncate(rec.Problem, 52),
			truncate(rec.Impact, 10),
			truncate(row.GroupKey, 24),
			optionalAmount(row.PotentialSaving),
		}
		w.tableRow(pdf, cells, widths, headers)
	}
}

func (w *PDFWriter) costPages(pdf *fpdf.Fpdf, report *model.Report) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Cost Analysis", "", 1, "L", false, 0, "")

	headers := []string{"Subscription", "Group", "Cost"}
	widths := []float64{60, 90, 40}

	w.tableHeader(pdf, headers, widths)
	pdf.SetFont("Helvetica", "", 8)
	for _, c := range report.Costs {
		cells := []string{
			truncate(c.SubscriptionID, 40),
			truncate(c.GroupKey, 58),
			c.Amount.StringFixed(2),
		}
		w.tableRow(pdf, cells, widths, headers)
	}
}

func (w *PDFWriter) diagnosticsPage(pdf *fpdf.Fpdf, report *model.Report) {
	if report.Diagnostics.Empty() {
		return
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Appendix: Diagnostics", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, fe := range report.Diagnostics.FetchErrors {
		pdf.MultiCell(0, 5, fe.Error(), "", "L", false)
	}
	for _, sr := range report.Diagnostics.SkippedRows {
		pdf.MultiCell(0, 5, sr.String(), "", "L", false)
	}
	for _, dr := range report.Diagnostics.DroppedRecommendations {
		pdf.MultiCell(0, 5, dr.String(), "", "L", false)
	}
}

func (w *PDFWriter) tableHeader(pdf *fpdf.Fpdf, headers []string, widths []float64) {
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(46, 134, 193)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)
}

// tableRow writes one row, re-emitting the header after an automatic page
// break.
func (w *PDFWriter) tableRow(pdf *fpdf.Fpdf, cells []string, widths []float64, headers []string) {
	_, pageHeight := pdf.GetPageSize()
	if pdf.GetY() > pageHeight-25 {
		pdf.AddPage()
		w.tableHeader(pdf, headers, widths)
		pdf.SetFont("Helvetica", "", 7)
	}

	for i, cell := range cells {
		pdf.CellFormat(widths[i], 6, cell, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
}

func optionalAmount(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.StringFixed(2)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

var _ service.ReportSink = (*PDFWriter)(nil)
