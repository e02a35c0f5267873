package report

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/Veraticus/azure-flow/internal/model"
	"github.com/wcharczuk/go-chart/v2"
)

// topN caps the chart bars, matching the original dashboard's top-10 views.
const topN = 10

// topGroupsByCost ranks group keys by total cost, descending.
func topGroupsByCost(report *model.Report) []chart.Value {
	totals := make(map[string]float64)
	for _, c := range report.Costs {
		totals[c.GroupKey] += c.Amount.InexactFloat64()
	}
	return rankValues(totals)
}

// topGroupsByRecommendations ranks group keys by recommendation count,
// descending.
func topGroupsByRecommendations(report *model.Report) []chart.Value {
	counts := make(map[string]float64)
	for _, rec := range report.Recommendations {
		counts[rec.KeyFor(report.JoinKey)]++
	}
	return rankValues(counts)
}

func rankValues(totals map[string]float64) []chart.Value {
	values := make([]chart.Value, 0, len(totals))
	for label, v := range totals {
		values = append(values, chart.Value{Label: label, Value: v})
	}
	sort.Slice(values, func(i, j int) bool {
		if values[i].Value != values[j].Value {
			return values[i].Value > values[j].Value
		}
		return values[i].Label < values[j].Label
	})
	if len(values) > topN {
		values = values[:topN]
	}
	return values
}

// renderBarChart renders a PNG bar chart for embedding in the PDF. At least
// one bar is required by the chart library; callers skip empty datasets.
func renderBarChart(title string, values []chart.Value) ([]byte, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("no values to chart")
	}

	barChart := chart.BarChart{
		Title:    title,
		Width:    900,
		Height:   400,
		BarWidth: 60,
		Bars:     values,
		XAxis:    chart.Style{TextRotationDegrees: 30},
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
	}

	var buf bytes.Buffer
	if err := barChart.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.Bytes(), nil
}
