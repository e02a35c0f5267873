package report

import (
	"testing"

	"github.com/Veraticus/azure-flow/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wcharczuk/go-chart/v2"
)

func TestTopGroupsByCost(t *testing.T) {
	report := &model.Report{
		Costs: []model.CostRecord{
			{SubscriptionID: "sub-a", GroupKey: "rg-small", Amount: decimal.RequireFromString("10")},
			{SubscriptionID: "sub-a", GroupKey: "rg-big", Amount: decimal.RequireFromString("500")},
			{SubscriptionID: "sub-b", GroupKey: "rg-big", Amount: decimal.RequireFromString("100")},
		},
	}

	values := topGroupsByCost(report)
	require.Len(t, values, 2)
	assert.Equal(t, "rg-big", values[0].Label)
	assert.InDelta(t, 600.0, values[0].Value, 0.001)
	assert.Equal(t, "rg-small", values[1].Label)
}

func TestTopGroupsByRecommendations(t *testing.T) {
	report := &model.Report{
		JoinKey: model.JoinKeyResourceGroup,
		Recommendations: []model.Recommendation{
			{SubscriptionID: "sub-a", Category: "Cost", ResourceGroup: "rg-a"},
			{SubscriptionID: "sub-a", Category: "Cost", ResourceGroup: "rg-a"},
			{SubscriptionID: "sub-a", Category: "Cost", ResourceGroup: "rg-b"},
		},
	}

	values := topGroupsByRecommendations(report)
	require.Len(t, values, 2)
	assert.Equal(t, "rg-a", values[0].Label)
	assert.InDelta(t, 2.0, values[0].Value, 0.001)
}

func TestRankValuesCapsAtTopN(t *testing.T) {
	totals := make(map[string]float64, topN+5)
	for i := 0; i < topN+5; i++ {
		totals[string(rune('a'+i))] = float64(i)
	}

	values := rankValues(totals)
	assert.Len(t, values, topN)
	// Highest value first.
	assert.InDelta(t, float64(topN+4), values[0].Value, 0.001)
}

func TestRenderBarChartEmpty(t *testing.T) {
	_, err := renderBarChart("empty", nil)
	require.Error(t, err)
}

func TestRenderBarChartProducesPNG(t *testing.T) {
	png, err := renderBarChart("test", []chart.Value{
		{Label: "rg-a", Value: 100},
		{Label: "rg-b", Value: 50},
	})
	require.NoError(t, err)
	require.NotEmpty(t, png)
	// PNG magic bytes.
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}
