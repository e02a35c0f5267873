package engine

import (
	"context"
	"testing"

	"github.com/Veraticus/azure-flow/internal/azure"
	"github.com/Veraticus/azure-flow/internal/model"
	"github.com/Veraticus/azure-flow/internal/reconcile"
	"github.com/Veraticus/azure-flow/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(mock *azure.MockClient) *Pipeline {
	return NewPipeline(mock, NewWithConfig(mock, mock, testConfig(2)))
}

func TestPipelineRun(t *testing.T) {
	mock := azure.NewMockClient()
	mock.ListSubscriptionsFunc = func(_ context.Context) ([]model.Subscription, error) {
		return []model.Subscription{
			{ID: "sub-a", DisplayName: "Production"},
			{ID: "sub-b", DisplayName: "Staging"},
		}, nil
	}
	mock.ListRecommendationsFunc = func(_ context.Context, subID string) ([]model.Recommendation, []model.DroppedRecommendation, error) {
		return []model.Recommendation{
			{SubscriptionID: subID, Category: "Cost", Impact: "High", ResourceGroup: "rg-" + subID},
		}, nil, nil
	}
	mock.QueryCostsFunc = func(_ context.Context, subID string, _ model.TimeWindow, grouping string) ([]service.RawCostRow, error) {
		assert.Equal(t, "ResourceGroupName", grouping)
		return []service.RawCostRow{{"100.00", "rg-" + subID}}, nil
	}

	report, err := newTestPipeline(mock).Run(context.Background(), RunOptions{
		Window:  testWindow(),
		JoinKey: model.JoinKeyResourceGroup,
	})
	require.NoError(t, err)

	assert.Len(t, report.Recommendations, 2)
	assert.Len(t, report.Costs, 2)
	require.Len(t, report.Joined, 2)
	assert.True(t, report.Diagnostics.Empty())

	for _, row := range report.Joined {
		require.NotNil(t, row.Cost)
		require.NotNil(t, row.PotentialSaving)
		assert.True(t, row.PotentialSaving.Equal(decimal.RequireFromString("30")),
			"saving %s != 30", row.PotentialSaving)
	}

	assert.True(t, report.TotalCost().Equal(decimal.RequireFromString("200")))
	assert.Equal(t, model.JoinKeyResourceGroup, report.JoinKey)
}

func TestPipelinePartialResults(t *testing.T) {
	mock := azure.NewMockClient()
	mock.ListSubscriptionsFunc = func(_ context.Context) ([]model.Subscription, error) {
		return []model.Subscription{{ID: "sub-a"}, {ID: "sub-b"}}, nil
	}
	mock.ListRecommendationsFunc = func(_ context.Context, subID string) ([]model.Recommendation, []model.DroppedRecommendation, error) {
		return []model.Recommendation{{SubscriptionID: subID, Category: "Cost", ResourceGroup: "rg-" + subID}}, nil, nil
	}
	mock.QueryCostsFunc = func(ctx context.Context, subID string, _ model.TimeWindow, _ string) ([]service.RawCostRow, error) {
		if subID == "sub-b" {
			return nil, context.DeadlineExceeded
		}
		return []service.RawCostRow{{"100.00", "rg-sub-a"}}, nil
	}

	report, err := newTestPipeline(mock).Run(context.Background(), RunOptions{
		Window:  testWindow(),
		JoinKey: model.JoinKeyResourceGroup,
	})
	require.NoError(t, err)

	// Both subscriptions' recommendations survive; only sub-a has costs.
	assert.Len(t, report.Recommendations, 2)
	assert.Len(t, report.Costs, 1)

	require.Len(t, report.Joined, 2)
	var matched, unmatched int
	for _, row := range report.Joined {
		if row.Cost != nil {
			matched++
		} else {
			unmatched++
		}
	}
	assert.Equal(t, 1, matched)
	assert.Equal(t, 1, unmatched)

	require.Len(t, report.Diagnostics.FetchErrors, 1)
	assert.Equal(t, "sub-b", report.Diagnostics.FetchErrors[0].SubscriptionID)
	assert.Equal(t, model.StageCost, report.Diagnostics.FetchErrors[0].Stage)
}

func TestPipelineSubscriptionSelection(t *testing.T) {
	mock := azure.NewMockClient()
	mock.ListSubscriptionsFunc = func(_ context.Context) ([]model.Subscription, error) {
		return []model.Subscription{{ID: "sub-a"}, {ID: "sub-b"}, {ID: "sub-c"}}, nil
	}

	report, err := newTestPipeline(mock).Run(context.Background(), RunOptions{
		SubscriptionIDs: []string{"sub-b"},
		Window:          testWindow(),
		JoinKey:         model.JoinKeyResourceGroup,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"sub-b"}, mock.RecommendationCalls())
	assert.True(t, report.Diagnostics.Empty())
}

func TestPipelineUnreachableSubscriptionID(t *testing.T) {
	mock := azure.NewMockClient()
	mock.ListSubscriptionsFunc = func(_ context.Context) ([]model.Subscription, error) {
		return []model.Subscription{{ID: "sub-a"}}, nil
	}

	_, err := newTestPipeline(mock).Run(context.Background(), RunOptions{
		SubscriptionIDs: []string{"sub-a", "sub-nope"},
		Window:          testWindow(),
		JoinKey:         model.JoinKeyResourceGroup,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sub-nope")
	assert.Empty(t, mock.RecommendationCalls(), "no fetch may run for an invalid selection")
}

func TestPipelineValidatesBeforeNetwork(t *testing.T) {
	mock := azure.NewMockClient()

	// Invalid window.
	_, err := newTestPipeline(mock).Run(context.Background(), RunOptions{
		JoinKey: model.JoinKeyResourceGroup,
	})
	require.Error(t, err)

	// Invalid join key.
	_, err = newTestPipeline(mock).Run(context.Background(), RunOptions{
		Window:  testWindow(),
		JoinKey: model.JoinKey("region"),
	})
	require.Error(t, err)

	assert.Zero(t, mock.ListSubscriptionsCalls(), "validation must precede enumeration")
}

func TestPipelineCustomSavingsFactor(t *testing.T) {
	mock := azure.NewMockClient()
	mock.ListSubscriptionsFunc = func(_ context.Context) ([]model.Subscription, error) {
		return []model.Subscription{{ID: "sub-a"}}, nil
	}
	mock.ListRecommendationsFunc = func(_ context.Context, subID string) ([]model.Recommendation, []model.DroppedRecommendation, error) {
		return []model.Recommendation{{SubscriptionID: subID, Category: "Cost", ResourceGroup: "rg-x"}}, nil, nil
	}
	mock.QueryCostsFunc = func(_ context.Context, _ string, _ model.TimeWindow, _ string) ([]service.RawCostRow, error) {
		return []service.RawCostRow{{"200.00", "rg-x"}}, nil
	}

	report, err := newTestPipeline(mock).Run(context.Background(), RunOptions{
		Window:        testWindow(),
		JoinKey:       model.JoinKeyResourceGroup,
		SavingsFactor: decimal.RequireFromString("0.10"),
	})
	require.NoError(t, err)

	require.Len(t, report.Joined, 1)
	require.NotNil(t, report.Joined[0].PotentialSaving)
	assert.True(t, report.Joined[0].PotentialSaving.Equal(decimal.RequireFromString("20")))
	assert.True(t, report.SavingsFactor.Equal(decimal.RequireFromString("0.10")))
}

func TestPipelineZeroSavingsFactorUsesDefault(t *testing.T) {
	mock := azure.NewMockClient()
	mock.ListSubscriptionsFunc = func(_ context.Context) ([]model.Subscription, error) {
		return []model.Subscription{{ID: "sub-a"}}, nil
	}

	report, err := newTestPipeline(mock).Run(context.Background(), RunOptions{
		Window:  testWindow(),
		JoinKey: model.JoinKeyResourceGroup,
	})
	require.NoError(t, err)
	assert.True(t, report.SavingsFactor.Equal(reconcile.DefaultSavingsFactor))
}
