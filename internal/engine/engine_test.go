package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/azure-flow/internal/azure"
	"github.com/Veraticus/azure-flow/internal/common"
	"github.com/Veraticus/azure-flow/internal/model"
	"github.com/Veraticus/azure-flow/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig keeps the pacing gate out of the way so tests run fast.
func testConfig(workers int) Config {
	return Config{
		Workers:      workers,
		CallInterval: time.Microsecond,
		Cooldown:     time.Millisecond,
	}
}

func testWindow() model.TimeWindow {
	return model.LastDays(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 30)
}

func testSubs(n int) []model.Subscription {
	subs := make([]model.Subscription, n)
	for i := range subs {
		subs[i] = model.Subscription{
			ID:          fmt.Sprintf("sub-%02d", i),
			DisplayName: fmt.Sprintf("Subscription %02d", i),
		}
	}
	return subs
}

func TestAggregateMergesAllSubscriptions(t *testing.T) {
	mock := azure.NewMockClient()
	mock.ListRecommendationsFunc = func(_ context.Context, subID string) ([]model.Recommendation, []model.DroppedRecommendation, error) {
		return []model.Recommendation{
			{SubscriptionID: subID, Category: "Cost", ResourceGroup: "rg-" + subID},
		}, nil, nil
	}
	mock.QueryCostsFunc = func(_ context.Context, subID string, _ model.TimeWindow, _ string) ([]service.RawCostRow, error) {
		return []service.RawCostRow{{"12.50", "rg-" + subID}}, nil
	}

	engine := NewWithConfig(mock, mock, testConfig(4))
	subs := testSubs(8)

	result, err := engine.Aggregate(context.Background(), subs, Options{
		Window:  testWindow(),
		JoinKey: model.JoinKeyResourceGroup,
	})
	require.NoError(t, err)

	// Exactly one recommendation and one cost row per subscription, no
	// duplication, no loss.
	require.Len(t, result.Recommendations, len(subs))
	require.Len(t, result.Costs, len(subs))
	assert.True(t, result.Diagnostics.Empty())

	seen := make(map[string]bool)
	for _, r := range result.Recommendations {
		assert.False(t, seen[r.SubscriptionID], "duplicate output for %s", r.SubscriptionID)
		seen[r.SubscriptionID] = true
	}
}

func TestAggregateDeterministicOrder(t *testing.T) {
	mock := azure.NewMockClient()
	mock.ListRecommendationsFunc = func(_ context.Context, subID string) ([]model.Recommendation, []model.DroppedRecommendation, error) {
		// Uneven latency scrambles completion order.
		if subID == "sub-00" {
			time.Sleep(10 * time.Millisecond)
		}
		return []model.Recommendation{{SubscriptionID: subID, Category: "Cost"}}, nil, nil
	}

	engine := NewWithConfig(mock, mock, testConfig(4))
	subs := testSubs(6)

	first, err := engine.Aggregate(context.Background(), subs, Options{
		Window:  testWindow(),
		JoinKey: model.JoinKeyResourceGroup,
	})
	require.NoError(t, err)

	reversed := make([]model.Subscription, len(subs))
	for i, sub := range subs {
		reversed[len(subs)-1-i] = sub
	}
	second, err := engine.Aggregate(context.Background(), reversed, Options{
		Window:  testWindow(),
		JoinKey: model.JoinKeyResourceGroup,
	})
	require.NoError(t, err)

	assert.Equal(t, first.Recommendations, second.Recommendations,
		"merged output must not depend on input or completion order")
}

func TestAggregateIsolatesSubscriptionFailures(t *testing.T) {
	mock := azure.NewMockClient()
	mock.ListRecommendationsFunc = func(_ context.Context, subID string) ([]model.Recommendation, []model.DroppedRecommendation, error) {
		if subID == "sub-01" {
			return nil, nil, &common.RetryableError{Err: common.ErrUpstreamUnavailable, Retryable: true}
		}
		return []model.Recommendation{{SubscriptionID: subID, Category: "Cost"}}, nil, nil
	}
	mock.QueryCostsFunc = func(_ context.Context, subID string, _ model.TimeWindow, _ string) ([]service.RawCostRow, error) {
		return []service.RawCostRow{{"10.00", "rg-" + subID}}, nil
	}

	engine := NewWithConfig(mock, mock, testConfig(2))
	subs := testSubs(3)

	result, err := engine.Aggregate(context.Background(), subs, Options{
		Window:  testWindow(),
		JoinKey: model.JoinKeyResourceGroup,
	})
	require.NoError(t, err, "one subscription's failure must not abort the batch")

	assert.Len(t, result.Recommendations, 2)
	// The failed subscription's cost sub-call still ran.
	assert.Len(t, result.Costs, 3)

	require.Len(t, result.Diagnostics.FetchErrors, 1)
	fe := result.Diagnostics.FetchErrors[0]
	assert.Equal(t, "sub-01", fe.SubscriptionID)
	assert.Equal(t, model.StageAdvisor, fe.Stage)
}

func TestAggregateCostFailureKeepsRecommendations(t *testing.T) {
	mock := azure.NewMockClient()
	mock.ListRecommendationsFunc = func(_ context.Context, subID string) ([]model.Recommendation, []model.DroppedRecommendation, error) {
		return []model.Recommendation{{SubscriptionID: subID, Category: "Security"}}, nil, nil
	}
	mock.QueryCostsFunc = func(_ context.Context, subID string, _ model.TimeWindow, _ string) ([]service.RawCostRow, error) {
		if subID == "sub-01" {
			return nil, context.DeadlineExceeded
		}
		return []service.RawCostRow{{"10.00", "rg"}}, nil
	}

	engine := NewWithConfig(mock, mock, testConfig(2))
	result, err := engine.Aggregate(context.Background(), testSubs(2), Options{
		Window:  testWindow(),
		JoinKey: model.JoinKeyResourceGroup,
	})
	require.NoError(t, err)

	assert.Len(t, result.Recommendations, 2)
	assert.Len(t, result.Costs, 1)

	require.Len(t, result.Diagnostics.FetchErrors, 1)
	assert.Equal(t, model.StageCost, result.Diagnostics.FetchErrors[0].Stage)
	assert.Equal(t, "sub-01", result.Diagnostics.FetchErrors[0].SubscriptionID)
}

func TestAggregateAuthFailureIsFatal(t *testing.T) {
	mock := azure.NewMockClient()
	mock.ListRecommendationsFunc = func(_ context.Context, _ string) ([]model.Recommendation, []model.DroppedRecommendation, error) {
		return nil, nil, fmt.Errorf("advisor: %w", common.ErrAuth)
	}

	engine := NewWithConfig(mock, mock, testConfig(2))
	_, err := engine.Aggregate(context.Background(), testSubs(4), Options{
		Window:  testWindow(),
		JoinKey: model.JoinKeyResourceGroup,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrAuth)
}

func TestAggregateSkippedRowsSurface(t *testing.T) {
	mock := azure.NewMockClient()
	mock.QueryCostsFunc = func(_ context.Context, _ string, _ model.TimeWindow, _ string) ([]service.RawCostRow, error) {
		return []service.RawCostRow{
			{"100.00", "rg-good"},
			{"not-a-number", "rg-bad"},
		}, nil
	}

	engine := NewWithConfig(mock, mock, testConfig(1))
	result, err := engine.Aggregate(context.Background(), testSubs(1), Options{
		Window:  testWindow(),
		JoinKey: model.JoinKeyResourceGroup,
	})
	require.NoError(t, err)

	require.Len(t, result.Costs, 1)
	assert.Equal(t, "rg-good", result.Costs[0].GroupKey)
	require.Len(t, result.Diagnostics.SkippedRows, 1)
	assert.Equal(t, []string{"not-a-number", "rg-bad"}, result.Diagnostics.SkippedRows[0].Raw)
}

func TestAggregateDroppedRecommendationsSurface(t *testing.T) {
	mock := azure.NewMockClient()
	mock.ListRecommendationsFunc = func(_ context.Context, subID string) ([]model.Recommendation, []model.DroppedRecommendation, error) {
		return []model.Recommendation{{SubscriptionID: subID, Category: "Cost"}},
			[]model.DroppedRecommendation{{SubscriptionID: subID, Reason: "missing category"}},
			nil
	}

	engine := NewWithConfig(mock, mock, testConfig(1))
	result, err := engine.Aggregate(context.Background(), testSubs(1), Options{
		Window:  testWindow(),
		JoinKey: model.JoinKeyResourceGroup,
	})
	require.NoError(t, err)

	assert.Len(t, result.Recommendations, 1)
	require.Len(t, result.Diagnostics.DroppedRecommendations, 1)
	assert.Equal(t, "sub-00", result.Diagnostics.DroppedRecommendations[0].SubscriptionID)
	assert.False(t, result.Diagnostics.Empty())
}

func TestAggregateCooldownAfterRateLimitExhaustion(t *testing.T) {
	// The advisor call goes through the real retry wrapper, so the error the
	// engine sees is the retry-exhausted wrap. The rate-limit identity must
	// survive that wrap and trigger the pacing cooldown.
	retryOpts := service.RetryOptions{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2.0,
	}

	mock := azure.NewMockClient()
	mock.ListRecommendationsFunc = func(ctx context.Context, _ string) ([]model.Recommendation, []model.DroppedRecommendation, error) {
		err := common.WithRetry(ctx, func() error {
			return &common.RetryableError{
				Err:       fmt.Errorf("%w: 429", common.ErrRateLimit),
				Retryable: true,
			}
		}, retryOpts)
		return nil, nil, err
	}

	cfg := Config{
		Workers:      1,
		CallInterval: time.Microsecond,
		Cooldown:     60 * time.Millisecond,
	}
	engine := NewWithConfig(mock, mock, cfg)

	start := time.Now()
	result, err := engine.Aggregate(context.Background(), testSubs(1), Options{
		Window:  testWindow(),
		JoinKey: model.JoinKeyResourceGroup,
	})
	elapsed := time.Since(start)
	require.NoError(t, err, "a rate-limited subscription must not abort the batch")

	require.Len(t, result.Diagnostics.FetchErrors, 1)
	fe := result.Diagnostics.FetchErrors[0]
	assert.Equal(t, model.StageAdvisor, fe.Stage)
	assert.ErrorIs(t, fe.Err, common.ErrRateLimit)
	assert.ErrorIs(t, fe.Err, common.ErrMaxRetries)

	assert.GreaterOrEqual(t, elapsed, cfg.Cooldown,
		"rate-limit exhaustion must pause the worker for the cooldown")
}

func TestAggregateProgressMonotonic(t *testing.T) {
	mock := azure.NewMockClient()

	engine := NewWithConfig(mock, mock, testConfig(4))
	subs := testSubs(10)

	var mu sync.Mutex
	var reported []int
	_, err := engine.Aggregate(context.Background(), subs, Options{
		Window:  testWindow(),
		JoinKey: model.JoinKeyResourceGroup,
		OnProgress: func(completed, total int) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, len(subs), total)
			reported = append(reported, completed)
		},
	})
	require.NoError(t, err)

	require.Len(t, reported, len(subs))
	for i, c := range reported {
		assert.Equal(t, i+1, c, "completed count must increase by one per finish")
	}
}

func TestAggregateEmptySubscriptionList(t *testing.T) {
	mock := azure.NewMockClient()
	engine := NewWithConfig(mock, mock, testConfig(2))

	_, err := engine.Aggregate(context.Background(), nil, Options{
		Window:  testWindow(),
		JoinKey: model.JoinKeyResourceGroup,
	})
	require.Error(t, err)
}

func TestAggregateInvalidWindow(t *testing.T) {
	mock := azure.NewMockClient()
	engine := NewWithConfig(mock, mock, testConfig(2))

	_, err := engine.Aggregate(context.Background(), testSubs(1), Options{
		JoinKey: model.JoinKeyResourceGroup,
	})
	require.Error(t, err)
	assert.Zero(t, len(mock.RecommendationCalls()), "invalid window must fail before any fetch")
}

func TestAggregateContextCancellation(t *testing.T) {
	mock := azure.NewMockClient()
	mock.ListRecommendationsFunc = func(ctx context.Context, _ string) ([]model.Recommendation, []model.DroppedRecommendation, error) {
		<-ctx.Done()
		return nil, nil, ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	engine := NewWithConfig(mock, mock, testConfig(2))

	done := make(chan error, 1)
	go func() {
		_, err := engine.Aggregate(ctx, testSubs(4), Options{
			Window:  testWindow(),
			JoinKey: model.JoinKeyResourceGroup,
		})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("aggregation did not stop after cancellation")
	}
}
