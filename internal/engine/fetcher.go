package engine

import (
	"context"
	"errors"

	"github.com/Veraticus/azure-flow/internal/common"
	"github.com/Veraticus/azure-flow/internal/model"
	"github.com/Veraticus/azure-flow/internal/normalize"
)

// fetchSubscription retrieves one subscription's recommendations and cost
// rows. The two sub-calls are independent: a failure in one is captured as a
// FetchError diagnostic and the other still runs. Only a credential failure
// escalates to fatal.
func (e *Engine) fetchSubscription(ctx context.Context, sub model.Subscription, opts Options) subResult {
	result := subResult{subscriptionID: sub.ID}
	logger := e.logger.With("subscription_id", sub.ID)

	if err := e.gate.Wait(ctx); err != nil {
		result.fatal = err
		return result
	}

	recs, dropped, err := e.advisor.ListRecommendations(ctx, sub.ID)
	switch {
	case err == nil:
		result.recommendations = recs
		result.diagnostics.DroppedRecommendations = append(result.diagnostics.DroppedRecommendations, dropped...)
		if len(dropped) > 0 {
			logger.Warn("Excluded undecodable recommendations", "count", len(dropped))
		}
	case isFatal(err):
		result.fatal = err
		return result
	default:
		logger.Error("Advisor fetch failed", "error", err)
		result.diagnostics.FetchErrors = append(result.diagnostics.FetchErrors, model.FetchError{
			SubscriptionID: sub.ID,
			Stage:          model.StageAdvisor,
			Err:            err,
		})
		if errors.Is(err, common.ErrRateLimit) {
			e.cooldown(ctx, sub.ID)
		}
	}

	if err := e.gate.Wait(ctx); err != nil {
		result.fatal = err
		return result
	}

	rows, err := e.costs.QueryCosts(ctx, sub.ID, opts.Window, opts.JoinKey.GroupingDimension())
	switch {
	case err == nil:
		normalized := normalize.Rows(sub.ID, rows, e.costs.FieldOrder())
		result.costs = normalized.Records
		result.diagnostics.SkippedRows = append(result.diagnostics.SkippedRows, normalized.Skipped...)
		if len(normalized.Skipped) > 0 {
			logger.Warn("Excluded unparsable cost rows", "count", len(normalized.Skipped))
		}
	case isFatal(err):
		result.fatal = err
		return result
	default:
		logger.Error("Cost fetch failed", "error", err)
		result.diagnostics.FetchErrors = append(result.diagnostics.FetchErrors, model.FetchError{
			SubscriptionID: sub.ID,
			Stage:          model.StageCost,
			Err:            err,
		})
		if errors.Is(err, common.ErrRateLimit) {
			e.cooldown(ctx, sub.ID)
		}
	}

	logger.Info("Subscription fetch complete",
		"recommendations", len(result.recommendations),
		"cost_rows", len(result.costs),
		"errors", len(result.diagnostics.FetchErrors))

	return result
}
