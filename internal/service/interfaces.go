// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/azure-flow/internal/model"
)

// SubscriptionLister enumerates the subscriptions reachable by the current
// credential. Implementations do no caching; callers that want session-scoped
// reuse wrap the lister (see sessioncache).
type SubscriptionLister interface {
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
}

// AdvisorClient fetches Advisor recommendations for one subscription.
// Both provider response schemas must be handled; optional fields fall back
// to model.PlaceholderNA. Entries that cannot be decoded are returned as
// DroppedRecommendation diagnostics, never discarded silently.
type AdvisorClient interface {
	ListRecommendations(ctx context.Context, subscriptionID string) ([]model.Recommendation, []model.DroppedRecommendation, error)
}

// RawCostRow is one undecoded cost row as returned by a cost source. Field
// order is not self-describing; the normalizer is configured with the
// expected order per source.
type RawCostRow []string

// CostSource fetches raw cost rows for one subscription over a time window.
// The primary implementation queries the Cost Management API; an alternate
// implementation shells out to an external exporter. Both honor the same
// output contract.
type CostSource interface {
	QueryCosts(ctx context.Context, subscriptionID string, window model.TimeWindow, grouping string) ([]RawCostRow, error)
	// FieldOrder reports how this source orders the two row fields.
	FieldOrder() RowFieldOrder
}

// RowFieldOrder describes the positional layout of a raw cost row.
type RowFieldOrder int

// Row field orders. The Cost Management API has returned both layouts across
// API versions, so the order is fixed per source rather than inferred from
// content.
const (
	// GroupFirst means rows look like [group, cost].
	GroupFirst RowFieldOrder = iota
	// CostFirst means rows look like [cost, group].
	CostFirst
)

// ReportSink renders a finished report. Sinks consume the report's sequences
// as-is: no re-fetching, no re-normalizing.
type ReportSink interface {
	Write(ctx context.Context, report *model.Report) error
}

// ProgressFunc receives fan-out progress: completed is monotonically
// increasing and reaches total when the batch is done, independent of which
// subscription finishes first.
type ProgressFunc func(completed, total int)

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
