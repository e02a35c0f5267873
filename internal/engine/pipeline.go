package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Veraticus/azure-flow/internal/model"
	"github.com/Veraticus/azure-flow/internal/reconcile"
	"github.com/Veraticus/azure-flow/internal/service"
	"github.com/shopspring/decimal"
)

// Pipeline runs a full analysis: enumerate subscriptions, aggregate
// recommendations and costs, reconcile them into the unified report. Report
// sinks consume the result; the pipeline itself renders nothing.
type Pipeline struct {
	lister service.SubscriptionLister
	engine *Engine
	logger *slog.Logger
}

// NewPipeline assembles a pipeline from its collaborators.
func NewPipeline(lister service.SubscriptionLister, engine *Engine) *Pipeline {
	return &Pipeline{
		lister: lister,
		engine: engine,
		logger: slog.Default().With("component", "pipeline"),
	}
}

// RunOptions configures one pipeline run.
type RunOptions struct {
	// SubscriptionIDs restricts the run to the named subscriptions. Empty
	// means every subscription the credential can reach.
	SubscriptionIDs []string
	OnProgress      service.ProgressFunc
	Window          model.TimeWindow
	JoinKey         model.JoinKey
	SavingsFactor   decimal.Decimal
}

// Run executes the pipeline and returns the aggregated report. The join
// key/grouping agreement is validated before the first network call; a
// mismatch is a configuration bug, not a data error.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*model.Report, error) {
	if err := opts.Window.Validate(); err != nil {
		return nil, err
	}

	factor := opts.SavingsFactor
	if factor.IsZero() {
		factor = reconcile.DefaultSavingsFactor
	}

	reconcileOpts := reconcile.Options{
		JoinKey:           opts.JoinKey,
		GroupingDimension: opts.JoinKey.GroupingDimension(),
		SavingsFactor:     factor,
	}
	if err := reconcileOpts.Validate(); err != nil {
		return nil, err
	}

	subs, err := p.lister.ListSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate subscriptions: %w", err)
	}

	if len(opts.SubscriptionIDs) > 0 {
		subs, err = selectSubscriptions(subs, opts.SubscriptionIDs)
		if err != nil {
			return nil, err
		}
	}

	result, err := p.engine.Aggregate(ctx, subs, Options{
		Window:     opts.Window,
		JoinKey:    opts.JoinKey,
		OnProgress: opts.OnProgress,
	})
	if err != nil {
		return nil, err
	}

	joined, err := reconcile.Join(result.Recommendations, result.Costs, reconcileOpts)
	if err != nil {
		return nil, err
	}

	report := &model.Report{
		Window:          opts.Window,
		JoinKey:         opts.JoinKey,
		SavingsFactor:   factor,
		Recommendations: result.Recommendations,
		Costs:           result.Costs,
		Joined:          joined,
		Diagnostics:     result.Diagnostics,
	}

	p.logger.Info("Pipeline complete",
		"recommendations", len(report.Recommendations),
		"cost_rows", len(report.Costs),
		"joined_rows", len(report.Joined),
		"fetch_errors", len(report.Diagnostics.FetchErrors),
		"skipped_rows", len(report.Diagnostics.SkippedRows))

	return report, nil
}

// selectSubscriptions filters the enumeration down to the requested ids,
// preserving enumeration order. An id the credential cannot reach is a
// configuration error.
func selectSubscriptions(subs []model.Subscription, ids []string) ([]model.Subscription, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	selected := make([]model.Subscription, 0, len(ids))
	for _, sub := range subs {
		if wanted[sub.ID] {
			selected = append(selected, sub)
			delete(wanted, sub.ID)
		}
	}

	if len(wanted) > 0 {
		missing := make([]string, 0, len(wanted))
		for id := range wanted {
			missing = append(missing, id)
		}
		sort.Strings(missing)
		return nil, fmt.Errorf("subscriptions not reachable by credential: %v", missing)
	}

	return selected, nil
}
