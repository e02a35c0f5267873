// Package engine implements the fan-out aggregation core: per-subscription
// fetching with failure isolation, bounded-concurrency dispatch, and
// deterministic merging of the collected results.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Veraticus/azure-flow/internal/common"
	"github.com/Veraticus/azure-flow/internal/model"
	"github.com/Veraticus/azure-flow/internal/service"
	"golang.org/x/time/rate"
)

// Config holds configuration options for the aggregation engine.
type Config struct {
	// Workers is the number of concurrent in-flight subscription fetches.
	Workers int
	// CallInterval is the minimum spacing between provider calls across all
	// workers. The provider throttles aggressively; this gate is a
	// correctness requirement, not an optimization.
	CallInterval time.Duration
	// Cooldown is the fixed pause after a rate-limit response before any
	// further calls for that subscription. Not adaptive.
	Cooldown time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Workers:      4,
		CallInterval: 2 * time.Second,
		Cooldown:     30 * time.Second,
	}
}

// Engine dispatches per-subscription fetches across a bounded worker pool
// and merges their normalized output.
type Engine struct {
	advisor service.AdvisorClient
	costs   service.CostSource
	gate    *rate.Limiter
	logger  *slog.Logger
	config  Config
}

// New creates an aggregation engine with the default configuration.
func New(advisor service.AdvisorClient, costs service.CostSource) *Engine {
	return NewWithConfig(advisor, costs, DefaultConfig())
}

// NewWithConfig creates an aggregation engine with custom configuration.
func NewWithConfig(advisor service.AdvisorClient, costs service.CostSource, config Config) *Engine {
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.CallInterval <= 0 {
		config.CallInterval = 2 * time.Second
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 30 * time.Second
	}

	return &Engine{
		advisor: advisor,
		costs:   costs,
		gate:    rate.NewLimiter(rate.Every(config.CallInterval), 1),
		logger:  slog.Default().With("component", "engine"),
		config:  config,
	}
}

// Options configures one aggregation run.
type Options struct {
	// OnProgress, if set, is invoked with a monotonically increasing
	// completed count as each subscription finishes.
	OnProgress service.ProgressFunc
	Window     model.TimeWindow
	JoinKey    model.JoinKey
}

// Result holds the merged output of one aggregation run. The sequences are
// ordered by subscription id and then by fetch order within a subscription,
// so identical upstream data yields identical results regardless of worker
// completion order.
type Result struct {
	Recommendations []model.Recommendation
	Costs           []model.CostRecord
	Diagnostics     model.Diagnostics
}

// subResult is one subscription's collected output.
type subResult struct {
	fatal           error
	subscriptionID  string
	recommendations []model.Recommendation
	costs           []model.CostRecord
	diagnostics     model.Diagnostics
}

// Aggregate fetches all subscriptions over the window with bounded
// concurrency and merges the results. One subscription's failure never
// aborts the batch; only a credential failure is fatal to the whole run.
func (e *Engine) Aggregate(ctx context.Context, subs []model.Subscription, opts Options) (*Result, error) {
	if len(subs) == 0 {
		return nil, fmt.Errorf("no subscriptions selected")
	}
	if err := opts.Window.Validate(); err != nil {
		return nil, err
	}

	e.logger.Info("Starting aggregation",
		"subscriptions", len(subs),
		"workers", e.config.Workers,
		"window", opts.Window.String())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan model.Subscription)
	results := make(chan subResult)

	var wg sync.WaitGroup
	for i := 0; i < e.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range jobs {
				select {
				case results <- e.fetchSubscription(ctx, sub, opts):
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, sub := range subs {
			select {
			case jobs <- sub:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect in completion order; merge deterministically afterwards.
	collected := make(map[string]subResult, len(subs))
	completed := 0
	var fatal error

	for res := range results {
		if res.fatal != nil && fatal == nil {
			fatal = res.fatal
			cancel()
			continue
		}

		collected[res.subscriptionID] = res
		completed++
		if opts.OnProgress != nil {
			opts.OnProgress(completed, len(subs))
		}
	}

	if fatal != nil {
		return nil, fatal
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return mergeResults(subs, collected), nil
}

// mergeResults flattens the per-subscription output in the stable order of
// the input subscription list.
func mergeResults(subs []model.Subscription, collected map[string]subResult) *Result {
	ordered := make([]model.Subscription, len(subs))
	copy(ordered, subs)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ID < ordered[j].ID
	})

	result := &Result{}
	for _, sub := range ordered {
		res, ok := collected[sub.ID]
		if !ok {
			continue
		}
		result.Recommendations = append(result.Recommendations, res.recommendations...)
		result.Costs = append(result.Costs, res.costs...)
		result.Diagnostics.Merge(res.diagnostics)
	}
	return result
}

// cooldown pauses after a rate-limit response. The duration is a fixed
// configuration value.
func (e *Engine) cooldown(ctx context.Context, subscriptionID string) {
	e.logger.Warn("Rate limited, cooling down",
		"subscription_id", subscriptionID,
		"cooldown", e.config.Cooldown)

	select {
	case <-ctx.Done():
	case <-time.After(e.config.Cooldown):
	}
}

// isFatal reports whether an error must abort the whole run.
func isFatal(err error) bool {
	return errors.Is(err, common.ErrAuth)
}
