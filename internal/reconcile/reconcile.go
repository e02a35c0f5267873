// Package reconcile joins recommendation and cost collections into the
// unified report table.
package reconcile

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Veraticus/azure-flow/internal/model"
	"github.com/shopspring/decimal"
)

// ErrJoinKeyMismatch indicates that the configured join key does not match
// the grouping dimension used by the cost query. Joining on mismatched keys
// silently produces an all-null join, so this is rejected at configuration
// time.
var ErrJoinKeyMismatch = errors.New("join key does not match cost query grouping dimension")

// DefaultSavingsFactor is the fixed ratio applied to a joined cost to
// estimate its potential saving. A heuristic, not a provider-verified figure.
var DefaultSavingsFactor = decimal.NewFromFloat(0.30)

// Options configures a reconciliation. Both the join key and the grouping
// dimension of the cost query that produced the cost rows must be supplied,
// so agreement between them can be checked before any row is joined.
type Options struct {
	JoinKey           model.JoinKey
	GroupingDimension string
	SavingsFactor     decimal.Decimal
}

// Validate rejects inconsistent configuration.
func (o *Options) Validate() error {
	switch o.JoinKey {
	case model.JoinKeyResourceGroup, model.JoinKeyResourceID:
	default:
		return fmt.Errorf("invalid join key %q", o.JoinKey)
	}

	if o.GroupingDimension != o.JoinKey.GroupingDimension() {
		return fmt.Errorf("%w: join key %q requires grouping %q, cost query used %q",
			ErrJoinKeyMismatch, o.JoinKey, o.JoinKey.GroupingDimension(), o.GroupingDimension)
	}

	if o.SavingsFactor.IsNegative() {
		return fmt.Errorf("savings factor cannot be negative")
	}
	return nil
}

// Join left-outer-joins recommendations to cost rows on the configured key.
// Recommendations with no matching cost row keep nil cost fields; they are
// never dropped and never defaulted to zero. Output is ordered by cost
// descending (unmatched rows last) with the group key as tiebreaker, so
// identical inputs always produce the identical table.
func Join(recommendations []model.Recommendation, costs []model.CostRecord, opts Options) ([]model.JoinedRow, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	factor := opts.SavingsFactor
	if factor.IsZero() {
		factor = DefaultSavingsFactor
	}

	// Cost rows are aggregated per (subscription, group); sum duplicates in
	// case a source splits a group across rows.
	type costKey struct {
		subscription string
		group        string
	}
	totals := make(map[costKey]decimal.Decimal, len(costs))
	for _, c := range costs {
		k := costKey{subscription: c.SubscriptionID, group: c.GroupKey}
		totals[k] = totals[k].Add(c.Amount)
	}

	joined := make([]model.JoinedRow, 0, len(recommendations))
	for _, rec := range recommendations {
		group := rec.KeyFor(opts.JoinKey)
		row := model.JoinedRow{
			Recommendation: rec,
			GroupKey:       group,
		}

		if group != "" && group != model.PlaceholderNA {
			if amount, ok := totals[costKey{subscription: rec.SubscriptionID, group: group}]; ok {
				cost := amount
				saving := amount.Mul(factor)
				row.Cost = &cost
				row.PotentialSaving = &saving
			}
		}

		joined = append(joined, row)
	}

	sort.SliceStable(joined, func(i, j int) bool {
		a, b := joined[i], joined[j]
		switch {
		case a.Cost != nil && b.Cost != nil:
			if !a.Cost.Equal(*b.Cost) {
				return a.Cost.GreaterThan(*b.Cost)
			}
		case a.Cost != nil:
			return true
		case b.Cost != nil:
			return false
		}
		if a.GroupKey != b.GroupKey {
			return a.GroupKey < b.GroupKey
		}
		return a.Recommendation.SubscriptionID < b.Recommendation.SubscriptionID
	})

	return joined, nil
}
