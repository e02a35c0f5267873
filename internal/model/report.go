package model

import (
	"github.com/shopspring/decimal"
)

// JoinedRow is one row of the reconciled report: a recommendation merged with
// the cost row sharing its join key. Cost and PotentialSaving are nil when no
// cost row matched; a missing match is never rendered as zero.
// PotentialSaving is a heuristic estimate (cost times a fixed ratio), not a
// provider-verified figure.
type JoinedRow struct {
	Cost            *decimal.Decimal
	PotentialSaving *decimal.Decimal
	Recommendation  Recommendation
	GroupKey        string
}

// Report is the full output of one analysis run. It is built fresh per run
// and never persisted.
type Report struct {
	Window          TimeWindow
	JoinKey         JoinKey
	SavingsFactor   decimal.Decimal
	Recommendations []Recommendation
	Costs           []CostRecord
	Joined          []JoinedRow
	Diagnostics     Diagnostics
}

// TotalCost sums all cost records in the report.
func (r *Report) TotalCost() decimal.Decimal {
	return SumCosts(r.Costs)
}

// TotalPotentialSaving sums the estimated savings across joined rows.
func (r *Report) TotalPotentialSaving() decimal.Decimal {
	total := decimal.Zero
	for _, row := range r.Joined {
		if row.PotentialSaving != nil {
			total = total.Add(*row.PotentialSaving)
		}
	}
	return total
}

// DistinctGroups returns the number of distinct non-placeholder group keys in
// the given projection.
func DistinctGroups(keys []string) int {
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" || k == PlaceholderNA {
			continue
		}
		seen[k] = struct{}{}
	}
	return len(seen)
}

// RecommendationGroups projects the group keys of the report's
// recommendations under its join key.
func (r *Report) RecommendationGroups() []string {
	keys := make([]string, len(r.Recommendations))
	for i, rec := range r.Recommendations {
		keys[i] = rec.KeyFor(r.JoinKey)
	}
	return keys
}

// CostGroups projects the group keys of the report's cost records.
func (r *Report) CostGroups() []string {
	keys := make([]string, len(r.Costs))
	for i, c := range r.Costs {
		keys[i] = c.GroupKey
	}
	return keys
}
