package model

import "github.com/shopspring/decimal"

// CostRecord is one aggregated spend figure for a time window, grouped by
// resource group or resource id depending on the query's grouping dimension.
// Amount is always non-negative and finite; rows that cannot be parsed never
// become CostRecords.
type CostRecord struct {
	SubscriptionID string
	GroupKey       string
	Amount         decimal.Decimal
}

// SumCosts totals a sequence of cost records.
func SumCosts(costs []CostRecord) decimal.Decimal {
	total := decimal.Zero
	for _, c := range costs {
		total = total.Add(c.Amount)
	}
	return total
}
