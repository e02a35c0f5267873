package model

// PlaceholderNA is the canonical placeholder for optional fields the provider
// did not populate. Downstream grouping relies on it never being an empty
// string.
const PlaceholderNA = "N/A"

// Recommendation is one Azure Advisor recommendation, normalized from either
// provider response schema. SubscriptionID and Category are always present;
// the remaining fields fall back to PlaceholderNA.
type Recommendation struct {
	SubscriptionID string
	Category       string
	Problem        string
	Solution       string
	Impact         string
	ResourceGroup  string
	ResourceID     string
}

// KeyFor returns the join field selected by key.
func (r Recommendation) KeyFor(key JoinKey) string {
	if key == JoinKeyResourceID {
		return r.ResourceID
	}
	return r.ResourceGroup
}
