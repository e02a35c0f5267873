package model

import "fmt"

// JoinKey selects the field on which recommendations are merged with cost
// rows. It is fixed per pipeline run; the cost query's grouping dimension
// must agree with it.
type JoinKey string

// Supported join keys.
const (
	JoinKeyResourceGroup JoinKey = "resource_group"
	JoinKeyResourceID    JoinKey = "resource_id"
)

// ParseJoinKey converts a user-supplied string to a JoinKey.
func ParseJoinKey(s string) (JoinKey, error) {
	switch s {
	case "resource_group", "resource-group", "resourceGroup":
		return JoinKeyResourceGroup, nil
	case "resource_id", "resource-id", "resourceId":
		return JoinKeyResourceID, nil
	default:
		return "", fmt.Errorf("invalid join key %q: must be resource_group or resource_id", s)
	}
}

// GroupingDimension returns the Cost Management grouping dimension name that
// produces rows keyed by this join key.
func (k JoinKey) GroupingDimension() string {
	if k == JoinKeyResourceID {
		return "ResourceId"
	}
	return "ResourceGroupName"
}
