// Package model defines the core domain types shared across the application.
package model

// Subscription identifies one Azure subscription reachable by the current
// credential. It is the unit of iteration for fetching and the lookup key for
// every downstream join involving subscription scope.
type Subscription struct {
	ID          string
	DisplayName string
}

// Scope returns the ARM scope string for this subscription.
func (s Subscription) Scope() string {
	return "/subscriptions/" + s.ID
}

// Label returns a human-readable identifier, preferring the display name.
func (s Subscription) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.ID
}
