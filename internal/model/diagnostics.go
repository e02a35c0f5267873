package model

import "fmt"

// FetchStage identifies which sub-call of a per-subscription fetch failed.
type FetchStage string

// Fetch stages.
const (
	StageAdvisor FetchStage = "advisor"
	StageCost    FetchStage = "cost"
)

// FetchError records the failure of one sub-call for one subscription. It is
// collected as a diagnostic rather than raised, so one subscription's failure
// never blocks the rest of the batch.
type FetchError struct {
	Err            error
	SubscriptionID string
	Stage          FetchStage
}

func (e FetchError) Error() string {
	return fmt.Sprintf("%s fetch failed for subscription %s: %v", e.Stage, e.SubscriptionID, e.Err)
}

func (e FetchError) Unwrap() error {
	return e.Err
}

// SkippedRow records a raw cost row that could not be normalized. The raw
// content is preserved for operator review; the row is excluded from totals.
type SkippedRow struct {
	SubscriptionID string
	Raw            []string
	Reason         string
}

func (s SkippedRow) String() string {
	return fmt.Sprintf("subscription %s: skipped row %v (%s)", s.SubscriptionID, s.Raw, s.Reason)
}

// DroppedRecommendation records an Advisor entry that could not be decoded
// into a Recommendation. The entry is excluded from the report but never
// dropped without a trace.
type DroppedRecommendation struct {
	SubscriptionID string
	Reason         string
}

func (d DroppedRecommendation) String() string {
	return fmt.Sprintf("subscription %s: dropped recommendation (%s)", d.SubscriptionID, d.Reason)
}

// Diagnostics carries everything the pipeline recovered from without
// aborting. The core never drops a row or a sub-call silently.
type Diagnostics struct {
	FetchErrors            []FetchError
	SkippedRows            []SkippedRow
	DroppedRecommendations []DroppedRecommendation
}

// Empty reports whether the run was fully clean.
func (d Diagnostics) Empty() bool {
	return len(d.FetchErrors) == 0 && len(d.SkippedRows) == 0 && len(d.DroppedRecommendations) == 0
}

// Merge appends another set of diagnostics.
func (d *Diagnostics) Merge(other Diagnostics) {
	d.FetchErrors = append(d.FetchErrors, other.FetchErrors...)
	d.SkippedRows = append(d.SkippedRows, other.SkippedRows...)
	d.DroppedRecommendations = append(d.DroppedRecommendations, other.DroppedRecommendations...)
}
