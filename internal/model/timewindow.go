package model

import (
	"fmt"
	"time"
)

// TimeWindow is a half-open [Start, End) interval. Both endpoints are stored
// in UTC with sub-second precision dropped, matching the Cost Management
// API's timestamp formatting requirements.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// NewTimeWindow builds a window from two timestamps, converting to UTC and
// truncating to whole seconds.
func NewTimeWindow(start, end time.Time) TimeWindow {
	return TimeWindow{
		Start: start.UTC().Truncate(time.Second),
		End:   end.UTC().Truncate(time.Second),
	}
}

// LastDays returns the window covering the n days ending at now.
func LastDays(now time.Time, n int) TimeWindow {
	return NewTimeWindow(now.AddDate(0, 0, -n), now)
}

// Validate ensures the window is well formed.
func (w TimeWindow) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return fmt.Errorf("time window endpoints must be set")
	}
	if !w.Start.Before(w.End) {
		return fmt.Errorf("time window start %s must be before end %s",
			w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
	}
	return nil
}

// FromString returns the start formatted for the provider API.
func (w TimeWindow) FromString() string {
	return w.Start.Format(time.RFC3339)
}

// ToString returns the end formatted for the provider API.
func (w TimeWindow) ToString() string {
	return w.End.Format(time.RFC3339)
}

func (w TimeWindow) String() string {
	return fmt.Sprintf("%s to %s", w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
}
