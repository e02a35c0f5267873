package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Veraticus/azure-flow/internal/model"
)

// WriteCSV streams the joined report table as CSV. Missing cost fields stay
// empty rather than rendering as zero.
func WriteCSV(w io.Writer, report *model.Report) error {
	cw := csv.NewWriter(w)

	header := []string{
		"subscription", "category", "problem", "solution", "impact",
		"group", "cost", "potential_saving_estimate",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, row := range report.Joined {
		rec := row.Recommendation
		cost := ""
		if row.Cost != nil {
			cost = row.Cost.StringFixed(2)
		}
		saving := ""
		if row.PotentialSaving != nil {
			saving = row.PotentialSaving.StringFixed(2)
		}

		record := []string{
			rec.SubscriptionID, rec.Category, rec.Problem, rec.Solution,
			rec.Impact, row.GroupKey, cost, saving,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// jsonReport is the serializable projection of a report.
type jsonReport struct {
	Window          string           `json:"window"`
	JoinKey         string           `json:"join_key"`
	SavingsFactor   string           `json:"savings_factor"`
	TotalCost       string           `json:"total_cost"`
	PotentialSaving string           `json:"total_potential_saving_estimate"`
	Joined          []jsonJoinedRow  `json:"rows"`
	FetchErrors     []string         `json:"fetch_errors,omitempty"`
	SkippedRows     []jsonSkippedRow `json:"skipped_rows,omitempty"`
	DroppedRecs     []jsonDroppedRec `json:"dropped_recommendations,omitempty"`
}

type jsonJoinedRow struct {
	Cost            *string `json:"cost"`
	PotentialSaving *string `json:"potential_saving_estimate"`
	Subscription    string  `json:"subscription"`
	Category        string  `json:"category"`
	Problem         string  `json:"problem"`
	Solution        string  `json:"solution"`
	Impact          string  `json:"impact"`
	Group           string  `json:"group"`
}

type jsonSkippedRow struct {
	Subscription string   `json:"subscription"`
	Reason       string   `json:"reason"`
	Raw          []string `json:"raw"`
}

type jsonDroppedRec struct {
	Subscription string `json:"subscription"`
	Reason       string `json:"reason"`
}

// WriteJSON streams the report as indented JSON.
func WriteJSON(w io.Writer, report *model.Report) error {
	out := jsonReport{
		Window:          report.Window.String(),
		JoinKey:         string(report.JoinKey),
		SavingsFactor:   report.SavingsFactor.String(),
		TotalCost:       report.TotalCost().StringFixed(2),
		PotentialSaving: report.TotalPotentialSaving().StringFixed(2),
		Joined:          make([]jsonJoinedRow, 0, len(report.Joined)),
	}

	for _, row := range report.Joined {
		rec := row.Recommendation
		jr := jsonJoinedRow{
			Subscription: rec.SubscriptionID,
			Category:     rec.Category,
			Problem:      rec.Problem,
			Solution:     rec.Solution,
			Impact:       rec.Impact,
			Group:        row.GroupKey,
		}
		if row.Cost != nil {
			s := row.Cost.StringFixed(2)
			jr.Cost = &s
		}
		if row.PotentialSaving != nil {
			s := row.PotentialSaving.StringFixed(2)
			jr.PotentialSaving = &s
		}
		out.Joined = append(out.Joined, jr)
	}

	for _, fe := range report.Diagnostics.FetchErrors {
		out.FetchErrors = append(out.FetchErrors, fe.Error())
	}
	for _, sr := range report.Diagnostics.SkippedRows {
		out.SkippedRows = append(out.SkippedRows, jsonSkippedRow{
			Subscription: sr.SubscriptionID,
			Reason:       sr.Reason,
			Raw:          sr.Raw,
		})
	}
	for _, dr := range report.Diagnostics.DroppedRecommendations {
		out.DroppedRecs = append(out.DroppedRecs, jsonDroppedRec{
			Subscription: dr.SubscriptionID,
			Reason:       dr.Reason,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
