// Package normalize converts raw cost rows into canonical CostRecords.
//
// Raw rows are positional two-field tuples whose field order varies between
// provider query modes, so every call site states the order explicitly; it is
// never guessed from content.
package normalize

import (
	"fmt"
	"strings"

	"github.com/Veraticus/azure-flow/internal/model"
	"github.com/Veraticus/azure-flow/internal/service"
	"github.com/shopspring/decimal"
)

// Result is the outcome of normalizing one subscription's cost rows. Skipped
// rows are reported individually with their raw content; they are excluded
// from the records but never dropped without a trace.
type Result struct {
	Records []model.CostRecord
	Skipped []model.SkippedRow
}

// Rows normalizes a batch of raw cost rows for one subscription, reading
// fields in the given order.
func Rows(subscriptionID string, rows []service.RawCostRow, order service.RowFieldOrder) Result {
	result := Result{
		Records: make([]model.CostRecord, 0, len(rows)),
	}

	for _, row := range rows {
		record, err := Row(subscriptionID, row, order)
		if err != nil {
			result.Skipped = append(result.Skipped, model.SkippedRow{
				SubscriptionID: subscriptionID,
				Raw:            append([]string(nil), row...),
				Reason:         err.Error(),
			})
			continue
		}
		result.Records = append(result.Records, record)
	}

	return result
}

// Row normalizes a single raw cost row. A missing or empty group label
// becomes the "N/A" placeholder; an unparsable or negative amount rejects
// the row.
func Row(subscriptionID string, row service.RawCostRow, order service.RowFieldOrder) (model.CostRecord, error) {
	if len(row) < 2 {
		return model.CostRecord{}, fmt.Errorf("row has %d fields, need 2", len(row))
	}

	var rawAmount, rawGroup string
	switch order {
	case service.CostFirst:
		rawAmount, rawGroup = row[0], row[1]
	default:
		rawGroup, rawAmount = row[0], row[1]
	}

	amount, err := ParseAmount(rawAmount)
	if err != nil {
		return model.CostRecord{}, err
	}
	if amount.IsNegative() {
		return model.CostRecord{}, fmt.Errorf("negative amount %s", amount.String())
	}

	group := strings.TrimSpace(rawGroup)
	if group == "" {
		group = model.PlaceholderNA
	}

	return model.CostRecord{
		SubscriptionID: subscriptionID,
		GroupKey:       group,
		Amount:         amount,
	}, nil
}

// ParseAmount parses a decimal amount tolerating surrounding whitespace and
// either '.' or ',' as the decimal separator. When both appear, the
// rightmost one is taken as the decimal point and the other is treated as a
// thousands separator.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("empty amount")
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return decimal.Decimal{}, fmt.Errorf("cannot parse amount %q", raw)
		}
		s = strings.Replace(s, ",", ".", 1)
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("cannot parse amount %q", raw)
	}
	return amount, nil
}
