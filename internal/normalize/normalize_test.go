package normalize

import (
	"testing"

	"github.com/Veraticus/azure-flow/internal/model"
	"github.com/Veraticus/azure-flow/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "plain decimal point",
			input: "1234.56",
			want:  "1234.56",
		},
		{
			name:  "comma as decimal separator",
			input: "1234,56",
			want:  "1234.56",
		},
		{
			name:  "thousands dot with comma decimal",
			input: "1.234,56",
			want:  "1234.56",
		},
		{
			name:  "thousands comma with dot decimal",
			input: "1,234.56",
			want:  "1234.56",
		},
		{
			name:  "surrounding whitespace",
			input: "  42.00  ",
			want:  "42",
		},
		{
			name:  "integer",
			input: "100",
			want:  "100",
		},
		{
			name:  "zero",
			input: "0",
			want:  "0",
		},
		{
			name:  "negative parses",
			input: "-12.5",
			want:  "-12.5",
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "whitespace only",
			input:   "   ",
			wantErr: true,
		},
		{
			name:    "not a number",
			input:   "abc",
			wantErr: true,
		},
		{
			name:    "multiple commas without dot",
			input:   "1,234,56",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestRow(t *testing.T) {
	tests := []struct {
		name       string
		row        service.RawCostRow
		order      service.RowFieldOrder
		wantGroup  string
		wantAmount string
		wantErr    bool
	}{
		{
			name:       "group first",
			row:        service.RawCostRow{"rg-a", "1234,56"},
			order:      service.GroupFirst,
			wantGroup:  "rg-a",
			wantAmount: "1234.56",
		},
		{
			name:       "cost first",
			row:        service.RawCostRow{"1234,56", "rg-a"},
			order:      service.CostFirst,
			wantGroup:  "rg-a",
			wantAmount: "1234.56",
		},
		{
			name:       "empty group becomes placeholder",
			row:        service.RawCostRow{"", "50.00"},
			order:      service.GroupFirst,
			wantGroup:  model.PlaceholderNA,
			wantAmount: "50",
		},
		{
			name:       "whitespace group becomes placeholder",
			row:        service.RawCostRow{"   ", "50.00"},
			order:      service.GroupFirst,
			wantGroup:  model.PlaceholderNA,
			wantAmount: "50",
		},
		{
			name:    "too few fields",
			row:     service.RawCostRow{"rg-a"},
			order:   service.GroupFirst,
			wantErr: true,
		},
		{
			name:    "unparsable amount",
			row:     service.RawCostRow{"rg-a", "not-a-number"},
			order:   service.GroupFirst,
			wantErr: true,
		},
		{
			name:    "negative amount rejected",
			row:     service.RawCostRow{"rg-a", "-10.00"},
			order:   service.GroupFirst,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := Row("sub-1", tt.row, tt.order)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "sub-1", record.SubscriptionID)
			assert.Equal(t, tt.wantGroup, record.GroupKey)
			assert.True(t, record.Amount.Equal(decimal.RequireFromString(tt.wantAmount)),
				"amount %s != %s", record.Amount, tt.wantAmount)
		})
	}
}

func TestRowsPreservesSkipped(t *testing.T) {
	rows := []service.RawCostRow{
		{"rg-a", "100.00"},
		{"rg-b", "garbage"},
		{"rg-c", "200,50"},
		{"short"},
	}

	result := Rows("sub-1", rows, service.GroupFirst)

	require.Len(t, result.Records, 2)
	assert.Equal(t, "rg-a", result.Records[0].GroupKey)
	assert.Equal(t, "rg-c", result.Records[1].GroupKey)

	require.Len(t, result.Skipped, 2)
	assert.Equal(t, []string{"rg-b", "garbage"}, result.Skipped[0].Raw)
	assert.Equal(t, "sub-1", result.Skipped[0].SubscriptionID)
	assert.NotEmpty(t, result.Skipped[0].Reason)
	assert.Equal(t, []string{"short"}, result.Skipped[1].Raw)
}

func TestRowsEmptyInput(t *testing.T) {
	result := Rows("sub-1", nil, service.GroupFirst)
	assert.Empty(t, result.Records)
	assert.Empty(t, result.Skipped)
}
