package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/Veraticus/azure-flow/internal/common"
	"github.com/Veraticus/azure-flow/internal/model"
	"github.com/Veraticus/azure-flow/internal/service"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Tab titles for the two-sheet report layout.
const (
	detailsTab = "Details"
	totalsTab  = "Subscription Totals"
)

// Writer exports a report to a two-tab Google Sheets spreadsheet: detail
// rows on one tab, per-subscription totals on the other.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a new Google Sheets report writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	svc, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		config:  config,
		service: svc,
		logger:  logger,
	}, nil
}

// Write implements the ReportSink interface.
func (w *Writer) Write(ctx context.Context, report *model.Report) error {
	w.logger.Info("starting spreadsheet export",
		"joined_rows", len(report.Joined),
		"window", report.Window.String())

	spreadsheetID, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	if err := w.ensureTabs(ctx, spreadsheetID); err != nil {
		return fmt.Errorf("failed to prepare tabs: %w", err)
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	details := w.prepareDetailRows(report)
	totals := w.prepareTotalRows(report)

	for _, tab := range []struct {
		title  string
		values [][]any
	}{
		{detailsTab, details},
		{totalsTab, totals},
	} {
		if clearErr := w.clearTab(ctx, spreadsheetID, tab.title); clearErr != nil {
			return fmt.Errorf("failed to clear tab %s: %w", tab.title, clearErr)
		}

		writeErr := common.WithRetry(ctx, func() error {
			return w.writeData(ctx, spreadsheetID, tab.title, tab.values)
		}, retryOpts)
		if writeErr != nil {
			return fmt.Errorf("failed to write tab %s: %w", tab.title, writeErr)
		}
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return w.applyFormatting(ctx, spreadsheetID)
		}, retryOpts)
		if err != nil {
			w.logger.Warn("failed to apply formatting", "error", err)
			// Formatting failures never fail the export.
		}
	}

	w.logger.Info("spreadsheet export completed",
		"spreadsheet_id", spreadsheetID,
		"detail_rows", len(details),
		"total_rows", len(totals))

	return nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		oauthConfig := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}

		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}

		tokenSource = oauthConfig.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// getOrCreateSpreadsheet gets an existing spreadsheet or creates a new one.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, error) {
	if w.config.SpreadsheetID != "" {
		_, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		return w.config.SpreadsheetID, nil
	}

	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{Title: detailsTab}},
			{Properties: &sheets.SheetProperties{Title: totalsTab}},
		},
	}

	created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	return created.SpreadsheetId, nil
}

// ensureTabs adds any missing report tabs to an existing spreadsheet.
func (w *Writer) ensureTabs(ctx context.Context, spreadsheetID string) error {
	spreadsheet, err := w.service.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return err
	}

	existing := make(map[string]bool, len(spreadsheet.Sheets))
	for _, sheet := range spreadsheet.Sheets {
		existing[sheet.Properties.Title] = true
	}

	var requests []*sheets.Request
	for _, title := range []string{detailsTab, totalsTab} {
		if !existing[title] {
			requests = append(requests, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: title},
				},
			})
		}
	}

	if len(requests) == 0 {
		return nil
	}

	_, err = w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return err
}

// clearTab clears all data from one tab.
func (w *Writer) clearTab(ctx context.Context, spreadsheetID, title string) error {
	rangeStr := fmt.Sprintf("%s!A:Z", title)
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, rangeStr, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// prepareDetailRows builds the Details tab: one row per joined record.
func (w *Writer) prepareDetailRows(report *model.Report) [][]any {
	values := make([][]any, 0, len(report.Joined)+4)

	values = append(values,
		[]any{"Azure Advisor Report", report.Window.String()},
		[]any{}, // Empty row
		[]any{
			"Subscription",
			"Category",
			"Problem",
			"Solution",
			"Impact",
			"Group",
			"Cost",
			"Potential Saving (estimate)",
		})

	for _, row := range report.Joined {
		rec := row.Recommendation
		values = append(values, []any{
			rec.SubscriptionID,
			rec.Category,
			rec.Problem,
			rec.Solution,
			rec.Impact,
			row.GroupKey,
			decimalCell(row.Cost),
			decimalCell(row.PotentialSaving),
		})
	}

	return values
}

// prepareTotalRows builds the Subscription Totals tab: one row per
// subscription, sorted by total cost descending.
func (w *Writer) prepareTotalRows(report *model.Report) [][]any {
	type subTotal struct {
		id              string
		cost            decimal.Decimal
		saving          decimal.Decimal
		recommendations int
	}

	totals := make(map[string]*subTotal)
	for _, c := range report.Costs {
		t, ok := totals[c.SubscriptionID]
		if !ok {
			t = &subTotal{id: c.SubscriptionID}
			totals[c.SubscriptionID] = t
		}
		t.cost = t.cost.Add(c.Amount)
	}
	for _, row := range report.Joined {
		id := row.Recommendation.SubscriptionID
		t, ok := totals[id]
		if !ok {
			t = &subTotal{id: id}
			totals[id] = t
		}
		t.recommendations++
		if row.PotentialSaving != nil {
			t.saving = t.saving.Add(*row.PotentialSaving)
		}
	}

	ordered := make([]*subTotal, 0, len(totals))
	for _, t := range totals {
		ordered = append(ordered, t)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].cost.Equal(ordered[j].cost) {
			return ordered[i].cost.GreaterThan(ordered[j].cost)
		}
		return ordered[i].id < ordered[j].id
	})

	values := make([][]any, 0, len(ordered)+4)
	values = append(values,
		[]any{"Subscription Totals", report.Window.String()},
		[]any{}, // Empty row
		[]any{"Subscription", "Recommendations", "Total Cost", "Potential Saving (estimate)"})

	for _, t := range ordered {
		values = append(values, []any{
			t.id,
			t.recommendations,
			t.cost.InexactFloat64(),
			t.saving.InexactFloat64(),
		})
	}

	values = append(values, []any{
		"All subscriptions",
		len(report.Joined),
		report.TotalCost().InexactFloat64(),
		report.TotalPotentialSaving().InexactFloat64(),
	})

	return values
}

// writeData writes values to one tab in batches to avoid API limits.
func (w *Writer) writeData(ctx context.Context, spreadsheetID, title string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := i + w.config.BatchSize
		if end > len(values) {
			end = len(values)
		}

		batch := values[i:end]
		valueRange := &sheets.ValueRange{Values: batch}

		rangeStr := fmt.Sprintf("%s!A%d", title, i+1)
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, valueRange).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "tab", title, "start_row", i+1, "rows", len(batch))
	}

	return nil
}

// applyFormatting bolds the header rows and freezes them on both tabs.
func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string) error {
	spreadsheet, err := w.service.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return err
	}

	var requests []*sheets.Request
	for _, sheet := range spreadsheet.Sheets {
		title := sheet.Properties.Title
		if title != detailsTab && title != totalsTab {
			continue
		}
		sheetID := sheet.Properties.SheetId

		requests = append(requests,
			&sheets.Request{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{
						SheetId:       sheetID,
						StartRowIndex: 0,
						EndRowIndex:   3,
					},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							TextFormat: &sheets.TextFormat{Bold: true},
						},
					},
					Fields: "userEnteredFormat.textFormat",
				},
			},
			&sheets.Request{
				UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
					Properties: &sheets.SheetProperties{
						SheetId: sheetID,
						GridProperties: &sheets.GridProperties{
							FrozenRowCount: 3,
						},
					},
					Fields: "gridProperties.frozenRowCount",
				},
			},
			&sheets.Request{
				AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
					Dimensions: &sheets.DimensionRange{
						SheetId:    sheetID,
						Dimension:  "COLUMNS",
						StartIndex: 0,
						EndIndex:   8,
					},
				},
			},
		)
	}

	_, err = w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return err
}

// decimalCell renders an optional decimal; absent values stay empty rather
// than showing as zero.
func decimalCell(d *decimal.Decimal) any {
	if d == nil {
		return ""
	}
	return d.InexactFloat64()
}

var _ service.ReportSink = (*Writer)(nil)
