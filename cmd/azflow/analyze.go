package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/azure-flow/internal/cli"
	"github.com/Veraticus/azure-flow/internal/config"
	"github.com/Veraticus/azure-flow/internal/costexec"
	"github.com/Veraticus/azure-flow/internal/engine"
	"github.com/Veraticus/azure-flow/internal/model"
	"github.com/Veraticus/azure-flow/internal/report"
	"github.com/Veraticus/azure-flow/internal/service"
	"github.com/Veraticus/azure-flow/internal/sheets"
	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Aggregate recommendations and costs into one report",
		Long: `Fetches Advisor recommendations and cost records for the selected
subscriptions concurrently, reconciles them on the configured join key, and
renders the unified report.

Potential savings are heuristic estimates (cost x a fixed factor), not
provider-verified figures.`,
		RunE: runAnalyze,
	}

	cmd.Flags().IntP("days", "d", 30, "Analyze the last N days (ignored when --from/--to are set)")
	cmd.Flags().String("from", "", "Window start (YYYY-MM-DD or RFC3339)")
	cmd.Flags().String("to", "", "Window end (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringSliceP("subscription", "s", nil, "Subscription ids to analyze (default: all reachable)")
	cmd.Flags().String("join-key", "resource_group", "Join key: resource_group or resource_id")
	cmd.Flags().Float64("savings-factor", 0.30, "Fixed ratio used to estimate potential savings")
	cmd.Flags().String("format", "table", "Output format (table, json, csv)")
	cmd.Flags().String("pdf", "", "Also write a PDF report to this path")
	cmd.Flags().Bool("sheets", false, "Also export to Google Sheets")
	cmd.Flags().String("cost-command", "", "Use an external cost exporter instead of the Cost Management API")

	_ = viper.BindPFlag("analyze.days", cmd.Flags().Lookup("days"))
	_ = viper.BindPFlag("analyze.join_key", cmd.Flags().Lookup("join-key"))
	_ = viper.BindPFlag("analyze.savings_factor", cmd.Flags().Lookup("savings-factor"))
	_ = viper.BindPFlag("analyze.cost_command", cmd.Flags().Lookup("cost-command"))

	return cmd
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	window, err := parseWindow(cmd)
	if err != nil {
		return err
	}

	joinKey, err := model.ParseJoinKey(viper.GetString("analyze.join_key"))
	if err != nil {
		return err
	}

	factor := decimal.NewFromFloat(viper.GetFloat64("analyze.savings_factor"))

	subscriptionIDs, _ := cmd.Flags().GetStringSlice("subscription")
	format, _ := cmd.Flags().GetString("format")
	pdfPath, _ := cmd.Flags().GetString("pdf")
	exportSheets, _ := cmd.Flags().GetBool("sheets")

	client, err := newAzureClient(ctx)
	if err != nil {
		return err
	}

	costSource, err := selectCostSource(client)
	if err != nil {
		return err
	}

	eng := engine.NewWithConfig(client, costSource, config.LoadEngineConfig())
	pipeline := engine.NewPipeline(newCachedLister(client), eng)

	fmt.Fprintln(os.Stderr, cli.FormatTitle("Analyzing Azure subscriptions..."))

	var bar *progressbar.ProgressBar
	progress := func(completed, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("Fetching subscriptions..."))
		}
		_ = bar.Set(completed)
	}

	rep, err := pipeline.Run(ctx, engine.RunOptions{
		SubscriptionIDs: subscriptionIDs,
		Window:          window,
		JoinKey:         joinKey,
		SavingsFactor:   factor,
		OnProgress:      progress,
	})
	if err != nil {
		return err
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}

	if err := renderReport(rep, format); err != nil {
		return err
	}

	var sinks []service.ReportSink
	if pdfPath != "" {
		writer, pdfErr := report.NewPDFWriter(config.ExpandPath(pdfPath), slog.Default().With("component", "pdf"))
		if pdfErr != nil {
			return pdfErr
		}
		sinks = append(sinks, writer)
	}
	if exportSheets {
		sheetsCfg, sheetsErr := config.LoadSheetsConfig()
		if sheetsErr != nil {
			return sheetsErr
		}
		writer, sheetsErr := sheets.NewWriter(ctx, *sheetsCfg, slog.Default().With("component", "sheets"))
		if sheetsErr != nil {
			return sheetsErr
		}
		sinks = append(sinks, writer)
	}

	if err := writeSinks(ctx, sinks, rep); err != nil {
		return err
	}
	if len(sinks) > 0 {
		fmt.Fprintln(os.Stderr, cli.FormatSuccess(fmt.Sprintf("Exported report to %d sink(s)", len(sinks))))
	}

	return nil
}

// writeSinks sends the finished report to every configured export sink,
// stopping at the first failure.
func writeSinks(ctx context.Context, sinks []service.ReportSink, rep *model.Report) error {
	for _, sink := range sinks {
		if err := sink.Write(ctx, rep); err != nil {
			return fmt.Errorf("report export failed: %w", err)
		}
	}
	return nil
}

// parseWindow builds the analysis window from flags. --from/--to take
// precedence over --days.
func parseWindow(cmd *cobra.Command) (model.TimeWindow, error) {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")

	if from == "" && to == "" {
		return model.LastDays(time.Now(), viper.GetInt("analyze.days")), nil
	}
	if from == "" || to == "" {
		return model.TimeWindow{}, fmt.Errorf("--from and --to must be used together")
	}

	start, err := parseTimestamp(from)
	if err != nil {
		return model.TimeWindow{}, fmt.Errorf("invalid --from: %w", err)
	}
	end, err := parseTimestamp(to)
	if err != nil {
		return model.TimeWindow{}, fmt.Errorf("invalid --to: %w", err)
	}

	window := model.NewTimeWindow(start, end)
	return window, window.Validate()
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// selectCostSource picks the primary Cost Management API source or the
// external exporter when one is configured. Both honor the same contract.
func selectCostSource(client service.CostSource) (service.CostSource, error) {
	command := viper.GetString("analyze.cost_command")
	if command == "" {
		return client, nil
	}

	parts := strings.Fields(command)
	return costexec.NewSource(parts[0], parts[1:]...)
}

// renderReport writes the report to stdout in the chosen format.
func renderReport(rep *model.Report, format string) error {
	switch format {
	case "json":
		return report.WriteJSON(os.Stdout, rep)
	case "csv":
		return report.WriteCSV(os.Stdout, rep)
	case "table":
		renderTable(rep)
		return nil
	default:
		return fmt.Errorf("invalid format %q: must be table, json or csv", format)
	}
}

func renderTable(rep *model.Report) {
	summary := fmt.Sprintf(`Recommendations: %d
Cost rows: %d
Total cost: %s
Potential saving (estimate): %s`,
		len(rep.Recommendations),
		len(rep.Costs),
		rep.TotalCost().StringFixed(2),
		rep.TotalPotentialSaving().StringFixed(2))

	fmt.Println(cli.RenderBox(fmt.Sprintf("%s Report", rep.Window.String()), summary))

	if len(rep.Joined) > 0 {
		headers := []string{"Subscription", "Category", "Impact", "Group", "Cost", "Saving (est.)"}
		widths := []int{24, 16, 8, 28, 12, 12}

		rows := make([][]string, 0, len(rep.Joined))
		for _, row := range rep.Joined {
			cost := "-"
			if row.Cost != nil {
				cost = row.Cost.StringFixed(2)
			}
			saving := "-"
			if row.PotentialSaving != nil {
				saving = row.PotentialSaving.StringFixed(2)
			}
			rows = append(rows, []string{
				row.Recommendation.SubscriptionID,
				row.Recommendation.Category,
				row.Recommendation.Impact,
				row.GroupKey,
				cost,
				saving,
			})
		}

		fmt.Println(cli.RenderTable(headers, rows, widths))
	}

	for _, fe := range rep.Diagnostics.FetchErrors {
		fmt.Println(cli.FormatWarning(fe.Error()))
	}
	if n := len(rep.Diagnostics.SkippedRows); n > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("%d cost rows could not be parsed and were excluded; run with --format json for details", n)))
	}
	if n := len(rep.Diagnostics.DroppedRecommendations); n > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("%d recommendations could not be decoded and were excluded; run with --format json for details", n)))
	}
}
