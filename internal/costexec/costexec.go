// Package costexec provides an alternate cost source that shells out to an
// external exporter instead of querying the Cost Management API. The command
// receives the subscription id as its final argument and prints a JSON array
// of {Resource, Cost} objects on stdout; its output is mapped onto the same
// raw-row contract as the primary source.
package costexec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/Veraticus/azure-flow/internal/model"
	"github.com/Veraticus/azure-flow/internal/service"
)

// Source runs an external command per subscription to obtain cost rows.
type Source struct {
	logger  *slog.Logger
	command string
	args    []string
}

// NewSource creates a command-backed cost source. The subscription id is
// appended to args on each invocation.
func NewSource(command string, args ...string) (*Source, error) {
	if command == "" {
		return nil, fmt.Errorf("cost command is required")
	}
	return &Source{
		command: command,
		args:    args,
		logger:  slog.Default().With("component", "costexec"),
	}, nil
}

// exportRow is one entry of the exporter's JSON output.
type exportRow struct {
	Resource string          `json:"Resource"`
	Cost     json.RawMessage `json:"Cost"`
}

// QueryCosts implements service.CostSource. The window and grouping are
// accepted for contract parity but the exporter owns its own query shape.
func (s *Source) QueryCosts(ctx context.Context, subscriptionID string, _ model.TimeWindow, _ string) ([]service.RawCostRow, error) {
	args := append(append([]string(nil), s.args...), subscriptionID)

	s.logger.Info("Running cost exporter", "command", s.command, "subscription_id", subscriptionID)

	cmd := exec.CommandContext(ctx, s.command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("cost exporter failed: %w: %s", err, stderr.String())
	}

	var entries []exportRow
	if err := json.Unmarshal(stdout.Bytes(), &entries); err != nil {
		return nil, fmt.Errorf("failed to decode exporter output: %w", err)
	}

	rows := make([]service.RawCostRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, service.RawCostRow{e.Resource, trimQuotes(string(e.Cost))})
	}

	s.logger.Info("Exporter returned rows", "count", len(rows), "subscription_id", subscriptionID)
	return rows, nil
}

// FieldOrder implements service.CostSource: exporter rows are [group, cost].
func (s *Source) FieldOrder() service.RowFieldOrder {
	return service.GroupFirst
}

// trimQuotes strips surrounding quotes when the exporter emits the cost as a
// JSON string rather than a number.
func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

var _ service.CostSource = (*Source)(nil)
