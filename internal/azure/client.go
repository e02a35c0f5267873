package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/Veraticus/azure-flow/internal/common"
	"github.com/Veraticus/azure-flow/internal/model"
	"github.com/Veraticus/azure-flow/internal/service"
)

// API versions for the three management-plane calls.
const (
	subscriptionsAPIVersion = "2022-12-01"
	advisorAPIVersion       = "2023-01-01"
	costAPIVersion          = "2023-03-01"
)

// Client implements SubscriptionLister, AdvisorClient, and CostSource against
// the Azure management plane.
type Client struct {
	session   *Session
	logger    *slog.Logger
	retryOpts *service.RetryOptions
}

// NewClient creates a management-plane client on top of an authenticated
// session.
func NewClient(session *Session) *Client {
	return &Client{
		session: session,
		logger:  slog.Default().With("component", "azure"),
		retryOpts: &service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// ListSubscriptions enumerates every subscription reachable by the session's
// credential, ordered by display name for stable downstream iteration.
func (c *Client) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	c.logger.Info("Listing subscriptions")

	var subs []model.Subscription
	url := fmt.Sprintf("%s/subscriptions?api-version=%s", c.session.baseURL, subscriptionsAPIVersion)

	for url != "" {
		var page subscriptionListResponse

		retryErr := common.WithRetry(ctx, func() error {
			return c.getJSON(ctx, url, &page)
		}, *c.retryOpts)
		if retryErr != nil {
			return nil, fmt.Errorf("failed to list subscriptions: %w", retryErr)
		}

		for _, s := range page.Value {
			subs = append(subs, model.Subscription{
				ID:          s.SubscriptionID,
				DisplayName: s.DisplayName,
			})
		}
		url = page.NextLink
	}

	if len(subs) == 0 {
		return nil, common.ErrNoSubscriptions
	}

	sort.Slice(subs, func(i, j int) bool {
		if subs[i].DisplayName != subs[j].DisplayName {
			return subs[i].DisplayName < subs[j].DisplayName
		}
		return subs[i].ID < subs[j].ID
	})

	c.logger.Info("Listed subscriptions", "count", len(subs))
	return subs, nil
}

// ListRecommendations fetches all Advisor recommendations for one
// subscription, following pagination. Each raw entry passes through the
// schema-variant decode; entries with no category cannot become
// Recommendations and are returned as dropped-entry diagnostics instead of
// vanishing into a log line.
func (c *Client) ListRecommendations(ctx context.Context, subscriptionID string) ([]model.Recommendation, []model.DroppedRecommendation, error) {
	if ctx == nil {
		return nil, nil, fmt.Errorf("context cannot be nil")
	}

	logger := c.logger.With("subscription_id", subscriptionID)
	logger.Info("Fetching Advisor recommendations")

	recs := make([]model.Recommendation, 0)
	var dropped []model.DroppedRecommendation
	url := fmt.Sprintf("%s/subscriptions/%s/providers/Microsoft.Advisor/recommendations?api-version=%s",
		c.session.baseURL, subscriptionID, advisorAPIVersion)

	for url != "" {
		var page recommendationListResponse

		retryErr := common.WithRetry(ctx, func() error {
			return c.getJSON(ctx, url, &page)
		}, *c.retryOpts)
		if retryErr != nil {
			return nil, nil, fmt.Errorf("failed to list recommendations: %w", retryErr)
		}

		for _, raw := range page.Value {
			rec, err := decodeRecommendation(subscriptionID, raw)
			if err != nil {
				logger.Warn("Dropping undecodable recommendation", "error", err)
				dropped = append(dropped, model.DroppedRecommendation{
					SubscriptionID: subscriptionID,
					Reason:         err.Error(),
				})
				continue
			}
			recs = append(recs, rec)
		}
		url = page.NextLink
	}

	logger.Info("Fetched recommendations", "count", len(recs), "dropped", len(dropped))
	return recs, dropped, nil
}

// QueryCosts runs an ActualCost query for one subscription over the window,
// grouped by the given dimension with no granularity, and returns the raw
// two-field rows. Decoding into CostRecords is the normalizer's job.
func (c *Client) QueryCosts(ctx context.Context, subscriptionID string, window model.TimeWindow, grouping string) ([]service.RawCostRow, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}

	logger := c.logger.With("subscription_id", subscriptionID)
	logger.Info("Querying costs", "window", window.String(), "grouping", grouping)

	reqBody := costQueryRequest{
		Type:      "ActualCost",
		Timeframe: "Custom",
		TimePeriod: &costTimePeriod{
			From: window.FromString(),
			To:   window.ToString(),
		},
		Dataset: costDataset{
			Granularity: "None",
			Aggregation: map[string]costAggregation{
				"totalCost": {Name: "PreTaxCost", Function: "Sum"},
			},
			Grouping: []costGrouping{
				{Type: "Dimension", Name: grouping},
			},
		},
	}

	url := fmt.Sprintf("%s/subscriptions/%s/providers/Microsoft.CostManagement/query?api-version=%s",
		c.session.baseURL, subscriptionID, costAPIVersion)

	var resp costQueryResponse
	retryErr := common.WithRetry(ctx, func() error {
		return c.postJSON(ctx, url, reqBody, &resp)
	}, *c.retryOpts)
	if retryErr != nil {
		return nil, fmt.Errorf("failed to query costs: %w", retryErr)
	}

	rows := make([]service.RawCostRow, 0, len(resp.Properties.Rows))
	for _, row := range resp.Properties.Rows {
		raw := make(service.RawCostRow, 0, 2)
		// Only the first two cells carry data; a trailing currency column
		// may be present depending on API version.
		for i, cell := range row {
			if i >= 2 {
				break
			}
			raw = append(raw, stringifyCell(cell))
		}
		rows = append(rows, raw)
	}

	logger.Info("Fetched cost rows", "count", len(rows))
	return rows, nil
}

// FieldOrder reports the row layout of the Cost Management query response:
// the aggregated cost column precedes the grouping column.
func (c *Client) FieldOrder() service.RowFieldOrder {
	return service.CostFirst
}

// getJSON performs an authenticated GET and decodes the response body.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.do(req, out)
}

// postJSON performs an authenticated POST with a JSON body and decodes the
// response.
func (c *Client) postJSON(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.session.httpClient.Do(req)
	if err != nil {
		return &common.RetryableError{Err: fmt.Errorf("request failed: %w", err), Retryable: true}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return classifyStatus(resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// classifyStatus maps an HTTP error status onto the application error
// taxonomy. 401/403 are terminal credential failures; 429 and 5xx are
// retryable provider conditions.
func classifyStatus(status int, body string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %d %s", common.ErrAuth, status, body)
	case status == http.StatusTooManyRequests:
		return &common.RetryableError{
			Err:       fmt.Errorf("%w: %d %s", common.ErrRateLimit, status, body),
			Retryable: true,
		}
	case status >= 500:
		return &common.RetryableError{
			Err:       fmt.Errorf("%w: %d %s", common.ErrUpstreamUnavailable, status, body),
			Retryable: true,
		}
	default:
		return fmt.Errorf("unexpected status %d: %s", status, body)
	}
}

// stringifyCell converts a JSON cell to its raw string form. Numbers keep
// full precision so the normalizer decides how to parse them.
func stringifyCell(cell any) string {
	switch v := cell.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Interface assertions.
var (
	_ service.SubscriptionLister = (*Client)(nil)
	_ service.AdvisorClient      = (*Client)(nil)
	_ service.CostSource         = (*Client)(nil)
)
