package azure

import (
	"context"
	"sync"

	"github.com/Veraticus/azure-flow/internal/model"
	"github.com/Veraticus/azure-flow/internal/service"
)

// MockClient is a hand-written mock of the management-plane client for
// testing pipeline behavior without network calls. Safe for concurrent use.
type MockClient struct {
	ListSubscriptionsFunc   func(ctx context.Context) ([]model.Subscription, error)
	ListRecommendationsFunc func(ctx context.Context, subscriptionID string) ([]model.Recommendation, []model.DroppedRecommendation, error)
	QueryCostsFunc          func(ctx context.Context, subscriptionID string, window model.TimeWindow, grouping string) ([]service.RawCostRow, error)
	Order                   service.RowFieldOrder

	mu                       sync.Mutex
	listSubscriptionsCalls   int
	listRecommendationsCalls []string
	queryCostsCalls          []string
}

// NewMockClient creates a mock with empty defaults.
func NewMockClient() *MockClient {
	return &MockClient{Order: service.CostFirst}
}

// ListSubscriptions implements service.SubscriptionLister.
func (m *MockClient) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	m.mu.Lock()
	m.listSubscriptionsCalls++
	m.mu.Unlock()

	if m.ListSubscriptionsFunc != nil {
		return m.ListSubscriptionsFunc(ctx)
	}
	return nil, nil
}

// ListRecommendations implements service.AdvisorClient.
func (m *MockClient) ListRecommendations(ctx context.Context, subscriptionID string) ([]model.Recommendation, []model.DroppedRecommendation, error) {
	m.mu.Lock()
	m.listRecommendationsCalls = append(m.listRecommendationsCalls, subscriptionID)
	m.mu.Unlock()

	if m.ListRecommendationsFunc != nil {
		return m.ListRecommendationsFunc(ctx, subscriptionID)
	}
	return nil, nil, nil
}

// QueryCosts implements service.CostSource.
func (m *MockClient) QueryCosts(ctx context.Context, subscriptionID string, window model.TimeWindow, grouping string) ([]service.RawCostRow, error) {
	m.mu.Lock()
	m.queryCostsCalls = append(m.queryCostsCalls, subscriptionID)
	m.mu.Unlock()

	if m.QueryCostsFunc != nil {
		return m.QueryCostsFunc(ctx, subscriptionID, window, grouping)
	}
	return nil, nil
}

// FieldOrder implements service.CostSource.
func (m *MockClient) FieldOrder() service.RowFieldOrder {
	return m.Order
}

// ListSubscriptionsCalls returns how many times enumeration ran.
func (m *MockClient) ListSubscriptionsCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listSubscriptionsCalls
}

// RecommendationCalls returns the subscription ids recommendation fetches
// were issued for, in call order.
func (m *MockClient) RecommendationCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.listRecommendationsCalls...)
}

// CostCalls returns the subscription ids cost queries were issued for, in
// call order.
func (m *MockClient) CostCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queryCostsCalls...)
}

// Interface assertions.
var (
	_ service.SubscriptionLister = (*MockClient)(nil)
	_ service.AdvisorClient      = (*MockClient)(nil)
	_ service.CostSource         = (*MockClient)(nil)
)
