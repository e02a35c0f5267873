// Package azure provides the authenticated session factory and REST clients
// for the Azure management plane: subscription listing, Advisor
// recommendations, and Cost Management queries.
package azure

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// DefaultBaseURL is the Azure Resource Manager endpoint.
const DefaultBaseURL = "https://management.azure.com"

const defaultScope = "https://management.azure.com/.default"

// Config holds service-principal credentials and endpoint settings.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	// BaseURL overrides the management endpoint; used in tests.
	BaseURL string
	Timeout time.Duration
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.TenantID == "" {
		return fmt.Errorf("azure tenant ID is required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("azure client ID is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("azure client secret is required")
	}
	return nil
}

// Session is an authenticated connection to the management plane. It wraps a
// client-credentials token source behind an http.Client that attaches and
// refreshes bearer tokens transparently. A Session is read-only after
// construction and safe to share across concurrent fetch workers.
type Session struct {
	httpClient *http.Client
	baseURL    string
}

// NewSession builds a Session from service-principal credentials. The token
// is acquired lazily on first use, so an invalid secret surfaces on the first
// API call rather than here.
func NewSession(ctx context.Context, cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID),
		Scopes:       []string{defaultScope},
	}

	httpClient := cc.Client(ctx)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient.Timeout = timeout

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Session{
		httpClient: httpClient,
		baseURL:    baseURL,
	}, nil
}

// NewSessionWithClient builds a Session around a pre-authenticated
// http.Client. Used by tests to point at an httptest server without a real
// token exchange.
func NewSessionWithClient(httpClient *http.Client, baseURL string) *Session {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Session{
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}
