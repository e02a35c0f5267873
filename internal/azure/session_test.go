package azure

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	valid := Config{TenantID: "tenant", ClientID: "client", ClientSecret: "secret"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing tenant", mutate: func(c *Config) { c.TenantID = "" }},
		{name: "missing client id", mutate: func(c *Config) { c.ClientID = "" }},
		{name: "missing secret", mutate: func(c *Config) { c.ClientSecret = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestNewSessionRejectsInvalidConfig(t *testing.T) {
	_, err := NewSession(context.Background(), Config{})
	require.Error(t, err)
}

func TestNewSessionDefaults(t *testing.T) {
	session, err := NewSession(context.Background(), Config{
		TenantID:     "tenant",
		ClientID:     "client",
		ClientSecret: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, session.baseURL)
	assert.NotNil(t, session.httpClient)
}

func TestNewSessionWithClientDefaultsBaseURL(t *testing.T) {
	session := NewSessionWithClient(http.DefaultClient, "")
	assert.Equal(t, DefaultBaseURL, session.baseURL)
}
