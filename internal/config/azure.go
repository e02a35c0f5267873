package config

import (
	"os"

	"github.com/Veraticus/azure-flow/internal/azure"
	"github.com/Veraticus/azure-flow/internal/common"
	"github.com/spf13/viper"
)

// LoadAzureConfig loads service-principal credentials from Viper and
// environment variables. Precedence:
// 1. Viper configuration (from config file or AZFLOW_ env vars)
// 2. Direct environment variables (AZURE_*)
func LoadAzureConfig() (*azure.Config, error) {
	cfg := azure.Config{}

	if v := viper.GetString("azure.tenant_id"); v != "" {
		cfg.TenantID = v
	}
	if v := viper.GetString("azure.client_id"); v != "" {
		cfg.ClientID = v
	}
	if v := viper.GetString("azure.client_secret"); v != "" {
		cfg.ClientSecret = v
	}
	if v := viper.GetDuration("azure.timeout"); v > 0 {
		cfg.Timeout = v
	}

	if cfg.TenantID == "" {
		cfg.TenantID = os.Getenv("AZURE_TENANT_ID")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = os.Getenv("AZURE_CLIENT_ID")
	}
	if cfg.ClientSecret == "" {
		cfg.ClientSecret = os.Getenv("AZURE_CLIENT_SECRET")
	}

	if err := cfg.Validate(); err != nil {
		return nil, common.NewUserError(
			"Azure credentials are not configured; set azure.tenant_id, azure.client_id and azure.client_secret (or AZURE_* environment variables)",
			err)
	}

	return &cfg, nil
}
