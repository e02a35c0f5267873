package main

import (
	"context"
	"fmt"

	"github.com/Veraticus/azure-flow/internal/azure"
	"github.com/Veraticus/azure-flow/internal/config"
	"github.com/Veraticus/azure-flow/internal/sessioncache"
)

// newAzureClient builds an authenticated management-plane client from
// configuration.
func newAzureClient(ctx context.Context) (*azure.Client, error) {
	azureCfg, err := config.LoadAzureConfig()
	if err != nil {
		return nil, err
	}

	session, err := azure.NewSession(ctx, *azureCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return azure.NewClient(session), nil
}

// newCachedLister wraps the client's enumerator with the session cache.
func newCachedLister(client *azure.Client) *sessioncache.Lister {
	return sessioncache.New(client, config.LoadCacheTTL())
}
