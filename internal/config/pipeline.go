package config

import (
	"time"

	"github.com/Veraticus/azure-flow/internal/engine"
	"github.com/spf13/viper"
)

// LoadEngineConfig loads worker-pool and rate-gate settings, falling back to
// the engine defaults. The inter-call gate and the rate-limit cooldown are
// fixed values per run, never adaptive.
func LoadEngineConfig() engine.Config {
	cfg := engine.DefaultConfig()

	if v := viper.GetInt("pipeline.workers"); v > 0 {
		cfg.Workers = v
	}
	if v := viper.GetDuration("pipeline.call_interval"); v > 0 {
		cfg.CallInterval = v
	}
	if v := viper.GetDuration("pipeline.cooldown"); v > 0 {
		cfg.Cooldown = v
	}

	return cfg
}

// LoadCacheTTL returns the session cache TTL for subscription enumeration.
func LoadCacheTTL() time.Duration {
	if v := viper.GetDuration("pipeline.subscription_cache_ttl"); v > 0 {
		return v
	}
	return 0
}
