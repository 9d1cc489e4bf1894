package config

import (
	"fmt"
	"strings"

	"certchain/crypto"
)

// Validate checks the semantic constraints toml decoding cannot express.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config must not be nil")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("DataDir must be set")
	}
	collection, err := crypto.ParseAddress(cfg.Collection.Address)
	if err != nil {
		return fmt.Errorf("collection.Address: %w", err)
	}
	if strings.TrimSpace(cfg.Sale.Address) != "" {
		saleAddr, err := crypto.ParseAddress(cfg.Sale.Address)
		if err != nil {
			return fmt.Errorf("sale.Address: %w", err)
		}
		if saleAddr == collection {
			return fmt.Errorf("sale.Address must differ from collection.Address")
		}
	}
	if strings.TrimSpace(cfg.RPC.ListenAddress) == "" {
		return fmt.Errorf("rpc.ListenAddress must be set")
	}
	if cfg.RPC.RateLimitPerSecond < 0 || cfg.RPC.RateLimitBurst < 0 {
		return fmt.Errorf("rpc rate limits must not be negative")
	}
	if cfg.RPC.RateLimitPerSecond > 0 && cfg.RPC.RateLimitBurst == 0 {
		return fmt.Errorf("rpc.RateLimitBurst must be positive when RateLimitPerSecond is set")
	}
	switch cfg.EventLog.Driver {
	case "", "memory":
	case "sqlite", "postgres":
		if strings.TrimSpace(cfg.EventLog.DSN) == "" {
			return fmt.Errorf("eventlog.DSN required for driver %q", cfg.EventLog.Driver)
		}
	default:
		return fmt.Errorf("eventlog.Driver %q not supported", cfg.EventLog.Driver)
	}
	if strings.TrimSpace(cfg.Webhook.URL) != "" && strings.TrimSpace(cfg.Webhook.SecretEnv) == "" {
		return fmt.Errorf("webhook.SecretEnv required when webhook.URL is set")
	}
	if cfg.Webhook.TimeoutSeconds < 0 {
		return fmt.Errorf("webhook.TimeoutSeconds must not be negative")
	}
	if cfg.Telemetry.Traces || cfg.Telemetry.Metrics {
		if strings.TrimSpace(cfg.Telemetry.Endpoint) == "" {
			return fmt.Errorf("telemetry.Endpoint required when exporters are enabled")
		}
	}
	return nil
}
