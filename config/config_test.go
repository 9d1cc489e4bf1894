package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPC.ListenAddress != DefaultRPCAddress {
		t.Fatalf("unexpected listen address %q", cfg.RPC.ListenAddress)
	}
	if cfg.Webhook.TimeoutSeconds != DefaultWebhookTimeout {
		t.Fatalf("unexpected webhook timeout %d", cfg.Webhook.TimeoutSeconds)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}

	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Collection.Address != cfg.Collection.Address {
		t.Fatalf("collection address changed on reload")
	}
}

func TestLoadParsesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `Environment = "staging"
DataDir = "/var/lib/certchain"
GenesisFile = "genesis.yaml"

[collection]
Address = "0x000000000000000000000000000000000000c011"
Name = "Hometown"
Symbol = "HOME"
RefreshExpirationOnTransfer = true

[sale]
Address = "0x0000000000000000000000000000000000005a1e"

[rpc]
ListenAddress = "0.0.0.0:9000"
JWTSecretEnv = "TEST_SECRET"
RateLimitPerSecond = 5.5
RateLimitBurst = 10

[eventlog]
Driver = "Postgres"
DSN = "postgres://certchain@localhost/events"

[webhook]
URL = "https://hooks.example/certchain"
SecretEnv = "TEST_HOOK_SECRET"
TimeoutSeconds = 4

[logging]
Level = "debug"
File = "/var/log/certchain.log"
MaxSizeMB = 50

[telemetry]
Endpoint = "otel:4318"
Traces = true
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Environment != "staging" || cfg.GenesisFile != "genesis.yaml" {
		t.Fatalf("unexpected top level: %+v", cfg)
	}
	if !cfg.Collection.RefreshExpirationOnTransfer || cfg.Collection.Symbol != "HOME" {
		t.Fatalf("unexpected collection: %+v", cfg.Collection)
	}
	if cfg.RPC.RateLimitPerSecond != 5.5 || cfg.RPC.RateLimitBurst != 10 {
		t.Fatalf("unexpected rpc: %+v", cfg.RPC)
	}
	if cfg.RPC.MaxBodyBytes != DefaultMaxBodyBytes {
		t.Fatalf("expected default body limit, got %d", cfg.RPC.MaxBodyBytes)
	}
	if cfg.EventLog.Driver != "postgres" {
		t.Fatalf("driver not normalised: %q", cfg.EventLog.Driver)
	}
	if cfg.Webhook.TimeoutSeconds != 4 || cfg.Webhook.SecretEnv != "TEST_HOOK_SECRET" {
		t.Fatalf("unexpected webhook: %+v", cfg.Webhook)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.MaxSizeMB != 50 {
		t.Fatalf("unexpected logging: %+v", cfg.Logging)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("ListenAddr = \"127.0.0.1:1\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "ListenAddr") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"collection", func(c *Config) { c.Collection.Address = "nope" }, "collection.Address"},
		{"sale equals collection", func(c *Config) { c.Sale.Address = c.Collection.Address }, "sale.Address"},
		{"listen", func(c *Config) { c.RPC.ListenAddress = "" }, "ListenAddress"},
		{"burst", func(c *Config) { c.RPC.RateLimitBurst = 0 }, "RateLimitBurst"},
		{"driver", func(c *Config) { c.EventLog.Driver = "mongo" }, "not supported"},
		{"dsn", func(c *Config) { c.EventLog.DSN = "" }, "DSN"},
		{"telemetry", func(c *Config) { c.Telemetry.Metrics = true }, "telemetry.Endpoint"},
		{"webhook secret", func(c *Config) { c.Webhook.URL = "https://hooks.example" }, "webhook.SecretEnv"},
		{"webhook timeout", func(c *Config) { c.Webhook.TimeoutSeconds = -1 }, "webhook.TimeoutSeconds"},
		{"data dir", func(c *Config) { c.DataDir = " " }, "DataDir"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := Validate(cfg)
			if tc.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestJWTSecret(t *testing.T) {
	cfg := Default()
	cfg.RPC.JWTSecretEnv = "CERTCHAIN_TEST_SECRET"
	t.Setenv("CERTCHAIN_TEST_SECRET", "")
	if _, err := cfg.JWTSecret(); err == nil {
		t.Fatalf("expected empty secret error")
	}
	t.Setenv("CERTCHAIN_TEST_SECRET", " s3cret ")
	secret, err := cfg.JWTSecret()
	if err != nil || string(secret) != "s3cret" {
		t.Fatalf("unexpected secret %q err %v", secret, err)
	}
}
