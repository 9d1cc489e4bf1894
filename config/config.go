package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultRPCAddress     = "127.0.0.1:8545"
	DefaultDataDir        = "./certchain-data"
	DefaultRateLimit      = 20
	DefaultRateLimitBurst = 40
	DefaultMaxBodyBytes   = 1 << 20
	DefaultWebhookTimeout = 15
)

type Config struct {
	Environment string     `toml:"Environment"`
	DataDir     string     `toml:"DataDir"`
	GenesisFile string     `toml:"GenesisFile"`
	Collection  Collection `toml:"collection"`
	Sale        Sale       `toml:"sale"`
	RPC         RPC        `toml:"rpc"`
	EventLog    EventLog   `toml:"eventlog"`
	Webhook     Webhook    `toml:"webhook"`
	Logging     Logging    `toml:"logging"`
	Telemetry   Telemetry  `toml:"telemetry"`
}

// Default returns the configuration written for a fresh node.
func Default() *Config {
	return &Config{
		Environment: "local",
		DataDir:     DefaultDataDir,
		Collection: Collection{
			Address: "0x000000000000000000000000000000000000c011",
			Name:    "Certificate",
			Symbol:  "CERT",
		},
		RPC: RPC{
			ListenAddress:       DefaultRPCAddress,
			JWTSecretEnv:        "CERTCHAIN_JWT_SECRET",
			JWTIssuer:           "certchain",
			RateLimitPerSecond:  DefaultRateLimit,
			RateLimitBurst:      DefaultRateLimitBurst,
			ReadTimeoutSeconds:  10,
			WriteTimeoutSeconds: 10,
			MaxBodyBytes:        DefaultMaxBodyBytes,
		},
		EventLog: EventLog{
			Driver: "sqlite",
			DSN:    "file:" + filepath.Join(DefaultDataDir, "events.db"),
		},
		Webhook: Webhook{TimeoutSeconds: DefaultWebhookTimeout},
		Logging: Logging{Level: "info"},
	}
}

// Load loads the configuration from path, writing the defaults there when
// the file does not exist yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.normalize()
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Environment = strings.TrimSpace(c.Environment)
	c.EventLog.Driver = strings.ToLower(strings.TrimSpace(c.EventLog.Driver))
	if c.RPC.MaxBodyBytes <= 0 {
		c.RPC.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Webhook.TimeoutSeconds == 0 {
		c.Webhook.TimeoutSeconds = DefaultWebhookTimeout
	}
}

// JWTSecret reads the caller-token secret from the configured environment
// variable.
func (c *Config) JWTSecret() ([]byte, error) {
	name := strings.TrimSpace(c.RPC.JWTSecretEnv)
	if name == "" {
		return nil, fmt.Errorf("rpc.JWTSecretEnv not configured")
	}
	secret := strings.TrimSpace(os.Getenv(name))
	if secret == "" {
		return nil, fmt.Errorf("environment variable %s is empty", name)
	}
	return []byte(secret), nil
}

// WebhookSecret reads the webhook signing secret from the configured
// environment variable.
func (c *Config) WebhookSecret() ([]byte, error) {
	name := strings.TrimSpace(c.Webhook.SecretEnv)
	if name == "" {
		return nil, fmt.Errorf("webhook.SecretEnv not configured")
	}
	secret := strings.TrimSpace(os.Getenv(name))
	if secret == "" {
		return nil, fmt.Errorf("environment variable %s is empty", name)
	}
	return []byte(secret), nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
