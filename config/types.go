package config

// Collection describes the certificate collection served by the node.
type Collection struct {
	Address string `toml:"Address"`
	Name    string `toml:"Name"`
	Symbol  string `toml:"Symbol"`
	// RefreshExpirationOnTransfer restarts the validity window whenever a
	// certificate changes hands.
	RefreshExpirationOnTransfer bool `toml:"RefreshExpirationOnTransfer"`
}

// Sale enables the fixed-price sale module when Address is set.
type Sale struct {
	Address string `toml:"Address"`
}

// RPC controls the JSON-RPC listener.
type RPC struct {
	ListenAddress string `toml:"ListenAddress"`
	// JWTSecretEnv names the environment variable holding the HMAC secret
	// used to verify caller tokens.
	JWTSecretEnv        string   `toml:"JWTSecretEnv"`
	JWTIssuer           string   `toml:"JWTIssuer"`
	JWTAudience         []string `toml:"JWTAudience"`
	RateLimitPerSecond  float64  `toml:"RateLimitPerSecond"`
	RateLimitBurst      int      `toml:"RateLimitBurst"`
	ReadTimeoutSeconds  int      `toml:"ReadTimeoutSeconds"`
	WriteTimeoutSeconds int      `toml:"WriteTimeoutSeconds"`
	MaxBodyBytes        int64    `toml:"MaxBodyBytes"`
	// EnableFaucet exposes bank_faucet for development networks.
	EnableFaucet bool `toml:"EnableFaucet"`
}

// EventLog selects the store for committed events. An empty driver keeps
// events in memory only.
type EventLog struct {
	Driver string `toml:"Driver"`
	DSN    string `toml:"DSN"`
}

// Logging mirrors observability/logging.Options.
type Logging struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Traces   bool   `toml:"Traces"`
	Metrics  bool   `toml:"Metrics"`
}

// Webhook forwards committed events to an external subscriber when URL is
// set. Deliveries are signed with the secret read from SecretEnv.
type Webhook struct {
	URL            string   `toml:"URL"`
	SecretEnv      string   `toml:"SecretEnv"`
	EventPrefixes  []string `toml:"EventPrefixes"`
	TimeoutSeconds int      `toml:"TimeoutSeconds"`
}
