package config

// Config is the root configuration for Taskdeck.
type Config struct {
	Server   ServerConfig   `yaml:"server,omitempty"`
	Auth     AuthConfig     `yaml:"auth,omitempty"`
	Provider ProviderConfig `yaml:"provider,omitempty"`
	Chat     ChatConfig     `yaml:"chat,omitempty"`
	Store    StoreConfig    `yaml:"store,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
}

// ServerConfig controls the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port,omitempty"`
	Bind           string   `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string   `yaml:"customBindHost,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
	TLS            TLSConfig `yaml:"tls,omitempty"`
}

// TLSConfig configures TLS for the API server.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	CertPath string `yaml:"certPath,omitempty"`
	KeyPath  string `yaml:"keyPath,omitempty"`
}

// AuthConfig configures account authentication.
type AuthConfig struct {
	// JWTSecret signs access tokens (HS256). Supports ${ENV_VAR} expansion.
	JWTSecret string `yaml:"jwtSecret,omitempty"`
	// TokenTTLHours is the token lifetime. Default 24.
	TokenTTLHours int `yaml:"tokenTtlHours,omitempty"`
}

// ProviderConfig configures the external completion provider.
type ProviderConfig struct {
	// APIKey for the provider. Supports ${ENV_VAR} expansion. When empty the
	// chat agent runs entirely on the keyword fallback router.
	APIKey string `yaml:"apiKey,omitempty"`
	// Model is the completion model ID. Default "gpt-4o-mini".
	Model string `yaml:"model,omitempty"`
	// BaseURL overrides the provider endpoint (OpenAI-compatible servers).
	BaseURL string `yaml:"baseUrl,omitempty"`
	// TimeoutSeconds caps a single completion call. Default 120.
	TimeoutSeconds int `yaml:"timeoutSeconds,omitempty"`
}

// ChatConfig controls chat turn behavior.
type ChatConfig struct {
	// HistoryLimit is the sliding window of recent messages used to build
	// provider context. Default 50.
	HistoryLimit int `yaml:"historyLimit,omitempty"`
	// RateLimitPerMinute caps chat requests per owner. Default 20.
	RateLimitPerMinute int `yaml:"rateLimitPerMinute,omitempty"`
}

// StoreConfig controls persistence.
type StoreConfig struct {
	// Path is the SQLite database file. Default ~/.taskdeck/data/taskdeck.db.
	// Use ":memory:" for tests.
	Path string `yaml:"path,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"`        // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}

// ConfigError reports a configuration problem.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }
