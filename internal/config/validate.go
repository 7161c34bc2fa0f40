package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "server.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Server.Port),
		})
	}

	validBinds := []string{"loopback", "lan", "custom"}
	if cfg.Server.Bind != "" && !slices.Contains(validBinds, cfg.Server.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "server.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Server.Bind),
		})
	}

	if cfg.Server.TLS.Enabled {
		if cfg.Server.TLS.CertPath == "" {
			issues = append(issues, ValidationIssue{
				Path:    "server.tls.certPath",
				Message: "required when TLS is enabled",
			})
		}
		if cfg.Server.TLS.KeyPath == "" {
			issues = append(issues, ValidationIssue{
				Path:    "server.tls.keyPath",
				Message: "required when TLS is enabled",
			})
		}
	}

	if cfg.Auth.JWTSecret == "" {
		issues = append(issues, ValidationIssue{
			Path:    "auth.jwtSecret",
			Message: "required (set TASKDECK_JWT_SECRET or auth.jwtSecret)",
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validConsoleStyles := []string{"pretty", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	if cfg.Chat.HistoryLimit < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "chat.historyLimit",
			Message: fmt.Sprintf("must be positive, got %d", cfg.Chat.HistoryLimit),
		})
	}

	if cfg.Chat.RateLimitPerMinute < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "chat.rateLimitPerMinute",
			Message: fmt.Sprintf("must be positive, got %d", cfg.Chat.RateLimitPerMinute),
		})
	}

	return issues
}
