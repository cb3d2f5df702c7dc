package config

import (
	"fmt"
	"net/url"
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

	if cfg.NapCat.URL == "" {
		issues = append(issues, ValidationIssue{
			Path:    "napcat.url",
			Message: "gateway WebSocket URL is required",
		})
	} else if u, err := url.Parse(cfg.NapCat.URL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		issues = append(issues, ValidationIssue{
			Path:    "napcat.url",
			Message: fmt.Sprintf("must be a ws:// or wss:// URL, got %q", cfg.NapCat.URL),
		})
	}

	if len(cfg.NapCat.AllowedGroups) > 0 && cfg.NapCat.BotQQ == "" {
		issues = append(issues, ValidationIssue{
			Path:    "napcat.botQQ",
			Message: "botQQ is required for group handling (mention gating)",
		})
	}

	if cfg.Backend.URL == "" {
		issues = append(issues, ValidationIssue{
			Path:    "backend.url",
			Message: "backend URL is required",
		})
	}
	if cfg.Backend.TimeoutSeconds < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "backend.timeoutSeconds",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Backend.TimeoutSeconds),
		})
	}

	if cfg.Control.Port < 0 || cfg.Control.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "control.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Control.Port),
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

	return issues
}
