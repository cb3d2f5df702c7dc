// Package config loads, defaults, and validates the qqbridge configuration.
package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Backend: BackendConfig{
			URL:            "http://127.0.0.1:18789/v1/responses",
			Model:          "openclaw",
			TimeoutSeconds: 120,
		},
		Control: ControlConfig{
			Bind: "127.0.0.1",
		},
		Media: MediaConfig{
			Dir: "/tmp/qqbridge-images",
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}
