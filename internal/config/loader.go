package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so tokens can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.NapCat.Token = expandEnvVars(cfg.NapCat.Token)
	cfg.Backend.Token = expandEnvVars(cfg.Backend.Token)
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Backend.URL == "" {
		cfg.Backend.URL = "http://127.0.0.1:18789/v1/responses"
	}
	if cfg.Backend.Model == "" {
		cfg.Backend.Model = "openclaw"
	}
	if cfg.Backend.TimeoutSeconds == 0 {
		cfg.Backend.TimeoutSeconds = 120
	}
	if cfg.Control.Bind == "" {
		cfg.Control.Bind = "127.0.0.1"
	}
	if cfg.Media.Dir == "" {
		cfg.Media.Dir = "/tmp/qqbridge-images"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = "pretty"
	}
}

// applyEnvOverrides reads environment variables and overrides config values.
// NAPCAT_WS, NAPCAT_TOKEN and BOT_QQ match the env surface of the original
// deployment; QQBRIDGE_* are bridge-specific knobs.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NAPCAT_WS"); v != "" {
		cfg.NapCat.URL = v
	}
	if v := os.Getenv("NAPCAT_TOKEN"); v != "" {
		cfg.NapCat.Token = v
	}
	if v := os.Getenv("BOT_QQ"); v != "" {
		cfg.NapCat.BotQQ = v
	}
	if v := os.Getenv("OPENCLAW_TOKEN"); v != "" && cfg.Backend.Token == "" {
		cfg.Backend.Token = v
	}
	if v := os.Getenv("QQBRIDGE_CONTROL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Control.Port = port
		}
	}
	if v := os.Getenv("QQBRIDGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}
