package config

// Config is the root configuration for qqbridge.
type Config struct {
	NapCat   NapCatConfig   `yaml:"napcat"`
	Backend  BackendConfig  `yaml:"backend"`
	Control  ControlConfig  `yaml:"control,omitempty"`
	Sessions SessionsConfig `yaml:"sessions,omitempty"`
	Media    MediaConfig    `yaml:"media,omitempty"`
	Store    StoreConfig    `yaml:"store,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
}

// NapCatConfig describes the OneBot gateway connection and message filtering.
type NapCatConfig struct {
	URL           string   `yaml:"url"`             // ws:// or wss:// endpoint of the NapCat event socket
	Token         string   `yaml:"token,omitempty"` // access token, appended as ?access_token= at connect time
	BotQQ         string   `yaml:"botQQ,omitempty"` // the bridge's own QQ identity, used for self-filtering and mention gating
	AllowedUsers  []string `yaml:"allowedUsers,omitempty"`  // empty = accept all direct messages
	AllowedGroups []string `yaml:"allowedGroups,omitempty"` // empty = group handling disabled
}

// BackendConfig describes the text-generation backend.
type BackendConfig struct {
	URL            string `yaml:"url"`
	Token          string `yaml:"token,omitempty"`
	Model          string `yaml:"model,omitempty"`
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"`
}

// ControlConfig describes the proactive-send HTTP endpoint. Port 0 disables it.
type ControlConfig struct {
	Port int    `yaml:"port,omitempty"`
	Bind string `yaml:"bind,omitempty"`
}

// SessionsConfig points at the backend session store on disk.
type SessionsConfig struct {
	Dir string `yaml:"dir,omitempty"` // directory holding sessions.json and per-session transcripts
}

// MediaConfig controls the attachment scratch cache.
type MediaConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// StoreConfig controls the SQLite event audit log.
type StoreConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"` // defaults to true
	Path    string `yaml:"path,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"`        // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
	File         string `yaml:"file,omitempty"`
}

// StoreEnabled reports whether the audit log should be opened.
func (c StoreConfig) StoreEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}
