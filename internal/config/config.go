// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for drive-explorer. Values resolve
// through a four-layer override chain: defaults -> config file ->
// environment -> CLI flags.
package config

import "time"

// PlaceholderClientID is the client id shipped in sample configs. A config
// still carrying it (or an empty id) runs against the in-memory mock.
const (
	PlaceholderClientID     = "YOUR_GOOGLE_CLIENT_ID_HERE"
	PlaceholderClientSecret = "YOUR_GOOGLE_CLIENT_SECRET_HERE"
)

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Google   GoogleConfig   `toml:"google"`
	Sessions SessionsConfig `toml:"sessions"`
	Logging  LoggingConfig  `toml:"logging"`

	// ForceMock is set by --mock; never read from the file.
	ForceMock bool `toml:"-"`
}

// ServerConfig controls the HTTP listener and request handling.
type ServerConfig struct {
	ListenAddr      string `toml:"listen_addr"`
	AppURL          string `toml:"app_url"`
	CookieSecure    bool   `toml:"cookie_secure"`
	MaxUploadSize   string `toml:"max_upload_size"`
	RequestTimeout  string `toml:"request_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

// GoogleConfig holds the OAuth client registration and optional endpoint
// overrides for proxies and test servers.
type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AuthURL      string `toml:"auth_url"`
	TokenURL     string `toml:"token_url"`
	Endpoint     string `toml:"endpoint"`
}

// SessionsConfig selects the session store and its lifetimes.
type SessionsConfig struct {
	Backend       string `toml:"backend"`
	DBPath        string `toml:"db_path"`
	TTL           string `toml:"ttl"`
	PruneInterval string `toml:"prune_interval"`
}

// LoggingConfig controls log output: level and format.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to zero value".
type CLIOverrides struct {
	ConfigPath string  // --config flag (empty = use default)
	ListenAddr *string // --listen flag
	Mock       bool    // --mock flag
}

// Session store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// UseMock reports whether the server should run against the in-memory
// provider: forced by flag, or no usable client credentials configured.
func (c *Config) UseMock() bool {
	if c.ForceMock {
		return true
	}

	id, secret := c.Google.ClientID, c.Google.ClientSecret

	return id == "" || id == PlaceholderClientID ||
		secret == "" || secret == PlaceholderClientSecret
}

// MaxUploadBytes returns max_upload_size in bytes. Call after Validate.
func (s *ServerConfig) MaxUploadBytes() int64 {
	n, _ := ParseSize(s.MaxUploadSize)
	return n
}

// RequestTimeoutDuration returns request_timeout. Call after Validate.
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return mustDuration(s.RequestTimeout)
}

// ShutdownTimeoutDuration returns shutdown_timeout. Call after Validate.
func (s *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return mustDuration(s.ShutdownTimeout)
}

// TTLDuration returns the session lifetime. Call after Validate.
func (s *SessionsConfig) TTLDuration() time.Duration {
	return mustDuration(s.TTL)
}

// PruneIntervalDuration returns how often expired sessions are removed.
// Zero disables background pruning. Call after Validate.
func (s *SessionsConfig) PruneIntervalDuration() time.Duration {
	return mustDuration(s.PruneInterval)
}

// DatabasePath returns db_path, defaulting to sessions.db in the data dir.
func (s *SessionsConfig) DatabasePath() string {
	if s.DBPath != "" {
		return expandTilde(s.DBPath)
	}

	return defaultDBPath()
}

// mustDuration parses a duration already checked by Validate.
func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
