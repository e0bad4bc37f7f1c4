package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig       = "DRIVE_EXPLORER_CONFIG"
	EnvListen       = "DRIVE_EXPLORER_LISTEN"
	EnvClientID     = "GOOGLE_CLIENT_ID"
	EnvClientSecret = "GOOGLE_CLIENT_SECRET"
	EnvRedirectURI  = "GOOGLE_REDIRECT_URI"
)

// EnvOverrides holds values derived from environment variables. Empty
// fields leave the config file value in place.
type EnvOverrides struct {
	ConfigPath   string // DRIVE_EXPLORER_CONFIG: override config file path
	ListenAddr   string // DRIVE_EXPLORER_LISTEN: listen address
	ClientID     string // GOOGLE_CLIENT_ID
	ClientSecret string // GOOGLE_CLIENT_SECRET
	RedirectURI  string // GOOGLE_REDIRECT_URI
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Resolve applies the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:   os.Getenv(EnvConfig),
		ListenAddr:   os.Getenv(EnvListen),
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		RedirectURI:  os.Getenv(EnvRedirectURI),
	}
}

// apply copies non-empty overrides into cfg.
func (e EnvOverrides) apply(cfg *Config) {
	if e.ListenAddr != "" {
		cfg.Server.ListenAddr = e.ListenAddr
	}

	if e.ClientID != "" {
		cfg.Google.ClientID = e.ClientID
	}

	if e.ClientSecret != "" {
		cfg.Google.ClientSecret = e.ClientSecret
	}

	if e.RedirectURI != "" {
		cfg.Google.RedirectURI = e.RedirectURI
	}
}
