package config

// Default values for configuration options. These are "layer 0" of the
// override chain and give a working local setup without any config file.
const (
	defaultListenAddr      = "127.0.0.1:8000"
	defaultAppURL          = "http://localhost:3000"
	defaultMaxUploadSize   = "100MiB"
	defaultRequestTimeout  = "60s"
	defaultShutdownTimeout = "30s"
	defaultRedirectURI     = "http://localhost:8000/api/auth/callback/google"
	defaultSessionBackend  = BackendMemory
	defaultSessionTTL      = "24h"
	defaultPruneInterval   = "10m"
	defaultLogLevel        = "info"
	defaultLogFormat       = "auto"
)

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      defaultListenAddr,
			AppURL:          defaultAppURL,
			MaxUploadSize:   defaultMaxUploadSize,
			RequestTimeout:  defaultRequestTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Google: GoogleConfig{
			RedirectURI: defaultRedirectURI,
		},
		Sessions: SessionsConfig{
			Backend:       defaultSessionBackend,
			TTL:           defaultSessionTTL,
			PruneInterval: defaultPruneInterval,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
	}
}
