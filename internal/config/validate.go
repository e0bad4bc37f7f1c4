package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// Validation range constants.
const (
	minRequestTimeout  = 1 * time.Second
	minShutdownTimeout = 1 * time.Second
	minSessionTTL      = 1 * time.Minute
	minPruneInterval   = 1 * time.Minute
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateGoogle(&cfg.Google)...)
	errs = append(errs, validateSessions(&cfg.Sessions)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	return errors.Join(errs...)
}

func validateServer(s *ServerConfig) []error {
	var errs []error

	if _, _, err := net.SplitHostPort(s.ListenAddr); err != nil {
		errs = append(errs, fmt.Errorf("server.listen_addr: %w", err))
	}

	if s.AppURL == "" {
		errs = append(errs, errors.New("server.app_url: must not be empty"))
	} else if !strings.HasPrefix(s.AppURL, "/") {
		errs = append(errs, validateAbsoluteURL("server.app_url", s.AppURL)...)
	}

	n, err := ParseSize(s.MaxUploadSize)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("server.max_upload_size: %w", err))
	case n <= 0:
		errs = append(errs, fmt.Errorf("server.max_upload_size: must be positive, got %q", s.MaxUploadSize))
	}

	errs = append(errs, validateDurationMin("server.request_timeout", s.RequestTimeout, minRequestTimeout)...)
	errs = append(errs, validateDurationMin("server.shutdown_timeout", s.ShutdownTimeout, minShutdownTimeout)...)

	return errs
}

func validateGoogle(g *GoogleConfig) []error {
	var errs []error

	if g.RedirectURI == "" {
		errs = append(errs, errors.New("google.redirect_uri: must not be empty"))
	} else {
		errs = append(errs, validateAbsoluteURL("google.redirect_uri", g.RedirectURI)...)
	}

	overrides := []struct{ field, value string }{
		{"google.auth_url", g.AuthURL},
		{"google.token_url", g.TokenURL},
		{"google.endpoint", g.Endpoint},
	}

	for _, o := range overrides {
		if o.value != "" {
			errs = append(errs, validateAbsoluteURL(o.field, o.value)...)
		}
	}

	if (g.AuthURL == "") != (g.TokenURL == "") {
		errs = append(errs, errors.New("google.auth_url and google.token_url: must be set together"))
	}

	return errs
}

var validBackends = map[string]bool{
	BackendMemory: true,
	BackendSQLite: true,
}

func validateSessions(s *SessionsConfig) []error {
	var errs []error

	if !validBackends[s.Backend] {
		errs = append(errs, fmt.Errorf("sessions.backend: must be one of memory, sqlite; got %q", s.Backend))
	}

	errs = append(errs, validateDurationMin("sessions.ttl", s.TTL, minSessionTTL)...)

	// "0" disables background pruning.
	if s.PruneInterval != "0" {
		errs = append(errs, validateDurationMin("sessions.prune_interval", s.PruneInterval, minPruneInterval)...)
	}

	return errs
}

// validateAbsoluteURL checks that value parses as an http(s) URL with a host.
func validateAbsoluteURL(field, value string) []error {
	u, err := url.Parse(value)
	if err != nil {
		return []error{fmt.Errorf("%s: invalid URL %q: %w", field, value, err)}
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return []error{fmt.Errorf("%s: must be an absolute http(s) URL, got %q", field, value)}
	}

	return nil
}

// validateDuration checks that a duration string is valid and meets a minimum.
func validateDuration(field, value string, minimum time.Duration) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, value, err)
	}

	if d < minimum {
		return fmt.Errorf("%s: must be >= %s, got %s", field, minimum, d)
	}

	return nil
}

func validateDurationMin(field, value string, minimum time.Duration) []error {
	if err := validateDuration(field, value, minimum); err != nil {
		return []error{err}
	}

	return nil
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	errs = append(errs, validateLogLevel(l.LogLevel)...)
	errs = append(errs, validateLogFormat(l.LogFormat)...)

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("logging.log_level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

func validateLogFormat(format string) []error {
	if !validLogFormats[format] {
		return []error{fmt.Errorf("logging.log_format: must be one of auto, text, json; got %q", format)}
	}

	return nil
}
