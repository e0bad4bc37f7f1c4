package config

import (
	"fmt"
	"io"
)

// redacted replaces secrets in rendered output.
const redacted = "(set, hidden)"

// RenderEffective writes the resolved configuration as a human-readable
// annotated summary to w. This powers the "config show" command. The
// client secret is never printed.
func RenderEffective(cfg *Config, path string, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (file: %s)\n", path)

	mode := "live"
	if cfg.UseMock() {
		mode = "mock"
	}

	ew.printf("# Provider mode: %s\n\n", mode)

	renderServerSection(ew, &cfg.Server)
	renderGoogleSection(ew, &cfg.Google)
	renderSessionsSection(ew, &cfg.Sessions)
	renderLoggingSection(ew, &cfg.Logging)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops, so callers can chain
// printf calls without checking each one individually.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func renderServerSection(ew *errWriter, s *ServerConfig) {
	ew.printf("[server]\n")
	ew.printf("  listen_addr      = %q\n", s.ListenAddr)
	ew.printf("  app_url          = %q\n", s.AppURL)
	ew.printf("  cookie_secure    = %t\n", s.CookieSecure)
	ew.printf("  max_upload_size  = %q\n", s.MaxUploadSize)
	ew.printf("  request_timeout  = %q\n", s.RequestTimeout)
	ew.printf("  shutdown_timeout = %q\n", s.ShutdownTimeout)
	ew.printf("\n")
}

func renderGoogleSection(ew *errWriter, g *GoogleConfig) {
	ew.printf("[google]\n")
	ew.printf("  client_id     = %q\n", g.ClientID)

	if g.ClientSecret != "" {
		ew.printf("  client_secret = %s\n", redacted)
	}

	ew.printf("  redirect_uri  = %q\n", g.RedirectURI)

	if g.AuthURL != "" {
		ew.printf("  auth_url      = %q\n", g.AuthURL)
		ew.printf("  token_url     = %q\n", g.TokenURL)
	}

	if g.Endpoint != "" {
		ew.printf("  endpoint      = %q\n", g.Endpoint)
	}

	ew.printf("\n")
}

func renderSessionsSection(ew *errWriter, s *SessionsConfig) {
	ew.printf("[sessions]\n")
	ew.printf("  backend        = %q\n", s.Backend)

	if s.Backend == BackendSQLite {
		ew.printf("  db_path        = %q\n", s.DatabasePath())
	}

	ew.printf("  ttl            = %q\n", s.TTL)
	ew.printf("  prune_interval = %q\n", s.PruneInterval)
	ew.printf("\n")
}

func renderLoggingSection(ew *errWriter, l *LoggingConfig) {
	ew.printf("[logging]\n")
	ew.printf("  log_level  = %q\n", l.LogLevel)
	ew.printf("  log_format = %q\n", l.LogFormat)
}
