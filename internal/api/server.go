// Package api implements the JSON HTTP surface consumed by the browser
// frontend: the OAuth login routes, session introspection, and the drive
// proxy routes that translate requests into provider calls.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/tonimelisma/drive-explorer/internal/drive"
	"github.com/tonimelisma/drive-explorer/internal/session"
)

// Defaults applied when Config leaves a field zero.
const (
	DefaultMaxUploadSize  = 100 << 20 // 100 MiB
	DefaultRequestTimeout = 60 * time.Second

	// multipartMemory is how much of an upload is held in memory before the
	// multipart reader spills to temporary files.
	multipartMemory = 32 << 20

	sessionCookie = "session_id"
)

// Gateway is the session/auth capability the handlers need.
// Implemented by *auth.Gateway.
type Gateway interface {
	BeginLogin(ctx context.Context) (string, error)
	HandleCallback(ctx context.Context, code, state string) (*session.Session, error)
	CurrentSession(ctx context.Context, id string) (*session.Session, error)
	RefreshIfNeeded(ctx context.Context, sess *session.Session) (*session.Session, error)
	Logout(ctx context.Context, id string) error
	SessionTTL() time.Duration
}

// Config holds the HTTP-facing settings.
type Config struct {
	AppURL         string // where the browser lands after login
	CookieSecure   bool
	MaxUploadSize  int64
	RequestTimeout time.Duration
	Version        string
}

// Server wires the gateway and provider connector to HTTP routes.
type Server struct {
	cfg       Config
	gateway   Gateway
	connector drive.Connector
	logger    *slog.Logger
}

// NewServer creates a Server. Zero Config fields take their defaults.
func NewServer(cfg Config, gateway Gateway, connector drive.Connector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.AppURL == "" {
		cfg.AppURL = "/"
	}

	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = DefaultMaxUploadSize
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	return &Server{
		cfg:       cfg,
		gateway:   gateway,
		connector: connector,
		logger:    logger,
	}
}

// Handler returns the routed handler wrapped in logging and panic recovery.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /api/status", s.handleStatus)

	mux.HandleFunc("GET /api/auth/login/google", s.handleLogin)
	mux.HandleFunc("GET /api/auth/callback/google", s.handleCallback)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /api/me", s.handleMe)

	mux.HandleFunc("GET /api/drive/files", s.handleList)
	mux.HandleFunc("POST /api/drive/folders", s.handleCreateFolder)
	mux.HandleFunc("POST /api/drive/files/upload", s.handleUpload)
	mux.HandleFunc("DELETE /api/drive/files/{id}", s.handleDelete)
	mux.HandleFunc("PATCH /api/drive/files/{id}/rename", s.handleRename)
	mux.HandleFunc("GET /api/drive/files/{id}/download", s.handleDownload)

	return s.logRequests(s.recoverPanics(mux))
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "drive-explorer backend"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"mode":    s.connector.Mode(),
		"version": s.cfg.Version,
	})
}
