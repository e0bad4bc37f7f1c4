package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tonimelisma/drive-explorer/internal/auth"
	"github.com/tonimelisma/drive-explorer/internal/session"
)

// meResponse describes the current session to the frontend. Tokens are
// never included.
type meResponse struct {
	Authenticated bool     `json:"authenticated"`
	Mode          string   `json:"mode"`
	Scopes        []string `json:"scopes"`
	ExpiresAt     string   `json:"expires_at,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	consent, err := s.gateway.BeginLogin(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	http.Redirect(w, r, consent, http.StatusTemporaryRedirect)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if providerErr := q.Get("error"); providerErr != "" {
		s.writeError(w, r, fmt.Errorf("%w: provider returned %q", auth.ErrAuth, providerErr))
		return
	}

	sess, err := s.gateway.HandleCallback(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	http.SetCookie(w, s.sessionCookie(sess.ID, s.gateway.SessionTTL()))
	http.Redirect(w, r, s.cfg.AppURL, http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.gateway.Logout(r.Context(), sessionID(r)); err != nil {
		s.writeError(w, r, err)
		return
	}

	http.SetCookie(w, s.sessionCookie("", -1))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess, err := s.resolveSession(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := meResponse{
		Authenticated: true,
		Mode:          s.connector.Mode(),
		Scopes:        sess.Scopes,
	}
	if resp.Scopes == nil {
		resp.Scopes = []string{}
	}

	if !sess.ExpiresAt.IsZero() {
		resp.ExpiresAt = sess.ExpiresAt.UTC().Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, resp)
}

// resolveSession loads the caller's session and refreshes its access token
// if needed.
func (s *Server) resolveSession(r *http.Request) (*session.Session, error) {
	sess, err := s.gateway.CurrentSession(r.Context(), sessionID(r))
	if err != nil {
		return nil, err
	}

	return s.gateway.RefreshIfNeeded(r.Context(), sess)
}

// sessionID returns the session cookie value, or "" when absent.
func sessionID(r *http.Request) string {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}

	return c.Value
}

// sessionCookie builds the session cookie. A negative ttl expires it.
func (s *Server) sessionCookie(value string, ttl time.Duration) *http.Cookie {
	maxAge := int(ttl / time.Second)
	if ttl < 0 {
		maxAge = -1
	}

	return &http.Cookie{
		Name:     sessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
