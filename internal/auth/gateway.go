package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/tonimelisma/drive-explorer/internal/session"
)

// Sentinel errors. Use errors.Is(err, auth.ErrNotAuthenticated) to check.
var (
	// ErrNotAuthenticated means there is no live session or no usable credential.
	ErrNotAuthenticated = errors.New("auth: not authenticated")
	// ErrAuth means the OAuth2 exchange failed or the refresh token was
	// rejected.
	ErrAuth = errors.New("auth: authentication failed")
	// ErrUpstream means the token endpoint could not be reached or failed
	// server-side. The session is kept and the refresh is retried on the
	// next request.
	ErrUpstream = errors.New("auth: token endpoint unavailable")
)

// DefaultSessionTTL is the session lifetime when none is configured.
const DefaultSessionTTL = 24 * time.Hour

// refreshLeeway refreshes tokens slightly before they expire so a request
// does not start with a token that dies mid-flight.
const refreshLeeway = 30 * time.Second

// refreshTimeout bounds a shared refresh, which runs detached from any one
// caller's request.
const refreshTimeout = 30 * time.Second

// Options configures a Gateway.
type Options struct {
	SessionTTL time.Duration
	Scopes     []string
}

// Gateway owns the OAuth2 flow and the session-to-credential mapping.
// Safe for concurrent use.
type Gateway struct {
	exchanger Exchanger
	store     session.Store
	states    *stateTable
	ttl       time.Duration
	scopes    []string
	logger    *slog.Logger

	refreshes singleflight.Group
	nowFunc   func() time.Time // injectable for deterministic tests
}

// NewGateway creates a Gateway over the given exchanger and store.
func NewGateway(exchanger Exchanger, store session.Store, opts Options, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}

	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	scopes := opts.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	return &Gateway{
		exchanger: exchanger,
		store:     store,
		states:    newStateTable(),
		ttl:       ttl,
		scopes:    scopes,
		logger:    logger,
		nowFunc:   time.Now,
	}
}

// SessionTTL returns the configured session lifetime.
func (g *Gateway) SessionTTL() time.Duration {
	return g.ttl
}

// BeginLogin issues a state value and PKCE verifier and returns the
// provider consent URL.
func (g *Gateway) BeginLogin(_ context.Context) (string, error) {
	state, err := generateState()
	if err != nil {
		return "", fmt.Errorf("auth: generating state token: %w", err)
	}

	verifier := oauth2.GenerateVerifier()

	if !g.states.issue(state, verifier, g.nowFunc()) {
		g.logger.Warn("too many pending logins, refusing new login")
		return "", fmt.Errorf("%w: too many pending logins, try again later", ErrAuth)
	}

	g.logger.Info("issued login state", slog.Int("state_len", len(state)))

	return g.exchanger.AuthCodeURL(state, verifier), nil
}

// HandleCallback validates state, exchanges code for a credential and
// creates a session.
func (g *Gateway) HandleCallback(ctx context.Context, code, state string) (*session.Session, error) {
	verifier, ok := g.states.consume(state, g.nowFunc())
	if !ok {
		g.logger.Warn("invalid or expired OAuth2 state", slog.Int("state_len", len(state)))
		return nil, fmt.Errorf("%w: invalid CSRF state token", ErrAuth)
	}

	if code == "" {
		return nil, fmt.Errorf("%w: callback missing authorization code", ErrAuth)
	}

	tok, err := g.exchanger.Exchange(ctx, code, verifier)
	if err != nil {
		g.logger.Warn("authorization code exchange failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrAuth, err)
	}

	id, err := session.NewID()
	if err != nil {
		return nil, err
	}

	now := g.nowFunc().UTC()
	sess := &session.Session{
		ID:        id,
		Token:     tok,
		Scopes:    g.scopes,
		CreatedAt: now,
		ExpiresAt: now.Add(g.ttl),
	}

	if err := g.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("auth: storing session: %w", err)
	}

	g.logger.Info("session created",
		slog.Time("token_expiry", tok.Expiry),
		slog.Bool("has_refresh_token", tok.RefreshToken != ""),
		slog.Time("expires_at", sess.ExpiresAt),
	)

	return sess, nil
}

// CurrentSession returns the live session for id. Expired sessions are
// deleted and reported as ErrNotAuthenticated.
func (g *Gateway) CurrentSession(ctx context.Context, id string) (*session.Session, error) {
	if id == "" {
		return nil, ErrNotAuthenticated
	}

	sess, err := g.store.Get(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrNotAuthenticated
	}

	if err != nil {
		return nil, fmt.Errorf("auth: loading session: %w", err)
	}

	if sess.Expired(g.nowFunc()) {
		g.logger.Info("session expired", slog.Time("expires_at", sess.ExpiresAt))
		g.deleteQuietly(ctx, id)

		return nil, ErrNotAuthenticated
	}

	if sess.Token == nil || sess.Token.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}

	return sess, nil
}

// RefreshIfNeeded returns sess unchanged while its access token is fresh.
// Otherwise it refreshes the token; concurrent callers for the same session
// share one provider round trip. The shared refresh outlives any single
// caller, so a caller that goes away only abandons its own wait. The session
// is destroyed only when the provider rejects the refresh token.
func (g *Gateway) RefreshIfNeeded(ctx context.Context, sess *session.Session) (*session.Session, error) {
	if !g.tokenExpired(sess.Token) {
		return sess, nil
	}

	ch := g.refreshes.DoChan(sess.ID, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		return g.refresh(rctx, sess.ID)
	})

	var res singleflight.Result

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("auth: waiting for token refresh: %w", ctx.Err())
	case res = <-ch:
	}

	if res.Err != nil {
		return nil, res.Err
	}

	if res.Shared {
		g.logger.Debug("joined in-flight token refresh")
	}

	fresh, ok := res.Val.(*session.Session)
	if !ok {
		return nil, fmt.Errorf("auth: unexpected refresh result %T", res.Val)
	}

	return fresh.Clone(), nil
}

// refresh reloads the session (another request may already have refreshed
// it), then refreshes and persists the token.
func (g *Gateway) refresh(ctx context.Context, id string) (*session.Session, error) {
	sess, err := g.CurrentSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if !g.tokenExpired(sess.Token) {
		return sess, nil
	}

	if sess.Token.RefreshToken == "" {
		g.logger.Info("access token expired and no refresh token, ending session")
		g.deleteQuietly(ctx, id)

		return nil, fmt.Errorf("%w: access token expired", ErrNotAuthenticated)
	}

	g.logger.Info("access token expired, refreshing", slog.Time("expiry", sess.Token.Expiry))

	tok, err := g.exchanger.Refresh(ctx, sess.Token)
	if err != nil {
		if !refreshRejected(err) {
			g.logger.Warn("token refresh failed, keeping session", slog.String("error", err.Error()))

			return nil, fmt.Errorf("%w: could not refresh access token: %w", ErrUpstream, err)
		}

		g.logger.Warn("refresh token rejected, ending session", slog.String("error", err.Error()))
		g.deleteQuietly(ctx, id)

		return nil, fmt.Errorf("%w: failed to refresh token, please re-authenticate: %w", ErrAuth, err)
	}

	if tok.RefreshToken == "" {
		tok.RefreshToken = sess.Token.RefreshToken
	}

	sess.Token = tok

	if err := g.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("auth: storing refreshed session: %w", err)
	}

	g.logger.Info("token refreshed", slog.Time("new_expiry", tok.Expiry))

	return sess, nil
}

// Logout destroys the session. Unknown ids are ignored.
func (g *Gateway) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	if err := g.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("auth: deleting session: %w", err)
	}

	g.logger.Info("session destroyed")

	return nil
}

// PruneExpired removes expired sessions from the store.
func (g *Gateway) PruneExpired(ctx context.Context) (int, error) {
	n, err := g.store.DeleteExpired(ctx, g.nowFunc())
	if err != nil {
		return 0, fmt.Errorf("auth: pruning sessions: %w", err)
	}

	if n > 0 {
		g.logger.Info("pruned expired sessions", slog.Int("count", n))
	}

	return n, nil
}

// refreshRejected reports whether err means the refresh token itself is no
// good (a 4xx from the token endpoint, such as invalid_grant), as opposed to
// an outage, a 5xx or a timeout.
func refreshRejected(err error) bool {
	if errors.Is(err, errMockRejected) {
		return true
	}

	var re *oauth2.RetrieveError
	if !errors.As(err, &re) || re.Response == nil {
		return false
	}

	return re.Response.StatusCode >= http.StatusBadRequest && re.Response.StatusCode < http.StatusInternalServerError
}

// tokenExpired reports whether tok is expired or about to expire. Tokens
// without an expiry never expire.
func (g *Gateway) tokenExpired(tok *oauth2.Token) bool {
	if tok == nil || tok.Expiry.IsZero() {
		return false
	}

	return !g.nowFunc().Add(refreshLeeway).Before(tok.Expiry)
}

// deleteQuietly removes a session, logging instead of returning failures.
func (g *Gateway) deleteQuietly(ctx context.Context, id string) {
	if err := g.store.Delete(ctx, id); err != nil {
		g.logger.Warn("failed to delete session", slog.String("error", err.Error()))
	}
}
