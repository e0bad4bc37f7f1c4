// Package auth implements the session gateway: the OAuth2 authorization-code
// flow against the storage provider, the mapping from session id to
// credential, and access-token refresh.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultScopes are requested from Google: per-file access for everything the app
// creates or opens, plus read-only metadata so existing folders can be listed.
var DefaultScopes = []string{
	"https://www.googleapis.com/auth/drive.metadata.readonly",
	"https://www.googleapis.com/auth/drive.file",
}

// Exchanger performs the provider side of the OAuth2 flow.
type Exchanger interface {
	// AuthCodeURL returns the consent URL for state and PKCE verifier.
	AuthCodeURL(state, verifier string) string
	// Exchange trades an authorization code for a token.
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)
	// Refresh obtains a new access token using tok's refresh token.
	Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error)
}

// OAuthExchanger talks to Google's OAuth2 endpoints.
type OAuthExchanger struct {
	cfg *oauth2.Config
}

// NewOAuthExchanger builds an exchanger for a confidential web client.
// A zero endpoint selects Google's production endpoints.
func NewOAuthExchanger(clientID, clientSecret, redirectURI string, scopes []string, endpoint oauth2.Endpoint) *OAuthExchanger {
	if endpoint.AuthURL == "" && endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}

	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	return &OAuthExchanger{cfg: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       scopes,
		Endpoint:     endpoint,
	}}
}

// AuthCodeURL requests offline access so a refresh token is issued, and
// asks Google to merge previously granted scopes.
func (e *OAuthExchanger) AuthCodeURL(state, verifier string) string {
	return e.cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
		oauth2.S256ChallengeOption(verifier),
	)
}

// Exchange trades code for a token, proving possession of verifier.
func (e *OAuthExchanger) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	tok, err := e.cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("auth: token exchange failed: %w", err)
	}

	return tok, nil
}

// Refresh forces a refresh by presenting only the refresh token.
func (e *OAuthExchanger) Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	src := e.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: tok.RefreshToken})

	fresh, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("auth: token refresh failed: %w", err)
	}

	return fresh, nil
}

// Mock token values issued in development mode.
const (
	MockAccessToken    = "dummy_access_token"
	MockRefreshToken   = "dummy_refresh_token"
	MockRefreshedToken = "refreshed_dummy_access_token"

	// MockRejectedCode is refused by MockExchanger so the failure path can
	// be exercised without a real provider.
	MockRejectedCode = "invalid"

	mockTokenLifetime = time.Hour
)

// errMockRejected is the simulated provider rejection.
var errMockRejected = errors.New("auth: mock provider rejected the grant")

// MockExchanger stands in for Google when no client credentials are
// configured. Its consent URL points straight back at the callback.
type MockExchanger struct {
	redirectURI string
	nowFunc     func() time.Time
}

// NewMockExchanger creates a MockExchanger redirecting to redirectURI.
func NewMockExchanger(redirectURI string) *MockExchanger {
	return &MockExchanger{redirectURI: redirectURI, nowFunc: time.Now}
}

// AuthCodeURL returns the callback URL carrying a mock code and the state.
func (e *MockExchanger) AuthCodeURL(state, _ string) string {
	q := url.Values{}
	q.Set("code", "mock-authorization-code")
	q.Set("state", state)

	return e.redirectURI + "?" + q.Encode()
}

// Exchange accepts any code except MockRejectedCode.
func (e *MockExchanger) Exchange(_ context.Context, code, _ string) (*oauth2.Token, error) {
	if code == MockRejectedCode {
		return nil, errMockRejected
	}

	return &oauth2.Token{
		AccessToken:  MockAccessToken,
		RefreshToken: MockRefreshToken,
		TokenType:    "Bearer",
		Expiry:       e.nowFunc().Add(mockTokenLifetime),
	}, nil
}

// Refresh issues MockRefreshedToken; a token without a refresh token, or
// with the rejected value, fails.
func (e *MockExchanger) Refresh(_ context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	if tok.RefreshToken == "" || tok.RefreshToken == MockRejectedCode {
		return nil, errMockRejected
	}

	return &oauth2.Token{
		AccessToken:  MockRefreshedToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       e.nowFunc().Add(mockTokenLifetime),
	}, nil
}
