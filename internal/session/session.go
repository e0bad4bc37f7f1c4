// Package session holds server-side session records, which link an opaque
// browser cookie value to a provider OAuth2 credential, and the pluggable
// stores that keep them. Credentials never leave this package's callers
// toward the browser.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// ErrNotFound is returned by Store.Get when no live session has the given id.
var ErrNotFound = errors.New("session: not found")

// idBytes is the number of random bytes in a session id.
const idBytes = 32

// Session links a client to a provider credential.
type Session struct {
	ID        string
	Token     *oauth2.Token
	Scopes    []string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session lifetime has passed at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Clone returns a deep copy so callers can mutate the token without racing
// other readers of the same record.
func (s *Session) Clone() *Session {
	c := *s
	if s.Token != nil {
		tok := *s.Token
		c.Token = &tok
	}

	c.Scopes = append([]string(nil), s.Scopes...)

	return &c
}

// Store persists sessions. Implementations are safe for concurrent use.
type Store interface {
	// Get returns the session with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)
	// Put inserts or replaces a session.
	Put(ctx context.Context, s *Session) error
	// Delete removes a session. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes every session whose lifetime ended before now
	// and returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
	Close() error
}

// NewID returns a cryptographically random hex session id.
func NewID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: generating id: %w", err)
	}

	return hex.EncodeToString(b), nil
}
