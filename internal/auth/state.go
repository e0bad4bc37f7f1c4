package auth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// stateTokenBytes is the number of random bytes for the OAuth2 state parameter.
const stateTokenBytes = 16

// pendingTTL bounds how long a user may sit on the consent screen.
const pendingTTL = 10 * time.Minute

// maxPending caps outstanding login attempts so unauthenticated clients
// cannot grow the table without bound.
const maxPending = 10_000

// pendingLogin is an issued-but-unconsumed state value.
type pendingLogin struct {
	verifier string
	issuedAt time.Time
}

// stateTable tracks issued state values. Each value is consumable once.
type stateTable struct {
	mu      sync.Mutex
	pending map[string]pendingLogin
}

func newStateTable() *stateTable {
	return &stateTable{pending: make(map[string]pendingLogin)}
}

// issue records state with its PKCE verifier, evicting expired entries first.
func (t *stateTable) issue(state, verifier string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.evictLocked(now)

	if len(t.pending) >= maxPending {
		return false
	}

	t.pending[state] = pendingLogin{verifier: verifier, issuedAt: now}

	return true
}

// consume removes state and returns its verifier if it was issued and has
// not expired.
func (t *stateTable) consume(state string, now time.Time) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.pending[state]
	if !ok {
		return "", false
	}

	delete(t.pending, state)

	if now.Sub(p.issuedAt) > pendingTTL {
		return "", false
	}

	return p.verifier, true
}

func (t *stateTable) evictLocked(now time.Time) {
	for k, p := range t.pending {
		if now.Sub(p.issuedAt) > pendingTTL {
			delete(t.pending, k)
		}
	}
}

// generateState produces a cryptographically random hex string for the OAuth2
// state parameter. Using crypto/rand prevents CSRF attacks.
func generateState() (string, error) {
	b := make([]byte, stateTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
