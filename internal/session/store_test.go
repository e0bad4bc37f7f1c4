package session

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// storeFactories runs each conformance test against both implementations.
var storeFactories = map[string]func(t *testing.T) Store{
	"memory": func(t *testing.T) Store {
		t.Helper()

		s := NewMemoryStore()
		t.Cleanup(func() { s.Close() })

		return s
	},
	"sqlite": func(t *testing.T) Store {
		t.Helper()

		s, err := OpenSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "sessions.db"), discardLogger())
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })

		return s
	},
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSession(id string, expires time.Time) *Session {
	return &Session{
		ID: id,
		Token: &oauth2.Token{
			AccessToken:  "access-" + id,
			RefreshToken: "refresh-" + id,
			TokenType:    "Bearer",
			Expiry:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Scopes:    []string{"scope-a", "scope-b"},
		CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		ExpiresAt: expires,
	}
}

func TestStore_PutGet(t *testing.T) {
	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			want := testSession("abc", time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC))
			require.NoError(t, s.Put(ctx, want))

			got, err := s.Get(ctx, "abc")
			require.NoError(t, err)
			assert.Equal(t, want.ID, got.ID)
			assert.Equal(t, want.Token.AccessToken, got.Token.AccessToken)
			assert.Equal(t, want.Token.RefreshToken, got.Token.RefreshToken)
			assert.Equal(t, want.Token.TokenType, got.Token.TokenType)
			assert.True(t, want.Token.Expiry.Equal(got.Token.Expiry))
			assert.Equal(t, want.Scopes, got.Scopes)
			assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
			assert.True(t, want.ExpiresAt.Equal(got.ExpiresAt))
		})
	}
}

func TestStore_GetMissing(t *testing.T) {
	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			_, err := newStore(t).Get(context.Background(), "nope")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_PutReplacesToken(t *testing.T) {
	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			sess := testSession("abc", time.Time{})
			require.NoError(t, s.Put(ctx, sess))

			sess.Token.AccessToken = "rotated"
			require.NoError(t, s.Put(ctx, sess))

			got, err := s.Get(ctx, "abc")
			require.NoError(t, err)
			assert.Equal(t, "rotated", got.Token.AccessToken)
		})
	}
}

func TestStore_DeleteIdempotent(t *testing.T) {
	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			require.NoError(t, s.Put(ctx, testSession("abc", time.Time{})))
			require.NoError(t, s.Delete(ctx, "abc"))
			require.NoError(t, s.Delete(ctx, "abc"))

			_, err := s.Get(ctx, "abc")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_DeleteExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			require.NoError(t, s.Put(ctx, testSession("old", now.Add(-time.Minute))))
			require.NoError(t, s.Put(ctx, testSession("edge", now)))
			require.NoError(t, s.Put(ctx, testSession("fresh", now.Add(time.Hour))))
			require.NoError(t, s.Put(ctx, testSession("forever", time.Time{})))

			n, err := s.DeleteExpired(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			for _, id := range []string{"fresh", "forever"} {
				_, err := s.Get(ctx, id)
				assert.NoError(t, err, id)
			}

			for _, id := range []string{"old", "edge"} {
				_, err := s.Get(ctx, id)
				assert.ErrorIs(t, err, ErrNotFound, id)
			}
		})
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	sess := testSession("abc", time.Time{})
	require.NoError(t, s.Put(ctx, sess))

	sess.Token.AccessToken = "mutated-after-put"

	got, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "access-abc", got.Token.AccessToken)

	got.Token.AccessToken = "mutated-after-get"

	again, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "access-abc", again.Token.AccessToken)
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup

	for i := range 32 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			id := string(rune('a' + i%26))
			assert.NoError(t, s.Put(ctx, testSession(id, time.Time{})))
			_, _ = s.Get(ctx, id)
			assert.NoError(t, s.Delete(ctx, id))
		}()
	}

	wg.Wait()
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "sessions.db")

	s, err := OpenSQLiteStore(ctx, path, discardLogger())
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, testSession("persist", time.Time{})))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLiteStore(ctx, path, discardLogger())
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "persist")
	require.NoError(t, err)
	assert.Equal(t, "access-persist", got.Token.AccessToken)
}

func TestNewID(t *testing.T) {
	a, err := NewID()
	require.NoError(t, err)

	b, err := NewID()
	require.NoError(t, err)

	assert.Len(t, a, 2*idBytes)
	assert.NotEqual(t, a, b)
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()

	assert.False(t, (&Session{}).Expired(now))
	assert.False(t, (&Session{ExpiresAt: now.Add(time.Second)}).Expired(now))
	assert.True(t, (&Session{ExpiresAt: now}).Expired(now))
}
