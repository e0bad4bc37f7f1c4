package session

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"golang.org/x/oauth2"

	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQL statements for session operations.
const (
	sqlGetSession = `SELECT id, access_token, refresh_token, token_type, token_expiry,
		scopes, created_at, expires_at
		FROM sessions WHERE id = ?`

	sqlUpsertSession = `INSERT INTO sessions
		(id, access_token, refresh_token, token_type, token_expiry, scopes, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		 access_token = excluded.access_token,
		 refresh_token = excluded.refresh_token,
		 token_type = excluded.token_type,
		 token_expiry = excluded.token_expiry,
		 scopes = excluded.scopes,
		 expires_at = excluded.expires_at`

	sqlDeleteSession = `DELETE FROM sessions WHERE id = ?`

	sqlDeleteExpired = `DELETE FROM sessions WHERE expires_at > 0 AND expires_at <= ?`
)

// SQLiteStore persists sessions in a SQLite database so they survive
// restarts. Tokens are stored in clear text; the database file must be
// protected like any other credential file.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Owner-only permissions for the database and its directory.
const (
	dbFilePerms = 0o600
	dbDirPerms  = 0o700
)

// OpenSQLiteStore opens (creating if needed) the database at dbPath, applies
// pending migrations and returns a ready store.
func OpenSQLiteStore(ctx context.Context, dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), dbDirPerms); err != nil {
		return nil, fmt.Errorf("session: creating database directory: %w", err)
	}

	// DSN parameters ensure pragmas apply to every connection from the pool.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("session: opening database %s: %w", dbPath, err)
	}

	// Single writer; SQLite serializes writes anyway and this avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	restrictPerms(dbPath, logger)

	logger.Info("session store opened", slog.String("db_path", dbPath))

	return &SQLiteStore{db: db, logger: logger}, nil
}

// runMigrations applies all pending schema migrations to the database.
// Uses the goose v3 Provider API (no global state, context-aware).
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("session: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("session: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("session: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// Get loads a session by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	var (
		sess                          Session
		tok                           oauth2.Token
		scopes                        string
		tokenExpiry, created, expires int64
	)

	err := s.db.QueryRowContext(ctx, sqlGetSession, id).Scan(
		&sess.ID, &tok.AccessToken, &tok.RefreshToken, &tok.TokenType, &tokenExpiry,
		&scopes, &created, &expires,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("session: loading session: %w", err)
	}

	tok.Expiry = fromUnixNano(tokenExpiry)
	sess.Token = &tok
	sess.CreatedAt = fromUnixNano(created)
	sess.ExpiresAt = fromUnixNano(expires)

	if scopes != "" {
		sess.Scopes = strings.Fields(scopes)
	}

	return &sess, nil
}

// Put inserts or replaces a session. CreatedAt is kept from the first insert.
func (s *SQLiteStore) Put(ctx context.Context, sess *Session) error {
	tok := sess.Token
	if tok == nil {
		tok = &oauth2.Token{}
	}

	_, err := s.db.ExecContext(ctx, sqlUpsertSession,
		sess.ID, tok.AccessToken, tok.RefreshToken, tok.TokenType, toUnixNano(tok.Expiry),
		strings.Join(sess.Scopes, " "), toUnixNano(sess.CreatedAt), toUnixNano(sess.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("session: saving session: %w", err)
	}

	return nil
}

// Delete removes a session; missing ids are ignored.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, sqlDeleteSession, id); err != nil {
		return fmt.Errorf("session: deleting session: %w", err)
	}

	return nil
}

// DeleteExpired removes sessions whose lifetime ended at or before now.
func (s *SQLiteStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, sqlDeleteExpired, now.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("session: deleting expired sessions: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("session: counting expired sessions: %w", err)
	}

	return int(n), nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// restrictPerms limits the database file to its owner. Failure is logged,
// not fatal: the file may live on a filesystem without POSIX permissions.
func restrictPerms(dbPath string, logger *slog.Logger) {
	if err := os.Chmod(dbPath, dbFilePerms); err != nil {
		logger.Warn("could not restrict session database permissions",
			slog.String("db_path", dbPath),
			slog.String("error", err.Error()),
		)
	}
}

// toUnixNano maps the zero time to 0 so it round-trips.
func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}

	return time.Unix(0, n).UTC()
}
