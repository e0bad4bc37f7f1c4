package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/drive-explorer/internal/config"
	"github.com/tonimelisma/drive-explorer/internal/session"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage stored sessions",
	}

	cmd.AddCommand(newSessionsPruneCmd())

	return cmd
}

func newSessionsPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove expired sessions from the session database",
		Long: `Remove expired sessions from the session database.

Only the sqlite backend persists sessions across restarts, so this command
requires sessions.backend = "sqlite". It is safe to run while the server is up.`,
		RunE: runSessionsPrune,
	}
}

// errNoDatabase is returned when pruning is requested for the memory backend.
var errNoDatabase = errors.New("sessions prune requires sessions.backend = \"sqlite\"")

func runSessionsPrune(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(config.CLIOverrides{})
	if err != nil {
		return err
	}

	if cfg.Sessions.Backend != config.BackendSQLite {
		return errNoDatabase
	}

	logger := buildLogger(&cfg.Logging, os.Stderr)

	store, err := session.OpenSQLiteStore(cmd.Context(), cfg.Sessions.DatabasePath(), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.DeleteExpired(cmd.Context(), time.Now())
	if err != nil {
		return err
	}

	logger.Debug("pruned sessions", slog.Int("count", n))

	if flagJSON {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]int{"removed": n})
	}

	statusf(flagQuiet, "Removed %d expired %s.\n", n, plural(n, "session", "sessions"))

	return nil
}
