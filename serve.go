package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/drive-explorer/internal/api"
	"github.com/tonimelisma/drive-explorer/internal/auth"
	"github.com/tonimelisma/drive-explorer/internal/config"
	"github.com/tonimelisma/drive-explorer/internal/drive"
	"github.com/tonimelisma/drive-explorer/internal/session"
)

// readHeaderTimeout bounds how long a client may take to send headers.
const readHeaderTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var (
		listen  string
		mock    bool
		pidFile string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP backend",
		Long: `Run the HTTP backend.

Without Google client credentials (or with --mock) the server uses a
simulated in-memory drive and a simulated sign-in, so the frontend can be
developed without a Google Cloud project.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cli := config.CLIOverrides{Mock: mock}
			if cmd.Flags().Changed("listen") {
				cli.ListenAddr = &listen
			}

			cfg, path, err := loadConfig(cli)
			if err != nil {
				return err
			}

			logger := buildLogger(&cfg.Logging, os.Stderr)

			if pidFile != "" {
				cleanup, err := writePIDFile(pidFile)
				if err != nil {
					return err
				}
				defer cleanup()
			}

			ln, err := net.Listen("tcp", cfg.Server.ListenAddr)
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.Server.ListenAddr, err)
			}

			logger.Info("starting server",
				slog.String("addr", ln.Addr().String()),
				slog.String("config", path),
				slog.Bool("mock", cfg.UseMock()),
				slog.String("version", version),
			)

			ctx := shutdownContext(cmd.Context(), logger)

			return runServer(ctx, cfg, ln, logger)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (host:port)")
	cmd.Flags().BoolVar(&mock, "mock", false, "use the simulated provider even when credentials are set")
	cmd.Flags().StringVar(&pidFile, "pid-file", "", "write the process ID to this file and hold a lock on it")

	return cmd
}

// backend is the assembled application: HTTP handler plus the pieces the
// serve loop manages directly.
type backend struct {
	handler http.Handler
	gateway *auth.Gateway
	store   session.Store
}

// buildBackend wires store, exchanger, gateway, connector and HTTP server
// from the resolved config.
func buildBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend, error) {
	store, err := openStore(ctx, &cfg.Sessions, logger)
	if err != nil {
		return nil, err
	}

	gateway := auth.NewGateway(buildExchanger(cfg), store, auth.Options{
		SessionTTL: cfg.Sessions.TTLDuration(),
	}, logger)

	srv := api.NewServer(api.Config{
		AppURL:         cfg.Server.AppURL,
		CookieSecure:   cfg.Server.CookieSecure,
		MaxUploadSize:  cfg.Server.MaxUploadBytes(),
		RequestTimeout: cfg.Server.RequestTimeoutDuration(),
		Version:        version,
	}, gateway, buildConnector(cfg, logger), logger)

	return &backend{handler: srv.Handler(), gateway: gateway, store: store}, nil
}

// openStore opens the configured session store.
func openStore(ctx context.Context, cfg *config.SessionsConfig, logger *slog.Logger) (session.Store, error) {
	if cfg.Backend == config.BackendSQLite {
		store, err := session.OpenSQLiteStore(ctx, cfg.DatabasePath(), logger)
		if err != nil {
			return nil, fmt.Errorf("opening session store: %w", err)
		}

		return store, nil
	}

	return session.NewMemoryStore(), nil
}

// buildExchanger returns the simulated sign-in in mock mode and Google's
// OAuth2 endpoints (or the configured override) otherwise.
func buildExchanger(cfg *config.Config) auth.Exchanger {
	if cfg.UseMock() {
		return auth.NewMockExchanger(cfg.Google.RedirectURI)
	}

	g := &cfg.Google

	return auth.NewOAuthExchanger(g.ClientID, g.ClientSecret, g.RedirectURI, nil, oauth2.Endpoint{
		AuthURL:  g.AuthURL,
		TokenURL: g.TokenURL,
	})
}

// buildConnector returns the provider connector for the configured mode.
// Live calls are bounded by the per-request context, not a client timeout,
// so long downloads are not cut short mid-stream.
func buildConnector(cfg *config.Config, logger *slog.Logger) drive.Connector {
	if cfg.UseMock() {
		return drive.NewMockConnector(drive.NewMock(logger))
	}

	return drive.NewLiveConnector(cfg.Google.Endpoint, &http.Client{}, logger)
}

// runServer serves on ln until ctx is canceled, then drains in-flight
// requests for up to the shutdown timeout. Expired sessions are pruned in
// the background when a prune interval is configured.
func runServer(ctx context.Context, cfg *config.Config, ln net.Listener, logger *slog.Logger) error {
	b, err := buildBackend(ctx, cfg, logger)
	if err != nil {
		ln.Close()
		return err
	}

	defer func() {
		if err := b.store.Close(); err != nil {
			logger.Warn("failed to close session store", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Handler:           b.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeoutDuration())
		defer cancel()

		logger.Info("shutting down server")

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}

		return nil
	})

	if interval := cfg.Sessions.PruneIntervalDuration(); interval > 0 {
		g.Go(func() error {
			prunePeriodically(gctx, b.gateway, interval, logger)
			return nil
		})
	}

	return g.Wait()
}

// prunePeriodically removes expired sessions every interval until ctx ends.
// Failures are logged and retried on the next tick.
func prunePeriodically(ctx context.Context, g *auth.Gateway, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := g.PruneExpired(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("session prune failed", slog.String("error", err.Error()))
			}
		}
	}
}
