package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// forceExit ends the process when a second signal arrives during the drain.
// Replaced in tests.
var forceExit = os.Exit

// shutdownContext returns a context that ends when SIGINT or SIGTERM arrives.
// Canceling it makes serve stop accepting connections and wait up to
// server.shutdown_timeout for in-flight requests. A second signal while
// requests are still draining exits with status 1.
func shutdownContext(parent context.Context, logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		select {
		case <-ctx.Done():
			return
		case sig := <-sigCh:
			logger.Info("signal received, draining HTTP requests",
				slog.String("signal", sig.String()),
			)
			cancel()
		}

		select {
		case <-parent.Done():
		case sig := <-sigCh:
			logger.Warn("second signal while draining requests, exiting now",
				slog.String("signal", sig.String()),
			)
			forceExit(1)
		}
	}()

	return ctx
}
