// Package testutil provides shared helpers for end-to-end tests that run
// the built binary. It depends only on the standard library so that E2E
// tests (which cannot import internal/) can use it.
package testutil

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// FreeAddr returns a loopback host:port that was free at the time of the
// call.
func FreeAddr() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("finding free port: %w", err)
	}
	defer ln.Close()

	return ln.Addr().String(), nil
}

// WaitForHTTP polls url until it answers 200 or timeout elapses.
func WaitForHTTP(ctx context.Context, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return err
		}

		if resp, err := http.DefaultClient.Do(req); err == nil {
			resp.Body.Close()

			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s not ready after %s", url, timeout)
		case <-ticker.C:
		}
	}
}

// IsolatedEnv returns environment variables that point HOME and the XDG
// directories at fresh subdirectories of root, so a test binary never reads
// or writes the developer's real config and data.
func IsolatedEnv(root string) ([]string, error) {
	dirs := map[string]string{
		"HOME":            filepath.Join(root, "home"),
		"XDG_CONFIG_HOME": filepath.Join(root, "config"),
		"XDG_DATA_HOME":   filepath.Join(root, "data"),
	}

	env := make([]string, 0, len(dirs))

	for k, dir := range dirs {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating %s: %w", k, err)
		}

		env = append(env, k+"="+dir)
	}

	return env, nil
}
