package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/drive-explorer/internal/config"
)

// serverStatus mirrors the JSON body of GET /api/status.
type serverStatus struct {
	Status  string `json:"status"`
	Mode    string `json:"mode"`
	Version string `json:"version"`
}

func newStatusCmd() *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query a running server",
		Long: `Query a running server's /api/status endpoint.

By default the server at the configured listen address is queried; use --url
to reach one elsewhere.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if baseURL == "" {
				cfg, _, err := loadConfig(config.CLIOverrides{})
				if err != nil {
					return err
				}

				baseURL = localURL(cfg.Server.ListenAddr)
			}

			st, err := fetchStatus(cmd, defaultHTTPClient(), baseURL)
			if err != nil {
				return err
			}

			if flagJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")

				return enc.Encode(st)
			}

			printFields(cmd.OutOrStdout(), [][2]string{
				{"Server", baseURL},
				{"Status", st.Status},
				{"Mode", st.Mode},
				{"Version", st.Version},
			})

			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "", "server base URL (default: derived from server.listen_addr)")

	return cmd
}

// localURL turns a listen address into a URL reachable from this host.
// Wildcard hosts are replaced with loopback.
func localURL(listenAddr string) string {
	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return "http://" + listenAddr
	}

	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	return "http://" + net.JoinHostPort(host, port)
}

func fetchStatus(cmd *cobra.Command, client *http.Client, baseURL string) (*serverStatus, error) {
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet,
		strings.TrimSuffix(baseURL, "/")+"/api/status", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("building status request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server not reachable at %s: %w", baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server at %s returned HTTP %d", baseURL, resp.StatusCode)
	}

	var st serverStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decoding status response: %w", err)
	}

	return &st, nil
}
