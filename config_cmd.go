package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/drive-explorer/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		RunE:  runConfigShow,
	}
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, path, err := loadConfig(config.CLIOverrides{})
	if err != nil {
		return err
	}

	if flagJSON {
		shown := *cfg
		if shown.Google.ClientSecret != "" {
			shown.Google.ClientSecret = "(set, hidden)"
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")

		return enc.Encode(&shown)
	}

	return config.RenderEffective(cfg, path, cmd.OutOrStdout())
}
