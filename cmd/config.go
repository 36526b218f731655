// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"ccmonitor/cli/internal/config"
	"ccmonitor/cli/internal/logging"
	"ccmonitor/cli/internal/terminal"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	configShowJSON bool
	configNoInit   bool
	configYes      bool
)

// configCmd groups the settings subcommands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
	Long: `Settings live in config.json in the XDG config directory and can be overridden
with CCMONITOR_* environment variables (for example CCMONITOR_CONNECTION_BRIDGE_URL).
Secrets are not part of the settings; use 'ccmonitor login' and 'ccmonitor connect'.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		if configShowJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		}
		rows := append([][]string{{"Setting", "Value"}}, flattenSettings(s)...)
		if p, err := settingsPath(); err == nil {
			pterm.FgGray.Println(p)
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Change one setting",
	Long: `The set command changes one setting and saves the file. Keys are dotted paths as
shown by 'ccmonitor config show'; lists are comma separated.

When a connection setting changes, the bridge is asked to re-initialize its client
(skipped with --no-init or when the gRPC transport is used).

Example:
  ccmonitor config set connection.polling_interval_ms 5000`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cur, err := loadSettings()
		if err != nil {
			return err
		}
		next, err := applySetting(cur, args[0], args[1])
		if err != nil {
			return err
		}
		if err := saveSettings(next); err != nil {
			return err
		}
		pterm.Success.Printfln("%s saved", strings.ToLower(args[0]))

		if !configNoInit && next.Connection != cur.Connection {
			reinitBridge(cmd.Context())
		}
		return nil
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !configYes {
			answer, err := terminal.NewPrompter().ReadLine("Reset all settings to defaults? [y/N] ")
			if err != nil {
				return err
			}
			if a := strings.ToLower(answer); a != "y" && a != "yes" {
				fmt.Println("Nothing changed.")
				return nil
			}
		}
		if err := saveSettings(config.Defaults()); err != nil {
			return err
		}
		pterm.Success.Println("Settings reset to defaults")
		if !configNoInit {
			reinitBridge(cmd.Context())
		}
		return nil
	},
}

// reinitBridge hands the saved connection to the bridge. Failures only warn;
// the settings are already saved.
func reinitBridge(parent context.Context) {
	s, err := openSession(sessionOptions{})
	if err != nil {
		pterm.Warning.Println(logging.PresentError("bridge not re-initialized", err))
		return
	}
	defer s.Close()
	in := s.initializer()
	if in == nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, 10*time.Second)
	defer cancel()
	if err := in.InitClient(ctx, s.store.Read()); err != nil {
		pterm.Warning.Println(logging.PresentError("bridge not re-initialized", err))
		return
	}
	pterm.Info.Println("Bridge client re-initialized")
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configSetCmd, configResetCmd)
	configShowCmd.Flags().BoolVar(&configShowJSON, "json", false, "Print the settings file as JSON")
	configSetCmd.Flags().BoolVar(&configNoInit, "no-init", false, "Do not re-initialize the bridge client")
	configResetCmd.Flags().BoolVar(&configNoInit, "no-init", false, "Do not re-initialize the bridge client")
	configResetCmd.Flags().BoolVarP(&configYes, "yes", "y", false, "Do not ask for confirmation")
}
