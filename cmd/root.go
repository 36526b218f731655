// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for ccmonitor.
// It implements subcommands for querying and invoking chaincode through a
// JSON-RPC bridge, watching tracked query results live, serving the monitor
// over HTTP and managing credentials and configuration.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ccmonitor/cli/internal/config"
	"ccmonitor/cli/internal/logging"

	"github.com/spf13/cobra"
)

var (
	showVersion bool
	configPath  string
	logLevel    string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ccmonitor",
	Short: "Query, invoke and monitor chaincode through a JSON-RPC bridge",
	Long: `ccmonitor sends chaincode queries and invocations to a blockchain network through
a JSON-RPC bridge and keeps a live, de-duplicated table of query results. Tracked
queries can be polled on an interval, recorded to a payload history and served
over HTTP for other tools.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("ccmonitor %s\n", Version)
			if s, err := loadSettings(); err == nil {
				conn := s.Connection.Connection("", "", "")
				fmt.Printf("bridge    %s (%s)\n", conn.BridgeURL, transportKind(s.Transport))
				fmt.Printf("chaincode %s on %s\n", conn.ChaincodeID, conn.Channel)
			}
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the CLI application. SIGINT and SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, logging.Mask(err.Error()))
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show CLI version and the configured bridge")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the settings file (default: XDG config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log_level (trace, debug, info, warn, error, off)")
}

// settingsPath returns --config or the default location.
func settingsPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.Path()
}

// loadSettings reads the settings file and applies --log-level.
func loadSettings() (config.Settings, error) {
	p, err := settingsPath()
	if err != nil {
		return config.Settings{}, err
	}
	s, err := config.LoadFile(p)
	if err != nil {
		return config.Settings{}, err
	}
	if logLevel != "" {
		s.LogLevel = logLevel
	}
	return s, nil
}

// saveSettings writes s to the active settings path.
func saveSettings(s config.Settings) error {
	p, err := settingsPath()
	if err != nil {
		return err
	}
	return config.SaveFile(p, s)
}
