// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"os"
	"strings"
	"time"

	"ccmonitor/cli/internal/dsn"
	cerrors "ccmonitor/cli/internal/errors"
	"ccmonitor/cli/internal/history"
	"ccmonitor/cli/internal/logging"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	historyLimit    int
	historyFunction string
	historySource   string
	historyInfo     bool
)

// historyCmd lists recorded payloads, newest first.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded query results",
	Long: `The history command lists the payloads recorded while watching or serving, newest
first. Records come from the PostgreSQL history database when one is configured
with 'ccmonitor connect', otherwise from the local journal.

With --info it shows where history is written instead, with the database password
masked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadSettings()
		if err != nil {
			return err
		}
		j, err := openJournal(st.History)
		if err != nil {
			return err
		}
		defer j.Close()
		raw := historyDSN(keychainOrNil(logging.Discard()))

		if historyInfo {
			return printHistoryInfo(j.Path(), raw, st.History.Disabled)
		}

		var reader history.Reader = j
		src := strings.ToLower(historySource)
		switch src {
		case "journal":
		case "postgres":
			if raw == "" {
				return cerrors.New(cerrors.KindConfig, "no history database configured; run 'ccmonitor connect'")
			}
			fallthrough
		case "", "auto":
			if raw == "" {
				break
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			pg, err := history.OpenPostgres(ctx, raw)
			cancel()
			if err != nil {
				if src == "postgres" {
					return err
				}
				pterm.Warning.Println(logging.PresentError("history database unavailable, reading the journal", err))
				break
			}
			defer pg.Close()
			reader = pg
		default:
			return cerrors.New(cerrors.KindConfig, "--source must be auto, journal or postgres")
		}

		recs, err := reader.Recent(cmd.Context(), historyLimit, historyFunction)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			pterm.Info.Println("No history recorded yet.")
			return nil
		}
		return pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(historyRows(recs)).Render()
	},
}

func historyRows(recs []history.Record) [][]string {
	rows := [][]string{{"Recorded", "Event", "Function", "Args", "Payload"}}
	for _, r := range recs {
		rows = append(rows, []string{
			r.At.Local().Format("2006-01-02 15:04:05"),
			r.Event,
			r.Function,
			logging.Truncate(string(r.Args), 40),
			logging.Truncate(string(r.Payload), 72),
		})
	}
	return rows
}

func printHistoryInfo(journal, rawDSN string, disabled bool) error {
	target := "not configured (run 'ccmonitor connect')"
	if rawDSN != "" {
		if info, err := dsn.Parse(rawDSN); err == nil {
			target = info.Redacted()
		} else {
			target = logging.Mask(rawDSN)
		}
		if os.Getenv(EnvHistoryDSN) != "" {
			target += " (from " + EnvHistoryDSN + ")"
		}
	}
	status := "enabled"
	if disabled {
		status = "disabled (history.disabled)"
	}
	pterm.DefaultBox.
		WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Payload history")).
		WithPadding(1).
		Println("Recording: " + status + "\nJournal:   " + journal + "\nDatabase:  " + target)
	return nil
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of records to show")
	historyCmd.Flags().StringVarP(&historyFunction, "function", "f", "", "Only show records of this function")
	historyCmd.Flags().StringVar(&historySource, "source", "auto", "Where to read from: auto, journal or postgres")
	historyCmd.Flags().BoolVar(&historyInfo, "info", false, "Show where history is written")
}
