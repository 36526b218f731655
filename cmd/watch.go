// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"context"
	"os"
	"strings"
	"time"

	"ccmonitor/cli/internal/chaincode"
	cerrors "ccmonitor/cli/internal/errors"
	"ccmonitor/cli/internal/monitor"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	watchQueries   []string
	watchPoll      bool
	watchInterval  time.Duration
	watchExport    string
	watchFormat    string
	watchNoHistory bool
)

// watchCmd keeps a live table of query results and reads commands from stdin.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Track query results live and poll them",
	Long: `The watch command shows a live table of tracked query results. Running the same
query again updates its row in place; a new query adds a row. Rows with polling on
are re-queried on the configured interval.

Commands are read from stdin while the table is shown:
  q FN [ARGS_JSON]     run a query          i FN [ARGS_JSON]   submit a transaction
  p REF                toggle polling       r REF              remove a result
  k REF on|off         mark removable       c                  clear all results
  t MS                 set poll interval    s                  list chaincode functions
  x                    quit

REF is a row number or a result id. Payloads are recorded to the history journal
unless --no-history is set.

Example:
  ccmonitor watch --query 'readAsset {"assetID":"A1"}' --poll`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var initial []watchAction
		for _, q := range watchQueries {
			a, err := parseWatchLine("q " + q)
			if err != nil {
				return cerrors.Wrap(cerrors.KindConfig, "--query "+q, err)
			}
			initial = append(initial, a)
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		s, err := openSession(sessionOptions{})
		if err != nil {
			return err
		}
		defer s.Close()

		events, unsubscribe, err := s.engine.Subscribe(ctx)
		if err != nil {
			return err
		}
		r := monitor.NewRenderer()
		if err := r.Start(); err != nil {
			unsubscribe()
			return err
		}
		r.SetFooter(watchHelp)
		rendered := make(chan struct{})
		go func() {
			defer close(rendered)
			for ev := range events {
				r.Render(ev)
			}
		}()

		stopHistory := func() {}
		if !watchNoHistory {
			if stopHistory, err = s.startHistory(ctx); err != nil {
				r.Stop()
				unsubscribe()
				return err
			}
		}
		poller := s.startPoller(ctx, watchInterval)

		for _, a := range initial {
			out := s.engine.Submit(ctx, a.args, a.fn, chaincode.Query)
			if watchPoll && out.Appended {
				_, _ = s.engine.TogglePolling(ctx, monitor.ByID(out.Entry.ID))
			}
		}

		runner := &watchRunner{engine: s.engine, store: s.store, schema: s.schema, notify: r.Notify}
		readInput(ctx, runner, r)

		poller.Stop()
		final, _ := s.engine.Entries(context.Background())
		unsubscribe()
		<-rendered
		r.Stop()
		stopHistory()

		if watchExport != "" {
			if err := exportTo(watchExport, final, watchFormat); err != nil {
				return err
			}
			if watchExport != "-" {
				pterm.Success.Printfln("Exported %d results to %s", len(final), watchExport)
			}
		}
		return nil
	},
}

// readInput applies stdin lines until quit or ctx ends. Closed stdin keeps
// the view running until interrupted.
func readInput(ctx context.Context, runner *watchRunner, r *monitor.Renderer) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			a, err := parseWatchLine(line)
			if err != nil {
				r.Notify(cerrors.MessageOf(err))
				continue
			}
			if runner.apply(ctx, a) {
				return
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringArrayVarP(&watchQueries, "query", "q", nil, `Query to track at start, as 'FUNCTION [ARGS_JSON]' (repeatable)`)
	watchCmd.Flags().BoolVar(&watchPoll, "poll", false, "Enable polling for the --query results")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Polling interval (default: connection.polling_interval_ms)")
	watchCmd.Flags().StringVar(&watchExport, "export", "", "Write the final results to this file on exit ('-' for stdout)")
	watchCmd.Flags().StringVar(&watchFormat, "format", "", "Export format: json or yaml (default: from --export extension)")
	watchCmd.Flags().BoolVar(&watchNoHistory, "no-history", false, "Do not record payload history")
}
