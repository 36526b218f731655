// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"ccmonitor/cli/internal/metrics"
	"ccmonitor/cli/internal/monitor"
	"ccmonitor/cli/internal/server"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	serveListen    string
	serveNoHistory bool
)

// serveCmd exposes one monitor session over HTTP.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the monitor over HTTP and WebSocket",
	Long: `The serve command runs a monitor session behind an HTTP API so dashboards and
scripts can share one result set:

  GET    /results                 tracked results
  POST   /results                 run a query {"function", "args"}
  POST   /invoke                  submit a transaction {"function", "args"}
  POST   /results/{ref}/polling   toggle polling (ref is an index or an id)
  PUT    /results/{ref}/removable {"removable": true|false}
  DELETE /results/{ref}           remove one result
  DELETE /results                 clear all results
  GET    /schema                  classified chaincode functions
  GET    /config, PUT /config     connection settings (secrets are never returned)
  GET    /events                  WebSocket stream of result set changes
  GET    /metrics                 Prometheus metrics

The server stops gracefully on Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		m := metrics.PrometheusMetrics()
		s, err := openSession(sessionOptions{
			notifier: monitor.NotifierFunc(func(msg string) { pterm.Warning.Println(msg) }),
			metrics:  m,
		})
		if err != nil {
			return err
		}
		defer s.Close()

		if !serveNoHistory {
			stopHistory, err := s.startHistory(ctx)
			if err != nil {
				return err
			}
			defer stopHistory()
		}
		poller := s.startPoller(ctx, 0)
		defer poller.Stop()

		addr := serveListen
		if addr == "" {
			addr = s.settings.Server.Listen
		}
		srv := server.New(server.Deps{
			Engine:  s.engine,
			Store:   s.store,
			Schema:  s.schema,
			Init:    s.initializer(),
			Metrics: metrics.Handler(),
			Log:     s.log,
		})
		pterm.Info.Printfln("Serving chaincode %s on http://%s", s.store.Read().ChaincodeID, addr)
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default: server.listen)")
	serveCmd.Flags().BoolVar(&serveNoHistory, "no-history", false, "Do not record payload history")
}
