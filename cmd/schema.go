package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"ccmonitor/cli/internal/schema"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	schemaJSON      bool
	schemaShowEmpty bool
)

// schemaCmd lists the functions the chaincode declares, grouped by operation tab.
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show the functions the chaincode declares",
	Long: `The schema command asks the bridge for the chaincode's API description and groups
the declared functions under the configured operation tabs (CREATE, READ, UPDATE, ...).
A chaincode that reports an error is shown as having no functions.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		note := &lastMessage{}
		s, err := openSession(sessionOptions{notifier: note})
		if err != nil {
			return err
		}
		defer s.Close()

		stop := startInlineSpinner(os.Stderr, "reading schema", spinnerFrames, 100*time.Millisecond)
		var sink schema.FormSink = schema.PtermSink{Out: os.Stdout, ShowEmpty: schemaShowEmpty}
		if schemaJSON {
			sink = jsonSink{}
		}
		c, err := s.schema.Fetch(cmd.Context(), s.store.Read())
		stop()
		if err != nil {
			return callFailure(err, note.String(), "reading the schema")
		}
		if msg := note.String(); msg != "" && !schemaJSON {
			fmt.Fprintln(os.Stderr, pterm.Warning.Sprint(msg))
		}
		sink.BindOperations(c)
		return nil
	},
}

// jsonSink writes the classification tabs as indented JSON.
type jsonSink struct{}

func (jsonSink) BindOperations(c schema.Classification) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(c.Tabs)
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().BoolVar(&schemaJSON, "json", false, "Print the classification as JSON")
	schemaCmd.Flags().BoolVar(&schemaShowEmpty, "all", false, "Include tabs without functions")
}
