package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"ccmonitor/cli/internal/chaincode"
	cerrors "ccmonitor/cli/internal/errors"
	"ccmonitor/cli/internal/monitor"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	exportFrom   string
	exportFormat string
	exportOut    string
)

// exportCmd writes the result set of a running 'ccmonitor serve' to a file.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the tracked results of a running server as JSON or YAML",
	Long: `The export command reads the current result set from a running 'ccmonitor serve'
instance and writes it as JSON or YAML. Payloads are written as structured data.
'ccmonitor watch --export FILE' writes the same document when the watch ends.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		from := exportFrom
		if from == "" {
			st, err := loadSettings()
			if err != nil {
				return err
			}
			from = "http://" + st.Server.Listen
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		entries, err := fetchResults(ctx, from)
		if err != nil {
			return err
		}
		return exportTo(exportOut, entries, exportFormat)
	},
}

// exportEntry is an Entry with its payload decoded for readable output.
type exportEntry struct {
	ID        string         `json:"id" yaml:"id"`
	Function  string         `json:"function" yaml:"function"`
	Kind      chaincode.Kind `json:"kind" yaml:"kind"`
	Args      chaincode.Args `json:"args" yaml:"args"`
	Payload   any            `json:"payload" yaml:"payload"`
	Polling   bool           `json:"polling" yaml:"polling"`
	Removable bool           `json:"removable" yaml:"removable"`
	UpdatedAt time.Time      `json:"updated_at" yaml:"updated_at"`
}

func toExport(entries []monitor.Entry) []exportEntry {
	out := make([]exportEntry, 0, len(entries))
	for _, e := range entries {
		var payload any = e.Payload
		var decoded any
		if json.Unmarshal([]byte(e.Payload), &decoded) == nil {
			payload = decoded
		}
		out = append(out, exportEntry{
			ID:        e.ID,
			Function:  e.Function,
			Kind:      e.Kind,
			Args:      e.Args,
			Payload:   payload,
			Polling:   e.Polling,
			Removable: e.Removable,
			UpdatedAt: e.UpdatedAt,
		})
	}
	return out
}

// writeExport encodes entries in format, "json" or "yaml".
func writeExport(w io.Writer, entries []monitor.Entry, format string) error {
	doc := toExport(entries)
	switch strings.ToLower(format) {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return cerrors.New(cerrors.KindConfig, fmt.Sprintf("unknown export format %q (want json or yaml)", format))
	}
}

// exportTo writes to path, or stdout when path is empty or "-". The format
// defaults from the file extension.
func exportTo(path string, entries []monitor.Entry, format string) error {
	if format == "" && (strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")) {
		format = "yaml"
	}
	if path == "" || path == "-" {
		return writeExport(os.Stdout, entries, format)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := writeExport(f, entries, format); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func fetchResults(ctx context.Context, base string) ([]monitor.Entry, error) {
	url := strings.TrimRight(base, "/") + "/results"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindConfig, "invalid --from address", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindTransport, "is 'ccmonitor serve' running?", errors.Wrapf(err, "GET %s", url))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, cerrors.New(cerrors.KindTransport, fmt.Sprintf("GET %s: %s", url, resp.Status))
	}
	var entries []monitor.Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, cerrors.Wrap(cerrors.KindTransport, "decode results", err)
	}
	return entries, nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Server address (default: http:// + server.listen)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "json or yaml (default: from --out extension, else json)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default: stdout)")
}
