package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"ccmonitor/cli/internal/chaincode"
	cerrors "ccmonitor/cli/internal/errors"
	"ccmonitor/cli/internal/httperrors"
	"ccmonitor/cli/internal/logging"
	"ccmonitor/cli/internal/monitor"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/status"
)

// callFlags are shared by query and invoke.
type callFlags struct {
	args string
	raw  bool
}

func (f *callFlags) register(c *cobra.Command) {
	c.Flags().StringVarP(&f.args, "args", "a", "", `Arguments as a JSON object, e.g. '{"assetID":"A1"}'`)
	c.Flags().BoolVar(&f.raw, "raw", false, "Print the response body without formatting")
}

// runCall submits one call through a fresh engine and prints the response.
// A positional second argument is accepted in place of --args.
func runCall(cmd *cobra.Command, args []string, kind chaincode.Kind, f *callFlags) error {
	rawArgs := f.args
	if len(args) > 1 {
		if rawArgs != "" {
			return cerrors.New(cerrors.KindConfig, "pass arguments either positionally or with --args, not both")
		}
		rawArgs = args[1]
	}
	callArgs, err := parseArgs(rawArgs)
	if err != nil {
		return err
	}

	note := &lastMessage{}
	s, err := openSession(sessionOptions{notifier: note})
	if err != nil {
		return err
	}
	defer s.Close()

	stop := startInlineSpinner(os.Stderr, fmt.Sprintf("%s %s", kind, args[0]), spinnerFrames, 100*time.Millisecond)
	out := s.engine.Submit(cmd.Context(), callArgs, args[0], kind)
	stop()

	if out.Err != nil {
		return callFailure(out.Err, note.String(), "calling "+args[0])
	}
	printOutcome(out, f.raw)
	return nil
}

// callFailure prints troubleshooting help for transport failures and returns
// the notification text as the command error.
func callFailure(err error, note, doing string) error {
	if cerrors.Is(err, cerrors.KindTransport) {
		if _, ok := status.FromError(err); ok {
			fmt.Fprintln(os.Stderr, logging.FormatBridgeError(err))
		} else {
			_ = httperrors.FormatNetworkError(err, doing)
		}
	}
	if note == "" {
		note = cerrors.MessageOf(err)
	}
	return errors.New(note)
}

func printOutcome(out monitor.Outcome, raw bool) {
	if raw {
		fmt.Println(out.Payload)
		return
	}
	if out.Appended {
		pterm.Success.Printfln("Tracking %s as %s", out.Entry.Function, shortID(out.Entry.ID))
	}
	fmt.Println(prettyJSON(out.Payload))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
