package cmd

import (
	"fmt"

	"ccmonitor/cli/internal/auth"
	"ccmonitor/cli/internal/logging"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// whoamiCmd shows which credentials and bridge the next call would use.
var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Aliases: []string{"me"},
	Short:   "Show the credentials and bridge in use",
	Long: `The whoami command shows the bridge key that will authenticate chaincode calls,
where it was loaded from, and the bridge and chaincode it will be sent to.
Secrets are never printed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadSettings()
		if err != nil {
			return err
		}
		creds, err := loadCredentials(keychainOrNil(logging.Discard()))
		if err != nil {
			return err
		}
		conn := st.Connection.Connection(creds.Key, creds.Secret, creds.IoTAuthToken)

		if !creds.Present() {
			fmt.Println("🔒 No credentials saved; the default key is used.")
			fmt.Println("   Run 'ccmonitor login' to set your own.")
		}
		source := string(creds.Source)
		if creds.Source == auth.SourceNone {
			source = "default"
		}
		rows := [][]string{
			{"Key", conn.Key},
			{"Secret", conn.Redacted().Secret},
			{"Source", source},
			{"Bridge", conn.BridgeURL},
			{"Chaincode", conn.ChaincodeID},
			{"Channel", conn.Channel},
		}
		if conn.IoTAuthToken != "" {
			rows = append(rows, []string{"IoT token", "set"})
		}
		return pterm.DefaultTable.WithData(rows).Render()
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
