package cmd

import (
	"ccmonitor/cli/internal/chaincode"

	"github.com/spf13/cobra"
)

var invokeFlags callFlags

// invokeCmd submits a chaincode transaction.
var invokeCmd = &cobra.Command{
	Use:   "invoke FUNCTION [ARGS_JSON]",
	Short: "Submit a chaincode transaction",
	Long: `The invoke command submits one transaction through the bridge and prints the
response body. Invocations are never tracked; query the affected state afterwards
to see the change.

Example:
  ccmonitor invoke createAsset '{"assetID":"A1","temperature":9}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCall(cmd, args, chaincode.Invoke, &invokeFlags)
	},
}

func init() {
	rootCmd.AddCommand(invokeCmd)
	invokeFlags.register(invokeCmd)
}
