// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"ccmonitor/cli/internal/chaincode"

	"github.com/spf13/cobra"
)

var queryFlags callFlags

// queryCmd runs a single chaincode query and prints the result.
var queryCmd = &cobra.Command{
	Use:   "query FUNCTION [ARGS_JSON]",
	Short: "Run a chaincode query and print its result",
	Long: `The query command sends one read-only chaincode call through the bridge and prints
the response body. Arguments are a JSON object; empty values are dropped before the
call is sent. Use 'ccmonitor watch' to keep query results on screen and poll them.

Example:
  ccmonitor query readAsset '{"assetID":"A1"}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCall(cmd, args, chaincode.Query, &queryFlags)
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryFlags.register(queryCmd)
}
