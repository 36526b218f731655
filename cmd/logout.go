// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"ccmonitor/cli/internal/keychain"

	"github.com/spf13/cobra"
)

var logoutAll bool

// logoutCmd removes stored credentials from the keychain.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove saved bridge credentials",
	Long: `The logout command removes the bridge key, secret and IoT token from the OS
keychain. With --all the history database DSN is removed as well.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			fmt.Println("Nothing to remove: secure storage is not available on this system.")
			return nil
		}
		if logoutAll {
			err = km.ClearAll()
		} else {
			err = km.ClearCredentials()
		}
		if err != nil {
			return err
		}
		if logoutAll {
			fmt.Println("✅ Credentials and history connection have been removed")
		} else {
			fmt.Println("✅ Credentials have been removed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "Also remove the history database DSN")
}
