// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"ccmonitor/cli/internal/auth"
	cerrors "ccmonitor/cli/internal/errors"
	"ccmonitor/cli/internal/keychain"
	"ccmonitor/cli/internal/terminal"

	"github.com/spf13/cobra"
)

var (
	loginKey      string
	loginForce    bool
	loginIoTToken bool
)

// loginCmd stores the bridge key and secret in the OS keychain.
var loginCmd = &cobra.Command{
	Use:     "login",
	Aliases: []string{"auth"},
	Short:   "Save bridge credentials to the OS keychain",
	Long: `The login command prompts for the key and secret the bridge expects in its Basic
auth header and stores them in the OS keychain. The secret is read without echo.

CCMONITOR_KEY and CCMONITOR_SECRET take precedence over stored credentials, which
is useful in CI where no keychain is available.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			fmt.Println("❌ Secure storage is not available on this system.")
			fmt.Println("   Set CCMONITOR_KEY and CCMONITOR_SECRET instead.")
			return cerrors.Wrap(cerrors.KindCredentials, "open keychain", err)
		}

		if cur, err := auth.Load(km); err == nil && cur.Present() && !loginForce {
			fmt.Printf("Already logged in as %s (%s)\n", cur.Key, cur.Source)
			fmt.Println("   Use --force to replace the stored credentials.")
			return nil
		}

		p := terminal.NewPrompter()
		key := loginKey
		if key == "" {
			if key, err = p.ReadLine("Bridge key: "); err != nil {
				return err
			}
		}
		secret, err := p.ReadSecret("Bridge secret: ")
		if err != nil {
			return err
		}
		creds := auth.Credentials{Key: key, Secret: secret}
		if loginIoTToken {
			if creds.IoTAuthToken, err = p.ReadSecret("IoT platform token: "); err != nil {
				return err
			}
		}
		if err := auth.Save(km, creds); err != nil {
			return cerrors.Wrap(cerrors.KindCredentials, "save credentials", err)
		}

		fmt.Printf("✅ Credentials saved for %s\n", key)
		if cur, err := auth.Load(km); err == nil && cur.Source == auth.SourceEnv {
			fmt.Printf("   Note: %s/%s are set and take precedence.\n", auth.EnvKey, auth.EnvSecret)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVar(&loginKey, "key", "", "Bridge key (prompted when omitted)")
	loginCmd.Flags().BoolVar(&loginForce, "force", false, "Replace existing credentials")
	loginCmd.Flags().BoolVar(&loginIoTToken, "iot-token", false, "Also prompt for an IoT platform auth token")
}
