package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quorumcred/internal/walletauth"
)

func newLoginCmd(g *globals) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a wallet key and print the bearer token",
		Example: `  # Export the token for later commands
  export CREDCTL_TOKEN=$(credctl login --key "$ISSUER_KEY" --quiet)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, addr, err := g.wallet()
			if err != nil {
				return err
			}
			token, err := g.client().Login(cmd.Context(), addr, func(msg string) (string, error) {
				return walletauth.SignMessage(msg, key)
			})
			if err != nil {
				return err
			}
			if quiet {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), token.AccessToken)
				return err
			}
			return printJSON(cmd.OutOrStdout(), token)
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the access token")
	return cmd
}
