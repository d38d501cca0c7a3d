package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quorumcred/pkg/domain"
)

func parseCapability(raw string) (domain.Capability, error) {
	for _, c := range domain.Capabilities {
		if string(c) == raw {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown role %q: expected issuer or validator", raw)
}

func newRolesCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Administer issuer and validator roles",
	}

	change := func(use, short string, grant bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <issuer|validator> <address>",
			Short: short,
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				capability, err := parseCapability(args[0])
				if err != nil {
					return err
				}
				addr, err := domain.ParseAddress(args[1])
				if err != nil {
					return fmt.Errorf("address: %w", err)
				}
				c := g.client()
				if grant {
					out, err := c.GrantRole(cmd.Context(), capability, addr)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), out)
				}
				out, err := c.RevokeRole(cmd.Context(), capability, addr)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			},
		}
	}

	list := &cobra.Command{
		Use:   "list <issuer|validator>",
		Short: "List the holders of a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			capability, err := parseCapability(args[0])
			if err != nil {
				return err
			}
			holders, err := g.client().RoleHolders(cmd.Context(), capability)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), holders)
		},
	}

	whoami := &cobra.Command{
		Use:   "whoami",
		Short: "Show the roles of the signed-in wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := g.authenticated(cmd.Context())
			if err != nil {
				return err
			}
			summary, err := c.MyRoles(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}

	cmd.AddCommand(
		change("grant", "Grant a role", true),
		change("revoke", "Revoke a role", false),
		list,
		whoami,
	)
	return cmd
}
