package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"quorumcred/pkg/client"
	"quorumcred/pkg/domain"
)

func parseID(raw string) (domain.CredentialID, error) {
	id, err := domain.ParseCredentialID(raw)
	if err != nil {
		return 0, fmt.Errorf("credential id %q: %w", raw, err)
	}
	return id, nil
}

func newCreateCmd(g *globals) *cobra.Command {
	var (
		student     string
		signatures  int
		ref         string
		typeValue   string
		description string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a pending credential to a student",
		Long: `Issue a pending credential. The caller must hold the issuer role.

Metadata is either an existing reference (--ref) or a catalog type with a
description (--type, --description) that the registry publishes first.`,
		Example: `  credctl create --student 0x...51 --signatures 2 --type btech --description "Computer Science"
  credctl create --student 0x...51 --signatures 1 --ref ipfs://bafkrei...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, err := domain.ParseAddress(student)
			if err != nil {
				return fmt.Errorf("--student: %w", err)
			}
			if (ref == "") == (typeValue == "") {
				return fmt.Errorf("exactly one of --ref or --type is required")
			}
			c, err := g.authenticated(cmd.Context())
			if err != nil {
				return err
			}
			cred, err := c.CreateCredential(cmd.Context(), client.CreateParams{
				Student:            addr,
				RequiredSignatures: signatures,
				MetadataRef:        domain.MetadataRef(ref),
				MetadataType:       typeValue,
				Description:        description,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cred)
		},
	}
	f := cmd.Flags()
	f.StringVar(&student, "student", "", "student wallet address")
	f.IntVar(&signatures, "signatures", 1, "validator signatures required")
	f.StringVar(&ref, "ref", "", "existing metadata reference")
	f.StringVar(&typeValue, "type", "", "catalog credential type")
	f.StringVar(&description, "description", "", "description for a catalog type")
	_ = cmd.MarkFlagRequired("student")
	return cmd
}

func newSignCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "sign <credential-id>",
		Short: "Co-sign a credential as a validator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := g.authenticated(cmd.Context())
			if err != nil {
				return err
			}
			cred, err := c.SignCredential(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cred)
		},
	}
}

func newShowCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show <credential-id>",
		Short: "Show a credential with its signatures and status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cred, err := g.client().GetCredential(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cred)
		},
	}
}

func newListCmd(g *globals) *cobra.Command {
	var (
		student, issuer, signedBy string
		mine, pending             bool
		role                      string
		params                    client.ListParams
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Query the credential index",
		Example: `  credctl list --student 0x...51 --status valid
  credctl list --mine --role validator
  credctl list --pending`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, f := range []struct {
				raw  string
				name string
				dst  **domain.Address
			}{
				{student, "--student", &params.Student},
				{issuer, "--issuer", &params.Issuer},
				{signedBy, "--signed-by", &params.SignedBy},
			} {
				if f.raw == "" {
					continue
				}
				addr, err := domain.ParseAddress(f.raw)
				if err != nil {
					return fmt.Errorf("%s: %w", f.name, err)
				}
				*f.dst = &addr
			}

			ctx := cmd.Context()
			var (
				page *client.CredentialPage
				err  error
			)
			switch {
			case pending:
				c, authErr := g.authenticated(ctx)
				if authErr != nil {
					return authErr
				}
				page, err = c.PendingSignatures(ctx, params)
			case mine:
				c, authErr := g.authenticated(ctx)
				if authErr != nil {
					return authErr
				}
				page, err = c.MyCredentials(ctx, role, params)
			default:
				page, err = g.client().ListCredentials(ctx, params)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), page)
		},
	}
	f := cmd.Flags()
	f.StringVar(&student, "student", "", "filter by student")
	f.StringVar(&issuer, "issuer", "", "filter by issuer")
	f.StringVar(&signedBy, "signed-by", "", "filter by validator signature")
	f.StringVar(&params.Status, "status", "", "pending or valid")
	f.StringVar(&params.Search, "search", "", "text search over metadata labels")
	f.Uint64Var((*uint64)(&params.After), "after", 0, "return credentials with id greater than this")
	f.IntVar(&params.Limit, "limit", 0, "page size")
	f.Uint64Var(&params.MinSequence, "min-sequence", 0, "wait until the index has applied this feed sequence")
	f.BoolVar(&mine, "mine", false, "list the signed-in wallet's credentials")
	f.StringVar(&role, "role", "student", "with --mine: student, issuer or validator")
	f.BoolVar(&pending, "pending", false, "list credentials awaiting the signed-in validator")
	return cmd
}

func newAwaitCmd(g *globals) *cobra.Command {
	var interval, timeout time.Duration
	cmd := &cobra.Command{
		Use:   "await <credential-id>",
		Short: "Wait until a credential becomes valid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cred, err := g.client().AwaitValid(cmd.Context(), id, interval, timeout)
			if err != nil {
				if cred != nil {
					_ = printJSON(cmd.ErrOrStderr(), cred)
				}
				return err
			}
			return printJSON(cmd.OutOrStdout(), cred)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "poll interval")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "give up after this long")
	return cmd
}

func newEventsCmd(g *globals) *cobra.Command {
	var (
		after uint64
		limit int
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Replay the credential event feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, err := g.client().Events(cmd.Context(), after, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), page)
		},
	}
	cmd.Flags().Uint64Var(&after, "after", 0, "return events with a greater sequence")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size")
	return cmd
}
