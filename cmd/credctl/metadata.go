package main

import (
	"github.com/spf13/cobra"

	"quorumcred/pkg/domain"
)

func newMetadataCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Publish and resolve credential metadata",
	}

	var typeValue, description string
	put := &cobra.Command{
		Use:     "put",
		Short:   "Publish a catalog metadata document and print its reference",
		Example: `  credctl metadata put --type mtech --description "Data Science"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := g.authenticated(cmd.Context())
			if err != nil {
				return err
			}
			out, err := c.PublishMetadata(cmd.Context(), typeValue, description)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	put.Flags().StringVar(&typeValue, "type", "", "catalog credential type")
	put.Flags().StringVar(&description, "description", "", "free-text description")
	_ = put.MarkFlagRequired("type")

	get := &cobra.Command{
		Use:   "get <ref>",
		Short: "Resolve a metadata reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := g.client().ResolveMetadata(cmd.Context(), domain.MetadataRef(args[0]))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.AddCommand(put, get)
	return cmd
}
