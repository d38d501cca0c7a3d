// Package main is credctl, a command line client for the quorumcred API.
package main

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"quorumcred/internal/walletauth"
	"quorumcred/pkg/client"
	"quorumcred/pkg/domain"
)

// globals holds the persistent flags shared by every command.
type globals struct {
	server     string
	token      string
	key        string
	adminToken string
	adminActor string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   "credctl",
		Short: "Issue, co-sign and inspect quorum credentials",
		Long: `credctl talks to a quorumcred registry.

Wallet commands sign in with the key given by --key (or CREDCTL_KEY) unless a
bearer token is supplied with --token. Role administration uses the operator
token given by --admin-token.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&g.server, "server", envOr("CREDCTL_SERVER", "http://localhost:8080"), "registry base URL")
	flags.StringVar(&g.token, "token", os.Getenv("CREDCTL_TOKEN"), "bearer token")
	flags.StringVar(&g.key, "key", os.Getenv("CREDCTL_KEY"), "hex-encoded wallet private key used to sign in")
	flags.StringVar(&g.adminToken, "admin-token", os.Getenv("CREDCTL_ADMIN_TOKEN"), "operator token for role administration")
	flags.StringVar(&g.adminActor, "admin-actor", envOr("CREDCTL_ADMIN_ACTOR", "credctl"), "operator id recorded in the audit trail")

	root.AddCommand(
		newLoginCmd(g),
		newCreateCmd(g),
		newSignCmd(g),
		newShowCmd(g),
		newListCmd(g),
		newAwaitCmd(g),
		newEventsCmd(g),
		newRolesCmd(g),
		newMetadataCmd(g),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (g *globals) client() *client.Client {
	return client.New(g.server,
		client.WithToken(g.token),
		client.WithAdminToken(g.adminToken, g.adminActor),
	)
}

// wallet parses --key into a signing key and its address.
func (g *globals) wallet() (*ecdsa.PrivateKey, domain.Address, error) {
	if g.key == "" {
		return nil, domain.Address{}, errors.New("--key or CREDCTL_KEY is required")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(g.key, "0x"))
	if err != nil {
		return nil, domain.Address{}, fmt.Errorf("parse --key: %w", err)
	}
	return key, domain.Address(crypto.PubkeyToAddress(key.PublicKey)), nil
}

// authenticated returns a client carrying a bearer token, signing in with
// --key when no token was given.
func (g *globals) authenticated(ctx context.Context) (*client.Client, error) {
	c := g.client()
	if g.token != "" {
		return c, nil
	}
	key, addr, err := g.wallet()
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if _, err := c.Login(ctx, addr, func(msg string) (string, error) {
		return walletauth.SignMessage(msg, key)
	}); err != nil {
		return nil, err
	}
	return c, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
