// Package main mints bearer tokens and throwaway wallet keys for local
// testing. Tokens use the dev signing key unless -key is given and will NOT
// work against a production deployment.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"quorumcred/internal/walletauth"
	"quorumcred/pkg/domain"
)

const (
	// Dev signing key - matches config.go when JWT_SIGNING_KEY is not set
	devSigningKey = "dev-secret-key-change-in-production"

	defaultBaseURL  = "http://localhost:8080"
	defaultTokenTTL = 15 * time.Minute
)

type tokenOutput struct {
	Token     string            `json:"token"`
	Type      string            `json:"type"`
	Address   string            `json:"address"`
	ExpiresAt time.Time         `json:"expires_at"`
	Usage     map[string]string `json:"usage"`
}

type keyOutput struct {
	Address    string `json:"address"`
	PrivateKey string `json:"private_key"`
}

func main() {
	tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
	tokenAddress := tokenCmd.String("address", "", "Wallet address the token is issued to (required)")
	tokenTTL := tokenCmd.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	tokenKey := tokenCmd.String("key", devSigningKey, "HS256 signing key (JWT_SIGNING_KEY)")
	tokenJSON := tokenCmd.Bool("json", false, "Output as JSON")

	keyCmd := flag.NewFlagSet("key", flag.ExitOnError)
	keyJSON := keyCmd.Bool("json", false, "Output as JSON")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "token":
		_ = tokenCmd.Parse(os.Args[2:])
		generateToken(*tokenAddress, *tokenKey, *tokenTTL, *tokenJSON)
	case "key":
		_ = keyCmd.Parse(os.Args[2:])
		generateKey(*keyJSON)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tokengen - Generate test credentials for the quorumcred API

WARNING: Tokens use the dev signing key unless -key is given.
         Only use for local development and testing.

Usage:
  tokengen <command> [flags]

Commands:
  token     Mint a bearer token for a wallet address, skipping the signature exchange
  key       Generate a throwaway wallet key for credctl -key

Examples:
  # Token for a bootstrap issuer
  tokengen token -address 0x0000000000000000000000000000000000000015

  # Token signed with a custom key and a longer TTL
  tokengen token -address 0x...a1 -key "$JWT_SIGNING_KEY" -ttl 1h

  # New wallet, printed as JSON
  tokengen key -json

Use "tokengen <command> -h" for more information about a command.`)
}

func generateToken(rawAddress, signingKey string, ttl time.Duration, jsonOutput bool) {
	addr, err := domain.ParseAddress(rawAddress)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -address %q: %v\n", rawAddress, err)
		os.Exit(1)
	}

	token, expiresAt, err := walletauth.NewTokenService(signingKey, ttl).Issue(context.Background(), addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(tokenOutput{
			Token:     token,
			Type:      "Bearer",
			Address:   addr.String(),
			ExpiresAt: expiresAt,
			Usage: map[string]string{
				"header": "Authorization: Bearer <token>",
			},
		})
		return
	}

	fmt.Println("Bearer Token (HS256)")
	fmt.Println("====================")
	fmt.Printf("Address:    %s\n", addr)
	fmt.Printf("Expires At: %s\n", expiresAt.Format(time.RFC3339))
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  curl -H \"Authorization: Bearer <token>\" %s/me/roles\n", defaultBaseURL)
}

func generateKey(jsonOutput bool) {
	key, err := crypto.GenerateKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating key: %v\n", err)
		os.Exit(1)
	}
	out := keyOutput{
		Address:    domain.Address(crypto.PubkeyToAddress(key.PublicKey)).String(),
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
	}

	if jsonOutput {
		printJSON(out)
		return
	}
	fmt.Println("Wallet Key")
	fmt.Println("==========")
	fmt.Printf("Address:     %s\n", out.Address)
	fmt.Printf("Private Key: %s\n", out.PrivateKey)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
