package walletauth

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"quorumcred/pkg/domain"
)

// RecoverSigner returns the address whose key produced an EIP-191
// personal_sign signature over message. Wallets emit v as 27/28; both that
// and the raw 0/1 form are accepted.
func RecoverSigner(message, signatureHex string) (domain.Address, error) {
	sig, err := hexutil.Decode(signatureHex)
	if err != nil {
		return domain.Address{}, fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return domain.Address{}, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}
	sig = append([]byte(nil), sig...)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	if sig[crypto.RecoveryIDOffset] > 1 {
		return domain.Address{}, fmt.Errorf("invalid signature recovery id")
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return domain.Address{}, fmt.Errorf("recover signer: %w", err)
	}
	return domain.Address(crypto.PubkeyToAddress(*pub)), nil
}

// SignMessage produces a personal_sign signature with v in 27/28 form, as a
// browser wallet would. Used by the CLI and tests.
func SignMessage(message string, key *ecdsa.PrivateKey) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		return "", err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}
