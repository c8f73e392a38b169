package siwe

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/swapgate/core"
	"github.com/layer-3/swapgate/ports"
)

// Verifier checks EIP-191 personal_sign signatures over EIP-4361 messages.
type Verifier struct{}

// NewVerifier creates a SIWE signature verifier
func NewVerifier() *Verifier {
	return &Verifier{}
}

var _ ports.SignatureVerifier = (*Verifier)(nil)

// Verify recovers the signer of msg and compares it with msg.Address
func (v *Verifier) Verify(msg core.SiweMessage, signature string) error {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return fmt.Errorf("failed to decode signature: %w", core.ErrInvalidSignature)
	}
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("signature must be 65 bytes: %w", core.ErrInvalidSignature)
	}

	// Wallets produce V in {27, 28}; go-ethereum expects {0, 1}.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	hash := accounts.TextHash([]byte(msg.String()))
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return fmt.Errorf("failed to recover public key: %w", core.ErrInvalidSignature)
	}

	if crypto.PubkeyToAddress(*pub) != common.HexToAddress(msg.Address) {
		return core.ErrInvalidSignature
	}
	return nil
}

// Sign produces a wallet-style personal_sign signature over msg.
func Sign(msg core.SiweMessage, key *ecdsa.PrivateKey) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(msg.String())), key)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}
