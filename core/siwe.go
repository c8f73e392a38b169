package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// SiweVersion is the only EIP-4361 message version.
const SiweVersion = "1"

// SiweMessage is an EIP-4361 Sign-In-With-Ethereum message.
// Timestamps are kept verbatim so String reproduces exactly what the wallet signed.
type SiweMessage struct {
	Domain         string   `json:"domain"`
	Address        string   `json:"address"`
	Statement      string   `json:"statement,omitempty"`
	URI            string   `json:"uri"`
	Version        string   `json:"version"`
	ChainID        int64    `json:"chainId"`
	Nonce          string   `json:"nonce"`
	IssuedAt       string   `json:"issuedAt"`
	ExpirationTime string   `json:"expirationTime,omitempty"`
	NotBefore      string   `json:"notBefore,omitempty"`
	RequestID      string   `json:"requestId,omitempty"`
	Resources      []string `json:"resources,omitempty"`
}

// String renders the message in the EIP-4361 text form.
func (m SiweMessage) String() string {
	var b strings.Builder

	b.WriteString(m.Domain)
	b.WriteString(" wants you to sign in with your Ethereum account:\n")
	b.WriteString(m.Address)
	b.WriteString("\n\n")
	if m.Statement != "" {
		b.WriteString(m.Statement)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "URI: %s\n", m.URI)
	fmt.Fprintf(&b, "Version: %s\n", m.Version)
	fmt.Fprintf(&b, "Chain ID: %s\n", strconv.FormatInt(m.ChainID, 10))
	fmt.Fprintf(&b, "Nonce: %s\n", m.Nonce)
	fmt.Fprintf(&b, "Issued At: %s", m.IssuedAt)
	if m.ExpirationTime != "" {
		fmt.Fprintf(&b, "\nExpiration Time: %s", m.ExpirationTime)
	}
	if m.NotBefore != "" {
		fmt.Fprintf(&b, "\nNot Before: %s", m.NotBefore)
	}
	if m.RequestID != "" {
		fmt.Fprintf(&b, "\nRequest ID: %s", m.RequestID)
	}
	if len(m.Resources) > 0 {
		b.WriteString("\nResources:")
		for _, r := range m.Resources {
			fmt.Fprintf(&b, "\n- %s", r)
		}
	}

	return b.String()
}

// ValidateStructure checks the fields that do not depend on time or on the server policy.
func (m SiweMessage) ValidateStructure() error {
	if m.Domain == "" || m.URI == "" {
		return fmt.Errorf("%w: missing domain or uri", ErrInvalidMessage)
	}
	if m.Version != SiweVersion {
		return fmt.Errorf("%w: unsupported version %q", ErrInvalidMessage, m.Version)
	}
	if !common.IsHexAddress(m.Address) || common.HexToAddress(m.Address).Hex() != m.Address {
		return fmt.Errorf("%w: address must be EIP-55 checksummed", ErrInvalidMessage)
	}
	if len(m.Nonce) < 8 || !isAlphanumeric(m.Nonce) {
		return fmt.Errorf("%w: malformed nonce", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.RequestID) == "" {
		return fmt.Errorf("%w: missing request id", ErrInvalidMessage)
	}
	if _, err := time.Parse(time.RFC3339, m.IssuedAt); err != nil {
		return fmt.Errorf("%w: issued at: %v", ErrInvalidMessage, err)
	}
	return nil
}

// ValidateAt checks the temporal bounds of the message at now.
// skew is the tolerated clock drift for IssuedAt in the future.
func (m SiweMessage) ValidateAt(now time.Time, skew time.Duration) error {
	issuedAt, err := time.Parse(time.RFC3339, m.IssuedAt)
	if err != nil {
		return fmt.Errorf("%w: issued at: %v", ErrInvalidMessage, err)
	}
	if issuedAt.After(now.Add(skew)) {
		return fmt.Errorf("%w: issued in the future", ErrMessageExpired)
	}
	if m.ExpirationTime != "" {
		exp, err := time.Parse(time.RFC3339, m.ExpirationTime)
		if err != nil {
			return fmt.Errorf("%w: expiration time: %v", ErrInvalidMessage, err)
		}
		if !now.Before(exp) {
			return fmt.Errorf("%w: expired", ErrMessageExpired)
		}
	}
	if m.NotBefore != "" {
		nbf, err := time.Parse(time.RFC3339, m.NotBefore)
		if err != nil {
			return fmt.Errorf("%w: not before: %v", ErrInvalidMessage, err)
		}
		if now.Before(nbf) {
			return fmt.Errorf("%w: not yet valid", ErrMessageExpired)
		}
	}
	return nil
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}
