package siwe

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/layer-3/swapgate/core"
)

const headerSuffix = " wants you to sign in with your Ethereum account:"

// Parse reads the EIP-4361 text form produced by core.SiweMessage.String.
func Parse(text string) (core.SiweMessage, error) {
	var m core.SiweMessage

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) < 6 {
		return m, fmt.Errorf("%w: too short", core.ErrInvalidMessage)
	}

	domain, ok := strings.CutSuffix(lines[0], headerSuffix)
	if !ok || domain == "" {
		return m, fmt.Errorf("%w: bad header", core.ErrInvalidMessage)
	}
	m.Domain = domain
	m.Address = lines[1]
	if lines[2] != "" {
		return m, fmt.Errorf("%w: expected blank line after address", core.ErrInvalidMessage)
	}

	i := 3
	if lines[i] != "" {
		m.Statement = lines[i]
		i++
	}
	if i >= len(lines) || lines[i] != "" {
		return m, fmt.Errorf("%w: expected blank line before fields", core.ErrInvalidMessage)
	}
	i++

	for ; i < len(lines); i++ {
		line := lines[i]
		if line == "Resources:" {
			for _, r := range lines[i+1:] {
				res, ok := strings.CutPrefix(r, "- ")
				if !ok {
					return m, fmt.Errorf("%w: bad resource %q", core.ErrInvalidMessage, r)
				}
				m.Resources = append(m.Resources, res)
			}
			break
		}

		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			return m, fmt.Errorf("%w: bad field %q", core.ErrInvalidMessage, line)
		}
		switch key {
		case "URI":
			m.URI = value
		case "Version":
			m.Version = value
		case "Chain ID":
			id, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return m, fmt.Errorf("%w: chain id", core.ErrInvalidMessage)
			}
			m.ChainID = id
		case "Nonce":
			m.Nonce = value
		case "Issued At":
			m.IssuedAt = value
		case "Expiration Time":
			m.ExpirationTime = value
		case "Not Before":
			m.NotBefore = value
		case "Request ID":
			m.RequestID = value
		default:
			return m, fmt.Errorf("%w: unknown field %q", core.ErrInvalidMessage, key)
		}
	}

	return m, nil
}
