package core

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ProgressRoomPrefix prefixes rooms that carry swap progress for a wallet.
const ProgressRoomPrefix = "progress:"

// ChecksumAddress returns the EIP-55 form of a hex address in any casing.
func ChecksumAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return "", ErrInvalidAddress
	}
	return common.HexToAddress(address).Hex(), nil
}

// ProgressRoom derives the room id for a wallet. Casing of address does not matter.
func ProgressRoom(address string) (string, error) {
	addr, err := ChecksumAddress(address)
	if err != nil {
		return "", err
	}
	return ProgressRoomPrefix + addr, nil
}

// NormalizeRoom canonicalizes a room id so that "progress:0xabc.." and
// "progress:0xABC.." name the same room.
func NormalizeRoom(room string) (string, error) {
	addr, ok := strings.CutPrefix(strings.TrimSpace(room), ProgressRoomPrefix)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidRoom, room)
	}
	return ProgressRoom(addr)
}
