package domain

import (
	"fmt"
	"strings"
)

const addressLength = 56

// NormalizeAddress trims surrounding whitespace from a user-supplied address.
func NormalizeAddress(address string) string {
	return strings.TrimSpace(address)
}

// ValidateAddress checks that address looks like a Stellar account public key:
// 56 characters, leading 'G', base32 alphabet. The checksum is not verified;
// Horizon rejects unknown accounts later with ErrWalletNotFound.
func ValidateAddress(address string) error {
	if len(address) != addressLength || address[0] != 'G' {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	for _, r := range address {
		if (r < 'A' || r > 'Z') && (r < '2' || r > '7') {
			return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
		}
	}
	return nil
}
