package keymanager

import (
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// Mnemonic renders the seed as a 24-word BIP-39 phrase. The phrase carries the
// seed itself, so it recovers the keys without the password.
func (s Seed) Mnemonic() (string, error) {
	entropy := s[:]
	defer zeroBytes(entropy)
	return bip39.NewMnemonic(entropy)
}

// SeedFromMnemonic parses a phrase produced by Seed.Mnemonic.
func SeedFromMnemonic(mnemonic string) (Seed, error) {
	var seed Seed
	mnemonic = strings.Join(strings.Fields(strings.ToLower(mnemonic)), " ")
	if mnemonic == "" {
		return seed, fmt.Errorf("%w: empty phrase", ErrInvalidMnemonic)
	}
	entropy, err := bip39.EntropyFromMnemonic(mnemonic)
	if err != nil {
		return seed, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	defer zeroBytes(entropy)
	if len(entropy) != SeedSize {
		return seed, fmt.Errorf("%w: %d words, want 24", ErrInvalidMnemonic, len(strings.Fields(mnemonic)))
	}
	copy(seed[:], entropy)
	return seed, nil
}
