package keymanager

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrMalformedSignature = errors.New("malformed signature")
	ErrInvalidPublicKey   = errors.New("invalid public key")
	ErrInvalidSecretKey   = errors.New("invalid secret key")
	ErrInvalidMnemonic    = errors.New("invalid mnemonic")
	ErrManagerWiped       = errors.New("key manager wiped")

	// ErrDecryptionFailed is returned bare for every decryption failure so
	// callers cannot distinguish a wrong key from a tampered ciphertext.
	ErrDecryptionFailed = errors.New("decryption failed")
)
