package keymanager

import (
	"crypto/ed25519"
	"fmt"

	"credkeys/pkg/keyid"
)

// Sign produces a deterministic Ed25519 signature.
func Sign(message []byte, secret ed25519.PrivateKey) ([]byte, error) {
	if len(secret) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: size %d, want %d", ErrInvalidSecretKey, len(secret), ed25519.PrivateKeySize)
	}
	return ed25519.Sign(secret, message), nil
}

// VerifyWithPublicKey checks signature over message against a raw Ed25519
// public key. A well-formed signature that does not match yields false, nil.
func VerifyWithPublicKey(message, signature, publicKey []byte) (bool, error) {
	if len(signature) != ed25519.SignatureSize {
		return false, fmt.Errorf("%w: size %d, want %d", ErrMalformedSignature, len(signature), ed25519.SignatureSize)
	}
	if len(publicKey) != ed25519.PublicKeySize {
		return false, fmt.Errorf("%w: size %d, want %d", ErrInvalidPublicKey, len(publicKey), ed25519.PublicKeySize)
	}
	return ed25519.Verify(publicKey, message, signature), nil
}

// VerifyWithIdentifier is VerifyWithPublicKey for a signing identifier.
func VerifyWithIdentifier(message, signature []byte, identifier string) (bool, error) {
	pub, err := keyid.DecodeSigningKey(identifier)
	if err != nil {
		return false, err
	}
	return VerifyWithPublicKey(message, signature, pub)
}
