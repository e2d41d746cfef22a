package keymanager

import (
	"crypto/ed25519"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

const (
	hkdfInfoSigning    = "credkeys/keys/sign/v1"
	hkdfInfoEncryption = "credkeys/keys/encrypt/v1"

	// KeySize is the length of both public key classes.
	KeySize = 32
)

// KeyPair is a public key with its secret. For signing keys Secret is an
// ed25519.PrivateKey (seed followed by public key); for encryption keys it is
// the clamped X25519 scalar.
type KeyPair struct {
	Public []byte
	Secret []byte
}

// Wipe zeroes the secret half.
func (kp *KeyPair) Wipe() {
	zeroBytes(kp.Secret)
}

// ExpandKeys derives the signing and encryption keypairs from a seed. The two
// are expanded under distinct labels and are independent of each other.
func ExpandKeys(seed Seed) (signing, encryption KeyPair, err error) {
	signSeed, err := hkdfExpand(seed[:], hkdfInfoSigning, ed25519.SeedSize)
	if err != nil {
		return KeyPair{}, KeyPair{}, err
	}
	defer zeroBytes(signSeed)
	encSecret, err := hkdfExpand(seed[:], hkdfInfoEncryption, curve25519.ScalarSize)
	if err != nil {
		return KeyPair{}, KeyPair{}, err
	}

	signPriv := ed25519.NewKeyFromSeed(signSeed)
	signing = KeyPair{
		Public: append([]byte(nil), signPriv.Public().(ed25519.PublicKey)...),
		Secret: signPriv,
	}

	clampScalar(encSecret)
	encPub, err := curve25519.X25519(encSecret, curve25519.Basepoint)
	if err != nil {
		zeroBytes(encSecret)
		signing.Wipe()
		return KeyPair{}, KeyPair{}, err
	}
	encryption = KeyPair{Public: encPub, Secret: encSecret}
	return signing, encryption, nil
}

// clampScalar applies the RFC 7748 decodeScalar25519 bit fixes.
func clampScalar(k []byte) {
	k[0] &= 248
	k[31] &= 127
	k[31] |= 64
}

func hkdfExpand(secret []byte, info string, outLen int) ([]byte, error) {
	reader := hkdf.New(sha256.New, secret, nil, []byte(info))
	out := make([]byte, outLen)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, err
	}
	return out, nil
}
