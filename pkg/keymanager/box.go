package keymanager

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// Ciphertext layout:
//
//	version(1) || mode(1) || peer public key(32) || nonce(24) || sealed payload
//
// The peer key is the sender's encryption key in authenticated mode and a
// one-time ephemeral key in anonymous mode.
const (
	boxVersion byte = 0x01

	modeAuthenticated byte = 0x01
	modeAnonymous     byte = 0x02

	hkdfInfoBox = "credkeys/box/v1"

	boxHeaderSize = 2 + KeySize + chacha20poly1305.NonceSizeX

	// Overhead is the number of bytes a ciphertext adds to its plaintext.
	Overhead = boxHeaderSize + chacha20poly1305.Overhead
)

// Encrypt seals message for recipientPublic so that the recipient can also
// authenticate sender as its origin.
func Encrypt(message, recipientPublic []byte, sender KeyPair) ([]byte, error) {
	if err := checkEncryptionPair(sender); err != nil {
		return nil, err
	}
	if len(recipientPublic) != KeySize {
		return nil, fmt.Errorf("%w: size %d, want %d", ErrInvalidPublicKey, len(recipientPublic), KeySize)
	}
	return seal(modeAuthenticated, message, sender.Secret, sender.Public, recipientPublic)
}

// EncryptAnonymous seals message for recipientPublic under a fresh ephemeral
// key. The recipient learns nothing about the sender.
func EncryptAnonymous(message, recipientPublic []byte) ([]byte, error) {
	if len(recipientPublic) != KeySize {
		return nil, fmt.Errorf("%w: size %d, want %d", ErrInvalidPublicKey, len(recipientPublic), KeySize)
	}
	ephSecret := make([]byte, curve25519.ScalarSize)
	defer zeroBytes(ephSecret)
	if _, err := io.ReadFull(rand.Reader, ephSecret); err != nil {
		return nil, err
	}
	clampScalar(ephSecret)
	ephPublic, err := curve25519.X25519(ephSecret, curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	return seal(modeAnonymous, message, ephSecret, ephPublic, recipientPublic)
}

// Decrypt opens a ciphertext addressed to own.
func Decrypt(ciphertext []byte, own KeyPair) ([]byte, error) {
	plaintext, _, err := DecryptFrom(ciphertext, own)
	return plaintext, err
}

// DecryptFrom opens a ciphertext addressed to own and also returns the
// sender's encryption public key. senderPublic is nil for anonymous
// ciphertexts.
func DecryptFrom(ciphertext []byte, own KeyPair) (plaintext, senderPublic []byte, err error) {
	if err := checkEncryptionPair(own); err != nil {
		return nil, nil, err
	}
	if len(ciphertext) < Overhead || ciphertext[0] != boxVersion {
		return nil, nil, ErrDecryptionFailed
	}
	mode := ciphertext[1]
	if mode != modeAuthenticated && mode != modeAnonymous {
		return nil, nil, ErrDecryptionFailed
	}
	peer := ciphertext[2 : 2+KeySize]
	nonce := ciphertext[2+KeySize : boxHeaderSize]

	shared, err := curve25519.X25519(own.Secret, peer)
	if err != nil {
		return nil, nil, ErrDecryptionFailed
	}
	defer zeroBytes(shared)
	aead, key, err := boxAEAD(shared, peer, own.Public)
	if err != nil {
		return nil, nil, ErrDecryptionFailed
	}
	defer zeroBytes(key)

	plaintext, err = aead.Open(nil, nonce, ciphertext[boxHeaderSize:], boxAD(mode, peer, own.Public))
	if err != nil {
		return nil, nil, ErrDecryptionFailed
	}
	if mode == modeAuthenticated {
		senderPublic = append([]byte(nil), peer...)
	}
	return plaintext, senderPublic, nil
}

func seal(mode byte, message, senderSecret, senderPublic, recipientPublic []byte) ([]byte, error) {
	shared, err := curve25519.X25519(senderSecret, recipientPublic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	defer zeroBytes(shared)
	aead, key, err := boxAEAD(shared, senderPublic, recipientPublic)
	if err != nil {
		return nil, err
	}
	defer zeroBytes(key)

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	out := make([]byte, 0, Overhead+len(message))
	out = append(out, boxVersion, mode)
	out = append(out, senderPublic...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, message, boxAD(mode, senderPublic, recipientPublic)), nil
}

// boxAEAD derives the message key, salted with both public keys.
func boxAEAD(shared, senderPublic, recipientPublic []byte) (cipher.AEAD, []byte, error) {
	salt := make([]byte, 0, 2*KeySize)
	salt = append(salt, senderPublic...)
	salt = append(salt, recipientPublic...)
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, salt, []byte(hkdfInfoBox)), key); err != nil {
		return nil, nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		zeroBytes(key)
		return nil, nil, err
	}
	return aead, key, nil
}

func boxAD(mode byte, senderPublic, recipientPublic []byte) []byte {
	ad := make([]byte, 0, 2+2*KeySize)
	ad = append(ad, boxVersion, mode)
	ad = append(ad, senderPublic...)
	return append(ad, recipientPublic...)
}

func checkEncryptionPair(kp KeyPair) error {
	if len(kp.Secret) != curve25519.ScalarSize {
		return fmt.Errorf("%w: encryption secret size %d, want %d", ErrInvalidSecretKey, len(kp.Secret), curve25519.ScalarSize)
	}
	if len(kp.Public) != KeySize {
		return fmt.Errorf("%w: size %d, want %d", ErrInvalidPublicKey, len(kp.Public), KeySize)
	}
	return nil
}
