// Package keyid renders public keys as self-describing text identifiers and parses them back.
//
// An identifier is a multibase string. The leading character selects the
// identifier scheme; only 'z' (base58btc, scheme v1) is issued or accepted.
// The decoded payload is
//
//	uvarint(multicodec code) || key || blake2b-256(uvarint(code) || key)[:4]
//
// The multicodec code tells key classes apart, so the same codec serves signing
// and encryption keys without ambiguity.
package keyid

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58/base58"
	mbase "github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multicodec"
	"github.com/multiformats/go-varint"
	"golang.org/x/crypto/blake2b"
)

const (
	// KeySize is the length of every key class supported by the codec.
	KeySize = 32
	// ChecksumSize is the number of blake2b-256 bytes appended to the payload.
	ChecksumSize = 4

	scheme = mbase.Base58BTC
)

var ErrInvalidIdentifier = errors.New("invalid identifier")

// Kind is the class of key carried by an identifier.
type Kind multicodec.Code

const (
	KindSigning    = Kind(multicodec.Ed25519Pub)
	KindEncryption = Kind(multicodec.X25519Pub)
)

func (k Kind) String() string {
	switch k {
	case KindSigning:
		return "signing"
	case KindEncryption:
		return "encryption"
	default:
		return fmt.Sprintf("unknown(0x%x)", uint64(k))
	}
}

func (k Kind) valid() bool {
	return k == KindSigning || k == KindEncryption
}

// Encode renders key as an identifier of the given kind.
func Encode(kind Kind, key []byte) (string, error) {
	if !kind.valid() {
		return "", fmt.Errorf("%w: unsupported key kind %s", ErrInvalidIdentifier, kind)
	}
	if len(key) != KeySize {
		return "", fmt.Errorf("%w: key size %d, want %d", ErrInvalidIdentifier, len(key), KeySize)
	}
	prefix := varint.ToUvarint(uint64(kind))
	payload := make([]byte, 0, len(prefix)+KeySize+ChecksumSize)
	payload = append(payload, prefix...)
	payload = append(payload, key...)
	payload = append(payload, checksum(payload)...)
	return mbase.Encode(scheme, payload)
}

// Decode parses an identifier and returns its kind and key bytes.
func Decode(s string) (Kind, []byte, error) {
	if s == "" {
		return 0, nil, fmt.Errorf("%w: empty", ErrInvalidIdentifier)
	}
	if mbase.Encoding(s[0]) != scheme {
		return 0, nil, fmt.Errorf("%w: unrecognized marker %q", ErrInvalidIdentifier, s[0])
	}
	_, payload, err := mbase.Decode(s)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalidIdentifier, err)
	}
	code, n, err := varint.FromUvarint(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: type code: %v", ErrInvalidIdentifier, err)
	}
	kind := Kind(code)
	if !kind.valid() {
		return 0, nil, fmt.Errorf("%w: unsupported key kind %s", ErrInvalidIdentifier, kind)
	}
	if len(payload) != n+KeySize+ChecksumSize {
		return 0, nil, fmt.Errorf("%w: payload size %d", ErrInvalidIdentifier, len(payload))
	}
	body := payload[:n+KeySize]
	if !bytes.Equal(checksum(body), payload[n+KeySize:]) {
		return 0, nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidIdentifier)
	}
	return kind, append([]byte(nil), payload[n:n+KeySize]...), nil
}

// DecodeKind is Decode restricted to one key class.
func DecodeKind(want Kind, s string) ([]byte, error) {
	kind, key, err := Decode(s)
	if err != nil {
		return nil, err
	}
	if kind != want {
		return nil, fmt.Errorf("%w: got %s key, want %s", ErrInvalidIdentifier, kind, want)
	}
	return key, nil
}

// EncodeSigningKey renders an Ed25519 public key.
func EncodeSigningKey(publicKey []byte) (string, error) {
	return Encode(KindSigning, publicKey)
}

// DecodeSigningKey parses an identifier produced by EncodeSigningKey.
func DecodeSigningKey(s string) ([]byte, error) {
	return DecodeKind(KindSigning, s)
}

// Fingerprint is a short display form of a key for logs and prompts. It is not decodable.
func Fingerprint(key []byte) string {
	sum := blake2b.Sum256(key)
	return base58.Encode(sum[:8])
}

func checksum(body []byte) []byte {
	sum := blake2b.Sum256(body)
	return sum[:ChecksumSize]
}
