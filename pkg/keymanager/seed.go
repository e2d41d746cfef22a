package keymanager

import (
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/argon2"
)

// SeedSize is the length of a derived seed in bytes.
const SeedSize = 32

// SeedVersion names a fixed set of seed derivation parameters. Seeds derived
// under different versions are unrelated.
type SeedVersion uint8

const (
	SeedV1 SeedVersion = 1

	CurrentSeedVersion = SeedV1
)

// SeedParams are the cost parameters bound to a SeedVersion.
type SeedParams struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
	KeyLen    uint32
	SaltTag   string
}

var seedParams = map[SeedVersion]SeedParams{
	SeedV1: {
		Time:      2,
		MemoryKiB: 64 * 1024,
		Threads:   4,
		KeyLen:    SeedSize,
		SaltTag:   "credkeys/seed/v1",
	},
}

// SeedParamsFor returns the parameters of version v.
func SeedParamsFor(v SeedVersion) (SeedParams, error) {
	p, ok := seedParams[v]
	if !ok {
		return SeedParams{}, fmt.Errorf("%w: seed version %d", ErrUnsupportedVersion, v)
	}
	return p, nil
}

// Seed is the root secret every key is expanded from.
type Seed [SeedSize]byte

// DeriveSeed derives the seed for a credential triple under the current version.
func DeriveSeed(appContext []byte, email, password string) (Seed, error) {
	return DeriveSeedVersion(CurrentSeedVersion, appContext, email, password)
}

// DeriveSeedVersion derives the seed under an explicit parameter version. Inputs
// are taken verbatim: no trimming or case folding is applied.
func DeriveSeedVersion(v SeedVersion, appContext []byte, email, password string) (Seed, error) {
	var seed Seed
	params, err := SeedParamsFor(v)
	if err != nil {
		return seed, err
	}
	switch {
	case len(appContext) == 0:
		return seed, fmt.Errorf("%w: context is empty", ErrInvalidInput)
	case email == "":
		return seed, fmt.Errorf("%w: email is empty", ErrInvalidInput)
	case password == "":
		return seed, fmt.Errorf("%w: password is empty", ErrInvalidInput)
	}

	salt := seedSalt(params.SaltTag, appContext, email)
	defer zeroBytes(salt)
	pw := []byte(password)
	defer zeroBytes(pw)

	out := argon2.IDKey(pw, salt, params.Time, params.MemoryKiB, params.Threads, params.KeyLen)
	defer zeroBytes(out)
	copy(seed[:], out)
	return seed, nil
}

func seedSalt(tag string, appContext []byte, email string) []byte {
	h := sha512.New()
	var n [4]byte
	h.Write([]byte(tag))
	binary.BigEndian.PutUint32(n[:], uint32(len(appContext)))
	h.Write(n[:])
	h.Write(appContext)
	binary.BigEndian.PutUint32(n[:], uint32(len(email)))
	h.Write(n[:])
	h.Write([]byte(email))
	return h.Sum(nil)
}

// Wipe zeroes the seed in place.
func (s *Seed) Wipe() {
	zeroBytes(s[:])
}

func (s Seed) String() string {
	return "Seed([REDACTED])"
}

func (s Seed) LogValue() slog.Value {
	return slog.StringValue("[REDACTED]")
}
