package keymanager

import (
	"bytes"
	"errors"
	"testing"
)

func testEncryptionPair(t *testing.T, b byte) KeyPair {
	t.Helper()
	_, encryption, err := ExpandKeys(Seed{b, 0x42})
	if err != nil {
		t.Fatalf("expand keys failed: %v", err)
	}
	return encryption
}

func TestEncryptDecryptAuthenticated(t *testing.T) {
	alice := testEncryptionPair(t, 1)
	bob := testEncryptionPair(t, 2)
	msg := []byte("meet at noon")

	ct, err := Encrypt(msg, bob.Public, alice)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if len(ct) != len(msg)+Overhead {
		t.Fatalf("unexpected ciphertext size %d", len(ct))
	}
	pt, sender, err := DecryptFrom(ct, bob)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if !bytes.Equal(pt, msg) {
		t.Fatalf("unexpected plaintext %q", pt)
	}
	if !bytes.Equal(sender, alice.Public) {
		t.Fatal("sender key must be reported")
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	alice := testEncryptionPair(t, 1)
	a, err := Encrypt([]byte("x"), alice.Public, alice)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	b, err := Encrypt([]byte("x"), alice.Public, alice)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("two encryptions of the same message must differ")
	}
}

func TestEncryptAnonymous(t *testing.T) {
	bob := testEncryptionPair(t, 2)
	ct, err := EncryptAnonymous([]byte("tip"), bob.Public)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	pt, sender, err := DecryptFrom(ct, bob)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if string(pt) != "tip" || sender != nil {
		t.Fatalf("unexpected result: %q sender=%x", pt, sender)
	}
}

func TestEmptyMessageRoundTrip(t *testing.T) {
	bob := testEncryptionPair(t, 2)
	ct, err := EncryptAnonymous(nil, bob.Public)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	pt, err := Decrypt(ct, bob)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if len(pt) != 0 {
		t.Fatalf("expected empty plaintext, got %q", pt)
	}
}

func TestDecryptFailuresAreOpaque(t *testing.T) {
	alice := testEncryptionPair(t, 1)
	bob := testEncryptionPair(t, 2)
	carol := testEncryptionPair(t, 3)
	ct, err := Encrypt([]byte("secret plans"), bob.Public, alice)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	mutate := func(i int, v byte) []byte {
		out := append([]byte(nil), ct...)
		out[i] ^= v
		return out
	}
	cases := map[string]struct {
		ct  []byte
		own KeyPair
	}{
		"wrong key":     {ct: ct, own: carol},
		"empty":         {ct: nil, own: bob},
		"truncated":     {ct: ct[:Overhead-1], own: bob},
		"version":       {ct: mutate(0, 0xff), own: bob},
		"unknown mode":  {ct: mutate(1, 0x0f), own: bob},
		"mode switch":   {ct: mutate(1, 0x03), own: bob},
		"sender key":    {ct: mutate(5, 0x01), own: bob},
		"nonce":         {ct: mutate(40, 0x01), own: bob},
		"body":          {ct: mutate(boxHeaderSize, 0x80), own: bob},
		"tag":           {ct: mutate(len(ct)-1, 0x01), own: bob},
		"low order key": {ct: append(append([]byte{boxVersion, modeAnonymous}, make([]byte, KeySize)...), ct[2+KeySize:]...), own: bob},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			pt, err := Decrypt(tc.ct, tc.own)
			if err != ErrDecryptionFailed {
				t.Fatalf("expected bare ErrDecryptionFailed, got %v", err)
			}
			if pt != nil {
				t.Fatal("no plaintext may be returned on failure")
			}
		})
	}
}

func TestEncryptRejectsInvalidRecipient(t *testing.T) {
	alice := testEncryptionPair(t, 1)
	if _, err := Encrypt([]byte("x"), make([]byte, 31), alice); !errors.Is(err, ErrInvalidPublicKey) {
		t.Fatalf("expected ErrInvalidPublicKey for short key, got %v", err)
	}
	if _, err := Encrypt([]byte("x"), make([]byte, KeySize), alice); !errors.Is(err, ErrInvalidPublicKey) {
		t.Fatalf("expected ErrInvalidPublicKey for low order point, got %v", err)
	}
	if _, err := EncryptAnonymous([]byte("x"), make([]byte, KeySize)); !errors.Is(err, ErrInvalidPublicKey) {
		t.Fatalf("expected ErrInvalidPublicKey for low order point, got %v", err)
	}
	if _, err := Encrypt([]byte("x"), alice.Public, KeyPair{Public: alice.Public}); !errors.Is(err, ErrInvalidSecretKey) {
		t.Fatalf("expected ErrInvalidSecretKey, got %v", err)
	}
}
