package keymanager

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"credkeys/pkg/keyid"
)

func newTestManager(t *testing.T, b byte, opts ...Option) *Manager {
	t.Helper()
	m, err := New(Seed{b, 0x99}, opts...)
	if err != nil {
		t.Fatalf("new manager failed: %v", err)
	}
	return m
}

func TestNewFromCredentialsMatchesSeedPath(t *testing.T) {
	ctx := []byte("ctx")
	m1, err := NewFromCredentials(ctx, "user@example.com", "pw")
	if err != nil {
		t.Fatalf("new from credentials failed: %v", err)
	}
	seed, err := DeriveSeed(ctx, "user@example.com", "pw")
	if err != nil {
		t.Fatalf("derive seed failed: %v", err)
	}
	m2, err := New(seed)
	if err != nil {
		t.Fatalf("new manager failed: %v", err)
	}
	if m1.Identifier() != m2.Identifier() || !bytes.Equal(m1.EncryptionPublicKey(), m2.EncryptionPublicKey()) {
		t.Fatal("credential and seed construction must agree")
	}
}

func TestNewFromCredentialsValidates(t *testing.T) {
	if _, err := NewFromCredentials([]byte("ctx"), "", "pw"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := NewFromCredentials([]byte("ctx"), "a@b.c", "pw", WithSeedVersion(SeedVersion(7))); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestManagerIdentifierDecodes(t *testing.T) {
	m := newTestManager(t, 1)
	pub, err := keyid.DecodeSigningKey(m.Identifier())
	if err != nil {
		t.Fatalf("decode identifier failed: %v", err)
	}
	if !bytes.Equal(pub, m.SigningPublicKey()) {
		t.Fatal("identifier must carry the signing public key")
	}
	encPub, err := keyid.DecodeKind(keyid.KindEncryption, m.EncryptionIdentifier())
	if err != nil {
		t.Fatalf("decode encryption identifier failed: %v", err)
	}
	if !bytes.Equal(encPub, m.EncryptionPublicKey()) {
		t.Fatal("encryption identifier must carry the encryption public key")
	}
}

func TestManagerPublicKeysAreCopies(t *testing.T) {
	m := newTestManager(t, 1)
	pub := m.SigningPublicKey()
	pub[0] ^= 0xff
	if bytes.Equal(pub, m.SigningPublicKey()) {
		t.Fatal("callers must not be able to mutate manager keys")
	}
}

func TestManagerSignCrossVerify(t *testing.T) {
	signer := newTestManager(t, 1)
	other := newTestManager(t, 2)
	msg := []byte("statement")
	sig, err := signer.Sign(msg)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if ok, err := signer.Verify(msg, sig); err != nil || !ok {
		t.Fatalf("own signature must verify: ok=%v err=%v", ok, err)
	}
	if ok, err := VerifyWithPublicKey(msg, sig, signer.SigningPublicKey()); err != nil || !ok {
		t.Fatalf("third party must verify with public key: ok=%v err=%v", ok, err)
	}
	if ok, err := other.Verify(msg, sig); err != nil || ok {
		t.Fatalf("other manager must reject: ok=%v err=%v", ok, err)
	}
}

func TestManagerEncryptBetweenManagers(t *testing.T) {
	alice := newTestManager(t, 1)
	bob := newTestManager(t, 2)

	ct, err := alice.Encrypt([]byte("hi bob"), bob.EncryptionPublicKey())
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	pt, sender, err := bob.DecryptFrom(ct)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if string(pt) != "hi bob" || !bytes.Equal(sender, alice.EncryptionPublicKey()) {
		t.Fatalf("unexpected result %q sender=%x", pt, sender)
	}
	if _, err := alice.Decrypt(ct); err != ErrDecryptionFailed {
		t.Fatalf("sender must not open recipient's ciphertext, got %v", err)
	}
}

func TestManagerSelfEncryption(t *testing.T) {
	m := newTestManager(t, 3)
	ct, err := m.Encrypt([]byte("note to self"), nil)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	pt, err := m.Decrypt(ct)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if string(pt) != "note to self" {
		t.Fatalf("unexpected plaintext %q", pt)
	}
	anon, err := m.EncryptAnonymous([]byte("anon"), nil)
	if err != nil {
		t.Fatalf("encrypt anonymous failed: %v", err)
	}
	if pt, err := m.Decrypt(anon); err != nil || string(pt) != "anon" {
		t.Fatalf("anonymous self encryption failed: %q %v", pt, err)
	}
}

func TestManagerWipe(t *testing.T) {
	m := newTestManager(t, 4)
	sig, err := m.Sign([]byte("before"))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	ct, err := m.Encrypt([]byte("before"), nil)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	m.Wipe()
	m.Wipe()

	if _, err := m.Sign([]byte("after")); !errors.Is(err, ErrManagerWiped) {
		t.Fatalf("expected ErrManagerWiped from sign, got %v", err)
	}
	if _, err := m.Encrypt([]byte("after"), nil); !errors.Is(err, ErrManagerWiped) {
		t.Fatalf("expected ErrManagerWiped from encrypt, got %v", err)
	}
	if _, err := m.Decrypt(ct); !errors.Is(err, ErrManagerWiped) {
		t.Fatalf("expected ErrManagerWiped from decrypt, got %v", err)
	}
	if ok, err := m.Verify([]byte("before"), sig); err != nil || !ok {
		t.Fatalf("verify needs no secret and must still work: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(m.signing.Secret, make([]byte, len(m.signing.Secret))) {
		t.Fatal("signing secret must be zeroed")
	}
}

func TestManagerConcurrentUse(t *testing.T) {
	m := newTestManager(t, 5)
	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sig, err := m.Sign([]byte("concurrent"))
			if err != nil {
				errs <- err
				return
			}
			if ok, err := m.Verify([]byte("concurrent"), sig); err != nil || !ok {
				errs <- errors.New("signature did not verify")
				return
			}
			ct, err := m.Encrypt([]byte("concurrent"), nil)
			if err != nil {
				errs <- err
				return
			}
			if _, err := m.Decrypt(ct); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent operation failed: %v", err)
	}
}

func TestManagerLogsNoSecrets(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	m := newTestManager(t, 6, WithLogger(logger))
	logger.Info("manager", "manager", m)
	m.Wipe()

	out := buf.String()
	if !strings.Contains(out, "key manager ready") || !strings.Contains(out, "key manager wiped") {
		t.Fatalf("expected lifecycle events, got %s", out)
	}
	if strings.Contains(out, m.Identifier()) {
		t.Fatalf("full identifier must not be logged: %s", out)
	}
	if !strings.Contains(out, keyid.Fingerprint(m.SigningPublicKey())) {
		t.Fatalf("expected key fingerprint in logs: %s", out)
	}
}
