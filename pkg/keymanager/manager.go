package keymanager

import (
	"crypto/ed25519"
	"io"
	"log/slog"
	"sync"

	"credkeys/pkg/keyid"
)

type options struct {
	logger      *slog.Logger
	seedVersion SeedVersion
}

type Option func(*options)

// WithLogger sets the logger for lifecycle events. Secrets are never logged.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSeedVersion selects the seed parameters used by NewFromCredentials.
func WithSeedVersion(v SeedVersion) Option {
	return func(o *options) {
		o.seedVersion = v
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		seedVersion: CurrentSeedVersion,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Manager holds one signing and one encryption keypair. The keys are fixed at
// construction; the seed they came from is not retained.
type Manager struct {
	mu            sync.RWMutex
	signing       KeyPair
	encryption    KeyPair
	identifier    string
	encIdentifier string
	wiped         bool
	logger        *slog.Logger
}

// New expands seed into a Manager. The caller keeps ownership of seed.
func New(seed Seed, opts ...Option) (*Manager, error) {
	o := buildOptions(opts)
	signing, encryption, err := ExpandKeys(seed)
	if err != nil {
		return nil, err
	}
	id, err := keyid.EncodeSigningKey(signing.Public)
	if err != nil {
		signing.Wipe()
		encryption.Wipe()
		return nil, err
	}
	encID, err := keyid.Encode(keyid.KindEncryption, encryption.Public)
	if err != nil {
		signing.Wipe()
		encryption.Wipe()
		return nil, err
	}
	m := &Manager{
		signing:       signing,
		encryption:    encryption,
		identifier:    id,
		encIdentifier: encID,
		logger:        o.logger,
	}
	m.logger.Debug("key manager ready", "key_fp", keyid.Fingerprint(signing.Public))
	return m, nil
}

// NewFromCredentials derives the seed from a credential triple and builds a
// Manager from it. The seed is wiped before returning.
func NewFromCredentials(appContext []byte, email, password string, opts ...Option) (*Manager, error) {
	o := buildOptions(opts)
	seed, err := DeriveSeedVersion(o.seedVersion, appContext, email, password)
	if err != nil {
		return nil, err
	}
	defer seed.Wipe()
	return New(seed, opts...)
}

func (m *Manager) SigningPublicKey() []byte {
	return append([]byte(nil), m.signing.Public...)
}

func (m *Manager) EncryptionPublicKey() []byte {
	return append([]byte(nil), m.encryption.Public...)
}

// Identifier is the text form of the signing public key.
func (m *Manager) Identifier() string {
	return m.identifier
}

// EncryptionIdentifier is the text form of the encryption public key.
func (m *Manager) EncryptionIdentifier() string {
	return m.encIdentifier
}

func (m *Manager) Sign(message []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.wiped {
		return nil, ErrManagerWiped
	}
	return Sign(message, ed25519.PrivateKey(m.signing.Secret))
}

// Verify checks a signature against the manager's own signing key. It needs
// no secret material and keeps working after Wipe.
func (m *Manager) Verify(message, signature []byte) (bool, error) {
	return VerifyWithPublicKey(message, signature, m.signing.Public)
}

// Encrypt seals message for recipient. An empty recipient encrypts to the
// manager itself.
func (m *Manager) Encrypt(message, recipient []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.wiped {
		return nil, ErrManagerWiped
	}
	if len(recipient) == 0 {
		recipient = m.encryption.Public
	}
	return Encrypt(message, recipient, m.encryption)
}

// EncryptAnonymous seals message for recipient without revealing the sender.
// An empty recipient encrypts to the manager itself.
func (m *Manager) EncryptAnonymous(message, recipient []byte) ([]byte, error) {
	if len(recipient) == 0 {
		recipient = m.encryption.Public
	}
	return EncryptAnonymous(message, recipient)
}

func (m *Manager) Decrypt(ciphertext []byte) ([]byte, error) {
	plaintext, _, err := m.DecryptFrom(ciphertext)
	return plaintext, err
}

func (m *Manager) DecryptFrom(ciphertext []byte) (plaintext, senderPublic []byte, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.wiped {
		return nil, nil, ErrManagerWiped
	}
	return DecryptFrom(ciphertext, m.encryption)
}

// Wipe zeroes both secret keys. Every later operation needing a secret fails
// with ErrManagerWiped.
func (m *Manager) Wipe() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.wiped {
		return
	}
	m.signing.Wipe()
	m.encryption.Wipe()
	m.wiped = true
	m.logger.Debug("key manager wiped", "key_fp", keyid.Fingerprint(m.signing.Public))
}

func (m *Manager) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("key_fp", keyid.Fingerprint(m.signing.Public)),
		slog.Bool("wiped", m.isWiped()),
	)
}

func (m *Manager) isWiped() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.wiped
}
