// Package keymanager derives a reproducible identity from a credential triple
// (application context, email, password) and operates on it.
//
// The 32-byte seed comes from Argon2id and is expanded with HKDF-SHA256 into an
// Ed25519 signing keypair and an independent X25519 encryption keypair. Nothing
// is persisted: presenting the same credentials again yields the same keys.
//
// All operations exist both as Manager methods and as stand-alone functions that
// take explicit keys, so a verifier needs nothing but the signer's public key or
// identifier.
package keymanager
