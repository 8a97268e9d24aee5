package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// SigningKey is an Ed25519 keypair used to sign sequencer transactions.
type SigningKey struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// GenerateSigningKey creates a new random keypair.
func GenerateSigningKey() (*SigningKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return &SigningKey{priv: priv, pub: pub}, nil
}

// SigningKeyFromSeed reconstructs a keypair from a 32-byte seed, used when
// loading an operator's key from disk.
func SigningKeyFromSeed(seed []byte) (*SigningKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &SigningKey{priv: priv, pub: priv.Public().(ed25519.PublicKey)}, nil
}

// PublicKey returns the raw 32-byte verification key.
func (k *SigningKey) PublicKey() []byte {
	out := make([]byte, len(k.pub))
	copy(out, k.pub)
	return out
}

// Address derives this key's sequencer address.
func (k *SigningKey) Address() Address { return AddressFromVerificationKey(k.pub) }

// Sign produces an Ed25519 signature over body bytes (spec §6: "Signatures
// are Ed25519 over body_bytes").
func (k *SigningKey) Sign(bodyBytes []byte) []byte {
	return ed25519.Sign(k.priv, bodyBytes)
}

// VerifySignature checks an Ed25519 signature against a raw 32-byte
// verification key, the stateless check every CheckedTransaction performs
// before any stateful work runs.
func VerifySignature(verificationKey, bodyBytes, signature []byte) bool {
	if len(verificationKey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(verificationKey), bodyBytes, signature)
}
