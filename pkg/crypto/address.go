// Package crypto implements the sequencer's address derivation and
// transaction-signing primitives: Ed25519 signatures (spec §6) and
// bech32-prefixed 20-byte addresses (spec §3).
package crypto

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
)

// AddressLength is the fixed size of a sequencer address.
const AddressLength = 20

// Bech32Prefix is the human-readable part used for every sequencer address.
const Bech32Prefix = "sequencer"

// Address is the first AddressLength bytes of SHA-256(verification key).
type Address struct {
	bytes [AddressLength]byte
}

// AddressFromVerificationKey derives an Address the way every account is
// implicitly created (spec §3: "Derived as first 20 bytes of SHA-256 of
// signer verification key").
func AddressFromVerificationKey(pubKey []byte) Address {
	sum := sha256.Sum256(pubKey)
	var a Address
	copy(a.bytes[:], sum[:AddressLength])
	return a
}

// AddressFromBytes validates and wraps a raw 20-byte address.
func AddressFromBytes(b []byte) (Address, error) {
	if len(b) != AddressLength {
		return Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressLength, len(b))
	}
	var a Address
	copy(a.bytes[:], b)
	return a, nil
}

// Bytes returns a defensive copy of the raw address bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a.bytes[:])
	return out
}

// IsZero reports whether the address is the all-zero sentinel (never a real
// derived address, since SHA-256 collisions with the zero address are
// negligible; used as a "not set" marker for optional address fields).
func (a Address) IsZero() bool {
	for _, b := range a.bytes {
		if b != 0 {
			return false
		}
	}
	return true
}

// String renders the address as bech32("sequencer", bytes), matching the
// approach nhbchain's crypto package uses for its own bech32 addresses.
func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes[:], 8, 5, true)
	if err != nil {
		// ConvertBits only fails on malformed bit widths, which are
		// compile-time constants here; this can never happen at runtime.
		panic(err)
	}
	encoded, err := bech32.Encode(Bech32Prefix, conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// ParseAddress decodes a bech32 address string produced by String.
func ParseAddress(s string) (Address, error) {
	prefix, data, err := bech32.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 address: %w", err)
	}
	if prefix != Bech32Prefix {
		return Address{}, fmt.Errorf("unexpected address prefix %q, want %q", prefix, Bech32Prefix)
	}
	conv, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 payload: %w", err)
	}
	return AddressFromBytes(conv)
}

// Equal reports byte-wise equality.
func (a Address) Equal(b Address) bool { return a.bytes == b.bytes }

// Less implements the unsigned byte-lexicographic ordering spec §4.5 calls
// for when rollup ids (and, incidentally, addresses) need a tie-break.
func (a Address) Less(b Address) bool {
	for i := range a.bytes {
		if a.bytes[i] != b.bytes[i] {
			return a.bytes[i] < b.bytes[i]
		}
	}
	return false
}
