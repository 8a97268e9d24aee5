// Package sequencer holds the canonical data model named by spec §3: the
// wire and state types every other package (store, checkedtx, actions,
// mempool, consensus) builds on. Every persisted or signed value type
// exposes Encode/Decode methods built on pkg/codec so that the binary form
// is identical across nodes regardless of struct field order in memory.
package sequencer

import (
	"fmt"

	"github.com/astria/sequencer/pkg/codec"
	"github.com/astria/sequencer/pkg/crypto"
)

// RollupIDLength is the fixed size of an opaque rollup routing key.
const RollupIDLength = 32

// RollupID is an opaque 32-byte key used only to route submitted data to a
// bridge/rollup; the sequencer never interprets its contents (spec §3).
type RollupID [RollupIDLength]byte

func RollupIDFromBytes(b []byte) (RollupID, error) {
	var r RollupID
	if len(b) != RollupIDLength {
		return RollupID{}, errWrongLength("rollup id", RollupIDLength, len(b))
	}
	copy(r[:], b)
	return r, nil
}

func (r RollupID) Bytes() []byte {
	out := make([]byte, RollupIDLength)
	copy(out, r[:])
	return out
}

// Less implements the unsigned byte-lexicographic ordering spec §4.5 uses
// to sort rollup ids within rollup_transactions_root.
func (r RollupID) Less(o RollupID) bool {
	for i := range r {
		if r[i] != o[i] {
			return r[i] < o[i]
		}
	}
	return false
}

func errWrongLength(what string, want, got int) error {
	return fmt.Errorf("sequencer: %s must be %d bytes, got %d", what, want, got)
}

// errTrailingBytes flags undecoded trailing bytes after a value's fields
// have all been read, which would otherwise be a determinism hazard: two
// different payloads could decode to the same value if trailing garbage
// were silently accepted.
func errTrailingBytes(what string) error {
	return fmt.Errorf("sequencer: %s: trailing bytes after decode", what)
}

// writeAddress / readAddress / writeUint128 / readUint128 are the small
// canonical-encoding helpers shared by every type in this package so every
// field of a given kind is always encoded the same way.

func writeAddress(w *codec.Writer, a crypto.Address) { w.RawFixed(a.Bytes()) }

func readAddress(r *codec.Reader) (crypto.Address, error) {
	b, err := r.RawFixed(crypto.AddressLength)
	if err != nil {
		return crypto.Address{}, err
	}
	return crypto.AddressFromBytes(b)
}

func writeRollupID(w *codec.Writer, id RollupID) { w.RawFixed(id.Bytes()) }

func readRollupID(r *codec.Reader) (RollupID, error) {
	b, err := r.RawFixed(RollupIDLength)
	if err != nil {
		return RollupID{}, err
	}
	return RollupIDFromBytes(b)
}

func writeUint128(w *codec.Writer, v Uint128) { w.Int128(int64(v.Hi), v.Lo) }

func readUint128(r *codec.Reader) (Uint128, error) {
	hi, lo, err := r.Int128()
	if err != nil {
		return Uint128{}, err
	}
	return Uint128{Hi: uint64(hi), Lo: lo}, nil
}

func writeDenom(w *codec.Writer, d Denom) { w.String(string(d)) }

func readDenom(r *codec.Reader) (Denom, error) {
	s, err := r.String()
	if err != nil {
		return "", err
	}
	return Denom(s), nil
}
