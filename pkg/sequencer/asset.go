package sequencer

import (
	"crypto/sha256"
	"strings"
)

// Denom is the canonical string form of an asset: either a bare native
// denomination ("nria") or a trace-prefixed IBC denom
// ("transfer/channel-0/uatom"). Two Denoms are the same asset iff their
// canonical strings are byte-identical (spec §3 Asset: "Each trace-prefixed
// denom has a unique canonical string").
type Denom string

// AssetID is SHA-256 of a Denom's canonical string; this is the value
// actually used as a state-store key component so that keys have a fixed
// width regardless of how long the trace path is.
type AssetID [32]byte

// ID derives the 32-byte asset id for this denom.
func (d Denom) ID() AssetID {
	return AssetID(sha256.Sum256([]byte(d)))
}

// String returns the canonical denom string.
func (d Denom) String() string { return string(d) }

// IsIBCPrefixed reports whether the denom carries an IBC transfer trace
// path (as opposed to being a native asset declared in genesis).
func (d Denom) IsIBCPrefixed() bool {
	return strings.Contains(string(d), "/")
}

// TracePath splits a trace-prefixed denom into its port/channel segments and
// the base denom, e.g. "transfer/channel-0/uatom" -> (["transfer",
// "channel-0"], "uatom"). Native denoms return (nil, denom).
func (d Denom) TracePath() (segments []string, base string) {
	parts := strings.Split(string(d), "/")
	if len(parts) == 1 {
		return nil, parts[0]
	}
	return parts[:len(parts)-1], parts[len(parts)-1]
}

// IBCHash renders the "ibc/HASH" display form used by clients for
// trace-prefixed denoms, hex-encoding the same AssetID used internally.
func (d Denom) IBCHash() string {
	id := d.ID()
	const hextable = "0123456789abcdef"
	out := make([]byte, 2*len(id))
	for i, b := range id {
		out[2*i] = hextable[b>>4]
		out[2*i+1] = hextable[b&0x0f]
	}
	return "ibc/" + string(out)
}

func (id AssetID) Bytes() []byte {
	out := make([]byte, len(id))
	copy(out, id[:])
	return out
}

func AssetIDFromBytes(b []byte) (AssetID, error) {
	var id AssetID
	if len(b) != len(id) {
		return AssetID{}, errWrongLength("asset id", len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}
