package sequencer

import (
	"github.com/astria/sequencer/pkg/codec"
)

// ValidatorSetEntry is one member of the active validator set (spec §3).
// A power of zero, produced by a ValidatorUpdate action, removes the entry
// at the next block boundary rather than being stored as a live zero-power
// member.
type ValidatorSetEntry struct {
	VerificationKey []byte // raw Ed25519 public key, 32 bytes
	Power           uint64

	// Name is accepted from height H_pre onward but only surfaced through
	// the validator query once the Aspen upgrade has activated (spec §4.4,
	// §4.8, scenario S5).
	Name string
}

func (v ValidatorSetEntry) Encode() []byte {
	w := codec.NewWriter(48 + len(v.Name))
	w.BytesField(v.VerificationKey)
	w.Uint64(v.Power)
	w.String(v.Name)
	return w.Bytes()
}

func DecodeValidatorSetEntry(data []byte) (ValidatorSetEntry, error) {
	r := codec.NewReader(data)
	key, err := r.BytesField()
	if err != nil {
		return ValidatorSetEntry{}, err
	}
	power, err := r.Uint64()
	if err != nil {
		return ValidatorSetEntry{}, err
	}
	name, err := r.String()
	if err != nil {
		return ValidatorSetEntry{}, err
	}
	if !r.Done() {
		return ValidatorSetEntry{}, errTrailingBytes("ValidatorSetEntry")
	}
	return ValidatorSetEntry{VerificationKey: key, Power: power, Name: name}, nil
}
