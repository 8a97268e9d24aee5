package store

import (
	"encoding/binary"
	"fmt"

	"github.com/astria/sequencer/pkg/sequencer"
)

// EncodeNonce/DecodeNonce encode the uint32 stored at NonceKey. A missing
// key (nil value) decodes to nonce 0, the nonce every fresh account starts
// at per spec §4.4 Transfer's precondition list.
func EncodeNonce(nonce uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], nonce)
	return b[:]
}

func DecodeNonce(value []byte) (uint32, error) {
	if value == nil {
		return 0, nil
	}
	if len(value) != 4 {
		return 0, fmt.Errorf("store: nonce value must be 4 bytes, got %d", len(value))
	}
	return binary.BigEndian.Uint32(value), nil
}

// EncodeBalance/DecodeBalance encode the Uint128 stored at BalanceKey. A
// missing key decodes to zero, matching an account that has never received
// the asset.
func EncodeBalance(bal sequencer.Uint128) []byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], bal.Hi)
	binary.BigEndian.PutUint64(b[8:16], bal.Lo)
	return b[:]
}

// EncodeUint64/Uint64FromBytesOrZero encode the small scalar counters
// (e.g. CurrencyPairNextIDKey) that have no dedicated sequencer type.
func EncodeUint64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

func Uint64FromBytesOrZero(value []byte) (uint64, error) {
	if value == nil {
		return 0, nil
	}
	return Uint64FromBytes(value)
}

func DecodeBalance(value []byte) (sequencer.Uint128, error) {
	if value == nil {
		return sequencer.ZeroUint128, nil
	}
	if len(value) != 16 {
		return sequencer.Uint128{}, fmt.Errorf("store: balance value must be 16 bytes, got %d", len(value))
	}
	return sequencer.Uint128{
		Hi: binary.BigEndian.Uint64(value[0:8]),
		Lo: binary.BigEndian.Uint64(value[8:16]),
	}, nil
}
