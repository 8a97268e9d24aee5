package sequencer

import (
	"github.com/astria/sequencer/pkg/codec"
	"github.com/astria/sequencer/pkg/crypto"
)

// BridgeAccount is the persisted state attached to an account once it has
// been initialized as a bridge (spec §3 Bridge Account). rollup_id and
// asset are immutable once set; sudo may rotate Sudo/Withdrawer.
type BridgeAccount struct {
	RollupID   RollupID
	Asset      Denom
	Sudo       crypto.Address
	Withdrawer crypto.Address
}

func (b BridgeAccount) Encode() []byte {
	w := codec.NewWriter(64)
	writeRollupID(w, b.RollupID)
	writeDenom(w, b.Asset)
	writeAddress(w, b.Sudo)
	writeAddress(w, b.Withdrawer)
	return w.Bytes()
}

func DecodeBridgeAccount(data []byte) (BridgeAccount, error) {
	r := codec.NewReader(data)
	rollupID, err := readRollupID(r)
	if err != nil {
		return BridgeAccount{}, err
	}
	asset, err := readDenom(r)
	if err != nil {
		return BridgeAccount{}, err
	}
	sudo, err := readAddress(r)
	if err != nil {
		return BridgeAccount{}, err
	}
	withdrawer, err := readAddress(r)
	if err != nil {
		return BridgeAccount{}, err
	}
	if !r.Done() {
		return BridgeAccount{}, errTrailingBytes("BridgeAccount")
	}
	return BridgeAccount{RollupID: rollupID, Asset: asset, Sudo: sudo, Withdrawer: withdrawer}, nil
}

// Deposit is emitted exactly once per successful bridge-lock-like action
// (spec §3 Deposit Event) and travels with the destination rollup's block
// data rather than with general sequencer state.
type Deposit struct {
	BridgeAddress          crypto.Address
	RollupID               RollupID
	Amount                 Uint128
	Asset                  Denom
	DestinationChainAddress string
	SourceTransactionID     [32]byte
	SourceActionIndex       uint32
}

func (d Deposit) Encode() []byte {
	w := codec.NewWriter(128)
	writeAddress(w, d.BridgeAddress)
	writeRollupID(w, d.RollupID)
	writeUint128(w, d.Amount)
	writeDenom(w, d.Asset)
	w.String(d.DestinationChainAddress)
	w.RawFixed(d.SourceTransactionID[:])
	w.Uint32(d.SourceActionIndex)
	return w.Bytes()
}

func DecodeDeposit(data []byte) (Deposit, error) {
	r := codec.NewReader(data)
	bridgeAddr, err := readAddress(r)
	if err != nil {
		return Deposit{}, err
	}
	rollupID, err := readRollupID(r)
	if err != nil {
		return Deposit{}, err
	}
	amount, err := readUint128(r)
	if err != nil {
		return Deposit{}, err
	}
	asset, err := readDenom(r)
	if err != nil {
		return Deposit{}, err
	}
	dest, err := r.String()
	if err != nil {
		return Deposit{}, err
	}
	txIDBytes, err := r.RawFixed(32)
	if err != nil {
		return Deposit{}, err
	}
	idx, err := r.Uint32()
	if err != nil {
		return Deposit{}, err
	}
	if !r.Done() {
		return Deposit{}, errTrailingBytes("Deposit")
	}
	var txID [32]byte
	copy(txID[:], txIDBytes)
	return Deposit{
		BridgeAddress:            bridgeAddr,
		RollupID:                 rollupID,
		Amount:                   amount,
		Asset:                    asset,
		DestinationChainAddress:  dest,
		SourceTransactionID:      txID,
		SourceActionIndex:        idx,
	}, nil
}

