// Package store implements the sequencer's persistent key-value state: a
// versioned, snapshot-capable map supporting staged-write overlays that
// commit or discard atomically and produce a deterministic 32-byte
// application hash (spec §4.1, §6 "Persisted state layout").
package store

import (
	"encoding/binary"
	"fmt"

	"github.com/astria/sequencer/pkg/sequencer"
)

// Key prefixes exactly as enumerated in spec §6: "acct/{addr}/nonce,
// acct/{addr}/bal/{asset}, asset/denom/{id}, bridge/{addr}/*,
// validator/{key}, fee/{action_kind}, pricefeed/pair/{id},
// pricefeed/price/{id}, upgrade/applied/{name}, ibc/*".
const (
	prefixAcct           = "acct/"
	suffixNonce          = "/nonce"
	suffixBalPrefix      = "/bal/"
	prefixAssetDenom     = "asset/denom/"
	prefixFeeAsset       = "asset/fee_asset/"
	prefixBridgeAcct     = "bridge/"
	suffixBridgeAccount  = "/account"
	suffixBridgeLastTx   = "/last_tx_hash"
	prefixValidator      = "validator/"
	prefixFee            = "fee/"
	prefixPricefeedPair  = "pricefeed/pair/"
	prefixPricefeedPrice = "pricefeed/price/"
	prefixPricefeedNext  = "pricefeed/next_id"
	prefixUpgradeApplied = "upgrade/applied/"
	prefixIBCRelayer     = "ibc/relayer/"
	keyChainSudo         = "chain/sudo"
	keyChainIbcSudo      = "chain/ibc_sudo"
	keyChainFeeCollector = "chain/fee_collector"
)

// NonceKey is "acct/{addr}/nonce".
func NonceKey(addr []byte) []byte {
	k := append([]byte(prefixAcct), addr...)
	return append(k, []byte(suffixNonce)...)
}

// BalanceKey is "acct/{addr}/bal/{asset}".
func BalanceKey(addr []byte, assetID sequencer.AssetID) []byte {
	k := append([]byte(prefixAcct), addr...)
	k = append(k, []byte(suffixBalPrefix)...)
	return append(k, assetID.Bytes()...)
}

// BalancePrefix returns the common prefix of every balance key for addr,
// used to iterate an account's full balance set.
func BalancePrefix(addr []byte) []byte {
	k := append([]byte(prefixAcct), addr...)
	return append(k, []byte(suffixBalPrefix)...)
}

// AssetIDFromBalanceKey extracts the trailing AssetID from a key produced
// by BalanceKey/BalancePrefix, for callers iterating BalancePrefix.
func AssetIDFromBalanceKey(key []byte) (sequencer.AssetID, error) {
	if len(key) < 32 {
		return sequencer.AssetID{}, fmt.Errorf("store: balance key too short: %d bytes", len(key))
	}
	return sequencer.AssetIDFromBytes(key[len(key)-32:])
}

func AssetDenomKey(id sequencer.AssetID) []byte {
	return append([]byte(prefixAssetDenom), id.Bytes()...)
}

func FeeAssetKey(id sequencer.AssetID) []byte {
	return append([]byte(prefixFeeAsset), id.Bytes()...)
}

// FeeAssetPrefix is the prefix over every allowed fee asset entry.
func FeeAssetPrefix() []byte { return []byte(prefixFeeAsset) }

func BridgeAccountKey(addr []byte) []byte {
	k := append([]byte(prefixBridgeAcct), addr...)
	return append(k, []byte(suffixBridgeAccount)...)
}

func BridgeLastTxKey(addr []byte) []byte {
	k := append([]byte(prefixBridgeAcct), addr...)
	return append(k, []byte(suffixBridgeLastTx)...)
}

func ValidatorKey(verificationKey []byte) []byte {
	return append([]byte(prefixValidator), verificationKey...)
}

// ValidatorPrefix is the prefix over every live validator-set entry.
func ValidatorPrefix() []byte { return []byte(prefixValidator) }

func FeeScheduleKey(kind sequencer.ActionKind) []byte {
	return append([]byte(prefixFee), byte(kind))
}

func CurrencyPairKey(id sequencer.CurrencyPairID) []byte {
	return append([]byte(prefixPricefeedPair), uint64Bytes(uint64(id))...)
}

// CurrencyPairPrefix is the prefix over every registered currency pair.
func CurrencyPairPrefix() []byte { return []byte(prefixPricefeedPair) }

// CurrencyPairIDFromKey extracts the trailing id from a key produced by
// CurrencyPairKey, for callers iterating CurrencyPairPrefix.
func CurrencyPairIDFromKey(key []byte) (sequencer.CurrencyPairID, error) {
	if len(key) < 8 {
		return 0, fmt.Errorf("store: currency pair key too short: %d bytes", len(key))
	}
	v, err := Uint64FromBytes(key[len(key)-8:])
	return sequencer.CurrencyPairID(v), err
}

func PriceKey(id sequencer.CurrencyPairID) []byte {
	return append([]byte(prefixPricefeedPrice), uint64Bytes(uint64(id))...)
}

// CurrencyPairNextIDKey stores the next id to assign on Addition.
func CurrencyPairNextIDKey() []byte { return []byte(prefixPricefeedNext) }

func UpgradeAppliedKey(name string) []byte {
	return append([]byte(prefixUpgradeApplied), []byte(name)...)
}

func IBCRelayerKey(addr []byte) []byte {
	return append([]byte(prefixIBCRelayer), addr...)
}

// IBCRelayerPrefix is the prefix over every allow-listed relayer entry.
func IBCRelayerPrefix() []byte { return []byte(prefixIBCRelayer) }

// ChainSudoKey and ChainIbcSudoKey store the chain's two privileged
// addresses (spec §4.4 SudoAddressChange / IbcSudoChange).
func ChainSudoKey() []byte    { return []byte(keyChainSudo) }
func ChainIbcSudoKey() []byte { return []byte(keyChainIbcSudo) }

// ChainFeeCollectorKey stores the address credited with every action fee
// (spec §4.4 Transfer: "credit fee receiver by fee"; the spec does not name
// where that receiver's address comes from, so it is a genesis-configured
// chain parameter rather than a hardcoded constant).
func ChainFeeCollectorKey() []byte { return []byte(keyChainFeeCollector) }

func uint64Bytes(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

func Uint64FromBytes(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("store: expected 8-byte uint64 key suffix, got %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}
