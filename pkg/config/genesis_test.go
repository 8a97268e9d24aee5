package config

import (
	"encoding/hex"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astria/sequencer/pkg/crypto"
	"github.com/astria/sequencer/pkg/sequencer"
	"github.com/astria/sequencer/pkg/store"
)

type testKV struct{ data map[string][]byte }

func newTestKV() *testKV { return &testKV{data: make(map[string][]byte)} }

func (k *testKV) Get(key []byte) ([]byte, error) { return k.data[string(key)], nil }
func (k *testKV) Set(key, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	k.data[string(key)] = v
	return nil
}
func (k *testKV) Delete(key []byte) error { delete(k.data, string(key)); return nil }
func (k *testKV) Iterator(start, end []byte) (store.Iterator, error) {
	keys := make([]string, 0, len(k.data))
	for key := range k.data {
		if start != nil && key < string(start) {
			continue
		}
		if end != nil && key >= string(end) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return &testIterator{kv: k, keys: keys}, nil
}

type testIterator struct {
	kv   *testKV
	keys []string
	pos  int
}

func (it *testIterator) Valid() bool   { return it.pos < len(it.keys) }
func (it *testIterator) Next()         { it.pos++ }
func (it *testIterator) Key() []byte   { return []byte(it.keys[it.pos]) }
func (it *testIterator) Value() []byte { return it.kv.data[it.keys[it.pos]] }
func (it *testIterator) Close() error  { return nil }

func TestApplyGenesis(t *testing.T) {
	sudoAddr := crypto.AddressFromVerificationKey([]byte("sudo-key"))
	ibcSudoAddr := crypto.AddressFromVerificationKey([]byte("ibc-sudo-key"))
	feeCollectorAddr := crypto.AddressFromVerificationKey([]byte("fee-collector-key"))
	holderAddr := crypto.AddressFromVerificationKey([]byte("holder-key"))
	relayerAddr := crypto.AddressFromVerificationKey([]byte("relayer-key"))
	valKey := []byte("01234567890123456789012345678901")

	gen := Genesis{
		ChainID:      "test-chain",
		Sudo:         sudoAddr.String(),
		IbcSudo:      ibcSudoAddr.String(),
		FeeCollector: feeCollectorAddr.String(),
		Assets:       []GenesisAsset{{Denom: "nria"}},
		FeeAssets:    []string{"nria"},
		FeeSchedules: []GenesisFeeSchedule{
			{Action: "Transfer", Base: 10, Multiplier: 0},
		},
		Allocations: []GenesisAllocation{
			{Address: holderAddr.String(), Denom: "nria", Amount: 1_000_000},
		},
		Validators: []GenesisValidator{
			{VerificationKey: hex.EncodeToString(valKey), Power: 100, Name: "validator-1"},
		},
		CurrencyPairs: []GenesisCurrencyPair{
			{Base: "BTC", Quote: "USD", Decimals: 8},
		},
		IbcRelayers: []string{relayerAddr.String()},
	}

	st := store.New(newTestKV(), 0)
	ov := st.Begin()
	require.NoError(t, ApplyGenesis(ov, gen))

	sudoVal, err := ov.Get(store.ChainSudoKey())
	require.NoError(t, err)
	require.Equal(t, sudoAddr.Bytes(), sudoVal)

	assetVal, err := ov.Get(store.AssetDenomKey(sequencer.Denom("nria").ID()))
	require.NoError(t, err)
	require.Equal(t, "nria", string(assetVal))

	feeAssetVal, err := ov.Get(store.FeeAssetKey(sequencer.Denom("nria").ID()))
	require.NoError(t, err)
	require.Equal(t, []byte{1}, feeAssetVal)

	scheduleRaw, err := ov.Get(store.FeeScheduleKey(sequencer.KindTransfer))
	require.NoError(t, err)
	schedule, err := sequencer.DecodeFeeSchedule(scheduleRaw)
	require.NoError(t, err)
	require.Equal(t, sequencer.NewUint128FromUint64(10), schedule.Base)

	balRaw, err := ov.Get(store.BalanceKey(holderAddr.Bytes(), sequencer.Denom("nria").ID()))
	require.NoError(t, err)
	bal, err := store.DecodeBalance(balRaw)
	require.NoError(t, err)
	require.Equal(t, sequencer.NewUint128FromUint64(1_000_000), bal)

	valRaw, err := ov.Get(store.ValidatorKey(valKey))
	require.NoError(t, err)
	val, err := sequencer.DecodeValidatorSetEntry(valRaw)
	require.NoError(t, err)
	require.Equal(t, uint64(100), val.Power)
	require.Equal(t, "validator-1", val.Name)

	relayerVal, err := ov.Get(store.IBCRelayerKey(relayerAddr.Bytes()))
	require.NoError(t, err)
	require.Equal(t, []byte{1}, relayerVal)

	pairRaw, err := ov.Get(store.CurrencyPairKey(sequencer.CurrencyPairID(0)))
	require.NoError(t, err)
	pair, err := sequencer.DecodeCurrencyPair(pairRaw)
	require.NoError(t, err)
	require.Equal(t, "BTC", pair.Base)

	nextIDRaw, err := ov.Get(store.CurrencyPairNextIDKey())
	require.NoError(t, err)
	nextID, err := store.Uint64FromBytesOrZero(nextIDRaw)
	require.NoError(t, err)
	require.Equal(t, uint64(1), nextID)
}

func TestApplyGenesis_RejectsInvalidAddress(t *testing.T) {
	gen := Genesis{Sudo: "not-a-valid-address"}
	st := store.New(newTestKV(), 0)
	ov := st.Begin()
	require.Error(t, ApplyGenesis(ov, gen))
}
