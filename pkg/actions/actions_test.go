package actions

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astria/sequencer/pkg/crypto"
	"github.com/astria/sequencer/pkg/sequencer"
	"github.com/astria/sequencer/pkg/store"
)

// testKV is a minimal in-memory store.KV fake, mirroring the one
// pkg/checkedtx carries for the same reason: pkg/store's own memKV is
// unexported.
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

func newTestOverlay(t *testing.T) *store.Overlay {
	t.Helper()
	s := store.New(newTestKV(), 0)
	return s.Begin()
}

func mustAddress(t *testing.T, seed byte) crypto.Address {
	t.Helper()
	key := make([]byte, 32)
	key[0] = seed
	return crypto.AddressFromVerificationKey(key)
}

func registerAsset(t *testing.T, ov *store.Overlay, denom sequencer.Denom) {
	t.Helper()
	require.NoError(t, ov.Put(store.AssetDenomKey(denom.ID()), []byte(denom)))
	require.NoError(t, ov.Put(store.FeeAssetKey(denom.ID()), []byte{1}))
}

func setFeeSchedule(t *testing.T, ov *store.Overlay, kind sequencer.ActionKind, base uint64) {
	t.Helper()
	sched := sequencer.FeeSchedule{Base: sequencer.NewUint128FromUint64(base), Multiplier: sequencer.ZeroUint128}
	require.NoError(t, ov.Put(store.FeeScheduleKey(kind), sched.Encode()))
}

// TestTransfer_S1 mirrors spec §8 scenario S1: genesis allocates 1,000,000
// of asset X to A; A transfers 100 to B with a flat fee of 10 in X.
// Expected post-state: A=999,890, B=100, fee collector=10.
func TestTransfer_S1(t *testing.T) {
	ov := newTestOverlay(t)
	asset := sequencer.Denom("X")
	a := mustAddress(t, 1)
	b := mustAddress(t, 2)
	collector := mustAddress(t, 3)

	registerAsset(t, ov, asset)
	setFeeSchedule(t, ov, sequencer.KindTransfer, 10)
	require.NoError(t, ov.Put(store.ChainFeeCollectorKey(), collector.Bytes()))
	require.NoError(t, putBalance(ov, a.Bytes(), asset.ID(), sequencer.NewUint128FromUint64(1_000_000)))

	ctx := Context{Overlay: ov, Signer: a}
	_, err := Execute(ctx, sequencer.Transfer{To: b, Amount: sequencer.NewUint128FromUint64(100), Asset: asset, FeeAsset: asset})
	require.NoError(t, err)

	balA, err := getBalance(ov, a.Bytes(), asset.ID())
	require.NoError(t, err)
	require.Equal(t, sequencer.NewUint128FromUint64(999_890), balA)

	balB, err := getBalance(ov, b.Bytes(), asset.ID())
	require.NoError(t, err)
	require.Equal(t, sequencer.NewUint128FromUint64(100), balB)

	balCollector, err := getBalance(ov, collector.Bytes(), asset.ID())
	require.NoError(t, err)
	require.Equal(t, sequencer.NewUint128FromUint64(10), balCollector)
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	ov := newTestOverlay(t)
	asset := sequencer.Denom("X")
	a := mustAddress(t, 1)
	b := mustAddress(t, 2)

	registerAsset(t, ov, asset)
	setFeeSchedule(t, ov, sequencer.KindTransfer, 10)
	require.NoError(t, ov.Put(store.ChainFeeCollectorKey(), mustAddress(t, 9).Bytes()))
	require.NoError(t, putBalance(ov, a.Bytes(), asset.ID(), sequencer.NewUint128FromUint64(5)))

	ctx := Context{Overlay: ov, Signer: a}
	_, err := Execute(ctx, sequencer.Transfer{To: b, Amount: sequencer.NewUint128FromUint64(100), Asset: asset, FeeAsset: asset})
	require.Error(t, err)
}

func TestInitBridgeAccount_ThenBridgeLock(t *testing.T) {
	ov := newTestOverlay(t)
	asset := sequencer.Denom("X")
	bridgeSigner := mustAddress(t, 1)
	depositor := mustAddress(t, 2)
	collector := mustAddress(t, 3)
	rollupID := sequencer.RollupID{0xAA}

	registerAsset(t, ov, asset)
	setFeeSchedule(t, ov, sequencer.KindInitBridgeAccount, 0)
	setFeeSchedule(t, ov, sequencer.KindBridgeLock, 0)
	require.NoError(t, ov.Put(store.ChainFeeCollectorKey(), collector.Bytes()))
	require.NoError(t, putBalance(ov, depositor.Bytes(), asset.ID(), sequencer.NewUint128FromUint64(1000)))

	_, err := Execute(Context{Overlay: ov, Signer: bridgeSigner}, sequencer.InitBridgeAccount{
		RollupID: rollupID, Asset: asset, FeeAsset: asset,
	})
	require.NoError(t, err)

	acct, exists, err := getBridgeAccount(ov, bridgeSigner.Bytes())
	require.NoError(t, err)
	require.True(t, exists)
	require.Equal(t, bridgeSigner, acct.Sudo)
	require.Equal(t, bridgeSigner, acct.Withdrawer)

	result, err := Execute(Context{Overlay: ov, Signer: depositor, TxHash: [32]byte{1}, ActionIndex: 0}, sequencer.BridgeLock{
		To: bridgeSigner, Amount: sequencer.NewUint128FromUint64(250), Asset: asset,
		DestinationChainAddress: "rollup1addr", FeeAsset: asset,
	})
	require.NoError(t, err)
	require.Len(t, result.Deposits, 1)
	require.Equal(t, rollupID, result.Deposits[0].RollupID)
	require.Equal(t, sequencer.NewUint128FromUint64(250), result.Deposits[0].Amount)

	bridgeBal, err := getBalance(ov, bridgeSigner.Bytes(), asset.ID())
	require.NoError(t, err)
	require.Equal(t, sequencer.NewUint128FromUint64(250), bridgeBal)
}

func TestValidatorUpdate_RequiresSudo(t *testing.T) {
	ov := newTestOverlay(t)
	sudo := mustAddress(t, 1)
	notSudo := mustAddress(t, 2)
	require.NoError(t, ov.Put(store.ChainSudoKey(), sudo.Bytes()))

	update := sequencer.ValidatorUpdate{VerificationKey: make([]byte, 32), Power: 10}
	err := requireSudo(ov, notSudo)
	require.Error(t, err)

	require.NoError(t, requireSudo(ov, sudo))
	require.NoError(t, execValidatorUpdate(Context{Overlay: ov}, update))

	raw, err := ov.Get(store.ValidatorKey(update.VerificationKey))
	require.NoError(t, err)
	require.NotNil(t, raw)
}

func TestValidatorUpdate_ZeroPowerDeletes(t *testing.T) {
	ov := newTestOverlay(t)
	key := make([]byte, 32)
	key[0] = 7
	require.NoError(t, execValidatorUpdate(Context{Overlay: ov}, sequencer.ValidatorUpdate{VerificationKey: key, Power: 10}))
	require.NoError(t, execValidatorUpdate(Context{Overlay: ov}, sequencer.ValidatorUpdate{VerificationKey: key, Power: 0}))

	raw, err := ov.Get(store.ValidatorKey(key))
	require.NoError(t, err)
	require.Nil(t, raw)
}

func TestCurrencyPairsChange_AdditionAssignsSequentialIDs(t *testing.T) {
	ov := newTestOverlay(t)
	err := execCurrencyPairsChange(Context{Overlay: ov}, sequencer.CurrencyPairsChange{
		Change: sequencer.ChangeAddition,
		Pairs: []sequencer.CurrencyPair{
			{Base: "BTC", Quote: "USD", Decimals: 8},
			{Base: "ETH", Quote: "USD", Decimals: 8},
		},
	})
	require.NoError(t, err)

	id0, ok, err := findCurrencyPairID(ov, sequencer.CurrencyPair{Base: "BTC", Quote: "USD"})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, sequencer.CurrencyPairID(0), id0)

	id1, ok, err := findCurrencyPairID(ov, sequencer.CurrencyPair{Base: "ETH", Quote: "USD"})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, sequencer.CurrencyPairID(1), id1)
}

func TestCurrencyPairsChange_RemovalRequiresExisting(t *testing.T) {
	ov := newTestOverlay(t)
	err := execCurrencyPairsChange(Context{Overlay: ov}, sequencer.CurrencyPairsChange{
		Change: sequencer.ChangeRemoval,
		Pairs:  []sequencer.CurrencyPair{{Base: "BTC", Quote: "USD"}},
	})
	require.Error(t, err)
}
