package pricefeed

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

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

// TestAggregatePrices_S4 mirrors spec §8 scenario S4: 4 validators with
// powers 40, 30, 20, 10 (total 100) report prices 100, 101, 102, 200 for
// pair id=0. The cumulative-weight median crosses 50 at 101.
func TestAggregatePrices_S4(t *testing.T) {
	pairID := sequencer.CurrencyPairID(0)
	votes := []Vote{
		{Power: 40, Extension: VoteExtension{Prices: []PricePoint{{ID: pairID, Value: sequencer.NewUint128FromUint64(100)}}}},
		{Power: 30, Extension: VoteExtension{Prices: []PricePoint{{ID: pairID, Value: sequencer.NewUint128FromUint64(101)}}}},
		{Power: 20, Extension: VoteExtension{Prices: []PricePoint{{ID: pairID, Value: sequencer.NewUint128FromUint64(102)}}}},
		{Power: 10, Extension: VoteExtension{Prices: []PricePoint{{ID: pairID, Value: sequencer.NewUint128FromUint64(200)}}}},
	}

	results := AggregatePrices([]sequencer.CurrencyPairID{pairID}, votes, 100)
	require.Len(t, results, 1)
	require.True(t, results[0].Updated)
	require.Equal(t, sequencer.NewUint128FromUint64(101), results[0].Median)
}

func TestAggregatePrices_SkipsBelowThreshold(t *testing.T) {
	pairID := sequencer.CurrencyPairID(0)
	votes := []Vote{
		{Power: 40, Extension: VoteExtension{Prices: []PricePoint{{ID: pairID, Value: sequencer.NewUint128FromUint64(100)}}}},
	}

	results := AggregatePrices([]sequencer.CurrencyPairID{pairID}, votes, 100)
	require.Len(t, results, 1)
	require.False(t, results[0].Updated)
}

func TestAggregatePrices_SkipsUncontributedPair(t *testing.T) {
	pairID := sequencer.CurrencyPairID(1)
	votes := []Vote{
		{Power: 100, Extension: VoteExtension{Prices: []PricePoint{{ID: sequencer.CurrencyPairID(0), Value: sequencer.NewUint128FromUint64(5)}}}},
	}

	results := AggregatePrices([]sequencer.CurrencyPairID{pairID}, votes, 100)
	require.Len(t, results, 1)
	require.False(t, results[0].Updated)
}

func TestApplyResults_IncrementsNonce(t *testing.T) {
	st := store.New(newTestKV(), 0)
	ov := st.Begin()

	pairID := sequencer.CurrencyPairID(0)
	results := []Result{{ID: pairID, Updated: true, Median: sequencer.NewUint128FromUint64(101)}}

	written, err := ApplyResults(ov, results, 1, time.Unix(1000, 0))
	require.NoError(t, err)
	require.Equal(t, []sequencer.CurrencyPairID{pairID}, written)

	raw, err := ov.Get(store.PriceKey(pairID))
	require.NoError(t, err)
	price, err := sequencer.DecodePrice(raw)
	require.NoError(t, err)
	require.Equal(t, uint32(1), price.Nonce)
	require.Equal(t, uint64(101), price.ValueLo)

	results2 := []Result{{ID: pairID, Updated: true, Median: sequencer.NewUint128FromUint64(102)}}
	_, err = ApplyResults(ov, results2, 2, time.Unix(2000, 0))
	require.NoError(t, err)

	raw, err = ov.Get(store.PriceKey(pairID))
	require.NoError(t, err)
	price, err = sequencer.DecodePrice(raw)
	require.NoError(t, err)
	require.Equal(t, uint32(2), price.Nonce)
}

func TestVoteExtensionRoundTrip(t *testing.T) {
	ve := BuildVoteExtension(map[sequencer.CurrencyPairID]sequencer.Uint128{
		2: sequencer.NewUint128FromUint64(55),
		0: sequencer.NewUint128FromUint64(10),
		1: sequencer.NewUint128FromUint64(20),
	})
	require.Equal(t, []sequencer.CurrencyPairID{0, 1, 2}, []sequencer.CurrencyPairID{ve.Prices[0].ID, ve.Prices[1].ID, ve.Prices[2].ID})

	decoded, err := DecodeVoteExtension(ve.Encode())
	require.NoError(t, err)
	require.Equal(t, ve, decoded)
}
