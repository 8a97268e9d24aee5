package grpcsrv

import (
	"context"
	"encoding/hex"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/astria/sequencer/pkg/crypto"
	"github.com/astria/sequencer/pkg/mempool"
	"github.com/astria/sequencer/pkg/sequencer"
	"github.com/astria/sequencer/pkg/store"
)

const testChainID = "astria-test-1"
const testAsset = sequencer.Denom("nria")

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

type flatFeeSchedule struct{ fee sequencer.Uint128 }

func (f flatFeeSchedule) FeeFor(sequencer.Action) (sequencer.Denom, sequencer.Uint128, error) {
	return testAsset, f.fee, nil
}

func newTestServer(t *testing.T) (*Server, *store.Store, *crypto.SigningKey) {
	t.Helper()
	st := store.New(newTestKV(), 0)
	mp := mempool.New(st, testChainID, flatFeeSchedule{fee: sequencer.ZeroUint128})
	key, err := crypto.GenerateSigningKey()
	require.NoError(t, err)

	ov := st.Begin()
	require.NoError(t, ov.Put(store.NonceKey(key.Address().Bytes()), store.EncodeNonce(0)))
	require.NoError(t, ov.Put(store.BalanceKey(key.Address().Bytes(), testAsset.ID()), store.EncodeBalance(sequencer.NewUint128FromUint64(1000))))
	_, _, err = st.Commit(ov)
	require.NoError(t, err)

	return NewServer(mp, NewBroadcaster()), st, key
}

func signedTransfer(t *testing.T, key *crypto.SigningKey, nonce uint32) sequencer.Transaction {
	t.Helper()
	body := sequencer.TransactionBody{
		Params: sequencer.Params{Nonce: nonce, ChainID: testChainID},
		Actions: []sequencer.Action{
			sequencer.Transfer{
				To:       crypto.AddressFromVerificationKey(make([]byte, 32)),
				Amount:   sequencer.NewUint128FromUint64(1),
				Asset:    testAsset,
				FeeAsset: testAsset,
			},
		},
	}
	return sequencer.NewSignedTransaction(body, key)
}

func TestSubmitTx_AdmitsPendingTransaction(t *testing.T) {
	srv, _, key := newTestServer(t)
	tx := signedTransfer(t, key, 0)

	resp, err := srv.SubmitTx(context.Background(), &SubmitTxRequest{TxBytes: tx.Encode()})
	require.NoError(t, err)
	require.Equal(t, "pending", resp.Status)
	require.Equal(t, hex.EncodeToString(tx.Hash()[:]), resp.Hash)
}

func TestSubmitTx_RejectsUndecodableBytes(t *testing.T) {
	srv, _, _ := newTestServer(t)
	_, err := srv.SubmitTx(context.Background(), &SubmitTxRequest{TxBytes: []byte("not a transaction")})
	require.Error(t, err)
}

func TestTxStatus_ReportsPendingAfterSubmit(t *testing.T) {
	srv, _, key := newTestServer(t)
	tx := signedTransfer(t, key, 0)

	_, err := srv.SubmitTx(context.Background(), &SubmitTxRequest{TxBytes: tx.Encode()})
	require.NoError(t, err)

	hash := tx.Hash()
	resp, err := srv.TxStatus(context.Background(), &TxStatusRequest{Hash: hex.EncodeToString(hash[:])})
	require.NoError(t, err)
	require.Equal(t, "pending", resp.Status)
}

func TestTxStatus_UnknownHashReportsUnknown(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := srv.TxStatus(context.Background(), &TxStatusRequest{Hash: hex.EncodeToString(make([]byte, 32))})
	require.NoError(t, err)
	require.Equal(t, "unknown", resp.Status)
}

func TestTxStatus_RejectsMalformedHash(t *testing.T) {
	srv, _, _ := newTestServer(t)
	_, err := srv.TxStatus(context.Background(), &TxStatusRequest{Hash: "not-hex"})
	require.Error(t, err)
}

func TestBroadcaster_PublishDeliversToSubscriber(t *testing.T) {
	b := NewBroadcaster()
	_, feed, cancel := b.Subscribe()
	defer cancel()

	b.Publish(OptimisticBlock{Height: 5, Txs: [][]byte{[]byte("a")}})

	select {
	case block := <-feed:
		require.Equal(t, int64(5), block.Height)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published block")
	}
}

func TestBroadcaster_PublishDropsOnFullChannelWithoutBlocking(t *testing.T) {
	b := NewBroadcaster()
	_, _, cancel := b.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 32; i++ {
			b.Publish(OptimisticBlock{Height: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber channel")
	}
}
