package queryhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/stretchr/testify/require"

	"github.com/astria/sequencer/pkg/config"
	"github.com/astria/sequencer/pkg/consensus"
	"github.com/astria/sequencer/pkg/crypto"
	"github.com/astria/sequencer/pkg/mempool"
	"github.com/astria/sequencer/pkg/sequencer"
	"github.com/astria/sequencer/pkg/store"
	"github.com/astria/sequencer/pkg/upgrade"
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

// newTestHandlers wires a Handlers over a freshly-initialized chain with
// one funded account, returning that account's address so tests can query
// it without reaching into the Handlers' unexported App.
func newTestHandlers(t *testing.T) (*Handlers, crypto.Address) {
	t.Helper()
	st := store.New(newTestKV(), 0)
	mp := mempool.New(st, testChainID, flatFeeSchedule{fee: sequencer.ZeroUint128})
	sched := upgrade.NewScheduler(nil)
	key, err := crypto.GenerateSigningKey()
	require.NoError(t, err)
	addr := key.Address()

	gen := &config.Genesis{
		ChainID:      testChainID,
		Sudo:         addr.String(),
		IbcSudo:      addr.String(),
		FeeCollector: addr.String(),
		Assets:       []config.GenesisAsset{{Denom: string(testAsset)}},
		FeeAssets:    []string{string(testAsset)},
		Allocations: []config.GenesisAllocation{
			{Address: addr.String(), Denom: string(testAsset), Amount: 500},
		},
	}
	app := consensus.New(st, mp, testChainID, flatFeeSchedule{fee: sequencer.ZeroUint128}, sched, nil, false, gen)
	_, err = app.InitChain(context.Background(), &abci.RequestInitChain{ChainId: testChainID})
	require.NoError(t, err)

	return NewHandlers(app), addr
}

func TestHandleBalance(t *testing.T) {
	h, addr := newTestHandlers(t)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/accounts/balance/"+addr.String(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var entries []map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	require.Equal(t, string(testAsset), entries[0]["asset"])
	require.Equal(t, "500", entries[0]["amount"])
}

func TestHandleNonce(t *testing.T) {
	h, addr := newTestHandlers(t)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/accounts/nonce/"+addr.String(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "0", rec.Body.String())
}

func TestHandleNonce_UnknownAddress(t *testing.T) {
	h, _ := newTestHandlers(t)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	other, err := crypto.GenerateSigningKey()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/accounts/nonce/"+other.Address().String(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	// An account with no recorded nonce decodes as zero, not an error —
	// every address implicitly starts at nonce 0.
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "0", rec.Body.String())
}

func TestHandleUpgrades(t *testing.T) {
	h, _ := newTestHandlers(t)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/upgrades", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Applied   []string `json:"applied"`
		Scheduled []string `json:"scheduled"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Applied)
	require.Empty(t, resp.Scheduled)
}

func TestHandleBlock_NotFoundWithoutArchive(t *testing.T) {
	h, _ := newTestHandlers(t)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/block/1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleBridgeAccountInfo_NotFound(t *testing.T) {
	h, addr := newTestHandlers(t)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/bridge/account_info/"+addr.String(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body["error"])
}
