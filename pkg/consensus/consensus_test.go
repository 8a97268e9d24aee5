package consensus

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"sort"
	"testing"
	"time"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/stretchr/testify/require"

	"github.com/astria/sequencer/pkg/actions"
	"github.com/astria/sequencer/pkg/checkedtx"
	"github.com/astria/sequencer/pkg/config"
	"github.com/astria/sequencer/pkg/crypto"
	"github.com/astria/sequencer/pkg/mempool"
	"github.com/astria/sequencer/pkg/merkle"
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

// newTestApp wires an App the way cmd/sequenced would, minus the price
// feed sidecar (priceFeedEnabled=false keeps includesExtendedCommit always
// false so tests don't need to fabricate an ExtendedCommitInfo too).
func newTestApp(t *testing.T, gen *config.Genesis) (*App, *store.Store) {
	t.Helper()
	st := store.New(newTestKV(), 0)
	mp := mempool.New(st, testChainID, flatFeeSchedule{fee: sequencer.ZeroUint128})
	sched := upgrade.NewScheduler(nil)
	app := New(st, mp, testChainID, flatFeeSchedule{fee: sequencer.ZeroUint128}, sched, nil, false, gen)
	return app, st
}

func testGenesis(t *testing.T, sudo, recipient crypto.Address) *config.Genesis {
	t.Helper()
	return &config.Genesis{
		ChainID:      testChainID,
		Sudo:         sudo.String(),
		IbcSudo:      sudo.String(),
		FeeCollector: sudo.String(),
		Assets:       []config.GenesisAsset{{Denom: string(testAsset)}},
		FeeAssets:    []string{string(testAsset)},
		Allocations: []config.GenesisAllocation{
			{Address: sudo.String(), Denom: string(testAsset), Amount: 1_000_000},
		},
	}
}

func initChain(t *testing.T, app *App, gen *config.Genesis) {
	t.Helper()
	_, err := app.InitChain(context.Background(), &abci.RequestInitChain{ChainId: gen.ChainID})
	require.NoError(t, err)
}

func transferTx(t *testing.T, key *crypto.SigningKey, nonce uint32, to crypto.Address) sequencer.Transaction {
	t.Helper()
	body := sequencer.TransactionBody{
		Params: sequencer.Params{Nonce: nonce, ChainID: testChainID},
		Actions: []sequencer.Action{
			sequencer.Transfer{
				To:       to,
				Amount:   sequencer.NewUint128FromUint64(10),
				Asset:    testAsset,
				FeeAsset: testAsset,
			},
		},
	}
	return sequencer.NewSignedTransaction(body, key)
}

// TestFullBlockLifecycle drives PrepareProposal -> ProcessProposal ->
// FinalizeBlock -> Commit for a single Transfer, mirroring how CometBFT
// actually sequences ABCI++ calls for one height (spec §4.5).
func TestFullBlockLifecycle(t *testing.T) {
	key, err := crypto.GenerateSigningKey()
	require.NoError(t, err)
	sudo := key.Address()
	recipient := crypto.AddressFromVerificationKey(make([]byte, 32))

	gen := testGenesis(t, sudo, recipient)
	app, st := newTestApp(t, gen)
	initChain(t, app, gen)
	require.Equal(t, int64(1), st.Height())

	tx := transferTx(t, key, 0, recipient)
	status, err := app.CheckTx(context.Background(), &abci.RequestCheckTx{Tx: tx.Encode()})
	require.NoError(t, err)
	require.Equal(t, uint32(0), status.Code)

	prep, err := app.PrepareProposal(context.Background(), &abci.RequestPrepareProposal{Height: 2})
	require.NoError(t, err)
	require.Len(t, prep.Txs, 3) // rollup_tx_root, rollup_ids_root, the one user tx

	proc, err := app.ProcessProposal(context.Background(), &abci.RequestProcessProposal{Height: 2, Txs: prep.Txs})
	require.NoError(t, err)
	require.Equal(t, abci.ResponseProcessProposal_ACCEPT, proc.Status)

	fin, err := app.FinalizeBlock(context.Background(), &abci.RequestFinalizeBlock{
		Height: 2,
		Txs:    prep.Txs,
		Time:   time.Unix(1000, 0),
	})
	require.NoError(t, err)
	require.Len(t, fin.TxResults, 1)
	require.Equal(t, uint32(0), fin.TxResults[0].Code)
	require.NotEmpty(t, fin.AppHash)

	_, err = app.Commit(context.Background(), &abci.RequestCommit{})
	require.NoError(t, err)
	require.Equal(t, int64(2), st.Height())

	snap := st.CommittedSnapshot()
	raw, err := snap.Get(store.BalanceKey(recipient.Bytes(), testAsset.ID()))
	require.NoError(t, err)
	bal, err := store.DecodeBalance(raw)
	require.NoError(t, err)
	require.Equal(t, sequencer.NewUint128FromUint64(10), bal)
}

// TestProcessProposal_RejectsTamperedRoot exercises spec §4.5's divergence
// check: flipping the proposer-claimed rollup_tx_root must reject even
// though the rest of the proposal is untouched.
func TestProcessProposal_RejectsTamperedRoot(t *testing.T) {
	key, err := crypto.GenerateSigningKey()
	require.NoError(t, err)
	sudo := key.Address()
	recipient := crypto.AddressFromVerificationKey(make([]byte, 32))

	gen := testGenesis(t, sudo, recipient)
	app, _ := newTestApp(t, gen)
	initChain(t, app, gen)

	tx := transferTx(t, key, 0, recipient)
	_, err = app.CheckTx(context.Background(), &abci.RequestCheckTx{Tx: tx.Encode()})
	require.NoError(t, err)

	prep, err := app.PrepareProposal(context.Background(), &abci.RequestPrepareProposal{Height: 2})
	require.NoError(t, err)

	tampered := make([][]byte, len(prep.Txs))
	copy(tampered, prep.Txs)
	tampered[0] = make([]byte, 32) // zero out rollup_tx_root

	proc, err := app.ProcessProposal(context.Background(), &abci.RequestProcessProposal{Height: 2, Txs: tampered})
	require.NoError(t, err)
	require.Equal(t, abci.ResponseProcessProposal_REJECT, proc.Status)
}

// TestInitChain_AppliesValidatorSet confirms genesis validators surface as
// InitChain's ResponseInitChain.Validators, the only way CometBFT learns the
// starting validator set (spec §4.8).
func TestInitChain_AppliesValidatorSet(t *testing.T) {
	key, err := crypto.GenerateSigningKey()
	require.NoError(t, err)
	sudo := key.Address()
	recipient := crypto.AddressFromVerificationKey(make([]byte, 32))
	gen := testGenesis(t, sudo, recipient)
	gen.Validators = []config.GenesisValidator{
		{VerificationKey: hexEncode(key.PublicKey()), Power: 10, Name: "val1"},
	}

	app, _ := newTestApp(t, gen)
	resp, err := app.InitChain(context.Background(), &abci.RequestInitChain{ChainId: gen.ChainID})
	require.NoError(t, err)
	require.Len(t, resp.Validators, 1)
	require.Equal(t, int64(10), resp.Validators[0].Power)
}

func hexEncode(b []byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hextable[c>>4]
		out[i*2+1] = hextable[c&0x0f]
	}
	return string(out)
}

// TestValidatorUpdatesFrom_ReportsDeletionAsZeroPower exercises
// validatorUpdatesFrom directly against a staged overlay, covering both the
// put and delete paths without needing a full block.
func TestValidatorUpdatesFrom_ReportsDeletionAsZeroPower(t *testing.T) {
	st := store.New(newTestKV(), 0)
	ov := st.Begin()

	added := sequencer.ValidatorSetEntry{VerificationKey: make([]byte, 32), Power: 5, Name: "a"}
	addedKeyBytes := make([]byte, 32)
	addedKeyBytes[0] = 1
	added.VerificationKey = addedKeyBytes
	require.NoError(t, ov.Put(store.ValidatorKey(addedKeyBytes), added.Encode()))

	removedKeyBytes := make([]byte, 32)
	removedKeyBytes[0] = 2
	require.NoError(t, ov.Delete(store.ValidatorKey(removedKeyBytes)))

	updates := validatorUpdatesFrom(ov)
	require.Len(t, updates, 2)

	var sawAdd, sawRemove bool
	for _, u := range updates {
		switch u.Power {
		case 5:
			sawAdd = true
			require.Equal(t, addedKeyBytes, u.PubKeyBytes)
		case 0:
			sawRemove = true
			require.Equal(t, removedKeyBytes, u.PubKeyBytes)
		}
	}
	require.True(t, sawAdd)
	require.True(t, sawRemove)
}

// TestBlockDataRoots_EmptyWhenNoRollupActivity confirms the no-submissions
// case resolves to the canonical empty-tree root rather than a zero value
// that happens to look like one (spec §6 invariant 5's base case).
func TestBlockDataRoots_EmptyWhenNoRollupActivity(t *testing.T) {
	acc := newRollupAccumulator()
	txRoot, idsRoot := acc.blockDataRoots()
	require.NotEqual(t, [32]byte{}, txRoot)
	require.Equal(t, txRoot, idsRoot)
}

// TestBlockDataRoots_OrderedByRollupID confirms two rollups with activity
// produce a root ordered by ascending rollup id regardless of the order
// actions.Result entries were added in (spec §4.5 tie-break rule).
func TestBlockDataRoots_OrderedByRollupID(t *testing.T) {
	var idA, idB sequencer.RollupID
	idA[0] = 0x01
	idB[0] = 0x02

	accForward := newRollupAccumulator()
	accForward.add(actions.Result{RollupSubmissions: []actions.RollupSubmission{
		{RollupID: idA, Data: []byte("a")},
		{RollupID: idB, Data: []byte("b")},
	}})

	accReverse := newRollupAccumulator()
	accReverse.add(actions.Result{RollupSubmissions: []actions.RollupSubmission{
		{RollupID: idB, Data: []byte("b")},
		{RollupID: idA, Data: []byte("a")},
	}})

	fTx, fIDs := accForward.blockDataRoots()
	rTx, rIDs := accReverse.blockDataRoots()
	require.Equal(t, fTx, rTx)
	require.Equal(t, fIDs, rIDs)
}

// TestExtendedCommitInfo_EncodeDecodeRoundTrip exercises the wire codec
// used to carry price-feed vote extensions across the fixed tx-list index
// (spec §4.5).
func TestExtendedCommitInfo_EncodeDecodeRoundTrip(t *testing.T) {
	eci := extendedCommitInfo{
		Round: 3,
		Votes: []extendedVote{
			{ValidatorAddress: [20]byte{1, 2, 3}, Power: 100, Extension: []byte("ext-a")},
			{ValidatorAddress: [20]byte{4, 5, 6}, Power: 200, Extension: []byte("ext-b")},
		},
	}

	decoded, err := decodeExtendedCommitInfo(eci.encode())
	require.NoError(t, err)
	require.Equal(t, eci, decoded)
	require.Equal(t, int64(300), decoded.totalPower())
}

// TestOrderByGroup_SudoLast confirms general-signer transactions always
// precede sudo-group ones regardless of input order (spec §4.3).
func TestOrderByGroup_SudoLast(t *testing.T) {
	general := &checkedtx.CheckedTransaction{Group: sequencer.GroupBundledGeneral}
	sudo := &checkedtx.CheckedTransaction{Group: sequencer.GroupBundledSudo}

	ordered := orderByGroup([]*checkedtx.CheckedTransaction{sudo, general})
	require.Same(t, general, ordered[0])
	require.Same(t, sudo, ordered[1])
}

// TestProveRollupTransactions_VerifiesAgainstRoot exercises the inclusion
// proof a rollup node would fetch to check its own data against
// rollup_transactions_root (spec §8 invariant 4).
func TestProveRollupTransactions_VerifiesAgainstRoot(t *testing.T) {
	var idA, idB sequencer.RollupID
	idA[0] = 0x01
	idB[0] = 0x02

	acc := newRollupAccumulator()
	acc.add(actions.Result{RollupSubmissions: []actions.RollupSubmission{
		{RollupID: idA, Data: []byte("a-entry")},
		{RollupID: idB, Data: []byte("b-entry")},
	}})
	rt := acc.transactions()

	proof, err := ProveRollupTransactions(rt, idA)
	require.NoError(t, err)

	entryRoot := merkle.New(rt.ByID[hex.EncodeToString(idA.Bytes())]).Root()
	leaf := append(append([]byte{}, idA.Bytes()...), entryRoot[:]...)

	ok, err := merkle.Verify(leaf, proof, RollupTransactionsRoot(rt))
	require.NoError(t, err)
	require.True(t, ok)
}

// TestProveRollupTransactions_UnknownRollupErrors confirms a rollup with no
// entries in the block can't be handed a proof at all, rather than silently
// proving against an empty leaf.
func TestProveRollupTransactions_UnknownRollupErrors(t *testing.T) {
	var idA, idC sequencer.RollupID
	idA[0] = 0x01
	idC[0] = 0x03

	acc := newRollupAccumulator()
	acc.add(actions.Result{RollupSubmissions: []actions.RollupSubmission{{RollupID: idA, Data: []byte("a")}}})

	_, err := ProveRollupTransactions(acc.transactions(), idC)
	require.Error(t, err)
}

// TestProveRollupID_VerifiesAgainstRoot exercises the companion proof into
// rollup_ids_root (spec §8 invariant 5).
func TestProveRollupID_VerifiesAgainstRoot(t *testing.T) {
	var idA, idB sequencer.RollupID
	idA[0] = 0x01
	idB[0] = 0x02

	acc := newRollupAccumulator()
	acc.add(actions.Result{RollupSubmissions: []actions.RollupSubmission{
		{RollupID: idA, Data: []byte("a-entry")},
		{RollupID: idB, Data: []byte("b-entry")},
	}})
	rt := acc.transactions()

	proof, err := ProveRollupID(rt, idB)
	require.NoError(t, err)

	ok, err := merkle.Verify(idB.Bytes(), proof, RollupIDsRoot(rt))
	require.NoError(t, err)
	require.True(t, ok)
}

// TestProveDataHash_VerifiesAgainstDataHash exercises the proof a rollup
// node uses to check rollup_transactions_root (or rollup_ids_root) itself
// against the block's data_hash (spec §6, §8 invariants 4/5), with
// DataHash reconstructing the same root CometBFT's own block Data.Hash
// computes over the block's transaction list.
func TestProveDataHash_VerifiesAgainstDataHash(t *testing.T) {
	fullTxs := [][]byte{[]byte("rollup-tx-root"), []byte("rollup-ids-root"), []byte("user-tx-1")}

	proof, err := ProveDataHash(fullTxs, 0)
	require.NoError(t, err)

	ok, err := merkle.Verify(fullTxs[0], proof, DataHash(fullTxs))
	require.NoError(t, err)
	require.True(t, ok)
}

// TestValidatorQuery_NameGatedByAspen exercises spec §8 scenario S5 end to
// end: a ValidatorUpdate carrying a name is applied before Aspen's
// activation height, and the validators query must omit the name until the
// block at which Aspen actually activates.
func TestValidatorQuery_NameGatedByAspen(t *testing.T) {
	sudoKey, err := crypto.GenerateSigningKey()
	require.NoError(t, err)
	sudo := sudoKey.Address()
	recipient := crypto.AddressFromVerificationKey(make([]byte, 32))
	gen := testGenesis(t, sudo, recipient)

	st := store.New(newTestKV(), 0)
	mp := mempool.New(st, testChainID, flatFeeSchedule{fee: sequencer.ZeroUint128})
	const aspenHeight = 3
	sched := upgrade.DefaultScheduler(aspenHeight)
	app := New(st, mp, testChainID, flatFeeSchedule{fee: sequencer.ZeroUint128}, sched, nil, false, gen)
	initChain(t, app, gen)

	valKey, err := crypto.GenerateSigningKey()
	require.NoError(t, err)
	body := sequencer.TransactionBody{
		Params: sequencer.Params{Nonce: 0, ChainID: testChainID},
		Actions: []sequencer.Action{
			sequencer.ValidatorUpdate{VerificationKey: valKey.PublicKey(), Power: 50, Name: "alice"},
		},
	}
	tx := sequencer.NewSignedTransaction(body, sudoKey)

	// Height 2 < aspenHeight: name is persisted but not surfaced.
	_, err = app.FinalizeBlock(context.Background(), &abci.RequestFinalizeBlock{
		Height: 2,
		Txs:    [][]byte{make([]byte, 32), make([]byte, 32), tx.Encode()},
		Time:   time.Unix(1000, 0),
	})
	require.NoError(t, err)
	_, err = app.Commit(context.Background(), &abci.RequestCommit{})
	require.NoError(t, err)

	preEntries := queryValidatorEntries(t, app)
	pre, ok := findValidator(preEntries, valKey.PublicKey())
	require.True(t, ok)
	require.Empty(t, pre.Name)

	// Height aspenHeight: ApplyDue activates Aspen at the top of
	// FinalizeBlock, before this block's query would even run, so the
	// surfaced name reflects the now-applied upgrade.
	_, err = app.FinalizeBlock(context.Background(), &abci.RequestFinalizeBlock{
		Height: aspenHeight,
		Txs:    [][]byte{make([]byte, 32), make([]byte, 32)},
		Time:   time.Unix(1001, 0),
	})
	require.NoError(t, err)
	_, err = app.Commit(context.Background(), &abci.RequestCommit{})
	require.NoError(t, err)

	postEntries := queryValidatorEntries(t, app)
	post, ok := findValidator(postEntries, valKey.PublicKey())
	require.True(t, ok)
	require.Equal(t, "alice", post.Name)
}

func queryValidatorEntries(t *testing.T, app *App) []validatorEntry {
	t.Helper()
	value, _, err := app.QueryPath("validators", nil)
	require.NoError(t, err)
	var entries []validatorEntry
	require.NoError(t, json.Unmarshal(value, &entries))
	return entries
}

func findValidator(entries []validatorEntry, verificationKey []byte) (validatorEntry, bool) {
	want := hex.EncodeToString(verificationKey)
	for _, e := range entries {
		if e.VerificationKey == want {
			return e, true
		}
	}
	return validatorEntry{}, false
}
