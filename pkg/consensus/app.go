// Package consensus implements the ABCI++ application: the proposal
// pipeline (PrepareProposal/ProcessProposal/ExtendVote/VerifyVoteExtension),
// block finalization, and commit, wired against pkg/store, pkg/checkedtx,
// pkg/actions, pkg/mempool, pkg/pricefeed, and pkg/upgrade (spec §4.5).
package consensus

import (
	"sync"

	"github.com/astria/sequencer/pkg/checkedtx"
	"github.com/astria/sequencer/pkg/config"
	"github.com/astria/sequencer/pkg/mempool"
	"github.com/astria/sequencer/pkg/pricefeed"
	"github.com/astria/sequencer/pkg/store"
	"github.com/astria/sequencer/pkg/upgrade"
)

const (
	// MaxBlockBytes bounds the total wire size of user transactions a
	// proposal may include (spec §4.5: "per-block byte budget").
	MaxBlockBytes = 4 << 20
	// MaxSequencedDataBytes bounds the total rollup-bound payload bytes a
	// proposal may include (spec §4.5: "per-block sequenced-data budget").
	MaxSequencedDataBytes = 2 << 20
	// extendedCommitInfoIndex is where extended_commit_info sits in the
	// block's transaction list when present (spec §4.5: "at a fixed index
	// (third) in the block's transaction list"). Indices 0 and 1 hold
	// rollup_transactions_root and rollup_ids_root, which PrepareProposal
	// builds and ProcessProposal re-derives and compares.
	extendedCommitInfoIndex = 2
)

// App is the sequencer's ABCI++ application. One instance per node process;
// every ABCI method is called by the consensus driver on a single logical
// thread (spec §5), so App serializes with one mutex rather than per-method
// locks, matching the store's own single-writer discipline.
type App struct {
	mu sync.Mutex

	store            *store.Store
	mempool          *mempool.Mempool
	chainID          string
	feeSchedules     checkedtx.FeeScheduleLookup
	upgrades         *upgrade.Scheduler
	priceClient      pricefeed.Client
	priceFeedEnabled bool
	genesis          *config.Genesis

	// block carries the just-finalized height across to Commit — the only
	// two ABCI calls that share state across an invocation boundary. The
	// overlay itself is already committed to the store by the time
	// FinalizeBlock returns (see finalize.go), since CometBFT needs
	// app_hash back from FinalizeBlock itself rather than from the later
	// Commit call; Commit's remaining jobs are handing the block to
	// archiveSink (when set) and the post-commit mempool recheck (spec
	// §4.5).
	block *blockInProgress

	// lastVoteExtensionFailures counts ExtendVote calls that fell back to
	// an empty extension because the sidecar failed or timed out (spec
	// §4.5: "increment the extend-vote-failure counter").
	lastVoteExtensionFailures uint64

	// optimisticBlockSink, when set, is called with each proposal's tx list
	// at the end of PrepareProposal (spec §6: "emitting each proposed block
	// as soon as PrepareProposal completes, before consensus finalization").
	// Left nil when pkg/grpcsrv's stream is disabled (config's
	// no_optimistic_blocks).
	optimisticBlockSink func(height int64, txs [][]byte)

	// archiveSink, when set, is called from Commit with each finalized
	// block's height, app hash, transaction hashes, per-rollup transaction
	// data, and full ordered transaction list, for pkg/dbarchive to persist
	// (spec §1: "historical query... required for block serving"; spec §6
	// invariants 4/5 need the per-rollup data and full tx list to serve
	// inclusion proofs after the block that produced them is long gone).
	// Left nil when no archive database is configured.
	archiveSink func(height int64, appHash []byte, txHashes [][]byte, rollupTxs RollupTransactions, fullTxs [][]byte)
}

// SetArchiveSink registers the callback Commit invokes with every
// newly-committed block's archival record. Passing nil disables archival.
func (app *App) SetArchiveSink(sink func(height int64, appHash []byte, txHashes [][]byte, rollupTxs RollupTransactions, fullTxs [][]byte)) {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.archiveSink = sink
}

// SetOptimisticBlockSink registers the callback PrepareProposal invokes
// with every proposal it builds, for pkg/grpcsrv to fan out over its
// optimistic block stream. Passing nil disables the stream entirely,
// matching config's no_optimistic_blocks option.
func (app *App) SetOptimisticBlockSink(sink func(height int64, txs [][]byte)) {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.optimisticBlockSink = sink
}

type blockInProgress struct {
	height    int64
	appHash   []byte
	txHashes  [][]byte
	rollupTxs RollupTransactions
	fullTxs   [][]byte
}

// New constructs an App. priceClient may be nil when priceFeedEnabled is
// false (spec Non-goal: the sidecar process itself is out of scope; nil
// simply means ExtendVote always emits an empty extension).
func New(
	st *store.Store,
	mp *mempool.Mempool,
	chainID string,
	feeSchedules checkedtx.FeeScheduleLookup,
	upgrades *upgrade.Scheduler,
	priceClient pricefeed.Client,
	priceFeedEnabled bool,
	genesis *config.Genesis,
) *App {
	return &App{
		store:            st,
		mempool:          mp,
		chainID:          chainID,
		feeSchedules:     feeSchedules,
		upgrades:         upgrades,
		priceClient:      priceClient,
		priceFeedEnabled: priceFeedEnabled,
		genesis:          genesis,
	}
}

// Store returns the underlying state store, for read-only query surfaces
// (pkg/queryhttp, pkg/grpcsrv) that need committed-snapshot reads without
// going through an ABCI call.
func (app *App) Store() *store.Store { return app.store }
