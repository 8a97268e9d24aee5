package consensus

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/cometbft/cometbft/crypto/ed25519"

	"github.com/astria/sequencer/pkg/actions"
	"github.com/astria/sequencer/pkg/checkedtx"
	serrors "github.com/astria/sequencer/pkg/errors"
	"github.com/astria/sequencer/pkg/pricefeed"
	"github.com/astria/sequencer/pkg/sequencer"
	"github.com/astria/sequencer/pkg/store"
)

// FinalizeBlock implements spec §4.5: apply any due upgrades, aggregate an
// embedded extended_commit_info into new prices, re-execute every user
// transaction, and report the resulting validator-set changes. A decode,
// check, or execution failure here means this height's block diverged from
// what ProcessProposal already accepted for it — a consensus-breaking bug
// rather than an ordinary rejection — so this returns an error instead of a
// per-tx failure code.
//
// CometBFT needs app_hash back from this call, before the separate Commit
// call. Since Store.Commit both applies an overlay's writes and computes
// app_hash in one step, the actual commit happens here rather than in
// Commit; Commit narrows to passing the block to the archive sink (when
// one is set) and the post-commit mempool recheck (see DESIGN.md).
func (app *App) FinalizeBlock(_ context.Context, req *abci.RequestFinalizeBlock) (*abci.ResponseFinalizeBlock, error) {
	app.mu.Lock()
	defer app.mu.Unlock()

	ov := app.store.Begin()
	committed := false
	defer func() {
		if !committed {
			app.store.Discard(ov)
		}
	}()

	if _, err := app.upgrades.ApplyDue(ov, req.Height); err != nil {
		return nil, fmt.Errorf("consensus: finalize block: apply upgrades: %w", err)
	}

	idx := extendedCommitInfoIndex
	if len(req.Txs) < idx {
		return nil, serrors.New(serrors.KindConsensusInvariant, "finalize block: too few entries in tx list")
	}

	if app.includesExtendedCommit(req.Height) {
		if len(req.Txs) < idx+1 {
			return nil, serrors.New(serrors.KindConsensusInvariant, "finalize block: missing extended_commit_info entry")
		}
		eci, err := decodeExtendedCommitInfo(req.Txs[idx])
		if err != nil {
			return nil, fmt.Errorf("consensus: finalize block: decode extended_commit_info: %w", err)
		}
		if err := applyPriceFeedVotes(ov, eci, req.Height, req.Time); err != nil {
			return nil, fmt.Errorf("consensus: finalize block: aggregate prices: %w", err)
		}
		idx++
	}
	userTxs := req.Txs[idx:]

	acc := newRollupAccumulator()
	txResults := make([]*abci.ExecTxResult, 0, len(userTxs))
	for i, raw := range userTxs {
		tx, err := sequencer.DecodeTransaction(raw)
		if err != nil {
			return nil, fmt.Errorf("consensus: finalize block: tx %d: decode: %w", i, err)
		}
		checked, err := checkedtx.Check(tx, ov, app.chainID, app.feeSchedules)
		if err != nil {
			return nil, fmt.Errorf("consensus: finalize block: tx %d: check: %w", i, err)
		}
		result, err := actions.ExecuteTransaction(ov, checked)
		if err != nil {
			return nil, fmt.Errorf("consensus: finalize block: tx %d: execute: %w", i, err)
		}
		acc.add(result)
		txResults = append(txResults, &abci.ExecTxResult{Code: 0})
	}

	valUpdates := validatorUpdatesFrom(ov)

	txHashes := make([][]byte, len(userTxs))
	for i, raw := range userTxs {
		h := sha256.Sum256(raw)
		txHashes[i] = h[:]
	}

	snap, appHash, err := app.store.Commit(ov)
	if err != nil {
		return nil, fmt.Errorf("consensus: finalize block: commit: %w", err)
	}
	committed = true
	app.block = &blockInProgress{
		height:    snap.Height,
		appHash:   appHash[:],
		txHashes:  txHashes,
		rollupTxs: acc.transactions(),
		fullTxs:   append([][]byte(nil), req.Txs...),
	}

	return &abci.ResponseFinalizeBlock{
		TxResults:        txResults,
		ValidatorUpdates: valUpdates,
		AppHash:          appHash[:],
	}, nil
}

// Commit implements spec §4.5's Commit step. The overlay is already durable
// by this point (see FinalizeBlock); this call hands the finalized block to
// archiveSink when one is set, then kicks off the mempool's post-commit
// recheck pass (spec §4.7 scenario S3: "recheck runs only after a commit").
func (app *App) Commit(_ context.Context, _ *abci.RequestCommit) (*abci.ResponseCommit, error) {
	app.mu.Lock()
	defer app.mu.Unlock()

	if app.block == nil {
		return nil, fmt.Errorf("consensus: commit called before finalize block")
	}
	height := app.block.height
	if app.archiveSink != nil {
		app.archiveSink(app.block.height, app.block.appHash, app.block.txHashes, app.block.rollupTxs, app.block.fullTxs)
	}
	app.block = nil
	app.mempool.Recheck(height)

	return &abci.ResponseCommit{RetainHeight: 0}, nil
}

// applyPriceFeedVotes decodes every non-empty vote extension carried in eci,
// aggregates per-pair stake-weighted medians against the full registered
// pair set, and writes any that cleared threshold (spec §4.6). An eci with
// no votes at all (threshold not reached at H-1) is a no-op, not an error.
func applyPriceFeedVotes(ov *store.Overlay, eci extendedCommitInfo, height int64, blockTime time.Time) error {
	if len(eci.Votes) == 0 {
		return nil
	}

	pairs, err := pricefeed.RegisteredPairs(ov)
	if err != nil {
		return err
	}

	votes := make([]pricefeed.Vote, 0, len(eci.Votes))
	var totalPower int64
	for _, v := range eci.Votes {
		totalPower += v.Power
		if len(v.Extension) == 0 {
			continue
		}
		ve, err := pricefeed.DecodeVoteExtension(v.Extension)
		if err != nil {
			return fmt.Errorf("decode vote extension: %w", err)
		}
		votes = append(votes, pricefeed.Vote{Power: v.Power, Extension: ve})
	}

	results := pricefeed.AggregatePrices(pairs, votes, totalPower)
	_, err = pricefeed.ApplyResults(ov, results, height, blockTime)
	return err
}

// validatorUpdatesFrom reports every validator-set entry this block's
// actions touched, as the abci.ValidatorUpdate list FinalizeBlock's response
// must carry (spec §4.4 ValidatorUpdate: "power == 0 removes the
// validator"). execValidatorUpdate (pkg/actions) writes straight to the
// overlay with no side-channel return, so this reads the diff back out of
// the overlay's own staged writes rather than threading update values
// through actions.Result.
func validatorUpdatesFrom(ov *store.Overlay) []abci.ValidatorUpdate {
	prefix := store.ValidatorPrefix()
	touched := ov.TouchedWrites(prefix)
	updates := make([]abci.ValidatorUpdate, 0, len(touched))
	for _, t := range touched {
		verificationKey := t.Key[len(prefix):]
		if t.Deleted {
			updates = append(updates, abci.ValidatorUpdate{
				PubKeyBytes: verificationKey,
				PubKeyType:  ed25519.KeyType,
				Power:       0,
			})
			continue
		}
		entry, err := sequencer.DecodeValidatorSetEntry(t.Value)
		if err != nil {
			continue
		}
		updates = append(updates, abci.ValidatorUpdate{
			PubKeyBytes: entry.VerificationKey,
			PubKeyType:  ed25519.KeyType,
			Power:       int64(entry.Power),
		})
	}
	return updates
}
