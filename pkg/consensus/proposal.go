package consensus

import (
	"context"
	"fmt"

	abci "github.com/cometbft/cometbft/abci/types"

	"github.com/astria/sequencer/pkg/actions"
	"github.com/astria/sequencer/pkg/checkedtx"
	"github.com/astria/sequencer/pkg/sequencer"
	"github.com/astria/sequencer/pkg/store"
)

// includesExtendedCommit reports whether this height's block carries an
// extended_commit_info entry at all — deterministic from (priceFeedEnabled,
// height) alone, the same on proposer and verifier, so neither side ever
// needs to guess at a tx's identity from its bytes (spec §4.5: fixed index
// third). An empty Votes list inside that entry (rather than omitting the
// slot) is how "vote extensions for H-1 didn't reach 2/3" is represented —
// see DESIGN.md.
func (app *App) includesExtendedCommit(height int64) bool {
	return app.priceFeedEnabled && height > 1
}

// orderByGroup stable-partitions checked transactions into general-signer
// groups before sudo groups (spec §4.3: "to allow privileged changes to
// apply cleanly at block boundary"), preserving Pull's fair-rotation order
// within each partition.
func orderByGroup(checked []*checkedtx.CheckedTransaction) []*checkedtx.CheckedTransaction {
	ordered := make([]*checkedtx.CheckedTransaction, 0, len(checked))
	var sudo []*checkedtx.CheckedTransaction
	for _, ct := range checked {
		if ct.Group.IsSudo() {
			sudo = append(sudo, ct)
		} else {
			ordered = append(ordered, ct)
		}
	}
	return append(ordered, sudo...)
}

// sequencedDataSize is the size metric the per-block sequenced-data budget
// bounds: the sum of every RollupDataSubmission payload in the transaction
// (spec §4.5 "per-block sequenced-data budget"; other action kinds carry no
// rollup-bound payload).
func sequencedDataSize(body sequencer.TransactionBody) uint64 {
	var n uint64
	for _, a := range body.Actions {
		if sub, ok := a.(sequencer.RollupDataSubmission); ok {
			n += uint64(len(sub.Data))
		}
	}
	return n
}

// buildOutcome is the result of executing an ordered transaction list
// against an overlay: what actually made it in (prepare mode may drop
// entries; process mode never does, it rejects instead) and the
// accumulated rollup data roots.
type buildOutcome struct {
	includedRaw   [][]byte
	rollupTxRoot  [32]byte
	rollupIDsRoot [32]byte
}

// runPrepare executes candidates in order against ov, dropping (not
// rejecting) any that fail or would breach a budget, per spec §4.5
// PrepareProposal.
func runPrepare(ov *store.Overlay, candidates []*checkedtx.CheckedTransaction) buildOutcome {
	acc := newRollupAccumulator()
	var usedBytes, usedSequenced uint64
	var includedRaw [][]byte

	for _, checked := range candidates {
		raw := checked.Tx.Encode()
		seq := sequencedDataSize(checked.Body)
		if usedBytes+uint64(len(raw)) > MaxBlockBytes || usedSequenced+seq > MaxSequencedDataBytes {
			continue
		}
		result, err := actions.ExecuteTransaction(ov, checked)
		if err != nil {
			continue
		}
		acc.add(result)
		includedRaw = append(includedRaw, raw)
		usedBytes += uint64(len(raw))
		usedSequenced += seq
	}

	txRoot, idsRoot := acc.blockDataRoots()
	return buildOutcome{includedRaw: includedRaw, rollupTxRoot: txRoot, rollupIDsRoot: idsRoot}
}

// runVerify re-executes a proposer-given transaction list against ov,
// rejecting (rather than dropping) the first failure or budget breach —
// spec §4.5 ProcessProposal: "reject ... if any included transaction fails
// execution ... or if byte budgets are exceeded."
func runVerify(ov *store.Overlay, chainID string, feeSchedules checkedtx.FeeScheduleLookup, rawTxs [][]byte) (buildOutcome, error) {
	acc := newRollupAccumulator()
	var usedBytes, usedSequenced uint64

	for _, raw := range rawTxs {
		if usedBytes+uint64(len(raw)) > MaxBlockBytes {
			return buildOutcome{}, fmt.Errorf("consensus: process proposal: exceeds per-block byte budget")
		}
		tx, err := sequencer.DecodeTransaction(raw)
		if err != nil {
			return buildOutcome{}, fmt.Errorf("consensus: process proposal: decode tx: %w", err)
		}
		checked, err := checkedtx.Check(tx, ov, chainID, feeSchedules)
		if err != nil {
			return buildOutcome{}, fmt.Errorf("consensus: process proposal: check tx: %w", err)
		}
		seq := sequencedDataSize(checked.Body)
		if usedSequenced+seq > MaxSequencedDataBytes {
			return buildOutcome{}, fmt.Errorf("consensus: process proposal: exceeds per-block sequenced-data budget")
		}
		result, err := actions.ExecuteTransaction(ov, checked)
		if err != nil {
			return buildOutcome{}, fmt.Errorf("consensus: process proposal: execute tx: %w", err)
		}
		acc.add(result)
		usedBytes += uint64(len(raw))
		usedSequenced += seq
	}

	txRoot, idsRoot := acc.blockDataRoots()
	return buildOutcome{includedRaw: rawTxs, rollupTxRoot: txRoot, rollupIDsRoot: idsRoot}, nil
}

// buildExtendedCommitInfo converts CometBFT's verified H-1 extended commit
// into this package's wire form, reporting whether contributing power
// reached the 2/3-of-total threshold (spec §4.5, §8 invariant 6). Power
// totals come straight from the commit's own validator entries, which is
// the voting power as of H-1 — exactly what the invariant is stated
// against.
func buildExtendedCommitInfo(lastCommit abci.ExtendedCommitInfo) (extendedCommitInfo, bool) {
	votes := make([]extendedVote, 0, len(lastCommit.Votes))
	var total, contributing int64
	for _, v := range lastCommit.Votes {
		var addr [20]byte
		copy(addr[:], v.Validator.Address)
		votes = append(votes, extendedVote{ValidatorAddress: addr, Power: v.Validator.Power, Extension: v.VoteExtension})
		total += v.Validator.Power
		if len(v.VoteExtension) > 0 {
			contributing += v.Validator.Power
		}
	}
	reached := total > 0 && contributing*3 >= total*2
	eci := extendedCommitInfo{Round: lastCommit.Round}
	if reached {
		eci.Votes = votes
	}
	return eci, reached
}

// PrepareProposal implements spec §4.5 PrepareProposal.
func (app *App) PrepareProposal(_ context.Context, req *abci.RequestPrepareProposal) (*abci.ResponsePrepareProposal, error) {
	app.mu.Lock()
	defer app.mu.Unlock()

	ov := app.store.Begin()
	defer app.store.Discard(ov)

	if _, err := app.upgrades.ApplyDue(ov, req.Height); err != nil {
		return nil, fmt.Errorf("consensus: prepare proposal: apply upgrades: %w", err)
	}

	candidates := orderByGroup(app.mempool.Pull(MaxBlockBytes))
	outcome := runPrepare(ov, candidates)

	txs := make([][]byte, 0, len(outcome.includedRaw)+3)
	txs = append(txs, outcome.rollupTxRoot[:], outcome.rollupIDsRoot[:])

	if app.includesExtendedCommit(req.Height) {
		eci, _ := buildExtendedCommitInfo(req.LocalLastCommit)
		txs = append(txs, eci.encode())
	}
	txs = append(txs, outcome.includedRaw...)

	if app.optimisticBlockSink != nil {
		app.optimisticBlockSink(req.Height, txs)
	}

	return &abci.ResponsePrepareProposal{Txs: txs}, nil
}

// ProcessProposal implements spec §4.5 ProcessProposal: re-derive the same
// construction in verification mode and reject on any divergence.
func (app *App) ProcessProposal(_ context.Context, req *abci.RequestProcessProposal) (*abci.ResponseProcessProposal, error) {
	app.mu.Lock()
	defer app.mu.Unlock()

	reject := &abci.ResponseProcessProposal{Status: abci.ResponseProcessProposal_REJECT}
	accept := &abci.ResponseProcessProposal{Status: abci.ResponseProcessProposal_ACCEPT}

	idx := extendedCommitInfoIndex
	if len(req.Txs) < idx {
		return reject, nil
	}

	ov := app.store.Begin()
	defer app.store.Discard(ov)

	if app.includesExtendedCommit(req.Height) {
		if len(req.Txs) < idx+1 {
			return reject, nil
		}
		decoded, err := decodeExtendedCommitInfo(req.Txs[idx])
		if err != nil {
			return reject, nil
		}
		if err := validateExtendedCommitInfo(ov, decoded); err != nil {
			return reject, nil
		}
		idx++
	}
	userTxs := req.Txs[idx:]

	if _, err := app.upgrades.ApplyDue(ov, req.Height); err != nil {
		return reject, nil
	}

	outcome, err := runVerify(ov, app.chainID, app.feeSchedules, userTxs)
	if err != nil {
		return reject, nil
	}
	if outcome.rollupTxRoot != to32(req.Txs[0]) || outcome.rollupIDsRoot != to32(req.Txs[1]) {
		return reject, nil
	}

	return accept, nil
}

func to32(b []byte) [32]byte {
	var out [32]byte
	copy(out[:], b)
	return out
}
