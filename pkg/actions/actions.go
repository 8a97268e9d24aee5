// Package actions implements the stateful execution contract for each of
// the 18 action variants (spec §4.4), dispatched through the exhaustive
// switch in Execute — the handler-side counterpart of pkg/sequencer's
// closed Action union and decode switch (spec §9).
package actions

import (
	"fmt"

	"github.com/astria/sequencer/pkg/checkedtx"
	"github.com/astria/sequencer/pkg/crypto"
	serrors "github.com/astria/sequencer/pkg/errors"
	"github.com/astria/sequencer/pkg/sequencer"
	"github.com/astria/sequencer/pkg/store"
)

// Context carries the ambient state every action handler needs beyond its
// own fields: who signed the enclosing transaction, and which transaction
// and action index this is (both needed only by BridgeLock/BridgeTransfer,
// to stamp the Deposit they emit).
type Context struct {
	Overlay     *store.Overlay
	Signer      crypto.Address
	TxHash      [32]byte
	ActionIndex uint32
}

// RollupSubmission is the one non-balance side effect RollupDataSubmission
// produces: data destined for a rollup's block, accumulated by the caller
// (pkg/consensus's proposal pipeline) rather than written to the KV store,
// since it lives in the block's data commitments, not in persisted state.
type RollupSubmission struct {
	RollupID sequencer.RollupID
	Data     []byte
}

// Result collects every side effect an action produced beyond state
// mutation: Deposit events and rollup data submissions.
type Result struct {
	Deposits          []sequencer.Deposit
	RollupSubmissions []RollupSubmission
}

// Execute charges the action's fee (if any) against the signer, then runs
// its action-specific mutation, in that order: a transaction that fails a
// later action must not have partially charged fees for earlier ones
// survive, which is why the whole sequence runs against one overlay that
// the caller discards on any error (spec §4.4 "Failure semantics").
func Execute(ctx Context, action sequencer.Action) (Result, error) {
	fees := NewFeeSchedule(ctx.Overlay)
	feeAsset, fee, err := fees.FeeFor(action)
	if err != nil {
		return Result{}, serrors.Wrap(serrors.KindFeeAssetNotAllowed, "fee lookup", err)
	}
	if !fee.IsZero() {
		if err := debit(ctx.Overlay, ctx.Signer.Bytes(), feeAsset.ID(), fee); err != nil {
			return Result{}, err
		}
		collector, err := getFeeCollector(ctx.Overlay)
		if err != nil {
			return Result{}, err
		}
		if err := credit(ctx.Overlay, collector.Bytes(), feeAsset.ID(), fee); err != nil {
			return Result{}, err
		}
	}

	switch a := action.(type) {
	case sequencer.Transfer:
		return Result{}, execTransfer(ctx, a)
	case sequencer.RollupDataSubmission:
		return execRollupDataSubmission(ctx, a)
	case sequencer.BridgeLock:
		return execBridgeLock(ctx, a)
	case sequencer.BridgeUnlock:
		return Result{}, execBridgeUnlock(ctx, a)
	case sequencer.BridgeTransfer:
		return execBridgeTransfer(ctx, a)
	case sequencer.BridgeSudoChange:
		return Result{}, execBridgeSudoChange(ctx, a)
	case sequencer.InitBridgeAccount:
		return Result{}, execInitBridgeAccount(ctx, a)
	case sequencer.Ics20Withdrawal:
		return Result{}, execIcs20Withdrawal(ctx, a)
	case sequencer.IbcRelay:
		return Result{}, execIbcRelay(ctx, a)
	case sequencer.ValidatorUpdate:
		return Result{}, execValidatorUpdate(ctx, a)
	case sequencer.SudoAddressChange:
		return Result{}, execSudoAddressChange(ctx, a)
	case sequencer.IbcSudoChange:
		return Result{}, execIbcSudoChange(ctx, a)
	case sequencer.IbcRelayerChange:
		return Result{}, execIbcRelayerChange(ctx, a)
	case sequencer.FeeAssetChange:
		return Result{}, execFeeAssetChange(ctx, a)
	case sequencer.FeeChange:
		return Result{}, execFeeChange(ctx, a)
	case sequencer.CurrencyPairsChange:
		return Result{}, execCurrencyPairsChange(ctx, a)
	case sequencer.MarketsChange:
		return Result{}, execMarketsChange(ctx, a)
	case sequencer.RecoverIbcClient:
		return Result{}, execRecoverIbcClient(ctx, a)
	default:
		return Result{}, serrors.New(serrors.KindConsensusInvariant,
			fmt.Sprintf("actions: unhandled action kind %s", action.Kind()))
	}
}

// ExecuteTransaction runs every action in a checked transaction's body
// against ov, in order, then increments the signer's nonce exactly once
// (spec §4.3: the nonce check is against the transaction as a whole, not
// per action). Any action failing aborts with no partial effect, because
// every write above landed in ov and the caller is expected to discard ov
// on error rather than commit it.
func ExecuteTransaction(ov *store.Overlay, checked *checkedtx.CheckedTransaction) (Result, error) {
	var result Result
	signer, err := crypto.AddressFromBytes(checked.Signer[:])
	if err != nil {
		return Result{}, serrors.Wrap(serrors.KindConsensusInvariant, "signer address", err)
	}

	for i, action := range checked.Body.Actions {
		// RecoverIbcClient is sudo-group per spec §4.3's enumeration but is
		// authorized by the separate ibc_sudo address it exists alongside
		// (see execRecoverIbcClient); every other sudo-group action uses the
		// chain sudo address.
		if IsSudoKind(action.Kind()) && action.Kind() != sequencer.KindRecoverIbcClient {
			if err := requireSudo(ov, signer); err != nil {
				return Result{}, err
			}
		}
		ctx := Context{Overlay: ov, Signer: signer, TxHash: checked.Hash, ActionIndex: uint32(i)}
		r, err := Execute(ctx, action)
		if err != nil {
			return Result{}, fmt.Errorf("actions: action %d (%s): %w", i, action.Kind(), err)
		}
		result.Deposits = append(result.Deposits, r.Deposits...)
		result.RollupSubmissions = append(result.RollupSubmissions, r.RollupSubmissions...)
	}

	if err := incrementNonce(ov, checked.Signer[:]); err != nil {
		return Result{}, err
	}
	return result, nil
}

// IsSudoKind reports whether kind belongs to the BundledSudo/UnbundledSudo
// groups, all of which share the single chain-sudo authorization rule.
func IsSudoKind(kind sequencer.ActionKind) bool {
	return sequencer.GroupOf(kind).IsSudo()
}
