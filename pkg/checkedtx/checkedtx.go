// Package checkedtx implements the two-phase transaction validation
// pipeline named by spec §4.3: decode, stateless validation, per-action
// stateful pre-checks bound to a state snapshot, and the aggregate
// nonce/balance checks that must hold across the whole action list.
package checkedtx

import (
	"fmt"

	serrors "github.com/astria/sequencer/pkg/errors"
	"github.com/astria/sequencer/pkg/sequencer"
	"github.com/astria/sequencer/pkg/store"
)

// CheckedTransaction is a transaction that has passed every stateless and
// stateful pre-check against a specific overlay snapshot. Its validity is
// anchored to that snapshot: committing a different block before execution
// can invalidate it, which is why the mempool rechecks after every commit.
type CheckedTransaction struct {
	Tx     sequencer.Transaction
	Body   sequencer.TransactionBody
	Signer [20]byte // crypto.Address.Bytes(), kept fixed-width to avoid an import cycle with pkg/crypto
	Group  sequencer.Group
	Hash   [32]byte

	// FeesByAsset is the sum, per fee asset, of every action's fee in this
	// transaction — computed once here so pkg/mempool's cost metric and
	// pkg/actions' execution don't each recompute it.
	FeesByAsset map[sequencer.AssetID]sequencer.Uint128
}

// Check runs the full pipeline: decode (by the caller, who already has a
// sequencer.Transaction), stateless validation, then the stateful
// aggregate checks of spec §4.3 point 4 (signer nonce and fee balances).
// Per-action stateful pre-checks are not run here: the conditions each
// action depends on (permissions, registered assets, bridge state) are
// enforced only when pkg/actions.Execute runs that action.
func Check(tx sequencer.Transaction, ov *store.Overlay, chainID string, feeSchedules FeeScheduleLookup) (*CheckedTransaction, error) {
	ct, committedNonce, err := checkWithoutNonceAssertion(tx, ov, chainID, feeSchedules)
	if err != nil {
		return nil, err
	}
	if ct.Body.Params.Nonce != committedNonce {
		return nil, serrors.New(serrors.KindNonceMismatch,
			fmt.Sprintf("expected nonce %d, got %d", committedNonce, ct.Body.Params.Nonce))
	}
	return ct, nil
}

// CheckIgnoringNonce runs every check Check does except the nonce equality
// assertion, additionally returning the signer's nonce as committed in ov.
// pkg/mempool uses this for admission: a transaction whose nonce is ahead of
// the committed nonce is not a failed check, it is a park candidate (spec
// §4.7 Insert: "if passes and nonce matches next expected, place in
// pending... else park").
func CheckIgnoringNonce(tx sequencer.Transaction, ov *store.Overlay, chainID string, feeSchedules FeeScheduleLookup) (*CheckedTransaction, uint32, error) {
	return checkWithoutNonceAssertion(tx, ov, chainID, feeSchedules)
}

func checkWithoutNonceAssertion(tx sequencer.Transaction, ov *store.Overlay, chainID string, feeSchedules FeeScheduleLookup) (*CheckedTransaction, uint32, error) {
	if !tx.VerifySignature() {
		return nil, 0, serrors.New(serrors.KindSignatureInvalid, "transaction signature does not verify")
	}

	body, err := tx.Body()
	if err != nil {
		return nil, 0, serrors.Wrap(serrors.KindDecodeError, "decode transaction body", err)
	}
	if len(body.Actions) == 0 {
		return nil, 0, serrors.New(serrors.KindDecodeError, "transaction has no actions")
	}
	if body.Params.ChainID != chainID {
		return nil, 0, serrors.New(serrors.KindChainIDMismatch,
			fmt.Sprintf("chain_id %q does not match %q", body.Params.ChainID, chainID))
	}
	group, err := body.Group()
	if err != nil {
		return nil, 0, serrors.Wrap(serrors.KindDecodeError, "determine action group", err)
	}

	signer := tx.SignerAddress()

	nonceKeyVal, err := ov.Get(store.NonceKey(signer.Bytes()))
	if err != nil {
		return nil, 0, serrors.Wrap(serrors.KindStoreIO, "read signer nonce", err)
	}
	committedNonce, err := store.DecodeNonce(nonceKeyVal)
	if err != nil {
		return nil, 0, serrors.Wrap(serrors.KindStoreIO, "decode signer nonce", err)
	}

	feesByAsset := make(map[sequencer.AssetID]sequencer.Uint128)
	for i, action := range body.Actions {
		feeAsset, fee, err := feeSchedules.FeeFor(action)
		if err != nil {
			return nil, 0, serrors.Wrap(serrors.KindFeeAssetNotAllowed,
				fmt.Sprintf("action %d (%s) fee lookup", i, action.Kind()), err)
		}
		id := feeAsset.ID()
		total, addErr := feesByAsset[id].CheckedAdd(fee)
		if addErr != nil {
			return nil, 0, serrors.Wrap(serrors.KindConsensusInvariant, "accumulate fees", addErr)
		}
		feesByAsset[id] = total
	}

	for assetID, fee := range feesByAsset {
		balKeyVal, err := ov.Get(store.BalanceKey(signer.Bytes(), assetID))
		if err != nil {
			return nil, 0, serrors.Wrap(serrors.KindStoreIO, "read signer balance", err)
		}
		balance, err := store.DecodeBalance(balKeyVal)
		if err != nil {
			return nil, 0, serrors.Wrap(serrors.KindStoreIO, "decode signer balance", err)
		}
		if balance.Cmp(fee) < 0 {
			return nil, 0, serrors.New(serrors.KindInsufficientBalance,
				fmt.Sprintf("balance %s insufficient to cover fees %s", balance, fee))
		}
	}

	return &CheckedTransaction{
		Tx:          tx,
		Body:        body,
		Signer:      [20]byte(signer.Bytes()[:20]),
		Group:       group,
		Hash:        tx.Hash(),
		FeesByAsset: feesByAsset,
	}, committedNonce, nil
}

// FeeScheduleLookup resolves the (fee asset, fee amount) an action owes;
// implemented by pkg/actions so pkg/checkedtx never needs to know about
// individual action handlers.
type FeeScheduleLookup interface {
	FeeFor(action sequencer.Action) (sequencer.Denom, sequencer.Uint128, error)
}
