package actions

import (
	"fmt"

	serrors "github.com/astria/sequencer/pkg/errors"
	"github.com/astria/sequencer/pkg/sequencer"
)

// execInitBridgeAccount marks the signer as a bridge account. Sudo and
// Withdrawer default to the signer when left as the zero address (spec
// §4.4: "defaults sudo/withdrawer to signer if unset").
func execInitBridgeAccount(ctx Context, a sequencer.InitBridgeAccount) error {
	if _, exists, err := getBridgeAccount(ctx.Overlay, ctx.Signer.Bytes()); err != nil {
		return err
	} else if exists {
		return serrors.New(serrors.KindBridgeInvariant, "signer is already a bridge account")
	}

	sudo, withdrawer := a.Sudo, a.Withdrawer
	if sudo.IsZero() {
		sudo = ctx.Signer
	}
	if withdrawer.IsZero() {
		withdrawer = ctx.Signer
	}
	return putBridgeAccount(ctx.Overlay, ctx.Signer.Bytes(), sequencer.BridgeAccount{
		RollupID:   a.RollupID,
		Asset:      a.Asset,
		Sudo:       sudo,
		Withdrawer: withdrawer,
	})
}

// execBridgeLock locks funds into a bridge account and emits the Deposit
// that the destination rollup will observe (spec §4.4, §3 Deposit Event).
func execBridgeLock(ctx Context, a sequencer.BridgeLock) (Result, error) {
	bridge, exists, err := getBridgeAccount(ctx.Overlay, a.To.Bytes())
	if err != nil {
		return Result{}, err
	}
	if !exists {
		return Result{}, serrors.New(serrors.KindBridgeInvariant, "destination is not a bridge account")
	}
	if bridge.Asset != a.Asset {
		return Result{}, serrors.New(serrors.KindBridgeInvariant,
			fmt.Sprintf("bridge account only accepts asset %q, got %q", bridge.Asset, a.Asset))
	}

	assetID := a.Asset.ID()
	if err := debit(ctx.Overlay, ctx.Signer.Bytes(), assetID, a.Amount); err != nil {
		return Result{}, err
	}
	if err := credit(ctx.Overlay, a.To.Bytes(), assetID, a.Amount); err != nil {
		return Result{}, err
	}

	return Result{Deposits: []sequencer.Deposit{{
		BridgeAddress:           a.To,
		RollupID:                bridge.RollupID,
		Amount:                  a.Amount,
		Asset:                   a.Asset,
		DestinationChainAddress: a.DestinationChainAddress,
		SourceTransactionID:     ctx.TxHash,
		SourceActionIndex:       ctx.ActionIndex,
	}}}, nil
}

// execBridgeUnlock releases funds from a bridge account to an external
// address; only the bridge's withdrawer may authorize this.
func execBridgeUnlock(ctx Context, a sequencer.BridgeUnlock) error {
	bridge, exists, err := getBridgeAccount(ctx.Overlay, a.BridgeAddress.Bytes())
	if err != nil {
		return err
	}
	if !exists {
		return serrors.New(serrors.KindBridgeInvariant, "bridge_address is not a bridge account")
	}
	if !ctx.Signer.Equal(bridge.Withdrawer) {
		return serrors.New(serrors.KindActionPermission, "signer is not the bridge account's withdrawer")
	}

	assetID := bridge.Asset.ID()
	if err := debit(ctx.Overlay, a.BridgeAddress.Bytes(), assetID, a.Amount); err != nil {
		return err
	}
	return credit(ctx.Overlay, a.To.Bytes(), assetID, a.Amount)
}

// execBridgeTransfer moves funds from one bridge account directly to
// another, authorized by the source bridge's withdrawer, and emits a
// Deposit on the destination rollup (spec §4.4 BridgeTransfer).
func execBridgeTransfer(ctx Context, a sequencer.BridgeTransfer) (Result, error) {
	source, exists, err := getBridgeAccount(ctx.Overlay, a.BridgeAddress.Bytes())
	if err != nil {
		return Result{}, err
	}
	if !exists {
		return Result{}, serrors.New(serrors.KindBridgeInvariant, "bridge_address is not a bridge account")
	}
	if !ctx.Signer.Equal(source.Withdrawer) {
		return Result{}, serrors.New(serrors.KindActionPermission, "signer is not the source bridge account's withdrawer")
	}
	dest, exists, err := getBridgeAccount(ctx.Overlay, a.To.Bytes())
	if err != nil {
		return Result{}, err
	}
	if !exists {
		return Result{}, serrors.New(serrors.KindBridgeInvariant, "destination is not a bridge account")
	}
	if dest.Asset != source.Asset {
		return Result{}, serrors.New(serrors.KindBridgeInvariant, "source and destination bridge accounts accept different assets")
	}

	assetID := source.Asset.ID()
	if err := debit(ctx.Overlay, a.BridgeAddress.Bytes(), assetID, a.Amount); err != nil {
		return Result{}, err
	}
	if err := credit(ctx.Overlay, a.To.Bytes(), assetID, a.Amount); err != nil {
		return Result{}, err
	}

	return Result{Deposits: []sequencer.Deposit{{
		BridgeAddress:           a.To,
		RollupID:                dest.RollupID,
		Amount:                  a.Amount,
		Asset:                   source.Asset,
		DestinationChainAddress: a.DestinationChainAddress,
		SourceTransactionID:     ctx.TxHash,
		SourceActionIndex:       ctx.ActionIndex,
	}}}, nil
}

// execBridgeSudoChange rotates a bridge account's Sudo and/or Withdrawer;
// the zero address in either field means "unchanged" (spec §4.4).
func execBridgeSudoChange(ctx Context, a sequencer.BridgeSudoChange) error {
	bridge, exists, err := getBridgeAccount(ctx.Overlay, a.BridgeAddress.Bytes())
	if err != nil {
		return err
	}
	if !exists {
		return serrors.New(serrors.KindBridgeInvariant, "bridge_address is not a bridge account")
	}
	if !ctx.Signer.Equal(bridge.Sudo) {
		return serrors.New(serrors.KindActionPermission, "signer is not the bridge account's sudo address")
	}
	if !a.NewSudo.IsZero() {
		bridge.Sudo = a.NewSudo
	}
	if !a.NewWithdrawer.IsZero() {
		bridge.Withdrawer = a.NewWithdrawer
	}
	return putBridgeAccount(ctx.Overlay, a.BridgeAddress.Bytes(), bridge)
}
