package actions

import "github.com/astria/sequencer/pkg/sequencer"

// execTransfer moves amount from the signer to To; the fee itself was
// already charged generically by Execute before this runs.
func execTransfer(ctx Context, a sequencer.Transfer) error {
	if err := requireKnownAsset(ctx.Overlay, a.Asset); err != nil {
		return err
	}
	assetID := a.Asset.ID()
	if err := debit(ctx.Overlay, ctx.Signer.Bytes(), assetID, a.Amount); err != nil {
		return err
	}
	return credit(ctx.Overlay, a.To.Bytes(), assetID, a.Amount)
}
