package actions

import (
	serrors "github.com/astria/sequencer/pkg/errors"
	"github.com/astria/sequencer/pkg/sequencer"
	"github.com/astria/sequencer/pkg/store"
)

// execFeeAssetChange adds or removes an asset from the set of assets
// accepted for fee payment (spec §4.4: "must not/must exist").
func execFeeAssetChange(ctx Context, a sequencer.FeeAssetChange) error {
	key := store.FeeAssetKey(a.Asset.ID())
	exists, err := ctx.Overlay.Has(key)
	if err != nil {
		return serrors.Wrap(serrors.KindStoreIO, "check fee asset allow-list", err)
	}
	switch a.Change {
	case sequencer.ChangeAddition:
		if exists {
			return serrors.New(serrors.KindBridgeInvariant, "asset is already an allowed fee asset")
		}
		return ctx.Overlay.Put(key, []byte{1})
	case sequencer.ChangeRemoval:
		if !exists {
			return serrors.New(serrors.KindBridgeInvariant, "asset is not an allowed fee asset")
		}
		return ctx.Overlay.Delete(key)
	default:
		return serrors.New(serrors.KindConsensusInvariant, "fee asset change: unknown ChangeKind")
	}
}
