package actions

import (
	serrors "github.com/astria/sequencer/pkg/errors"
	"github.com/astria/sequencer/pkg/sequencer"
	"github.com/astria/sequencer/pkg/store"
)

// execIbcRelayerChange adds or removes an address from the IBC relayer
// allow-list (spec §4.4: "must not/must exist").
func execIbcRelayerChange(ctx Context, a sequencer.IbcRelayerChange) error {
	key := store.IBCRelayerKey(a.Address.Bytes())
	exists, err := ctx.Overlay.Has(key)
	if err != nil {
		return serrors.Wrap(serrors.KindStoreIO, "check relayer allow-list", err)
	}
	switch a.Change {
	case sequencer.ChangeAddition:
		if exists {
			return serrors.New(serrors.KindBridgeInvariant, "address is already an allow-listed relayer")
		}
		return ctx.Overlay.Put(key, []byte{1})
	case sequencer.ChangeRemoval:
		if !exists {
			return serrors.New(serrors.KindBridgeInvariant, "address is not an allow-listed relayer")
		}
		return ctx.Overlay.Delete(key)
	default:
		return serrors.New(serrors.KindConsensusInvariant, "ibc relayer change: unknown ChangeKind")
	}
}
