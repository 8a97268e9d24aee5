package actions

import (
	serrors "github.com/astria/sequencer/pkg/errors"
	"github.com/astria/sequencer/pkg/sequencer"
	"github.com/astria/sequencer/pkg/store"
)

// execIbcRelay enforces the relayer allow-list; the payload's actual
// dispatch to the IBC module is out of scope (spec §1, §4.4 IbcRelay).
func execIbcRelay(ctx Context, a sequencer.IbcRelay) error {
	allowed, err := ctx.Overlay.Has(store.IBCRelayerKey(ctx.Signer.Bytes()))
	if err != nil {
		return serrors.Wrap(serrors.KindStoreIO, "check relayer allow-list", err)
	}
	if !allowed {
		return serrors.New(serrors.KindActionPermission, "signer is not an allow-listed IBC relayer")
	}
	_ = a.Payload // dispatched to the IBC module; not the sequencer's concern
	return nil
}
