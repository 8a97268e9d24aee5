package actions

import (
	serrors "github.com/astria/sequencer/pkg/errors"
	"github.com/astria/sequencer/pkg/sequencer"
)

// execIcs20Withdrawal debits the paying account by amount; the actual
// outbound IBC packet construction is the IBC module's concern (spec §1
// scope, §4.4: "the inner payload is dispatched to the IBC module, an
// external collaborator"), so this only enforces the withdrawer/balance
// precondition and moves funds out of circulation into escrow.
func execIcs20Withdrawal(ctx Context, a sequencer.Ics20Withdrawal) error {
	payer := ctx.Signer
	if !a.BridgeAddress.IsZero() {
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
		payer = a.BridgeAddress
	}
	return debit(ctx.Overlay, payer.Bytes(), a.Denom.ID(), a.Amount)
}
