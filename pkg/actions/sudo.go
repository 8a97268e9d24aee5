package actions

import (
	"github.com/astria/sequencer/pkg/sequencer"
	"github.com/astria/sequencer/pkg/store"
)

// execSudoAddressChange rotates the chain's sudo address. Authorization
// (signer must be the current sudo) is enforced generically for every
// sudo-group action by ExecuteTransaction before Execute ever runs this.
func execSudoAddressChange(ctx Context, a sequencer.SudoAddressChange) error {
	return putChainAddress(ctx.Overlay, store.ChainSudoKey(), a.NewAddress)
}

// execIbcSudoChange rotates the chain's ibc_sudo address, the key
// authorized for RecoverIbcClient (spec §4.4).
func execIbcSudoChange(ctx Context, a sequencer.IbcSudoChange) error {
	return putChainAddress(ctx.Overlay, store.ChainIbcSudoKey(), a.NewAddress)
}
