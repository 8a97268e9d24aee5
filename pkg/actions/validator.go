package actions

import (
	"github.com/astria/sequencer/pkg/sequencer"
	"github.com/astria/sequencer/pkg/store"
)

// execValidatorUpdate stages a validator set change for application at the
// end of the block (spec §4.4: "staged for application at end of block;
// power zero deletes"). Names are persisted unconditionally here; whether
// they are surfaced through the validator query is gated on the Aspen
// upgrade by pkg/consensus's validators query, not by this handler (spec
// §4.4, §4.8).
func execValidatorUpdate(ctx Context, a sequencer.ValidatorUpdate) error {
	if a.Power == 0 {
		return ctx.Overlay.Delete(store.ValidatorKey(a.VerificationKey))
	}
	entry := sequencer.ValidatorSetEntry{
		VerificationKey: a.VerificationKey,
		Power:           a.Power,
		Name:            a.Name,
	}
	return ctx.Overlay.Put(store.ValidatorKey(a.VerificationKey), entry.Encode())
}
