package actions

import (
	serrors "github.com/astria/sequencer/pkg/errors"
	"github.com/astria/sequencer/pkg/sequencer"
	"github.com/astria/sequencer/pkg/store"
)

// execFeeChange sets the fee schedule for a named action kind (spec §3 Fee
// Schedule, §4.4 FeeChange). No precondition is named beyond sudo
// authorization: an operator may overwrite an existing schedule freely.
func execFeeChange(ctx Context, a sequencer.FeeChange) error {
	if err := ctx.Overlay.Put(store.FeeScheduleKey(a.ActionKind), a.Schedule.Encode()); err != nil {
		return serrors.Wrap(serrors.KindStoreIO, "write fee schedule", err)
	}
	return nil
}
