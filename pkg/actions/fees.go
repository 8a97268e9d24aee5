package actions

import (
	"fmt"

	"github.com/astria/sequencer/pkg/sequencer"
	"github.com/astria/sequencer/pkg/store"
)

// FeeSchedule implements pkg/checkedtx.FeeScheduleLookup bound to a single
// overlay, so the aggregate fee check in checkedtx.Check and the fee charge
// in Execute read the exact same configured schedule.
type FeeSchedule struct {
	ov *store.Overlay
}

func NewFeeSchedule(ov *store.Overlay) FeeSchedule { return FeeSchedule{ov: ov} }

// LiveFeeSchedule resolves fees against whatever snapshot is currently
// committed, for long-lived callers (pkg/mempool, pkg/consensus) that hold
// a checkedtx.FeeScheduleLookup across many calls rather than constructing
// one per overlay. Every FeeFor call re-reads the store's latest committed
// height, so it never goes stale the way a FeeSchedule bound to one overlay
// would across a chain's lifetime — this only ever backs the aggregate
// pre-check estimate in checkedtx.Check, not the fee actually charged
// during execution, which always reads the in-flight block's own overlay
// via Execute's own NewFeeSchedule(ctx.Overlay).
type LiveFeeSchedule struct {
	st *store.Store
}

func NewLiveFeeSchedule(st *store.Store) LiveFeeSchedule { return LiveFeeSchedule{st: st} }

func (l LiveFeeSchedule) FeeFor(action sequencer.Action) (sequencer.Denom, sequencer.Uint128, error) {
	ov := l.st.Begin()
	defer l.st.Discard(ov)
	return NewFeeSchedule(ov).FeeFor(action)
}

// FeeFor resolves the (fee asset, fee amount) an action owes. Actions with
// no fee_asset field (every BundledSudo/UnbundledSudo action, and IbcRelay)
// are fee-free; this mirrors spec §4.4, which never names a fee_asset
// parameter for any of them.
func (f FeeSchedule) FeeFor(action sequencer.Action) (sequencer.Denom, sequencer.Uint128, error) {
	feeAsset, ok := feeAssetOf(action)
	if !ok {
		return "", sequencer.ZeroUint128, nil
	}

	allowed, err := f.ov.Has(store.FeeAssetKey(feeAsset.ID()))
	if err != nil {
		return "", sequencer.Uint128{}, fmt.Errorf("actions: check fee asset allow-list: %w", err)
	}
	if !allowed {
		return "", sequencer.Uint128{}, fmt.Errorf("actions: fee asset %q is not on the allow-list", feeAsset)
	}

	raw, err := f.ov.Get(store.FeeScheduleKey(action.Kind()))
	if err != nil {
		return "", sequencer.Uint128{}, fmt.Errorf("actions: read fee schedule for %s: %w", action.Kind(), err)
	}
	if raw == nil {
		return "", sequencer.Uint128{}, fmt.Errorf("actions: %s has no configured fee schedule", action.Kind())
	}
	schedule, err := sequencer.DecodeFeeSchedule(raw)
	if err != nil {
		return "", sequencer.Uint128{}, fmt.Errorf("actions: decode fee schedule for %s: %w", action.Kind(), err)
	}

	fee, err := schedule.Fee(sizeMetricOf(action))
	if err != nil {
		return "", sequencer.Uint128{}, fmt.Errorf("actions: compute fee for %s: %w", action.Kind(), err)
	}
	return feeAsset, fee, nil
}

// feeAssetOf extracts the fee_asset field carried by every BundledGeneral/
// UnbundledGeneral action except IbcRelay.
func feeAssetOf(action sequencer.Action) (sequencer.Denom, bool) {
	switch a := action.(type) {
	case sequencer.Transfer:
		return a.FeeAsset, true
	case sequencer.RollupDataSubmission:
		return a.FeeAsset, true
	case sequencer.BridgeLock:
		return a.FeeAsset, true
	case sequencer.BridgeUnlock:
		return a.FeeAsset, true
	case sequencer.BridgeTransfer:
		return a.FeeAsset, true
	case sequencer.BridgeSudoChange:
		return a.FeeAsset, true
	case sequencer.InitBridgeAccount:
		return a.FeeAsset, true
	case sequencer.Ics20Withdrawal:
		return a.FeeAsset, true
	default:
		return "", false
	}
}

// sizeMetricOf is the per-action quantity a fee schedule's Multiplier
// scales against (spec §3 Fee Schedule: "size_metric is action specific,
// e.g. payload length for RollupDataSubmission... zero for most others").
func sizeMetricOf(action sequencer.Action) uint64 {
	if rds, ok := action.(sequencer.RollupDataSubmission); ok {
		return uint64(len(rds.Data))
	}
	return 0
}
