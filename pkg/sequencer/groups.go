package sequencer

import "fmt"

// Group is one of the four action-bundling categories spec §4.3 defines.
// Every action in a transaction must belong to the same group; execution
// within a block orders general-signer transactions before sudo
// transactions (spec §4.3: "to allow privileged changes to apply cleanly at
// block boundary without mid-block reinterpretation").
type Group uint8

const (
	GroupBundledGeneral Group = iota
	GroupUnbundledGeneral
	GroupBundledSudo
	GroupUnbundledSudo
)

func (g Group) String() string {
	switch g {
	case GroupBundledGeneral:
		return "BundledGeneral"
	case GroupUnbundledGeneral:
		return "UnbundledGeneral"
	case GroupBundledSudo:
		return "BundledSudo"
	case GroupUnbundledSudo:
		return "UnbundledSudo"
	default:
		return fmt.Sprintf("Group(%d)", uint8(g))
	}
}

// IsSudo reports whether transactions of this group must execute after all
// general-signer transactions in the block.
func (g Group) IsSudo() bool { return g == GroupBundledSudo || g == GroupUnbundledSudo }

// singlePerTx reports whether this group permits at most one action per
// transaction (the "Unbundled" groups).
func (g Group) singlePerTx() bool { return g == GroupUnbundledGeneral || g == GroupUnbundledSudo }

// GroupOf returns the group a given action kind belongs to, per the
// enumeration in spec §4.3.
func GroupOf(k ActionKind) Group {
	switch k {
	case KindTransfer, KindRollupDataSubmission, KindBridgeLock, KindBridgeUnlock,
		KindBridgeTransfer, KindIcs20Withdrawal:
		return GroupBundledGeneral
	case KindInitBridgeAccount, KindBridgeSudoChange, KindIbcRelay:
		return GroupUnbundledGeneral
	case KindSudoAddressChange, KindIbcSudoChange, KindValidatorUpdate, KindIbcRelayerChange,
		KindFeeAssetChange, KindFeeChange, KindCurrencyPairsChange, KindMarketsChange,
		KindRecoverIbcClient:
		// Spec §4.3 names both BundledSudo and UnbundledSudo but gives no
		// worked example distinguishing which sudo kinds belong to which;
		// these are grouped as BundledSudo so an operator can batch several
		// configuration changes (e.g. a fee-asset addition alongside a fee
		// change) into one signed transaction.
		return GroupBundledSudo
	default:
		panic(fmt.Sprintf("sequencer: GroupOf: unhandled action kind %s", k))
	}
}
