// Package errors declares the sequencer's error taxonomy. Every rejection a
// transaction, vote extension, or proposal can suffer is one of the kinds
// below; handlers return a *Error rather than an ad-hoc error string so that
// CheckTx/DeliverTx responses, mempool rejections, and structured tx results
// can all report a stable code.
package errors

import "fmt"

// Kind is one arm of the taxonomy. Values are stable across releases; the
// ABCI response code sent to CometBFT is derived from Kind, never from the
// wrapped message text.
type Kind uint32

const (
	KindUnknown Kind = iota
	KindDecodeError
	KindSignatureInvalid
	KindChainIDMismatch
	KindNonceMismatch
	KindInsufficientBalance
	KindFeeAssetNotAllowed
	KindUnknownAsset
	KindActionPermission
	KindBridgeInvariant
	KindUpgradeConflict  // fatal
	KindConsensusInvariant
	KindStoreIO          // fatal
	KindSidecarUnavailable // soft failure
)

func (k Kind) String() string {
	switch k {
	case KindDecodeError:
		return "DecodeError"
	case KindSignatureInvalid:
		return "SignatureInvalid"
	case KindChainIDMismatch:
		return "ChainIdMismatch"
	case KindNonceMismatch:
		return "NonceMismatch"
	case KindInsufficientBalance:
		return "InsufficientBalance"
	case KindFeeAssetNotAllowed:
		return "FeeAssetNotAllowed"
	case KindUnknownAsset:
		return "UnknownAsset"
	case KindActionPermission:
		return "ActionPermission"
	case KindBridgeInvariant:
		return "BridgeInvariant"
	case KindUpgradeConflict:
		return "UpgradeConflict"
	case KindConsensusInvariant:
		return "ConsensusInvariant"
	case KindStoreIO:
		return "StoreIoError"
	case KindSidecarUnavailable:
		return "SidecarUnavailable"
	default:
		return "Unknown"
	}
}

// Fatal reports whether this kind halts the node (UpgradeConflict, StoreIO)
// rather than merely failing the current transaction or proposal.
func (k Kind) Fatal() bool {
	return k == KindUpgradeConflict || k == KindStoreIO
}

// Error is the concrete error value carried through the pipeline.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // wrapped cause, if any
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the taxonomy Kind from an error, defaulting to
// KindUnknown for errors that never passed through this package (e.g. a
// raw I/O error bubbled up from the KV backend without being wrapped yet).
func KindOf(err error) Kind {
	var se *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			se = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if se == nil {
		return KindUnknown
	}
	return se.Kind
}
