package consensus

import (
	"fmt"

	"github.com/astria/sequencer/pkg/codec"
)

// extendedVote is one validator's (power, vote extension) pair as carried
// in the block's extended_commit_info entry (spec §4.5: "the canonical
// extended commit structure plus the currency-pair-id→info mapping"). The
// validator address and power come straight from CometBFT's own
// LocalLastCommit.Votes at PrepareProposal time; this type is only the
// subset of that information the block needs to carry forward so every
// other validator can re-derive the same aggregation at FinalizeBlock.
type extendedVote struct {
	ValidatorAddress [20]byte
	Power            int64
	Extension        []byte // pricefeed.VoteExtension.Encode(), or empty
}

// extendedCommitInfo is the block-embedded commitment to H-1's vote
// extensions (spec §4.5). It is placed at extendedCommitInfoIndex in the
// block's transaction list, distinguishable from a user transaction by
// that fixed position rather than by any tag in its own encoding.
type extendedCommitInfo struct {
	Round int32
	Votes []extendedVote
}

func (e extendedCommitInfo) encode() []byte {
	w := codec.NewWriter(64 + 64*len(e.Votes))
	w.Uint32(uint32(e.Round))
	w.Uint32(uint32(len(e.Votes)))
	for _, v := range e.Votes {
		w.RawFixed(v.ValidatorAddress[:])
		w.Int64(v.Power)
		w.BytesField(v.Extension)
	}
	return w.Bytes()
}

func decodeExtendedCommitInfo(data []byte) (extendedCommitInfo, error) {
	r := codec.NewReader(data)
	round, err := r.Uint32()
	if err != nil {
		return extendedCommitInfo{}, err
	}
	n, err := r.Uint32()
	if err != nil {
		return extendedCommitInfo{}, err
	}
	votes := make([]extendedVote, 0, n)
	for i := uint32(0); i < n; i++ {
		addrBytes, err := r.RawFixed(20)
		if err != nil {
			return extendedCommitInfo{}, err
		}
		power, err := r.Int64()
		if err != nil {
			return extendedCommitInfo{}, err
		}
		ext, err := r.BytesField()
		if err != nil {
			return extendedCommitInfo{}, err
		}
		var addr [20]byte
		copy(addr[:], addrBytes)
		votes = append(votes, extendedVote{ValidatorAddress: addr, Power: power, Extension: ext})
	}
	if !r.Done() {
		return extendedCommitInfo{}, fmt.Errorf("consensus: extended_commit_info: trailing bytes after decode")
	}
	return extendedCommitInfo{Round: int32(round), Votes: votes}, nil
}

// totalPower sums every carried validator's power. validateExtendedCommitInfo
// and applyPriceFeedVotes compute the same sum inline for the 2/3-of-stake
// threshold spec §4.5/§8 invariant 6 gates extended_commit_info inclusion
// and validation on.
func (e extendedCommitInfo) totalPower() int64 {
	var total int64
	for _, v := range e.Votes {
		total += v.Power
	}
	return total
}
