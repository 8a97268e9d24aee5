package sequencer

import "github.com/astria/sequencer/pkg/codec"

// FeeSchedule is the per-action-kind fee formula (spec §3 Fee Schedule):
// total fee = Base + Multiplier*size_metric, where size_metric is action
// specific (e.g. payload length for RollupDataSubmission, zero for most
// others). Absence of an entry disables every action kind that carries a
// fee asset; kinds without one (the sudo groups and IbcRelay) never read a
// schedule and are unaffected.
type FeeSchedule struct {
	Base       Uint128
	Multiplier Uint128
}

func (f FeeSchedule) Encode() []byte {
	w := codec.NewWriter(32)
	writeUint128(w, f.Base)
	writeUint128(w, f.Multiplier)
	return w.Bytes()
}

func DecodeFeeSchedule(data []byte) (FeeSchedule, error) {
	r := codec.NewReader(data)
	base, err := readUint128(r)
	if err != nil {
		return FeeSchedule{}, err
	}
	mult, err := readUint128(r)
	if err != nil {
		return FeeSchedule{}, err
	}
	if !r.Done() {
		return FeeSchedule{}, errTrailingBytes("FeeSchedule")
	}
	return FeeSchedule{Base: base, Multiplier: mult}, nil
}

// Fee computes the total owed for a single action given its size metric.
func (f FeeSchedule) Fee(sizeMetric uint64) (Uint128, error) {
	scaled, err := f.Multiplier.CheckedMulUint64(sizeMetric)
	if err != nil {
		return Uint128{}, err
	}
	return f.Base.CheckedAdd(scaled)
}
