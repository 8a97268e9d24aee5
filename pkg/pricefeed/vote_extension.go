// Package pricefeed implements the stake-weighted price aggregation named by
// spec §4.6: a vote extension's wire format, the median computation over an
// extended commit, and the store write that follows a successful aggregation.
package pricefeed

import (
	"fmt"
	"sort"

	"github.com/astria/sequencer/pkg/codec"
	"github.com/astria/sequencer/pkg/sequencer"
)

// PricePoint is one validator's locally-observed price for a single
// currency pair, as carried inside a VoteExtension. Values are unsigned
// because a validator's own price source never reports a negative spot
// price; pkg/sequencer.Price's signed encoding exists for future pairs
// whose value can go negative (e.g. funding rates), not for this path.
type PricePoint struct {
	ID    sequencer.CurrencyPairID
	Value sequencer.Uint128
}

// VoteExtension is the payload a validator attaches to its precommit at
// height H, reporting the prices it observed for every currency pair its
// local price-feed client returned a value for (spec §4.6: "Collect the
// subset of vote extensions that include a price for this id"). Pairs are
// encoded in ascending id order so two validators observing the same prices
// produce byte-identical extensions, which matters only for log/debug
// comparison — CometBFT signs the bytes as given, independent of order.
type VoteExtension struct {
	Prices []PricePoint
}

func (v VoteExtension) Encode() []byte {
	w := codec.NewWriter(4 + 24*len(v.Prices))
	w.Uint32(uint32(len(v.Prices)))
	for _, p := range v.Prices {
		w.Uint64(uint64(p.ID))
		w.Int128(int64(p.Value.Hi), p.Value.Lo)
	}
	return w.Bytes()
}

func DecodeVoteExtension(data []byte) (VoteExtension, error) {
	r := codec.NewReader(data)
	n, err := r.Uint32()
	if err != nil {
		return VoteExtension{}, err
	}
	prices := make([]PricePoint, 0, n)
	for i := uint32(0); i < n; i++ {
		id, err := r.Uint64()
		if err != nil {
			return VoteExtension{}, err
		}
		hi, lo, err := r.Int128()
		if err != nil {
			return VoteExtension{}, err
		}
		prices = append(prices, PricePoint{
			ID:    sequencer.CurrencyPairID(id),
			Value: sequencer.Uint128{Hi: uint64(hi), Lo: lo},
		})
	}
	if !r.Done() {
		return VoteExtension{}, errTrailingBytes("VoteExtension")
	}
	return VoteExtension{Prices: prices}, nil
}

// BuildVoteExtension sorts prices into the canonical ascending-id order
// ExtendVote must produce before signing.
func BuildVoteExtension(prices map[sequencer.CurrencyPairID]sequencer.Uint128) VoteExtension {
	ve := VoteExtension{Prices: make([]PricePoint, 0, len(prices))}
	for id, v := range prices {
		ve.Prices = append(ve.Prices, PricePoint{ID: id, Value: v})
	}
	sort.Slice(ve.Prices, func(i, j int) bool { return ve.Prices[i].ID < ve.Prices[j].ID })
	return ve
}

func errTrailingBytes(what string) error {
	return fmt.Errorf("pricefeed: %s: trailing bytes after decode", what)
}
