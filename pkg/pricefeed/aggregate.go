package pricefeed

import (
	"sort"
	"time"

	serrors "github.com/astria/sequencer/pkg/errors"
	"github.com/astria/sequencer/pkg/sequencer"
	"github.com/astria/sequencer/pkg/store"
)

// Vote is one validator's contribution to an extended commit: its voting
// power at the committed height and the vote extension it signed, decoded
// by the caller (pkg/consensus owns extended_commit_info parsing; this
// package only aggregates the votes it is given).
type Vote struct {
	Power     int64
	Extension VoteExtension
}

// Result is the outcome of aggregating one currency pair across a set of
// votes: either a new median that cleared the contribution threshold
// (Updated=true), or a skip (Updated=false).
type Result struct {
	ID      sequencer.CurrencyPairID
	Updated bool
	Median  sequencer.Uint128
}

// AggregatePrices computes the stake-weighted median for each pair in
// pairs, per spec §4.6: sort contributing prices ascending, expand into a
// weighted multiset, and take the price at cumulative weight crossing half
// of the CONTRIBUTING power. A pair is skipped (Updated=false) if no vote
// contributed a price for it, or if the power contributing a price for that
// pair is below 2/3 of totalPowerPrevHeight (invariant 6, applied per pair).
func AggregatePrices(pairs []sequencer.CurrencyPairID, votes []Vote, totalPowerPrevHeight int64) []Result {
	results := make([]Result, 0, len(pairs))
	for _, id := range pairs {
		results = append(results, aggregateOne(id, votes, totalPowerPrevHeight))
	}
	return results
}

func aggregateOne(id sequencer.CurrencyPairID, votes []Vote, totalPowerPrevHeight int64) Result {
	type contribution struct {
		power int64
		value sequencer.Uint128
	}
	var contributions []contribution
	var contributingPower int64

	for _, v := range votes {
		for _, p := range v.Extension.Prices {
			if p.ID != id {
				continue
			}
			contributions = append(contributions, contribution{power: v.Power, value: p.Value})
			contributingPower += v.Power
			break
		}
	}

	if contributingPower == 0 {
		return Result{ID: id, Updated: false}
	}
	// Invariant 6 (spec §8): the contributing power for this pair must
	// reach 2/3 of the total voting power at H-1, not merely be nonzero.
	if contributingPower*3 < totalPowerPrevHeight*2 {
		return Result{ID: id, Updated: false}
	}

	sort.Slice(contributions, func(i, j int) bool {
		return contributions[i].value.Cmp(contributions[j].value) < 0
	})

	threshold := (contributingPower + 1) / 2 // ceil(contributingPower / 2)
	var cumulative int64
	median := contributions[len(contributions)-1].value
	for _, c := range contributions {
		cumulative += c.power
		if cumulative >= threshold {
			median = c.value
			break
		}
	}

	return Result{ID: id, Updated: true, Median: median}
}

// ApplyResults writes every updated result to ov, incrementing each pair's
// stored nonce (spec §4.6: "write new price with nonce = previous + 1").
// It returns the ids actually written, for event emission by the caller.
func ApplyResults(ov *store.Overlay, results []Result, height int64, blockTime time.Time) ([]sequencer.CurrencyPairID, error) {
	var written []sequencer.CurrencyPairID
	for _, r := range results {
		if !r.Updated {
			continue
		}

		var prevNonce uint32
		existing, err := ov.Get(store.PriceKey(r.ID))
		if err != nil {
			return nil, serrors.Wrap(serrors.KindStoreIO, "read existing price", err)
		}
		if len(existing) > 0 {
			prev, err := sequencer.DecodePrice(existing)
			if err != nil {
				return nil, serrors.Wrap(serrors.KindStoreIO, "decode existing price", err)
			}
			prevNonce = prev.Nonce
		}

		price := sequencer.Price{
			ValueHi: int64(r.Median.Hi),
			ValueLo: r.Median.Lo,
			Nonce:   prevNonce + 1,
			Height:  height,
			Time:    blockTime.UnixNano(),
		}
		if err := ov.Put(store.PriceKey(r.ID), price.Encode()); err != nil {
			return nil, serrors.Wrap(serrors.KindStoreIO, "write price", err)
		}
		written = append(written, r.ID)
	}
	return written, nil
}
