package actions

import (
	serrors "github.com/astria/sequencer/pkg/errors"
	"github.com/astria/sequencer/pkg/sequencer"
	"github.com/astria/sequencer/pkg/store"
)

// execCurrencyPairsChange registers or deregisters price-feed markets.
// Addition assigns the next id strictly increasing from zero, never reused
// (spec §3 Currency Pair); Removal requires every listed pair to already
// exist.
func execCurrencyPairsChange(ctx Context, a sequencer.CurrencyPairsChange) error {
	switch a.Change {
	case sequencer.ChangeAddition:
		for _, pair := range a.Pairs {
			id, err := nextCurrencyPairID(ctx.Overlay)
			if err != nil {
				return err
			}
			if err := ctx.Overlay.Put(store.CurrencyPairKey(id), pair.Encode()); err != nil {
				return serrors.Wrap(serrors.KindStoreIO, "write currency pair", err)
			}
		}
		return nil
	case sequencer.ChangeRemoval:
		for _, pair := range a.Pairs {
			id, ok, err := findCurrencyPairID(ctx.Overlay, pair)
			if err != nil {
				return err
			}
			if !ok {
				return serrors.New(serrors.KindUnknownAsset, "currency pair does not exist")
			}
			if err := ctx.Overlay.Delete(store.CurrencyPairKey(id)); err != nil {
				return serrors.Wrap(serrors.KindStoreIO, "delete currency pair", err)
			}
			if err := ctx.Overlay.Delete(store.PriceKey(id)); err != nil {
				return serrors.Wrap(serrors.KindStoreIO, "delete currency pair price", err)
			}
		}
		return nil
	default:
		return serrors.New(serrors.KindConsensusInvariant, "currency pairs change: unknown ChangeKind")
	}
}

// execMarketsChange adds or removes markets by currency-pair id; "market"
// and "currency pair" share one id space in this state layout. Removal
// fails if the id is not a registered currency pair, and otherwise deletes
// that id's stored price. Addition fails if the id is not a registered
// currency pair, and otherwise writes nothing.
func execMarketsChange(ctx Context, a sequencer.MarketsChange) error {
	for _, id := range a.IDs {
		exists, err := ctx.Overlay.Has(store.CurrencyPairKey(id))
		if err != nil {
			return serrors.Wrap(serrors.KindStoreIO, "check currency pair", err)
		}
		switch a.Change {
		case sequencer.ChangeRemoval:
			if !exists {
				return serrors.New(serrors.KindUnknownAsset, "market does not exist")
			}
			if err := ctx.Overlay.Delete(store.PriceKey(id)); err != nil {
				return serrors.Wrap(serrors.KindStoreIO, "delete market price", err)
			}
		case sequencer.ChangeAddition:
			if !exists {
				return serrors.New(serrors.KindUnknownAsset, "market's currency pair is not registered")
			}
		default:
			return serrors.New(serrors.KindConsensusInvariant, "markets change: unknown ChangeKind")
		}
	}
	return nil
}

func nextCurrencyPairID(ov *store.Overlay) (sequencer.CurrencyPairID, error) {
	raw, err := ov.Get(store.CurrencyPairNextIDKey())
	if err != nil {
		return 0, serrors.Wrap(serrors.KindStoreIO, "read next currency pair id", err)
	}
	next, err := store.Uint64FromBytesOrZero(raw)
	if err != nil {
		return 0, serrors.Wrap(serrors.KindStoreIO, "decode next currency pair id", err)
	}
	if err := ov.Put(store.CurrencyPairNextIDKey(), store.EncodeUint64(next+1)); err != nil {
		return 0, serrors.Wrap(serrors.KindStoreIO, "advance next currency pair id", err)
	}
	return sequencer.CurrencyPairID(next), nil
}

// findCurrencyPairID linearly scans registered pairs for one matching
// base/quote; the registry is small (spec's scope is a handful of markets)
// so this avoids maintaining a second denom->id index.
func findCurrencyPairID(ov *store.Overlay, want sequencer.CurrencyPair) (sequencer.CurrencyPairID, bool, error) {
	var (
		found   sequencer.CurrencyPairID
		ok      bool
		scanErr error
	)
	err := ov.IteratePrefix(store.CurrencyPairPrefix(), func(key, value []byte) error {
		if ok {
			return nil
		}
		id, err := store.CurrencyPairIDFromKey(key)
		if err != nil {
			scanErr = err
			return nil
		}
		pair, err := sequencer.DecodeCurrencyPair(value)
		if err != nil {
			scanErr = err
			return nil
		}
		if pair.Base == want.Base && pair.Quote == want.Quote {
			found, ok = id, true
		}
		return nil
	})
	if err != nil {
		return 0, false, serrors.Wrap(serrors.KindStoreIO, "scan currency pairs", err)
	}
	if scanErr != nil {
		return 0, false, serrors.Wrap(serrors.KindStoreIO, "decode currency pair entry", scanErr)
	}
	return found, ok, nil
}
