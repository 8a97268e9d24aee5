package pricefeed

import (
	serrors "github.com/astria/sequencer/pkg/errors"
	"github.com/astria/sequencer/pkg/sequencer"
	"github.com/astria/sequencer/pkg/store"
)

// RegisteredPairs lists every currency pair id currently registered in ov,
// the set PrepareProposal/FinalizeBlock aggregate over each height.
func RegisteredPairs(ov *store.Overlay) ([]sequencer.CurrencyPairID, error) {
	var ids []sequencer.CurrencyPairID
	err := ov.IteratePrefix(store.CurrencyPairPrefix(), func(key, _ []byte) error {
		id, err := store.CurrencyPairIDFromKey(key)
		if err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, serrors.Wrap(serrors.KindStoreIO, "iterate registered currency pairs", err)
	}
	return ids, nil
}
