package sequencer

import (
	"github.com/astria/sequencer/pkg/codec"
)

// CurrencyPairID is the monotonically assigned, never-reused identifier for
// a registered currency pair (spec §3 Currency Pair).
type CurrencyPairID uint64

// CurrencyPair is a registered price-feed market. Ids are assigned strictly
// increasing from zero by the currency-pairs-change action handler; this
// type only carries the descriptive fields, the id is the state-store key.
type CurrencyPair struct {
	Base     string
	Quote    string
	Decimals uint8
}

func (c CurrencyPair) Encode() []byte {
	w := codec.NewWriter(16 + len(c.Base) + len(c.Quote))
	w.String(c.Base)
	w.String(c.Quote)
	w.Uint8(c.Decimals)
	return w.Bytes()
}

func DecodeCurrencyPair(data []byte) (CurrencyPair, error) {
	r := codec.NewReader(data)
	base, err := r.String()
	if err != nil {
		return CurrencyPair{}, err
	}
	quote, err := r.String()
	if err != nil {
		return CurrencyPair{}, err
	}
	decimals, err := r.Uint8()
	if err != nil {
		return CurrencyPair{}, err
	}
	if !r.Done() {
		return CurrencyPair{}, errTrailingBytes("CurrencyPair")
	}
	return CurrencyPair{Base: base, Quote: quote, Decimals: decimals}, nil
}

// Price is the last-write-wins stored quote for a currency pair (spec §3
// Price). Value is signed 128-bit two's-complement because some pairs (e.g.
// funding rates, in a later upgrade) may legitimately go negative; the
// aggregation algorithm in pkg/pricefeed never itself produces a negative
// median for ordinary spot pairs.
type Price struct {
	ValueHi int64
	ValueLo uint64
	Nonce   uint32
	Height  int64
	Time    int64 // unix nanos, block time
}

func (p Price) Encode() []byte {
	w := codec.NewWriter(32)
	w.Int128(p.ValueHi, p.ValueLo)
	w.Uint32(p.Nonce)
	w.Int64(p.Height)
	w.Int64(p.Time)
	return w.Bytes()
}

func DecodePrice(data []byte) (Price, error) {
	r := codec.NewReader(data)
	hi, lo, err := r.Int128()
	if err != nil {
		return Price{}, err
	}
	nonce, err := r.Uint32()
	if err != nil {
		return Price{}, err
	}
	height, err := r.Int64()
	if err != nil {
		return Price{}, err
	}
	t, err := r.Int64()
	if err != nil {
		return Price{}, err
	}
	if !r.Done() {
		return Price{}, errTrailingBytes("Price")
	}
	return Price{ValueHi: hi, ValueLo: lo, Nonce: nonce, Height: height, Time: t}, nil
}
