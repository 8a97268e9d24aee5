// Package kvdb adapts CometBFT's embedded key-value database interface
// (dbm.DB) to the narrower store.KV contract the sequencer's state store
// depends on.
package kvdb

import (
	dbm "github.com/cometbft/cometbft-db"

	"github.com/astria/sequencer/pkg/store"
)

// Adapter wraps a dbm.DB and exposes store.KV.
type Adapter struct {
	db dbm.DB
}

// New wraps an already-opened CometBFT database.
func New(db dbm.DB) *Adapter {
	return &Adapter{db: db}
}

var _ store.KV = (*Adapter)(nil)

func (a *Adapter) Get(key []byte) ([]byte, error) {
	v, err := a.db.Get(key)
	if err != nil {
		return nil, err
	}
	// v is nil if the key is absent; the store package treats absence and
	// an explicit nil value as indistinguishable, matching dbm.DB's
	// contract.
	return v, nil
}

// Set writes durably: state-store commits must survive a crash immediately
// after Commit() returns the app_hash to the consensus driver.
func (a *Adapter) Set(key, value []byte) error {
	return a.db.SetSync(key, value)
}

func (a *Adapter) Delete(key []byte) error {
	return a.db.DeleteSync(key)
}

func (a *Adapter) Iterator(start, end []byte) (store.Iterator, error) {
	it, err := a.db.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	return dbmIterator{it}, nil
}

// dbmIterator adapts dbm.Iterator's panicking accessors to store.Iterator's
// error-free ones; dbm guarantees Key/Value are only called while Valid.
type dbmIterator struct {
	dbm.Iterator
}

func (it dbmIterator) Close() error {
	it.Iterator.Close()
	return nil
}
