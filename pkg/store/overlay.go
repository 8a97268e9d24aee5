package store

import (
	"fmt"
	"sort"
	"strings"
)

// writeOp is a single staged write: a non-nil Value is a put, a nil Value
// with Deleted set is a tombstone.
type writeOp struct {
	Value   []byte
	Deleted bool
}

// Overlay is a staged-write layer over a Snapshot (spec §4.1: "create a
// staged-write layer... writes live in overlay only"). Exactly one overlay
// is committed per block; reads are repeatable within an overlay because
// writes are buffered in memory rather than applied immediately.
type Overlay struct {
	base    Snapshot
	writes  map[string]writeOp
	order   []string // insertion order, for deterministic replay/debugging
	discarded bool
}

// Begin creates a staged-write layer over snapshot.
func Begin(snapshot Snapshot) *Overlay {
	return &Overlay{base: snapshot, writes: make(map[string]writeOp)}
}

// Height returns the height of the snapshot this overlay is staged over.
func (o *Overlay) Height() int64 { return o.base.Height }

// Get reads the composite view: overlay writes shadow the base snapshot.
func (o *Overlay) Get(key []byte) ([]byte, error) {
	if o.discarded {
		return nil, fmt.Errorf("store: read from discarded overlay")
	}
	if op, ok := o.writes[string(key)]; ok {
		if op.Deleted {
			return nil, nil
		}
		return op.Value, nil
	}
	return o.base.Get(key)
}

// Put stages a write. The value is copied defensively so a caller mutating
// its buffer afterward cannot corrupt overlay state.
func (o *Overlay) Put(key, value []byte) error {
	if o.discarded {
		return fmt.Errorf("store: write to discarded overlay")
	}
	k := string(key)
	if _, exists := o.writes[k]; !exists {
		o.order = append(o.order, k)
	}
	v := make([]byte, len(value))
	copy(v, value)
	o.writes[k] = writeOp{Value: v}
	return nil
}

// Delete stages a tombstone.
func (o *Overlay) Delete(key []byte) error {
	if o.discarded {
		return fmt.Errorf("store: delete on discarded overlay")
	}
	k := string(key)
	if _, exists := o.writes[k]; !exists {
		o.order = append(o.order, k)
	}
	o.writes[k] = writeOp{Deleted: true}
	return nil
}

// Has reports whether key resolves to a non-absent value in the composite
// view; action handlers use this for "does X already exist" pre-checks
// rather than comparing Get's result against nil, since an absent key and
// a present-but-empty value are otherwise indistinguishable.
func (o *Overlay) Has(key []byte) (bool, error) {
	v, err := o.Get(key)
	if err != nil {
		return false, err
	}
	return v != nil, nil
}

// IteratePrefix walks the composite view (base snapshot shadowed by staged
// writes) over every key sharing prefix, in ascending order. Action
// handlers use this for small registry scans (e.g. resolving a currency
// pair's id by base/quote) that must see this block's own staged writes,
// unlike Snapshot.IteratePrefix which only ever sees committed state.
func (o *Overlay) IteratePrefix(prefix []byte, fn func(key, value []byte) error) error {
	if o.discarded {
		return fmt.Errorf("store: iterate discarded overlay")
	}
	merged := make(map[string][]byte)
	if err := o.base.IteratePrefix(prefix, func(k, v []byte) error {
		merged[string(k)] = v
		return nil
	}); err != nil {
		return err
	}
	p := string(prefix)
	for k, op := range o.writes {
		if !strings.HasPrefix(k, p) {
			continue
		}
		if op.Deleted {
			delete(merged, k)
			continue
		}
		merged[k] = op.Value
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fn([]byte(k), merged[k]); err != nil {
			return err
		}
	}
	return nil
}

// TouchedWrites reports every staged write (put or delete) under prefix, in
// the order it was first staged this overlay. FinalizeBlock uses this over
// ValidatorPrefix() to learn exactly which validator-set entries this
// block's actions touched, without diffing a before/after snapshot pair: a
// deleted entry has Deleted set and a nil Value.
func (o *Overlay) TouchedWrites(prefix []byte) []TouchedWrite {
	p := string(prefix)
	var out []TouchedWrite
	for _, k := range o.order {
		if !strings.HasPrefix(k, p) {
			continue
		}
		op := o.writes[k]
		out = append(out, TouchedWrite{Key: []byte(k), Value: op.Value, Deleted: op.Deleted})
	}
	return out
}

// TouchedWrite is one entry reported by Overlay.TouchedWrites.
type TouchedWrite struct {
	Key     []byte
	Value   []byte
	Deleted bool
}

// snapshotWrites returns a defensive copy of the staged writes, used only
// by Store.Commit.
func (o *Overlay) snapshotWrites() ([]string, map[string]writeOp) {
	keys := make([]string, len(o.order))
	copy(keys, o.order)
	writes := make(map[string]writeOp, len(o.writes))
	for k, v := range o.writes {
		writes[k] = v
	}
	return keys, writes
}
