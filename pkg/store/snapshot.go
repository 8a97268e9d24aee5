package store

import "fmt"

// Snapshot is a read view of committed state, tagged with the height it
// was taken at (spec §4.1). Because the backing KV has no built-in
// versioning, the only way to obtain one is Store.CommittedSnapshot, at the
// Store's current committed height; there is no lookup by an older height.
// A Snapshot reads the live committed KV, so one held across a later
// Store.Commit sees the newer state, not the state at its Height.
// Store.Commit does reject an overlay staged over an older height.
type Snapshot struct {
	kv     KV
	Height int64
}

// Get reads directly from the committed backing store.
func (s Snapshot) Get(key []byte) ([]byte, error) {
	return s.kv.Get(key)
}

// IteratePrefix walks every key with the given prefix in ascending order,
// invoking fn(key, value) for each; used by the query surface (listing
// allowed fee assets, applied upgrades) which only ever reads committed
// state, never an in-flight overlay.
func (s Snapshot) IteratePrefix(prefix []byte, fn func(key, value []byte) error) error {
	end := prefixUpperBound(prefix)
	it, err := s.kv.Iterator(prefix, end)
	if err != nil {
		return fmt.Errorf("store: iterate prefix %q: %w", prefix, err)
	}
	defer it.Close()
	for ; it.Valid(); it.Next() {
		if err := fn(it.Key(), it.Value()); err != nil {
			return err
		}
	}
	return nil
}

// prefixUpperBound returns the smallest byte string greater than every
// string sharing the given prefix, or nil if the prefix is all 0xff (which
// covers the whole remaining keyspace).
func prefixUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] != 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
