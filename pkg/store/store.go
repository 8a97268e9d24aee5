package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/astria/sequencer/pkg/merkle"
)

// Store owns the single committed KV and serializes commits: spec §4.1
// guarantees "exactly one overlay may be committed per block" and §5
// requires ABCI calls to be strictly serialized, so a plain mutex is
// sufficient rather than anything fancier.
type Store struct {
	mu     sync.Mutex
	kv     KV
	height int64
}

// New wraps an already-open KV backend. initialHeight is the height of
// whatever state is already persisted in kv (0 for a fresh chain).
func New(kv KV, initialHeight int64) *Store {
	return &Store{kv: kv, height: initialHeight}
}

// CommittedSnapshot returns a Snapshot at the store's current height.
func (s *Store) CommittedSnapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{kv: s.kv, Height: s.height}
}

// Begin starts a staged-write overlay over the current committed snapshot.
func (s *Store) Begin() *Overlay {
	return Begin(s.CommittedSnapshot())
}

// Commit materializes an overlay's staged writes and returns the new
// snapshot plus a deterministic 32-byte application hash (spec §4.1:
// "given identical snapshot + identical ordered writes the app_hash is
// bit-identical across implementations"). The hash commits to the entire
// resulting key space, not just the keys touched this block, which is what
// makes it a commitment to the whole state rather than to a diff.
func (s *Store) Commit(overlay *Overlay) (Snapshot, [32]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if overlay.base.Height != s.height {
		return Snapshot{}, [32]byte{}, fmt.Errorf(
			"store: overlay staged over height %d but store is at height %d; stale overlay",
			overlay.base.Height, s.height)
	}

	keys, writes := overlay.snapshotWrites()
	sort.Strings(keys)
	for _, k := range keys {
		op := writes[k]
		if op.Deleted {
			if err := s.kv.Delete([]byte(k)); err != nil {
				return Snapshot{}, [32]byte{}, fmt.Errorf("store: delete %q: %w", k, err)
			}
			continue
		}
		if err := s.kv.Set([]byte(k), op.Value); err != nil {
			return Snapshot{}, [32]byte{}, fmt.Errorf("store: set %q: %w", k, err)
		}
	}
	overlay.discarded = true
	s.height++

	root, err := s.computeAppHash()
	if err != nil {
		return Snapshot{}, [32]byte{}, fmt.Errorf("store: compute app_hash: %w", err)
	}
	return Snapshot{kv: s.kv, Height: s.height}, root, nil
}

// Discard drops an overlay's staged writes without touching the backing
// store. Because writes only ever live in the overlay's in-memory map
// until Commit, discarding is just making the overlay unusable.
func (s *Store) Discard(overlay *Overlay) {
	overlay.discarded = true
}

// computeAppHash builds an RFC-6962 Merkle tree whose leaves are
// `key || 0x00 || value` for every key currently in the store, in
// ascending key order, and returns its root. Ascending order is what makes
// the hash reproducible regardless of write order within the block.
func (s *Store) computeAppHash() ([32]byte, error) {
	it, err := s.kv.Iterator(nil, nil)
	if err != nil {
		return [32]byte{}, err
	}
	defer it.Close()

	var leaves [][]byte
	for ; it.Valid(); it.Next() {
		leaf := make([]byte, 0, len(it.Key())+len(it.Value())+1)
		leaf = append(leaf, it.Key()...)
		leaf = append(leaf, 0x00)
		leaf = append(leaf, it.Value()...)
		leaves = append(leaves, leaf)
	}
	tree := merkle.New(leaves)
	return tree.Root(), nil
}

// Height returns the store's current committed height.
func (s *Store) Height() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.height
}

// AppHash recomputes the app_hash of the currently committed state, without
// committing anything. ABCI's Info call needs this on every node restart to
// report LastBlockAppHash; recomputing rather than caching keeps the value
// honest even if the process crashed between a previous Commit and whatever
// would have cached it.
func (s *Store) AppHash() ([32]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.computeAppHash()
}
