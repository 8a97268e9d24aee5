package store

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// memKV is a trivial in-memory KV used only by this package's tests; the
// production backend is pkg/kvdb's cometbft-db adapter.
type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemKV() *memKV { return &memKV{data: make(map[string][]byte)} }

func (m *memKV) Get(key []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[string(key)], nil
}

func (m *memKV) Set(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[string(key)] = v
	return nil
}

func (m *memKV) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

func (m *memKV) Iterator(start, end []byte) (Iterator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if start != nil && k < string(start) {
			continue
		}
		if end != nil && k >= string(end) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &memIterator{kv: m, keys: keys}, nil
}

type memIterator struct {
	kv   *memKV
	keys []string
	pos  int
}

func (it *memIterator) Valid() bool { return it.pos < len(it.keys) }
func (it *memIterator) Next()       { it.pos++ }
func (it *memIterator) Key() []byte { return []byte(it.keys[it.pos]) }
func (it *memIterator) Value() []byte {
	it.kv.mu.Lock()
	defer it.kv.mu.Unlock()
	return it.kv.data[it.keys[it.pos]]
}
func (it *memIterator) Close() error { return nil }

func TestOverlay_GetShadowsSnapshot(t *testing.T) {
	kv := newMemKV()
	require.NoError(t, kv.Set([]byte("k"), []byte("committed")))

	s := New(kv, 0)
	ov := s.Begin()

	v, err := ov.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("committed"), v)

	require.NoError(t, ov.Put([]byte("k"), []byte("staged")))
	v, err = ov.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("staged"), v)

	// The backing store is untouched until Commit.
	raw, err := kv.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("committed"), raw)
}

func TestOverlay_DeleteShadowsSnapshot(t *testing.T) {
	kv := newMemKV()
	require.NoError(t, kv.Set([]byte("k"), []byte("v")))

	s := New(kv, 0)
	ov := s.Begin()
	require.NoError(t, ov.Delete([]byte("k")))

	v, err := ov.Get([]byte("k"))
	require.NoError(t, err)
	require.Nil(t, v)

	has, err := ov.Has([]byte("k"))
	require.NoError(t, err)
	require.False(t, has)
}

func TestCommit_AppliesWritesAndAdvancesHeight(t *testing.T) {
	kv := newMemKV()
	s := New(kv, 0)

	ov := s.Begin()
	require.NoError(t, ov.Put([]byte("a"), []byte("1")))
	require.NoError(t, ov.Put([]byte("b"), []byte("2")))

	snap, hash1, err := s.Commit(ov)
	require.NoError(t, err)
	require.Equal(t, int64(1), snap.Height)
	require.Equal(t, int64(1), s.Height())

	v, err := kv.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)

	// Committing the same writes into a fresh store must produce the same
	// hash (determinism).
	kv2 := newMemKV()
	s2 := New(kv2, 0)
	ov2 := s2.Begin()
	require.NoError(t, ov2.Put([]byte("a"), []byte("1")))
	require.NoError(t, ov2.Put([]byte("b"), []byte("2")))
	_, hash2, err := s2.Commit(ov2)
	require.NoError(t, err)

	require.Equal(t, hash1, hash2)
}

func TestCommit_StaleOverlayRejected(t *testing.T) {
	kv := newMemKV()
	s := New(kv, 0)

	ov := s.Begin()
	_, _, err := s.Commit(ov)
	require.NoError(t, err)

	// ov was staged over height 0; the store already moved to height 1.
	stale := s.Begin()
	_, _, err = s.Commit(ov)
	require.Error(t, err)

	require.NoError(t, stale.Put([]byte("x"), []byte("y")))
	_, _, err = s.Commit(stale)
	require.NoError(t, err)
}

func TestCommit_OrderIndependentHash(t *testing.T) {
	kv1, kv2 := newMemKV(), newMemKV()
	s1, s2 := New(kv1, 0), New(kv2, 0)

	ov1 := s1.Begin()
	require.NoError(t, ov1.Put([]byte("a"), []byte("1")))
	require.NoError(t, ov1.Put([]byte("b"), []byte("2")))
	require.NoError(t, ov1.Put([]byte("c"), []byte("3")))

	ov2 := s2.Begin()
	require.NoError(t, ov2.Put([]byte("c"), []byte("3")))
	require.NoError(t, ov2.Put([]byte("a"), []byte("1")))
	require.NoError(t, ov2.Put([]byte("b"), []byte("2")))

	_, h1, err := s1.Commit(ov1)
	require.NoError(t, err)
	_, h2, err := s2.Commit(ov2)
	require.NoError(t, err)

	require.Equal(t, h1, h2)
}

func TestSnapshot_IteratePrefix(t *testing.T) {
	kv := newMemKV()
	s := New(kv, 0)
	ov := s.Begin()
	require.NoError(t, ov.Put([]byte("asset/fee_asset/01"), []byte("x")))
	require.NoError(t, ov.Put([]byte("asset/fee_asset/02"), []byte("y")))
	require.NoError(t, ov.Put([]byte("acct/zzz/nonce"), []byte("0")))
	snap, _, err := s.Commit(ov)
	require.NoError(t, err)

	var got []string
	err = snap.IteratePrefix([]byte("asset/fee_asset/"), func(k, v []byte) error {
		got = append(got, string(k))
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"asset/fee_asset/01", "asset/fee_asset/02"}, got)
}
