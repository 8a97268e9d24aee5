// Package mempool buffers signed transactions ahead of block inclusion,
// enforcing per-signer nonce order and balance sufficiency against the
// latest committed snapshot (spec §4.7). It never observes overlay state:
// admission and recheck both run against the store's committed height only,
// which is what keeps admission deterministic regardless of in-flight
// proposal activity.
package mempool

import (
	"bytes"
	"sort"
	"sync"
	"time"

	"github.com/astria/sequencer/pkg/checkedtx"
	serrors "github.com/astria/sequencer/pkg/errors"
	"github.com/astria/sequencer/pkg/sequencer"
	"github.com/astria/sequencer/pkg/store"
)

// StatusKind is one of the four states spec §6's mempool service reports
// for a transaction hash.
type StatusKind int

const (
	StatusUnknown StatusKind = iota
	StatusPending
	StatusParked
	StatusRemoved
	StatusExecuted
)

// TxStatus is the mempool service's answer to a status query.
type TxStatus struct {
	Kind   StatusKind
	Reason string // set when Kind == StatusRemoved
	Height int64  // set when Kind == StatusExecuted
}

const (
	// DefaultMaxParkedPerSigner bounds per-account parked capacity; spec
	// §4.7 requires a bound but leaves the number to the implementation.
	DefaultMaxParkedPerSigner = 16
	// DefaultRemovalCacheCapacity is sized to comfortably exceed a single
	// CometBFT mempool's default tx capacity (5000), per spec §4.7's sizing
	// guidance ("size >= CometBFT mempool capacity").
	DefaultRemovalCacheCapacity = 8192
	// DefaultParkTTL is how long a parked entry survives without its gap
	// closing before eviction.
	DefaultParkTTL = 10 * time.Minute
)

// Mempool is the shared, per-account-serialized admission buffer described
// by spec §4.7 and §5 ("the mempool is shared; access is serialized per
// account; cross-account operations may proceed in parallel"). The
// implementation here serializes on one mutex rather than per-account locks
// — the admission work done per transaction (an overlay-backed stateful
// check) is cheap enough that per-account locking would add complexity
// without a measurable concurrency win at the scale this chain targets.
type Mempool struct {
	mu           sync.Mutex
	store        *store.Store
	chainID      string
	feeSchedules checkedtx.FeeScheduleLookup

	signers map[[20]byte]*signerState

	maxParkedPerSigner int
	parkTTL            time.Duration

	removal  *removalCache
	executed *executedCache

	rotationPos int
	metrics     *metrics
}

// New constructs a Mempool bound to st. feeSchedules resolves per-action
// fees the same way pkg/actions.FeeSchedule does during execution.
func New(st *store.Store, chainID string, feeSchedules checkedtx.FeeScheduleLookup) *Mempool {
	return &Mempool{
		store:              st,
		chainID:            chainID,
		feeSchedules:       feeSchedules,
		signers:            make(map[[20]byte]*signerState),
		maxParkedPerSigner: DefaultMaxParkedPerSigner,
		parkTTL:            DefaultParkTTL,
		removal:            newRemovalCache(DefaultRemovalCacheCapacity),
		executed:           newExecutedCache(DefaultRemovalCacheCapacity),
		metrics:            newMetrics(),
	}
}

// Insert runs the stateless+stateful check against the latest committed
// snapshot and places tx in pending if its nonce is next for its signer,
// else parks it (spec §4.7 Insert).
func (m *Mempool) Insert(tx sequencer.Transaction) (TxStatus, error) {
	hash := tx.Hash()

	m.mu.Lock()
	defer m.mu.Unlock()

	if reason, ok := m.removal.Reason(hash); ok {
		return TxStatus{Kind: StatusRemoved, Reason: reason}, nil
	}
	if height, ok := m.executed.Height(hash); ok {
		return TxStatus{Kind: StatusExecuted, Height: height}, nil
	}

	ov := m.store.Begin()
	defer m.store.Discard(ov)

	checked, committedNonce, err := checkedtx.CheckIgnoringNonce(tx, ov, m.chainID, m.feeSchedules)
	if err != nil {
		reason := err.Error()
		m.removal.Add(hash, reason)
		m.metrics.removed.WithLabelValues(serrors.KindOf(err).String()).Inc()
		return TxStatus{Kind: StatusRemoved, Reason: reason}, nil
	}

	ss, ok := m.signers[checked.Signer]
	if !ok {
		ss = newSignerState()
		m.signers[checked.Signer] = ss
	}

	nonce := checked.Body.Params.Nonce
	e := newEntry(checked)

	switch {
	case nonce < committedNonce:
		reason := "nonce already committed"
		m.removal.Add(hash, reason)
		m.metrics.removed.WithLabelValues("StaleNonce").Inc()
		return TxStatus{Kind: StatusRemoved, Reason: reason}, nil
	case nonce == committedNonce && len(ss.pending) == 0:
		ss.pending = append(ss.pending, e)
		m.updateGauges()
		return TxStatus{Kind: StatusPending}, nil
	default:
		if _, exists := ss.parked[nonce]; !exists && len(ss.parked) >= m.maxParkedPerSigner {
			m.evictOldestParked(ss)
		}
		ss.parked[nonce] = e
		m.updateGauges()
		return TxStatus{Kind: StatusParked}, nil
	}
}

// evictOldestParked drops the longest-resident parked entry for ss,
// recording its removal. Caller holds m.mu.
func (m *Mempool) evictOldestParked(ss *signerState) {
	var oldestNonce uint32
	var oldest *entry
	for nonce, e := range ss.parked {
		if oldest == nil || e.InsertedAt.Before(oldest.InsertedAt) {
			oldest, oldestNonce = e, nonce
		}
	}
	if oldest == nil {
		return
	}
	delete(ss.parked, oldestNonce)
	m.removal.Add(oldest.Checked.Hash, "parked capacity exceeded")
	m.metrics.removed.WithLabelValues("ParkedCapacityExceeded").Inc()
}

// EvictExpired drops parked entries whose TTL has elapsed (spec §4.7 TTL).
func (m *Mempool) EvictExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for signer, ss := range m.signers {
		for nonce, e := range ss.parked {
			if now.Sub(e.InsertedAt) > m.parkTTL {
				delete(ss.parked, nonce)
				m.removal.Add(e.Checked.Hash, "parked entry exceeded TTL")
				m.metrics.evictedTTL.Inc()
				m.metrics.removed.WithLabelValues("ParkTTLExceeded").Inc()
			}
		}
		if ss.isEmpty() {
			delete(m.signers, signer)
		}
	}
	m.updateGauges()
}

// Recheck re-evaluates every pending and parked entry against the state
// committed at height (spec §4.7 Recheck): stale nonces are recorded as
// executed, entries that no longer pass the stateful check are removed,
// and parked entries newly contiguous are promoted.
func (m *Mempool) Recheck(height int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ov := m.store.Begin()
	defer m.store.Discard(ov)

	for signer, ss := range m.signers {
		nonceRaw, err := ov.Get(store.NonceKey(signer[:]))
		if err != nil {
			continue
		}
		committedNonce, err := store.DecodeNonce(nonceRaw)
		if err != nil {
			continue
		}

		byNonce := make(map[uint32]*entry, len(ss.pending)+len(ss.parked))
		for _, e := range ss.pending {
			byNonce[e.Checked.Body.Params.Nonce] = e
		}
		for nonce, e := range ss.parked {
			byNonce[nonce] = e
		}

		var newPending []*entry
		next := committedNonce
		for {
			e, ok := byNonce[next]
			if !ok {
				break
			}
			delete(byNonce, next)
			if _, _, err := checkedtx.CheckIgnoringNonce(e.Checked.Tx, ov, m.chainID, m.feeSchedules); err != nil {
				m.removal.Add(e.Checked.Hash, err.Error())
				m.metrics.removed.WithLabelValues(serrors.KindOf(err).String()).Inc()
				break
			}
			newPending = append(newPending, e)
			next++
		}

		newParked := make(map[uint32]*entry, len(byNonce))
		for nonce, e := range byNonce {
			if nonce < committedNonce {
				m.executed.Add(e.Checked.Hash, height)
				continue
			}
			newParked[nonce] = e
		}

		ss.pending = newPending
		ss.parked = newParked

		if ss.isEmpty() {
			delete(m.signers, signer)
		}
	}
	m.updateGauges()
}

// Pull returns pending transactions in fair-rotation order — the head of
// each signer's pending queue in turn, round by round — until bytesBudget
// is exhausted (spec §4.7 Pull). It does not mutate the mempool: entries
// are only removed once Recheck observes their nonce as committed.
func (m *Mempool) Pull(bytesBudget uint64) []*checkedtx.CheckedTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	signers := make([][20]byte, 0, len(m.signers))
	for signer, ss := range m.signers {
		if len(ss.pending) > 0 {
			signers = append(signers, signer)
		}
	}
	if len(signers) == 0 {
		return nil
	}
	sort.Slice(signers, func(i, j int) bool { return bytes.Compare(signers[i][:], signers[j][:]) < 0 })

	start := m.rotationPos % len(signers)
	ordered := append(append([][20]byte{}, signers[start:]...), signers[:start]...)
	m.rotationPos++

	cursor := make(map[[20]byte]int, len(ordered))
	var result []*checkedtx.CheckedTransaction
	var used uint64

	for {
		progressed := false
		for _, signer := range ordered {
			ss := m.signers[signer]
			i := cursor[signer]
			if i >= len(ss.pending) {
				continue
			}
			e := ss.pending[i]
			if len(result) > 0 && used+e.Cost > bytesBudget {
				return result
			}
			result = append(result, e.Checked)
			used += e.Cost
			cursor[signer] = i + 1
			progressed = true
		}
		if !progressed {
			return result
		}
	}
}

// Status reports the current disposition of hash.
func (m *Mempool) Status(hash [32]byte) TxStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ss := range m.signers {
		for _, e := range ss.pending {
			if e.Checked.Hash == hash {
				return TxStatus{Kind: StatusPending}
			}
		}
		for _, e := range ss.parked {
			if e.Checked.Hash == hash {
				return TxStatus{Kind: StatusParked}
			}
		}
	}
	if reason, ok := m.removal.Reason(hash); ok {
		return TxStatus{Kind: StatusRemoved, Reason: reason}
	}
	if height, ok := m.executed.Height(hash); ok {
		return TxStatus{Kind: StatusExecuted, Height: height}
	}
	return TxStatus{Kind: StatusUnknown}
}

func (m *Mempool) updateGauges() {
	var pending, parked int
	for _, ss := range m.signers {
		pending += len(ss.pending)
		parked += len(ss.parked)
	}
	m.metrics.pending.Set(float64(pending))
	m.metrics.parked.Set(float64(parked))
}
