package mempool

import "sync"

// removalCache remembers recently rejected or committed transaction hashes
// so that CometBFT's gossip-driven re-delivery of a transaction the mempool
// already disposed of is suppressed rather than re-admitted (spec §4.7:
// "size >= CometBFT mempool capacity"). Bounded by first-insertion order:
// once over capacity the earliest-recorded hash is dropped, and neither a
// lookup nor a repeated Add moves a hash to the back of that order.
type removalCache struct {
	mu          sync.Mutex
	capacity    int
	reasons     map[[32]byte]string
	accessOrder [][32]byte
}

func newRemovalCache(capacity int) *removalCache {
	return &removalCache{
		capacity: capacity,
		reasons:  make(map[[32]byte]string, capacity),
	}
}

// Add records hash as removed for reason, evicting the oldest entry if the
// cache is now over capacity.
func (c *removalCache) Add(hash [32]byte, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.reasons[hash]; !exists {
		c.accessOrder = append(c.accessOrder, hash)
	}
	c.reasons[hash] = reason

	for len(c.accessOrder) > c.capacity {
		oldest := c.accessOrder[0]
		c.accessOrder = c.accessOrder[1:]
		delete(c.reasons, oldest)
	}
}

// Reason reports the removal reason for hash, and whether it was found.
func (c *removalCache) Reason(hash [32]byte) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	reason, ok := c.reasons[hash]
	return reason, ok
}

// executedCache remembers the height a transaction hash committed at, for
// the Executed{height, result} status spec §6's mempool service reports.
// Bounded the same way removalCache is, for the same reason.
type executedCache struct {
	mu          sync.Mutex
	capacity    int
	heights     map[[32]byte]int64
	accessOrder [][32]byte
}

func newExecutedCache(capacity int) *executedCache {
	return &executedCache{capacity: capacity, heights: make(map[[32]byte]int64, capacity)}
}

func (c *executedCache) Add(hash [32]byte, height int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.heights[hash]; !exists {
		c.accessOrder = append(c.accessOrder, hash)
	}
	c.heights[hash] = height

	for len(c.accessOrder) > c.capacity {
		oldest := c.accessOrder[0]
		c.accessOrder = c.accessOrder[1:]
		delete(c.heights, oldest)
	}
}

func (c *executedCache) Height(hash [32]byte) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	height, ok := c.heights[hash]
	return height, ok
}
