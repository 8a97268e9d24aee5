package grpcsrv

import (
	"sync"

	"github.com/google/uuid"
)

// Broadcaster fans out each proposed block to every subscribed
// StreamOptimisticBlocks caller. A slow subscriber never blocks
// PrepareProposal: its channel is buffered, and a full channel just drops
// the new block for that one subscriber rather than stalling the proposal
// pipeline (spec §6 names this an optimistic, best-effort stream, not a
// guaranteed-delivery one).
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[uuid.UUID]chan OptimisticBlock
}

// NewBroadcaster constructs an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[uuid.UUID]chan OptimisticBlock)}
}

// Subscribe registers a new subscriber and returns its feed plus a cancel
// function the caller must defer to unregister it.
func (b *Broadcaster) Subscribe() (id uuid.UUID, feed <-chan OptimisticBlock, cancel func()) {
	id = uuid.New()
	ch := make(chan OptimisticBlock, 8)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	return id, ch, func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
		close(ch)
	}
}

// Publish delivers block to every current subscriber.
func (b *Broadcaster) Publish(block OptimisticBlock) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- block:
		default:
		}
	}
}
