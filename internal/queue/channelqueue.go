package queue

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/onec-mcp/bridge/internal/channel"
)

// ChannelCommandQueue multiplexes many per-channel FIFOs under one
// namespace and maintains the global command-id→channel index that makes
// cancellation O(1) (spec §4.3). The lock guards only the two maps
// (channel→queue, id→channel); all waiting happens inside the per-channel
// commandQueue, outside this lock.
type ChannelCommandQueue struct {
	mu     sync.Mutex
	queues map[channel.ID]*commandQueue
	index  map[string]channel.ID
}

// NewChannelCommandQueue returns a queue with the default channel already
// present (spec §3: "default exists from boot").
func NewChannelCommandQueue() *ChannelCommandQueue {
	q := &ChannelCommandQueue{
		queues: map[channel.ID]*commandQueue{
			channel.Default: newCommandQueue(),
		},
		index: make(map[string]channel.ID),
	}
	return q
}

func (q *ChannelCommandQueue) queueFor(ch channel.ID) *commandQueue {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.queues[ch]
}

func (q *ChannelCommandQueue) getOrCreate(ch channel.ID) *commandQueue {
	q.mu.Lock()
	defer q.mu.Unlock()
	cq, ok := q.queues[ch]
	if !ok {
		cq = newCommandQueue()
		q.queues[ch] = cq
	}
	return cq
}

// Submit lazily creates ch's queue, enqueues the command, and records the
// id→channel mapping after submission, so no reader of the index can ever
// observe an id whose command has not yet been enqueued.
func (q *ChannelCommandQueue) Submit(ch channel.ID, tool string, params json.RawMessage) string {
	cq := q.getOrCreate(ch)
	cmd := cq.submit(tool, params)

	q.mu.Lock()
	q.index[cmd.ID] = ch
	q.mu.Unlock()

	return cmd.ID
}

// Poll does not materialize a queue for an unknown channel — it returns
// (nil, false) immediately. Otherwise it dequeues until it finds a command
// still present in the index, discarding abandoned ones, tracking a single
// monotonic deadline across skip iterations.
func (q *ChannelCommandQueue) Poll(ch channel.ID, timeout time.Duration) (*Command, bool) {
	cq := q.queueFor(ch)
	if cq == nil {
		return nil, false
	}

	deadline := time.Now().Add(timeout)
	for {
		// Once the deadline has passed dequeue is non-blocking, so a queued
		// command is still delivered and the loop ends when the FIFO is empty.
		cmd, ok := cq.dequeue(time.Until(deadline))
		if !ok {
			return nil, false
		}

		q.mu.Lock()
		_, stillIndexed := q.index[cmd.ID]
		q.mu.Unlock()
		if stillIndexed {
			return cmd, true
		}
		// Abandoned: the submitter already timed out and erased the index
		// entry. Skip it and keep polling against the same deadline.
	}
}

// ErrChannelFull is returned by SubmitBounded when ch already holds
// capacity pending commands.
var ErrChannelFull = errors.New("queue: channel at capacity")

// SubmitBounded is Submit with an operational hardening option layered on
// top (spec §9 "add a bounded variant as an operational hardening option"):
// it rejects the command instead of growing ch's FIFO past capacity.
// capacity <= 0 means unbounded, identical to plain Submit. Submit itself
// stays unbounded regardless, since that is the spec's default behavior.
func (q *ChannelCommandQueue) SubmitBounded(ch channel.ID, tool string, params json.RawMessage, capacity int) (string, error) {
	if capacity > 0 {
		if cq := q.queueFor(ch); cq != nil && cq.pendingCount() >= capacity {
			return "", ErrChannelFull
		}
	}
	return q.Submit(ch, tool, params), nil
}

// Complete looks up id's channel in O(1) through the index and delegates to
// that channel's queue. It does not remove the index entry — Await does.
func (q *ChannelCommandQueue) Complete(id string, result Result) bool {
	q.mu.Lock()
	ch, ok := q.index[id]
	q.mu.Unlock()
	if !ok {
		return false
	}

	cq := q.queueFor(ch)
	if cq == nil {
		return false
	}
	return cq.complete(id, result)
}

// Await looks up id's channel in O(1), delegates the wait, and removes the
// index entry on both success and timeout. On timeout the underlying
// queue's pending entry is also removed (via commandQueue.await), so a
// later Poll that dequeues this id sees it as abandoned and skips it.
func (q *ChannelCommandQueue) Await(id string, timeout time.Duration) (Result, error) {
	q.mu.Lock()
	ch, ok := q.index[id]
	q.mu.Unlock()
	if !ok {
		return Result{}, ErrUnknownCommand
	}

	cq := q.queueFor(ch)
	if cq == nil {
		return Result{}, ErrUnknownCommand
	}

	result, err := cq.await(id, timeout)

	q.mu.Lock()
	delete(q.index, id)
	q.mu.Unlock()

	return result, err
}

// Stats returns a snapshot of pending counts per channel, skipping channels
// with zero pending commands. An unknown channel that was only ever polled
// (never submitted to) never appears here (spec P8).
func (q *ChannelCommandQueue) Stats() map[channel.ID]int {
	q.mu.Lock()
	queues := make(map[channel.ID]*commandQueue, len(q.queues))
	for ch, cq := range q.queues {
		queues[ch] = cq
	}
	q.mu.Unlock()

	stats := make(map[channel.ID]int)
	for ch, cq := range queues {
		if n := cq.pendingCount(); n > 0 {
			stats[ch] = n
		}
	}
	return stats
}

// PurgeOlderThan sweeps every channel's queue for pending commands older
// than age, removing them and their index entries. It is best-effort and
// returns the total number of commands purged.
func (q *ChannelCommandQueue) PurgeOlderThan(age time.Duration) int {
	q.mu.Lock()
	queues := make(map[channel.ID]*commandQueue, len(q.queues))
	for ch, cq := range q.queues {
		queues[ch] = cq
	}
	q.mu.Unlock()

	total := 0
	for _, cq := range queues {
		stale := cq.purgeOlderThan(age)
		if len(stale) == 0 {
			continue
		}
		q.mu.Lock()
		for _, id := range stale {
			delete(q.index, id)
		}
		q.mu.Unlock()
		total += len(stale)
	}
	return total
}
