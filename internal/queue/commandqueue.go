package queue

import (
	"encoding/json"
	"sync"
	"time"
)

// commandQueue is the single-channel FIFO described in spec §4.2. Producers
// never block: submit only appends. The lock guards the FIFO slice and the
// three bookkeeping maps; all waiting happens outside the lock via sync.Cond.
type commandQueue struct {
	mu   sync.Mutex
	cond *sync.Cond

	fifo       []*Command
	cmds       map[string]*Command // every id still known to this queue
	pendingIDs map[string]struct{} // queued or delivered-pending (not completed)
	results    map[string]Result   // completed, not yet consumed by Await
}

func newCommandQueue() *commandQueue {
	q := &commandQueue{
		cmds:       make(map[string]*Command),
		pendingIDs: make(map[string]struct{}),
		results:    make(map[string]Result),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// submit creates a Command, appends it to the FIFO, and records it pending.
// It never blocks.
func (q *commandQueue) submit(tool string, params json.RawMessage) *Command {
	cmd := newCommand(tool, params)

	q.mu.Lock()
	q.fifo = append(q.fifo, cmd)
	q.cmds[cmd.ID] = cmd
	q.pendingIDs[cmd.ID] = struct{}{}
	q.mu.Unlock()

	q.cond.Broadcast()
	return cmd
}

// dequeue removes and returns the FIFO head, skipping entries that were
// removed (purged, or timed out and cleaned up) before delivery. It waits up
// to timeout for a command to arrive; timeout <= 0 is non-blocking.
func (q *commandQueue) dequeue(timeout time.Duration) (*Command, bool) {
	deadline := time.Now().Add(timeout)

	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		for len(q.fifo) > 0 {
			cmd := q.fifo[0]
			q.fifo = q.fifo[1:]
			if _, ok := q.cmds[cmd.ID]; !ok {
				continue // removed/purged before a poller reached it
			}
			return cmd, true
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, false
		}

		timer := time.AfterFunc(remaining, func() {
			q.mu.Lock()
			q.cond.Broadcast()
			q.mu.Unlock()
		})
		q.cond.Wait()
		timer.Stop()
	}
}

// complete stores result for a still-pending command and raises its
// completion signal. It reports false for unknown or already-completed ids.
func (q *commandQueue) complete(id string, result Result) bool {
	q.mu.Lock()
	if _, ok := q.pendingIDs[id]; !ok {
		q.mu.Unlock()
		return false
	}
	delete(q.pendingIDs, id)
	q.results[id] = result
	cmd := q.cmds[id]
	q.mu.Unlock()

	if cmd != nil {
		cmd.signalDone()
	}
	return true
}

// await blocks until id's completion signal is raised or timeout elapses.
// On success it atomically removes the pending and result entries and
// returns the result. On timeout it removes the pending entry and reports
// ErrTimeout. A second await for the same id returns ErrUnknownCommand,
// since the first call already erased the bookkeeping.
func (q *commandQueue) await(id string, timeout time.Duration) (Result, error) {
	q.mu.Lock()
	cmd, ok := q.cmds[id]
	q.mu.Unlock()
	if !ok {
		return Result{}, ErrUnknownCommand
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-cmd.Done():
		return q.consumeResult(id)
	case <-timer.C:
		q.mu.Lock()
		// A Complete may have raced the timer; a real result always wins
		// over a timeout.
		if _, ok := q.results[id]; ok {
			q.mu.Unlock()
			return q.consumeResult(id)
		}
		delete(q.pendingIDs, id)
		delete(q.cmds, id)
		q.mu.Unlock()
		return Result{}, ErrTimeout
	}
}

func (q *commandQueue) consumeResult(id string) (Result, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	result, ok := q.results[id]
	delete(q.results, id)
	delete(q.pendingIDs, id)
	delete(q.cmds, id)
	if !ok {
		return Result{}, ErrUnknownCommand
	}
	return result, nil
}

// remove is an idempotent drop of a pending command, for explicit
// cancellation. It reports whether anything was removed.
func (q *commandQueue) remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, pending := q.pendingIDs[id]
	_, known := q.cmds[id]
	delete(q.pendingIDs, id)
	delete(q.cmds, id)
	delete(q.results, id)
	return pending || known
}

// purgeOlderThan removes pending commands created before now-age and
// returns their ids, so the caller (ChannelCommandQueue) can also scrub its
// global index.
func (q *commandQueue) purgeOlderThan(age time.Duration) []string {
	cutoff := time.Now().Add(-age)

	q.mu.Lock()
	var stale []string
	for id := range q.pendingIDs {
		cmd, ok := q.cmds[id]
		if ok && cmd.CreatedAt.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		delete(q.pendingIDs, id)
		delete(q.cmds, id)
		delete(q.results, id)
	}
	q.mu.Unlock()

	return stale
}

func (q *commandQueue) pendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pendingIDs)
}
