// Package queue implements the Command Queue and Channel Command Queue
// described in spec §4.2–§4.3: a per-channel FIFO of pending commands with a
// one-shot result slot, multiplexed under a global command-id→channel index
// for O(1) cancellation and result routing.
package queue

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownCommand is returned by Await when the command id has never been
// submitted, was already consumed by a prior Await, or was abandoned.
var ErrUnknownCommand = errors.New("queue: unknown command id")

// ErrTimeout is returned by Await when no Complete arrived within the
// caller's deadline.
var ErrTimeout = errors.New("queue: await timed out")

// Result is the terminal outcome of a Command, submitted by a business
// client through /1c/result. Meta carries only allow-listed passthrough
// metadata fields (spec §9 open question) — callers populate it themselves,
// this package does not interpret it.
type Result struct {
	Success bool
	Data    any
	Error   string
	Meta    map[string]any
}

// Command is one tool invocation: a unique id, parameters, a creation
// timestamp, and a level-set-once completion signal. Its single result is
// held by the owning commandQueue and stored before the signal is raised.
// Once Done's channel is closed it stays closed — late awaiters observe
// completion without racing (spec §9).
type Command struct {
	ID        string
	Tool      string
	Params    json.RawMessage
	CreatedAt time.Time

	once sync.Once
	done chan struct{}
}

func newCommand(tool string, params json.RawMessage) *Command {
	return &Command{
		ID:        uuid.NewString(),
		Tool:      tool,
		Params:    params,
		CreatedAt: time.Now(),
		done:      make(chan struct{}),
	}
}

// Done returns a channel that is closed exactly once, when the command
// reaches a terminal completion.
func (c *Command) Done() <-chan struct{} {
	return c.done
}

func (c *Command) signalDone() {
	c.once.Do(func() { close(c.done) })
}
