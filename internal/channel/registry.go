// Package channel implements the session→channel binding registry (spec
// §4.1). Every mutation is atomic under a single mutex; readers see a
// consistent snapshot. There is no cross-registry ordering guarantee beyond
// per-session.
package channel

import "sync"

// Registry maps MCP session identifiers to the channel they are bound to.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]ID
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[string]ID)}
}

// Bind stores sessionID's channel. channelID is normalized through Validate
// before storage, so callers may pass raw user input here. An existing
// binding is kept: a session's channel cannot change until Unbind.
func (r *Registry) Bind(sessionID, channelID string) {
	ch := Validate(channelID)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bindings[sessionID]; ok {
		return
	}
	r.bindings[sessionID] = ch
}

// ChannelOf returns sessionID's bound channel, or Default if the session is
// unknown (spec P2: once bound, a session's channel never changes until
// Unbind).
func (r *Registry) ChannelOf(sessionID string) ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if ch, ok := r.bindings[sessionID]; ok {
		return ch
	}
	return Default
}

// IsBound reports whether sessionID currently has a binding.
func (r *Registry) IsBound(sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bindings[sessionID]
	return ok
}

// Unbind forgets sessionID's binding. It is idempotent.
func (r *Registry) Unbind(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bindings, sessionID)
}

// ActiveChannels returns a snapshot of how many sessions are currently bound
// to each channel.
func (r *Registry) ActiveChannels() map[ID]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[ID]int, len(r.bindings))
	for _, ch := range r.bindings {
		counts[ch]++
	}
	return counts
}
