package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/onec-mcp/bridge/internal/channel"
)

const maxMessageBytes = 1 << 20 // 1 MiB, generous for a single JSON-RPC frame

// InboundMessage is one message (or decode failure) delivered to a legacy
// SSE session's read-stream-writer from the /mcp/message POST endpoint.
type InboundMessage struct {
	Raw json.RawMessage
	Err error
}

// sseSession tracks one legacy SSE connection's state machine
// (Opening → Open → Closed, spec §4.5). outbox is the write-stream-reader
// (server→client); inbox is the read-stream-writer (client→server).
type sseSession struct {
	id      string
	channel channel.ID

	outbox chan []byte
	inbox  chan InboundMessage

	closeOnce sync.Once
	done      chan struct{}
}

func newSSESession(id string, ch channel.ID) *sseSession {
	return &sseSession{
		id:      id,
		channel: ch,
		outbox:  make(chan []byte, 64),
		inbox:   make(chan InboundMessage, 64),
		done:    make(chan struct{}),
	}
}

func (s *sseSession) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Send queues a server→client message. It never blocks the caller
// indefinitely: a session whose client has gone away (closed) drops the
// message instead of leaking a goroutine.
func (s *sseSession) Send(payload []byte) {
	select {
	case s.outbox <- payload:
	case <-s.done:
	}
}

func (s *sseSession) deliver(msg InboundMessage) {
	select {
	case s.inbox <- msg:
	case <-s.done:
	}
}

// SSETransport is the Legacy SSE Transport (spec §4.5): it mints its own
// session ids, registers them with the Channel Registry, and advertises a
// per-session POST endpoint via an "endpoint" SSE event. Transport-level
// errors on one session never propagate to another — each session's streams
// are isolated behind its own channels.
type SSETransport struct {
	registry    *channel.Registry
	messageBase string

	mu       sync.Mutex
	sessions map[string]*sseSession
}

// NewSSETransport returns a transport that advertises messageBase (e.g.
// "/mcp/message") as the back-channel POST path.
func NewSSETransport(registry *channel.Registry, messageBase string) *SSETransport {
	return &SSETransport{
		registry:    registry,
		messageBase: messageBase,
		sessions:    make(map[string]*sseSession),
	}
}

// ServeHTTP handles GET /mcp with Accept: text/event-stream for clients
// routed here by the Unified MCP Dispatcher.
func (t *SSETransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch := channel.Validate(r.URL.Query().Get("channel"))
	// 32-char hex, no dashes, matching uuid4().hex's endpoint-event grammar
	// (spec §4.5's session_id=<hex>).
	sessionID := strings.ReplaceAll(uuid.NewString(), "-", "")
	t.registry.Bind(sessionID, string(ch))

	sess := newSSESession(sessionID, ch)
	t.mu.Lock()
	t.sessions[sessionID] = sess
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.sessions, sessionID)
		t.mu.Unlock()
		t.registry.Unbind(sessionID)
		sess.close()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	endpoint := fmt.Sprintf("%s?session_id=%s", t.messageBase, sessionID)
	if ch != channel.Default {
		endpoint += "&channel=" + string(ch)
	}
	fmt.Fprintf(w, "event: endpoint\ndata: %s\n\n", endpoint)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.done:
			return
		case payload := <-sess.outbox:
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// HandleMessage handles POST /mcp/message?session_id=...&channel=... (the
// channel query param is informational only — the session id is already
// bound to its channel; spec §4.5 step 4).
func (t *SSETransport) HandleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "missing session_id", http.StatusBadRequest)
		return
	}

	t.mu.Lock()
	sess, ok := t.sessions[sessionID]
	t.mu.Unlock()
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes+1))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(body) > maxMessageBytes {
		http.Error(w, "message too large", http.StatusBadRequest)
		return
	}

	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		// Dual surfacing (spec §9 open question): reply 400 to the POST
		// *and* forward the decode failure to the session's read stream so
		// the in-band protocol handler also observes it.
		sess.deliver(InboundMessage{Err: err})
		http.Error(w, "malformed json body", http.StatusBadRequest)
		return
	}

	sess.deliver(InboundMessage{Raw: raw})
	w.WriteHeader(http.StatusAccepted)
}

// Inbox exposes a session's read-stream-writer for the in-process protocol
// handler (or, in tests, direct assertions) to consume. The second return
// value is false if the session is unknown.
func (t *SSETransport) Inbox(sessionID string) (<-chan InboundMessage, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess, ok := t.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return sess.inbox, true
}

// Broadcast pushes payload to every open session on the given channel,
// regardless of session id.
func (t *SSETransport) Broadcast(ch channel.ID, payload []byte) {
	t.mu.Lock()
	targets := make([]*sseSession, 0, len(t.sessions))
	for _, sess := range t.sessions {
		if sess.channel == ch {
			targets = append(targets, sess)
		}
	}
	t.mu.Unlock()

	for _, sess := range targets {
		sess.Send(payload)
	}
}

// SessionCount returns the number of currently open legacy SSE sessions.
func (t *SSETransport) SessionCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}
