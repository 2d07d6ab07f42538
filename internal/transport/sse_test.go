package transport

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/onec-mcp/bridge/internal/channel"
)

func TestSSETransport_EndpointEventAndMessageFlow(t *testing.T) {
	registry := channel.NewRegistry()
	tr := NewSSETransport(registry, "/mcp/message")

	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", tr.ServeHTTP)
	mux.HandleFunc("/mcp/message", tr.HandleMessage)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/mcp?channel=ops", nil)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /mcp failed: %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	var endpointData string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("reading SSE stream failed before endpoint event: %v", err)
		}
		if strings.HasPrefix(line, "data: ") && endpointData == "" {
			endpointData = strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			break
		}
	}

	if !strings.Contains(endpointData, "session_id=") {
		t.Fatalf("endpoint event data %q missing session_id", endpointData)
	}
	if !strings.Contains(endpointData, "channel=ops") {
		t.Fatalf("endpoint event data %q missing channel=ops", endpointData)
	}

	idx := strings.Index(endpointData, "session_id=")
	rest := endpointData[idx+len("session_id="):]
	sessionID := rest
	if amp := strings.Index(rest, "&"); amp != -1 {
		sessionID = rest[:amp]
	}

	inbox, ok := tr.Inbox(sessionID)
	if !ok {
		t.Fatalf("session %s not registered in transport", sessionID)
	}
	if got := registry.ChannelOf(sessionID); got != "ops" {
		t.Fatalf("registry channel for session = %q, want ops", got)
	}

	postResp, err := http.Post(srv.URL+endpointData, "application/json", strings.NewReader(`{"jsonrpc":"2.0","method":"ping","id":1}`))
	if err != nil {
		t.Fatalf("POST message failed: %v", err)
	}
	defer postResp.Body.Close()
	if postResp.StatusCode != http.StatusAccepted {
		t.Fatalf("POST status = %d, want 202", postResp.StatusCode)
	}

	select {
	case msg := <-inbox:
		if msg.Err != nil {
			t.Fatalf("delivered message has unexpected error: %v", msg.Err)
		}
		if !strings.Contains(string(msg.Raw), "\"ping\"") {
			t.Fatalf("delivered message = %s, want it to contain ping", msg.Raw)
		}
	case <-time.After(time.Second):
		t.Fatal("message never observed on session read stream")
	}

	cancel()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if !registry.IsBound(sessionID) && tr.SessionCount() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session %s was not unbound/closed after stream termination", sessionID)
}

func TestSSETransport_MissingSessionID(t *testing.T) {
	registry := channel.NewRegistry()
	tr := NewSSETransport(registry, "/mcp/message")

	req := httptest.NewRequest(http.MethodPost, "/mcp/message", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	tr.HandleMessage(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSSETransport_UnknownSessionID(t *testing.T) {
	registry := channel.NewRegistry()
	tr := NewSSETransport(registry, "/mcp/message")

	req := httptest.NewRequest(http.MethodPost, "/mcp/message?session_id=ghost", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	tr.HandleMessage(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSSETransport_MalformedBodyDualSurfacing(t *testing.T) {
	registry := channel.NewRegistry()
	tr := NewSSETransport(registry, "/mcp/message")

	sess := newSSESession("sess-x", "ops")
	tr.mu.Lock()
	tr.sessions["sess-x"] = sess
	tr.mu.Unlock()

	req := httptest.NewRequest(http.MethodPost, "/mcp/message?session_id=sess-x", strings.NewReader(`not json`))
	rec := httptest.NewRecorder()
	tr.HandleMessage(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	select {
	case msg := <-sess.inbox:
		if msg.Err == nil {
			t.Fatalf("expected decode error forwarded to read stream")
		}
	default:
		t.Fatalf("decode error was not forwarded to the session's read stream")
	}
}
