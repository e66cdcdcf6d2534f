// Package sessions carries generation progress and results to clients over
// SSE or websocket transports.
package sessions

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/websocket"
)

var logger = log.New(os.Stdout, "[sessions] ", log.LstdFlags)

// Event is one transport frame: progress during a run, then a single result
// or error frame.
type Event struct {
	Type    string      `json:"type"` // progress | result | error
	Stage   string      `json:"stage,omitempty"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Notifier is what the server pushes events through, regardless of transport.
type Notifier interface {
	Send(event Event) error
	Close() error
}

// SSESession streams events as server-sent event frames.
type SSESession struct {
	w       http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
}

// NewSSESession prepares the response for streaming. Fails when the
// underlying writer cannot flush.
func NewSSESession(w http.ResponseWriter) (*SSESession, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return &SSESession{w: w, flusher: flusher}, nil
}

func (s *SSESession) Send(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	s.flusher.Flush()
	return nil
}

func (s *SSESession) Close() error { return nil }

// WSSession streams events over a websocket connection. Writes are
// serialized; gorilla connections allow one concurrent writer.
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func NewWSSession(conn *websocket.Conn) *WSSession {
	return &WSSession{conn: conn}
}

func (s *WSSession) Send(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteJSON(event); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

func (s *WSSession) Close() error {
	return s.conn.Close()
}

// ReadRequest blocks until the client sends one JSON request frame.
func (s *WSSession) ReadRequest(into interface{}) error {
	if err := s.conn.ReadJSON(into); err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}
	return nil
}

// Progress is a convenience for the common progress frame; send failures are
// logged, not propagated, since progress is best-effort.
func Progress(n Notifier, stage, message string) {
	if n == nil {
		return
	}
	if err := n.Send(Event{Type: "progress", Stage: stage, Message: message}); err != nil {
		logger.Printf("progress send failed: %v", err)
	}
}
