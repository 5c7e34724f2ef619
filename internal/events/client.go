package events

import (
	"bufio"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// Time between keepalive comments
	pingPeriod = 30 * time.Second

	// Buffer size for outgoing messages
	sendBufferSize = 64
)

// Client is a connected event stream subscriber
type Client struct {
	remoteAddr  string
	connectedAt time.Time
	send        chan []byte
}

// NewClient creates a new Client
func NewClient(remoteAddr string) *Client {
	return &Client{
		remoteAddr:  remoteAddr,
		connectedAt: time.Now(),
		send:        make(chan []byte, sendBufferSize),
	}
}

// ServeHTTP streams ladder events to the caller until it disconnects or the hub closes
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := NewClient(r.RemoteAddr)
	if !h.Register(client) {
		http.Error(w, "Event stream closed", http.StatusServiceUnavailable)
		return
	}
	defer h.Unregister(client)

	_, _ = w.Write(formatMessage("connected", `{"status":"connected"}`))
	flusher.Flush()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}
			if _, err := w.Write(message); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// Message is one decoded server-sent event
type Message struct {
	Event string
	Data  string
}

// Decode reads server-sent events from r and calls fn for each one.
// Comments are skipped. It returns nil at EOF or the first error from fn.
func Decode(r io.Reader, fn func(Message) error) error {
	scanner := bufio.NewScanner(r)
	var msg Message
	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if msg.Event != "" || len(data) > 0 {
				msg.Data = strings.Join(data, "\n")
				if err := fn(msg); err != nil {
					return err
				}
			}
			msg, data = Message{}, nil
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			msg.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	return scanner.Err()
}
