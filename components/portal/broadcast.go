package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// BroadcastHook is the ChangeHook behind live list refreshes. Each
// subscriber may narrow the stream to some resources. A subscriber that
// falls behind misses events; writers never block.
type BroadcastHook struct {
	mu     sync.RWMutex
	seq    int
	topics map[int]subscription
}

type subscription struct {
	events    chan ChangeEvent
	resources []string
}

func (s subscription) wants(resource string) bool {
	return len(s.resources) == 0 || slices.Contains(s.resources, resource)
}

// NewBroadcastHook creates a hook without subscribers.
func NewBroadcastHook() *BroadcastHook {
	return &BroadcastHook{topics: make(map[int]subscription)}
}

// RecordChanged satisfies ChangeHook.
func (h *BroadcastHook) RecordChanged(_ context.Context, event ChangeEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.topics {
		if !sub.wants(event.Resource) {
			continue
		}
		select {
		case sub.events <- event:
		default:
		}
	}
	return nil
}

// Subscribe streams changes of the named resources, or of every resource
// when none are named. cancel closes the channel and may be called twice.
func (h *BroadcastHook) Subscribe(resources ...string) (<-chan ChangeEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.seq
	h.seq++
	sub := subscription{events: make(chan ChangeEvent, 16), resources: slices.Clone(resources)}
	h.topics[id] = sub
	var once sync.Once
	return sub.events, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.topics, id)
			close(sub.events)
		})
	}
}

// Subscribers returns the number of live subscriptions.
func (h *BroadcastHook) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics)
}

// ServeHTTP streams changes over a websocket when the client asks for an
// upgrade and as Server-Sent Events otherwise. A comma separated "resource"
// query narrows the stream.
func (h *BroadcastHook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		h.ServeWebSocket(w, r)
		return
	}
	h.ServeSSE(w, r)
}

// ResourceFilter parses the "resource" query value.
func ResourceFilter(raw string) []string {
	var out []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the request and writes each change as JSON.
func (h *BroadcastHook) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, cancel := h.Subscribe(ResourceFilter(r.URL.Query().Get("resource"))...)
	defer cancel()
	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}

// ServeSSE writes each change as an event named after its resource.
func (h *BroadcastHook) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events, cancel := h.Subscribe(ResourceFilter(r.URL.Query().Get("resource"))...)
	defer cancel()
	flusher.Flush()
	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Resource, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
