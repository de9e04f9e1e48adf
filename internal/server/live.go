package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/matthewbaird/adminkit/internal/store"
)

// liveMessage is one frame of the live feed.
type liveMessage struct {
	Type string          `json:"type"` // "subscribed", "change", "error", "pong"
	Data json.RawMessage `json:"data,omitempty"`
}

// handleLive upgrades to WebSocket and streams store changes for the keys
// named in the "stores" query parameter (comma-separated). The browser uses
// this to refresh screens that share a store without polling.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("live: websocket accept: %v", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	keys := strings.Split(r.URL.Query().Get("stores"), ",")

	changes := make(chan store.Change, 64)
	var subscribed []string
	var cancels []func()
	// Detaching on teardown closes each subscription channel, which also ends
	// its forwarding goroutine; otherwise every disconnected session would
	// stay on the stores' notify path until the registry closes.
	defer func() {
		for _, cancel := range cancels {
			cancel()
		}
	}()
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		st, err := s.stores.Lookup(key)
		if err != nil {
			s.sendLive(ctx, conn, "error", map[string]string{"key": key, "message": err.Error()})
			continue
		}
		sub, cancel := st.Subscribe()
		subscribed = append(subscribed, key)
		cancels = append(cancels, cancel)
		go forwardChanges(sub, changes)
	}
	s.sendLive(ctx, conn, "subscribed", map[string]any{"stores": subscribed})

	// Reader goroutine: only pings are expected from the client; a read
	// error ends the session.
	readErr := make(chan error, 1)
	go func() {
		for {
			var msg liveMessage
			if err := wsjson.Read(ctx, conn, &msg); err != nil {
				readErr <- err
				return
			}
			if msg.Type == "ping" {
				s.sendLive(ctx, conn, "pong", nil)
			}
		}
	}()

	for {
		select {
		case c := <-changes:
			s.sendLive(ctx, conn, "change", c)
		case err := <-readErr:
			if websocket.CloseStatus(err) != -1 {
				log.Printf("live: connection closed: %v", websocket.CloseStatus(err))
			}
			return
		case <-ctx.Done():
			return
		}
	}
}

// forwardChanges fans one subscription into the session's merged channel.
// It exits when the registry closes the subscription.
func forwardChanges(sub <-chan store.Change, out chan<- store.Change) {
	for c := range sub {
		select {
		case out <- c:
		default:
			// The session is not keeping up; newer changes matter more.
		}
	}
}

func (s *Server) sendLive(ctx context.Context, conn *websocket.Conn, typ string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Printf("live: encode error: %v", err)
		return
	}
	if err := wsjson.Write(ctx, conn, liveMessage{Type: typ, Data: raw}); err != nil {
		log.Printf("live: write error: %v", err)
	}
}
