package live

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/SilkePilon/PingPong/internal/pingpong"
)

// Hub fans persisted match updates out to websocket viewers. Each match has
// its own room; a viewer only receives updates for the match it watches.
// Delivery is best-effort: a slow client's update is dropped, the next
// broadcast carries the latest state anyway.
type Hub struct {
	register   chan *Client
	unregister chan *Client

	mu    sync.RWMutex
	rooms map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[client.room]; !ok {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			slog.Debug("live client joined", "room", client.room, "viewers", len(h.rooms[client.room]))
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.room]; ok {
				if _, joined := clients[client]; joined {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.rooms, client.room)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastMatch sends the latest persisted state of a match to its room.
func (h *Hub) BroadcastMatch(match *pingpong.Match) {
	payload, err := json.Marshal(match)
	if err != nil {
		slog.Error("failed to marshal match update", "match", match.ID, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[matchRoom(match.ID.String())] {
		select {
		case client.send <- payload:
		default:
			// Client's buffer is full; it catches up on the next update.
		}
	}
}

func matchRoom(matchID string) string {
	return "match_" + matchID
}
