package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/orderin/api/internal/order"
	"go.uber.org/zap"
)

// RoomStaff receives every order event. Customers tracking one order join
// OrderRoom(id).
const RoomStaff = "staff"

func OrderRoom(orderID string) string { return "order:" + orderID }

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// roomEvent is an internal struct for routing events to specific rooms
type roomEvent struct {
	Room  string
	Event Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by room
	rooms map[string]map[*Client]bool

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *roomEvent

	// Mutex for thread-safe room access
	mu sync.RWMutex

	// Closed when Run returns
	done chan struct{}

	log *zap.Logger
}

// NewHub creates a new Hub instance
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomEvent, 256),
		done:       make(chan struct{}),
		log:        log.Named("ws"),
	}
}

// Run starts the hub's main loop and returns when ctx is cancelled, closing
// every client.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return nil

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.room] == nil {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			// Marshal event to JSON once
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.log.Error("marshal ws event", zap.String("type", event.Event.Type), zap.Error(err))
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.Room] {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister
					h.log.Warn("dropping slow ws client", zap.String("room", event.Room))
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with h.mu held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.room]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.room)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.rooms {
		for client := range clients {
			h.remove(client)
		}
	}
}

// join registers client unless the hub has stopped.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// leave unregisters client; a stopped hub has already closed it.
func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast sends an event to all clients in room. It never blocks; events
// are dropped when the hub is saturated.
func (h *Hub) Broadcast(room string, event Event) {
	select {
	case h.broadcast <- &roomEvent{Room: room, Event: event}:
	default:
		h.log.Warn("ws broadcast queue full", zap.String("room", room), zap.String("type", event.Type))
	}
}

// Clients returns the number of connected clients in room.
func (h *Hub) Clients(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// OrderEvents adapts the hub to order.Store.Subscribe. render shapes the
// order payload (the HTTP response form).
func (h *Hub) OrderEvents(render func(order.Order) any) func(order.Event) {
	return func(e order.Event) {
		ev := Event{Type: string(e.Type)}
		if e.Type == order.EventReloaded {
			h.Broadcast(RoomStaff, ev)
			return
		}

		payload, err := json.Marshal(render(e.Order))
		if err != nil {
			h.log.Error("marshal order payload", zap.String("order_id", e.Order.ID), zap.Error(err))
			return
		}
		ev.Payload = payload
		h.Broadcast(RoomStaff, ev)
		h.Broadcast(OrderRoom(e.Order.ID), ev)
	}
}
