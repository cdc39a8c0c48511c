package ws

import (
	"encoding/json"
	"sync"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// topicEvent is an internal struct for routing events to subscribed topics
type topicEvent struct {
	Topic string
	Event Event
}

// Hub maintains the set of active clients and broadcasts messages to them.
// Clients subscribe to a single topic: "kitchen" for the queue display, or
// "order:<id>" for a customer's tracking page.
type Hub struct {
	// Registered clients by topic
	rooms map[string]map[*Client]bool

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *topicEvent

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *topicEvent, 256),
	}
}

// Run starts the hub's main loop
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.topic] == nil {
				h.rooms[client.topic] = make(map[*Client]bool)
			}
			h.rooms[client.topic][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.topic]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					// Clean up empty rooms
					if len(clients) == 0 {
						delete(h.rooms, client.topic)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			clients := h.rooms[event.Topic]

			// Marshal event to JSON once
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			// Send to all clients subscribed to this topic
			for client := range clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister
					close(client.send)
					delete(h.rooms[event.Topic], client)
					if len(h.rooms[event.Topic]) == 0 {
						delete(h.rooms, event.Topic)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends an event to all clients subscribed to a topic
// This is the public API for services to broadcast events
func (h *Hub) Broadcast(topic string, event Event) {
	h.broadcast <- &topicEvent{
		Topic: topic,
		Event: event,
	}
}
