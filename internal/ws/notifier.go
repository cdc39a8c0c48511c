package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/warungmie/api/internal/database"
)

// HubNotifier adapts the hub to the order service's notifier port. Every
// lifecycle change goes to the kitchen room and to the order's own room.
type HubNotifier struct {
	hub *Hub
}

// NewHubNotifier creates a HubNotifier.
func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

type orderEventPayload struct {
	OrderID   uuid.UUID `json:"order_id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderUpdated broadcasts the order's new status. Best effort; marshal
// failures are logged and dropped.
func (n *HubNotifier) OrderUpdated(orderID uuid.UUID, status database.OrderStatus) {
	payload, err := json.Marshal(orderEventPayload{
		OrderID:   orderID,
		Status:    string(status),
		UpdatedAt: time.Now(),
	})
	if err != nil {
		log.Printf("ERROR: marshal order event: %v", err)
		return
	}

	event := Event{Type: "order_updated", Payload: payload}
	n.hub.Broadcast(TopicKitchen, event)
	n.hub.Broadcast(OrderTopic(orderID), event)
}
