package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/smart-canteen/api/internal/dto"
	"github.com/smart-canteen/api/internal/service"
)

// OrderFeed pushes order events to the admins room and to the owner's room.
type OrderFeed struct {
	hub *Hub
}

func NewOrderFeed(hub *Hub) *OrderFeed {
	return &OrderFeed{hub: hub}
}

// Publish implements service.Publisher.
func (f *OrderFeed) Publish(ctx context.Context, event service.OrderEvent) error {
	payload, err := json.Marshal(dto.FromOrder(event.Order))
	if err != nil {
		return fmt.Errorf("marshal order payload: %w", err)
	}
	e := Event{Type: event.Type, Payload: payload}
	f.hub.Broadcast(AdminRoom, e)
	f.hub.Broadcast(event.Order.UserID, e)
	return nil
}
