package service

import (
	"context"
	"log/slog"

	"github.com/smart-canteen/api/internal/database"
)

// Order event types.
const (
	EventOrderCreated       = "order.created"
	EventOrderUpdated       = "order.updated"
	EventOrderCancelled     = "order.cancelled"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent is emitted after an order write commits.
type OrderEvent struct {
	Type  string
	Order database.Order
}

// Publisher delivers order events. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

// Recorder observes engine outcomes. Satisfied by *metrics.Metrics.
type Recorder interface {
	ObserveOrderCreated()
	ObserveTransition(from, to string)
	ObserveConflict()
}

// FanOut publishes every event to each publisher in turn.
type FanOut []Publisher

func (f FanOut) Publish(ctx context.Context, event OrderEvent) error {
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			slog.WarnContext(ctx, "publish order event",
				"type", event.Type, "order_id", event.Order.ID, "err", err)
		}
	}
	return nil
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, OrderEvent) error { return nil }

type noopRecorder struct{}

func (noopRecorder) ObserveOrderCreated()          {}
func (noopRecorder) ObserveTransition(_, _ string) {}
func (noopRecorder) ObserveConflict()              {}
