// Package events publishes order lifecycle events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/smart-canteen/api/internal/dto"
	"github.com/smart-canteen/api/internal/service"
)

// SubjectPrefix is prepended to the event type, e.g. canteen.orders.order.created.
const SubjectPrefix = "canteen.orders."

// Message is the JSON body published for every order event.
type Message struct {
	Type       string    `json:"type"`
	Order      dto.Order `json:"order"`
	OccurredAt time.Time `json:"occurredAt"`
}

type NATSPublisher struct {
	conn *nats.Conn
	now  func() time.Time
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("canteen-api"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn, now: time.Now}, nil
}

// Publish implements service.Publisher.
func (p *NATSPublisher) Publish(ctx context.Context, event service.OrderEvent) error {
	data, err := Encode(event, p.now().UTC())
	if err != nil {
		return err
	}
	return p.conn.Publish(Subject(event.Type), data)
}

func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}

func Subject(eventType string) string {
	return SubjectPrefix + eventType
}

// Encode renders event the same way the HTTP API renders orders.
func Encode(event service.OrderEvent, at time.Time) ([]byte, error) {
	data, err := json.Marshal(Message{
		Type:       event.Type,
		Order:      dto.FromOrder(event.Order),
		OccurredAt: at,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	return data, nil
}
