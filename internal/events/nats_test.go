package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smart-canteen/api/internal/database"
	"github.com/smart-canteen/api/internal/enum"
	"github.com/smart-canteen/api/internal/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSubject(t *testing.T) {
	if got := Subject(service.EventOrderStatusChanged); got != "canteen.orders.order.status_changed" {
		t.Errorf("Subject = %q", got)
	}
}

func TestEncode(t *testing.T) {
	total, _ := primitive.ParseDecimal128("1000")
	order := database.Order{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		Total:   total,
		Status:  enum.OrderStatusPlaced,
		Version: 1,
	}
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	data, err := Encode(service.OrderEvent{Type: service.EventOrderCreated, Order: order}, at)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var got struct {
		Type  string `json:"type"`
		Order struct {
			ID     string `json:"_id"`
			Total  string `json:"total"`
			Status string `json:"status"`
		} `json:"order"`
		OccurredAt time.Time `json:"occurredAt"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "order.created" {
		t.Errorf("type = %q", got.Type)
	}
	if got.Order.ID != order.ID.String() {
		t.Errorf("order id = %q, want %s", got.Order.ID, order.ID)
	}
	if got.Order.Total != "1000.00" {
		t.Errorf("total = %q, want 1000.00", got.Order.Total)
	}
	if got.Order.Status != "PLACED" {
		t.Errorf("status = %q", got.Order.Status)
	}
	if !got.OccurredAt.Equal(at) {
		t.Errorf("occurredAt = %v", got.OccurredAt)
	}
}
