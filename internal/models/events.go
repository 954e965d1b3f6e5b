package models

import (
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventTypeOrderPlaced = "ORDER_PLACED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published after a cart has been converted into an order
type OrderPlacedEvent struct {
	BaseEvent
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      int64           `json:"user_id"`
	Subtotal    string          `json:"subtotal"`
	Total       string          `json:"total"`
	Items       []OrderItemData `json:"items"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID   *int64 `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

// NewOrderPlacedEvent builds the ORDER_PLACED payload from a persisted order
func NewOrderPlacedEvent(order *Order) *OrderPlacedEvent {
	items := make([]OrderItemData, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, OrderItemData{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.Price.StringFixed(2),
		})
	}

	return &OrderPlacedEvent{
		BaseEvent: BaseEvent{
			EventID:   uuid.NewString(),
			EventType: EventTypeOrderPlaced,
			Timestamp: time.Now().UTC(),
		},
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Subtotal:    order.Subtotal.StringFixed(2),
		Total:       order.Total.StringFixed(2),
		Items:       items,
	}
}
