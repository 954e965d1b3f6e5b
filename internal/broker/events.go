package broker

import (
	"context"
	"fmt"

	"shop-api/internal/models"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderPlaced publishes ORDER_PLACED keyed by user, so one user's events stay ordered
func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, order *models.Order) error {
	key := fmt.Sprintf("user-%d", order.UserID)
	return ep.producer.PublishEvent(ctx, key, models.NewOrderPlacedEvent(order))
}
