package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"shop-api/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestPublishOrderPlaced(t *testing.T) {
	w := &fakeWriter{}
	pub := NewEventPublisher(&Producer{writer: w, logger: zap.NewNop()})

	productID := int64(7)
	order := &models.Order{
		ID:          3,
		OrderNumber: "ORD-20240101-ABCDEF12",
		UserID:      42,
		Subtotal:    decimal.RequireFromString("25"),
		Total:       decimal.RequireFromString("30"),
		Items: []models.OrderItem{
			{ProductID: &productID, ProductName: "Mug", Quantity: 2, Price: decimal.RequireFromString("12.5")},
		},
	}

	require.NoError(t, pub.PublishOrderPlaced(context.Background(), order))
	require.Len(t, w.messages, 1)
	assert.Equal(t, "user-42", string(w.messages[0].Key))

	var event models.OrderPlacedEvent
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &event))
	assert.Equal(t, models.EventTypeOrderPlaced, event.EventType)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "ORD-20240101-ABCDEF12", event.OrderNumber)
	assert.Equal(t, "25.00", event.Subtotal)
	assert.Equal(t, "30.00", event.Total)
	require.Len(t, event.Items, 1)
	assert.Equal(t, "12.50", event.Items[0].UnitPrice)
}

func TestPublishOrderPlacedWriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	pub := NewEventPublisher(&Producer{writer: w, logger: zap.NewNop()})

	err := pub.PublishOrderPlaced(context.Background(), &models.Order{ID: 1})
	assert.ErrorContains(t, err, "broker down")
}
