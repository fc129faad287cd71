package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventOrderCreated       EventType = "order.created"
	EventOrderStatusChanged EventType = "order.status_changed"
	EventBatchReceived      EventType = "batch.received"
	EventBatchAdjusted      EventType = "batch.adjusted"
	EventAlertCreated       EventType = "alert.created"
)

// Event is the envelope published to the message bus.
type Event struct {
	ID          string          `json:"id"`
	Type        EventType       `json:"type"`
	AggregateID string          `json:"aggregateId"`
	Data        json.RawMessage `json:"data"`
	Timestamp   time.Time       `json:"timestamp"`
}

func NewEvent(aggregateID string, eventType EventType, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:          uuid.New().String(),
		Type:        eventType,
		AggregateID: aggregateID,
		Data:        raw,
		Timestamp:   time.Now().UTC(),
	}, nil
}

type OrderStatusChanged struct {
	OrderID        string      `json:"orderId"`
	From           OrderStatus `json:"from"`
	To             OrderStatus `json:"to"`
	ActingEntityID string      `json:"actingEntityId"`
}

type BatchAdjusted struct {
	BatchID  string      `json:"batchId"`
	Delta    int         `json:"delta"`
	Quantity int         `json:"quantity"`
	Status   BatchStatus `json:"status"`
	Reason   string      `json:"reason,omitempty"`
}
