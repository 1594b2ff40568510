package events

import (
	"encoding/json"
	"time"
)

const (
	EventRecordCreated  = "RecordCreated"
	EventRecordUpdated  = "RecordUpdated"
	EventOrderCreated   = "OrderCreated"
	EventOrderCancelled = "OrderCancelled"
	EventOrderCompleted = "OrderCompleted"
)

const (
	TopicRecordEvents = "record.events"
	TopicOrderEvents  = "order.events"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type RecordEventPayload struct {
	RecordID string `json:"record_id"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	Format   string `json:"format"`
	Qty      int    `json:"qty"`
}

type OrderEventPayload struct {
	OrderID  string `json:"order_id"`
	RecordID string `json:"record_id"`
	Quantity int    `json:"quantity"`
	Status   string `json:"status"`
}

// Partition key keeps every event of one entity on one partition, in order.
func PartitionKey(id string) []byte { return []byte(id) }
