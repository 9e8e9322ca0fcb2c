// Package lifecycle describes the events emitted after order and refund writes
// and the publishers that carry them to the storefront.lifecycle topic.
package lifecycle

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const Topic = "storefront.lifecycle"

const (
	EventOrderCreated        = "OrderCreated"
	EventOrderUpdated        = "OrderUpdated"
	EventOrderStatusChanged  = "OrderStatusChanged"
	EventOrderDeleted        = "OrderDeleted"
	EventRefundCreated       = "RefundCreated"
	EventRefundUpdated       = "RefundUpdated"
	EventRefundStatusChanged = "RefundStatusChanged"
	EventRefundDeleted       = "RefundDeleted"
)

const (
	AggregateOrder  = "order"
	AggregateRefund = "refund"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	Aggregate     string          `json:"aggregate"`
	CorrelationID string          `json:"correlation_id"` // aggregate id
	Payload       json.RawMessage `json:"payload"`
}

// Event is what handlers hand to a Publisher; the publisher fills in the envelope.
type Event struct {
	Type        string
	Aggregate   string
	AggregateID int64
	TraceID     string
	Payload     any
}

type StatusChange struct {
	ID     int64  `json:"id"`
	From   string `json:"from"`
	To     string `json:"to"`
	Notes  string `json:"notes,omitempty"`
	UserID int64  `json:"user_id"`
}

type Deleted struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`
}

// Wrap builds the envelope for ev as produced by producer at now.
func Wrap(ev Event, producer string, now time.Time) (Envelope, error) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return Envelope{}, errors.Wrapf(err, "marshal %s payload", ev.Type)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     ev.Type,
		EventVersion:  1,
		OccurredAt:    now.UTC(),
		Producer:      producer,
		TraceID:       ev.TraceID,
		Aggregate:     ev.Aggregate,
		CorrelationID: strconv.FormatInt(ev.AggregateID, 10),
		Payload:       payload,
	}, nil
}

// PartitionKey keeps every event of one aggregate on the same partition.
func PartitionKey(aggregate string, id int64) []byte {
	return []byte(aggregate + ":" + strconv.FormatInt(id, 10))
}
