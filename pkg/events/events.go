package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope for every message published to Kafka.
//
// Topic naming: cryptonested.<domain>.<action>
// Event types carry a version suffix: "staking.position.created.v1".
// Breaking payload changes require a new version; consumers must tolerate
// unknown fields.
type Event struct {
	// EventID is a unique identifier for this event instance.
	EventID string `json:"event_id"`

	// EventType is <domain>.<action>.v<version>.
	EventType string `json:"event_type"`

	// OccurredAt is when the event happened, not when it was published.
	OccurredAt time.Time `json:"occurred_at"`

	// CorrelationID links events raised by the same user request.
	CorrelationID string `json:"correlation_id,omitempty"`

	// Source names the producing service.
	Source string `json:"source"`

	Payload any `json:"payload"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewEvent creates an event with a generated ID and UTC timestamp.
func NewEvent(eventType string, payload any) *Event {
	return &Event{
		EventID:    uuid.New().String(),
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Source:     "cryptonested",
		Payload:    payload,
	}
}

func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

func (e *Event) WithMetadata(key, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// Topics published by this service.
const (
	// TopicTransactions carries transaction.recorded.v1 events, published
	// when a buy/sell/transfer is appended to the ledger.
	TopicTransactions = "cryptonested.portfolio.transactions"

	// TopicStaking carries staking.position.created.v1,
	// staking.position.withdrawn.v1 and staking.reward.accrued.v1 events.
	TopicStaking = "cryptonested.staking.lifecycle"
)

// Publisher is the outbound event interface. The core never depends on the
// Kafka publisher directly so tests and kafka-less deployments can swap in
// the no-op or a recorder.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *Event) error
	Close() error
}

// NopPublisher drops every event. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, *Event) error { return nil }
func (NopPublisher) Close() error                                  { return nil }
