package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func TestNewEvent(t *testing.T) {
	e := NewEvent("staking.position.created.v1", PositionCreatedPayload{
		PositionID: "pos-1",
		UserID:     "user-1",
		PlanID:     "plan-eth-90",
		CoinID:     "ethereum",
		Amount:     1000,
		APY:        10,
	})

	if e.EventID == "" {
		t.Errorf("EventID should be generated")
	}
	if e.EventType != "staking.position.created.v1" {
		t.Errorf("EventType = %s", e.EventType)
	}
	if e.Source != "cryptonested" {
		t.Errorf("Source = %s", e.Source)
	}
	if e.OccurredAt.IsZero() || e.OccurredAt.Location() != time.UTC {
		t.Errorf("OccurredAt should be set in UTC, got %v", e.OccurredAt)
	}
}

func TestEvent_Builders(t *testing.T) {
	e := NewEvent("transaction.recorded.v1", nil).
		WithCorrelationID("req-42").
		WithMetadata("portfolio_id", "pf-1")

	if e.CorrelationID != "req-42" {
		t.Errorf("CorrelationID = %s", e.CorrelationID)
	}
	if e.Metadata["portfolio_id"] != "pf-1" {
		t.Errorf("Metadata not set: %v", e.Metadata)
	}
}

func TestEvent_JSONRoundTrip(t *testing.T) {
	e := NewEvent("staking.reward.accrued.v1", RewardAccruedPayload{
		PositionID: "pos-1",
		Amount:     24.66,
		Total:      24.66,
	})

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal error = %v", err)
	}

	var decoded Event
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}
	if decoded.EventID != e.EventID || decoded.EventType != e.EventType {
		t.Errorf("round trip lost identity: %+v", decoded)
	}
}

func TestKafkaHeaderCarrier(t *testing.T) {
	headers := make([]kafka.Header, 0)
	carrier := &kafkaHeaderCarrier{headers: &headers}

	carrier.Set("traceparent", "00-abc-def-01")
	if got := carrier.Get("traceparent"); got != "00-abc-def-01" {
		t.Errorf("Get = %q", got)
	}

	carrier.Set("traceparent", "00-abc-def-02")
	if len(headers) != 1 {
		t.Errorf("Set on existing key should replace, have %d headers", len(headers))
	}
	if got := carrier.Get("traceparent"); got != "00-abc-def-02" {
		t.Errorf("Get after replace = %q", got)
	}

	if got := carrier.Get("missing"); got != "" {
		t.Errorf("Get missing key = %q, want empty", got)
	}

	keys := carrier.Keys()
	if len(keys) != 1 || keys[0] != "traceparent" {
		t.Errorf("Keys = %v", keys)
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	if err := p.Publish(context.Background(), TopicStaking, NewEvent("x.v1", nil)); err != nil {
		t.Errorf("NopPublisher.Publish error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("NopPublisher.Close error = %v", err)
	}
}

func TestKafkaPublisher_GetWriterConcurrent(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"})

	topics := []string{TopicStaking, TopicTransactions}
	writers := make([]*kafka.Writer, 32)

	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			writers[i] = p.getWriter(topics[i%len(topics)])
		}(i)
	}
	wg.Wait()

	// Every goroutine asking for the same cold topic must end up with the
	// same writer instance.
	for i, w := range writers {
		if w == nil {
			t.Fatalf("writer %d is nil", i)
		}
		if w != p.getWriter(topics[i%len(topics)]) {
			t.Errorf("writer %d does not match the topic's stored writer", i)
		}
	}
	if p.getWriter(TopicStaking) == p.getWriter(TopicTransactions) {
		t.Errorf("distinct topics share a writer")
	}
}
