package broker

import (
	"context"
	"testing"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

func TestInMemoryBroker_PublishSubscribe(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	topic := "test-topic"
	key := "test-key"
	value := []byte("test message")

	// Subscribe before publishing
	msgChan, err := broker.Subscribe(ctx, topic, "test-group")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	// Publish message
	if err := broker.Publish(ctx, topic, key, value); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	// Receive message
	select {
	case msg := <-msgChan:
		if msg.Topic != topic {
			t.Errorf("Expected topic %s, got %s", topic, msg.Topic)
		}
		if msg.Key != key {
			t.Errorf("Expected key %s, got %s", key, msg.Key)
		}
		if string(msg.Value) != string(value) {
			t.Errorf("Expected value %s, got %s", string(value), string(msg.Value))
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

func TestInMemoryBroker_MultipleSubscribers(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	topic := "test-topic"

	// Create two subscribers
	sub1, err := broker.Subscribe(ctx, topic, "group1")
	if err != nil {
		t.Fatalf("Subscribe 1 failed: %v", err)
	}

	sub2, err := broker.Subscribe(ctx, topic, "group2")
	if err != nil {
		t.Fatalf("Subscribe 2 failed: %v", err)
	}

	// Publish message
	value := []byte("broadcast message")
	if err := broker.Publish(ctx, topic, "key", value); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	// Both subscribers should receive the message
	for i, sub := range []<-chan Message{sub1, sub2} {
		select {
		case msg := <-sub:
			if string(msg.Value) != string(value) {
				t.Errorf("Subscriber %d: expected value %s, got %s", i+1, string(value), string(msg.Value))
			}
		case <-time.After(1 * time.Second):
			t.Fatalf("Subscriber %d: timeout waiting for message", i+1)
		}
	}
}

func TestInMemoryBroker_ClosedBroker(t *testing.T) {
	broker := NewInMemoryBroker()
	broker.Close()

	ctx := context.Background()

	// Publishing to closed broker should fail
	err := broker.Publish(ctx, "test", "key", []byte("value"))
	if err == nil {
		t.Error("Expected error when publishing to closed broker")
	}

	// Subscribing to closed broker should fail
	_, err = broker.Subscribe(ctx, "test", "group")
	if err == nil {
		t.Error("Expected error when subscribing to closed broker")
	}
}

func TestInMemoryBroker_TopicIsolationAndOffsets(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	chA, _ := broker.Subscribe(ctx, "topic-a", "g")
	chB, _ := broker.Subscribe(ctx, "topic-b", "g")

	for i := 0; i < 2; i++ {
		if err := broker.Publish(ctx, "topic-a", "k", []byte("a")); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}

	for want := int64(0); want < 2; want++ {
		select {
		case msg := <-chA:
			if msg.Offset != want {
				t.Errorf("Offset = %d, want %d", msg.Offset, want)
			}
		case <-time.After(time.Second):
			t.Fatal("Timeout waiting for message on topic-a")
		}
	}

	select {
	case msg := <-chB:
		t.Errorf("topic-b received %q", msg.Value)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInMemoryBroker_CancelClosesChannel(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := broker.Subscribe(ctx, "topic", "g")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}

	// Publishing after the only subscriber left must not block.
	if err := broker.Publish(context.Background(), "topic", "k", []byte("v")); err != nil {
		t.Errorf("Publish after unsubscribe failed: %v", err)
	}
}

func TestInMemoryBroker_CloseEndsSubscriptions(t *testing.T) {
	broker := NewInMemoryBroker()
	ch, _ := broker.Subscribe(context.Background(), "topic", "g")

	broker.Close()
	broker.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel after Close")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after Close")
	}
}

func TestNewRedpandaBroker_RequiresAddress(t *testing.T) {
	if _, err := NewRedpandaBroker(nil, nil); err == nil {
		t.Error("Expected error for empty broker list")
	}
}

func TestToMessage(t *testing.T) {
	ts := time.UnixMilli(1732983165701)
	rec := &kgo.Record{
		Topic:     "easlog.exports.completed",
		Key:       []byte("b1"),
		Value:     []byte(`{"status":"ok"}`),
		Partition: 2,
		Offset:    41,
		Timestamp: ts,
	}

	msg := toMessage(rec)
	if msg.Topic != rec.Topic || msg.Key != "b1" || string(msg.Value) != `{"status":"ok"}` {
		t.Errorf("toMessage() = %+v", msg)
	}
	if msg.Partition != 2 || msg.Offset != 41 || msg.Timestamp != 1732983165701 {
		t.Errorf("toMessage() position = %d/%d @%d", msg.Partition, msg.Offset, msg.Timestamp)
	}
}
