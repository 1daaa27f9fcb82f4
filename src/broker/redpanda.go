package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"

	"easlog/src/logger"
)

const clientID = "easlog"

// ContentTypeHeader tags every published record; all payloads are JSON.
const ContentTypeHeader = "content-type"

// RedpandaBroker publishes and consumes through a Redpanda cluster (Kafka API).
//
// Consumers commit offsets only after a fetch's records have been handed to
// the subscriber, so an agent that dies mid-batch sees those export requests again.
type RedpandaBroker struct {
	producer *kgo.Client
	seeds    []string
	logger   logger.Logger

	mu        sync.Mutex
	consumers map[string]*kgo.Client // "topic/group"
	closed    bool
}

// NewRedpandaBroker connects a producer to seeds, e.g. ["localhost:19092"].
func NewRedpandaBroker(seeds []string, log logger.Logger) (*RedpandaBroker, error) {
	if len(seeds) == 0 {
		return nil, errors.New("redpanda: no seed brokers configured")
	}
	if log == nil {
		log = logger.NewSilentLogger()
	}

	producer, err := kgo.NewClient(
		kgo.SeedBrokers(seeds...),
		kgo.ClientID(clientID),
		kgo.AllowAutoTopicCreation(),
		kgo.ProducerBatchCompression(kgo.ZstdCompression(), kgo.NoCompression()),
		kgo.RecordRetries(5),
	)
	if err != nil {
		return nil, fmt.Errorf("redpanda: failed to create producer: %w", err)
	}

	return &RedpandaBroker{
		producer:  producer,
		seeds:     seeds,
		logger:    log,
		consumers: make(map[string]*kgo.Client),
	}, nil
}

func (b *RedpandaBroker) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Publish writes one JSON record and waits for the cluster to acknowledge it.
// Records with the same key (a build ID) land on the same partition.
func (b *RedpandaBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	if b.isClosed() {
		return fmt.Errorf("redpanda: broker is closed")
	}

	rec := kgo.KeySliceRecord([]byte(key), value)
	rec.Topic = topic
	rec.Headers = []kgo.RecordHeader{{Key: ContentTypeHeader, Value: []byte("application/json")}}

	if err := b.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("redpanda: failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe joins groupID on topic. Only one subscription per topic and group
// may be active in a process; it ends when ctx is done or the broker closes.
func (b *RedpandaBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("redpanda: broker is closed")
	}

	name := topic + "/" + groupID
	if _, exists := b.consumers[name]; exists {
		return nil, fmt.Errorf("redpanda: already consuming %s as %s", topic, groupID)
	}

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(b.seeds...),
		kgo.ClientID(clientID),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("redpanda: failed to create consumer for %s: %w", topic, err)
	}
	b.consumers[name] = consumer

	out := make(chan Message, 64)
	go b.consume(ctx, name, consumer, out)
	return out, nil
}

func (b *RedpandaBroker) consume(ctx context.Context, name string, consumer *kgo.Client, out chan<- Message) {
	defer close(out)
	defer b.release(name, consumer)

	for ctx.Err() == nil {
		fetches := consumer.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			if ctx.Err() == nil {
				b.logger.Error("[RedpandaBroker] Fetch error on %s/%d: %v", topic, partition, err)
			}
		})

		delivered := 0
		iter := fetches.RecordIter()
		for !iter.Done() {
			select {
			case out <- toMessage(iter.Next()):
				delivered++
			case <-ctx.Done():
				return
			}
		}

		if delivered > 0 {
			if err := consumer.CommitUncommittedOffsets(ctx); err != nil && ctx.Err() == nil {
				b.logger.Error("[RedpandaBroker] Commit failed for %s: %v", name, err)
			}
		}
	}
}

// release forgets a finished consumer so the topic can be subscribed again.
// Consumers taken over by Close are closed there.
func (b *RedpandaBroker) release(name string, consumer *kgo.Client) {
	b.mu.Lock()
	owned := b.consumers[name] == consumer
	if owned {
		delete(b.consumers, name)
	}
	b.mu.Unlock()
	if owned {
		consumer.Close()
	}
}

func toMessage(rec *kgo.Record) Message {
	return Message{
		Topic:     rec.Topic,
		Key:       string(rec.Key),
		Value:     rec.Value,
		Offset:    rec.Offset,
		Partition: rec.Partition,
		Timestamp: rec.Timestamp.UnixMilli(),
	}
}

// Close stops every consumer, then the producer.
func (b *RedpandaBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	consumers := b.consumers
	b.consumers = make(map[string]*kgo.Client)
	b.mu.Unlock()

	for _, c := range consumers {
		c.Close()
	}
	b.producer.Close()
	return nil
}
