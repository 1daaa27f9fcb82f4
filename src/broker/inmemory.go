package broker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// InMemoryBroker fans messages out to every subscriber of a topic within one
// process. It backs local mode and tests.
type InMemoryBroker struct {
	mu     sync.Mutex
	subs   map[string][]*subscription
	offset map[string]int64
	closed bool
}

// subscription owns out; publishers only ever write to in.
type subscription struct {
	in   chan Message
	out  chan Message
	done chan struct{}
	once sync.Once
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscription) forward() {
	defer close(s.out)
	for {
		select {
		case msg := <-s.in:
			select {
			case s.out <- msg:
			case <-s.done:
				return
			}
		case <-s.done:
			return
		}
	}
}

// NewInMemoryBroker creates a new InMemoryBroker instance.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		subs:   make(map[string][]*subscription),
		offset: make(map[string]int64),
	}
}

// Publish delivers value to all current subscribers of topic. It blocks while
// a subscriber's buffer is full, until ctx is done.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("broker is closed")
	}
	msg := Message{
		Topic:     topic,
		Key:       key,
		Value:     value,
		Offset:    b.offset[topic],
		Timestamp: time.Now().UnixMilli(),
	}
	b.offset[topic]++
	subs := append([]*subscription(nil), b.subs[topic]...)
	b.mu.Unlock()

	for _, s := range subs {
		select {
		case s.in <- msg:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe returns a channel receiving messages published to topic after
// this call. groupID is ignored. The channel closes when ctx is done or the
// broker is closed.
func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("broker is closed")
	}

	s := &subscription{
		in:   make(chan Message, 100),
		out:  make(chan Message),
		done: make(chan struct{}),
	}
	b.subs[topic] = append(b.subs[topic], s)
	go s.forward()

	go func() {
		select {
		case <-ctx.Done():
			b.remove(topic, s)
		case <-s.done:
		}
	}()

	return s.out, nil
}

func (b *InMemoryBroker) remove(topic string, s *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, c := range subs {
		if c == s {
			b.subs[topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	s.stop()
}

// Close ends every subscription.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for topic, subs := range b.subs {
		for _, s := range subs {
			s.stop()
		}
		delete(b.subs, topic)
	}
	return nil
}
