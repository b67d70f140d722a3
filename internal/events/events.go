// ABOUTME: Change-event publishing for dashboard writes
// ABOUTME: Kafka producer fed by a buffered queue; a Nop publisher when events are disabled

package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	sdk "github.com/segmentio/kafka-go"

	"github.com/2389/storeadmin/internal/resource"
)

// ErrQueueFull is returned when the producer cannot keep up. The change is dropped.
var ErrQueueFull = errors.New("event queue full")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("publisher closed")

// Event is the JSON payload written for every change.
type Event struct {
	Type    string    `json:"type"` // "<entity>.<action>", e.g. "products.updated"
	Entity  string    `json:"entity"`
	Action  string    `json:"action"`
	ID      string    `json:"id"`
	StoreID string    `json:"storeId"`
	ActorID string    `json:"actorId,omitempty"`
	At      time.Time `json:"at"`
}

// NewEvent converts a resource change into its wire form.
func NewEvent(c resource.Change) Event {
	return Event{
		Type:    c.Entity + "." + string(c.Action),
		Entity:  c.Entity,
		Action:  string(c.Action),
		ID:      c.ID,
		StoreID: c.ScopeID,
		ActorID: c.ActorID,
		At:      c.At,
	}
}

// Publisher receives every successful write.
type Publisher interface {
	resource.Observer
	Close() error
}

// Nop discards every change.
type Nop struct{}

func (Nop) RecordChange(context.Context, resource.Change) error { return nil }
func (Nop) Close() error                                          { return nil }

// messageWriter is the subset of *kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...sdk.Message) error
	Close() error
}

// KafkaConfig configures the producer.
type KafkaConfig struct {
	Brokers    []string
	Topic      string
	BufferSize int           // default 1024
	WriteLimit time.Duration // per-message write timeout, default 10s
}

// KafkaPublisher writes change events to a Kafka topic, keyed by store id
// so one store's events stay ordered within a partition.
type KafkaPublisher struct {
	writer     messageWriter
	queue      chan sdk.Message
	writeLimit time.Duration
	logger     *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewKafkaPublisher starts a producer for the configured brokers and topic.
func NewKafkaPublisher(cfg KafkaConfig, logger *slog.Logger) *KafkaPublisher {
	writer := &sdk.Writer{
		Addr:         sdk.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		RequiredAcks: sdk.RequireAll,
		Balancer:     &sdk.Hash{},
	}
	return newKafkaPublisher(writer, cfg, logger)
}

func newKafkaPublisher(w messageWriter, cfg KafkaConfig, logger *slog.Logger) *KafkaPublisher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.WriteLimit <= 0 {
		cfg.WriteLimit = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &KafkaPublisher{
		writer:     w,
		queue:      make(chan sdk.Message, cfg.BufferSize),
		writeLimit: cfg.WriteLimit,
		logger:     logger.With("component", "events", "topic", cfg.Topic),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// RecordChange implements resource.Observer. It never blocks on the broker.
func (p *KafkaPublisher) RecordChange(_ context.Context, c resource.Change) error {
	payload, err := json.Marshal(NewEvent(c))
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	msg := sdk.Message{Key: []byte(c.ScopeID), Value: payload}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *KafkaPublisher) run() {
	defer p.wg.Done()
	for msg := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.writeLimit)
		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			p.logger.Error("publishing change event failed", "key", string(msg.Key), "error", err)
		}
		cancel()
	}
}

// Close drains queued events and closes the writer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return p.writer.Close()
}
