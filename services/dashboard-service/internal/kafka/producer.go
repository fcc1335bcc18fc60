package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventIDHeader carries a unique id on every published message
const EventIDHeader = "event_id"

// Event is one JSON encoded record. Key selects the partition, so events
// sharing a key keep their order.
type Event struct {
	Key     string
	Payload any
	Headers []kafka.Header
}

// Producer writes dashboard events, one synchronous writer per topic
type Producer struct {
	mu       sync.Mutex
	writers  map[string]*kafka.Writer
	brokers  []string
	clientID string
	logger   *zap.Logger
}

func NewProducer(brokers []string, clientID string, logger *zap.Logger) *Producer {
	return &Producer{
		writers:  make(map[string]*kafka.Writer),
		brokers:  brokers,
		clientID: clientID,
		logger:   logger,
	}
}

func (p *Producer) writerFor(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w, ok := p.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Transport:    &kafka.Transport{ClientID: p.clientID},
	}
	p.writers[topic] = w
	return w
}

// encode turns an event into a wire message stamped with a fresh event id
func encode(event Event) (kafka.Message, error) {
	value, err := json.Marshal(event.Payload)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event %q: %w", event.Key, err)
	}
	headers := make([]kafka.Header, 0, len(event.Headers)+1)
	headers = append(headers, kafka.Header{Key: EventIDHeader, Value: []byte(uuid.NewString())})
	headers = append(headers, event.Headers...)

	return kafka.Message{
		Key:     []byte(event.Key),
		Value:   value,
		Headers: headers,
		Time:    time.Now(),
	}, nil
}

// Publish writes event to topic and waits for the leader to acknowledge it
func (p *Producer) Publish(ctx context.Context, topic string, event Event) error {
	msg, err := encode(event)
	if err != nil {
		p.logger.Error("Dropping event", zap.String("topic", topic), zap.Error(err))
		return err
	}

	if err := p.writerFor(topic).WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish event",
			zap.String("topic", topic),
			zap.String("key", event.Key),
			zap.Error(err))
		return err
	}

	p.logger.Debug("Event published", zap.String("topic", topic), zap.String("key", event.Key))
	return nil
}

// Close flushes and closes every writer. It reports the first failure but
// still closes the rest.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil {
			p.logger.Error("Failed to close writer", zap.String("topic", topic), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	p.writers = make(map[string]*kafka.Writer)
	return firstErr
}
