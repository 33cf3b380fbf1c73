package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer used here.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher lazily manages one writer per topic.
type KafkaPublisher struct {
	brokers       []string
	activityTopic string
	rankingTopic  string
	newWriter     func(topic string) MessageWriter

	mu      sync.Mutex
	writers map[string]MessageWriter
}

// NewKafkaPublisher creates a KafkaPublisher writing to the given topics.
func NewKafkaPublisher(brokers []string, activityTopic, rankingTopic string) *KafkaPublisher {
	p := &KafkaPublisher{
		brokers:       brokers,
		activityTopic: activityTopic,
		rankingTopic:  rankingTopic,
		writers:       make(map[string]MessageWriter),
	}
	p.newWriter = p.kafkaWriter
	return p
}

func (p *KafkaPublisher) kafkaWriter(topic string) MessageWriter {
	return &kafka.Writer{
		Addr:                   kafka.TCP(p.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Compression:            kafka.Snappy,
		AllowAutoTopicCreation: true,
	}
}

func (p *KafkaPublisher) ActivityLogged(ctx context.Context, evt ActivityLogged) error {
	// Keyed by user so one user's events stay ordered within a partition.
	return p.publish(ctx, p.activityTopic, evt.UserID, evt)
}

func (p *KafkaPublisher) LeaderboardRanked(ctx context.Context, evt LeaderboardRanked) error {
	return p.publish(ctx, p.rankingTopic, "rankings", evt)
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", topic, err)
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}
	if err := p.writerForTopic(topic).WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}

func (p *KafkaPublisher) writerForTopic(topic string) MessageWriter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, ok := p.writers[topic]; ok {
		return writer
	}
	writer := p.newWriter(topic)
	p.writers[topic] = writer
	return writer
}

// Close releases all writers.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.writers, topic)
	}
	return firstErr
}
