package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

const headerType = "event-type"

// Producer defines the subset of kgo.Client used for publishing.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaPublisher writes events to a topic keyed by owner id, so one owner's
// changes stay on one partition in order.
type KafkaPublisher struct {
	client Producer
	topic  string
	close  func()
}

// NewKafkaClient creates a producing client for the given seed brokers.
func NewKafkaClient(brokers []string, topic string) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

// NewKafkaPublisher wraps client. The client is closed by Close.
func NewKafkaPublisher(client *kgo.Client, topic string) *KafkaPublisher {
	return &KafkaPublisher{client: client, topic: topic, close: client.Close}
}

// Publish sends ev synchronously.
func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	rec, err := eventToRec(p.topic, ev)
	if err != nil {
		return err
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// Close flushes and closes the underlying client.
func (p *KafkaPublisher) Close() {
	if p.close != nil {
		p.close()
	}
}

func eventToRec(topic string, ev Event) (*kgo.Record, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(ev.Task.OwnerID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: headerType, Value: []byte(ev.Type)},
		},
	}, nil
}
