// Package kafka publishes order lifecycle events for downstream consumers
// (fulfilment, analytics). The producer is optional; a nil Conf drops events.
package kafka

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	TopicOrderPlaced    = `order-service.order-placed`
	TopicOrderCancelled = `order-service.order-cancelled`
	TopicOrderPaid      = `order-service.order-paid`
)

// OrderEvent is the payload produced on every order lifecycle topic.
type OrderEvent struct {
	OrderID   int64     `json:"order_id"`
	UserID    int64     `json:"user_id"`
	Total     int64     `json:"total_amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type Conf struct {
	client *kgo.Client
}

// NewConf connects to the brokers given as a comma separated list.
func NewConf(brokers string) (*Conf, error) {
	if brokers == "" {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(strings.Split(brokers, ",")...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kafka client: %w", err)
	}
	return &Conf{client: client}, nil
}

// ProduceMessage publishes synchronously so callers can log failures. A nil
// receiver is a no-op, letting the API run without Kafka.
func (c *Conf) ProduceMessage(topic string, key, value []byte) error {
	if c == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	record := &kgo.Record{Topic: topic, Key: key, Value: value}
	if err := c.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("producing to %s: %w", topic, err)
	}
	return nil
}

func (c *Conf) Close() {
	if c != nil {
		c.client.Close()
	}
}
