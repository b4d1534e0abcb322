package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// DefaultTopic is where alerts are published unless configured otherwise.
const DefaultTopic = "license-alerts"

// producer is the part of *kgo.Client the notifier uses.
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaNotifier publishes alerts as JSON records keyed by agent id, so every
// alert for one agent lands on the same partition in order. Downstream
// consumers own SMS and chat delivery.
type KafkaNotifier struct {
	producer producer
	topic    string
	logger   *slog.Logger
}

// NewKafkaClient creates a franz-go client for the given brokers.
func NewKafkaClient(brokers []string, clientID string) (*kgo.Client, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(0),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

// NewKafkaNotifier wraps a producer. topic defaults to DefaultTopic.
func NewKafkaNotifier(p producer, topic string, logger *slog.Logger) *KafkaNotifier {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &KafkaNotifier{producer: p, topic: topic, logger: logger}
}

func (n *KafkaNotifier) Notify(ctx context.Context, alert Alert) error {
	if alert.At.IsZero() {
		alert.At = time.Now().UTC()
	}
	value, err := json.Marshal(kafkaAlert{Alert: alert, Text: alert.Text()})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	record := &kgo.Record{
		Topic: n.topic,
		Key:   []byte(alert.AgentID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "kind", Value: []byte(alert.Kind)},
		},
	}
	if err := n.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("publish %s alert: %w", alert.Kind, err)
	}
	n.logger.DebugContext(ctx, "alert published",
		"kind", alert.Kind,
		"agent_id", alert.AgentID,
		"topic", n.topic,
	)
	return nil
}

// kafkaAlert is the record payload: the alert plus its rendered text.
type kafkaAlert struct {
	Alert
	Text string `json:"text"`
}

// EnsureTopic creates topic if it does not exist yet.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replicas int16) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, partitions, replicas, nil, topic)
	if err == nil {
		err = resp.Err
	}
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	return nil
}
