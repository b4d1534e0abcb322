//go:build integration

package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"licensecheck/internal/notify"
	"licensecheck/pkg/testutil/containers"
)

type KafkaNotifierSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
}

func TestKafkaNotifierSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaNotifierSuite))
}

func (s *KafkaNotifierSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
}

func (s *KafkaNotifierSuite) TestPublishAndConsume() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	topic := "license-alerts-it"

	producer, err := notify.NewKafkaClient([]string{s.redpanda.Broker}, "licensecheck-it")
	s.Require().NoError(err)
	defer producer.Close()

	s.Require().NoError(notify.EnsureTopic(ctx, producer, topic, 1, 1))
	s.Require().NoError(notify.EnsureTopic(ctx, producer, topic, 1, 1), "second call is a no-op")

	n := notify.NewKafkaNotifier(producer, topic, nil)
	s.Require().NoError(n.Notify(ctx, notify.Alert{
		Kind:         notify.KindLapsed,
		AgentID:      "agent-42",
		Name:         "Jane Doe",
		Jurisdiction: "FL",
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().Len(records, 1)
	s.Equal("agent-42", string(records[0].Key))

	var alert notify.Alert
	s.Require().NoError(json.Unmarshal(records[0].Value, &alert))
	s.Equal(notify.KindLapsed, alert.Kind)
	s.Equal("FL", alert.Jurisdiction)
}
